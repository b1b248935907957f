package validation

import (
	"errors"
	"fmt"

	"github.com/giygas/mfds-matcher/catalog"
)

// Sentinel errors for run preconditions. They are returned wrapped; check with errors.Is.
var (
	ErrEmptyCatalog   = errors.New("reference catalog is empty")
	ErrEmptySource    = errors.New("source list is empty")
	ErrInvalidOptions = errors.New("invalid matching options")
)

// ValidateOptions checks option values.
func ValidateOptions(opts catalog.Options) error {
	if err := opts.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidOptions, err)
	}
	return nil
}

// ValidateInputs checks everything a run needs before any matching starts.
func ValidateInputs(catalogRows int, sources []catalog.SourceRecord, opts catalog.Options) error {
	if catalogRows == 0 {
		return fmt.Errorf("cannot run matching: %w", ErrEmptyCatalog)
	}
	if len(sources) == 0 {
		return fmt.Errorf("cannot run matching: %w", ErrEmptySource)
	}
	return ValidateOptions(opts)
}
