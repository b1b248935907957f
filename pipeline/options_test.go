package pipeline

import (
	"errors"
	"math"
	"testing"

	"github.com/giygas/mfds-matcher/catalog"
	"github.com/giygas/mfds-matcher/config"
	"github.com/giygas/mfds-matcher/validation"
)

func TestOptionsFromConfig(t *testing.T) {
	opts, err := OptionsFromConfig(config.DefaultMatchOptions())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if opts != catalog.DefaultOptions() {
		t.Errorf("Expected default options, got %+v", opts)
	}

	opts, err = OptionsFromConfig(config.MatchOptions{GenericCountBasis: "base_form", ReviewThreshold: 0.5})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if opts.GenericCountBasis != catalog.BasisBaseForm || opts.CancelFilter != catalog.CancelActiveOnly || opts.ReviewThreshold != 0.5 {
		t.Errorf("Expected base_form with defaults filled in, got %+v", opts)
	}

	_, err = OptionsFromConfig(config.MatchOptions{CancelFilter: "never"})
	if !errors.Is(err, validation.ErrInvalidOptions) {
		t.Errorf("Expected ErrInvalidOptions, got %v", err)
	}

	_, err = OptionsFromConfig(config.MatchOptions{ReviewThreshold: math.NaN()})
	if !errors.Is(err, validation.ErrInvalidOptions) {
		t.Errorf("Expected ErrInvalidOptions for a NaN threshold, got %v", err)
	}
}
