package catalog

import "fmt"

// GenericCountBasis selects which ingredient index the generic count is computed on.
type GenericCountBasis string

const (
	BasisBase     GenericCountBasis = "base"
	BasisBaseForm GenericCountBasis = "base_form"
)

// GenericDefinition selects the generic count formula.
type GenericDefinition string

const (
	DefinitionExclOriginal       GenericDefinition = "excl_original"
	DefinitionTotalMinusOriginal GenericDefinition = "total_minus_original"
)

// CancelFilter selects whether cancelled catalog entries take part in matching and counting.
type CancelFilter string

const (
	CancelActiveOnly CancelFilter = "active_only"
	CancelAll        CancelFilter = "all"
)

// Options configures one matching run.
type Options struct {
	GenericCountBasis GenericCountBasis `json:"genericCountBasis" yaml:"generic_count_basis"`
	GenericDefinition GenericDefinition `json:"genericDefinition" yaml:"generic_definition"`
	CancelFilter      CancelFilter      `json:"cancelFilter" yaml:"cancel_filter"`
	ReviewThreshold   float64           `json:"reviewThreshold" yaml:"review_threshold"`
}

// DefaultOptions returns the options used when the caller does not override them.
func DefaultOptions() Options {
	return Options{
		GenericCountBasis: BasisBase,
		GenericDefinition: DefinitionExclOriginal,
		CancelFilter:      CancelActiveOnly,
		ReviewThreshold:   0.90,
	}
}

// ActiveOnly reports whether cancelled entries should be filtered out.
func (o Options) ActiveOnly() bool {
	return o.CancelFilter == CancelActiveOnly
}

// UseBaseForm reports whether generics are grouped by ingredient base and dosage form.
func (o Options) UseBaseForm() bool {
	return o.GenericCountBasis == BasisBaseForm
}

// WithDefaults fills empty fields from DefaultOptions. A zero ReviewThreshold is kept as is.
func (o Options) WithDefaults() Options {
	def := DefaultOptions()
	if o.GenericCountBasis == "" {
		o.GenericCountBasis = def.GenericCountBasis
	}
	if o.GenericDefinition == "" {
		o.GenericDefinition = def.GenericDefinition
	}
	if o.CancelFilter == "" {
		o.CancelFilter = def.CancelFilter
	}
	return o
}

// Validate checks every option against its allowed values.
func (o Options) Validate() error {
	switch o.GenericCountBasis {
	case BasisBase, BasisBaseForm:
	default:
		return fmt.Errorf("genericCountBasis must be one of [%s %s], got: %q", BasisBase, BasisBaseForm, o.GenericCountBasis)
	}

	switch o.GenericDefinition {
	case DefinitionExclOriginal, DefinitionTotalMinusOriginal:
	default:
		return fmt.Errorf("genericDefinition must be one of [%s %s], got: %q",
			DefinitionExclOriginal, DefinitionTotalMinusOriginal, o.GenericDefinition)
	}

	switch o.CancelFilter {
	case CancelActiveOnly, CancelAll:
	default:
		return fmt.Errorf("cancelFilter must be one of [%s %s], got: %q", CancelActiveOnly, CancelAll, o.CancelFilter)
	}

	// Written as a negated range so NaN is rejected too
	if !(o.ReviewThreshold >= 0 && o.ReviewThreshold <= 1) {
		return fmt.Errorf("reviewThreshold must be between 0 and 1, got: %v", o.ReviewThreshold)
	}

	return nil
}
