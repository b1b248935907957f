package pipeline

import (
	"github.com/giygas/mfds-matcher/catalog"
	"github.com/giygas/mfds-matcher/config"
	"github.com/giygas/mfds-matcher/validation"
)

// OptionsFromConfig converts configured option strings into validated matching options.
func OptionsFromConfig(m config.MatchOptions) (catalog.Options, error) {
	opts := catalog.Options{
		GenericCountBasis: catalog.GenericCountBasis(m.GenericCountBasis),
		GenericDefinition: catalog.GenericDefinition(m.GenericDefinition),
		CancelFilter:      catalog.CancelFilter(m.CancelFilter),
		ReviewThreshold:   m.ReviewThreshold,
	}.WithDefaults()

	if err := validation.ValidateOptions(opts); err != nil {
		return catalog.Options{}, err
	}
	return opts, nil
}
