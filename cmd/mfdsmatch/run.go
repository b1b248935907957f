package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/giygas/mfds-matcher/catalog"
	"github.com/giygas/mfds-matcher/config"
	"github.com/giygas/mfds-matcher/logging"
	"github.com/giygas/mfds-matcher/pipeline"
)

type runFlags struct {
	catalogPath string
	sourcePath  string
	mappingPath string
	optionsPath string
	outPath     string
	reviewPath  string
	workers     int
}

func newRunCmd(verbose *bool) *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Match a source list against a catalog file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMatch(cmd, f, *verbose)
		},
	}

	cmd.Flags().StringVar(&f.catalogPath, "catalog", envOr("CATALOG_PATH", ""), "MFDS catalog file: .csv, .tsv, .txt or .json (or set CATALOG_PATH)")
	cmd.Flags().StringVar(&f.sourcePath, "source", "", "Source list file (required)")
	cmd.Flags().StringVar(&f.mappingPath, "mapping", "", "Manual mapping file")
	cmd.Flags().StringVar(&f.optionsPath, "options", "", "YAML matching options file")
	cmd.Flags().StringVar(&f.outPath, "out", "", "Write the result JSON here instead of stdout")
	cmd.Flags().StringVar(&f.reviewPath, "review-out", "", "Write the rows needing review as JSON")
	cmd.Flags().IntVar(&f.workers, "workers", 0, "Concurrent matching workers, 0 for one per CPU")
	_ = cmd.MarkFlagRequired("source")
	return cmd
}

func runMatch(cmd *cobra.Command, f *runFlags, verbose bool) error {
	if f.catalogPath == "" {
		return fmt.Errorf("--catalog is required")
	}

	matchOpts := config.DefaultMatchOptions()
	if f.optionsPath != "" {
		var err error
		if matchOpts, err = config.LoadOptionsFile(f.optionsPath, matchOpts); err != nil {
			return err
		}
	}
	opts, err := pipeline.OptionsFromConfig(matchOpts)
	if err != nil {
		return err
	}

	table, err := catalog.LoadFile(f.catalogPath)
	if err != nil {
		return err
	}
	rows, err := catalog.CatalogRows(table)
	if err != nil {
		return fmt.Errorf("catalog %s: %w", table.Name, err)
	}

	sources, err := catalog.LoadSources(f.sourcePath)
	if err != nil {
		return err
	}

	var mappings []catalog.MappingEntry
	if f.mappingPath != "" {
		if mappings, err = catalog.LoadMappings(f.mappingPath); err != nil {
			return err
		}
		logging.Info("Mappings loaded", "path", f.mappingPath, "entries", len(mappings))
	}

	var progress pipeline.ProgressFunc
	if verbose {
		progress = func(percent int, label string) {
			fmt.Fprintf(cmd.ErrOrStderr(), "[%3d%%] %s\n", percent, label)
		}
	}

	res, err := pipeline.NewProcessor(f.workers, progress).Run(cmd.Context(), pipeline.Input{
		Catalog:  rows,
		Sources:  sources,
		Mappings: mappings,
		Options:  opts,
	})
	if err != nil {
		return err
	}

	if err := writeJSON(cmd.OutOrStdout(), f.outPath, res); err != nil {
		return err
	}
	if f.reviewPath != "" {
		review := res.ReviewNeeded()
		if review == nil {
			review = []pipeline.MatchResult{}
		}
		if err := writeJSON(nil, f.reviewPath, review); err != nil {
			return err
		}
	}

	s := res.Summary
	fmt.Fprintf(cmd.ErrOrStderr(), "rows=%d high=%d medium=%d review=%d not_found=%d generic_rows=%d discrepancies=%d\n",
		s.TotalRows, s.High, s.Medium, s.Review, s.NotFound, s.TotalGenericItems, len(res.Discrepancies))
	return nil
}

// writeJSON writes v indented to path, or to fallback when path is empty
func writeJSON(fallback io.Writer, path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	data = append(data, '\n')

	if path == "" {
		_, err := fallback.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
