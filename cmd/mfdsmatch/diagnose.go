package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/giygas/mfds-matcher/catalog"
)

var errDiagnostics = errors.New("input files have problems")

func newDiagnoseCmd() *cobra.Command {
	var catalogPath, sourcePath string
	var activeOnly bool

	cmd := &cobra.Command{
		Use:   "diagnose",
		Short: "Show how the headers of input files are understood",
		RunE: func(cmd *cobra.Command, args []string) error {
			if catalogPath == "" && sourcePath == "" {
				return fmt.Errorf("at least one of --catalog or --source is required")
			}

			var reports []catalog.Diagnostics
			if catalogPath != "" {
				table, err := catalog.LoadFile(catalogPath)
				if err != nil {
					return err
				}
				reports = append(reports, catalog.Diagnose(table, activeOnly))
			}
			if sourcePath != "" {
				table, err := catalog.LoadFile(sourcePath)
				if err != nil {
					return err
				}
				reports = append(reports, catalog.DiagnoseSource(table))
			}

			if err := writeJSON(cmd.OutOrStdout(), "", reports); err != nil {
				return err
			}
			for _, r := range reports {
				if len(r.Errors) > 0 {
					return errDiagnostics
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&catalogPath, "catalog", "", "MFDS catalog file")
	cmd.Flags().StringVar(&sourcePath, "source", "", "Source list file")
	cmd.Flags().BoolVar(&activeOnly, "active-only", true, "Count the active catalog rows")
	return cmd
}
