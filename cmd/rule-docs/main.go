package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/smregler-server/internal/diagnosis"
	"github.com/smregler-server/internal/rules"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rule-docs",
		Short: "Write the rule catalog of every chain as a CSV file",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("out")
			table, _ := cmd.Flags().GetString("diagnosis-table")

			registry, err := loadRegistry(table)
			if err != nil {
				return err
			}

			written, err := generate(dir, catalogs(registry))
			if err != nil {
				return err
			}
			for _, path := range written {
				logrus.WithField("path", path).Info("Wrote rule documentation")
			}
			return nil
		},
	}
	cmd.Flags().String("out", "docs/rules", "Directory the CSV files are written to")
	cmd.Flags().String("diagnosis-table", "", "Diagnosis cross-reference table (defaults to the built-in table)")
	return cmd
}

func loadRegistry(path string) (*diagnosis.Registry, error) {
	if path != "" {
		return diagnosis.LoadFile(path)
	}
	return diagnosis.LoadDefault()
}

func catalogs(registry *diagnosis.Registry) []rules.Catalog {
	return []rules.Catalog{
		rules.NewEnvelopeChain(),
		rules.NewPeriodLogicChain(),
		rules.NewValidationChain(registry),
	}
}

// generate writes one file per catalog into dir and returns the paths written.
func generate(dir string, catalogs []rules.Catalog) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", dir, err)
	}

	written := make([]string, 0, len(catalogs))
	for _, catalog := range catalogs {
		path := filepath.Join(dir, rules.DocumentationFileName(catalog))
		if err := writeFile(path, catalog); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

func writeFile(path string, catalog rules.Catalog) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := rules.WriteDocumentation(f, catalog); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
