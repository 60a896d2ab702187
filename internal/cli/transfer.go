package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

func newExportCmd(flags *rootFlags) *cobra.Command {
	var schemaFile, dir string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every stored row to JSONL files, one per table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := setup(flags)
			if err != nil {
				return err
			}
			defer e.log.Sync()
			engine, err := e.loadSchema(schemaFile)
			if err != nil {
				return err
			}
			conn, err := e.attach()
			if err != nil {
				return err
			}
			defer conn.Detach()

			counts, err := conn.Export(cmd.Context(), engine, dir)
			if err != nil {
				return sysError("export: %w", err)
			}
			printCounts(cmd, "exported", counts)
			return nil
		},
	}
	cmd.Flags().StringVar(&schemaFile, "schema", "", "schema file (.yaml, .yml, .json or .cue)")
	cmd.Flags().StringVar(&dir, "dir", "export", "directory the JSONL files are written to")
	return cmd
}

func newImportCmd(flags *rootFlags) *cobra.Command {
	var schemaFile, dir string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load rows from JSONL files written by export",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := setup(flags)
			if err != nil {
				return err
			}
			defer e.log.Sync()
			engine, err := e.loadSchema(schemaFile)
			if err != nil {
				return err
			}
			conn, err := e.attach()
			if err != nil {
				return err
			}
			defer conn.Detach()

			counts, err := conn.Import(cmd.Context(), engine, dir)
			if err != nil {
				return sysError("import: %w", err)
			}
			printCounts(cmd, "imported", counts)
			return nil
		},
	}
	cmd.Flags().StringVar(&schemaFile, "schema", "", "schema file (.yaml, .yml, .json or .cue)")
	cmd.Flags().StringVar(&dir, "dir", "export", "directory holding the JSONL files")
	return cmd
}

func printCounts(cmd *cobra.Command, verb string, counts map[string]int) {
	tables := make([]string, 0, len(counts))
	for t := range counts {
		tables = append(tables, t)
	}
	sort.Strings(tables)
	for _, t := range tables {
		fmt.Fprintf(cmd.OutOrStdout(), "%s %d row(s) %s\n", t, counts[t], verb)
	}
}
