package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/larder/pkg/schema"
	"github.com/mesh-intelligence/larder/pkg/types"
)

func newDiffCmd(flags *rootFlags) *cobra.Command {
	var schemaFile string
	cmd := &cobra.Command{
		Use:   "diff",
		Short: "Compare a schema file with the last recorded schema",
		Long: "Compare the model types in a schema file against the snapshot recorded by the\n" +
			"last migration. Prints one line per difference and exits 1 when they differ.",
		Args: cobra.NoArgs,
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

			var diffs []schema.Difference
			same, err := conn.Drift(cmd.Context(), engine, schema.Collect(&diffs))
			if errors.Is(err, types.ErrNoSchemaRecorded) {
				return userError("no schema recorded yet; run larder migrate first")
			}
			if err != nil {
				return sysError("diff: %w", err)
			}

			out := cmd.OutOrStdout()
			lines := make([]string, len(diffs))
			for i, d := range diffs {
				lines[i] = d.String()
			}
			if flags.jsonMode {
				data, err := json.MarshalIndent(map[string]any{"same": same, "differences": lines}, "", "  ")
				if err != nil {
					return sysError("encode differences: %w", err)
				}
				fmt.Fprintln(out, string(data))
			} else {
				for _, l := range lines {
					fmt.Fprintln(out, l)
				}
			}
			if !same {
				return userError("schema drift: %d difference(s)", len(diffs))
			}
			if !flags.jsonMode {
				fmt.Fprintln(out, "schema matches the recorded snapshot")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&schemaFile, "schema", "", "schema file (.yaml, .yml, .json or .cue)")
	return cmd
}
