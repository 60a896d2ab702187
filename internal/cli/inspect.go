package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newInspectCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "Print the live database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := setup(flags)
			if err != nil {
				return err
			}
			defer e.log.Sync()
			conn, err := e.attach()
			if err != nil {
				return err
			}
			defer conn.Detach()

			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			if flags.jsonMode {
				live, err := conn.RawDatabaseSchema(ctx)
				if err != nil {
					return sysError("inspect: %w", err)
				}
				data, err := json.MarshalIndent(live, "", "  ")
				if err != nil {
					return sysError("encode schema: %w", err)
				}
				fmt.Fprintln(out, string(data))
				return nil
			}

			tables, err := conn.Tables(ctx)
			if err != nil {
				return sysError("inspect: %w", err)
			}
			if len(tables) == 0 {
				fmt.Fprintln(out, "no tables")
				return nil
			}
			for _, table := range tables {
				cols, err := conn.TableColumns(ctx, table)
				if err != nil {
					return sysError("inspect: %w", err)
				}
				fmt.Fprintln(out, table)
				for _, col := range cols {
					var attrs []string
					if col.IsPrimary() {
						attrs = append(attrs, "primary key")
					}
					if !col.Nullable {
						attrs = append(attrs, "not null")
					}
					line := fmt.Sprintf("  %-20s %s", col.Field, col.Type)
					if len(attrs) > 0 {
						line += " (" + strings.Join(attrs, ", ") + ")"
					}
					fmt.Fprintln(out, line)
				}
			}
			return nil
		},
	}
}
