package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/larder/pkg/sqlite"
)

type changeOutput struct {
	Table      string   `json:"table"`
	Kind       string   `json:"kind"`
	Column     string   `json:"column,omitempty"`
	Statements []string `json:"statements"`
}

func newMigrateCmd(flags *rootFlags) *cobra.Command {
	var (
		schemaFile string
		dryRun     bool
	)
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Bring the database tables in line with a schema file",
		Long: "Plan the DDL needed for the model types in a schema file, print it and,\n" +
			"unless --dry-run is given, apply it and record the schema snapshot.",
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

			ctx := cmd.Context()
			var plan *sqlite.Plan
			if dryRun {
				plan, err = conn.Plan(ctx, engine)
			} else {
				plan, err = conn.Migrate(ctx, engine)
			}
			if err != nil {
				return sysError("migrate: %w", err)
			}
			return printPlan(cmd, flags, plan, dryRun)
		},
	}
	cmd.Flags().StringVar(&schemaFile, "schema", "", "schema file (.yaml, .yml, .json or .cue)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the planned statements without applying them")
	return cmd
}

func printPlan(cmd *cobra.Command, flags *rootFlags, plan *sqlite.Plan, dryRun bool) error {
	out := cmd.OutOrStdout()
	if flags.jsonMode {
		changes := make([]changeOutput, 0, len(plan.Changes))
		for _, ch := range plan.Changes {
			co := changeOutput{Table: ch.Table, Kind: string(ch.Kind), Column: ch.Column}
			for _, st := range ch.Statements {
				co.Statements = append(co.Statements, st.Query)
			}
			changes = append(changes, co)
		}
		data, err := json.MarshalIndent(map[string]any{"dry_run": dryRun, "changes": changes}, "", "  ")
		if err != nil {
			return sysError("encode plan: %w", err)
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	if plan.Empty() {
		fmt.Fprintln(out, "schema is up to date")
		return nil
	}
	for _, ch := range plan.Changes {
		header := fmt.Sprintf("-- %s %s", ch.Kind, ch.Table)
		if ch.Column != "" {
			header += "." + ch.Column
		}
		fmt.Fprintln(out, header)
		for _, st := range ch.Statements {
			fmt.Fprintf(out, "%s;\n", st.Query)
		}
	}
	if dryRun {
		fmt.Fprintf(out, "%d change(s) planned, nothing applied\n", len(plan.Changes))
		return nil
	}
	fmt.Fprintf(out, "%d change(s) applied\n", len(plan.Changes))
	return nil
}
