package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newInitCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize larder storage",
		Long:  "Create the configuration and data directories, write a default config.yaml\nand create the database with its schema history table.",
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
			if err := conn.Detach(); err != nil {
				return sysError("finalize storage: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "larder initialized in %s\n", e.config.DataDir)
			return nil
		},
	}
}
