package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newMigrateCmd(envFile *string) *cobra.Command {
	var statusOnly bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime(*envFile, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if err := rt.openStorage(ctx, !statusOnly); err != nil {
				return err
			}
			defer rt.close()

			status, err := rt.storage.MigrationStatus(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "current version: %s\n", status.CurrentVersion)
			for _, applied := range status.Applied {
				fmt.Fprintf(out, "applied  %s at %s\n", applied.Version, applied.AppliedAt.Format("2006-01-02 15:04:05"))
			}
			for _, pending := range status.Pending {
				fmt.Fprintf(out, "pending  %s %s\n", pending.Version, pending.Description)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&statusOnly, "status", false, "only report migration status")
	return cmd
}
