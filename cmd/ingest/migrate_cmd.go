package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update tables and indexes in the configured store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.service(cmd.Context()); err != nil {
				return err
			}
			if err := a.store.Migrate(cmd.Context()); err != nil {
				return withCode(exitDB, err)
			}
			logrus.WithField("backend", a.cfg.Store.Backend).Info("store migrated")
			return nil
		},
	}
}
