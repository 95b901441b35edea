package main

import (
	"os"

	"github.com/spf13/cobra"
)

func newBatchesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batches",
		Short: "List and roll back result uploads",
	}
	cmd.AddCommand(newBatchesListCmd(a))
	cmd.AddCommand(newBatchesDeleteCmd(a))
	return cmd
}

func newBatchesListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show the most recent result batches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			batches, err := svc.ListBatches(cmd.Context())
			if err != nil {
				return err
			}
			if a.jsonOut {
				return writeJSON(os.Stdout, batches)
			}
			printBatches(os.Stdout, batches)
			return nil
		},
	}
}

func newBatchesDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <batch-id>",
		Short: "Delete every result written by one import run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			res, err := svc.DeleteBatch(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if a.jsonOut {
				return writeJSON(os.Stdout, res)
			}
			printDeleteResult(os.Stdout, res)
			return nil
		},
	}
}
