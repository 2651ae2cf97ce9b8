package main

import (
	"github.com/spf13/cobra"
)

func newSummaryCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Print the CVs and chunk count held by the index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := flags.load()
			if err != nil {
				return err
			}
			svc, err := newService(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer svc.Close()

			printSummary(svc.Summary())
			return nil
		},
	}
}
