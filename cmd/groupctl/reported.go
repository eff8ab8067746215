package main

import (
	"github.com/spf13/cobra"
)

var reportedCmd = &cobra.Command{
	Use:   "reported",
	Short: "Inspect groups that have already been alerted on",
}

var reportedListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the reported set",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStores(cmd.Context())
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()
		return runList(cmd.Context(), cmd.OutOrStdout(), st.Reported)
	},
}

func init() {
	reportedCmd.AddCommand(reportedListCmd)
	rootCmd.AddCommand(reportedCmd)
}
