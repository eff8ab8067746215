package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"groupwatch/internal/domain/entity"
	"groupwatch/internal/infra/groupapi"
	"groupwatch/internal/repository"
	"groupwatch/internal/resilience/retry"
	"groupwatch/internal/usecase/scan"
)

var checkJSON bool

var checkCmd = &cobra.Command{
	Use:   "check <input>",
	Short: "Look up one group without sending an alert",
	Long: `Fetch the current state of one group from the group API and report
whether it is unclaimed and whether it has already been alerted on.
Nothing is written and no notification is sent.

Example:
  $ groupctl check https://www.roblox.com/groups/12345/Cool-Group
  12345  Cool Group
  ✓ unclaimed (not yet reported)`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		client := groupapi.NewClient(groupapi.Config{
			BaseURL:        cfg.GroupAPIBaseURL,
			RequestTimeout: cfg.RequestTimeout,
			Retry:          retry.Policy{MaxRetries: cfg.MaxRetries, BaseDelay: cfg.RetryBaseDelay},
		}, nil)

		st, err := openStores(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()

		return runCheck(ctx, cmd.OutOrStdout(), client, st.Reported, args[0], checkJSON)
	},
}

func init() {
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "print the result as JSON")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(ctx context.Context, out io.Writer, fetcher scan.GroupFetcher, reported repository.ReportedRepository, input string, asJSON bool) error {
	id, err := entity.ExtractGroupID(input)
	if err != nil {
		return err
	}
	record, err := fetcher.FetchGroup(ctx, id)
	if err != nil {
		return fmt.Errorf("check %s: %w", id, err)
	}

	res := scan.CheckResult{
		GroupID:   id,
		Name:      record.Name,
		Unclaimed: record.Unclaimed(),
		Owner:     record.Owner.Name(),
	}
	if res.Unclaimed && reported != nil {
		ids, err := reported.Load(ctx)
		if err != nil {
			return fmt.Errorf("check %s: load reported: %w", id, err)
		}
		res.AlreadyReported = slices.Contains(ids, id)
	}

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	fmt.Fprintf(out, "%s  %s\n", res.GroupID, res.Name)
	switch {
	case !res.Unclaimed:
		fmt.Fprintf(out, "owned by %s\n", res.Owner)
	case res.AlreadyReported:
		fmt.Fprintf(out, "%s unclaimed (already reported)\n", yellow("●"))
	default:
		fmt.Fprintf(out, "%s unclaimed (not yet reported)\n", green("✓"))
	}
	return nil
}
