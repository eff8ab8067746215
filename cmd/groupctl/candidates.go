package main

import (
	"context"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"groupwatch/internal/domain/entity"
	"groupwatch/internal/repository"
)

var candidatesCmd = &cobra.Command{
	Use:   "candidates",
	Short: "Manage the candidate group list",
}

var candidatesAddCmd = &cobra.Command{
	Use:   "add <input>...",
	Short: "Add groups to the candidate list",
	Long: `Extract a group id from each argument and append it to the candidate
list. Ids already present are left alone. Inputs without a group id are
reported and skipped.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStores(cmd.Context())
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()
		return runCandidatesAdd(cmd.Context(), cmd.OutOrStdout(), st.Candidates, args)
	},
}

var candidatesListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the candidate list",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStores(cmd.Context())
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()
		return runList(cmd.Context(), cmd.OutOrStdout(), st.Candidates)
	},
}

func init() {
	candidatesCmd.AddCommand(candidatesAddCmd, candidatesListCmd)
	rootCmd.AddCommand(candidatesCmd)
}

func runCandidatesAdd(ctx context.Context, out io.Writer, repo repository.CandidateRepository, inputs []string) error {
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	failed := 0
	for _, in := range inputs {
		id, err := entity.ExtractGroupID(in)
		if err != nil {
			failed++
			fmt.Fprintf(out, "%s %q: %v\n", red("✗"), in, err)
			continue
		}
		added, err := repo.Append(ctx, id)
		if err != nil {
			return fmt.Errorf("add %s: %w", id, err)
		}
		if added {
			fmt.Fprintf(out, "%s added %s\n", green("✓"), id)
		} else {
			fmt.Fprintf(out, "%s %s already listed\n", yellow("●"), id)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d inputs had no group id", failed, len(inputs))
	}
	return nil
}

// idLoader is satisfied by both repositories.
type idLoader interface {
	Load(ctx context.Context) ([]entity.GroupID, error)
}

// runList prints ids in numeric order, one per line.
func runList(ctx context.Context, out io.Writer, repo idLoader) error {
	ids, err := repo.Load(ctx)
	if err != nil {
		return err
	}
	entity.SortGroupIDs(ids)
	for _, id := range ids {
		fmt.Fprintln(out, id)
	}
	return nil
}
