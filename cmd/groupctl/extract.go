package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"groupwatch/internal/domain/entity"
)

var extractCmd = &cobra.Command{
	Use:   "extract <input>...",
	Short: "Print the group id found in each input",
	Long: `Extract a canonical group id from each argument. An argument may be a
bare numeric id, a group page URL, or free text containing one.

Example:
  $ groupctl extract https://www.roblox.com/groups/987654/Some-Group 12345
  987654
  12345`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runExtract(cmd.OutOrStdout(), cmd.ErrOrStderr(), args)
	},
}

func init() {
	rootCmd.AddCommand(extractCmd)
}

// runExtract prints one id per resolvable input and fails if any input
// could not be resolved.
func runExtract(out, errOut io.Writer, inputs []string) error {
	red := color.New(color.FgRed).SprintFunc()
	failed := 0
	for _, in := range inputs {
		id, err := entity.ExtractGroupID(in)
		if err != nil {
			failed++
			fmt.Fprintf(errOut, "%s %q: %v\n", red("✗"), in, err)
			continue
		}
		fmt.Fprintln(out, id)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d inputs had no group id", failed, len(inputs))
	}
	return nil
}
