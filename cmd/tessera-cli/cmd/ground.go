package cmd

import (
	"github.com/spf13/cobra"

	"tessera/internal/application/commands"
)

var (
	groundForce bool
	groundCopy  bool
)

var groundCmd = &cobra.Command{
	Use:   "ground",
	Short: "Compute the vault-wide widgets",
	Long: `Compute every ground widget.

Cached results are shown immediately when the vault changed since they were
computed; a refresh then runs in the background and the output says so.

Examples:
  tessera-cli ground
  tessera-cli ground --force
  tessera-cli ground --json --copy`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := commands.NewGroundCommand(GetService().Engine, groundForce).Execute(cmd.Context())
		if err != nil {
			return err
		}

		if jsonOutput || groundCopy {
			return printJSON(cmd, resp, groundCopy)
		}
		renderer(cmd).Ground(resp)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(groundCmd)
	groundCmd.Flags().BoolVarP(&groundForce, "force", "f", false, "ignore cached results")
	groundCmd.Flags().BoolVar(&groundCopy, "copy", false, "copy the JSON result to the clipboard")
}
