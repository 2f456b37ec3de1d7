package cmd

import (
	"github.com/spf13/cobra"

	"tessera/internal/adapters/editor"
	"tessera/internal/adapters/obsidian"
	"tessera/internal/application/commands"
	"tessera/internal/ports"
)

var recallForce bool

var recallCmd = &cobra.Command{
	Use:   "recall <path>",
	Short: "Compute the widgets shown alongside a document",
	Long: `Compute the recall widgets for one document.

Examples:
  tessera-cli recall books/dune.md
  tessera-cli recall books/dune.md --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		results, err := commands.NewRecallCommand(GetService().Engine, args[0], recallForce).Execute(cmd.Context())
		if err != nil {
			return err
		}

		if jsonOutput {
			return printJSON(cmd, results, false)
		}
		renderer(cmd).Results(results)
		return nil
	},
}

var (
	similarOpen bool
	similarEdit bool
)

var similarCmd = &cobra.Command{
	Use:   "similar <widget-id> <path>",
	Short: "Rank the documents most similar to a document",
	Long: `Rank the documents most similar to a source document with a
similarity widget.

Examples:
  tessera-cli similar related books/dune.md
  tessera-cli similar related books/dune.md --open   # open the best match in Obsidian
  tessera-cli similar related books/dune.md --edit   # open the best match in $EDITOR`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc := GetService()

		var opener ports.DocumentOpener
		switch {
		case similarOpen:
			opener = obsidian.NewOpener(svc.Config.Vault)
		case similarEdit:
			opener = editor.NewOpener(svc.Config.Vault)
		}

		simCmd := commands.NewSimilarCommand(svc.Engine, opener, args[0], args[1], opener != nil)
		res, err := simCmd.Execute(cmd.Context())
		if err != nil {
			return err
		}

		if jsonOutput {
			return printJSON(cmd, res.Result, false)
		}
		renderer(cmd).Result(res.Result)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(recallCmd)
	rootCmd.AddCommand(similarCmd)
	recallCmd.Flags().BoolVarP(&recallForce, "force", "f", false, "ignore cached results")
	similarCmd.Flags().BoolVar(&similarOpen, "open", false, "open the best match in Obsidian")
	similarCmd.Flags().BoolVar(&similarEdit, "edit", false, "open the best match in $EDITOR")
	similarCmd.MarkFlagsMutuallyExclusive("open", "edit")
}
