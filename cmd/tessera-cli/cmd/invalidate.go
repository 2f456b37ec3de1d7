package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"tessera/internal/application/commands"
)

var invalidateAll bool

var invalidateCmd = &cobra.Command{
	Use:   "invalidate [widget-id]",
	Short: "Drop cached results",
	Long: `Drop the cached results of one widget, or of every widget with --all.

Examples:
  tessera-cli invalidate books
  tessera-cli invalidate --all`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		widgetID := ""
		if len(args) == 1 {
			widgetID = args[0]
		}

		res, err := commands.NewInvalidateCommand(GetService().Engine, widgetID, invalidateAll).Execute(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), res.Message)
		return nil
	},
}

var watchRecompute bool

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Invalidate cached results as vault documents change",
	Long: `Watch the vault and invalidate the widgets whose documents changed.
With --recompute the affected ground widgets are recomputed in the background.
Stops on Ctrl-C.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc := GetService()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		fmt.Fprintf(cmd.ErrOrStderr(), "Watching %s (Ctrl-C to stop)\n", svc.Config.Vault)
		return svc.Watcher().Watch(ctx, func(paths []string) {
			report, err := commands.NewFilesChangedCommand(svc.Engine, paths, watchRecompute).Execute(ctx)
			if err != nil {
				svc.Logger.Error("failed to handle changes", "error", err)
				return
			}

			if jsonOutput {
				_ = printJSON(cmd, report, false)
				return
			}
			renderer(cmd).Changes(report)
		})
	},
}

func init() {
	rootCmd.AddCommand(invalidateCmd)
	rootCmd.AddCommand(watchCmd)
	invalidateCmd.Flags().BoolVarP(&invalidateAll, "all", "a", false, "invalidate every widget")
	watchCmd.Flags().BoolVar(&watchRecompute, "recompute", false, "recompute affected ground widgets in the background")
}
