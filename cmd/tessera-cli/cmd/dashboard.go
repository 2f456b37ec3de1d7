package cmd

import (
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"tessera/internal/adapters/terminal"
	"tessera/internal/adapters/tui"
)

var dashboardWatch bool

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Show a live view of the ground widgets",
	Long: `Show the ground widgets in a full-screen view.

With --watch the view invalidates and refreshes as vault documents change.
Keys: r refresh, f recompute, q quit.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc := GetService()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		var changes chan []string
		if dashboardWatch {
			changes = make(chan []string, 8)
			go func() {
				defer close(changes)
				err := svc.Watcher().Watch(ctx, func(paths []string) {
					select {
					case changes <- paths:
					case <-ctx.Done():
					}
				})
				if err != nil && ctx.Err() == nil {
					svc.Logger.Error("watcher stopped", "error", err)
				}
			}()
		}

		theme := terminal.DefaultTheme()
		if noColor {
			theme = terminal.PlainTheme()
		}

		p := tea.NewProgram(
			tui.NewDashboard(ctx, svc.Engine, changes, theme),
			tea.WithAltScreen(),
			tea.WithContext(ctx),
		)
		_, err := p.Run()
		if ctx.Err() != nil {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
	dashboardCmd.Flags().BoolVarP(&dashboardWatch, "watch", "w", false, "refresh as vault documents change")
}
