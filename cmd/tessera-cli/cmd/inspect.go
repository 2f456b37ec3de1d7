package cmd

import (
	"github.com/spf13/cobra"

	"tessera/internal/application/commands"
)

var planCmd = &cobra.Command{
	Use:   "plan <widget-id>",
	Short: "Show the evaluation order of an aggregate widget's fields",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		plan, err := commands.NewPlanCommand(GetService().Engine, args[0]).Execute(cmd.Context())
		if err != nil {
			return err
		}

		if jsonOutput {
			return printJSON(cmd, plan, false)
		}
		renderer(cmd).Plan(args[0], plan)
		return nil
	},
}

var widgetsCmd = &cobra.Command{
	Use:   "widgets",
	Short: "List the configured widgets and configuration errors",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		list, err := commands.NewListWidgetsCommand(GetService().Engine).Execute(cmd.Context())
		if err != nil {
			return err
		}

		if jsonOutput {
			errs := make([]string, len(list.Errors))
			for i, e := range list.Errors {
				errs[i] = e.Error()
			}
			ids := make([]string, len(list.Widgets))
			for i, w := range list.Widgets {
				ids[i] = w.ID
			}
			return printJSON(cmd, map[string]any{"widgets": ids, "errors": errs}, false)
		}
		renderer(cmd).Widgets(list.Widgets, list.Errors)
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		stats, err := commands.NewStatsCommand(GetService().Engine).Execute(cmd.Context())
		if err != nil {
			return err
		}

		if jsonOutput {
			return printJSON(cmd, stats, false)
		}
		renderer(cmd).Stats(stats)
		return nil
	},
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Compute every ground widget and list the warnings raised",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc := GetService()
		if _, err := commands.NewGroundCommand(svc.Engine, true).Execute(cmd.Context()); err != nil {
			return err
		}

		issues := svc.Health.Issues()
		if jsonOutput {
			return printJSON(cmd, issues, false)
		}
		renderer(cmd).Issues(issues)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(widgetsCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(healthCmd)
}
