package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"tessera/internal/adapters/terminal"
	"tessera/internal/bootstrap"
	"tessera/internal/config"
	"tessera/internal/logging"
)

var (
	configPath string
	vaultPath  string
	verbosity  int
	quiet      bool
	jsonOutput bool
	noColor    bool

	svc     *bootstrap.Service
	logFile io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "tessera-cli",
	Short: "Compute widgets over a markdown vault",
	Long: `tessera-cli computes aggregate and similarity widgets over the
frontmatter of the markdown documents in a vault.

Widgets are defined in <vault>/.tessera/widgets.yaml. Results are cached
per vault and invalidated when the documents they read change.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip initialization for help commands
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}

		overrides := map[string]any{}
		if vaultPath != "" {
			overrides["vault"] = vaultPath
		}
		cfg, err := config.LoadWith(configPath, overrides)
		if err != nil {
			return err
		}

		logger, err := newLogger(cfg, cmd.ErrOrStderr())
		if err != nil {
			return err
		}

		svc, err = bootstrap.Open(cmd.Context(), cfg, logger)
		return err
	},
}

// Execute runs the root command
func Execute() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run executes the CLI with args and releases the service afterwards
func run(args []string, stdout, stderr io.Writer) error {
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	defer func() {
		if svc != nil {
			svc.Close()
			svc = nil
		}
		if logFile != nil {
			logFile.Close()
			logFile = nil
		}
	}()
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default $XDG_CONFIG_HOME/tessera/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&vaultPath, "vault", "", "path to the vault (default from config or $TESSERA_VAULT)")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "increase log verbosity (-v info, -vv debug)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress all logs")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print results as JSON")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable styled output")
}

func newLogger(cfg *config.Config, stderr io.Writer) (*slog.Logger, error) {
	level := logging.LevelFromString(cfg.Log.Level)
	if verbosity > 0 || quiet {
		level = logging.LevelFromVerbosity(verbosity, quiet)
	}

	if cfg.Log.File == "" {
		return logging.NewLogger(stderr, level), nil
	}
	logger, f, err := logging.NewFileLogger(cfg.Log.File, level)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	logFile = f
	return logger, nil
}

// GetService returns the initialized service
func GetService() *bootstrap.Service {
	return svc
}

func renderer(cmd *cobra.Command) *terminal.Renderer {
	theme := terminal.DefaultTheme()
	if noColor {
		theme = terminal.PlainTheme()
	}
	return terminal.NewRenderer(cmd.OutOrStdout(), theme)
}
