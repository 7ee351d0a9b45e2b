package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/forPelevin/karaoke/internal/config"
)

func Main() {
	_ = godotenv.Load() // best-effort: load .env if present

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type rootOptions struct {
	configPath string
	verbose    bool
	quiet      bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:          "karaoke",
		Short:        "Turn a music video into a dual-audio karaoke package",
		SilenceUsage: true,
	}
	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)
	root.SilenceErrors = true

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to a TOML config file (default $"+config.EnvConfigPath+")")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Debug logging")
	root.PersistentFlags().BoolVarP(&opts.quiet, "quiet", "q", false, "Only log warnings and errors")
	root.MarkFlagsMutuallyExclusive("verbose", "quiet")

	root.AddCommand(
		newMakeCmd(opts),
		newRenderCmd(opts),
		newServeCmd(opts),
		newHistoryCmd(opts),
	)
	return root
}

func (o *rootOptions) load() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func (o *rootOptions) logger(cmd *cobra.Command) *slog.Logger {
	return newLogger(cmd.ErrOrStderr(), o.verbose, o.quiet)
}
