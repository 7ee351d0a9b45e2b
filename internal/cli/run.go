package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/forPelevin/karaoke/internal/pipeline"
	"github.com/forPelevin/karaoke/internal/store"
)

func newMakeCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "make <input.mp4>",
		Short: "Build a dual-audio video and karaoke subtitles from a music video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, args[0])
		},
	}
	cmd.Flags().String("title", "", "Song title")
	cmd.Flags().String("artists", "", "Song artists")
	cmd.Flags().String("provider", "", "Transcription provider: whisper, whispercpp or google")
	cmd.Flags().String("out", "", "Output root directory")
	cmd.Flags().String("naming", "", "Run directory naming: sequential or timestamped")
	cmd.Flags().String("language", "", "Spoken language hint for whisper")

	// Hidden tuning flag (internal)
	cmd.Flags().Duration("timeout", 3*time.Hour, "Overall run timeout")
	_ = cmd.Flags().MarkHidden("timeout")
	return cmd
}

func run(cmd *cobra.Command, opts *rootOptions, input string) error {
	cfg, err := opts.load()
	if err != nil {
		return err
	}
	title, _ := cmd.Flags().GetString("title")
	artists, _ := cmd.Flags().GetString("artists")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	if v, _ := cmd.Flags().GetString("provider"); v != "" {
		cfg.Transcription.Provider = v
	}
	if v, _ := cmd.Flags().GetString("out"); v != "" {
		cfg.Paths.OutputRoot = v
	}
	if v, _ := cmd.Flags().GetString("naming"); v != "" {
		cfg.Output.Naming = v
	}
	if v, _ := cmd.Flags().GetString("language"); v != "" {
		cfg.Transcription.Language = v
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	pc := cfg.Pipeline(input, title, artists)
	pc.Logger = opts.logger(cmd)
	if err := pc.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	history, err := store.Open(cfg.Paths.DBPath)
	if err != nil {
		pc.Logger.Warn("run history disabled", "error", err)
	} else {
		defer history.Close()
		pc.History = history
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res, err := pipeline.Run(ctx, pc)
	if err != nil {
		return err
	}

	m := res.Manifest
	fmt.Fprintln(cmd.OutOrStdout(), renderTable(
		[]string{"Field", "Value"},
		[][]string{
			{"Job", res.JobID},
			{"Folder", res.OutDir},
			{"Video", res.Video},
			{"Subtitles", res.ASS},
			{"Provider", m.Provider},
			{"Duration", time.Duration(m.DurationSec * float64(time.Second)).Round(time.Second).String()},
			{"Lines", strconv.Itoa(m.Lines)},
			{"Words", strconv.Itoa(m.Words)},
		},
	))
	return nil
}
