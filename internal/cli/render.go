package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/forPelevin/karaoke/internal/domain/karaoke"
	"github.com/forPelevin/karaoke/internal/domain/subtitles"
	"github.com/forPelevin/karaoke/internal/types"
)

const (
	formatSegments = "segments"
	formatWords    = "words"
)

func newRenderCmd(opts *rootOptions) *cobra.Command {
	var (
		format string
		out    string
	)
	cmd := &cobra.Command{
		Use:   "render <transcript.json>",
		Short: "Render karaoke subtitles from a saved transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			tr, err := readTranscript(args[0], format)
			if err != nil {
				return err
			}
			body, err := subtitles.RenderKaraoke(tr, cfg.SubtitleStyle())
			if err != nil {
				return fmt.Errorf("render %s: %w", args[0], err)
			}
			if out == "" {
				_, err = fmt.Fprint(cmd.OutOrStdout(), body)
				return err
			}
			if err := os.WriteFile(out, []byte(body), 0o644); err != nil {
				return err
			}
			opts.logger(cmd).Info("subtitles written", "out", out)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", formatSegments, "Transcript shape: segments or words")
	cmd.Flags().StringVarP(&out, "output", "o", "", "Write subtitles here instead of stdout")
	return cmd
}

func readTranscript(path, format string) (types.Transcript, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch format {
	case formatSegments:
		tr, err := karaoke.DecodeSegmentLevel(f)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		return tr, nil
	case formatWords:
		tr, err := karaoke.DecodeWordLevel(f)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		return tr, nil
	default:
		return nil, fmt.Errorf("unknown format %q (want %s or %s)", format, formatSegments, formatWords)
	}
}
