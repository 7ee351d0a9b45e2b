package ffmpeg

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/forPelevin/karaoke/internal/types"
)

type Adapter struct {
	ffmpeg  string
	ffprobe string
}

func New(ffmpegPath, ffprobePath string) *Adapter {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Adapter{ffmpeg: ffmpegPath, ffprobe: ffprobePath}
}

// ExtractAudio copies the first audio stream of inMP4 to a WAV file at the
// source sample rate and channel layout.
func (a *Adapter) ExtractAudio(ctx context.Context, inMP4, outWav string) error {
	return a.run(ctx, "ffmpeg extract audio", extractArgs(inMP4, outWav))
}

// CompressAudio converts to the 16 kHz mono pcm_s16le layout speech
// recognizers expect.
func (a *Adapter) CompressAudio(ctx context.Context, inWav, outWav string) error {
	return a.run(ctx, "ffmpeg compress audio", compressArgs(inWav, outWav))
}

// CombineAudioTracks muxes the source video with two audio tracks: the
// original mix first, the instrumental second. The video stream is copied.
func (a *Adapter) CombineAudioTracks(ctx context.Context, inMP4, vocalWav, instrumentalWav, outMP4 string, meta types.Metadata) error {
	return a.run(ctx, "ffmpeg combine audio tracks", combineArgs(inMP4, vocalWav, instrumentalWav, outMP4, meta))
}

func (a *Adapter) ProbeDuration(ctx context.Context, path string) (time.Duration, error) {
	cmd := exec.CommandContext(ctx, a.ffprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration: %w\n%s", err, string(b))
	}
	s := strings.TrimSpace(string(b))
	sec, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, err)
	}
	return time.Duration(sec * float64(time.Second)), nil
}

func (a *Adapter) run(ctx context.Context, what string, args []string) error {
	cmd := exec.CommandContext(ctx, a.ffmpeg, args...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w\n%s", what, err, strings.TrimSpace(string(b)))
	}
	return nil
}

func extractArgs(inMP4, outWav string) []string {
	return []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", inMP4,
		"-vn",
		"-sn",
		"-dn",
		outWav,
	}
}

func compressArgs(inWav, outWav string) []string {
	return []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", inWav,
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		outWav,
	}
}

func combineArgs(inMP4, vocalWav, instrumentalWav, outMP4 string, meta types.Metadata) []string {
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", inMP4,
		"-i", vocalWav,
		"-i", instrumentalWav,
		"-map", "0:v",
		"-map", "1:a",
		"-map", "2:a",
		"-c:v", "copy",
		"-c:a", "aac",
		"-shortest",
		"-metadata:s:a:0", "title=Vocal",
		"-metadata:s:a:1", "title=Instrumental",
		"-disposition:a:0", "default",
		"-disposition:a:1", "0",
	}
	if meta.Title != "" {
		args = append(args, "-metadata", "title="+meta.Title)
	}
	if meta.Artists != "" {
		args = append(args, "-metadata", "artist="+meta.Artists)
	}
	return append(args, outMP4)
}
