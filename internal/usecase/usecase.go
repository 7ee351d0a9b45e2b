package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/forPelevin/karaoke/internal/domain/karaoke"
	"github.com/forPelevin/karaoke/internal/domain/subtitles"
	"github.com/forPelevin/karaoke/internal/ports"
	"github.com/forPelevin/karaoke/internal/types"
)

const (
	originalAudio     = "original_audio.wav"
	compressedAudio   = "compressed_audio.wav"
	instrumentalAudio = "instrumental_audio.wav"
)

type Deps struct {
	Media       ports.MediaTool
	Separator   ports.VocalSeparator
	Transcriber ports.TranscriptionProvider
}

type Usecase struct{ d Deps }

func New(d Deps) Usecase { return Usecase{d: d} }

type Input struct {
	InputMP4 string
	Meta     types.Metadata
	// BaseName is the file stem shared by the video and subtitle outputs.
	BaseName string
	Style    subtitles.Style
	// WorkDir receives intermediate audio; OutDir receives deliverables.
	WorkDir string
	OutDir  string
	Logger  *slog.Logger
}

type Result struct {
	Manifest types.Manifest
	Video    string
	ASS      string
}

// Run extracts the audio once, then builds the dual-audio video and the
// karaoke subtitles concurrently. The first failing branch cancels the other.
func (u Usecase) Run(ctx context.Context, in Input) (Result, error) {
	log := in.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	wav := filepath.Join(in.WorkDir, originalAudio)
	log.Info("extracting audio", "input", in.InputMP4)
	if err := u.d.Media.ExtractAudio(ctx, in.InputMP4, wav); err != nil {
		return Result{}, err
	}

	videoPath := filepath.Join(in.OutDir, in.BaseName+".mp4")
	assPath := filepath.Join(in.OutDir, in.BaseName+".ass")
	instrumental := filepath.Join(in.WorkDir, instrumentalAudio)
	compressed := filepath.Join(in.WorkDir, compressedAudio)

	var (
		lines []karaoke.Line
		words int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("separating vocals")
		if err := u.d.Separator.Separate(gctx, wav, instrumental, in.WorkDir); err != nil {
			return fmt.Errorf("separate vocals: %w", err)
		}
		log.Info("combining audio tracks", "out", videoPath)
		return u.d.Media.CombineAudioTracks(gctx, in.InputMP4, wav, instrumental, videoPath, in.Meta)
	})
	g.Go(func() error {
		if err := u.d.Media.CompressAudio(gctx, wav, compressed); err != nil {
			return err
		}
		log.Info("transcribing", "provider", u.d.Transcriber.Name())
		tr, err := u.d.Transcriber.Transcribe(gctx, compressed, in.WorkDir)
		if err != nil {
			return fmt.Errorf("transcribe (%s): %w", u.d.Transcriber.Name(), err)
		}
		ls, err := karaoke.Normalize(tr)
		if err != nil {
			return err
		}
		body := subtitles.Document{Style: in.Style, Lines: ls}.Render()
		if err := writeFile(assPath, []byte(body)); err != nil {
			return err
		}
		lines = ls
		for _, ln := range ls {
			words += len(ln.Words)
		}
		log.Info("subtitles written", "lines", len(ls), "words", words, "out", assPath)
		return nil
	})
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	dur, err := u.d.Media.ProbeDuration(ctx, videoPath)
	if err != nil {
		return Result{}, err
	}

	m := types.Manifest{
		Input:        in.InputMP4,
		Title:        in.Meta.Title,
		Artists:      in.Meta.Artists,
		Provider:     u.d.Transcriber.Name(),
		DurationSec:  dur.Seconds(),
		Video:        filepath.Base(videoPath),
		Subtitles:    filepath.Base(assPath),
		Instrumental: relOrAbs(in.OutDir, instrumental),
		Lines:        len(lines),
		Words:        words,
	}
	return Result{Manifest: m, Video: videoPath, ASS: assPath}, nil
}

func relOrAbs(base, path string) string {
	if rel, err := filepath.Rel(base, path); err == nil {
		return filepath.ToSlash(rel)
	}
	return path
}

func writeFile(path string, b []byte) error {
	return os.WriteFile(path, b, 0o644)
}
