package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/forPelevin/karaoke/internal/domain/subtitles"
	"github.com/forPelevin/karaoke/internal/naming"
	"github.com/forPelevin/karaoke/internal/ports"
	"github.com/forPelevin/karaoke/internal/ports/adapters/ffmpeg"
	"github.com/forPelevin/karaoke/internal/ports/adapters/googlespeech"
	"github.com/forPelevin/karaoke/internal/ports/adapters/spleeter"
	"github.com/forPelevin/karaoke/internal/ports/adapters/whispercpp"
	"github.com/forPelevin/karaoke/internal/ports/adapters/whisperpy"
	"github.com/forPelevin/karaoke/internal/store"
	"github.com/forPelevin/karaoke/internal/types"
	"github.com/forPelevin/karaoke/internal/usecase"
)

const (
	ProviderWhisper    = "whisper"
	ProviderWhisperCpp = "whispercpp"
	ProviderGoogle     = "google"

	NamingSequential  = "sequential"
	NamingTimestamped = "timestamped"
)

type Config struct {
	InputMP4 string
	Title    string
	Artists  string

	OutRoot  string
	Naming   string
	Provider string
	Style    subtitles.Style

	// JobID tags logs and the history row. Empty means a fresh UUID.
	JobID  string
	Logger *slog.Logger
	// History is optional; when set every run, failed or not, is recorded.
	History *store.Store

	FFmpegPath  string
	FFprobePath string
	PythonPath  string

	WhisperBin      string
	WhisperScript   string
	WhisperModel    string
	WhisperCppBin   string
	WhisperCppModel string
	Language        string

	GoogleCredentials string
	GoogleLanguage    string

	// Overrides for the adapters built from the fields above.
	Media       ports.MediaTool
	Separator   ports.VocalSeparator
	Transcriber ports.TranscriptionProvider
	Namer       ports.OutputNamer
}

func (c Config) Validate() error {
	if c.InputMP4 == "" {
		return errors.New("input is empty")
	}
	if _, err := os.Stat(c.InputMP4); err != nil {
		return fmt.Errorf("stat input: %w", err)
	}
	if strings.TrimSpace(c.Title) == "" {
		return errors.New("title is required")
	}
	if strings.TrimSpace(c.Artists) == "" {
		return errors.New("artists is required")
	}
	if c.Transcriber == nil {
		switch c.Provider {
		case ProviderWhisper:
		case ProviderWhisperCpp:
			if c.WhisperCppModel == "" {
				return errors.New("whisper.cpp model path is required")
			}
		case ProviderGoogle:
		default:
			return fmt.Errorf("unknown provider %q", c.Provider)
		}
	}
	if c.Namer == nil {
		switch c.Naming {
		case "", NamingSequential, NamingTimestamped:
		default:
			return fmt.Errorf("unknown naming strategy %q", c.Naming)
		}
	}
	return nil
}

type Result struct {
	JobID    string
	OutDir   string
	Video    string
	ASS      string
	Manifest types.Manifest
}

func Run(ctx context.Context, cfg Config) (Result, error) {
	jobID := cfg.JobID
	if jobID == "" {
		jobID = uuid.NewString()
	}
	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	log = log.With("job", jobID)

	deps := usecase.Deps{
		Media:       cfg.Media,
		Separator:   cfg.Separator,
		Transcriber: cfg.Transcriber,
	}
	if deps.Media == nil {
		deps.Media = ffmpeg.New(cfg.FFmpegPath, cfg.FFprobePath)
	}
	if deps.Separator == nil {
		deps.Separator = spleeter.New(cfg.PythonPath)
	}
	if deps.Transcriber == nil {
		deps.Transcriber = newTranscriber(cfg)
	}
	namer := cfg.Namer
	if namer == nil {
		namer = newNamer(cfg.Naming)
	}

	outRoot := cfg.OutRoot
	if outRoot == "" {
		outRoot = "output"
	}
	base := naming.BaseName(cfg.Title, cfg.Artists)
	outDir, err := namer.Next(outRoot, base)
	if err != nil {
		return Result{}, fmt.Errorf("allocate output dir: %w", err)
	}
	log.Info("output run dir", "dir", outDir, "provider", deps.Transcriber.Name())

	res, err := usecase.New(deps).Run(ctx, usecase.Input{
		InputMP4: cfg.InputMP4,
		Meta:     types.Metadata{Title: cfg.Title, Artists: cfg.Artists},
		BaseName: base,
		Style:    cfg.Style,
		WorkDir:  outDir,
		OutDir:   outDir,
		Logger:   log,
	})
	out := Result{JobID: jobID, OutDir: outDir}
	if err == nil {
		out.Video, out.ASS, out.Manifest = res.Video, res.ASS, res.Manifest
		err = writeManifest(filepath.Join(outDir, "manifest.json"), res.Manifest)
	}
	record(ctx, log, cfg, deps.Transcriber.Name(), out, err)
	if err != nil {
		return out, err
	}
	log.Info("karaoke ready", "video", out.Video, "subtitles", out.ASS, "lines", out.Manifest.Lines)
	return out, nil
}

func writeManifest(path string, m types.Manifest) error {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	return os.WriteFile(path, b, 0o644)
}

// record failures are logged, never returned: history is bookkeeping.
func record(ctx context.Context, log *slog.Logger, cfg Config, provider string, res Result, runErr error) {
	if cfg.History == nil {
		return
	}
	r := store.Run{
		ID:        res.JobID,
		Input:     cfg.InputMP4,
		Title:     cfg.Title,
		Artists:   cfg.Artists,
		Provider:  provider,
		OutputDir: res.OutDir,
		Video:     res.Video,
		Subtitles: res.ASS,
		Lines:     res.Manifest.Lines,
		Status:    store.StatusSucceeded,
	}
	if runErr != nil {
		r.Status = store.StatusFailed
		r.Error = runErr.Error()
	}
	if err := cfg.History.Record(context.WithoutCancel(ctx), r); err != nil {
		log.Warn("record run history", "error", err)
	}
}

func newTranscriber(cfg Config) ports.TranscriptionProvider {
	switch cfg.Provider {
	case ProviderWhisperCpp:
		return whispercpp.New(cfg.WhisperCppBin, cfg.WhisperCppModel, cfg.Language)
	case ProviderGoogle:
		return googlespeech.New(cfg.GoogleCredentials, cfg.GoogleLanguage)
	default:
		w := whisperpy.New(cfg.WhisperBin, cfg.WhisperModel, cfg.Language)
		w.Script = cfg.WhisperScript
		if cfg.PythonPath != "" {
			w.Python = cfg.PythonPath
		}
		return w
	}
}

func newNamer(strategy string) ports.OutputNamer {
	if strategy == NamingTimestamped {
		return naming.Timestamped{}
	}
	return naming.Sequential{}
}

// ensure adapters implement ports
var _ ports.MediaTool = (*ffmpeg.Adapter)(nil)
var _ ports.VocalSeparator = (*spleeter.Adapter)(nil)
var _ ports.TranscriptionProvider = (*whisperpy.Adapter)(nil)
var _ ports.TranscriptionProvider = (*whispercpp.Adapter)(nil)
var _ ports.TranscriptionProvider = (*googlespeech.Adapter)(nil)
var _ ports.OutputNamer = naming.Sequential{}
var _ ports.OutputNamer = naming.Timestamped{}
