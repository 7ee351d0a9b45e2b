package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/forPelevin/karaoke/internal/domain/subtitles"
	"github.com/forPelevin/karaoke/internal/pipeline"
)

// EnvConfigPath names the variable consulted when no --config flag is given.
const EnvConfigPath = "KARAOKE_CONFIG"

// Paths holds output, upload and database locations.
type Paths struct {
	OutputRoot string `toml:"output_root"`
	DBPath     string `toml:"db_path"`
	UploadDir  string `toml:"upload_dir"`
}

// Tools holds the external executables the pipeline shells out to.
type Tools struct {
	FFmpeg          string `toml:"ffmpeg"`
	FFprobe         string `toml:"ffprobe"`
	Python          string `toml:"python"`
	Whisper         string `toml:"whisper"`
	WhisperScript   string `toml:"whisper_script"`
	WhisperCpp      string `toml:"whisper_cpp"`
	WhisperCppModel string `toml:"whisper_cpp_model"`
}

// Transcription selects and tunes the speech recognition backend.
type Transcription struct {
	Provider          string `toml:"provider"`
	Model             string `toml:"model"`
	Language          string `toml:"language"`
	GoogleLanguage    string `toml:"google_language"`
	GoogleCredentials string `toml:"google_credentials"`
}

// Output controls run directory naming.
type Output struct {
	Naming string `toml:"naming"`
}

// Server holds the HTTP upload endpoint settings.
type Server struct {
	Addr         string `toml:"addr"`
	MaxUploadMiB int    `toml:"max_upload_mib"`
}

// Style overrides the karaoke subtitle style. Zero values keep the default.
type Style struct {
	Font            string `toml:"font"`
	Size            int    `toml:"size"`
	PrimaryColour   string `toml:"primary_colour"`
	SecondaryColour string `toml:"secondary_colour"`
	OutlineColour   string `toml:"outline_colour"`
	BackColour      string `toml:"back_colour"`
	Bold            bool   `toml:"bold"`
	Outline         int    `toml:"outline"`
	Alignment       int    `toml:"alignment"`
	MarginV         int    `toml:"margin_v"`
}

type Config struct {
	Paths         Paths         `toml:"paths"`
	Tools         Tools         `toml:"tools"`
	Transcription Transcription `toml:"transcription"`
	Output        Output        `toml:"output"`
	Server        Server        `toml:"server"`
	Style         Style         `toml:"style"`
}

func Default() Config {
	return Config{
		Paths: Paths{
			OutputRoot: "output",
			DBPath:     ".cache/karaoke.db",
			UploadDir:  "uploads",
		},
		Tools: Tools{
			FFmpeg:          "ffmpeg",
			FFprobe:         "ffprobe",
			Python:          "python3",
			Whisper:         "whisper",
			WhisperCpp:      ".cache/bin/whisper.cpp",
			WhisperCppModel: ".cache/models/ggml-base.bin",
		},
		Transcription: Transcription{
			Provider:       pipeline.ProviderWhisper,
			Model:          "large",
			GoogleLanguage: "th-TH",
		},
		Output: Output{Naming: pipeline.NamingSequential},
		Server: Server{
			Addr:         ":3000",
			MaxUploadMiB: 1024,
		},
	}
}

// Load applies defaults, then the TOML file at path (if any), then environment
// overrides. An empty path falls back to $KARAOKE_CONFIG; a missing file is
// not an error. Keys the file does not know are rejected.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path != "" {
		file, err := os.Open(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("open config: %w", err)
		default:
			defer file.Close()
			decoder := toml.NewDecoder(file).DisallowUnknownFields()
			if err := decoder.Decode(&cfg); err != nil {
				var strict *toml.StrictMissingError
				if errors.As(err, &strict) {
					return nil, fmt.Errorf("parse config %s: %s", path, strict.String())
				}
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"KARAOKE_OUTPUT_ROOT":            &c.Paths.OutputRoot,
		"KARAOKE_DB":                     &c.Paths.DBPath,
		"KARAOKE_UPLOAD_DIR":             &c.Paths.UploadDir,
		"KARAOKE_PROVIDER":               &c.Transcription.Provider,
		"KARAOKE_LANGUAGE":               &c.Transcription.Language,
		"KARAOKE_NAMING":                 &c.Output.Naming,
		"KARAOKE_ADDR":                   &c.Server.Addr,
		"FFMPEG_PATH":                    &c.Tools.FFmpeg,
		"FFPROBE_PATH":                   &c.Tools.FFprobe,
		"PYTHON_PATH":                    &c.Tools.Python,
		"WHISPER_MODEL":                  &c.Transcription.Model,
		"WHISPER_SCRIPT":                 &c.Tools.WhisperScript,
		"WHISPER_CPP_BIN":                &c.Tools.WhisperCpp,
		"WHISPER_CPP_MODEL":              &c.Tools.WhisperCppModel,
		"GOOGLE_SPEECH_LANGUAGE":         &c.Transcription.GoogleLanguage,
		"GOOGLE_APPLICATION_CREDENTIALS": &c.Transcription.GoogleCredentials,
	}
	for key, dst := range strs {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	if v := strings.TrimSpace(os.Getenv("KARAOKE_MAX_UPLOAD_MIB")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("KARAOKE_MAX_UPLOAD_MIB: %w", err)
		}
		c.Server.MaxUploadMiB = n
	}
	return nil
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	switch c.Transcription.Provider {
	case pipeline.ProviderWhisper, pipeline.ProviderWhisperCpp, pipeline.ProviderGoogle:
	default:
		return fmt.Errorf("transcription.provider must be one of %s, %s, %s (got %q)",
			pipeline.ProviderWhisper, pipeline.ProviderWhisperCpp, pipeline.ProviderGoogle, c.Transcription.Provider)
	}
	switch c.Output.Naming {
	case pipeline.NamingSequential, pipeline.NamingTimestamped:
	default:
		return fmt.Errorf("output.naming must be %s or %s (got %q)",
			pipeline.NamingSequential, pipeline.NamingTimestamped, c.Output.Naming)
	}
	if strings.TrimSpace(c.Paths.OutputRoot) == "" {
		return errors.New("paths.output_root must be set")
	}
	if strings.TrimSpace(c.Paths.DBPath) == "" {
		return errors.New("paths.db_path must be set")
	}
	if c.Server.MaxUploadMiB <= 0 {
		return errors.New("server.max_upload_mib must be > 0")
	}
	if c.Style.Size < 0 || c.Style.Outline < 0 || c.Style.MarginV < 0 {
		return errors.New("style sizes must be >= 0")
	}
	if c.Style.Alignment < 0 || c.Style.Alignment > 9 {
		return errors.New("style.alignment must be between 1 and 9")
	}
	return nil
}

// SubtitleStyle layers the configured overrides on top of the default style.
func (c *Config) SubtitleStyle() subtitles.Style {
	st := subtitles.DefaultStyle()
	o := c.Style
	if o.Font != "" {
		st.Font = o.Font
	}
	if o.Size > 0 {
		st.Size = o.Size
	}
	if o.PrimaryColour != "" {
		st.PrimaryColour = o.PrimaryColour
	}
	if o.SecondaryColour != "" {
		st.SecondaryColour = o.SecondaryColour
	}
	if o.OutlineColour != "" {
		st.OutlineColour = o.OutlineColour
	}
	if o.BackColour != "" {
		st.BackColour = o.BackColour
	}
	if o.Bold {
		st.Bold = true
	}
	if o.Outline > 0 {
		st.Outline = o.Outline
	}
	if o.Alignment > 0 {
		st.Alignment = o.Alignment
	}
	if o.MarginV > 0 {
		st.MarginV = o.MarginV
	}
	return st
}

// Pipeline builds the run configuration for one input video.
func (c *Config) Pipeline(input, title, artists string) pipeline.Config {
	in := input
	if input != "" {
		if abs, err := filepath.Abs(input); err == nil {
			in = abs
		}
	}
	return pipeline.Config{
		InputMP4: in,
		Title:    title,
		Artists:  artists,

		OutRoot:  c.Paths.OutputRoot,
		Naming:   c.Output.Naming,
		Provider: c.Transcription.Provider,
		Style:    c.SubtitleStyle(),

		FFmpegPath:  c.Tools.FFmpeg,
		FFprobePath: c.Tools.FFprobe,
		PythonPath:  c.Tools.Python,

		WhisperBin:      c.Tools.Whisper,
		WhisperScript:   c.Tools.WhisperScript,
		WhisperModel:    c.Transcription.Model,
		WhisperCppBin:   c.Tools.WhisperCpp,
		WhisperCppModel: c.Tools.WhisperCppModel,
		Language:        c.Transcription.Language,

		GoogleCredentials: c.Transcription.GoogleCredentials,
		GoogleLanguage:    c.Transcription.GoogleLanguage,
	}
}
