package whisperpy

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/forPelevin/karaoke/internal/domain/karaoke"
	"github.com/forPelevin/karaoke/internal/types"
)

const DefaultModel = "large"

// Adapter runs OpenAI Whisper. With Script set it runs `python <script> <wav>`
// and reads a JSON segment array from stdout; otherwise it drives the
// `whisper` CLI and reads the JSON file it writes.
type Adapter struct {
	Python   string
	Script   string
	Bin      string
	Model    string
	Language string

	commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)
}

func New(bin, model, language string) *Adapter {
	if bin == "" {
		bin = "whisper"
	}
	if model == "" {
		model = DefaultModel
	}
	return &Adapter{Bin: bin, Model: model, Language: language, Python: "python"}
}

// WithCommandRunner replaces subprocess execution (for testing).
func (a *Adapter) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) ([]byte, error)) {
	a.commandRunner = runner
}

func (a *Adapter) Name() string { return "whisper" }

func (a *Adapter) Transcribe(ctx context.Context, wavPath, workDir string) (types.Transcript, error) {
	if a.Script != "" {
		stdout, err := a.run(ctx, a.Python, a.Script, wavPath)
		if err != nil {
			return nil, fmt.Errorf("whisper script: %w", err)
		}
		tr, err := karaoke.DecodeSegmentLevel(bytes.NewReader(stdout))
		if err != nil {
			return nil, fmt.Errorf("whisper script output: %w", err)
		}
		return tr, nil
	}

	args := []string{
		wavPath,
		"--model", a.Model,
		"--output_format", "json",
		"--output_dir", workDir,
		"--fp16", "False",
	}
	if a.Language != "" {
		args = append(args, "--language", a.Language)
	}
	if _, err := a.run(ctx, a.Bin, args...); err != nil {
		return nil, fmt.Errorf("whisper: %w", err)
	}

	base := strings.TrimSuffix(filepath.Base(wavPath), filepath.Ext(wavPath))
	f, err := os.Open(filepath.Join(workDir, base+".json"))
	if err != nil {
		return nil, fmt.Errorf("whisper output: %w", err)
	}
	defer f.Close()
	tr, err := karaoke.DecodeSegmentLevel(f)
	if err != nil {
		return nil, fmt.Errorf("whisper output: %w", err)
	}
	return tr, nil
}

// run returns stdout; stderr is folded into the error on failure.
func (a *Adapter) run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if a.commandRunner != nil {
		return a.commandRunner(ctx, name, args...)
	}
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.Env = append(os.Environ(), "PYTHONIOENCODING=utf-8")
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}
