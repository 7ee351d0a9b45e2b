package spleeter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Adapter separates vocals from accompaniment with Spleeter's 2-stem model.
type Adapter struct {
	python string
	model  string

	commandRunner func(ctx context.Context, name string, args ...string) error
}

func New(python string) *Adapter {
	if python == "" {
		python = "python"
	}
	return &Adapter{python: python, model: "spleeter:2stems"}
}

// WithCommandRunner replaces subprocess execution (for testing).
func (a *Adapter) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	a.commandRunner = runner
}

// Separate writes the accompaniment stem of inWav to outInstrumentalWav.
// Spleeter's scratch directory lives under workDir and is removed afterwards.
func (a *Adapter) Separate(ctx context.Context, inWav, outInstrumentalWav, workDir string) error {
	tmp, err := os.MkdirTemp(workDir, "spleeter-")
	if err != nil {
		return fmt.Errorf("spleeter: temp dir: %w", err)
	}
	defer os.RemoveAll(tmp)

	args := []string{"-m", "spleeter", "separate", inWav, "-p", a.model, "-o", tmp}
	if err := a.run(ctx, a.python, args...); err != nil {
		return fmt.Errorf("spleeter: %w", err)
	}

	base := strings.TrimSuffix(filepath.Base(inWav), filepath.Ext(inWav))
	stem := filepath.Join(tmp, base, "accompaniment.wav")
	if _, err := os.Stat(stem); err != nil {
		return fmt.Errorf("spleeter: accompaniment stem not produced: %w", err)
	}
	if err := moveFile(stem, outInstrumentalWav); err != nil {
		return fmt.Errorf("spleeter: %w", err)
	}
	return nil
}

func (a *Adapter) run(ctx context.Context, name string, args ...string) error {
	if a.commandRunner != nil {
		return a.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// moveFile renames, falling back to copy+remove across filesystems.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		return errors.Join(err, out.Close())
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}
