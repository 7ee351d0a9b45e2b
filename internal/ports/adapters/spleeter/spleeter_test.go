package spleeter

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSeparate_MovesAccompaniment(t *testing.T) {
	work := t.TempDir()
	out := filepath.Join(work, "instrumental_audio.wav")

	a := New("")
	var gotArgs []string
	a.WithCommandRunner(func(_ context.Context, name string, args ...string) error {
		gotArgs = append([]string{name}, args...)
		tmp := args[len(args)-1]
		dir := filepath.Join(tmp, "original_audio")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
		return os.WriteFile(filepath.Join(dir, "accompaniment.wav"), []byte("RIFF"), 0o644)
	})

	if err := a.Separate(context.Background(), "/x/original_audio.wav", out, work); err != nil {
		t.Fatalf("separate: %v", err)
	}
	if got := strings.Join(gotArgs, " "); !strings.HasPrefix(got, "python -m spleeter separate /x/original_audio.wav -p spleeter:2stems -o ") {
		t.Fatalf("unexpected command: %s", got)
	}
	b, err := os.ReadFile(out)
	if err != nil || string(b) != "RIFF" {
		t.Fatalf("instrumental not moved: %v %q", err, b)
	}
	entries, _ := os.ReadDir(work)
	if len(entries) != 1 {
		t.Fatalf("expected scratch dir removed, work dir has %d entries", len(entries))
	}
}

func TestSeparate_MissingStemIsError(t *testing.T) {
	a := New("python3")
	a.WithCommandRunner(func(context.Context, string, ...string) error { return nil })
	err := a.Separate(context.Background(), "song.wav", filepath.Join(t.TempDir(), "out.wav"), t.TempDir())
	if err == nil || !strings.Contains(err.Error(), "accompaniment stem not produced") {
		t.Fatalf("expected missing stem error, got %v", err)
	}
}
