package whisperpy

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/forPelevin/karaoke/internal/domain/karaoke"
	"github.com/forPelevin/karaoke/internal/types"
)

func TestTranscribe_ScriptStdout(t *testing.T) {
	a := New("", "", "")
	a.Script = "whisper_transcribe.py"
	var gotName string
	var gotArgs []string
	a.WithCommandRunner(func(_ context.Context, name string, args ...string) ([]byte, error) {
		gotName, gotArgs = name, args
		return []byte(`[{"start":0,"end":1,"text":" a b c"}]`), nil
	})

	tr, err := a.Transcribe(context.Background(), "/tmp/x.wav", t.TempDir())
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if gotName != "python" || len(gotArgs) != 2 || gotArgs[0] != "whisper_transcribe.py" || gotArgs[1] != "/tmp/x.wav" {
		t.Fatalf("unexpected command: %s %v", gotName, gotArgs)
	}
	segs, ok := tr.(types.SegmentLevelTranscript)
	if !ok {
		t.Fatalf("expected segment-level transcript, got %T", tr)
	}
	if len(segs.Segments) != 1 || segs.Segments[0].Text != " a b c" {
		t.Fatalf("unexpected segments: %+v", segs.Segments)
	}
}

func TestTranscribe_CLIReadsOutputFile(t *testing.T) {
	work := t.TempDir()
	a := New("whisper", "small", "th")
	var gotArgs []string
	a.WithCommandRunner(func(_ context.Context, _ string, args ...string) ([]byte, error) {
		gotArgs = args
		js := `{"text":"hi","segments":[{"start":0.5,"end":2,"text":" hi there"}],"language":"th"}`
		return nil, os.WriteFile(filepath.Join(work, "compressed_audio.json"), []byte(js), 0o644)
	})

	tr, err := a.Transcribe(context.Background(), "/in/compressed_audio.wav", work)
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if segs := tr.(types.SegmentLevelTranscript).Segments; len(segs) != 1 || segs[0].Start != 0.5 {
		t.Fatalf("unexpected segments: %+v", segs)
	}
	if gotArgs[0] != "/in/compressed_audio.wav" || gotArgs[len(gotArgs)-1] != "th" {
		t.Fatalf("unexpected args: %v", gotArgs)
	}
}

func TestTranscribe_MalformedOutput(t *testing.T) {
	a := New("", "", "")
	a.Script = "s.py"
	a.WithCommandRunner(func(context.Context, string, ...string) ([]byte, error) {
		return []byte(`[{"start":"x"}]`), nil
	})
	if _, err := a.Transcribe(context.Background(), "a.wav", t.TempDir()); !errors.Is(err, karaoke.ErrMalformedTranscript) {
		t.Fatalf("expected ErrMalformedTranscript, got %v", err)
	}
}
