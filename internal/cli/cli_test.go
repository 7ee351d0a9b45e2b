package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/forPelevin/karaoke/internal/store"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeTestConfig(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "karaoke.toml")
	body := "[paths]\ndb_path = \"" + filepath.ToSlash(filepath.Join(dir, "runs.db")) + "\"\n" +
		"output_root = \"" + filepath.ToSlash(filepath.Join(dir, "output")) + "\"\n" +
		"[style]\nfont = \"Tahoma\"\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRender_SegmentsToStdout(t *testing.T) {
	dir := t.TempDir()
	cfg := writeTestConfig(t, dir)
	in := filepath.Join(dir, "segments.json")
	if err := os.WriteFile(in, []byte(`{"segments":[{"start":0,"end":1,"text":"one two three"}]}`), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "--config", cfg, "render", in)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(out, `{\k33}one {\k33}two {\k33}three`) {
		t.Fatalf("missing karaoke tags:\n%s", out)
	}
	if !strings.Contains(out, "Style: Default,Tahoma,40,") {
		t.Fatalf("style override not applied:\n%s", out)
	}
}

func TestRender_WordsToFile(t *testing.T) {
	dir := t.TempDir()
	cfg := writeTestConfig(t, dir)
	in := filepath.Join(dir, "words.json")
	body := `{"results":[{"alternatives":[{"transcript":"hi","words":[
		{"word":"hi","startTime":{"seconds":"1"},"endTime":{"seconds":"1","nanos":500000000}}]}]}]}`
	if err := os.WriteFile(in, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	outPath := filepath.Join(dir, "out.ass")

	if _, err := execute(t, "--config", cfg, "--quiet", "render", in, "--format", "words", "-o", outPath); err != nil {
		t.Fatalf("render: %v", err)
	}
	b, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !strings.Contains(string(b), `Dialogue: 0,0:00:01.00,0:00:01.50,Default,,0,0,0,,{\k50}hi`) {
		t.Fatalf("unexpected subtitles:\n%s", b)
	}
}

func TestRender_Errors(t *testing.T) {
	dir := t.TempDir()
	cfg := writeTestConfig(t, dir)
	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte(`[{"start":2,"end":1,"text":"x"}]`), 0o644); err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name string
		args []string
		want string
	}{
		{name: "malformed", args: []string{"--config", cfg, "render", bad}, want: "malformed transcript"},
		{name: "unknown format", args: []string{"--config", cfg, "render", bad, "--format", "srt"}, want: `unknown format "srt"`},
		{name: "no args", args: []string{"--config", cfg, "render"}, want: "accepts 1 arg(s), received 0"},
		{name: "verbose and quiet", args: []string{"--config", cfg, "-v", "-q", "render", bad}, want: "none of the others can be"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := execute(t, tc.args...)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestMake_ConfigErrors(t *testing.T) {
	dir := t.TempDir()
	cfg := writeTestConfig(t, dir)
	input := filepath.Join(dir, "in.mp4")
	if err := os.WriteFile(input, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name string
		args []string
		want string
	}{
		{name: "missing title", args: []string{"--config", cfg, "make", input, "--artists", "A"}, want: "config: title is required"},
		{name: "missing input", args: []string{"--config", cfg, "make", input + ".nope", "--title", "T", "--artists", "A"}, want: "config: stat input:"},
		{name: "bad provider", args: []string{"--config", cfg, "make", input, "--title", "T", "--artists", "A", "--provider", "vosk"}, want: "config: transcription.provider"},
		{name: "bad naming", args: []string{"--config", cfg, "make", input, "--title", "T", "--artists", "A", "--naming", "dice"}, want: "config: output.naming"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := execute(t, tc.args...)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestHistory(t *testing.T) {
	dir := t.TempDir()
	cfg := writeTestConfig(t, dir)

	out, err := execute(t, "--config", cfg, "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(out, "No runs recorded") {
		t.Fatalf("unexpected output: %s", out)
	}

	db, err := store.Open(filepath.Join(dir, "runs.db"))
	if err != nil {
		t.Fatal(err)
	}
	err = db.Record(context.Background(), store.Run{
		ID:        "0123456789abcdef",
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Input:     "in.mp4",
		Title:     "ฝนตก",
		Artists:   "Band",
		Provider:  "google",
		Lines:     7,
		Status:    store.StatusSucceeded,
	})
	_ = db.Close()
	if err != nil {
		t.Fatal(err)
	}

	out, err = execute(t, "--config", cfg, "history", "--limit", "5")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	for _, want := range []string{"01234567", "ฝนตก", "google", "succeeded", "LINES"} {
		if !strings.Contains(out, want) {
			t.Fatalf("history output missing %q:\n%s", want, out)
		}
	}
}

func TestHistoryRows_TruncatesErrors(t *testing.T) {
	rows := historyRows([]store.Run{{ID: "abc", Status: store.StatusFailed, Error: strings.Repeat("x", 100)}})
	if len(rows) != 1 {
		t.Fatalf("expected one row")
	}
	if got := rows[0][5]; !strings.HasPrefix(got, "failed: ") || len([]rune(got)) != len("failed: ")+41 {
		t.Fatalf("unexpected status cell: %q", got)
	}
}

func TestRenderTable_RightAlignedColumnAndShortRows(t *testing.T) {
	out := renderTable([]string{"Name", "Lines"}, [][]string{{"long name here", "7"}, {"x"}}, "Lines")
	lines := strings.Split(out, "\n")
	if len(lines) != 6 {
		t.Fatalf("expected 6 table lines, got %d:\n%s", len(lines), out)
	}
	if !strings.Contains(lines[3], "│     7 │") {
		t.Fatalf("Lines column not right-aligned:\n%s", out)
	}
	if !strings.HasPrefix(lines[4], "│ x ") {
		t.Fatalf("short row not padded:\n%s", out)
	}
	if renderTable(nil, nil) != "" {
		t.Fatalf("expected empty output without headers")
	}
}

func TestNewLogger_NonTerminalIsJSON(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, false, true)
	log.Info("hidden")
	log.Warn("shown", "k", "v")
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("quiet logger emitted info: %s", out)
	}
	if !strings.HasPrefix(out, "{") || !strings.Contains(out, `"k":"v"`) {
		t.Fatalf("expected JSON output, got %s", out)
	}
}
