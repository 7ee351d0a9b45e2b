package whispercpp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/forPelevin/karaoke/internal/domain/karaoke"
	"github.com/forPelevin/karaoke/internal/types"
)

type Adapter struct {
	bin      string
	model    string
	language string
}

func New(binPath, modelPath, language string) *Adapter {
	return &Adapter{bin: binPath, model: modelPath, language: language}
}

func (a *Adapter) Name() string { return "whispercpp" }

// Transcribe runs whisper.cpp with JSON output. whisper.cpp reports segment
// offsets in milliseconds and no word timing, so the result is segment-level.
func (a *Adapter) Transcribe(ctx context.Context, wavPath, workDir string) (types.Transcript, error) {
	outPrefix := filepath.Join(workDir, "whisper")
	args := []string{
		"-m", a.model,
		"-f", wavPath,
		"-oj",
		"-of", outPrefix,
	}
	if a.language != "" {
		args = append(args, "-l", a.language)
	}
	cmd := exec.CommandContext(ctx, a.bin, args...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("whisper.cpp failed: %w\n%s", err, string(b))
	}

	jb, err := os.ReadFile(outPrefix + ".json")
	if err != nil {
		return nil, err
	}
	tr, err := decode(jb)
	if err != nil {
		return nil, err
	}
	return tr, nil
}

type output struct {
	Transcription *[]struct {
		Offsets *struct {
			From *int64 `json:"from"`
			To   *int64 `json:"to"`
		} `json:"offsets"`
		Text string `json:"text"`
	} `json:"transcription"`
}

func decode(b []byte) (types.SegmentLevelTranscript, error) {
	var out output
	if err := json.Unmarshal(b, &out); err != nil {
		return types.SegmentLevelTranscript{}, fmt.Errorf("%w: whisper.cpp json: %v", karaoke.ErrMalformedTranscript, err)
	}
	if out.Transcription == nil {
		return types.SegmentLevelTranscript{}, fmt.Errorf("%w: whisper.cpp json: missing transcription", karaoke.ErrMalformedTranscript)
	}
	tr := types.SegmentLevelTranscript{Segments: make([]types.Segment, 0, len(*out.Transcription))}
	for i, seg := range *out.Transcription {
		if seg.Offsets == nil || seg.Offsets.From == nil || seg.Offsets.To == nil {
			return types.SegmentLevelTranscript{}, fmt.Errorf("%w: whisper.cpp segment %d: missing offsets", karaoke.ErrMalformedTranscript, i)
		}
		tr.Segments = append(tr.Segments, types.Segment{
			Start: float64(*seg.Offsets.From) / 1000,
			End:   float64(*seg.Offsets.To) / 1000,
			Text:  strings.TrimSpace(seg.Text),
		})
	}
	return tr, nil
}
