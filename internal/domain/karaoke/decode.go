package karaoke

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/forPelevin/karaoke/internal/types"
)

type rawSegment struct {
	Start *float64 `json:"start"`
	End   *float64 `json:"end"`
	Text  *string  `json:"text"`
}

// DecodeSegmentLevel reads a JSON array of {start, end, text} objects, or an
// object whose "segments" field holds such an array (Whisper CLI output).
func DecodeSegmentLevel(r io.Reader) (types.SegmentLevelTranscript, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return types.SegmentLevelTranscript{}, fmt.Errorf("read transcript: %w", err)
	}
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return types.SegmentLevelTranscript{}, fmt.Errorf("%w: empty input", ErrMalformedTranscript)
	}

	var raw []rawSegment
	if b[0] == '{' {
		var wrapped struct {
			Segments *[]rawSegment `json:"segments"`
		}
		if err := json.Unmarshal(b, &wrapped); err != nil {
			return types.SegmentLevelTranscript{}, fmt.Errorf("%w: %v", ErrMalformedTranscript, err)
		}
		if wrapped.Segments == nil {
			return types.SegmentLevelTranscript{}, fmt.Errorf("%w: missing segments", ErrMalformedTranscript)
		}
		raw = *wrapped.Segments
	} else if err := json.Unmarshal(b, &raw); err != nil {
		return types.SegmentLevelTranscript{}, fmt.Errorf("%w: %v", ErrMalformedTranscript, err)
	}

	out := types.SegmentLevelTranscript{Segments: make([]types.Segment, 0, len(raw))}
	for i, s := range raw {
		switch {
		case s.Start == nil:
			return types.SegmentLevelTranscript{}, fmt.Errorf("%w: segment %d: missing start", ErrMalformedTranscript, i)
		case s.End == nil:
			return types.SegmentLevelTranscript{}, fmt.Errorf("%w: segment %d: missing end", ErrMalformedTranscript, i)
		case s.Text == nil:
			return types.SegmentLevelTranscript{}, fmt.Errorf("%w: segment %d: missing text", ErrMalformedTranscript, i)
		}
		out.Segments = append(out.Segments, types.Segment{Start: *s.Start, End: *s.End, Text: *s.Text})
	}
	return out, nil
}

type rawWordLevel struct {
	Results []struct {
		Alternatives []struct {
			Transcript string `json:"transcript"`
			Words      []struct {
				Word      *string    `json:"word"`
				StartTime *rawOffset `json:"startTime"`
				EndTime   *rawOffset `json:"endTime"`
			} `json:"words"`
		} `json:"alternatives"`
	} `json:"results"`
}

// DecodeWordLevel reads a speech recognition response with per-word offsets.
// Offsets are either {"seconds": n, "nanos": n} objects (seconds may be a
// numeric string) or protobuf JSON duration strings such as "1.300s".
func DecodeWordLevel(r io.Reader) (types.WordLevelTranscript, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return types.WordLevelTranscript{}, fmt.Errorf("read transcript: %w", err)
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return types.WordLevelTranscript{}, fmt.Errorf("%w: empty input", ErrMalformedTranscript)
	}
	var raw rawWordLevel
	if err := json.Unmarshal(b, &raw); err != nil {
		return types.WordLevelTranscript{}, fmt.Errorf("%w: %v", ErrMalformedTranscript, err)
	}

	out := types.WordLevelTranscript{Results: make([]types.Result, 0, len(raw.Results))}
	for i, res := range raw.Results {
		tr := types.Result{Alternatives: make([]types.Alternative, 0, len(res.Alternatives))}
		for k, alt := range res.Alternatives {
			a := types.Alternative{Transcript: alt.Transcript, Words: make([]types.WordTiming, 0, len(alt.Words))}
			for j, w := range alt.Words {
				switch {
				case w.Word == nil:
					return types.WordLevelTranscript{}, fmt.Errorf("%w: result %d alternative %d word %d: missing word", ErrMalformedTranscript, i, k, j)
				case w.StartTime == nil:
					return types.WordLevelTranscript{}, fmt.Errorf("%w: result %d alternative %d word %d: missing startTime", ErrMalformedTranscript, i, k, j)
				case w.EndTime == nil:
					return types.WordLevelTranscript{}, fmt.Errorf("%w: result %d alternative %d word %d: missing endTime", ErrMalformedTranscript, i, k, j)
				}
				a.Words = append(a.Words, types.WordTiming{
					Word:      *w.Word,
					StartTime: types.Offset(*w.StartTime),
					EndTime:   types.Offset(*w.EndTime),
				})
			}
			tr.Alternatives = append(tr.Alternatives, a)
		}
		out.Results = append(out.Results, tr)
	}
	return out, nil
}

// rawOffset mirrors types.Offset. Absent seconds or nanos mean zero, as
// protobuf JSON omits default values.
type rawOffset types.Offset

func (o *rawOffset) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		d, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("offset %q: %w", s, err)
		}
		*o = rawOffset{Seconds: int64(d / time.Second), Nanos: int32(d % time.Second)}
		return nil
	}

	var obj struct {
		Seconds json.RawMessage `json:"seconds"`
		Nanos   json.RawMessage `json:"nanos"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	sec, err := parseIntField(obj.Seconds, 64)
	if err != nil {
		return fmt.Errorf("seconds: %w", err)
	}
	nanos, err := parseIntField(obj.Nanos, 32)
	if err != nil {
		return fmt.Errorf("nanos: %w", err)
	}
	*o = rawOffset{Seconds: sec, Nanos: int32(nanos)}
	return nil
}

// parseIntField accepts a JSON number or a JSON string holding an integer.
func parseIntField(raw json.RawMessage, bits int) (int64, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return 0, nil
	}
	if strings.HasPrefix(s, `"`) {
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, err
		}
	}
	return strconv.ParseInt(s, 10, bits)
}
