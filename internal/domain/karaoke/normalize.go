package karaoke

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/forPelevin/karaoke/internal/types"
)

// ErrMalformedTranscript marks transcription input that cannot be normalized.
// No partial output accompanies it.
var ErrMalformedTranscript = errors.New("malformed transcript")

// MinWordDuration is the floor, in centiseconds, applied to every highlight.
const MinWordDuration = 10

// Word is one karaoke highlight unit.
type Word struct {
	Text     string
	Duration int // centiseconds
}

// Line is one subtitle cue. Words is never empty.
type Line struct {
	Start float64
	End   float64
	Words []Word
}

// Normalize converts a transcript into karaoke lines, choosing the timing
// policy from the transcript variant.
func Normalize(tr types.Transcript) ([]Line, error) {
	switch t := tr.(type) {
	case types.WordLevelTranscript:
		return NormalizeWords(t)
	case *types.WordLevelTranscript:
		if t == nil {
			return nil, fmt.Errorf("%w: nil transcript", ErrMalformedTranscript)
		}
		return NormalizeWords(*t)
	case types.SegmentLevelTranscript:
		return NormalizeSegments(t)
	case *types.SegmentLevelTranscript:
		if t == nil {
			return nil, fmt.Errorf("%w: nil transcript", ErrMalformedTranscript)
		}
		return NormalizeSegments(*t)
	default:
		return nil, fmt.Errorf("%w: unsupported transcript %T", ErrMalformedTranscript, tr)
	}
}

// NormalizeWords builds one line per result from the first alternative's word
// timings. Results without words are skipped. A word whose end precedes its
// start is recognizer noise and gets the duration floor.
func NormalizeWords(tr types.WordLevelTranscript) ([]Line, error) {
	var out []Line
	for i, r := range tr.Results {
		if len(r.Alternatives) == 0 {
			return nil, fmt.Errorf("%w: result %d has no alternatives", ErrMalformedTranscript, i)
		}
		alt := r.Alternatives[0]
		if len(alt.Words) == 0 {
			continue
		}
		ln := Line{Words: make([]Word, 0, len(alt.Words))}
		for j, w := range alt.Words {
			ws, we := w.StartTime.Float(), w.EndTime.Float()
			if err := checkTimes(ws, we); err != nil {
				return nil, fmt.Errorf("%w: result %d word %d: %v", ErrMalformedTranscript, i, j, err)
			}
			if j == 0 {
				ln.Start = ws
			}
			ln.End = we
			ln.Words = append(ln.Words, Word{Text: w.Word, Duration: clampDuration(centiseconds(we - ws))})
		}
		out = append(out, ln)
	}
	return out, nil
}

// NormalizeSegments spreads each segment's duration evenly over its
// whitespace-separated words. The remainder of the integer division is
// dropped; true sub-word timing is unknown at this level.
func NormalizeSegments(tr types.SegmentLevelTranscript) ([]Line, error) {
	var out []Line
	for i, s := range tr.Segments {
		if err := checkSpan(s.Start, s.End); err != nil {
			return nil, fmt.Errorf("%w: segment %d: %v", ErrMalformedTranscript, i, err)
		}
		tokens := strings.Fields(s.Text)
		if len(tokens) == 0 {
			continue
		}
		per := clampDuration(centiseconds(s.End-s.Start) / len(tokens))
		words := make([]Word, len(tokens))
		for j, tok := range tokens {
			words[j] = Word{Text: tok, Duration: per}
		}
		out = append(out, Line{Start: s.Start, End: s.End, Words: words})
	}
	return out, nil
}

func checkTimes(ts ...float64) error {
	for _, v := range ts {
		switch {
		case math.IsNaN(v) || math.IsInf(v, 0):
			return errors.New("non-finite timestamp")
		case v < 0:
			return errors.New("negative timestamp")
		}
	}
	return nil
}

func checkSpan(start, end float64) error {
	if err := checkTimes(start, end); err != nil {
		return err
	}
	if end < start {
		return fmt.Errorf("end %.3f before start %.3f", end, start)
	}
	return nil
}

func centiseconds(sec float64) int {
	return int(math.Round(sec * 100))
}

// clampDuration lifts zero, negative and sub-floor durations to MinWordDuration.
func clampDuration(cs int) int {
	if cs < MinWordDuration {
		return MinWordDuration
	}
	return cs
}
