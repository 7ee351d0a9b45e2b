package types

import (
	"math"
	"time"
)

// Transcript is either a WordLevelTranscript or a SegmentLevelTranscript.
type Transcript interface {
	transcript()
}

// WordLevelTranscript carries per-word timing, one Result per line of speech.
type WordLevelTranscript struct {
	Results []Result
}

type Result struct {
	Alternatives []Alternative
}

type Alternative struct {
	Transcript string
	Words      []WordTiming
}

type WordTiming struct {
	Word      string
	StartTime Offset
	EndTime   Offset
}

// Offset is a position in the audio as whole seconds plus fractional nanoseconds.
type Offset struct {
	Seconds int64
	Nanos   int32
}

func (o Offset) Float() float64 {
	return float64(o.Seconds) + float64(o.Nanos)/1e9
}

// OffsetFromSeconds is the inverse of Offset.Float, rounded to nanoseconds.
func OffsetFromSeconds(sec float64) Offset {
	d := time.Duration(math.Round(sec * float64(time.Second)))
	return Offset{Seconds: int64(d / time.Second), Nanos: int32(d % time.Second)}
}

// SegmentLevelTranscript only knows coarse start/end per spoken unit.
type SegmentLevelTranscript struct {
	Segments []Segment
}

type Segment struct {
	Start float64
	End   float64
	Text  string
}

func (WordLevelTranscript) transcript()    {}
func (SegmentLevelTranscript) transcript() {}

type Metadata struct {
	Title   string
	Artists string
}

type Manifest struct {
	Input        string  `json:"input"`
	Title        string  `json:"title"`
	Artists      string  `json:"artists"`
	Provider     string  `json:"provider"`
	DurationSec  float64 `json:"duration_sec"`
	Video        string  `json:"video"`
	Subtitles    string  `json:"subtitles"`
	Instrumental string  `json:"instrumental"`
	Lines        int     `json:"lines"`
	Words        int     `json:"words"`
}
