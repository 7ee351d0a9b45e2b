package subtitles

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/forPelevin/karaoke/internal/domain/karaoke"
	"github.com/forPelevin/karaoke/internal/types"
)

// Style is the single V4+ style every dialogue line refers to.
type Style struct {
	Name            string
	Font            string
	Size            int
	PrimaryColour   string
	SecondaryColour string
	OutlineColour   string
	BackColour      string
	Bold            bool
	Outline         int
	Shadow          int
	Alignment       int
	MarginL         int
	MarginR         int
	MarginV         int
}

// DefaultStyle is white text that fills red as each word is sung, bottom centre.
func DefaultStyle() Style {
	return Style{
		Name:            "Default",
		Font:            "Arial",
		Size:            40,
		PrimaryColour:   "&H00FFFFFF",
		SecondaryColour: "&H000000FF",
		OutlineColour:   "&H00000000",
		BackColour:      "&H64000000",
		Outline:         2,
		Shadow:          0,
		Alignment:       2,
		MarginL:         10,
		MarginR:         10,
		MarginV:         10,
	}
}

// Document is a complete karaoke subtitle file.
type Document struct {
	Style Style
	Lines []karaoke.Line
}

// Render writes the header followed by one dialogue per line, in order.
func (d Document) Render() string {
	var b strings.Builder
	b.WriteString(Header(d.Style))
	for _, ln := range d.Lines {
		b.WriteString(DialogueLine(d.Style, ln))
		b.WriteString("\n")
	}
	return b.String()
}

// RenderKaraoke normalizes tr and renders it with style.
func RenderKaraoke(tr types.Transcript, style Style) (string, error) {
	lines, err := karaoke.Normalize(tr)
	if err != nil {
		return "", err
	}
	return Document{Style: style, Lines: lines}.Render(), nil
}

func Header(st Style) string {
	bold := 0
	if st.Bold {
		bold = -1
	}
	return "[Script Info]\n" +
		"Title: Karaoke Subtitle\n" +
		"ScriptType: v4.00+\n" +
		"PlayResX: 640\n" +
		"PlayResY: 480\n" +
		"\n" +
		"[V4+ Styles]\n" +
		"Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding\n" +
		fmt.Sprintf("Style: %s,%s,%d,%s,%s,%s,%s,%d,0,0,0,100,100,0,0,1,%d,%d,%d,%d,%d,%d,1\n",
			st.Name, st.Font, st.Size,
			st.PrimaryColour, st.SecondaryColour, st.OutlineColour, st.BackColour,
			bold, st.Outline, st.Shadow, st.Alignment,
			st.MarginL, st.MarginR, st.MarginV) +
		"\n" +
		"[Events]\n" +
		"Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n"
}

// DialogueLine renders ln without a line terminator. Each word gets a
// {\k<centiseconds>} tag followed by its text.
func DialogueLine(st Style, ln karaoke.Line) string {
	var b strings.Builder
	b.WriteString("Dialogue: 0,")
	b.WriteString(FormatTimestamp(ln.Start))
	b.WriteString(",")
	b.WriteString(FormatTimestamp(ln.End))
	b.WriteString(",")
	b.WriteString(st.Name)
	b.WriteString(",,0,0,0,,")
	for _, w := range ln.Words {
		b.WriteString(`{\k`)
		b.WriteString(strconv.Itoa(w.Duration))
		b.WriteString("}")
		b.WriteString(sanitizeASS(w.Text))
		b.WriteString(" ")
	}
	return strings.TrimSuffix(b.String(), " ")
}

// maxTimestamp bounds the rendered clock far past any media length.
const maxTimestamp = 1e12

// FormatTimestamp renders seconds as H:MM:SS.CS. Centiseconds are truncated,
// never rounded, so 59.999 stays in the same second. Truncation works on the
// shortest decimal form of seconds so that 1.9 renders .90 and not .89.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		seconds = 0
	}
	seconds = math.Min(seconds, maxTimestamp)
	whole, frac, _ := strings.Cut(strconv.FormatFloat(seconds, 'f', -1, 64), ".")
	sec, _ := strconv.ParseInt(whole, 10, 64)
	frac2, _ := strconv.ParseInt((frac + "00")[:2], 10, 64)
	total := sec*100 + frac2
	cs := total % 100
	s := (total / 100) % 60
	m := (total / 6000) % 60
	h := total / 360000
	return fmt.Sprintf("%d:%02d:%02d.%02d", h, m, s, cs)
}

func sanitizeASS(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "{", "(")
	s = strings.ReplaceAll(s, "}", ")")
	return s
}
