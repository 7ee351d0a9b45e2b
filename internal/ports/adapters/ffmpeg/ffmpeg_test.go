package ffmpeg

import (
	"strings"
	"testing"

	"github.com/forPelevin/karaoke/internal/types"
)

func TestCombineArgs_MapsVideoAndBothTracks(t *testing.T) {
	args := combineArgs("in.mp4", "vocal.wav", "inst.wav", "out.mp4", types.Metadata{Title: "My Song", Artists: "Band"})
	joined := strings.Join(args, " ")
	for _, want := range []string{
		"-i in.mp4 -i vocal.wav -i inst.wav",
		"-map 0:v -map 1:a -map 2:a",
		"-c:v copy -c:a aac -shortest",
		"-metadata title=My Song",
		"-metadata artist=Band",
	} {
		if !strings.Contains(joined, want) {
			t.Fatalf("expected args to contain %q, got %q", want, joined)
		}
	}
	if args[len(args)-1] != "out.mp4" {
		t.Fatalf("output must be the last argument, got %q", args[len(args)-1])
	}
}

func TestCombineArgs_NoMetadataWhenEmpty(t *testing.T) {
	args := combineArgs("in.mp4", "v.wav", "i.wav", "out.mp4", types.Metadata{})
	for i, a := range args {
		if a == "-metadata" {
			t.Fatalf("unexpected global metadata flag at %d: %v", i, args)
		}
	}
}

func TestCompressArgs_SpeechLayout(t *testing.T) {
	joined := strings.Join(compressArgs("a.wav", "b.wav"), " ")
	if !strings.Contains(joined, "-ac 1 -ar 16000 -c:a pcm_s16le b.wav") {
		t.Fatalf("unexpected compress args: %s", joined)
	}
}

func TestNew_Defaults(t *testing.T) {
	a := New("", "")
	if a.ffmpeg != "ffmpeg" || a.ffprobe != "ffprobe" {
		t.Fatalf("unexpected defaults: %+v", a)
	}
}
