package googlespeech

import (
	"errors"
	"testing"

	"cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/protobuf/types/known/durationpb"

	"github.com/forPelevin/karaoke/internal/domain/karaoke"
	"github.com/forPelevin/karaoke/internal/types"
)

func TestFromResponse(t *testing.T) {
	resp := &speechpb.LongRunningRecognizeResponse{Results: []*speechpb.SpeechRecognitionResult{
		{Alternatives: []*speechpb.SpeechRecognitionAlternative{{
			Transcript: "hello world",
			Words: []*speechpb.WordInfo{
				{Word: "hello", StartTime: &durationpb.Duration{Seconds: 1}, EndTime: &durationpb.Duration{Seconds: 1, Nanos: 300000000}},
				{Word: "world", StartTime: &durationpb.Duration{Seconds: 1, Nanos: 300000000}, EndTime: &durationpb.Duration{Seconds: 1, Nanos: 900000000}},
			},
		}}},
		{Alternatives: []*speechpb.SpeechRecognitionAlternative{{Transcript: ""}}},
	}}

	tr, err := fromResponse(resp)
	if err != nil {
		t.Fatalf("fromResponse: %v", err)
	}
	if len(tr.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(tr.Results))
	}
	got := tr.Results[0].Alternatives[0].Words[1]
	want := types.WordTiming{Word: "world", StartTime: types.Offset{Seconds: 1, Nanos: 300000000}, EndTime: types.Offset{Seconds: 1, Nanos: 900000000}}
	if got != want {
		t.Fatalf("word = %+v, want %+v", got, want)
	}

	lines, err := karaoke.Normalize(tr)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if len(lines) != 1 {
		t.Fatalf("expected empty result to be skipped, got %d lines", len(lines))
	}
}

func TestFromResponse_MissingOffset(t *testing.T) {
	resp := &speechpb.LongRunningRecognizeResponse{Results: []*speechpb.SpeechRecognitionResult{
		{Alternatives: []*speechpb.SpeechRecognitionAlternative{{
			Words: []*speechpb.WordInfo{{Word: "x", StartTime: &durationpb.Duration{}}},
		}}},
	}}
	if _, err := fromResponse(resp); !errors.Is(err, karaoke.ErrMalformedTranscript) {
		t.Fatalf("expected ErrMalformedTranscript, got %v", err)
	}
}

func TestRequest_WordOffsetsEnabled(t *testing.T) {
	req := New("", "").request([]byte{1, 2})
	cfg := req.GetConfig()
	if !cfg.GetEnableWordTimeOffsets() || cfg.GetSampleRateHertz() != 16000 || cfg.GetLanguageCode() != DefaultLanguage {
		t.Fatalf("unexpected config: %v", cfg)
	}
	if cfg.GetEncoding() != speechpb.RecognitionConfig_LINEAR16 {
		t.Fatalf("unexpected encoding: %v", cfg.GetEncoding())
	}
	if len(req.GetAudio().GetContent()) != 2 {
		t.Fatalf("audio content not attached")
	}
}
