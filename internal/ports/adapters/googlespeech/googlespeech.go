package googlespeech

import (
	"context"
	"fmt"
	"os"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/api/option"

	"github.com/forPelevin/karaoke/internal/domain/karaoke"
	"github.com/forPelevin/karaoke/internal/types"
)

const (
	DefaultLanguage   = "th-TH"
	defaultSampleRate = 16000
)

// Adapter transcribes 16 kHz LINEAR16 audio with Google Cloud
// Speech-to-Text, requesting per-word time offsets.
type Adapter struct {
	credentialsFile string
	language        string
}

// New builds an adapter. An empty credentialsFile falls back to Application
// Default Credentials.
func New(credentialsFile, language string) *Adapter {
	if language == "" {
		language = DefaultLanguage
	}
	return &Adapter{credentialsFile: credentialsFile, language: language}
}

func (a *Adapter) Name() string { return "google" }

func (a *Adapter) Transcribe(ctx context.Context, wavPath, _ string) (types.Transcript, error) {
	audio, err := os.ReadFile(wavPath)
	if err != nil {
		return nil, fmt.Errorf("google speech: read audio: %w", err)
	}

	var opts []option.ClientOption
	if a.credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(a.credentialsFile))
	}
	client, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("google speech: client: %w", err)
	}
	defer client.Close()

	// Long-running recognition accepts audio beyond the one-minute sync limit.
	op, err := client.LongRunningRecognize(ctx, a.request(audio))
	if err != nil {
		return nil, fmt.Errorf("google speech: recognize: %w", err)
	}
	resp, err := op.Wait(ctx)
	if err != nil {
		return nil, fmt.Errorf("google speech: wait: %w", err)
	}
	tr, err := fromResponse(resp)
	if err != nil {
		return nil, err
	}
	return tr, nil
}

func (a *Adapter) request(audio []byte) *speechpb.LongRunningRecognizeRequest {
	return &speechpb.LongRunningRecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:              speechpb.RecognitionConfig_LINEAR16,
			SampleRateHertz:       defaultSampleRate,
			LanguageCode:          a.language,
			EnableWordTimeOffsets: true,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio},
		},
	}
}

func fromResponse(resp *speechpb.LongRunningRecognizeResponse) (types.WordLevelTranscript, error) {
	var tr types.WordLevelTranscript
	for i, res := range resp.GetResults() {
		r := types.Result{}
		for _, alt := range res.GetAlternatives() {
			a := types.Alternative{Transcript: alt.GetTranscript()}
			for j, w := range alt.GetWords() {
				if w.GetStartTime() == nil || w.GetEndTime() == nil {
					return types.WordLevelTranscript{}, fmt.Errorf("%w: result %d word %d: missing time offset", karaoke.ErrMalformedTranscript, i, j)
				}
				a.Words = append(a.Words, types.WordTiming{
					Word:      w.GetWord(),
					StartTime: types.Offset{Seconds: w.GetStartTime().GetSeconds(), Nanos: w.GetStartTime().GetNanos()},
					EndTime:   types.Offset{Seconds: w.GetEndTime().GetSeconds(), Nanos: w.GetEndTime().GetNanos()},
				})
			}
			r.Alternatives = append(r.Alternatives, a)
		}
		tr.Results = append(tr.Results, r)
	}
	return tr, nil
}
