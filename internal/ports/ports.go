package ports

import (
	"context"
	"time"

	"github.com/forPelevin/karaoke/internal/types"
)

type MediaTool interface {
	ExtractAudio(ctx context.Context, inMP4, outWav string) error
	CompressAudio(ctx context.Context, inWav, outWav string) error
	CombineAudioTracks(ctx context.Context, inMP4, vocalWav, instrumentalWav, outMP4 string, meta types.Metadata) error
	ProbeDuration(ctx context.Context, path string) (time.Duration, error)
}

type VocalSeparator interface {
	Separate(ctx context.Context, inWav, outInstrumentalWav, workDir string) error
}

// TranscriptionProvider yields either transcript variant; callers hand the
// result to the normalizer without inspecting which backend produced it.
type TranscriptionProvider interface {
	Name() string
	Transcribe(ctx context.Context, wavPath, workDir string) (types.Transcript, error)
}

type OutputNamer interface {
	Next(root, name string) (string, error)
}
