package whisper

import (
	"context"
	"errors"
)

var (
	// ErrModelLoad covers failures before inference can start: engine binary
	// missing or broken, weights absent or corrupt.
	ErrModelLoad = errors.New("model load failed")

	// ErrInference covers failures while transcribing: undecodable audio,
	// engine crashes mid-run, unparseable engine output.
	ErrInference = errors.New("inference failed")
)

// Segment is one span of transcribed speech. Start and End are seconds from
// the beginning of the audio; Start ≤ End, and an engine's segments are
// ordered by non-decreasing Start.
type Segment struct {
	Start float64
	End   float64
	Text  string
}

type TranscriptionRequest struct {
	AudioPath string
	ModelPath string
	Language  string
}

type Engine interface {
	Transcribe(ctx context.Context, req TranscriptionRequest) ([]Segment, error)
}
