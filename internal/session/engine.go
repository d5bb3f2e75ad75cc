package session

import (
	"context"
	"io"

	"sessiond/pkg/types"
)

// ProgressFunc receives streamed reply fragments. It is called with done
// false for every content fragment and exactly once with done true and an
// empty fragment when the stop sentinel is detected. Returning true
// requests cancellation; the request is observed at fragment granularity.
type ProgressFunc func(fragment string, done bool) bool

// WaveformFunc receives synthesized audio samples. lastChunk marks the
// final block of a synthesis pass. Returning true stops synthesis. The
// engine may invoke it from its own execution context; implementations
// must be safe there and return quickly.
type WaveformFunc func(samples []float32, lastChunk bool) bool

// Engine is the inference collaborator the session drives. Implementations
// own model loading, tokenization and sampling; the session only sees the
// raw byte stream they produce.
type Engine interface {
	// SetConfig applies a serialized JSON configuration. It may be called
	// before Load to stage options and again afterwards to adjust them.
	SetConfig(configJSON string) error
	// Load makes the engine ready to generate. A failed Load leaves the
	// engine unusable; Context reports nil in that state.
	Load() error
	// Respond renders the role-tagged history and streams raw reply bytes
	// into sink until the first pass completes. The stopSentinel bytes are
	// written into the stream when generation finishes on the engine side.
	// batch controls how many increments the first pass produces.
	Respond(ctx context.Context, history []types.Turn, sink io.Writer, stopSentinel string, batch int) error
	// Generate produces up to n more increments into the sink last bound
	// by Respond.
	Generate(ctx context.Context, n int) error
	// GenerateWaveform synthesizes audio for the turn just completed.
	GenerateWaveform() error
	// Context reports prompt and timing statistics, nil before a
	// successful Load.
	Context() *types.ContextStats
	// SetWaveformCallback registers the audio sample consumer.
	SetWaveformCallback(cb WaveformFunc)
	// Close releases engine resources.
	Close() error
}
