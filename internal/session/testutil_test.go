package session

import (
	"context"
	"io"
	"testing"

	"github.com/rs/zerolog"

	"sessiond/pkg/types"
)

// fakeEngine scripts the byte chunks the engine writes into the sink: the
// first chunk on Respond, one more per Generate call.
type fakeEngine struct {
	chunks [][]byte
	pos    int
	sink   io.Writer

	loaded        bool
	loadErr       error
	respondCalls  int
	generateCalls int
	waveformCalls int
	configs       []string
	lastHistory   []types.Turn
	waveCb        WaveformFunc
	stats         *types.ContextStats
}

func (f *fakeEngine) SetConfig(configJSON string) error {
	f.configs = append(f.configs, configJSON)
	return nil
}

func (f *fakeEngine) Load() error {
	if f.loadErr != nil {
		return f.loadErr
	}
	f.loaded = true
	if f.stats == nil {
		f.stats = &types.ContextStats{PromptLen: 7, GenLen: 3}
	}
	return nil
}

func (f *fakeEngine) Respond(ctx context.Context, history []types.Turn, sink io.Writer, stopSentinel string, batch int) error {
	f.respondCalls++
	f.sink = sink
	f.lastHistory = append([]types.Turn(nil), history...)
	if len(f.chunks) > 0 {
		_, _ = sink.Write(f.chunks[0])
		f.pos = 1
	}
	return nil
}

func (f *fakeEngine) Generate(ctx context.Context, n int) error {
	f.generateCalls++
	if f.pos < len(f.chunks) {
		_, _ = f.sink.Write(f.chunks[f.pos])
		f.pos++
	}
	return nil
}

func (f *fakeEngine) GenerateWaveform() error {
	f.waveformCalls++
	if f.waveCb != nil {
		f.waveCb([]float32{0}, true)
	}
	return nil
}

func (f *fakeEngine) Context() *types.ContextStats {
	if !f.loaded {
		return nil
	}
	return f.stats
}

func (f *fakeEngine) SetWaveformCallback(cb WaveformFunc) { f.waveCb = cb }

func (f *fakeEngine) Close() error {
	f.loaded = false
	return nil
}

// chunksOf splits the scripted raw output for the fake engine.
func chunksOf(parts ...string) [][]byte {
	out := make([][]byte, 0, len(parts))
	for _, p := range parts {
		out = append(out, []byte(p))
	}
	return out
}

// newTestSession wires a loaded session around a fake engine.
func newTestSession(t *testing.T, cfg Config, eng Engine) *Session {
	t.Helper()
	s := New(cfg, eng, nil, zerolog.Nop())
	if err := s.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	return s
}
