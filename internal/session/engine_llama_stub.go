//go:build !llama

package session

// This file provides a no-CGO stub for the in-process llama engine. It is
// compiled when the 'llama' build tag is NOT set, keeping default builds and
// CI CGO-free. The real engine lives in engine_llama.go (tagged 'llama').

import (
	"context"
	"io"

	"sessiond/pkg/types"
)

var llamaBuilt = false

// llamaEngine is a stub that satisfies Engine but refuses to load without
// the 'llama' build tag. This avoids any mocked behavior in production
// binaries built without CGO support.
type llamaEngine struct {
	modelPath string
}

func NewLlamaEngine(modelPath string, ctxSize, threads int) Engine {
	return &llamaEngine{modelPath: modelPath}
}

func (e *llamaEngine) SetConfig(configJSON string) error { return nil }

func (e *llamaEngine) Load() error {
	return ErrEngineUnavailable("llama support not built (missing 'llama' build tag)")
}

func (e *llamaEngine) Respond(ctx context.Context, history []types.Turn, sink io.Writer, stopSentinel string, batch int) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	return ErrEngineUnavailable("llama support not built (missing 'llama' build tag)")
}

func (e *llamaEngine) Generate(ctx context.Context, n int) error {
	return ErrEngineUnavailable("llama support not built (missing 'llama' build tag)")
}

func (e *llamaEngine) GenerateWaveform() error {
	return ErrEngineUnavailable("llama support not built (missing 'llama' build tag)")
}

func (e *llamaEngine) Context() *types.ContextStats { return nil }

func (e *llamaEngine) SetWaveformCallback(cb WaveformFunc) {}

func (e *llamaEngine) Close() error { return nil }
