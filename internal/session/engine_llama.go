//go:build llama

package session

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"time"

	llama "github.com/go-skynet/go-llama.cpp"

	"sessiond/pkg/types"
)

// llamaBuilt indicates this binary was compiled with real llama support.
var llamaBuilt = true

// llamaEngine runs generation in-process through go-llama.cpp. The whole
// reply is produced in the first Respond pass, so the extension loop never
// issues increments against it.
type llamaEngine struct {
	modelPath string
	ctxSize   int
	threads   int

	opts   map[string]any
	model  *llama.LLama
	waveCb WaveformFunc
	stats  *types.ContextStats
}

// NewLlamaEngine constructs the in-process engine for a model file.
func NewLlamaEngine(modelPath string, ctxSize, threads int) Engine {
	if ctxSize <= 0 {
		ctxSize = 2048
	}
	if threads <= 0 {
		threads = 4
	}
	return &llamaEngine{modelPath: modelPath, ctxSize: ctxSize, threads: threads, opts: map[string]any{}}
}

func (e *llamaEngine) SetConfig(configJSON string) error {
	patch := map[string]any{}
	if err := json.Unmarshal([]byte(configJSON), &patch); err != nil {
		return err
	}
	for k, v := range patch {
		e.opts[k] = v
	}
	return nil
}

func (e *llamaEngine) Load() error {
	if strings.TrimSpace(e.modelPath) == "" {
		return errors.New("model path is empty")
	}
	m, err := llama.New(e.modelPath, llama.SetContext(e.ctxSize))
	if err != nil {
		return err
	}
	e.model = m
	e.stats = &types.ContextStats{}
	return nil
}

func (e *llamaEngine) maxTokens() int {
	if v, ok := e.opts["max_new_tokens"]; ok {
		if f, ok := v.(float64); ok && f > 0 {
			return int(f)
		}
		if n, ok := v.(int); ok && n > 0 {
			return n
		}
	}
	return DefaultMaxNewTokens
}

func (e *llamaEngine) Respond(ctx context.Context, history []types.Turn, sink io.Writer, stopSentinel string, batch int) error {
	if e.model == nil {
		return ErrEngineUnavailable("llama model not loaded")
	}
	prompt := renderPrompt(history)
	start := time.Now()
	firstToken := time.Time{}
	generated := 0

	e.model.SetTokenCallback(func(tok string) bool {
		select {
		case <-ctx.Done():
			return false
		default:
		}
		if firstToken.IsZero() {
			firstToken = time.Now()
		}
		generated++
		if _, err := io.WriteString(sink, tok); err != nil {
			return false
		}
		return true
	})
	_, err := e.model.Predict(prompt,
		llama.SetThreads(e.threads),
		llama.SetTokens(e.maxTokens()),
	)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	e.stats.PromptLen = len(prompt)
	e.stats.GenLen = generated
	if !firstToken.IsZero() {
		e.stats.PrefillUs = firstToken.Sub(start).Microseconds()
		e.stats.DecodeUs = time.Since(firstToken).Microseconds()
	}
	// Generation finished on the engine side: close the stream.
	_, err = io.WriteString(sink, stopSentinel)
	return err
}

func (e *llamaEngine) Generate(ctx context.Context, n int) error {
	// Predict runs to completion in Respond; nothing further to produce.
	return nil
}

func (e *llamaEngine) GenerateWaveform() error {
	return ErrEngineUnavailable("audio synthesis not supported by the llama engine")
}

func (e *llamaEngine) Context() *types.ContextStats { return e.stats }

func (e *llamaEngine) SetWaveformCallback(cb WaveformFunc) { e.waveCb = cb }

func (e *llamaEngine) Close() error {
	if e.model != nil {
		e.model.Free()
		e.model = nil
	}
	e.stats = nil
	return nil
}
