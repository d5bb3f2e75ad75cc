package session

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"sessiond/pkg/types"
)

// ServerEngineConfig configures the llama-server subprocess engine.
type ServerEngineConfig struct {
	// Bin is the llama-server binary path.
	Bin string
	// Host to bind the spawned server to; defaults to 127.0.0.1.
	Host string
	// PortMin/PortMax restrict the port choice; zero picks any free port.
	PortMin int
	PortMax int
	// ModelPath is the model file the server loads.
	ModelPath string
	// ReadyTimeout bounds the wait for readiness; defaults to 30s.
	ReadyTimeout time.Duration
}

// serverEngine spawns one llama-server per session and streams its native
// /completion SSE output into the bound sink. The whole reply arrives in
// the first Respond pass; the stop sentinel is appended when the server
// reports completion.
type serverEngine struct {
	cfg        ServerEngineConfig
	opts       map[string]any
	httpClient *http.Client

	cmd     *exec.Cmd
	baseURL string
	stats   *types.ContextStats
	waveCb  WaveformFunc
}

// NewServerEngine constructs a subprocess-backed engine.
func NewServerEngine(cfg ServerEngineConfig) Engine {
	if strings.TrimSpace(cfg.Host) == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = 30 * time.Second
	}
	// Intentionally Timeout=0: all calls carry context-based deadlines.
	return &serverEngine{cfg: cfg, opts: map[string]any{}, httpClient: &http.Client{Timeout: 0}}
}

func (e *serverEngine) SetConfig(configJSON string) error {
	patch := map[string]any{}
	if err := json.Unmarshal([]byte(configJSON), &patch); err != nil {
		return err
	}
	for k, v := range patch {
		e.opts[k] = v
	}
	return nil
}

func (e *serverEngine) Load() error {
	if strings.TrimSpace(e.cfg.Bin) == "" {
		return ErrEngineUnavailable("llama-server binary not configured")
	}
	if strings.TrimSpace(e.cfg.ModelPath) == "" {
		return errors.New("model path is empty")
	}
	port, err := e.pickPort()
	if err != nil {
		return err
	}
	baseURL := fmt.Sprintf("http://%s:%d", e.cfg.Host, port)

	cmd := exec.Command(e.cfg.Bin,
		"-m", e.cfg.ModelPath,
		"--host", e.cfg.Host,
		"--port", fmt.Sprint(port),
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start llama-server: %w", err)
	}

	waitErrCh := make(chan error, 1)
	go func() { waitErrCh <- cmd.Wait() }()

	deadline := time.Now().Add(e.cfg.ReadyTimeout)
	for {
		if time.Now().After(deadline) {
			_ = cmd.Process.Kill()
			return fmt.Errorf("llama-server not ready in time: %s", baseURL)
		}
		select {
		case werr := <-waitErrCh:
			tail := stderr.String()
			if len(tail) > 4096 {
				tail = tail[len(tail)-4096:]
			}
			if werr != nil {
				return fmt.Errorf("llama-server exited early: %v; stderr tail: %s", werr, tail)
			}
			return fmt.Errorf("llama-server exited before ready: %s", baseURL)
		default:
		}
		if e.isHealthy(baseURL, time.Second) {
			break
		}
		time.Sleep(100 * time.Millisecond)
	}
	e.cmd = cmd
	e.baseURL = baseURL
	e.stats = &types.ContextStats{}
	return nil
}

func (e *serverEngine) isHealthy(baseURL string, timeout time.Duration) bool {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := e.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

func (e *serverEngine) pickPort() (int, error) {
	if e.cfg.PortMin > 0 && e.cfg.PortMax >= e.cfg.PortMin {
		for p := e.cfg.PortMin; p <= e.cfg.PortMax; p++ {
			l, err := net.Listen("tcp", fmt.Sprintf("%s:%d", e.cfg.Host, p))
			if err != nil {
				continue
			}
			_ = l.Close()
			return p, nil
		}
		return 0, fmt.Errorf("no free port in range %d-%d", e.cfg.PortMin, e.cfg.PortMax)
	}
	l, err := net.Listen("tcp", e.cfg.Host+":0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// completionRequest is llama-server's native streaming request.
type completionRequest struct {
	Prompt   string `json:"prompt"`
	NPredict int    `json:"n_predict,omitempty"`
	Stream   bool   `json:"stream"`
}

// completionChunk is one SSE data payload from /completion.
type completionChunk struct {
	Content         string `json:"content"`
	Stop            bool   `json:"stop"`
	TokensPredicted int    `json:"tokens_predicted"`
	TokensEvaluated int    `json:"tokens_evaluated"`
	Timings         struct {
		PromptMS    float64 `json:"prompt_ms"`
		PredictedMS float64 `json:"predicted_ms"`
	} `json:"timings"`
}

func (e *serverEngine) maxTokens() int {
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

func (e *serverEngine) Respond(ctx context.Context, history []types.Turn, sink io.Writer, stopSentinel string, batch int) error {
	if e.baseURL == "" {
		return ErrEngineUnavailable("llama-server not loaded")
	}
	payload := completionRequest{
		Prompt:   renderPrompt(history),
		NPredict: e.maxTokens(),
		Stream:   true,
	}
	body, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/completion", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := e.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("llama-server http error: %s: %s", resp.Status, string(b))
	}

	r := bufio.NewReader(resp.Body)
	for {
		line, err := r.ReadString('\n')
		if len(line) > 0 {
			l := strings.TrimSpace(line)
			if l != "" && strings.HasPrefix(strings.ToLower(l), "data:") {
				data := strings.TrimSpace(l[len("data:"):])
				var chunk completionChunk
				if e2 := json.Unmarshal([]byte(data), &chunk); e2 == nil {
					if chunk.Content != "" {
						if _, werr := io.WriteString(sink, chunk.Content); werr != nil {
							return werr
						}
					}
					if chunk.Stop {
						e.stats.PromptLen = chunk.TokensEvaluated
						e.stats.GenLen = chunk.TokensPredicted
						e.stats.PrefillUs = int64(chunk.Timings.PromptMS * 1000)
						e.stats.DecodeUs = int64(chunk.Timings.PredictedMS * 1000)
						_, werr := io.WriteString(sink, stopSentinel)
						return werr
					}
				}
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
	}
	// Stream ended without a stop chunk; the session's extension loop and
	// token budget take over from here.
	return nil
}

func (e *serverEngine) Generate(ctx context.Context, n int) error {
	// The server streams the full reply in Respond; nothing to extend.
	return nil
}

func (e *serverEngine) GenerateWaveform() error {
	return ErrEngineUnavailable("audio synthesis not supported by the llama-server engine")
}

func (e *serverEngine) Context() *types.ContextStats { return e.stats }

func (e *serverEngine) SetWaveformCallback(cb WaveformFunc) { e.waveCb = cb }

// Close terminates the spawned server, SIGTERM first, kill after a grace
// period.
func (e *serverEngine) Close() error {
	e.stats = nil
	e.baseURL = ""
	if e.cmd == nil || e.cmd.Process == nil {
		return nil
	}
	_ = e.cmd.Process.Signal(syscall.SIGTERM)
	done := make(chan struct{})
	go func() {
		_, _ = e.cmd.Process.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		_ = e.cmd.Process.Kill()
		_, _ = e.cmd.Process.Wait()
	}
	e.cmd = nil
	return nil
}
