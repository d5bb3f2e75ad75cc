package session

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"sessiond/pkg/types"
)

// ManagerConfig encapsulates all tunables for Manager construction.
type ManagerConfig struct {
	Registry     []types.Model
	DefaultModel string

	// Per-session defaults; CreateSessionRequest fields override them.
	MaxNewTokens int
	SystemPrompt string
	// KeepHistory default for new sessions; nil means true.
	KeepHistory *bool
	Reasoning   bool
	AudioOutput bool

	// llama-server subprocess engine configuration. When ServerBin is set
	// sessions are backed by a spawned server; otherwise the in-process
	// llama engine is used.
	ServerBin  string
	ServerHost string
	PortMin    int
	PortMax    int

	// In-process llama engine configuration.
	LlamaCtx     int
	LlamaThreads int

	Publisher EventPublisher
	Logger    zerolog.Logger
}

// Manager is the process-wide handle table: it maps opaque int64 ids to
// owned sessions with explicit create/lookup/destroy, so no raw pointer
// ever crosses an API boundary.
type Manager struct {
	mu        sync.Mutex
	seq       int64
	sessions  map[int64]*Session
	cfg       ManagerConfig
	publisher EventPublisher
	log       zerolog.Logger
	startTime time.Time

	// engineFactory builds the engine backing a new session. Overridable
	// for tests via SetEngineFactory.
	engineFactory func(model types.Model) Engine
}

// NewWithConfig constructs a Manager from ManagerConfig, applying defaults.
func NewWithConfig(cfg ManagerConfig) *Manager {
	if cfg.MaxNewTokens <= 0 {
		cfg.MaxNewTokens = DefaultMaxNewTokens
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = DefaultSystemPrompt
	}
	m := &Manager{
		sessions:  make(map[int64]*Session),
		cfg:       cfg,
		publisher: cfg.Publisher,
		log:       cfg.Logger,
		startTime: time.Now(),
	}
	if m.publisher == nil {
		m.publisher = noopPublisher{}
	}
	if cfg.ServerBin != "" {
		m.engineFactory = func(model types.Model) Engine {
			return NewServerEngine(ServerEngineConfig{
				Bin:       cfg.ServerBin,
				Host:      cfg.ServerHost,
				PortMin:   cfg.PortMin,
				PortMax:   cfg.PortMax,
				ModelPath: model.Path,
			})
		}
	} else {
		m.engineFactory = func(model types.Model) Engine {
			return NewLlamaEngine(model.Path, cfg.LlamaCtx, cfg.LlamaThreads)
		}
	}
	return m
}

// SetEngineFactory overrides how engines are built for new sessions.
func (m *Manager) SetEngineFactory(f func(model types.Model) Engine) {
	if f != nil {
		m.engineFactory = f
	}
}

// Create builds, registers and loads a new session, returning its handle.
// A failed engine load still registers the session: it stays unusable until
// released, and generation calls against it report nil stats. This mirrors
// the engine contract where load failures surface only as a nil context.
func (m *Manager) Create(req types.CreateSessionRequest) (int64, *Session, error) {
	modelID := req.Model
	if modelID == "" {
		modelID = m.cfg.DefaultModel
		if modelID == "" {
			return 0, nil, modelNotFoundError{id: "(unspecified)"}
		}
	}
	model, ok := m.modelByID(modelID)
	if !ok {
		return 0, nil, modelNotFoundError{id: modelID}
	}

	keep := true
	if req.KeepHistory != nil {
		keep = *req.KeepHistory
	} else if m.cfg.KeepHistory != nil {
		keep = *m.cfg.KeepHistory
	}
	cfg := Config{
		ModelID:      model.ID,
		ModelPath:    model.Path,
		MaxNewTokens: req.MaxNewTokens,
		SystemPrompt: req.SystemPrompt,
		KeepHistory:  keep,
		Reasoning:    req.Reasoning || m.cfg.Reasoning,
		AudioOutput:  req.AudioOutput || m.cfg.AudioOutput,
	}
	if cfg.MaxNewTokens <= 0 {
		cfg.MaxNewTokens = m.cfg.MaxNewTokens
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = m.cfg.SystemPrompt
	}

	sess := New(cfg, m.engineFactory(model), req.History, m.log)
	if err := sess.Load(); err != nil {
		m.log.Warn().Err(err).Str("model", model.ID).Msg("session created unloaded")
	}

	m.mu.Lock()
	m.seq++
	id := m.seq
	m.sessions[id] = sess
	m.mu.Unlock()
	m.publisher.Publish(Event{Name: "session_created", SessionID: id, Model: model.ID})
	return id, sess, nil
}

// Get looks up a session by handle.
func (m *Manager) Get(id int64) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Release destroys a session and closes its engine.
func (m *Manager) Release(id int64) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()
	if !ok {
		return sessionNotFoundError{id: id}
	}
	if err := s.Close(); err != nil {
		m.log.Warn().Err(err).Int64("session", id).Msg("engine close failed")
	}
	m.publisher.Publish(Event{Name: "session_released", SessionID: id, Model: s.ModelID()})
	return nil
}

// List summarizes live sessions ordered by handle.
func (m *Manager) List() []types.SessionInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]types.SessionInfo, 0, len(m.sessions))
	for id, s := range m.sessions {
		out = append(out, types.SessionInfo{
			SessionID: id,
			Model:     s.ModelID(),
			Turns:     s.TurnCount(),
			Loaded:    s.Loaded(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SessionID < out[j].SessionID })
	return out
}

// Models returns a copy of the registry.
func (m *Manager) Models() []types.Model {
	out := make([]types.Model, len(m.cfg.Registry))
	copy(out, m.cfg.Registry)
	return out
}

// Status reports a snapshot for the status endpoint.
func (m *Manager) Status() types.StatusResponse {
	m.mu.Lock()
	n := len(m.sessions)
	m.mu.Unlock()
	now := time.Now()
	return types.StatusResponse{
		Sessions:       n,
		Models:         len(m.cfg.Registry),
		DefaultModel:   m.cfg.DefaultModel,
		UptimeSeconds:  int64(now.Sub(m.startTime).Seconds()),
		ServerTimeUnix: now.Unix(),
	}
}

// Ready reports whether the manager can serve create requests.
func (m *Manager) Ready() bool { return len(m.cfg.Registry) > 0 }

func (m *Manager) modelByID(id string) (types.Model, bool) {
	for _, mdl := range m.cfg.Registry {
		if mdl.ID == id {
			return mdl, true
		}
	}
	return types.Model{}, false
}
