package session

import (
	"testing"

	"sessiond/pkg/types"
)

func testRegistry() []types.Model {
	return []types.Model{
		{ID: "m1", Name: "m1", Path: "/models/m1.gguf"},
		{ID: "m2", Name: "m2", Path: "/models/m2.gguf"},
	}
}

func fakeFactory(eng *fakeEngine) func(types.Model) Engine {
	return func(types.Model) Engine { return eng }
}

func TestNewWithConfigDefaults(t *testing.T) {
	m := NewWithConfig(ManagerConfig{})
	if m.cfg.MaxNewTokens != DefaultMaxNewTokens {
		t.Fatalf("expected default max tokens %d got %d", DefaultMaxNewTokens, m.cfg.MaxNewTokens)
	}
	if m.cfg.SystemPrompt != DefaultSystemPrompt {
		t.Fatalf("expected default system prompt got %q", m.cfg.SystemPrompt)
	}
}

func TestCreateUnknownModel(t *testing.T) {
	m := NewWithConfig(ManagerConfig{Registry: testRegistry()})
	_, _, err := m.Create(types.CreateSessionRequest{Model: "nope"})
	if !IsModelNotFound(err) {
		t.Fatalf("expected model-not-found got %v", err)
	}
}

func TestCreateNoModelNoDefault(t *testing.T) {
	m := NewWithConfig(ManagerConfig{Registry: testRegistry()})
	_, _, err := m.Create(types.CreateSessionRequest{})
	if !IsModelNotFound(err) {
		t.Fatalf("expected model-not-found got %v", err)
	}
}

func TestCreateUsesDefaultModel(t *testing.T) {
	m := NewWithConfig(ManagerConfig{Registry: testRegistry(), DefaultModel: "m2"})
	m.SetEngineFactory(fakeFactory(&fakeEngine{}))
	id, sess, err := m.Create(types.CreateSessionRequest{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if id != 1 {
		t.Fatalf("expected first handle 1 got %d", id)
	}
	if sess.ModelID() != "m2" {
		t.Fatalf("expected default model m2 got %s", sess.ModelID())
	}
	if !sess.Loaded() {
		t.Fatalf("expected loaded session")
	}
}

func TestCreateRegistersUnloadedOnEngineFailure(t *testing.T) {
	m := NewWithConfig(ManagerConfig{Registry: testRegistry()})
	m.SetEngineFactory(fakeFactory(&fakeEngine{loadErr: ErrEngineUnavailable("down")}))
	id, sess, err := m.Create(types.CreateSessionRequest{Model: "m1"})
	if err != nil {
		t.Fatalf("create must not fail on engine load: %v", err)
	}
	if sess.Loaded() {
		t.Fatalf("expected unloaded session")
	}
	got, ok := m.Get(id)
	if !ok || got != sess {
		t.Fatalf("unloaded session must still be registered")
	}
}

func TestGetAndRelease(t *testing.T) {
	m := NewWithConfig(ManagerConfig{Registry: testRegistry()})
	m.SetEngineFactory(fakeFactory(&fakeEngine{}))
	id, _, err := m.Create(types.CreateSessionRequest{Model: "m1"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, ok := m.Get(id); !ok {
		t.Fatalf("expected session for handle %d", id)
	}
	if err := m.Release(id); err != nil {
		t.Fatalf("release: %v", err)
	}
	if _, ok := m.Get(id); ok {
		t.Fatalf("released session still reachable")
	}
	if err := m.Release(id); !IsSessionNotFound(err) {
		t.Fatalf("expected session-not-found got %v", err)
	}
}

func TestHandlesAreMonotonic(t *testing.T) {
	m := NewWithConfig(ManagerConfig{Registry: testRegistry()})
	m.SetEngineFactory(fakeFactory(&fakeEngine{}))
	a, _, _ := m.Create(types.CreateSessionRequest{Model: "m1"})
	b, _, _ := m.Create(types.CreateSessionRequest{Model: "m1"})
	_ = m.Release(a)
	c, _, _ := m.Create(types.CreateSessionRequest{Model: "m1"})
	if !(a < b && b < c) {
		t.Fatalf("handles must never be reused: %d %d %d", a, b, c)
	}
}

func TestListSortedByHandle(t *testing.T) {
	m := NewWithConfig(ManagerConfig{Registry: testRegistry()})
	m.SetEngineFactory(fakeFactory(&fakeEngine{}))
	_, _, _ = m.Create(types.CreateSessionRequest{Model: "m1"})
	_, _, _ = m.Create(types.CreateSessionRequest{Model: "m2"})
	infos := m.List()
	if len(infos) != 2 {
		t.Fatalf("expected 2 sessions got %d", len(infos))
	}
	if infos[0].SessionID > infos[1].SessionID {
		t.Fatalf("list not sorted: %+v", infos)
	}
	if infos[0].Turns != 1 {
		t.Fatalf("expected system-only history, got %d turns", infos[0].Turns)
	}
}

func TestModelsReturnsCopy(t *testing.T) {
	m := NewWithConfig(ManagerConfig{Registry: testRegistry()})
	out := m.Models()
	out[0].ID = "z"
	if m.Models()[0].ID != "m1" {
		t.Fatalf("registry mutated via returned slice")
	}
}

func TestEventsPublished(t *testing.T) {
	pub := NewMemoryPublisher()
	m := NewWithConfig(ManagerConfig{Registry: testRegistry(), Publisher: pub})
	m.SetEngineFactory(fakeFactory(&fakeEngine{}))
	id, _, _ := m.Create(types.CreateSessionRequest{Model: "m1"})
	_ = m.Release(id)
	events := pub.Events()
	if len(events) != 2 {
		t.Fatalf("expected 2 events got %d", len(events))
	}
	if events[0].Name != "session_created" || events[1].Name != "session_released" {
		t.Fatalf("unexpected events %+v", events)
	}
}

func TestSessionOptionsOverrideManagerDefaults(t *testing.T) {
	m := NewWithConfig(ManagerConfig{Registry: testRegistry(), MaxNewTokens: 64, SystemPrompt: "base"})
	m.SetEngineFactory(fakeFactory(&fakeEngine{}))
	_, sess, err := m.Create(types.CreateSessionRequest{Model: "m1", MaxNewTokens: 8, SystemPrompt: "mine"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if sess.maxNewTokens != 8 {
		t.Fatalf("expected request max tokens got %d", sess.maxNewTokens)
	}
	if sess.SystemPrompt() != "mine" {
		t.Fatalf("expected request system prompt got %q", sess.SystemPrompt())
	}
}

func TestStatusSnapshot(t *testing.T) {
	m := NewWithConfig(ManagerConfig{Registry: testRegistry(), DefaultModel: "m1"})
	m.SetEngineFactory(fakeFactory(&fakeEngine{}))
	_, _, _ = m.Create(types.CreateSessionRequest{Model: "m1"})
	st := m.Status()
	if st.Sessions != 1 || st.Models != 2 || st.DefaultModel != "m1" {
		t.Fatalf("unexpected status %+v", st)
	}
}
