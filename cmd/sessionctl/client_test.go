package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"sessiond/pkg/types"
)

func newStubServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /models", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(types.ModelsResponse{Models: []types.Model{
			{ID: "m1.gguf", Quant: "q4_k_m", Family: "chat"},
		}})
	})
	mux.HandleFunc("POST /sessions", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(types.CreateSessionResponse{SessionID: 7, Model: "m1.gguf"})
	})
	mux.HandleFunc("POST /sessions/7/chat", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-ndjson")
		enc := json.NewEncoder(w)
		_ = enc.Encode(types.ChatEvent{Delta: "Hel"})
		_ = enc.Encode(types.ChatEvent{Delta: "lo"})
		_ = enc.Encode(types.ChatEvent{Done: true, Content: "Hello", Stats: &types.ContextStats{PromptLen: 3, GenLen: 2}})
	})
	mux.HandleFunc("DELETE /sessions/7", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("POST /sessions/8/chat", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: "session not found: 8", Code: 404})
	})
	return httptest.NewServer(mux)
}

func TestClientChatStreamsDeltas(t *testing.T) {
	srv := newStubServer(t)
	defer srv.Close()
	c := &client{baseURL: srv.URL}

	id, model, err := c.createSession("", "", 0, false)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if id != 7 || model != "m1.gguf" {
		t.Fatalf("unexpected session: %d %s", id, model)
	}
	var out strings.Builder
	if err := c.chat(&out, id, "hi"); err != nil {
		t.Fatalf("chat: %v", err)
	}
	if !strings.HasPrefix(out.String(), "Hello") {
		t.Fatalf("output = %q", out.String())
	}
	if !strings.Contains(out.String(), "gen 2 tok") {
		t.Fatalf("missing stats line: %q", out.String())
	}
	if err := c.releaseSession(id); err != nil {
		t.Fatalf("release: %v", err)
	}
}

func TestClientSurfacesServerErrors(t *testing.T) {
	srv := newStubServer(t)
	defer srv.Close()
	c := &client{baseURL: srv.URL}
	err := c.chat(&strings.Builder{}, 8, "hi")
	if err == nil || !strings.Contains(err.Error(), "session not found") {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestClientPrintModels(t *testing.T) {
	srv := newStubServer(t)
	defer srv.Close()
	c := &client{baseURL: srv.URL}
	var out strings.Builder
	if err := c.printModels(&out); err != nil {
		t.Fatalf("models: %v", err)
	}
	if !strings.Contains(out.String(), "m1.gguf") || !strings.Contains(out.String(), "q4_k_m") {
		t.Fatalf("output = %q", out.String())
	}
}
