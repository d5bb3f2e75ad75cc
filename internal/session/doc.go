// Package session owns conversation state and generation orchestration in
// front of a token-generating engine. It is structured into small files by
// concern:
//
//   - session.go: core Session type, constructor, history operations.
//   - config.go: per-session Config, defaults, dialect marker constants.
//   - respond.go: generation state machine (Send/SendWithHistory).
//   - sentinel.go: stop-sentinel matcher over the decoded character stream.
//   - template.go: plain/reasoning prompt dialect helpers.
//   - overlay.go: mutable engine-config overlay (UpdateConfig and friends).
//   - engine.go: Engine contract consumed by the session.
//   - engine_llama.go: in-process llama.cpp engine (build tag 'llama').
//   - engine_llama_stub.go: no-CGO stub when the tag is not set.
//   - engine_server.go: llama-server subprocess engine.
//   - manager.go: process-wide handle table mapping int64 ids to sessions.
//   - errors.go: error types and helpers (IsSessionNotFound, IsBusy, ...).
//   - events.go: lifecycle event publishing.
//
// A Session assumes at most one in-flight generation; Send and
// SendWithHistory reject concurrent calls with a busy error. All other
// mutation (history, prompts, overlay) is unsynchronized by design and must
// happen from the same execution context that drives generation.
package session
