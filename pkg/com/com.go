// Package com defines the Context Object Model contract the fiber compiler
// consumes, and ships one reference in-memory implementation so the
// compiler is exercisable without a production COM wired in.
//
// The state store keeps a subscriber map keyed by an opaque id and notifies
// outside the value lock; the tool registry is a plain name-keyed
// upsert-by-name map.
package com

import (
	"context"
	"sync"
)

// ToolMetadata is the caller-facing description of a registered tool.
type ToolMetadata struct {
	Name        string
	Description string
	Input       any // typically a JSON-schema-shaped map[string]any
}

// Tool pairs metadata with its runner. Run receives the raw input payload
// decoded from the calling model's tool-call arguments.
type Tool struct {
	Metadata ToolMetadata
	Run      func(ctx context.Context, input map[string]any) (any, error)
}

// StateChangeHandler is invoked when a COM-tracked key changes.
type StateChangeHandler func(key string, value any)

// COM is the external, process-wide keyed state store and tool registry
// shared by components and the engine.
type COM interface {
	GetState(key string) (any, bool)
	SetState(key string, value any)

	// On registers handler for the named event ("state:changed" is the only
	// event this store emits) and returns an id usable with Off.
	On(event string, handler StateChangeHandler) int
	Off(event string, id int)

	AddTool(tool Tool) error
	GetTool(name string) (Tool, bool)

	SetRef(name string, instance any)
	RemoveRef(name string)

	RequestRecompile(reason string)
	ResetRecompileRequest()
	WasRecompileRequested() bool
	RecompileReasons() []string
}

// Memory is a reference in-memory COM implementation: not a production
// collaborator, but enough of one to drive ComState/Watch hooks and tool
// re-registration in tests and the aidkc CLI demo.
type Memory struct {
	mu    sync.RWMutex
	state map[string]any

	handlersMu sync.Mutex
	nextHandle int
	handlers   map[string]map[int]StateChangeHandler

	toolsMu sync.RWMutex
	tools   map[string]Tool

	refsMu sync.Mutex
	refs   map[string]any

	recompileMu      sync.Mutex
	recompileWanted  bool
	recompileReasons []string
}

// NewMemory creates an empty in-memory COM.
func NewMemory() *Memory {
	return &Memory{
		state:    make(map[string]any),
		handlers: make(map[string]map[int]StateChangeHandler),
		tools:    make(map[string]Tool),
		refs:     make(map[string]any),
	}
}

// GetState returns the current value for key, if any.
func (m *Memory) GetState(key string) (any, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.state[key]
	return v, ok
}

// SetState stores value under key and fires "state:changed" handlers.
func (m *Memory) SetState(key string, value any) {
	m.mu.Lock()
	m.state[key] = value
	m.mu.Unlock()

	m.handlersMu.Lock()
	var cbs []StateChangeHandler
	for _, h := range m.handlers["state:changed"] {
		cbs = append(cbs, h)
	}
	m.handlersMu.Unlock()

	for _, h := range cbs {
		h(key, value)
	}
}

// On registers handler for event and returns a handle for Off.
func (m *Memory) On(event string, handler StateChangeHandler) int {
	m.handlersMu.Lock()
	defer m.handlersMu.Unlock()
	if m.handlers[event] == nil {
		m.handlers[event] = make(map[int]StateChangeHandler)
	}
	m.nextHandle++
	id := m.nextHandle
	m.handlers[event][id] = handler
	return id
}

// Off removes a previously registered handler.
func (m *Memory) Off(event string, id int) {
	m.handlersMu.Lock()
	defer m.handlersMu.Unlock()
	delete(m.handlers[event], id)
}

// AddTool registers or replaces a tool by name.
func (m *Memory) AddTool(tool Tool) error {
	m.toolsMu.Lock()
	defer m.toolsMu.Unlock()
	m.tools[tool.Metadata.Name] = tool
	return nil
}

// GetTool looks up a tool by name.
func (m *Memory) GetTool(name string) (Tool, bool) {
	m.toolsMu.RLock()
	defer m.toolsMu.RUnlock()
	t, ok := m.tools[name]
	return t, ok
}

// SetRef stores an opaque component/class instance reference by name.
func (m *Memory) SetRef(name string, instance any) {
	m.refsMu.Lock()
	defer m.refsMu.Unlock()
	m.refs[name] = instance
}

// RemoveRef clears a previously stored ref.
func (m *Memory) RemoveRef(name string) {
	m.refsMu.Lock()
	defer m.refsMu.Unlock()
	delete(m.refs, name)
}

// RequestRecompile records a pending recompile reason.
func (m *Memory) RequestRecompile(reason string) {
	m.recompileMu.Lock()
	defer m.recompileMu.Unlock()
	m.recompileWanted = true
	m.recompileReasons = append(m.recompileReasons, reason)
}

// ResetRecompileRequest clears the pending flag and accumulated reasons.
func (m *Memory) ResetRecompileRequest() {
	m.recompileMu.Lock()
	defer m.recompileMu.Unlock()
	m.recompileWanted = false
	m.recompileReasons = nil
}

// WasRecompileRequested reports whether RequestRecompile has been called
// since the last reset.
func (m *Memory) WasRecompileRequested() bool {
	m.recompileMu.Lock()
	defer m.recompileMu.Unlock()
	return m.recompileWanted
}

// RecompileReasons returns the reasons accumulated since the last reset, in
// request order.
func (m *Memory) RecompileReasons() []string {
	m.recompileMu.Lock()
	defer m.recompileMu.Unlock()
	out := make([]string, len(m.recompileReasons))
	copy(out, m.recompileReasons)
	return out
}

var _ COM = (*Memory)(nil)
