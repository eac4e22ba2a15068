// Package local provides in-process capability backends: a function tool
// set, a rule-based router, a delimiter planner, a static datasource and an
// echo model. They serve development, tests and deployments that need no
// external services.
package local

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/arborflow/arbor/pkg/domain"
)

// ToolFunc is the signature of an in-process tool implementation.
type ToolFunc func(ctx context.Context, args map[string]any) (any, error)

// ToolSet maps tool function names to implementations. A tool capability
// with backend provider "builtin" resolves into one of these by its
// configured function name.
type ToolSet struct {
	mu    sync.RWMutex
	funcs map[string]ToolFunc
}

// NewToolSet creates a set preloaded with the builtin functions.
func NewToolSet() *ToolSet {
	ts := &ToolSet{funcs: map[string]ToolFunc{}}
	ts.Register("clock", clockTool)
	ts.Register("echo", echoTool)
	return ts
}

// Register adds or replaces a function.
func (ts *ToolSet) Register(name string, fn ToolFunc) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.funcs[name] = fn
}

// Func returns the named function.
func (ts *ToolSet) Func(name string) (ToolFunc, error) {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	fn, ok := ts.funcs[name]
	if !ok {
		return nil, domain.NewError(domain.CodeCapabilityNotFound, "builtin tool function %q not registered", name)
	}
	return fn, nil
}

// FuncTool adapts one registered function to ports.ToolBackend.
type FuncTool struct {
	fn ToolFunc
}

// NewFuncTool wraps a function as a tool backend.
func NewFuncTool(fn ToolFunc) *FuncTool { return &FuncTool{fn: fn} }

// Execute implements ports.ToolBackend.
func (t *FuncTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	return t.fn(ctx, args)
}

func clockTool(ctx context.Context, args map[string]any) (any, error) {
	layout := time.RFC3339
	if l, ok := args["layout"].(string); ok && l != "" {
		layout = l
	}
	return time.Now().UTC().Format(layout), nil
}

func echoTool(ctx context.Context, args map[string]any) (any, error) {
	if text, ok := args["text"]; ok {
		return text, nil
	}
	return nil, fmt.Errorf("echo: missing %q argument", "text")
}
