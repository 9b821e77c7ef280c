// Package compiler defines the capability boundary to script-compiler
// engines. The orchestrator drives engines exclusively through the Engine
// interface and its two callbacks; it has no compile-time dependency on any
// engine's internals.
package compiler

import (
	"sort"
	"sync"

	"github.com/teranos/forge/errors"
	"github.com/teranos/forge/resman"
)

// Outcome codes returned by Engine.Compile. Zero is success; CodeSkip is
// the distinguished non-error sentinel for sources with nothing to compile
// (an include-only file, for example). Any other code is an engine error
// accompanied by a message.
const (
	CodeSuccess = 0
	CodeSkip    = -1
)

// Result is the engine's verdict for one source.
type Result struct {
	Code    int
	Message string
}

// ResolveFunc resolves a named resource on behalf of the engine. It returns
// the resource content and true, or nil and false when the resource is
// absent. Whether a miss is fatal is the engine's call, not the resolver's.
type ResolveFunc func(id resman.ResourceID) ([]byte, bool)

// WriteFunc persists one named output artifact. Writes are assumed to
// succeed, so the callback carries no error return; failures are the
// implementation's to log.
type WriteFunc func(name string, typ resman.Type, data []byte)

// Config carries the engine options forwarded from the command line.
type Config struct {
	DebugSymbols bool
}

// Engine compiles sources by base name, resolving dependencies and writing
// artifacts through the callbacks it was created with.
//
// An Engine instance is owned by exactly one worker goroutine: Compile is
// not safe for concurrent use on the same instance. Workers each create
// their own engine through a Factory.
type Engine interface {
	Compile(baseName string) Result
}

// Factory creates an engine bound to a worker's callbacks.
type Factory func(cfg Config, write WriteFunc, resolve ResolveFunc) (Engine, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

// Register makes an engine factory available under a name. Typically called
// from an engine package's init. Registering the same name twice panics;
// that is a programming error, not a runtime condition.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := registry[name]; dup {
		panic("compiler: duplicate engine registration: " + name)
	}
	registry[name] = factory
}

// Lookup returns the factory registered under name.
func Lookup(name string) (Factory, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	factory, ok := registry[name]
	if !ok {
		return nil, errors.WithHintf(
			errors.Wrapf(errors.ErrEngineUnavailable, "no engine registered as %q", name),
			"available engines: %v", Engines())
	}
	return factory, nil
}

// Engines lists the registered engine names, sorted.
func Engines() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
