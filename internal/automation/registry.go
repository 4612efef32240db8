package automation

import (
	"fmt"
	"sort"
	"sync"
)

// ScriptRegistry holds the script definitions of the process. Writes
// happen at startup (or on hot reload) under a single writer lock; a
// definition becomes visible to readers only after its builder callback
// has fully completed.
type ScriptRegistry struct {
	mu   sync.RWMutex
	defs map[string]*ScriptDefinition
}

func NewScriptRegistry() *ScriptRegistry {
	return &ScriptRegistry{defs: make(map[string]*ScriptDefinition)}
}

// Add evaluates build against a fresh builder and publishes the
// resulting definition under name. Re-adding a name replaces the
// previous definition.
func (r *ScriptRegistry) Add(name string, build func(*ScriptBuilder)) error {
	if name == "" {
		return fmt.Errorf("script name required")
	}
	b := newScriptBuilder()
	if build != nil {
		build(b)
	}
	def, err := b.finalize(name)
	if err != nil {
		return fmt.Errorf("script %q: %w", name, err)
	}
	r.mu.Lock()
	r.defs[name] = def
	r.mu.Unlock()
	return nil
}

// Get returns the definition registered under name.
func (r *ScriptRegistry) Get(name string) (*ScriptDefinition, error) {
	r.mu.RLock()
	def, ok := r.defs[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("script %q: %w", name, ErrNotFound)
	}
	return def, nil
}

// All returns the registered script names, sorted for deterministic
// listings.
func (r *ScriptRegistry) All() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.defs))
	for name := range r.defs {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

// TriggerRegistry holds the trigger-type definitions of the process.
// Same publication discipline as ScriptRegistry.
type TriggerRegistry struct {
	mu   sync.RWMutex
	defs map[string]*TriggerDefinition
}

func NewTriggerRegistry() *TriggerRegistry {
	return &TriggerRegistry{defs: make(map[string]*TriggerDefinition)}
}

func (r *TriggerRegistry) Add(name string, build func(*TriggerBuilder)) error {
	if name == "" {
		return fmt.Errorf("trigger name required")
	}
	b := newTriggerBuilder()
	if build != nil {
		build(b)
	}
	def, err := b.finalize(name)
	if err != nil {
		return fmt.Errorf("trigger %q: %w", name, err)
	}
	r.mu.Lock()
	r.defs[name] = def
	r.mu.Unlock()
	return nil
}

func (r *TriggerRegistry) Get(name string) (*TriggerDefinition, error) {
	r.mu.RLock()
	def, ok := r.defs[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("trigger %q: %w", name, ErrNotFound)
	}
	return def, nil
}

func (r *TriggerRegistry) All() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.defs))
	for name := range r.defs {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}
