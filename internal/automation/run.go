package automation

import "context"

// Run is the execution context handed to a script hook when a trigger
// fires. Collaborators (dispatcher, placeholder engine, ...) are not in
// here: hooks capture them at registration time.
type Run struct {
	AutomationID   uint
	AutomationName string

	// Trigger and State are the effective binding, after the forced
	// triggerable override has been applied.
	Trigger string
	State   map[string]any

	// Fields holds the instance's configured field values keyed by
	// field name.
	Fields map[string]string
}

// Field returns the configured value for name, or def when unset.
func (r *Run) Field(name, def string) string {
	if v, ok := r.Fields[name]; ok && v != "" {
		return v
	}
	return def
}

// Hook is a script's run or reset body.
type Hook func(ctx context.Context, run *Run) error
