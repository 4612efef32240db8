package automation

import "fmt"

// ScriptBuilder accumulates the declarative calls of one script
// registration. It is only valid inside the callback passed to
// ScriptRegistry.Add.
type ScriptBuilder struct {
	version      int
	fields       []FieldDefinition
	placeholders []string
	forced       *ForcedTriggerable
	run          Hook
	onReset      Hook

	seen map[string]struct{}
	err  error
}

func newScriptBuilder() *ScriptBuilder {
	return &ScriptBuilder{version: 1, seen: make(map[string]struct{})}
}

// Version sets the definition version.
func (b *ScriptBuilder) Version(n int) { b.version = n }

// Placeholder declares a named substitution slot. site_title is always
// implied and must not be declared.
func (b *ScriptBuilder) Placeholder(name string) {
	b.placeholders = append(b.placeholders, name)
}

// Field declares one configurable input. Names must be unique within
// the definition; a repeated name fails the registration with
// ErrDuplicateField.
func (b *ScriptBuilder) Field(name string, spec FieldSpec) {
	b.fields, b.seen, b.err = appendField(b.fields, b.seen, b.err, name, spec)
}

// ForceTriggerable fixes the trigger binding of every instance of this
// script, overriding instance-level trigger selection.
func (b *ScriptBuilder) ForceTriggerable(triggerable string, state map[string]any) {
	copied := make(map[string]any, len(state))
	for k, v := range state {
		copied[k] = v
	}
	b.forced = &ForcedTriggerable{Triggerable: triggerable, State: copied}
}

// Script sets the run hook. The body executes only when a trigger
// fires, never at registration time.
func (b *ScriptBuilder) Script(fn Hook) { b.run = fn }

// OnReset sets the reset hook.
func (b *ScriptBuilder) OnReset(fn Hook) { b.onReset = fn }

func (b *ScriptBuilder) finalize(name string) (*ScriptDefinition, error) {
	if b.err != nil {
		return nil, b.err
	}
	return &ScriptDefinition{
		name:         name,
		version:      b.version,
		fields:       b.fields,
		placeholders: b.placeholders,
		forced:       b.forced,
		run:          b.run,
		onReset:      b.onReset,
	}, nil
}

// TriggerBuilder is the field-only restriction of ScriptBuilder used
// for trigger registrations.
type TriggerBuilder struct {
	fields []FieldDefinition

	seen map[string]struct{}
	err  error
}

func newTriggerBuilder() *TriggerBuilder {
	return &TriggerBuilder{seen: make(map[string]struct{})}
}

// Field declares one configurable input of the trigger binding.
func (b *TriggerBuilder) Field(name string, spec FieldSpec) {
	b.fields, b.seen, b.err = appendField(b.fields, b.seen, b.err, name, spec)
}

func (b *TriggerBuilder) finalize(name string) (*TriggerDefinition, error) {
	if b.err != nil {
		return nil, b.err
	}
	return &TriggerDefinition{name: name, fields: b.fields}, nil
}

// appendField implements the shared declaration rules: name required,
// unique within the definition, declaration order preserved. The first
// error wins and poisons the registration.
func appendField(fields []FieldDefinition, seen map[string]struct{}, err error, name string, spec FieldSpec) ([]FieldDefinition, map[string]struct{}, error) {
	if err != nil {
		return fields, seen, err
	}
	if name == "" {
		return fields, seen, fmt.Errorf("%w: name required", ErrInvalidField)
	}
	if _, ok := seen[name]; ok {
		return fields, seen, fmt.Errorf("%w: %s", ErrDuplicateField, name)
	}
	seen[name] = struct{}{}
	return append(fields, newFieldDefinition(name, spec)), seen, nil
}
