package automation

import "context"

// PlaceholderSiteTitle is implicitly the first placeholder of every
// script definition.
const PlaceholderSiteTitle = "site_title"

// ForcedTriggerable fixes which trigger (and trigger state) an
// automation instance uses, ignoring instance-level configuration.
type ForcedTriggerable struct {
	Triggerable string         `json:"triggerable"`
	State       map[string]any `json:"state"`
}

// ScriptDefinition is an immutable, named, versioned automation
// behavior. Instances are built by ScriptRegistry.Add and never
// mutated afterwards.
type ScriptDefinition struct {
	name         string
	version      int
	fields       []FieldDefinition
	placeholders []string
	forced       *ForcedTriggerable
	run          Hook
	onReset      Hook
}

func (d *ScriptDefinition) Name() string { return d.name }

func (d *ScriptDefinition) Version() int { return d.version }

// Fields returns the declared fields in declaration order.
func (d *ScriptDefinition) Fields() []FieldDefinition {
	out := make([]FieldDefinition, len(d.fields))
	copy(out, d.fields)
	return out
}

// Placeholders returns site_title followed by the declared placeholders
// in declaration order. Duplicates are kept as declared.
func (d *ScriptDefinition) Placeholders() []string {
	out := make([]string, 0, len(d.placeholders)+1)
	out = append(out, PlaceholderSiteTitle)
	out = append(out, d.placeholders...)
	return out
}

func (d *ScriptDefinition) ForcedTriggerable() *ForcedTriggerable {
	if d.forced == nil {
		return nil
	}
	state := make(map[string]any, len(d.forced.State))
	for k, v := range d.forced.State {
		state[k] = v
	}
	return &ForcedTriggerable{Triggerable: d.forced.Triggerable, State: state}
}

// Triggerables returns the trigger names this script may bind to. A
// forced triggerable narrows it to exactly that one; otherwise nil is
// returned, meaning any registered trigger.
func (d *ScriptDefinition) Triggerables() []string {
	if d.forced != nil {
		return []string{d.forced.Triggerable}
	}
	return nil
}

// Run executes the script body. A definition without one is a no-op.
func (d *ScriptDefinition) Run(ctx context.Context, run *Run) error {
	if d.run == nil {
		return nil
	}
	return d.run(ctx, run)
}

// OnReset executes the reset body. A definition without one is a no-op.
func (d *ScriptDefinition) OnReset(ctx context.Context, run *Run) error {
	if d.onReset == nil {
		return nil
	}
	return d.onReset(ctx, run)
}

// TriggerDefinition is an immutable trigger type: a name plus the
// field schema its bindings are configured with.
type TriggerDefinition struct {
	name   string
	fields []FieldDefinition
}

func (d *TriggerDefinition) Name() string { return d.name }

func (d *TriggerDefinition) Fields() []FieldDefinition {
	out := make([]FieldDefinition, len(d.fields))
	copy(out, d.fields)
	return out
}
