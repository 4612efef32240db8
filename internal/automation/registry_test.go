package automation

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func TestScriptRegistry_FieldDefaults(t *testing.T) {
	reg := NewScriptRegistry()
	err := reg.Add("greeter", func(b *ScriptBuilder) {
		b.Field("body", FieldSpec{Component: ComponentMessage})
		b.Field("sender", FieldSpec{Component: ComponentUser, Required: true})
		b.Field("delay", FieldSpec{Component: ComponentNumber, Extra: map[string]any{"min": 0}})
	})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	def, err := reg.Get("greeter")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	fields := def.Fields()
	if len(fields) != 3 {
		t.Fatalf("expected 3 fields, got %d", len(fields))
	}
	// declaration order preserved
	if fields[0].Name != "body" || fields[1].Name != "sender" || fields[2].Name != "delay" {
		t.Fatalf("fields out of declaration order: %+v", fields)
	}
	// defaults applied when unspecified
	body := fields[0]
	if body.AcceptsPlaceholders || body.Required || body.Triggerable != "" {
		t.Errorf("unexpected defaults: %+v", body)
	}
	if body.Extra == nil || len(body.Extra) != 0 {
		t.Errorf("expected empty extra map, got %v", body.Extra)
	}
	if fields[2].Extra["min"] != 0 {
		t.Errorf("extra not carried: %v", fields[2].Extra)
	}
}

func TestScriptRegistry_PlaceholdersStartWithSiteTitle(t *testing.T) {
	reg := NewScriptRegistry()
	if err := reg.Add("p", func(b *ScriptBuilder) {
		b.Placeholder("foo")
		b.Placeholder("bar")
	}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	def, _ := reg.Get("p")
	want := []string{"site_title", "foo", "bar"}
	if got := def.Placeholders(); !reflect.DeepEqual(got, want) {
		t.Errorf("placeholders = %v, want %v", got, want)
	}

	// no declared placeholders: still site_title
	_ = reg.Add("bare", nil)
	def, _ = reg.Get("bare")
	if got := def.Placeholders(); !reflect.DeepEqual(got, []string{"site_title"}) {
		t.Errorf("placeholders = %v, want [site_title]", got)
	}
}

func TestScriptRegistry_DuplicateField(t *testing.T) {
	reg := NewScriptRegistry()
	err := reg.Add("dup", func(b *ScriptBuilder) {
		b.Field("body", FieldSpec{Component: ComponentText})
		b.Field("body", FieldSpec{Component: ComponentMessage})
	})
	if !errors.Is(err, ErrDuplicateField) {
		t.Fatalf("expected ErrDuplicateField, got %v", err)
	}
	// the poisoned registration must not be visible
	if _, err := reg.Get("dup"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after failed registration, got %v", err)
	}
}

func TestScriptRegistry_GetNotFound(t *testing.T) {
	reg := NewScriptRegistry()
	if _, err := reg.Get("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestScriptRegistry_ReAddReplaces(t *testing.T) {
	reg := NewScriptRegistry()
	if err := reg.Add("s", func(b *ScriptBuilder) { b.Version(1) }); err != nil {
		t.Fatalf("first Add: %v", err)
	}
	if err := reg.Add("s", func(b *ScriptBuilder) { b.Version(2) }); err != nil {
		t.Fatalf("second Add must not fail: %v", err)
	}

	if names := reg.All(); len(names) != 1 || names[0] != "s" {
		t.Errorf("All() = %v, want exactly [s]", names)
	}
	def, _ := reg.Get("s")
	if def.Version() != 2 {
		t.Errorf("version = %d, want 2 (last write wins)", def.Version())
	}
}

func TestScriptRegistry_ForcedTriggerable(t *testing.T) {
	reg := NewScriptRegistry()
	if err := reg.Add("walker", func(b *ScriptBuilder) {
		b.ForceTriggerable("dog", map[string]any{"kind": "good_boy"})
	}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	def, _ := reg.Get("walker")
	forced := def.ForcedTriggerable()
	if forced == nil {
		t.Fatal("expected forced triggerable")
	}
	if forced.Triggerable != "dog" || forced.State["kind"] != "good_boy" {
		t.Errorf("forced = %+v", forced)
	}
	if got := def.Triggerables(); !reflect.DeepEqual(got, []string{"dog"}) {
		t.Errorf("Triggerables() = %v, want [dog]", got)
	}

	// returned copy must not leak internal state
	forced.State["kind"] = "bad_boy"
	if def.ForcedTriggerable().State["kind"] != "good_boy" {
		t.Error("forced state mutated through returned copy")
	}
}

func TestScriptRegistry_UnforcedTriggerables(t *testing.T) {
	reg := NewScriptRegistry()
	_ = reg.Add("any", nil)
	def, _ := reg.Get("any")
	if def.Triggerables() != nil {
		t.Errorf("unforced script should accept any trigger, got %v", def.Triggerables())
	}
}

func TestScriptRegistry_HooksRunOnDemand(t *testing.T) {
	reg := NewScriptRegistry()
	ran, reset := 0, 0
	if err := reg.Add("hooks", func(b *ScriptBuilder) {
		b.Script(func(ctx context.Context, run *Run) error { ran++; return nil })
		b.OnReset(func(ctx context.Context, run *Run) error { reset++; return nil })
	}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if ran != 0 || reset != 0 {
		t.Fatal("hook bodies must not execute at registration time")
	}

	def, _ := reg.Get("hooks")
	if err := def.Run(context.Background(), &Run{}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if err := def.OnReset(context.Background(), &Run{}); err != nil {
		t.Fatalf("OnReset: %v", err)
	}
	if ran != 1 || reset != 1 {
		t.Errorf("ran=%d reset=%d, want 1/1", ran, reset)
	}
}

func TestScriptRegistry_NilHooksNoop(t *testing.T) {
	reg := NewScriptRegistry()
	_ = reg.Add("empty", nil)
	def, _ := reg.Get("empty")
	if err := def.Run(context.Background(), &Run{}); err != nil {
		t.Errorf("nil run hook: %v", err)
	}
	if err := def.OnReset(context.Background(), &Run{}); err != nil {
		t.Errorf("nil reset hook: %v", err)
	}
}

func TestTriggerRegistry(t *testing.T) {
	reg := NewTriggerRegistry()
	if err := reg.Add("user_joined", func(b *TriggerBuilder) {
		b.Field("group", FieldSpec{Component: ComponentGroup})
	}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	def, err := reg.Get("user_joined")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if fields := def.Fields(); len(fields) != 1 || fields[0].Name != "group" {
		t.Errorf("fields = %+v", fields)
	}
	if _, err := reg.Get("ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	err = reg.Add("dup", func(b *TriggerBuilder) {
		b.Field("a", FieldSpec{})
		b.Field("a", FieldSpec{})
	})
	if !errors.Is(err, ErrDuplicateField) {
		t.Errorf("expected ErrDuplicateField, got %v", err)
	}
}

func TestRun_Field(t *testing.T) {
	run := &Run{Fields: map[string]string{"title": "hi"}}
	if got := run.Field("title", "x"); got != "hi" {
		t.Errorf("Field = %q", got)
	}
	if got := run.Field("missing", "fallback"); got != "fallback" {
		t.Errorf("Field default = %q", got)
	}
}
