package services

import (
	"context"
	"testing"

	"scriptify/internal/automation"
)

func newSchedulerTestEnv(t *testing.T) (*Scheduler, *testEnv) {
	env := newTestEnv(t)
	if err := env.svc.triggers.Add("recurring", func(b *automation.TriggerBuilder) {}); err != nil {
		t.Fatalf("register trigger: %v", err)
	}
	return NewScheduler(env.svc, env.svc.db, nil), env
}

func TestScheduler_ReloadLoadsRecurring(t *testing.T) {
	sched, env := newSchedulerTestEnv(t)
	ctx := context.Background()

	mk := func(name string, enabled bool, state map[string]any) {
		t.Helper()
		_, err := env.svc.Create(ctx, &AutomationCreateRequest{
			Name: name, Script: "greeter", Trigger: "recurring",
			TriggerState: state, Enabled: &enabled,
		})
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}
	mk("hourly", true, map[string]any{"cron": "@hourly"})
	mk("default_expr", true, nil)
	mk("disabled", false, map[string]any{"cron": "@hourly"})
	mk("bad_expr", true, map[string]any{"cron": "not a cron"})

	if err := sched.Reload(ctx); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got := sched.EntryCount(); got != 2 {
		t.Fatalf("expected 2 entries, got %d", got)
	}

	// A second reload replaces, not accumulates.
	if err := sched.Reload(ctx); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got := sched.EntryCount(); got != 2 {
		t.Fatalf("expected 2 entries after reload, got %d", got)
	}
}

func TestScheduler_ReloadSkipsOtherTriggers(t *testing.T) {
	sched, env := newSchedulerTestEnv(t)
	ctx := context.Background()
	if _, err := env.svc.Create(ctx, &AutomationCreateRequest{
		Name: "on_post", Script: "greeter", Trigger: "post_created",
	}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := sched.Reload(ctx); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got := sched.EntryCount(); got != 0 {
		t.Fatalf("expected 0 entries, got %d", got)
	}
}
