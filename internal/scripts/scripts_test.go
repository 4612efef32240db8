package scripts

import (
	"context"
	"testing"

	"scriptify/internal/automation"
	"scriptify/internal/dispatch"
	"scriptify/internal/models"
	"scriptify/internal/placeholders"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newScriptsTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.Message{}, &models.PendingMessage{}, &models.ActivityEvent{}); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	return db
}

type captureMessenger struct {
	titles []string
	bodies []string
	rcpts  [][]string
}

func (m *captureMessenger) CreateMessage(ctx context.Context, title, body string, recipients []string, source string, automationID uint) (string, error) {
	m.titles = append(m.titles, title)
	m.bodies = append(m.bodies, body)
	m.rcpts = append(m.rcpts, recipients)
	return "msg-1", nil
}

func newScriptsEnv(t *testing.T) (*automation.ScriptRegistry, *captureMessenger, *gorm.DB) {
	db := newScriptsTestDB(t)
	messenger := &captureMessenger{}
	deps := Deps{
		Engine:     placeholders.NewEngine(nil, nil),
		Dispatcher: dispatch.NewDispatcher(db, messenger, nil),
		DB:         db,
		SiteTitle:  "Meowtown",
	}
	reg := automation.NewScriptRegistry()
	if err := RegisterScripts(reg, deps); err != nil {
		t.Fatalf("register scripts: %v", err)
	}
	return reg, messenger, db
}

func TestRegisterScripts_Definitions(t *testing.T) {
	reg, _, _ := newScriptsEnv(t)

	def, err := reg.Get(ScriptSendReport)
	if err != nil {
		t.Fatalf("get send_report: %v", err)
	}
	if def.Version() != 2 {
		t.Fatalf("expected version 2, got %d", def.Version())
	}
	forced := def.ForcedTriggerable()
	if forced == nil || forced.Triggerable != TriggerRecurring {
		t.Fatalf("expected forced recurring trigger, got %+v", forced)
	}
	want := []string{automation.PlaceholderSiteTitle, "automation_name"}
	got := def.Placeholders()
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("placeholders = %v, want %v", got, want)
	}

	welcome, err := reg.Get(ScriptWelcomeMessage)
	if err != nil {
		t.Fatalf("get welcome_message: %v", err)
	}
	if welcome.ForcedTriggerable() != nil {
		t.Fatal("welcome_message should not force a trigger")
	}
	if welcome.Triggerables() != nil {
		t.Fatalf("welcome_message should accept any trigger, got %v", welcome.Triggerables())
	}
}

func TestRegisterTriggers_Definitions(t *testing.T) {
	reg := automation.NewTriggerRegistry()
	if err := RegisterTriggers(reg); err != nil {
		t.Fatalf("register triggers: %v", err)
	}
	names := reg.All()
	if len(names) != 3 {
		t.Fatalf("expected 3 triggers, got %v", names)
	}
	rec, err := reg.Get(TriggerRecurring)
	if err != nil {
		t.Fatalf("get recurring: %v", err)
	}
	fields := rec.Fields()
	if len(fields) != 1 || fields[0].Name != "cron" || !fields[0].Required {
		t.Fatalf("unexpected recurring fields: %+v", fields)
	}
}

func TestSendReport_RendersAndDispatches(t *testing.T) {
	reg, messenger, _ := newScriptsEnv(t)
	def, err := reg.Get(ScriptSendReport)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	run := &automation.Run{
		AutomationID:   7,
		AutomationName: "weekly",
		Trigger:        TriggerRecurring,
		Fields: map[string]string{
			"title":      "%%SITE_TITLE%% report",
			"body":       "from %%AUTOMATION_NAME%%",
			"recipients": "alice, bob",
		},
	}
	if err := def.Run(context.Background(), run); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(messenger.titles) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messenger.titles))
	}
	if messenger.titles[0] != "Meowtown report" {
		t.Fatalf("title = %q", messenger.titles[0])
	}
	if messenger.bodies[0] != "from weekly" {
		t.Fatalf("body = %q", messenger.bodies[0])
	}
	if len(messenger.rcpts[0]) != 2 || messenger.rcpts[0][0] != "alice" || messenger.rcpts[0][1] != "bob" {
		t.Fatalf("recipients = %v", messenger.rcpts[0])
	}
}

func TestWelcomeMessage_DelayDefersAndResetDrops(t *testing.T) {
	reg, messenger, db := newScriptsEnv(t)
	def, err := reg.Get(ScriptWelcomeMessage)
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	run := &automation.Run{
		AutomationID: 3,
		Trigger:      TriggerUserJoined,
		State:        map[string]any{"username": "mittens"},
		Fields: map[string]string{
			"body":  "hi %%USERNAME%%, welcome to %%SITE_TITLE%%",
			"delay": "15",
		},
	}
	if err := def.Run(context.Background(), run); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(messenger.titles) != 0 {
		t.Fatal("delayed welcome must not send immediately")
	}
	var pending []models.PendingMessage
	if err := db.Find(&pending).Error; err != nil {
		t.Fatalf("load pending: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending message, got %d", len(pending))
	}
	if pending[0].Body != "hi mittens, welcome to Meowtown" {
		t.Fatalf("body = %q", pending[0].Body)
	}
	if pending[0].Recipients != "mittens" {
		t.Fatalf("recipients = %q", pending[0].Recipients)
	}

	if err := def.OnReset(context.Background(), run); err != nil {
		t.Fatalf("reset: %v", err)
	}
	var count int64
	db.Model(&models.PendingMessage{}).Count(&count)
	if count != 0 {
		t.Fatalf("reset should drop pending messages, %d left", count)
	}
}

func TestWelcomeMessage_MissingUsername(t *testing.T) {
	reg, _, _ := newScriptsEnv(t)
	def, err := reg.Get(ScriptWelcomeMessage)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	run := &automation.Run{AutomationID: 3, Fields: map[string]string{"body": "hi"}}
	if err := def.Run(context.Background(), run); err == nil {
		t.Fatal("expected error for missing username in trigger state")
	}
}

func TestRecordActivity_WritesEvent(t *testing.T) {
	reg, _, db := newScriptsEnv(t)
	def, err := reg.Get(ScriptRecordActivity)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	run := &automation.Run{
		AutomationID: 5,
		Fields:       map[string]string{"kind": "like", "category": "pets"},
	}
	if err := def.Run(context.Background(), run); err != nil {
		t.Fatalf("run: %v", err)
	}
	var events []models.ActivityEvent
	if err := db.Find(&events).Error; err != nil {
		t.Fatalf("load events: %v", err)
	}
	if len(events) != 1 || events[0].Kind != "like" || events[0].Category != "pets" {
		t.Fatalf("unexpected events: %+v", events)
	}
}
