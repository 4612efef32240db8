// Package scripts registers the built-in automation behaviors. Script
// hooks capture their collaborators here, at registration time; at run
// time they only receive the firing instance's context.
package scripts

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"scriptify/internal/automation"
	"scriptify/internal/dispatch"
	"scriptify/internal/models"
	"scriptify/internal/placeholders"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Built-in script names.
const (
	ScriptSendReport     = "send_report"
	ScriptWelcomeMessage = "welcome_message"
	ScriptRecordActivity = "record_activity"
)

// Deps are the collaborators the built-in scripts close over.
type Deps struct {
	Engine     *placeholders.Engine
	Dispatcher *dispatch.Dispatcher
	DB         *gorm.DB
	Logger     *logrus.Logger
	SiteTitle  string
}

// RegisterScripts installs the built-in script definitions.
func RegisterScripts(reg *automation.ScriptRegistry, d Deps) error {
	if d.Logger == nil {
		d.Logger = logrus.New()
	}

	if err := reg.Add(ScriptSendReport, func(b *automation.ScriptBuilder) {
		b.Version(2)
		b.Placeholder("automation_name")
		b.Field("title", automation.FieldSpec{Component: automation.ComponentText, Required: true, AcceptsPlaceholders: true})
		b.Field("body", automation.FieldSpec{Component: automation.ComponentMessage, Required: true, AcceptsPlaceholders: true})
		b.Field("recipients", automation.FieldSpec{Component: automation.ComponentUser, Required: true})
		b.ForceTriggerable(TriggerRecurring, map[string]any{"cron": "@daily"})
		b.Script(func(ctx context.Context, run *automation.Run) error {
			values := baseValues(d.SiteTitle, run)
			payload := dispatch.Payload{
				Title:      d.Engine.Render(ctx, run.Field("title", "Scheduled report"), values),
				Body:       d.Engine.Render(ctx, run.Field("body", ""), values),
				Recipients: splitList(run.Field("recipients", "")),
			}
			_, err := d.Dispatcher.SendMessage(ctx, payload, 0, run.AutomationID)
			return err
		})
	}); err != nil {
		return err
	}

	if err := reg.Add(ScriptWelcomeMessage, func(b *automation.ScriptBuilder) {
		b.Version(1)
		b.Placeholder("username")
		b.Field("title", automation.FieldSpec{Component: automation.ComponentText, AcceptsPlaceholders: true})
		b.Field("body", automation.FieldSpec{Component: automation.ComponentMessage, Required: true, AcceptsPlaceholders: true})
		b.Field("delay", automation.FieldSpec{Component: automation.ComponentNumber,
			Extra: map[string]any{"unit": "minutes"}})
		b.Script(func(ctx context.Context, run *automation.Run) error {
			username, _ := run.State["username"].(string)
			if username == "" {
				return fmt.Errorf("welcome_message: trigger state has no username")
			}
			values := baseValues(d.SiteTitle, run)
			values["username"] = username

			delay, _ := strconv.Atoi(run.Field("delay", "0"))
			payload := dispatch.Payload{
				Title:      d.Engine.Render(ctx, run.Field("title", "Welcome to %%SITE_TITLE%%"), values),
				Body:       d.Engine.Render(ctx, run.Field("body", ""), values),
				Recipients: []string{username},
			}
			_, err := d.Dispatcher.SendMessage(ctx, payload, delay, run.AutomationID)
			return err
		})
		b.OnReset(func(ctx context.Context, run *automation.Run) error {
			// drop any welcome still waiting for this instance
			return d.DB.WithContext(ctx).
				Where("automation_id = ?", run.AutomationID).
				Delete(&models.PendingMessage{}).Error
		})
	}); err != nil {
		return err
	}

	return reg.Add(ScriptRecordActivity, func(b *automation.ScriptBuilder) {
		b.Version(1)
		b.Field("kind", automation.FieldSpec{Component: automation.ComponentTag, Required: true})
		b.Field("category", automation.FieldSpec{Component: automation.ComponentCategory})
		b.Field("group", automation.FieldSpec{Component: automation.ComponentGroup})
		b.Script(func(ctx context.Context, run *automation.Run) error {
			event := &models.ActivityEvent{
				Kind:      run.Field("kind", "event"),
				Category:  run.Field("category", ""),
				GroupName: run.Field("group", ""),
				CreatedAt: time.Now(),
			}
			return d.DB.WithContext(ctx).Create(event).Error
		})
	})
}

func baseValues(siteTitle string, run *automation.Run) map[string]string {
	return map[string]string{
		automation.PlaceholderSiteTitle: siteTitle,
		"automation_name":               run.AutomationName,
		"trigger":                       run.Trigger,
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
