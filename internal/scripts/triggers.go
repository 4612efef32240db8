package scripts

import "scriptify/internal/automation"

// Built-in trigger names.
const (
	TriggerRecurring       = "recurring"
	TriggerActivityCreated = "activity_created"
	TriggerUserJoined      = "user_joined"
)

// RegisterTriggers installs the built-in trigger types.
func RegisterTriggers(reg *automation.TriggerRegistry) error {
	if err := reg.Add(TriggerRecurring, func(b *automation.TriggerBuilder) {
		b.Field("cron", automation.FieldSpec{Component: automation.ComponentText, Required: true,
			Extra: map[string]any{"placeholder": "@daily"}})
	}); err != nil {
		return err
	}

	if err := reg.Add(TriggerActivityCreated, func(b *automation.TriggerBuilder) {
		b.Field("kind", automation.FieldSpec{Component: automation.ComponentText, Required: true})
		b.Field("category", automation.FieldSpec{Component: automation.ComponentCategory})
		b.Field("group", automation.FieldSpec{Component: automation.ComponentGroup})
	}); err != nil {
		return err
	}

	return reg.Add(TriggerUserJoined, func(b *automation.TriggerBuilder) {
		b.Field("group", automation.FieldSpec{Component: automation.ComponentGroup})
	})
}
