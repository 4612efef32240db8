package models

import "time"

// Automation binds a persisted configuration row to one script
// definition (by name) and one trigger binding. When the script carries
// a forced triggerable the effective trigger comes from the definition,
// not from this row.
type Automation struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Name         string     `gorm:"not null" json:"name"`
	ScriptName   string     `gorm:"index;not null" json:"script"`
	TriggerName  string     `gorm:"index" json:"trigger"`
	TriggerState string     `gorm:"type:text" json:"trigger_state"` // JSON object
	FieldValues  string     `gorm:"type:text" json:"field_values"`  // JSON: {field: value}
	Enabled      bool       `json:"enabled"`
	LastRunAt    *time.Time `json:"last_run_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// AutomationRun is an execution record kept for auditing.
type AutomationRun struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	AutomationID uint      `gorm:"index" json:"automation_id"`
	ScriptName   string    `gorm:"index" json:"script"`
	TriggerName  string    `json:"trigger"`
	Status       string    `gorm:"index" json:"status"` // success, failed, reset
	Message      string    `gorm:"type:text" json:"message"`
	CreatedAt    time.Time `json:"created_at"`
}
