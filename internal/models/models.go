package models

import "time"

// Message is a delivered notification. Rows are written by the local
// messenger; when a webhook messenger is configured the external system
// owns the records instead.
type Message struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	Title        string    `gorm:"not null" json:"title"`
	Body         string    `gorm:"type:text" json:"body"`
	Recipients   string    `gorm:"type:text" json:"recipients"` // comma-separated
	Source       string    `gorm:"index" json:"source"`         // immediate, deferred
	AutomationID uint      `gorm:"index" json:"automation_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// PendingMessage is a message whose delivery was deferred. The sweeper
// claims and deletes the row when it comes due; a row that is gone was
// either delivered or cancelled.
type PendingMessage struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Title        string    `gorm:"not null" json:"title"`
	Body         string    `gorm:"type:text" json:"body"`
	Recipients   string    `gorm:"type:text" json:"recipients"`
	ScheduledAt  time.Time `gorm:"index" json:"scheduled_at"`
	AutomationID uint      `gorm:"index" json:"automation_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// ActivityEvent is a generic activity row counted by the report engine
// (likes, posts, signups and so on). Scripts may also write these.
type ActivityEvent struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Kind      string    `gorm:"index;not null" json:"kind"`
	Category  string    `gorm:"index" json:"category"`
	GroupName string    `gorm:"index" json:"group_name"`
	ActorID   uint      `json:"actor_id"`
	CreatedAt time.Time `json:"created_at"`
}

// DailyStat is an hourly-refreshed per-day rollup used by the stats
// worker.
type DailyStat struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Date         time.Time `gorm:"uniqueIndex" json:"date"`
	MessagesSent int       `json:"messages_sent"`
	RunsExecuted int       `json:"runs_executed"`
	RunsFailed   int       `json:"runs_failed"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
