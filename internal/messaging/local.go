// Package messaging holds the in-process messenger used when no
// external notification system is configured.
package messaging

import (
	"context"
	"fmt"
	"strings"
	"time"

	"scriptify/internal/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Local delivers messages by writing Message rows.
type Local struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewLocal(db *gorm.DB, logger *logrus.Logger) *Local {
	if logger == nil {
		logger = logrus.New()
	}
	return &Local{db: db, logger: logger}
}

// CreateMessage stores the message and returns its id.
func (m *Local) CreateMessage(ctx context.Context, title, body string, recipients []string, source string, automationID uint) (string, error) {
	msg := &models.Message{
		ID:           uuid.NewString(),
		Title:        title,
		Body:         body,
		Recipients:   strings.Join(recipients, ","),
		Source:       source,
		AutomationID: automationID,
		CreatedAt:    time.Now(),
	}
	if err := m.db.WithContext(ctx).Create(msg).Error; err != nil {
		return "", fmt.Errorf("store message: %w", err)
	}
	m.logger.Debugf("messaging: stored message %s for automation %d", msg.ID, automationID)
	return msg.ID, nil
}

// List returns recent messages, newest first.
func (m *Local) List(ctx context.Context, limit int) ([]models.Message, error) {
	if limit <= 0 {
		limit = 50
	}
	var messages []models.Message
	if err := m.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&messages).Error; err != nil {
		return nil, err
	}
	return messages, nil
}
