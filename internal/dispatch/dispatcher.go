package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"scriptify/internal/metrics"
	"scriptify/internal/models"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

// ErrInvalidPayload is returned for payloads that cannot be delivered
// at all (no recipients).
var ErrInvalidPayload = errors.New("invalid payload")

// ErrPendingNotFound is returned when a pending message to cancel is
// already gone (delivered or cancelled elsewhere).
var ErrPendingNotFound = errors.New("pending message not found")

// Messenger is the external delivery primitive that actually creates a
// message to recipients. Source records which dispatch path produced
// the message.
type Messenger interface {
	CreateMessage(ctx context.Context, title, body string, recipients []string, source string, automationID uint) (string, error)
}

const (
	SourceImmediate = "immediate"
	SourceDeferred  = "deferred"
)

// Payload is the deliverable content of one message.
type Payload struct {
	Title      string   `json:"title"`
	Body       string   `json:"body"`
	Recipients []string `json:"recipients"`
}

type Status string

const (
	StatusSent    Status = "sent"
	StatusPending Status = "pending"
)

// Result reports what SendMessage did.
type Result struct {
	Status      Status     `json:"status"`
	MessageID   string     `json:"message_id,omitempty"`
	PendingID   uint       `json:"pending_id,omitempty"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
}

// Dispatcher sends a message immediately or records it for deferred
// delivery by the sweeper.
type Dispatcher struct {
	db        *gorm.DB
	messenger Messenger
	logger    *logrus.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

func NewDispatcher(db *gorm.DB, messenger Messenger, logger *logrus.Logger) *Dispatcher {
	if logger == nil {
		logger = logrus.New()
	}
	return &Dispatcher{
		db:        db,
		messenger: messenger,
		logger:    logger,
		tracer:    otel.Tracer("scriptify.dispatch"),
		now:       time.Now,
	}
}

// SendMessage delivers payload now, or with delayMinutes > 0 records a
// single pending message scheduled delayMinutes from now. The pending
// row is consumed by the sweeper; nothing is sent here in that case.
func (d *Dispatcher) SendMessage(ctx context.Context, payload Payload, delayMinutes int, automationID uint) (*Result, error) {
	ctx, span := d.tracer.Start(ctx, "dispatch.send_message")
	defer span.End()
	span.SetAttributes(
		attribute.String("message.title", payload.Title),
		attribute.Int("message.delay_minutes", delayMinutes),
		attribute.Int("automation.id", int(automationID)),
	)

	if len(payload.Recipients) == 0 {
		return nil, fmt.Errorf("%w: recipients required", ErrInvalidPayload)
	}

	if delayMinutes > 0 {
		scheduledAt := d.now().Add(time.Duration(delayMinutes) * time.Minute)
		pending := &models.PendingMessage{
			Title:        payload.Title,
			Body:         payload.Body,
			Recipients:   strings.Join(payload.Recipients, ","),
			ScheduledAt:  scheduledAt,
			AutomationID: automationID,
			CreatedAt:    d.now(),
		}
		if err := d.db.WithContext(ctx).Create(pending).Error; err != nil {
			return nil, fmt.Errorf("create pending message: %w", err)
		}
		metrics.Messages.WithLabelValues(SourceDeferred).Inc()
		d.logger.Infof("dispatch: deferred message %d for automation %d until %s",
			pending.ID, automationID, scheduledAt.Format(time.RFC3339))
		return &Result{Status: StatusPending, PendingID: pending.ID, ScheduledAt: &scheduledAt}, nil
	}

	id, err := d.messenger.CreateMessage(ctx, payload.Title, payload.Body, payload.Recipients, SourceImmediate, automationID)
	if err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}
	metrics.Messages.WithLabelValues(SourceImmediate).Inc()
	return &Result{Status: StatusSent, MessageID: id}, nil
}

// ListPending returns pending messages ordered by due time.
func (d *Dispatcher) ListPending(ctx context.Context) ([]models.PendingMessage, error) {
	var pending []models.PendingMessage
	if err := d.db.WithContext(ctx).Order("scheduled_at ASC").Find(&pending).Error; err != nil {
		return nil, err
	}
	return pending, nil
}

// CancelPending deletes a pending message before the sweeper claims it.
// The delete is the claim: zero rows affected means it was already
// taken.
func (d *Dispatcher) CancelPending(ctx context.Context, id uint) error {
	result := d.db.WithContext(ctx).Delete(&models.PendingMessage{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrPendingNotFound
	}
	return nil
}
