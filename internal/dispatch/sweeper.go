package dispatch

import (
	"context"
	"strings"
	"time"

	"scriptify/internal/metrics"
	"scriptify/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Sweeper is the deferred-delivery runtime: it periodically claims due
// pending messages and delivers them through the messenger.
type Sweeper struct {
	db        *gorm.DB
	messenger Messenger
	logger    *logrus.Logger
	now       func() time.Time
}

func NewSweeper(db *gorm.DB, messenger Messenger, logger *logrus.Logger) *Sweeper {
	if logger == nil {
		logger = logrus.New()
	}
	return &Sweeper{db: db, messenger: messenger, logger: logger, now: time.Now}
}

// Start runs the sweep loop until ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Infof("dispatch: sweeper started, interval %s", interval)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("dispatch: sweeper stopped")
			return
		case <-ticker.C:
			if _, err := s.SweepOnce(ctx); err != nil {
				s.logger.Errorf("dispatch: sweep failed: %v", err)
			}
		}
	}
}

// SweepOnce delivers every pending message that has come due. Each row
// is claimed by deleting it first; a delete that affects zero rows lost
// the race to another sweeper and is skipped. Delivery failures after a
// successful claim are logged and counted, not retried here.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	var due []models.PendingMessage
	if err := s.db.WithContext(ctx).
		Where("scheduled_at <= ?", s.now()).
		Order("scheduled_at ASC").
		Find(&due).Error; err != nil {
		return 0, err
	}

	delivered := 0
	for _, pending := range due {
		claim := s.db.WithContext(ctx).Delete(&models.PendingMessage{}, pending.ID)
		if claim.Error != nil {
			s.logger.Warnf("dispatch: claim pending %d: %v", pending.ID, claim.Error)
			continue
		}
		if claim.RowsAffected == 0 {
			continue
		}

		recipients := strings.Split(pending.Recipients, ",")
		if _, err := s.messenger.CreateMessage(ctx, pending.Title, pending.Body, recipients, SourceDeferred, pending.AutomationID); err != nil {
			metrics.SweepFailures.Inc()
			s.logger.Errorf("dispatch: deliver pending %d failed: %v", pending.ID, err)
			continue
		}
		metrics.PendingSwept.Inc()
		delivered++
	}

	if delivered > 0 {
		s.logger.Infof("dispatch: delivered %d pending message(s)", delivered)
	}
	return delivered, nil
}
