package services

import (
	"context"
	"sync"
	"time"

	"scriptify/internal/scripts"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const runTimeout = time.Minute

// Scheduler fires automations bound to the recurring trigger on their
// cron expression (trigger state key "cron", default "@daily").
type Scheduler struct {
	svc    *AutomationService
	db     *gorm.DB
	logger *logrus.Logger
	cron   *cron.Cron

	mu      sync.Mutex
	entries []cron.EntryID
}

func NewScheduler(svc *AutomationService, db *gorm.DB, logger *logrus.Logger) *Scheduler {
	if logger == nil {
		logger = logrus.New()
	}
	return &Scheduler{
		svc:    svc,
		db:     db,
		logger: logger,
		cron:   cron.New(),
	}
}

// Start loads the entries, runs the cron loop, and reloads every
// reloadInterval to pick up instance changes. Blocks until ctx is done.
func (s *Scheduler) Start(ctx context.Context, reloadInterval time.Duration) {
	if err := s.Reload(ctx); err != nil {
		s.logger.Errorf("scheduler: initial load: %v", err)
	}
	s.cron.Start()
	defer s.cron.Stop()

	ticker := time.NewTicker(reloadInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler: stopped")
			return
		case <-ticker.C:
			if err := s.Reload(ctx); err != nil {
				s.logger.Errorf("scheduler: reload: %v", err)
			}
		}
	}
}

// Reload rebuilds the cron entries from the enabled recurring-bound
// automations.
func (s *Scheduler) Reload(ctx context.Context) error {
	automations, err := s.svc.List(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.entries {
		s.cron.Remove(id)
	}
	s.entries = s.entries[:0]

	loaded := 0
	for i := range automations {
		a := automations[i]
		if !a.Enabled {
			continue
		}
		def, err := s.svc.scripts.Get(a.ScriptName)
		if err != nil {
			continue
		}
		trigger, state := s.svc.EffectiveTrigger(def, &a)
		if trigger != scripts.TriggerRecurring {
			continue
		}
		expr, _ := state["cron"].(string)
		if expr == "" {
			expr = "@daily"
		}

		id := a.ID
		entryID, err := s.cron.AddFunc(expr, func() { s.fire(id) })
		if err != nil {
			s.logger.Warnf("scheduler: bad cron %q on automation %d: %v", expr, id, err)
			continue
		}
		s.entries = append(s.entries, entryID)
		loaded++
	}
	s.logger.Debugf("scheduler: loaded %d recurring automation(s)", loaded)
	return nil
}

func (s *Scheduler) fire(id uint) {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	// re-read so a disable or edit between reloads is honored
	a, err := s.svc.Get(ctx, id)
	if err != nil {
		s.logger.Warnf("scheduler: automation %d gone: %v", id, err)
		return
	}
	if !a.Enabled {
		return
	}
	if err := s.svc.RunOne(ctx, a); err != nil {
		s.logger.Warnf("scheduler: automation %d run failed: %v", id, err)
	}
}

// EntryCount reports the number of scheduled entries (for tests and
// the health surface).
func (s *Scheduler) EntryCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
