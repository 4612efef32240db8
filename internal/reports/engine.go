package reports

import (
	"context"
	"fmt"
	"sync"
	"time"

	"scriptify/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// defaultWindowDays is the trailing window used when a report is asked
// for without an explicit date range.
const defaultWindowDays = 7

// QueryFunc counts the matching rows of one day bucket.
type QueryFunc func(ctx context.Context, db *gorm.DB, day, next time.Time, extra map[string]string) (int64, error)

// SeriesEngine computes per-day count series from the database. Report
// queries are registered by name; unknown names yield ErrUnknownReport.
type SeriesEngine struct {
	db     *gorm.DB
	logger *logrus.Logger

	mu      sync.RWMutex
	queries map[string]QueryFunc
}

func NewSeriesEngine(db *gorm.DB, logger *logrus.Logger) *SeriesEngine {
	if logger == nil {
		logger = logrus.New()
	}
	e := &SeriesEngine{
		db:      db,
		logger:  logger,
		queries: make(map[string]QueryFunc),
	}
	e.registerBuiltins()
	return e
}

// Register adds (or replaces) a report query.
func (e *SeriesEngine) Register(name string, fn QueryFunc) {
	e.mu.Lock()
	e.queries[name] = fn
	e.mu.Unlock()
}

// Reports returns the registered report names.
func (e *SeriesEngine) Reports() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	names := make([]string, 0, len(e.queries))
	for name := range e.queries {
		names = append(names, name)
	}
	return names
}

// ComputeSeries counts matching rows for every day of the range, one
// bucket per day in ascending date order. Days without rows still get
// a zero bucket.
func (e *SeriesEngine) ComputeSeries(ctx context.Context, name string, f Filters) ([]DayCount, error) {
	e.mu.RLock()
	fn, ok := e.queries[name]
	e.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownReport, name)
	}

	end := time.Now().Truncate(24 * time.Hour)
	if f.EndDate != nil {
		end = f.EndDate.Truncate(24 * time.Hour)
	}
	start := end.AddDate(0, 0, -(defaultWindowDays - 1))
	if f.StartDate != nil {
		start = f.StartDate.Truncate(24 * time.Hour)
	}
	if start.After(end) {
		return nil, nil
	}

	var series []DayCount
	for current := start; !current.After(end); current = current.Add(24 * time.Hour) {
		count, err := fn(ctx, e.db, current, current.Add(24*time.Hour), f.Extra)
		if err != nil {
			return nil, fmt.Errorf("report %s at %s: %w", name, current.Format(dateLayout), err)
		}
		series = append(series, DayCount{Date: current, Count: count})
	}
	return series, nil
}

func (e *SeriesEngine) registerBuiltins() {
	e.Register("messages", func(ctx context.Context, db *gorm.DB, day, next time.Time, extra map[string]string) (int64, error) {
		q := db.WithContext(ctx).Model(&models.Message{}).
			Where("created_at >= ? AND created_at < ?", day, next)
		if source := extra["source"]; source != "" {
			q = q.Where("source = ?", source)
		}
		var count int64
		return count, q.Count(&count).Error
	})

	e.Register("automation_runs", func(ctx context.Context, db *gorm.DB, day, next time.Time, extra map[string]string) (int64, error) {
		q := db.WithContext(ctx).Model(&models.AutomationRun{}).
			Where("created_at >= ? AND created_at < ?", day, next)
		if status := extra["status"]; status != "" {
			q = q.Where("status = ?", status)
		}
		if script := extra["script"]; script != "" {
			q = q.Where("script_name = ?", script)
		}
		var count int64
		return count, q.Count(&count).Error
	})

	e.Register("activity", activityQuery(""))
	// activity presets keyed by kind, so templates can say
	// %%REPORT=likes%% directly
	e.Register("likes", activityQuery("like"))
	e.Register("posts", activityQuery("post"))
	e.Register("signups", activityQuery("signup"))
}

func activityQuery(kind string) QueryFunc {
	return func(ctx context.Context, db *gorm.DB, day, next time.Time, extra map[string]string) (int64, error) {
		q := db.WithContext(ctx).Model(&models.ActivityEvent{}).
			Where("created_at >= ? AND created_at < ?", day, next)
		if kind != "" {
			q = q.Where("kind = ?", kind)
		} else if k := extra["kind"]; k != "" {
			q = q.Where("kind = ?", k)
		}
		if category := extra["category"]; category != "" {
			q = q.Where("category = ?", category)
		}
		if group := extra["group"]; group != "" {
			q = q.Where("group_name = ?", group)
		}
		var count int64
		return count, q.Count(&count).Error
	}
}
