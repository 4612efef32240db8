package reports

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrUnknownReport is returned by a series source for a name it does
// not serve. The bridge downgrades it to "no report".
var ErrUnknownReport = errors.New("unknown report")

// DayCount is one bucket of a time-bucketed count series.
type DayCount struct {
	Date  time.Time
	Count int64
}

// Filters carries the parsed report filters. Absent dates mean "let
// the engine choose its default window".
type Filters struct {
	StartDate *time.Time
	EndDate   *time.Time
	Extra     map[string]string
}

// SeriesSource computes a count series for a named report. nil series
// with nil error means "no data".
type SeriesSource interface {
	ComputeSeries(ctx context.Context, name string, f Filters) ([]DayCount, error)
}

// Bridge adapts the report engine for the placeholder language: it
// parses string filters and renders the series as a markdown table.
type Bridge struct {
	engine SeriesSource
	logger *logrus.Logger
}

func NewBridge(engine SeriesSource, logger *logrus.Logger) *Bridge {
	if logger == nil {
		logger = logrus.New()
	}
	return &Bridge{engine: engine, logger: logger}
}

const dateLayout = "2006-01-02"

// FetchReport computes the named report and renders it. ok=false means
// no report: unknown name, engine failure, or no data. Rows are
// rendered exactly as the engine returned them, in order.
func (b *Bridge) FetchReport(ctx context.Context, name string, filters map[string]string) (string, bool) {
	f := Filters{Extra: make(map[string]string)}
	for key, value := range filters {
		switch key {
		case "start_date":
			if t, err := time.Parse(dateLayout, value); err == nil {
				f.StartDate = &t
			} else {
				b.logger.Warnf("reports: bad start_date %q for %s", value, name)
			}
		case "end_date":
			if t, err := time.Parse(dateLayout, value); err == nil {
				f.EndDate = &t
			} else {
				b.logger.Warnf("reports: bad end_date %q for %s", value, name)
			}
		default:
			f.Extra[key] = value
		}
	}

	series, err := b.engine.ComputeSeries(ctx, name, f)
	if err != nil {
		if !errors.Is(err, ErrUnknownReport) {
			b.logger.Warnf("reports: compute %s failed: %v", name, err)
		}
		return "", false
	}
	if series == nil {
		return "", false
	}
	return renderTable(series), true
}

func renderTable(series []DayCount) string {
	var sb strings.Builder
	sb.WriteString("\n|Day|Count|\n|-|-|\n")
	for _, dc := range series {
		fmt.Fprintf(&sb, "|%s|%d|\n", dc.Date.Format(dateLayout), dc.Count)
	}
	return sb.String()
}
