package placeholders

import (
	"context"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"
)

// ReportFetcher resolves %%REPORT=...%% tokens. ok=false means "no
// report", which renders as the empty string.
type ReportFetcher interface {
	FetchReport(ctx context.Context, name string, filters map[string]string) (table string, ok bool)
}

// Engine rewrites free-form text by resolving %%NAME%% tokens against a
// value map and %%REPORT=...%% tokens against the report bridge. It
// never fails: unresolved tokens pass through verbatim and report
// problems render as empty text.
type Engine struct {
	reports ReportFetcher
	logger  *logrus.Logger
}

func NewEngine(reports ReportFetcher, logger *logrus.Logger) *Engine {
	if logger == nil {
		logger = logrus.New()
	}
	return &Engine{reports: reports, logger: logger}
}

// tokenPattern matches %%IDENT%% and %%IDENT=args%%. Args run to the
// next %% and may contain spaces. There is no escape for a literal %%
// sequence; text that happens to look like a token is treated as one.
var tokenPattern = regexp.MustCompile(`%%([A-Za-z][A-Za-z0-9_]*)(=[^%]*)?%%`)

// Render substitutes all tokens in template. Replacement is a single
// left-to-right pass; produced text is never re-scanned, so values
// containing token syntax stay inert.
func (e *Engine) Render(ctx context.Context, template string, values map[string]string) string {
	return tokenPattern.ReplaceAllStringFunc(template, func(token string) string {
		m := tokenPattern.FindStringSubmatch(token)
		ident, args := m[1], m[2]

		if args == "" {
			// plain token: case-insensitive lookup, unresolved
			// tokens stay as written
			if v, ok := values[strings.ToLower(ident)]; ok {
				return v
			}
			return token
		}

		if strings.EqualFold(ident, "report") {
			return e.renderReport(ctx, strings.TrimPrefix(args, "="))
		}

		// ident=args is only defined for REPORT
		return token
	})
}

func (e *Engine) renderReport(ctx context.Context, args string) string {
	name, filters := parseReportArgs(args)
	if name == "" || e.reports == nil {
		return ""
	}
	table, ok := e.reports.FetchReport(ctx, name, filters)
	if !ok {
		e.logger.Debugf("placeholders: report %q unavailable", name)
		return ""
	}
	return table
}

// parseReportArgs splits "name key=value key=value" into the report
// identifier and its filter pairs. Malformed pairs are dropped.
func parseReportArgs(args string) (string, map[string]string) {
	parts := strings.Fields(args)
	if len(parts) == 0 {
		return "", nil
	}
	name := parts[0]
	filters := make(map[string]string, len(parts)-1)
	for _, pair := range parts[1:] {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			continue
		}
		filters[strings.ToLower(key)] = value
	}
	return name, filters
}
