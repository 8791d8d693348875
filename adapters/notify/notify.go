// Package notify provides Notifier implementations. The core hands every
// finished report to a Notifier; transport-specific delivery (mail, webhooks)
// belongs to deployments that plug their own implementation in.
package notify

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/artpar/sage/domain/diagnostic"
	"github.com/artpar/sage/ports"
)

// Log writes report summaries to the service log.
type Log struct {
	logger zerolog.Logger
}

var _ ports.Notifier = (*Log)(nil)

// NewLog creates a logging notifier.
func NewLog(logger zerolog.Logger) *Log {
	return &Log{logger: logger.With().Str("component", "notifier").Logger()}
}

// Notify logs the verdict and per-severity counts of a report.
func (l *Log) Notify(ctx context.Context, report *diagnostic.Report) error {
	evt := l.logger.Info()
	if !report.Success {
		evt = l.logger.Warn()
	}
	evt.
		Str("package", report.Package).
		Bool("success", report.Success).
		Bool("duplicate", report.Duplicate).
		Int("structural_errors", len(report.Errors)).
		Int("errors", report.Summary[diagnostic.SeverityError]).
		Int("warnings", report.Summary[diagnostic.SeverityWarning]).
		Int("info", report.Summary[diagnostic.SeverityInfo]).
		Msg("validation report")

	for _, d := range report.Diagnostics {
		l.logger.Debug().
			Str("severity", string(d.Severity)).
			Str("catalog", d.Catalog).
			Str("field", d.Field).
			Int("line", d.Line).
			Msg(d.Message)
	}
	return nil
}

// Noop discards reports.
type Noop struct{}

// Notify does nothing.
func (Noop) Notify(ctx context.Context, report *diagnostic.Report) error { return nil }
