package slog

import (
	"context"
	"log/slog"

	"github.com/fwojciec/sitescan"
)

// Ensure LoggingPublisher implements sitescan.EventPublisher.
var _ sitescan.EventPublisher = (*LoggingPublisher)(nil)

// LoggingPublisher writes crawl events to a structured logger.
type LoggingPublisher struct {
	logger *slog.Logger
}

// NewLoggingPublisher creates a new LoggingPublisher.
func NewLoggingPublisher(logger *slog.Logger) *LoggingPublisher {
	return &LoggingPublisher{logger: logger}
}

// Publish logs evt at a level matching its kind.
func (p *LoggingPublisher) Publish(ctx context.Context, evt sitescan.Event) {
	switch e := evt.(type) {
	case sitescan.ProgressEvent:
		p.logger.DebugContext(ctx, "page scanned",
			"session", e.SessionID,
			"url", e.CurrentURL,
			"status", e.ResponseStatus,
			"content_type", e.ContentType,
			"response_time_ms", e.ResponseTime,
			"scanned", e.ScannedCount,
			"known", e.TotalURLsKnown,
		)
	case sitescan.LogEvent:
		p.logger.Log(ctx, logLevel(e.Level), e.Message, "session", e.SessionID)
	case sitescan.CompletedEvent:
		p.logger.InfoContext(ctx, "crawl completed",
			"session", e.SessionID,
			"domain", e.Domain,
			"scanned", e.ScannedCount,
		)
	case sitescan.CancelledEvent:
		p.logger.InfoContext(ctx, "crawl cancelled",
			"session", e.SessionID,
			"domain", e.Domain,
			"scanned", e.ScannedCount,
		)
	case sitescan.ErrorEvent:
		p.logger.ErrorContext(ctx, "crawl failed", "session", e.SessionID, "err", e.Message)
	}
}

func logLevel(l sitescan.LogLevel) slog.Level {
	switch l {
	case sitescan.LogWarn:
		return slog.LevelWarn
	case sitescan.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
