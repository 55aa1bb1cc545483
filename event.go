package sitescan

import "context"

// Command is an instruction from the supervisor to the crawl engine.
// It is one of StartCommand or StopCommand.
type Command interface {
	command()
}

// StartCommand begins a crawl of the seed URL's domain.
type StartCommand struct {
	SeedURL string `json:"seedUrl"`

	// Overwrite discards any stored results for the domain. When false the
	// crawl resumes from the stored state.
	Overwrite bool `json:"overwrite"`

	// Concurrency bounds in-flight fetches. Zero means DefaultConcurrency.
	Concurrency int `json:"concurrency"`
}

// StopCommand aborts the running crawl.
type StopCommand struct{}

func (StartCommand) command() {}
func (StopCommand) command()  {}

// Event is emitted by the crawl engine. It is one of ProgressEvent,
// LogEvent, CompletedEvent, CancelledEvent or ErrorEvent.
type Event interface {
	event()
}

// ProgressEvent is emitted after each processed URL.
type ProgressEvent struct {
	SessionID      string      `json:"sessionId"`
	Message        string      `json:"message"`
	CurrentURL     string      `json:"currentUrl"`
	TotalURLsKnown int         `json:"totalUrlsKnown"`
	ScannedCount   int         `json:"scannedCount"`
	ResponseStatus int         `json:"responseStatus"`
	ContentType    ContentType `json:"contentType"`
	ResponseTime   int64       `json:"responseTime"`
}

// LogLevel is the severity of a LogEvent.
type LogLevel string

// Log levels.
const (
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// LogEvent carries a human-readable message for the operator.
type LogEvent struct {
	SessionID string   `json:"sessionId"`
	Level     LogLevel `json:"level"`
	Message   string   `json:"message"`
}

// CompletedEvent is emitted once when a crawl finishes its frontier.
type CompletedEvent struct {
	SessionID    string `json:"sessionId"`
	Domain       string `json:"domain"`
	ScannedCount int    `json:"scannedCount"`
}

// CancelledEvent is emitted once when a crawl is stopped before its
// frontier is exhausted. The crawl can be resumed.
type CancelledEvent struct {
	SessionID    string `json:"sessionId"`
	Domain       string `json:"domain"`
	ScannedCount int    `json:"scannedCount"`
}

// ErrorEvent is emitted once when a crawl fails as a whole.
type ErrorEvent struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
}

func (ProgressEvent) event()  {}
func (LogEvent) event()       {}
func (CompletedEvent) event() {}
func (CancelledEvent) event() {}
func (ErrorEvent) event()     {}

// EventPublisher delivers events to their consumers.
type EventPublisher interface {
	// Publish delivers evt. Implementations must not block past ctx.
	Publish(ctx context.Context, evt Event)
}
