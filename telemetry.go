package nucleus

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// TelemetryHooks expose observability callbacks without forcing dependencies on the caller.
type TelemetryHooks struct {
	// OnHTTPRequest fires before the HTTP request is sent.
	OnHTTPRequest func(ctx context.Context, req *http.Request)
	// OnHTTPResponse fires after the request completes (even when err != nil).
	OnHTTPResponse func(ctx context.Context, req *http.Request, resp *http.Response, err error, latency time.Duration)
	// OnLogEntry allows callers to capture SDK log events (info/errors).
	OnLogEntry func(ctx context.Context, entry LogEntry)
}

// LogLevel encodes the severity for log hooks.
type LogLevel string

const (
	LogLevelInfo  LogLevel = "info"
	LogLevelError LogLevel = "error"
)

// LogEntry captures structured log details for SDK consumers.
type LogEntry struct {
	Level   LogLevel
	Message string
	Fields  map[string]any
}

func (t TelemetryHooks) log(ctx context.Context, level LogLevel, msg string, fields map[string]any) {
	if t.OnLogEntry == nil {
		return
	}
	t.OnLogEntry(ctx, LogEntry{Level: level, Message: msg, Fields: fields})
}

// ZerologTelemetry adapts a zerolog logger to TelemetryHooks. Request lines go
// out at debug level, SDK log entries at their own severity.
func ZerologTelemetry(logger zerolog.Logger) TelemetryHooks {
	return TelemetryHooks{
		OnHTTPResponse: func(ctx context.Context, req *http.Request, resp *http.Response, err error, latency time.Duration) {
			evt := logger.Debug().
				Str("method", req.Method).
				Str("url", req.URL.Redacted()).
				Dur("latency", latency)
			if err != nil {
				evt = logger.Error().
					Str("method", req.Method).
					Str("url", req.URL.Redacted()).
					Dur("latency", latency).
					Err(err)
			} else if resp != nil {
				evt = evt.Int("status", resp.StatusCode)
			}
			evt.Msg("http request")
		},
		OnLogEntry: func(ctx context.Context, entry LogEntry) {
			evt := logger.Info()
			if entry.Level == LogLevelError {
				evt = logger.Error()
			}
			evt.Fields(entry.Fields).Msg(entry.Message)
		},
	}
}
