package httpapi

import (
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// zlog is the structured logger used by the HTTP layer. Silent until SetLogger.
var zlog = zerolog.Nop()

// SetLogger installs a structured logger used by the HTTP layer.
func SetLogger(l zerolog.Logger) { zlog = l }

// LogLevel controls per-request logging behavior.
type LogLevel int

const (
	LevelOff LogLevel = iota
	LevelError
	LevelInfo
	LevelDebug
)

func parseLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off", "":
		return LevelOff
	case "error":
		return LevelError
	case "info":
		return LevelInfo
	case "debug":
		return LevelDebug
	default:
		return LevelInfo
	}
}

// global default, read once; SetDefaultLogLevel overrides it from config
var defaultLogLevel = parseLevel(os.Getenv("OLLAMAPROXY_LOG_LEVEL"))

// SetDefaultLogLevel sets the request log level used when a request carries no override.
func SetDefaultLogLevel(s string) { defaultLogLevel = parseLevel(s) }

func requestLogLevel(r *http.Request) LogLevel {
	// Per-request overrides
	if v := r.URL.Query().Get("log"); v != "" {
		if v == "1" {
			return LevelDebug
		}
		return parseLevel(v)
	}
	if v := r.Header.Get("X-Log-Level"); v != "" {
		return parseLevel(v)
	}
	return defaultLogLevel
}

// logExchange records the end of a request at the level selected for it.
// Non-2xx statuses are logged from LevelError up, everything else from LevelInfo.
func logExchange(r *http.Request, lvl LogLevel, status int, start time.Time, fields func(*zerolog.Event)) {
	failed := status < 200 || status >= 300
	if lvl == LevelOff || (!failed && lvl < LevelInfo) {
		return
	}
	ev := zlog.Info()
	if failed {
		ev = zlog.Warn()
	}
	ev = ev.Str("path", r.URL.Path).Int("status", status).Dur("dur", time.Since(start))
	if rid := middleware.GetReqID(r.Context()); rid != "" {
		ev = ev.Str("request_id", rid)
	}
	if fields != nil && lvl >= LevelDebug {
		fields(ev)
	}
	ev.Msg("request end")
}
