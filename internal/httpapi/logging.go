package httpapi

import (
	"net/http"
	"os"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	zl "github.com/rs/zerolog/log"
)

// zlog is an optional structured logger. If unset, the zerolog global logger is used.
var zlog *zerolog.Logger

// SetLogger installs a structured logger used by the HTTP layer.
func SetLogger(l zerolog.Logger) { zlog = &l }

func logger() *zerolog.Logger {
	if zlog != nil {
		return zlog
	}
	return &zl.Logger
}

// LogLevel controls per-request logging behavior.
type LogLevel int

const (
	LevelOff LogLevel = iota
	LevelError
	LevelInfo
	LevelDebug
)

func parseLevel(s string) LogLevel {
	switch s {
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

// global default, read once
var defaultLogLevel = func() LogLevel {
	if os.Getenv("CHATD_LOG_CHUNKS") == "1" {
		return LevelDebug
	}
	return parseLevel(os.Getenv("CHATD_LOG_LEVEL"))
}()

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
	if r.Header.Get("X-Log-Chunks") == "1" {
		return LevelDebug
	}
	return defaultLogLevel
}

// reqLog is a request-scoped logger honoring the per-request level.
type reqLog struct {
	lvl  LogLevel
	base zerolog.Logger
}

func newReqLog(r *http.Request, route string) reqLog {
	c := logger().With().Str("path", route)
	if rid := middleware.GetReqID(r.Context()); rid != "" {
		c = c.Str("request_id", rid)
	}
	return reqLog{lvl: requestLogLevel(r), base: c.Logger()}
}

// event returns a log event when the request level admits min, else nil.
// zerolog events are nil-safe, so callers chain on the result unconditionally.
func (l reqLog) event(min LogLevel) *zerolog.Event {
	if l.lvl < min {
		return nil
	}
	switch min {
	case LevelError:
		return l.base.Error()
	case LevelDebug:
		return l.base.Debug()
	default:
		return l.base.Info()
	}
}
