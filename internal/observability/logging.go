// Package observability provides logging, metrics, and tracing.
package observability

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// Logger wraps slog.Logger to provide specialized logging methods.
type Logger struct {
	*slog.Logger
}

// GlobalLogger is the default logger instance for the application.
var GlobalLogger *Logger

func init() {
	GlobalLogger = NewLogger(os.Getenv("APP_ENV"), os.Getenv("LOG_LEVEL"))
}

// LogContextKey is a type for context keys used by the logging package.
type LogContextKey string

// Context keys for logging
const (
	UpdateIDKey LogContextKey = "update_id"
	ChatKindKey LogContextKey = "chat_kind"
	HandlerKey  LogContextKey = "handler"
)

// ctxHandler adds update-scoped values from the context to every record.
type ctxHandler struct {
	slog.Handler
}

func (h *ctxHandler) Handle(ctx context.Context, r slog.Record) error {
	if id, ok := ctx.Value(UpdateIDKey).(int); ok {
		r.AddAttrs(slog.Int("update_id", id))
	}
	if kind, ok := ctx.Value(ChatKindKey).(string); ok {
		r.AddAttrs(slog.String("chat_kind", kind))
	}
	if name, ok := ctx.Value(HandlerKey).(string); ok {
		r.AddAttrs(slog.String("handler", name))
	}
	return h.Handler.Handle(ctx, r)
}

func (h *ctxHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ctxHandler{h.Handler.WithAttrs(attrs)}
}

func (h *ctxHandler) WithGroup(name string) slog.Handler {
	return &ctxHandler{h.Handler.WithGroup(name)}
}

// NewLogger builds a JSON logger for production and a text logger otherwise.
func NewLogger(env, level string) *Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var handler slog.Handler
	if env == "production" || env == "prod" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return &Logger{Logger: slog.New(&ctxHandler{handler})}
}

// ParseLevel maps a config string to a slog level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetGlobalLogger replaces GlobalLogger and the slog default.
func SetGlobalLogger(l *Logger) {
	GlobalLogger = l
	slog.SetDefault(l.Logger)
}

// WithUpdate returns a context carrying the update id and chat kind for logging.
func WithUpdate(ctx context.Context, updateID int, chatKind string) context.Context {
	ctx = context.WithValue(ctx, UpdateIDKey, updateID)
	return context.WithValue(ctx, ChatKindKey, chatKind)
}

// WithHandler returns a context naming the handler processing the update.
func WithHandler(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, HandlerKey, name)
}

// RepoLogger provides structured logging for store operations.
type RepoLogger struct {
	store string
}

// NewRepoLogger creates a new RepoLogger for the given store.
func NewRepoLogger(store string) *RepoLogger {
	return &RepoLogger{store: store}
}

// LogWrite logs a store write.
func (l *RepoLogger) LogWrite(ctx context.Context, operation string, fields map[string]interface{}) {
	attrs := []any{
		slog.String("store", l.store),
		slog.String("operation", operation),
	}
	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	GlobalLogger.InfoContext(ctx, "store write", attrs...)
}

// LogError logs a store error.
func (l *RepoLogger) LogError(ctx context.Context, err error, operation string) {
	GlobalLogger.ErrorContext(ctx, "store error",
		slog.String("store", l.store),
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)
}
