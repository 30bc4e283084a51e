package observability

import (
	"context"
	"log/slog"
	"time"

	"github.com/lithammer/shortuuid/v4"
)

// Log field names shared by every request-scoped record.
const (
	LogFieldRequestID = "request_id"
	LogFieldUserID    = "user_id"
	LogFieldOperation = "operation"
	LogFieldDuration  = "duration_ms"
	LogFieldStatus    = "status"
	LogFieldErrorCode = "error_code"
)

// RequestContext identifies one API call in the logs and times it.
type RequestContext struct {
	RequestID string
	UserID    string
	Operation string
	StartTime time.Time

	logger *slog.Logger
}

// NewRequestContext starts timing a request and derives a logger carrying
// its identifiers. An anonymous request has no user_id field.
func NewRequestContext(logger *slog.Logger, operation, userID string) *RequestContext {
	if logger == nil {
		logger = slog.Default()
	}
	r := &RequestContext{
		RequestID: shortuuid.New(),
		UserID:    userID,
		Operation: operation,
		StartTime: time.Now(),
	}

	attrs := []any{slog.String(LogFieldRequestID, r.RequestID)}
	if userID != "" {
		attrs = append(attrs, slog.String(LogFieldUserID, userID))
	}
	if operation != "" {
		attrs = append(attrs, slog.String(LogFieldOperation, operation))
	}
	r.logger = logger.With(attrs...)
	return r
}

// Logger returns the request-scoped logger.
func (r *RequestContext) Logger() *slog.Logger {
	return r.logger
}

func (r *RequestContext) Info(msg string, attrs ...slog.Attr) {
	r.logger.LogAttrs(context.Background(), slog.LevelInfo, msg, attrs...)
}

func (r *RequestContext) Debug(msg string, attrs ...slog.Attr) {
	r.logger.LogAttrs(context.Background(), slog.LevelDebug, msg, attrs...)
}

func (r *RequestContext) Warn(msg string, attrs ...slog.Attr) {
	r.logger.LogAttrs(context.Background(), slog.LevelWarn, msg, attrs...)
}

// Error logs msg with err under the "error" field.
func (r *RequestContext) Error(msg string, err error, attrs ...slog.Attr) {
	attrs = append(attrs, slog.String("error", err.Error()))
	r.logger.LogAttrs(context.Background(), slog.LevelError, msg, attrs...)
}

// Duration returns the elapsed time since the request started.
func (r *RequestContext) Duration() time.Duration {
	return time.Since(r.StartTime)
}

func (r *RequestContext) DurationMs() int64 {
	return r.Duration().Milliseconds()
}

type ctxKey struct{}

// WithRequestContext adds the request context to the context.
func WithRequestContext(ctx context.Context, reqCtx *RequestContext) context.Context {
	return context.WithValue(ctx, ctxKey{}, reqCtx)
}

// FromContext extracts the request context from the context.
func FromContext(ctx context.Context) (*RequestContext, bool) {
	reqCtx, ok := ctx.Value(ctxKey{}).(*RequestContext)
	return reqCtx, ok
}

// LoggerFromContext returns the request-scoped logger, or slog.Default()
// outside a request.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	if reqCtx, ok := FromContext(ctx); ok {
		return reqCtx.logger
	}
	return slog.Default()
}
