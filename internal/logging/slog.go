package logging

import (
	"context"
	"log/slog"
)

// Attribute keys shared by every wallet log line.
const (
	ServiceKey = "service"
	ModuleKey  = "module"
	AccountKey = "account"
)

type accountKey struct{}

// WithAccount tags ctx with the account a request acts for. Loggers add it to
// every line written with that context.
func WithAccount(ctx context.Context, accountID string) context.Context {
	return context.WithValue(ctx, accountKey{}, accountID)
}

// AccountFromContext returns the account set by WithAccount.
func AccountFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(accountKey{}).(string)
	return id, ok && id != ""
}

// ForModule scopes l to one wallet component.
func ForModule(l Logger, name string) Logger {
	return l.With(ModuleKey, name)
}

type SlogLogger struct {
	l *slog.Logger
}

// NewSlogLogger wraps l. Extra attrs are attached to every line.
func NewSlogLogger(l *slog.Logger, attrs ...any) *SlogLogger {
	if len(attrs) > 0 {
		l = l.With(attrs...)
	}
	return &SlogLogger{l: l}
}

func (s *SlogLogger) log(ctx context.Context, level slog.Level, msg string, args []any) {
	if id, ok := AccountFromContext(ctx); ok {
		args = append(args, AccountKey, id)
	}
	s.l.Log(ctx, level, msg, args...)
}

func (s *SlogLogger) Debug(ctx context.Context, msg string, args ...any) {
	s.log(ctx, slog.LevelDebug, msg, args)
}

func (s *SlogLogger) Info(ctx context.Context, msg string, args ...any) {
	s.log(ctx, slog.LevelInfo, msg, args)
}

func (s *SlogLogger) Warn(ctx context.Context, msg string, args ...any) {
	s.log(ctx, slog.LevelWarn, msg, args)
}

func (s *SlogLogger) Error(ctx context.Context, msg string, args ...any) {
	s.log(ctx, slog.LevelError, msg, args)
}

func (s *SlogLogger) With(args ...any) Logger {
	return &SlogLogger{l: s.l.With(args...)}
}
