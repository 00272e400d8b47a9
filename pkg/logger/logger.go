package logger

import (
	"context"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/hrthis/hrthis-backend/pkg/env"
)

const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// Options configures the structured logger. Level is a name such as "debug"
// and defaults to info. Format defaults to HRTHIS_LOG_FORMAT and then to JSON.
type Options struct {
	ServiceName string
	Level       string
	WarnStack   bool
	Format      string
	Output      io.Writer
}

// Logger writes zerolog entries enriched with the fields carried by the
// context. Fields live on the context rather than on the Logger, so any
// Logger can emit fields that another one attached.
type Logger struct {
	zl        zerolog.Logger
	warnStack bool
}

func New(opts Options) *Logger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	format := strings.ToLower(strings.TrimSpace(opts.Format))
	if format == "" {
		format = env.OneOf("HRTHIS_LOG_FORMAT", FormatJSON, FormatJSON, FormatConsole)
	}
	if format == FormatConsole {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly}
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano
	zl := zerolog.New(out).Level(ParseLevel(opts.Level)).With().Timestamp().Str("service", opts.ServiceName).Logger()
	return &Logger{zl: zl, warnStack: opts.WarnStack}
}

// ParseLevel maps a config string to a zerolog level. Blank or unknown input
// means info.
func ParseLevel(value string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(value)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

type fieldsKey struct{}

// field is one link in an immutable chain. Parents are written first.
type field struct {
	key    string
	value  any
	parent *field
}

func chain(ctx context.Context) *field {
	if ctx == nil {
		return nil
	}
	f, _ := ctx.Value(fieldsKey{}).(*field)
	return f
}

func (l *Logger) WithField(ctx context.Context, key string, value any) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, fieldsKey{}, &field{key: key, value: value, parent: chain(ctx)})
}

func (l *Logger) WithFields(ctx context.Context, fields map[string]any) context.Context {
	for k, v := range fields {
		ctx = l.WithField(ctx, k, v)
	}
	return ctx
}

func (l *Logger) WithRequestID(ctx context.Context, requestID string) context.Context {
	return l.WithField(ctx, "request_id", requestID)
}

func (l *Logger) WithUserID(ctx context.Context, userID string) context.Context {
	return l.WithField(ctx, "user_id", userID)
}

func (l *Logger) WithAdminID(ctx context.Context, adminID string) context.Context {
	return l.WithField(ctx, "admin_id", adminID)
}

func (l *Logger) WithBenefitID(ctx context.Context, benefitID string) context.Context {
	return l.WithField(ctx, "benefit_id", benefitID)
}

func (l *Logger) WithPurchaseID(ctx context.Context, purchaseID string) context.Context {
	return l.WithField(ctx, "purchase_id", purchaseID)
}

func (l *Logger) WithRuleID(ctx context.Context, ruleID string) context.Context {
	return l.WithField(ctx, "rule_id", ruleID)
}

func (l *Logger) WithActorRole(ctx context.Context, role string) context.Context {
	return l.WithField(ctx, "actor_role", role)
}

func (l *Logger) Debug(ctx context.Context, msg string) {
	l.write(ctx, l.zl.Debug(), msg)
}

func (l *Logger) Info(ctx context.Context, msg string) {
	l.write(ctx, l.zl.Info(), msg)
}

func (l *Logger) Warn(ctx context.Context, msg string) {
	ev := l.zl.Warn()
	if l.warnStack {
		ev = withStack(ev)
	}
	l.write(ctx, ev, msg)
}

// Error always carries a stack trace.
func (l *Logger) Error(ctx context.Context, msg string, err error) {
	ev := l.zl.Error()
	if err != nil {
		ev = ev.Err(err)
	}
	l.write(ctx, withStack(ev), msg)
}

func (l *Logger) write(ctx context.Context, ev *zerolog.Event, msg string) {
	if ev == nil {
		return
	}
	var kv []any
	for f := chain(ctx); f != nil; f = f.parent {
		kv = append(kv, f.value, f.key)
	}
	// collected leaf first; reverse so parents come out first
	for i, j := 0, len(kv)-1; i < j; i, j = i+1, j-1 {
		kv[i], kv[j] = kv[j], kv[i]
	}
	if len(kv) > 0 {
		ev = ev.Fields(kv)
	}
	ev.Msg(msg)
}

func withStack(ev *zerolog.Event) *zerolog.Event {
	if ev == nil {
		return nil
	}
	return ev.Str("stack", strings.TrimSpace(string(debug.Stack())))
}
