package capture

import (
	"context"
	"log/slog"
	"snapshoteer/internal/retry"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "snapshoteer/internal/capture"

var (
	tracer = otel.Tracer(instrumentationName)

	activeSessions, _ = otel.Meter(instrumentationName).Int64UpDownCounter(
		"capture_sessions_active",
		metric.WithDescription("Browser instances currently owned by a request"),
	)
)

// Session pairs one browser instance with one page for the lifetime of a
// single request. It is never shared.
type Session struct {
	Browser Browser
	Page    Page

	ctx       context.Context
	logger    *slog.Logger
	closeOnce sync.Once
	closeErr  error
}

// Close terminates the browser. Calls after the first are no-ops.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.Browser.Close()
		activeSessions.Add(s.ctx, -1)
		if s.closeErr != nil {
			s.logger.Warn("failed to close browser", "error", s.closeErr)
		}
	})
	return s.closeErr
}

type Launcher struct {
	Engine        Engine
	RetryStrategy retry.Strategy
	Logger        *slog.Logger
}

// Open launches a fresh browser and opens a page in it. Failures are
// reported as ErrCaptureUnavailable and leave nothing running.
func (l *Launcher) Open(ctx context.Context) (*Session, error) {
	ctx, span := tracer.Start(ctx, "Launcher.Open")
	defer span.End()

	logger := l.logger()

	var browser Browser
	if err := retry.Do(ctx, l.RetryStrategy, func(ctx context.Context) error {
		b, err := l.Engine.Launch(ctx)
		if err != nil {
			logger.Warn("failed to launch browser", "error", err)
			return err
		}
		browser = b
		return nil
	}); err != nil {
		span.RecordError(err)
		return nil, newError(ErrCaptureUnavailable, err, "failed to launch browser")
	}

	page, err := browser.NewPage(ctx)
	if err != nil {
		if closeErr := browser.Close(); closeErr != nil {
			logger.Warn("failed to close browser", "error", closeErr)
		}
		span.RecordError(err)
		return nil, newError(ErrCaptureUnavailable, err, "failed to create new page")
	}

	activeSessions.Add(ctx, 1)

	return &Session{
		Browser: browser,
		Page:    page,
		ctx:     context.WithoutCancel(ctx),
		logger:  logger,
	}, nil
}

// WithSession opens a session, hands it to fn and closes it afterwards on
// every path, including a panic inside fn.
func (l *Launcher) WithSession(ctx context.Context, fn func(ctx context.Context, s *Session) error) error {
	s, err := l.Open(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	return fn(ctx, s)
}

func (l *Launcher) logger() *slog.Logger {
	if l.Logger != nil {
		return l.Logger
	}
	return slog.Default()
}
