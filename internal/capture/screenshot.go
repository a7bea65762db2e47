package capture

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const DefaultNavigationTimeout = 30 * time.Second

type Composer struct {
	NavigationTimeout time.Duration
	Logger            *slog.Logger
}

// Capture renders r.URL on page and returns a PNG. In fixed-region mode only
// the top-left viewport rectangle is kept; the device scale factor applies in
// every mode.
func (c *Composer) Capture(ctx context.Context, page Page, r *ScreenshotRequest) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "Composer.Capture", trace.WithAttributes(
		attribute.String("url", r.URL),
		attribute.Bool("full_page", r.FullPage),
		attribute.String("element", r.Element),
	))
	defer span.End()

	if err := page.SetViewport(r.Viewport); err != nil {
		span.RecordError(err)
		return nil, newError(ErrCaptureFailed, err, "failed to set viewport")
	}

	if err := page.Goto(ctx, r.URL, c.navigationTimeout()); err != nil {
		span.RecordError(err)
		return nil, newError(ErrCaptureFailed, err, "failed to navigate to %s", r.URL)
	}

	if r.Element != "" {
		element, err := page.QuerySelector(r.Element)
		if err != nil {
			span.RecordError(err)
			return nil, newError(ErrCaptureFailed, err, "failed to query %s", r.Element)
		}
		if element == nil {
			return nil, newError(ErrElementNotFound, nil, "Element %s not found", r.Element)
		}

		buffer, err := element.Screenshot()
		if err != nil {
			span.RecordError(err)
			return nil, newError(ErrCaptureFailed, err, "failed to take element screenshot")
		}
		return buffer, nil
	}

	options := ScreenshotOptions{
		FullPage: r.FullPage,
	}
	if !r.FullPage {
		options.Clip = &Clip{
			X:      0,
			Y:      0,
			Width:  float64(r.Viewport.Width),
			Height: float64(r.Viewport.Height),
		}
	}

	buffer, err := page.Screenshot(options)
	if err != nil {
		span.RecordError(err)
		return nil, newError(ErrCaptureFailed, err, "failed to take screenshot")
	}

	c.logger().Debug("captured screenshot", "url", r.URL, "bytes", len(buffer))

	return buffer, nil
}

func (c *Composer) navigationTimeout() time.Duration {
	if c.NavigationTimeout > 0 {
		return c.NavigationTimeout
	}
	return DefaultNavigationTimeout
}

func (c *Composer) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}
