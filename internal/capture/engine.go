package capture

import (
	"context"
	"time"
)

// Engine launches isolated browser instances. Every Browser returned by
// Launch is owned by the caller and must be closed by it.
type Engine interface {
	Launch(ctx context.Context) (Browser, error)
}

type Browser interface {
	NewPage(ctx context.Context) (Page, error)
	UserAgent() (string, error)
	Version() string
	Close() error
}

type Page interface {
	SetViewport(viewport Viewport) error
	// Goto navigates and returns once the network has been idle, or fails
	// after timeout.
	Goto(ctx context.Context, url string, timeout time.Duration) error
	// Intercept lets every outgoing request continue unmodified and reports
	// the exchanges to observer. Register before Goto.
	Intercept(observer ExchangeObserver) error
	// QuerySelector returns nil without error when nothing matches.
	QuerySelector(selector string) (Element, error)
	Screenshot(options ScreenshotOptions) ([]byte, error)
	Content() (string, error)
}

type Element interface {
	Screenshot() ([]byte, error)
}

type Clip struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

type ScreenshotOptions struct {
	FullPage bool
	Clip     *Clip
}

const (
	ResourceTypeScript     = "script"
	ResourceTypeStylesheet = "stylesheet"
)

type Request interface {
	URL() string
	ResourceType() string
}

type Response interface {
	Request() Request
	Status() int
	Text() (string, error)
}

// ExchangeObserver callbacks may be invoked from engine goroutines.
type ExchangeObserver interface {
	OnRequest(request Request)
	OnResponse(response Response)
	OnRequestFailed(request Request, err error)
}
