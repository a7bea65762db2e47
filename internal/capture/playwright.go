package capture

import (
	"context"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"
)

type PlaywrightConfig struct {
	Headless bool
	// Args relax the sandbox, which containers without user namespaces need.
	Args []string

	ChromeDevtoolsProtocolURL string
}

func DefaultPlaywrightConfig() PlaywrightConfig {
	return PlaywrightConfig{
		Headless: true,
		Args:     []string{"--no-sandbox", "--disable-setuid-sandbox"},
	}
}

type playwrightEngine struct {
	config PlaywrightConfig
}

func NewPlaywrightEngine(p PlaywrightConfig) Engine {
	return &playwrightEngine{
		config: p,
	}
}

// Launch starts a dedicated driver and chromium for the caller, or connects
// to ChromeDevtoolsProtocolURL when set.
func (e *playwrightEngine) Launch(ctx context.Context) (Browser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	var browser playwright.Browser
	if e.config.ChromeDevtoolsProtocolURL == "" {
		browser, err = p.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
			Headless: playwright.Bool(e.config.Headless),
			Args:     e.config.Args,
		})
		if err != nil {
			_ = p.Stop()
			return nil, fmt.Errorf("failed to launch browser: %w", err)
		}
	} else {
		browser, err = p.Chromium.ConnectOverCDP(e.config.ChromeDevtoolsProtocolURL)
		if err != nil {
			_ = p.Stop()
			return nil, fmt.Errorf("failed to connect to browser via CDP at %s: %w", e.config.ChromeDevtoolsProtocolURL, err)
		}
	}

	return &playwrightBrowser{
		playwright: p,
		browser:    browser,
	}, nil
}

type playwrightBrowser struct {
	playwright *playwright.Playwright
	browser    playwright.Browser
}

func (b *playwrightBrowser) NewPage(ctx context.Context) (Page, error) {
	page, err := b.browser.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to create new page: %w", err)
	}
	return &playwrightPage{page: page}, nil
}

func (b *playwrightBrowser) UserAgent() (string, error) {
	session, err := b.browser.NewBrowserCDPSession()
	if err != nil {
		return "", fmt.Errorf("failed to create browser CDP session: %w", err)
	}
	defer session.Detach()

	result, err := session.Send("Browser.getVersion", nil)
	if err != nil {
		return "", fmt.Errorf("failed to get browser version: %w", err)
	}

	version, ok := result.(map[string]interface{})
	if !ok {
		return "", fmt.Errorf("unexpected Browser.getVersion result %T", result)
	}
	userAgent, _ := version["userAgent"].(string)
	return userAgent, nil
}

func (b *playwrightBrowser) Version() string {
	return b.browser.Version()
}

func (b *playwrightBrowser) Close() error {
	closeErr := b.browser.Close()
	if err := b.playwright.Stop(); err != nil && closeErr == nil {
		closeErr = fmt.Errorf("failed to stop playwright: %w", err)
	}
	return closeErr
}

type playwrightPage struct {
	page playwright.Page
}

// SetViewport resizes the page, then overrides the device metrics over CDP
// because playwright only takes a scale factor when a context is created.
func (p *playwrightPage) SetViewport(viewport Viewport) error {
	if err := p.page.SetViewportSize(viewport.Width, viewport.Height); err != nil {
		return fmt.Errorf("failed to set viewport size: %w", err)
	}

	session, err := p.page.Context().NewCDPSession(p.page)
	if err != nil {
		return fmt.Errorf("failed to create CDP session: %w", err)
	}

	if _, err := session.Send("Emulation.setDeviceMetricsOverride", map[string]interface{}{
		"width":             viewport.Width,
		"height":            viewport.Height,
		"deviceScaleFactor": viewport.DeviceScaleFactor,
		"mobile":            false,
	}); err != nil {
		return fmt.Errorf("failed to set device scale factor: %w", err)
	}

	return nil
}

func (p *playwrightPage) Goto(ctx context.Context, url string, timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			p.page.Close()
		case <-done:
		}
	}()
	defer close(done)

	if _, err := p.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateNetworkidle,
		Timeout:   playwright.Float(float64(timeout.Milliseconds())),
	}); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("failed to navigate to %s: %w", url, ctxErr)
		}
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}

	return nil
}

func (p *playwrightPage) Intercept(observer ExchangeObserver) error {
	if err := p.page.Route("**/*", func(route playwright.Route) {
		_ = route.Continue()
	}); err != nil {
		return fmt.Errorf("failed to enable request interception: %w", err)
	}

	p.page.OnRequest(func(request playwright.Request) {
		observer.OnRequest(&playwrightRequest{request: request})
	})
	p.page.OnResponse(func(response playwright.Response) {
		observer.OnResponse(&playwrightResponse{response: response})
	})
	p.page.OnRequestFailed(func(request playwright.Request) {
		observer.OnRequestFailed(&playwrightRequest{request: request}, request.Failure())
	})

	return nil
}

func (p *playwrightPage) QuerySelector(selector string) (Element, error) {
	handle, err := p.page.QuerySelector(selector)
	if err != nil {
		return nil, fmt.Errorf("failed to query selector %s: %w", selector, err)
	}
	if handle == nil {
		return nil, nil
	}
	return &playwrightElement{handle: handle}, nil
}

func (p *playwrightPage) Screenshot(options ScreenshotOptions) ([]byte, error) {
	o := playwright.PageScreenshotOptions{
		Type:     playwright.ScreenshotTypePng,
		FullPage: playwright.Bool(options.FullPage),
	}
	if options.Clip != nil {
		o.Clip = &playwright.Rect{
			X:      options.Clip.X,
			Y:      options.Clip.Y,
			Width:  options.Clip.Width,
			Height: options.Clip.Height,
		}
	}

	buffer, err := p.page.Screenshot(o)
	if err != nil {
		return nil, fmt.Errorf("failed to take screenshot: %w", err)
	}
	return buffer, nil
}

func (p *playwrightPage) Content() (string, error) {
	html, err := p.page.Content()
	if err != nil {
		return "", fmt.Errorf("failed to get HTML content: %w", err)
	}
	return html, nil
}

type playwrightElement struct {
	handle playwright.ElementHandle
}

func (e *playwrightElement) Screenshot() ([]byte, error) {
	buffer, err := e.handle.Screenshot(playwright.ElementHandleScreenshotOptions{
		Type: playwright.ScreenshotTypePng,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to take element screenshot: %w", err)
	}
	return buffer, nil
}

type playwrightRequest struct {
	request playwright.Request
}

func (r *playwrightRequest) URL() string {
	return r.request.URL()
}

func (r *playwrightRequest) ResourceType() string {
	return r.request.ResourceType()
}

type playwrightResponse struct {
	response playwright.Response
}

func (r *playwrightResponse) Request() Request {
	return &playwrightRequest{request: r.response.Request()}
}

func (r *playwrightResponse) Status() int {
	return r.response.Status()
}

func (r *playwrightResponse) Text() (string, error) {
	return r.response.Text()
}
