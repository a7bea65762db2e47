package capture

import (
	"context"
	"errors"
	"sync"
	"time"
)

type fakeEngine struct {
	mu        sync.Mutex
	launched  int
	closed    int
	launchErr error
	newPage   func() (*fakePage, error)
	pages     []*fakePage
}

func (e *fakeEngine) Launch(ctx context.Context) (Browser, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.launchErr != nil {
		return nil, e.launchErr
	}
	e.launched++
	return &fakeBrowser{engine: e}, nil
}

func (e *fakeEngine) counts() (int, int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.launched, e.closed
}

type fakeBrowser struct {
	engine *fakeEngine
}

func (b *fakeBrowser) NewPage(ctx context.Context) (Page, error) {
	page := &fakePage{}
	if b.engine.newPage != nil {
		p, err := b.engine.newPage()
		if err != nil {
			return nil, err
		}
		page = p
	}

	b.engine.mu.Lock()
	b.engine.pages = append(b.engine.pages, page)
	b.engine.mu.Unlock()
	return page, nil
}

func (b *fakeBrowser) UserAgent() (string, error) {
	return "HeadlessChrome/130.0.0.0", nil
}

func (b *fakeBrowser) Version() string {
	return "130.0.0.0"
}

func (b *fakeBrowser) Close() error {
	b.engine.mu.Lock()
	defer b.engine.mu.Unlock()
	b.engine.closed++
	return nil
}

type fakeExchange struct {
	url          string
	resourceType string
	status       int
	body         string
	bodyErr      error
	failure      error
}

type fakePage struct {
	viewport    *Viewport
	navigated   []string
	gotoErr     error
	elements    map[string][]byte
	screenshots []ScreenshotOptions
	shotErr     error
	html        string
	exchanges   []fakeExchange
	late        []fakeExchange
	observer    ExchangeObserver
}

func (p *fakePage) SetViewport(viewport Viewport) error {
	p.viewport = &viewport
	return nil
}

// Goto replays exchanges to the observer the way an engine would while the
// page loads; late exchanges arrive after it returns.
func (p *fakePage) Goto(ctx context.Context, url string, timeout time.Duration) error {
	p.navigated = append(p.navigated, url)
	if p.gotoErr != nil {
		return p.gotoErr
	}

	if p.observer != nil {
		for _, e := range p.exchanges {
			p.emit(e)
		}
	}
	return nil
}

func (p *fakePage) emit(e fakeExchange) {
	request := &fakeRequest{url: e.url, resourceType: e.resourceType}
	p.observer.OnRequest(request)
	if e.failure != nil {
		p.observer.OnRequestFailed(request, e.failure)
		return
	}
	p.observer.OnResponse(&fakeResponse{request: request, exchange: e})
}

func (p *fakePage) deliverLate() {
	for _, e := range p.late {
		p.emit(e)
	}
}

func (p *fakePage) Intercept(observer ExchangeObserver) error {
	p.observer = observer
	return nil
}

func (p *fakePage) QuerySelector(selector string) (Element, error) {
	buffer, ok := p.elements[selector]
	if !ok {
		return nil, nil
	}
	return &fakeElement{buffer: buffer}, nil
}

func (p *fakePage) Screenshot(options ScreenshotOptions) ([]byte, error) {
	if p.shotErr != nil {
		return nil, p.shotErr
	}
	p.screenshots = append(p.screenshots, options)
	return []byte("\x89PNG page"), nil
}

func (p *fakePage) Content() (string, error) {
	return p.html, nil
}

type fakeElement struct {
	buffer []byte
}

func (e *fakeElement) Screenshot() ([]byte, error) {
	return e.buffer, nil
}

type fakeRequest struct {
	url          string
	resourceType string
}

func (r *fakeRequest) URL() string {
	return r.url
}

func (r *fakeRequest) ResourceType() string {
	return r.resourceType
}

type fakeResponse struct {
	request  *fakeRequest
	exchange fakeExchange
}

func (r *fakeResponse) Request() Request {
	return r.request
}

func (r *fakeResponse) Status() int {
	return r.exchange.status
}

func (r *fakeResponse) Text() (string, error) {
	return r.exchange.body, r.exchange.bodyErr
}

type failingStorage struct {
	failKeys map[string]bool
	mu       sync.Mutex
	written  map[string][]byte
}

func (s *failingStorage) Put(ctx context.Context, key string, data []byte) (string, error) {
	if s.failKeys[key] {
		return "", errors.New("disk full")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.written == nil {
		s.written = map[string][]byte{}
	}
	s.written[key] = data
	return "mem://" + key, nil
}

func (s *failingStorage) Get(ctx context.Context, url string) ([]byte, error) {
	return nil, errors.New("not implemented")
}
