package capture

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"path"
	"snapshoteer/internal/storage"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultResourcePathPrefix = "/application"
	DefaultIndexKey           = "index.html"
	defaultPersistConcurrency = 4
)

var errRequestFailed = errors.New("request failed")

type Exchange struct {
	URL          string
	ResourceType string
	Status       int
	Failure      error

	response Response
}

type Snapshot struct {
	// PrimaryStatus is the status of the response to the target URL, 0 when
	// it was never observed.
	PrimaryStatus int
	Index         string
	Resources     []string
	Exchanges     []Exchange
}

type Interceptor struct {
	Storage storage.Storage
	// PathPrefix selects which script and stylesheet URLs get persisted.
	PathPrefix         string
	IndexKey           string
	NavigationTimeout  time.Duration
	PersistConcurrency int
	Logger             *slog.Logger
}

// Run loads target on page while recording every network exchange, then
// persists the matching resource bodies and the rendered HTML. Only exchanges
// observed before the network settles are considered.
func (i *Interceptor) Run(ctx context.Context, page Page, target string) (*Snapshot, error) {
	ctx, span := tracer.Start(ctx, "Interceptor.Run", trace.WithAttributes(
		attribute.String("url", target),
	))
	defer span.End()

	logger := i.logger()

	r := &recorder{}
	if err := page.Intercept(r); err != nil {
		span.RecordError(err)
		return nil, newError(ErrCaptureFailed, err, "failed to enable request interception")
	}

	if err := page.Goto(ctx, target, i.navigationTimeout()); err != nil {
		span.RecordError(err)
		return nil, newError(ErrCaptureFailed, err, "failed to navigate to %s", target)
	}

	exchanges := r.settle()
	snapshot := &Snapshot{
		Exchanges: exchanges,
	}

	normalizedTarget := normalizeURL(target)
	var persistable []persistTask
	for _, e := range exchanges {
		if e.response == nil {
			if e.Failure != nil {
				logger.Info("download request failed", "url", e.URL, "error", e.Failure)
			} else {
				logger.Debug("download request", "url", e.URL)
			}
			continue
		}

		logger.Debug("download response", "url", e.URL, "status", e.Status)

		if normalizeURL(e.URL) == normalizedTarget {
			snapshot.PrimaryStatus = e.Status
		}

		if key, ok := i.resourceKey(e); ok {
			persistable = append(persistable, persistTask{key: key, exchange: e})
		}
	}

	snapshot.Resources = i.persist(ctx, persistable)

	html, err := page.Content()
	if err != nil {
		span.RecordError(err)
		return nil, newError(ErrCaptureFailed, err, "failed to get HTML content")
	}

	index, err := i.Storage.Put(ctx, i.indexKey(), []byte(html))
	if err != nil {
		span.RecordError(err)
		return nil, newError(ErrCaptureFailed, err, "failed to write %s", i.indexKey())
	}
	snapshot.Index = index

	logger.Info("status for main url", "url", target, "status", snapshot.PrimaryStatus, "resources", len(snapshot.Resources))

	return snapshot, nil
}

type persistTask struct {
	key      string
	exchange Exchange
}

// persist writes each body on a best-effort basis and returns the locations
// that were written, in observation order.
func (i *Interceptor) persist(ctx context.Context, tasks []persistTask) []string {
	logger := i.logger()
	locations := make([]string, len(tasks))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(i.persistConcurrency())
	for n, task := range tasks {
		eg.Go(func() error {
			text, err := task.exchange.response.Text()
			if err != nil {
				logger.Warn("failed to read response body", "error", newError(ErrResourcePersistFailed, err, "failed to read %s", task.exchange.URL))
				return nil
			}

			location, err := i.Storage.Put(ctx, task.key, []byte(text))
			if err != nil {
				logger.Warn("failed to write response body", "error", newError(ErrResourcePersistFailed, err, "failed to write %s", task.key))
				return nil
			}

			logger.Info("wrote response text", "url", task.exchange.URL, "location", location)
			locations[n] = location
			return nil
		})
	}
	_ = eg.Wait()

	written := make([]string, 0, len(locations))
	for _, location := range locations {
		if location != "" {
			written = append(written, location)
		}
	}
	return written
}

// resourceKey mirrors the URL path of a matching script or stylesheet. Dot
// segments are resolved first, so the key can not climb above the storage
// root; nothing else is sanitized.
func (i *Interceptor) resourceKey(e Exchange) (string, bool) {
	if e.ResourceType != ResourceTypeScript && e.ResourceType != ResourceTypeStylesheet {
		return "", false
	}

	u, err := url.Parse(e.URL)
	if err != nil {
		return "", false
	}

	p := path.Clean("/" + u.Path)
	prefix := i.pathPrefix()
	if !strings.HasPrefix(p, prefix) {
		return "", false
	}

	key := strings.TrimPrefix(p, "/")
	if key == "" {
		return "", false
	}
	return key, true
}

func (i *Interceptor) navigationTimeout() time.Duration {
	if i.NavigationTimeout > 0 {
		return i.NavigationTimeout
	}
	return DefaultNavigationTimeout
}

func (i *Interceptor) pathPrefix() string {
	if i.PathPrefix != "" {
		return i.PathPrefix
	}
	return DefaultResourcePathPrefix
}

func (i *Interceptor) indexKey() string {
	if i.IndexKey != "" {
		return i.IndexKey
	}
	return DefaultIndexKey
}

func (i *Interceptor) persistConcurrency() int {
	if i.PersistConcurrency > 0 {
		return i.PersistConcurrency
	}
	return defaultPersistConcurrency
}

func (i *Interceptor) logger() *slog.Logger {
	if i.Logger != nil {
		return i.Logger
	}
	return slog.Default()
}

// normalizeURL makes "https://example.com" and "https://example.com/" compare
// equal, as browsers report the latter.
func normalizeURL(s string) string {
	u, err := url.Parse(s)
	if err != nil {
		return s
	}
	u.Fragment = ""
	u.RawFragment = ""
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if u.Path == "" && u.Opaque == "" {
		u.Path = "/"
	}
	return u.String()
}

// recorder collects exchanges in arrival order. Engines call it from their
// own goroutines.
type recorder struct {
	mu        sync.Mutex
	exchanges []Exchange
	settled   bool
}

func (r *recorder) OnRequest(request Request) {
	r.append(Exchange{
		URL:          request.URL(),
		ResourceType: request.ResourceType(),
	})
}

func (r *recorder) OnResponse(response Response) {
	request := response.Request()
	r.append(Exchange{
		URL:          request.URL(),
		ResourceType: request.ResourceType(),
		Status:       response.Status(),
		response:     response,
	})
}

func (r *recorder) OnRequestFailed(request Request, err error) {
	if err == nil {
		err = errRequestFailed
	}
	r.append(Exchange{
		URL:          request.URL(),
		ResourceType: request.ResourceType(),
		Failure:      err,
	})
}

func (r *recorder) append(e Exchange) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.settled {
		return
	}
	r.exchanges = append(r.exchanges, e)
}

// settle stops recording and returns what was observed so far.
func (r *recorder) settle() []Exchange {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.settled = true
	return r.exchanges
}
