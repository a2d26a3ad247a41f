package coordinator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultTTL bounds how long a cache entry may be reused.
const DefaultTTL = 5 * time.Minute

// keySeparator joins path and serialized parameters in a cache key. "::"
// cannot appear in a request path.
const keySeparator = "::"

// defaultTracerName is the tracer used for fetch spans.
const defaultTracerName = "gridwire/coordinator"

// Fetcher is the external network collaborator: given a path and a flat
// parameter object it returns a single eventual JSON payload or fails with
// a transport error. No retry policy is assumed at this layer.
type Fetcher interface {
	Fetch(ctx context.Context, path string, params map[string]any) ([]byte, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, path string, params map[string]any) ([]byte, error)

// Fetch implements Fetcher.
func (f FetcherFunc) Fetch(ctx context.Context, path string, params map[string]any) ([]byte, error) {
	return f(ctx, path, params)
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithTTL sets the reuse window for live cache entries.
func WithTTL(ttl time.Duration) Option {
	return func(c *Coordinator) {
		c.ttl = ttl
	}
}

// WithClock injects a time source. Tests use this to age entries without
// sleeping.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		c.now = now
	}
}

// WithLogger sets the coordinator's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

// WithMetrics attaches Prometheus metrics.
func WithMetrics(m *Metrics) Option {
	return func(c *Coordinator) {
		c.metrics = m
	}
}

// WithTracerName overrides the OpenTelemetry tracer name.
func WithTracerName(name string) Option {
	return func(c *Coordinator) {
		c.tracer = otel.Tracer(name)
	}
}

// entry is one shared in-flight or just-completed fetch.
type entry struct {
	created time.Time
	done    chan struct{}

	// data/err are valid once done is closed.
	data []byte
	err  error
}

// Coordinator guarantees at most one in-flight network operation per
// distinct (path, parameter-set) pair and multicasts its result to every
// concurrent caller.
//
// The cache is process-wide by design: a single Coordinator is shared by
// every table instance in the page, and any instance may join another's
// in-flight entry. Entries are removed as soon as their fetch completes, so
// a failed request is never served from cache to a later caller.
type Coordinator struct {
	fetcher Fetcher
	ttl     time.Duration
	now     func() time.Time
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *Metrics

	mu      sync.Mutex
	entries map[string]*entry
}

// New creates a coordinator around the given fetch collaborator.
func New(fetcher Fetcher, opts ...Option) *Coordinator {
	c := &Coordinator{
		fetcher: fetcher,
		ttl:     DefaultTTL,
		now:     time.Now,
		logger:  slog.Default(),
		tracer:  otel.Tracer(defaultTracerName),
		entries: make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the payload for (path, params), joining an existing in-flight
// request for the same canonical key when one exists. Parameter key order
// never affects the key.
//
// Joining callers block until the shared fetch completes or their own ctx
// is cancelled; cancelling a joiner never cancels the shared fetch.
func (c *Coordinator) Get(ctx context.Context, path string, params map[string]any) ([]byte, error) {
	key := CacheKey(path, params)

	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		if c.now().Sub(e.created) < c.ttl {
			c.mu.Unlock()
			c.metrics.recordJoin(path)
			return c.wait(ctx, e)
		}
		// Stale entry found on lookup: drop it and fetch fresh.
		delete(c.entries, key)
	}

	e := &entry{created: c.now(), done: make(chan struct{})}
	c.entries[key] = e
	c.mu.Unlock()

	c.fetch(ctx, key, path, params, e)
	return e.data, e.err
}

// fetch performs the single network request for an entry, multicasts the
// result, and removes the entry so failures are never replayed from cache.
func (c *Coordinator) fetch(ctx context.Context, key, path string, params map[string]any, e *entry) {
	spanCtx, span := c.tracer.Start(ctx, "coordinator.fetch",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("gridwire.path", path),
			attribute.Int("gridwire.param_count", len(params)),
		),
	)
	start := c.now()

	data, err := c.fetcher.Fetch(spanCtx, path, params)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()

	c.metrics.recordRequest(path, err, c.now().Sub(start))

	e.data = data
	e.err = err
	close(e.done)

	// Entry removed on completion, success or failure. The TTL only
	// bounds reuse of a still-pending entry.
	c.mu.Lock()
	if current, ok := c.entries[key]; ok && current == e {
		delete(c.entries, key)
	}
	c.mu.Unlock()

	if err != nil {
		c.logger.Warn("fetch failed", "path", path, "error", err)
	}
}

// wait blocks a joining caller on the shared result.
func (c *Coordinator) wait(ctx context.Context, e *entry) ([]byte, error) {
	select {
	case <-e.done:
		return e.data, e.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// InvalidateAll clears the entire cache. In-flight fetches still complete
// for their current waiters; future callers start fresh.
func (c *Coordinator) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry)
}

// InvalidatePattern clears every entry whose key contains the given
// substring. Used after a mutation to force a refetch of related reads.
func (c *Coordinator) InvalidatePattern(pattern string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key := range c.entries {
		if strings.Contains(key, pattern) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Pending returns the number of live cache entries.
func (c *Coordinator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// CacheKey computes the canonical key for a request: the path alone when
// there are no parameters, otherwise the path joined with a stable
// serialization in which object keys are sorted recursively, so parameter
// order never affects the key. Nil-valued parameters are omitted.
func CacheKey(path string, params map[string]any) string {
	pruned := pruneNil(params)
	if len(pruned) == 0 {
		return path
	}
	// json.Marshal writes map keys in sorted order at every nesting
	// level, which makes the serialization canonical.
	data, err := json.Marshal(pruned)
	if err != nil {
		// Unserializable params degrade to a best-effort stable key.
		return path + keySeparator + fmt.Sprintf("%v", sortedPairs(pruned))
	}
	return path + keySeparator + string(data)
}

// pruneNil removes nil values recursively so that {"a":1,"b":null} and
// {"a":1} share a cache key.
func pruneNil(params map[string]any) map[string]any {
	if len(params) == 0 {
		return nil
	}
	out := make(map[string]any, len(params))
	for key, value := range params {
		if value == nil {
			continue
		}
		if nested, ok := value.(map[string]any); ok {
			if p := pruneNil(nested); len(p) > 0 {
				out[key] = p
			}
			continue
		}
		out[key] = value
	}
	return out
}

// sortedPairs renders params as key-sorted pairs; fallback keying only.
func sortedPairs(params map[string]any) []string {
	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, fmt.Sprintf("%s=%v", key, params[key]))
	}
	return pairs
}
