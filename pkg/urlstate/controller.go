package urlstate

import (
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/gridwire-dev/gridwire/pkg/reactive"
)

// WriteMode controls how Write combines parameters with the current snapshot.
type WriteMode int

const (
	// ModeMerge unions the given parameters into the existing set.
	// Empty-string values are deletions. This is the default: unrelated
	// parameters are never clobbered by a merge write.
	ModeMerge WriteMode = iota

	// ModeReplace discards all existing parameters first. Used for
	// explicit resets.
	ModeReplace
)

// Option configures a Controller.
type Option func(*Controller)

// WithPersistent sets the allow-list of parameter names that survive an
// explicit route change.
func WithPersistent(names ...string) Option {
	return func(c *Controller) {
		for _, name := range names {
			c.persistent[name] = true
		}
	}
}

// WithLogger sets the controller's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// Controller owns the live query-parameter snapshot and is the single source
// of truth for all bookmarkable state.
//
// Two directions:
//   - Inbound: the host navigation emits a new parameter set via Sync; the
//     snapshot is replaced wholesale and per-key watchers fire.
//   - Outbound: Write merges or replaces parameters, updates the snapshot,
//     and hands the full canonical set to the Navigator.
//
// Components hydrating from the controller must Read a synchronous snapshot
// for their first render, then Watch for subsequent changes.
type Controller struct {
	nav    Navigator
	logger *slog.Logger

	mu sync.RWMutex

	// params is the current snapshot; order preserves first-seen parameter
	// order so encoded URLs stay stable across merges.
	params map[string]string
	order  []string

	// watchers holds the per-key observable states backing Watch.
	// reactive.State dedups unchanged values, so watchers are no-op on
	// writes that do not change their key.
	watchers map[string]*reactive.State[string]

	// persistent is the allow-list for cross-navigation persistence.
	persistent map[string]bool
}

// NewController creates a controller bound to the given navigation
// collaborator.
func NewController(nav Navigator, opts ...Option) *Controller {
	c := &Controller{
		nav:        nav,
		logger:     slog.Default(),
		params:     make(map[string]string),
		watchers:   make(map[string]*reactive.State[string]),
		persistent: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Read returns a synchronous snapshot of one parameter. Missing parameters
// read as the empty string.
func (c *Controller) Read(key string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.params[key]
}

// Has reports whether a parameter is present in the snapshot.
func (c *Controller) Has(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.params[key]
	return ok
}

// Snapshot returns a copy of the full parameter map.
func (c *Controller) Snapshot() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.copyParams()
}

// Watch subscribes to one parameter's changes. The subscription is
// deduplicated: writes that leave the value unchanged do not fire. It does
// not fire for the current value; Read first for hydration.
//
// The returned cancel function tears the subscription down deterministically.
func (c *Controller) Watch(key string, fn func(value string)) (cancel func()) {
	return c.watcher(key).Subscribe(fn)
}

// Write applies a parameter mutation and reports whether the underlying
// navigation succeeded. The snapshot is updated either way, so the in-memory
// state may be transiently ahead of the URL after a failure; the next
// successful write reconciles them.
//
// In ModeMerge, empty-string values delete their key: the engine removes
// parameters instead of writing empty values.
func (c *Controller) Write(params map[string]string, mode WriteMode) bool {
	c.mu.Lock()

	if mode == ModeReplace {
		c.params = make(map[string]string, len(params))
		c.order = c.order[:0]
	}
	for key, value := range params {
		if value == "" {
			c.deleteParam(key)
			continue
		}
		c.setParam(key, value)
	}

	snapshot := c.copyParams()
	changed := c.changedWatchers()
	c.mu.Unlock()

	c.fire(changed)

	ok := c.nav.Navigate(snapshot)
	if !ok {
		c.logger.Warn("url navigation rejected", "params", len(snapshot))
	}
	return ok
}

// Sync replaces the snapshot wholesale with a parameter set emitted by the
// host navigation. It does not call back into the Navigator.
func (c *Controller) Sync(params map[string]string) {
	c.mu.Lock()

	c.params = make(map[string]string, len(params))
	c.order = c.order[:0]
	for key, value := range params {
		c.setParam(key, value)
	}

	changed := c.changedWatchers()
	c.mu.Unlock()

	c.fire(changed)
}

// SyncQuery is Sync for a raw query string ("a=1&b=2"). Malformed input
// degrades to whatever url.ParseQuery salvages.
func (c *Controller) SyncQuery(query string) {
	values, err := url.ParseQuery(query)
	if err != nil {
		c.logger.Warn("malformed query string", "error", err)
	}
	params := make(map[string]string, len(values))
	for key := range values {
		params[key] = values.Get(key)
	}
	c.Sync(params)
}

// QueryString encodes the snapshot as a query string in stable parameter
// order (first-seen order, preserved across merges).
func (c *Controller) QueryString() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var b strings.Builder
	for _, key := range c.order {
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(c.params[key]))
	}
	return b.String()
}

// Preserved returns the parameters that should survive an explicit route
// change: the configured allow-list plus any ad hoc extras for this one
// navigation. The host merges the result into the destination route's
// parameters.
func (c *Controller) Preserved(extras ...string) map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keep := make(map[string]string)
	for name := range c.persistent {
		if value, ok := c.params[name]; ok {
			keep[name] = value
		}
	}
	for _, name := range extras {
		if value, ok := c.params[name]; ok {
			keep[name] = value
		}
	}
	return keep
}

// Highlights returns all h_-namespace parameters, keyed without the prefix.
// Highlight parameters carry secondary state (e.g. highlight ranges) and
// never trigger a data refetch.
func (c *Controller) Highlights() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	h := make(map[string]string)
	for key, value := range c.params {
		if name, ok := strings.CutPrefix(key, HighlightPrefix); ok && name != "" {
			h[name] = value
		}
	}
	return h
}

// SetHighlights merge-writes the given values into the h_ namespace.
func (c *Controller) SetHighlights(values map[string]string) bool {
	params := make(map[string]string, len(values))
	for name, value := range values {
		params[HighlightPrefix+name] = value
	}
	return c.Write(params, ModeMerge)
}

// ClearHighlights removes every h_-namespace parameter.
func (c *Controller) ClearHighlights() bool {
	c.mu.RLock()
	params := make(map[string]string)
	for key := range c.params {
		if strings.HasPrefix(key, HighlightPrefix) {
			params[key] = ""
		}
	}
	c.mu.RUnlock()

	if len(params) == 0 {
		return true
	}
	return c.Write(params, ModeMerge)
}

// IsHighlightParam reports whether a parameter belongs to the secondary
// highlight namespace.
func IsHighlightParam(key string) bool {
	return strings.HasPrefix(key, HighlightPrefix)
}

// watcher lazily creates the observable state for one key.
func (c *Controller) watcher(key string) *reactive.State[string] {
	c.mu.Lock()
	defer c.mu.Unlock()

	if w, ok := c.watchers[key]; ok {
		return w
	}
	w := reactive.NewState(c.params[key])
	c.watchers[key] = w
	return w
}

// setParam inserts or updates a parameter, tracking first-seen order.
// Callers hold c.mu.
func (c *Controller) setParam(key, value string) {
	if _, ok := c.params[key]; !ok {
		c.order = append(c.order, key)
	}
	c.params[key] = value
}

// deleteParam removes a parameter and its order slot. Callers hold c.mu.
func (c *Controller) deleteParam(key string) {
	if _, ok := c.params[key]; !ok {
		return
	}
	delete(c.params, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

// copyParams copies the snapshot. Callers hold c.mu.
func (c *Controller) copyParams() map[string]string {
	snapshot := make(map[string]string, len(c.params))
	for k, v := range c.params {
		snapshot[k] = v
	}
	return snapshot
}

// changedWatchers pairs each registered watcher with the value it should
// observe next. Callers hold c.mu; firing happens after the lock is
// released so callbacks can re-enter the controller.
func (c *Controller) changedWatchers() []watcherUpdate {
	updates := make([]watcherUpdate, 0, len(c.watchers))
	for key, w := range c.watchers {
		updates = append(updates, watcherUpdate{state: w, value: c.params[key]})
	}
	return updates
}

type watcherUpdate struct {
	state *reactive.State[string]
	value string
}

// fire pushes values into watcher states; reactive.State drops unchanged
// values, which gives Watch its dedup guarantee.
func (c *Controller) fire(updates []watcherUpdate) {
	for _, u := range updates {
		u.state.Set(u.value)
	}
}
