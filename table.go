package gridwire

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gridwire-dev/gridwire/pkg/coordinator"
	"github.com/gridwire-dev/gridwire/pkg/reactive"
	"github.com/gridwire-dev/gridwire/pkg/selection"
	"github.com/gridwire-dev/gridwire/pkg/urlstate"
)

// Option configures a Table.
type Option func(*Table)

// WithNotifier attaches the optional cross-window notification port.
func WithNotifier(n Notifier) Option {
	return func(t *Table) {
		t.notifier = n
	}
}

// Table is the root state machine for one grid instance. It composes the
// selection engine, the URL state controller and the request coordinator,
// and drives the observable RenderState consumed by the view layer.
//
// All bookmarkable mutations are URL-first: interactions write the new
// parameters to the URL controller, and the resulting parameter-change
// notification applies the transformation (re-derive in static mode,
// debounced reload in dynamic mode). The URL is the durable source of
// truth; in-memory state follows it.
type Table struct {
	cfg      TableConfig
	url      *urlstate.Controller
	coord    *coordinator.Coordinator
	engine   *selection.Engine
	notifier Notifier
	logger   *slog.Logger

	selectionEnabled bool
	apiEnabled       bool

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	phase   Phase
	sort    urlstate.Sort
	filters map[string]string
	page    urlstate.Page
	visible []selection.Row
	total   int
	loading bool
	err     error

	// parentStates caches the engine's aggregate lookup so renders do not
	// recompute it per row.
	parentStates map[string]bool

	// pendingSelection holds URL-hydrated selection keys until the first
	// dataset arrives: the explicit join between "URL ready" and "data
	// ready" that two-phase hydration requires.
	pendingSelection []string

	loadSeq   uint64
	destroyed bool

	render  *reactive.State[RenderState]
	cancels []func()

	debounceMu sync.Mutex
	debounce   *time.Timer
}

// NewTable constructs a table, hydrates it from the URL controller's
// current snapshot, and triggers the initial data load.
func NewTable(cfg TableConfig, url *urlstate.Controller, coord *coordinator.Coordinator, opts ...Option) *Table {
	selectionEnabled, apiEnabled := cfg.Validate()

	ctx, cancel := context.WithCancel(context.Background())
	t := &Table{
		cfg:              cfg,
		url:              url,
		coord:            coord,
		engine:           selection.New(cfg.ParentField, cfg.ChildField, nil),
		logger:           cfg.Logger,
		selectionEnabled: selectionEnabled,
		apiEnabled:       apiEnabled,
		ctx:              ctx,
		cancel:           cancel,
		phase:            PhaseUninitialized,
		filters:          make(map[string]string),
		parentStates:     make(map[string]bool),
		render:           reactive.NewState(RenderState{}),
	}
	for _, opt := range opts {
		opt(t)
	}

	t.init()
	return t
}

// State returns the observable render state. Hydrate in two phases: Get for
// the first render, Subscribe for changes.
func (t *Table) State() *reactive.State[RenderState] {
	return t.render
}

// Phase returns the table's lifecycle phase.
func (t *Table) Phase() Phase {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.phase
}

// init hydrates sort, filters, pagination and selection from the URL
// snapshot (synchronous reads), registers parameter watches (subsequent
// changes), then triggers the initial load. Snapshot-before-subscribe is
// the hydration ordering invariant.
func (t *Table) init() {
	t.mu.Lock()
	t.phase = PhaseHydrating
	t.hydrateFromURLLocked()
	if t.selectionEnabled {
		t.pendingSelection = urlstate.DecodeSelection(t.url.Read(t.cfg.SelectionParam))
	}
	t.mu.Unlock()

	t.watchParam(urlstate.ParamSort)
	t.watchParam(urlstate.ParamPage)
	t.watchParam(urlstate.ParamPageSize)
	for _, column := range t.cfg.FilterColumns {
		t.watchParam(urlstate.FilterPrefix + column)
	}
	if t.selectionEnabled {
		cancel := t.url.Watch(t.cfg.SelectionParam, t.hydrateSelection)
		t.cancels = append(t.cancels, cancel)
	}

	t.load()
}

// hydrateFromURLLocked re-derives sort, filters and pagination from the
// current URL snapshot. Callers hold t.mu.
func (t *Table) hydrateFromURLLocked() {
	snapshot := t.url.Snapshot()
	t.sort = urlstate.DecodeSort(snapshot[urlstate.ParamSort])
	t.filters = urlstate.DecodeFilters(snapshot)
	t.page = urlstate.DecodePage(
		snapshot[urlstate.ParamPage],
		snapshot[urlstate.ParamPageSize],
		t.cfg.DefaultPageSize,
	)
}

// watchParam wires one primary query parameter to the reload path.
// Highlight (h_) parameters are never watched here, so they cannot trigger
// a refetch.
func (t *Table) watchParam(key string) {
	cancel := t.url.Watch(key, func(string) {
		t.onQueryChange()
	})
	t.cancels = append(t.cancels, cancel)
}

// onQueryChange handles a primary parameter change: immediate re-derive in
// static mode, debounced reload in dynamic mode so rapid consecutive
// changes collapse into one fetch.
func (t *Table) onQueryChange() {
	if t.cfg.Mode == ModeDynamic {
		t.debounced(t.refresh)
		return
	}
	t.refresh()
}

// refresh re-derives table state from the URL and reloads data.
func (t *Table) refresh() {
	t.mu.Lock()
	if t.destroyed {
		t.mu.Unlock()
		return
	}
	t.hydrateFromURLLocked()
	t.mu.Unlock()

	t.load()
}

// load triggers a data load for the current sort/filter/pagination state.
func (t *Table) load() {
	if t.cfg.Mode == ModeStatic {
		t.deriveStatic()
		return
	}
	if !t.apiEnabled {
		// Misconfigured dynamic table: surface an empty, non-loading
		// state instead of hanging in loading forever.
		t.mu.Lock()
		t.loading = false
		t.phase = PhaseReady
		state := t.renderLocked()
		t.mu.Unlock()
		t.render.Set(state)
		return
	}

	t.mu.Lock()
	t.loadSeq++
	seq := t.loadSeq
	t.loading = true
	t.phase = PhaseLoading
	params := t.requestParamsLocked()
	state := t.renderLocked()
	t.mu.Unlock()
	t.render.Set(state)

	go func() {
		data, err := t.coord.Get(t.ctx, t.cfg.Endpoint, params)
		t.applyResult(seq, data, err)
	}()
}

// apiResponse is the dynamic-mode payload contract: the server returns one
// page of rows, already sorted and filtered, plus the total match count.
type apiResponse struct {
	Rows  []selection.Row `json:"rows"`
	Total int             `json:"total"`
}

// applyResult installs a fetch outcome, unless the table was torn down or a
// newer load superseded this one.
func (t *Table) applyResult(seq uint64, data []byte, err error) {
	var resp apiResponse
	if err == nil {
		if decodeErr := json.Unmarshal(data, &resp); decodeErr != nil {
			err = fmt.Errorf("decode response: %w", decodeErr)
		}
	}

	t.mu.Lock()
	if t.destroyed || seq != t.loadSeq {
		t.mu.Unlock()
		return
	}
	if err != nil {
		// Fetch failure degrades to an empty state; never stuck loading.
		t.visible = []selection.Row{}
		t.total = 0
		t.err = err
	} else {
		t.visible = resp.Rows
		if t.visible == nil {
			t.visible = []selection.Row{}
		}
		t.total = resp.Total
		t.err = nil
	}
	t.loading = false
	t.phase = PhaseReady
	t.anchorLocked()
	state := t.renderLocked()
	t.mu.Unlock()
	t.render.Set(state)
}

// deriveStatic recomputes the visible rows fully client-side: filter, then
// sort, then paginate.
func (t *Table) deriveStatic() {
	t.mu.Lock()
	if t.destroyed {
		t.mu.Unlock()
		return
	}

	filtered := filterRows(t.cfg.Rows, t.filters)
	sortRows(filtered, t.sort)
	t.total = len(filtered)

	offset := t.page.Offset()
	if offset > len(filtered) {
		offset = len(filtered)
	}
	end := offset + t.page.Size
	if end > len(filtered) {
		end = len(filtered)
	}
	t.visible = filtered[offset:end]

	t.loading = false
	t.err = nil
	t.phase = PhaseReady
	t.anchorLocked()
	state := t.renderLocked()
	t.mu.Unlock()
	t.render.Set(state)
}

// anchorLocked re-anchors the selection engine onto the newly visible rows,
// preserving the selected-keys set, and applies any selection still waiting
// on its first dataset. Callers hold t.mu.
func (t *Table) anchorLocked() {
	t.engine.Anchor(t.visible)
	if t.pendingSelection != nil {
		t.engine.SetSelectedKeys(t.pendingSelection)
		t.pendingSelection = nil
	}
	t.parentStates = t.engine.ParentStates()
}

// SortBy handles a sort-column click: toggle direction on the active
// column, otherwise reset to ascending. URL-first: the write drives the
// parameter watch, which applies the transformation.
func (t *Table) SortBy(field string) {
	if field == "" {
		return
	}

	// Read the active sort from the URL, not from in-memory state: in
	// dynamic mode the in-memory copy lags behind the debounce window, and
	// the URL is the source of truth either way.
	current := urlstate.DecodeSort(t.url.Read(urlstate.ParamSort))
	next := urlstate.Sort{Field: field, Order: urlstate.OrderAsc}
	if current.Field == field && current.Order == urlstate.OrderAsc {
		next.Order = urlstate.OrderDesc
	}

	if !t.url.Write(map[string]string{urlstate.ParamSort: urlstate.EncodeSort(next)}, urlstate.ModeMerge) {
		t.logger.Warn("sort url write rejected; continuing with in-memory state", "field", field)
	}
	t.notify(EventSortChanged, map[string]any{
		"field": next.Field,
		"order": string(next.Order),
	})
}

// SetFilter updates one column's filter value (case-insensitive substring
// match); an empty value removes the filter parameter entirely.
func (t *Table) SetFilter(column, value string) {
	if column == "" {
		return
	}

	if !t.url.Write(map[string]string{urlstate.FilterPrefix + column: value}, urlstate.ModeMerge) {
		t.logger.Warn("filter url write rejected; continuing with in-memory state", "column", column)
	}
	t.notify(EventFilterChanged, map[string]any{
		"column": column,
		"value":  value,
	})
}

// SetPage navigates to a 1-indexed page. Page and size are written in a
// single merge call so neither overwrites a stale snapshot of the other.
func (t *Table) SetPage(page int) {
	if page < 1 {
		page = 1
	}
	t.writePagination(page, t.currentPage().Size)
}

// SetPageSize changes the rows-per-page setting, keeping the current page.
func (t *Table) SetPageSize(size int) {
	if size < 1 {
		return
	}
	t.writePagination(t.currentPage().Number, size)
}

// currentPage decodes pagination straight from the URL snapshot.
func (t *Table) currentPage() urlstate.Page {
	return urlstate.DecodePage(
		t.url.Read(urlstate.ParamPage),
		t.url.Read(urlstate.ParamPageSize),
		t.cfg.DefaultPageSize,
	)
}

func (t *Table) writePagination(page, size int) {
	params := map[string]string{
		urlstate.ParamPage:     strconv.Itoa(page),
		urlstate.ParamPageSize: strconv.Itoa(size),
	}
	if !t.url.Write(params, urlstate.ModeMerge) {
		t.logger.Warn("pagination url write rejected; continuing with in-memory state", "page", page)
	}
}

// ToggleRow toggles one row's child selection.
func (t *Table) ToggleRow(row selection.Row) {
	if !t.selectionEnabled {
		return
	}
	t.engine.ToggleChild(row)
	t.afterSelectionChange()
}

// ToggleParent applies the binary select-all/deselect-all parent toggle.
func (t *Table) ToggleParent(parent string) {
	if !t.selectionEnabled {
		return
	}
	t.engine.ToggleParent(parent)
	t.afterSelectionChange()
}

// ClearSelection deselects everything, removing the selection parameter
// from the URL rather than writing an empty value.
func (t *Table) ClearSelection() {
	if !t.selectionEnabled {
		return
	}
	t.engine.ClearAll()
	t.afterSelectionChange()
}

// ParentChecked reads the cached aggregate state for one parent.
func (t *Table) ParentChecked(parent string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.parentStates[parent]
}

// IsRowSelected reports whether a row's child is currently selected.
func (t *Table) IsRowSelected(row selection.Row) bool {
	if !t.selectionEnabled {
		return false
	}
	return t.engine.IsRowSelected(row)
}

// afterSelectionChange recomputes the cached parent-state table, emits, and
// writes the serialized selection back to the URL.
func (t *Table) afterSelectionChange() {
	t.mu.Lock()
	t.parentStates = t.engine.ParentStates()
	state := t.renderLocked()
	t.mu.Unlock()
	t.render.Set(state)

	keys := t.engine.SelectedKeys()
	encoded := urlstate.EncodeSelection(keys)
	if !t.url.Write(map[string]string{t.cfg.SelectionParam: encoded}, urlstate.ModeMerge) {
		t.logger.Warn("selection url write rejected; continuing with in-memory state")
	}
	t.notify(EventSelectionChanged, map[string]any{
		"param": t.cfg.SelectionParam,
		"keys":  keys,
	})
}

// hydrateSelection applies a selection parameter change coming from the
// URL (back/forward navigation, another window). Writes originating from
// this table round-trip to the same key set and are dropped here.
func (t *Table) hydrateSelection(raw string) {
	keys := urlstate.DecodeSelection(raw)
	if equalKeys(keys, t.engine.SelectedKeys()) {
		return
	}
	t.engine.SetSelectedKeys(keys)

	t.mu.Lock()
	if t.destroyed {
		t.mu.Unlock()
		return
	}
	t.parentStates = t.engine.ParentStates()
	state := t.renderLocked()
	t.mu.Unlock()
	t.render.Set(state)
}

// Destroy tears the table down deterministically: every URL watch is
// cancelled, the debounce timer stopped, and in-flight fetch results are
// discarded so orphaned callbacks cannot mutate a discarded instance.
func (t *Table) Destroy() {
	t.mu.Lock()
	if t.destroyed {
		t.mu.Unlock()
		return
	}
	t.destroyed = true
	cancels := t.cancels
	t.cancels = nil
	t.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	t.debounceMu.Lock()
	if t.debounce != nil {
		t.debounce.Stop()
	}
	t.debounceMu.Unlock()
	t.cancel()
}

// debounced schedules fn after the configured quiet window, resetting the
// window on every call.
func (t *Table) debounced(fn func()) {
	t.debounceMu.Lock()
	defer t.debounceMu.Unlock()

	if t.debounce != nil {
		t.debounce.Stop()
	}
	t.debounce = time.AfterFunc(t.cfg.Debounce, fn)
}

// requestParamsLocked builds the dynamic-mode request parameters. Callers
// hold t.mu.
func (t *Table) requestParamsLocked() map[string]any {
	params := map[string]any{
		urlstate.ParamPage:     t.page.Number,
		urlstate.ParamPageSize: t.page.Size,
	}
	if !t.sort.IsZero() {
		params[urlstate.ParamSort] = urlstate.EncodeSort(t.sort)
	}
	for column, value := range t.filters {
		params[urlstate.FilterPrefix+column] = value
	}
	return params
}

// renderLocked builds the observable snapshot. Callers hold t.mu; the
// emission itself happens after unlock so subscribers may re-enter.
func (t *Table) renderLocked() RenderState {
	filters := make(map[string]string, len(t.filters))
	for column, value := range t.filters {
		filters[column] = value
	}
	return RenderState{
		Rows:          t.visible,
		TotalCount:    t.total,
		Loading:       t.loading,
		Err:           t.err,
		SelectedKeys:  t.engine.SelectedKeys(),
		SelectedItems: t.engine.SelectedItems(),
		ParentStates:  t.parentStates,
		SortField:     t.sort.Field,
		SortOrder:     t.sort.Order,
		ActiveFilters: filters,
		Page:          t.page.Number,
		PageSize:      t.page.Size,
	}
}

// notify publishes to the optional cross-window port.
func (t *Table) notify(event string, payload map[string]any) {
	if t.notifier == nil {
		return
	}
	t.notifier.Publish(event, payload)
}

// filterRows applies every active filter as a case-insensitive substring
// match on the column's value.
func filterRows(rows []selection.Row, filters map[string]string) []selection.Row {
	if len(filters) == 0 {
		out := make([]selection.Row, len(rows))
		copy(out, rows)
		return out
	}

	out := make([]selection.Row, 0, len(rows))
	for _, row := range rows {
		if matchesFilters(row, filters) {
			out = append(out, row)
		}
	}
	return out
}

func matchesFilters(row selection.Row, filters map[string]string) bool {
	for column, value := range filters {
		cell := strings.ToLower(rowField(row, column))
		if !strings.Contains(cell, strings.ToLower(value)) {
			return false
		}
	}
	return true
}

// sortRows sorts in place by the descriptor's field. Values that both
// parse as numbers compare numerically; everything else compares as
// strings. The sort is stable so equal keys keep their incoming order.
func sortRows(rows []selection.Row, s urlstate.Sort) {
	if s.IsZero() {
		return
	}
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rowField(rows[i], s.Field), rowField(rows[j], s.Field)
		less := lessValue(a, b)
		if s.Order == urlstate.OrderDesc {
			return lessValue(b, a)
		}
		return less
	})
}

func lessValue(a, b string) bool {
	fa, errA := strconv.ParseFloat(a, 64)
	fb, errB := strconv.ParseFloat(b, 64)
	if errA == nil && errB == nil {
		return fa < fb
	}
	return a < b
}

func rowField(row selection.Row, field string) string {
	v, ok := row[field]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func equalKeys(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
