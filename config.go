package gridwire

import (
	"log/slog"
	"time"

	"github.com/gridwire-dev/gridwire/pkg/selection"
)

// Mode selects a table's data source. A table is configured into exactly
// one mode at construction; switching modes at runtime is unsupported.
type Mode int

const (
	// ModeStatic serves an externally supplied finite row set and performs
	// sorting, filtering and pagination fully client-side.
	ModeStatic Mode = iota

	// ModeDynamic is API-backed: sort, filter and pagination parameters
	// are sent with each request and the server returns rows already
	// sorted, filtered and paginated.
	ModeDynamic
)

// Defaults applied by Validate.
const (
	DefaultPageSize = 25
	DefaultDebounce = 300 * time.Millisecond
)

// Notifier is the optional cross-window notification port. The table
// publishes one-way state-change events to it (selection, sort, filter)
// and never depends on a response; a nil Notifier disables publishing.
type Notifier interface {
	Publish(event string, payload map[string]any)
}

// Event names published to the Notifier.
const (
	EventSelectionChanged = "gridwire:selection"
	EventSortChanged      = "gridwire:sort"
	EventFilterChanged    = "gridwire:filter"
)

// TableConfig configures one table instance.
type TableConfig struct {
	// Rows is the static-mode dataset. Ignored in dynamic mode.
	Rows []selection.Row

	// Mode selects static or dynamic data sourcing.
	Mode Mode

	// Endpoint is the dynamic-mode request path (e.g. "/vehicles").
	// Required in dynamic mode; without it the API load no-ops.
	Endpoint string

	// SelectionParam is the URL parameter carrying the serialized
	// selection for this table instance (e.g. "vehicles"). Empty disables
	// selection/URL sync.
	SelectionParam string

	// ParentField and ChildField designate the selection hierarchy
	// (e.g. "manufacturer" and "model"). Required when SelectionParam is
	// set; without them selection operations no-op.
	ParentField string
	ChildField  string

	// FilterColumns lists the filterable columns. Each column maps to one
	// f_<column> URL parameter the table watches.
	FilterColumns []string

	// DefaultPageSize applies when the URL carries no pageSize.
	DefaultPageSize int

	// Debounce is the quiet window applied to URL-driven reloads in
	// dynamic mode, so rapid consecutive parameter changes (e.g. typing
	// in a filter box) collapse into one fetch.
	Debounce time.Duration

	// Logger receives diagnostics. Defaults to slog.Default().
	Logger *slog.Logger
}

// Validate applies defaults and reports configuration problems.
// Configuration errors are programmer errors: they are logged loudly and
// the affected feature no-ops rather than crashing the instance, so a
// misconfigured table still renders what it can.
func (c *TableConfig) Validate() (selectionEnabled, apiEnabled bool) {
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.DefaultPageSize <= 0 {
		c.DefaultPageSize = DefaultPageSize
	}
	if c.Debounce <= 0 {
		c.Debounce = DefaultDebounce
	}

	selectionEnabled = c.SelectionParam != ""
	if selectionEnabled && (c.ParentField == "" || c.ChildField == "") {
		c.Logger.Error("selection config incomplete: ParentField and ChildField are required; selection disabled",
			"selectionParam", c.SelectionParam)
		selectionEnabled = false
	}

	apiEnabled = c.Mode == ModeDynamic
	if apiEnabled && c.Endpoint == "" {
		c.Logger.Error("dynamic table without Endpoint: API load disabled")
		apiEnabled = false
	}

	return selectionEnabled, apiEnabled
}
