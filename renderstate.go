package gridwire

import (
	"github.com/gridwire-dev/gridwire/pkg/selection"
	"github.com/gridwire-dev/gridwire/pkg/urlstate"
)

// Phase is the table's lifecycle state.
type Phase int

const (
	PhaseUninitialized Phase = iota
	PhaseHydrating
	PhaseLoading
	PhaseReady
)

// RenderState is the observable snapshot consumed by the presentation
// layer. The table emits a new RenderState whenever anything observable
// changes; emissions are deduplicated, so an interaction that changes
// nothing emits nothing.
type RenderState struct {
	// Rows are the currently visible rows (one page, post filter/sort).
	Rows []selection.Row

	// TotalCount is the number of rows matching the active filters across
	// all pages.
	TotalCount int

	// Loading reports an in-flight data load.
	Loading bool

	// Err is the terminal error of the last failed load, nil otherwise.
	Err error

	// SelectedKeys and SelectedItems project the current selection.
	SelectedKeys  []string
	SelectedItems []selection.Item

	// ParentStates is the cached binary aggregate per visible parent.
	ParentStates map[string]bool

	// SortField and SortOrder describe the active sort; empty field means
	// unsorted.
	SortField string
	SortOrder urlstate.Order

	// ActiveFilters maps column key to its filter value.
	ActiveFilters map[string]string

	// Page is 1-indexed; PageSize is the rows-per-page setting.
	Page     int
	PageSize int
}
