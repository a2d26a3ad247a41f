// Package catalog is the reference backend for dynamic tables: an
// in-memory row store with the server half of the grid contract. It
// applies the same filter, sort and pagination semantics the client uses
// in static mode and serves pages as {"rows": [...], "total": n}.
package catalog

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/gridwire-dev/gridwire/pkg/selection"
	"github.com/gridwire-dev/gridwire/pkg/urlstate"
)

// Query describes one page request against the store.
type Query struct {
	// Filters maps column key to a case-insensitive substring match.
	Filters map[string]string

	// Sort is the active sort descriptor; the zero value keeps load order.
	Sort urlstate.Sort

	// Page is 1-indexed pagination.
	Page urlstate.Page
}

// Result is one served page.
type Result struct {
	Rows  []selection.Row `json:"rows"`
	Total int             `json:"total"`
}

// Store holds an immutable row set. Rows are replaced wholesale via
// Replace; queries never mutate them.
type Store struct {
	rows []selection.Row
}

// NewStore creates a store over the given rows.
func NewStore(rows []selection.Row) *Store {
	return &Store{rows: rows}
}

// Len returns the unfiltered row count.
func (s *Store) Len() int {
	return len(s.rows)
}

// Replace swaps the row set.
func (s *Store) Replace(rows []selection.Row) {
	s.rows = rows
}

// Run filters, sorts and paginates. Total counts the filtered rows across
// all pages; a page past the end yields an empty row slice, never an error.
func (s *Store) Run(q Query) Result {
	matched := make([]selection.Row, 0, len(s.rows))
	for _, row := range s.rows {
		if matches(row, q.Filters) {
			matched = append(matched, row)
		}
	}

	if !q.Sort.IsZero() {
		sortRows(matched, q.Sort)
	}

	total := len(matched)
	offset := q.Page.Offset()
	if offset > total {
		offset = total
	}
	end := offset + q.Page.Size
	if q.Page.Size < 1 || end > total {
		end = total
	}

	return Result{Rows: matched[offset:end], Total: total}
}

func matches(row selection.Row, filters map[string]string) bool {
	for column, value := range filters {
		cell := strings.ToLower(fieldString(row, column))
		if !strings.Contains(cell, strings.ToLower(value)) {
			return false
		}
	}
	return true
}

// sortRows sorts in place, numerically when both values parse as numbers,
// lexically otherwise. Stable, so ties keep load order.
func sortRows(rows []selection.Row, s urlstate.Sort) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := fieldString(rows[i], s.Field), fieldString(rows[j], s.Field)
		if s.Order == urlstate.OrderDesc {
			a, b = b, a
		}
		fa, errA := strconv.ParseFloat(a, 64)
		fb, errB := strconv.ParseFloat(b, 64)
		if errA == nil && errB == nil {
			return fa < fb
		}
		return a < b
	})
}

func fieldString(row selection.Row, field string) string {
	v, ok := row[field]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
