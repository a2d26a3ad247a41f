package selection

import (
	"fmt"
	"strings"
	"sync"
)

// KeySeparator separates parent and child values in a selection key.
const KeySeparator = "|"

// Row is an opaque record. The engine only reads its configured parent and
// child fields; identity is structural (field values), never object identity.
type Row = map[string]any

// Item is one selected leaf, projected for serialization and events.
type Item struct {
	Parent string
	Child  string
}

// Key builds the canonical selection key for a parent/child pair.
func Key(parent, child string) string {
	return parent + KeySeparator + child
}

// SplitKey parses a selection key into its parent and child values.
// Keys containing no separator are invalid; ok is false and the key must be
// dropped by the caller.
func SplitKey(key string) (parent, child string, ok bool) {
	idx := strings.Index(key, KeySeparator)
	if idx < 0 {
		return "", "", false
	}
	return key[:idx], key[idx+len(KeySeparator):], true
}

// Engine tracks hierarchical parent/child selection over an anchored dataset
// slice with binary (non-tri-state) parent semantics.
//
// Selection is keyed by value, not row index, so it survives re-sorting and
// re-anchoring. The anchored rows only determine the denominator for parent
// aggregate state: the same parent can read checked before a filter and
// unchecked after it without any selection change.
type Engine struct {
	parentField string
	childField  string

	mu sync.RWMutex

	// selected maps parent value to its ordered set of selected children.
	// Invariant: an entry exists iff it has at least one selected child.
	selected map[string][]string

	// parentOrder preserves parent insertion order for deterministic
	// serialization.
	parentOrder []string

	// children maps parent value to children known from the anchored rows.
	children map[string][]string
}

// New creates an engine for the given designated fields, anchored to rows.
func New(parentField, childField string, rows []Row) *Engine {
	e := &Engine{
		parentField: parentField,
		childField:  childField,
		selected:    make(map[string][]string),
	}
	e.Anchor(rows)
	return e
}

// Anchor re-anchors the engine onto a new dataset slice (new page, new
// filter, new sort). The child index is rebuilt from rows while the
// selected-keys set is preserved verbatim.
func (e *Engine) Anchor(rows []Row) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.children = make(map[string][]string, len(rows))
	for _, row := range rows {
		parent, child := e.rowValues(row)
		if !contains(e.children[parent], child) {
			e.children[parent] = append(e.children[parent], child)
		}
	}
}

// ToggleChild toggles the selection of one row's child. Removing the last
// selected child prunes the parent entry entirely.
func (e *Engine) ToggleChild(row Row) {
	parent, child := e.rowValues(row)

	e.mu.Lock()
	defer e.mu.Unlock()

	if contains(e.selected[parent], child) {
		e.removeChild(parent, child)
		return
	}
	e.addChild(parent, child)
}

// ToggleParent is a binary select-all/deselect-all toggle. A checked parent
// is fully deselected; an unchecked parent (covering both "none" and "some")
// has all currently known children selected. Clicking a partially selected
// parent always selects all, never deselects the selected subset.
func (e *Engine) ToggleParent(parent string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.parentChecked(parent) {
		e.deleteParent(parent)
		return
	}

	known := e.children[parent]
	if len(known) == 0 {
		// No known children: nothing to select.
		return
	}
	if _, ok := e.selected[parent]; !ok {
		e.parentOrder = append(e.parentOrder, parent)
	}
	sel := make([]string, len(known))
	copy(sel, known)
	e.selected[parent] = sel
}

// ParentState reports the binary aggregate state for a parent: checked only
// when the selected count equals the count of children currently known to
// the engine. A parent with zero known children reads unchecked.
func (e *Engine) ParentState(parent string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.parentChecked(parent)
}

// ParentStates returns the aggregate state for every parent in the anchored
// dataset. The controller caches this to avoid recomputation per render.
func (e *Engine) ParentStates() map[string]bool {
	e.mu.RLock()
	defer e.mu.RUnlock()

	states := make(map[string]bool, len(e.children))
	for parent := range e.children {
		states[parent] = e.parentChecked(parent)
	}
	return states
}

// IsSelected reports whether one child is selected under a parent.
func (e *Engine) IsSelected(parent, child string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return contains(e.selected[parent], child)
}

// IsRowSelected reports whether the row's child is selected.
func (e *Engine) IsRowSelected(row Row) bool {
	parent, child := e.rowValues(row)
	return e.IsSelected(parent, child)
}

// SetSelectedKeys bulk-replaces the selection from parent|child keys.
// Invalid keys (missing separator) are dropped silently; duplicates are
// collapsed.
func (e *Engine) SetSelectedKeys(keys []string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.selected = make(map[string][]string, len(keys))
	e.parentOrder = e.parentOrder[:0]

	for _, key := range keys {
		parent, child, ok := SplitKey(key)
		if !ok {
			continue
		}
		e.addChild(parent, child)
	}
}

// SelectedKeys returns all selected keys in deterministic order: parents in
// selection insertion order, children in selection order within each parent.
func (e *Engine) SelectedKeys() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	keys := make([]string, 0, len(e.parentOrder))
	for _, parent := range e.parentOrder {
		for _, child := range e.selected[parent] {
			keys = append(keys, Key(parent, child))
		}
	}
	return keys
}

// SelectedItems returns the selection as parent/child pairs.
func (e *Engine) SelectedItems() []Item {
	e.mu.RLock()
	defer e.mu.RUnlock()

	items := make([]Item, 0, len(e.parentOrder))
	for _, parent := range e.parentOrder {
		for _, child := range e.selected[parent] {
			items = append(items, Item{Parent: parent, Child: child})
		}
	}
	return items
}

// SelectedCount returns the number of selected children under a parent.
func (e *Engine) SelectedCount(parent string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.selected[parent])
}

// ChildCount returns the number of children currently known for a parent.
func (e *Engine) ChildCount(parent string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.children[parent])
}

// ClearAll empties the selection.
func (e *Engine) ClearAll() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.selected = make(map[string][]string)
	e.parentOrder = e.parentOrder[:0]
}

// rowValues extracts the designated parent and child values from a row.
func (e *Engine) rowValues(row Row) (parent, child string) {
	return fieldString(row, e.parentField), fieldString(row, e.childField)
}

// parentChecked implements the aggregate rule. Callers hold e.mu.
func (e *Engine) parentChecked(parent string) bool {
	total := len(e.children[parent])
	return total > 0 && len(e.selected[parent]) == total
}

// addChild adds a child to a parent's selected set, deduplicating and
// maintaining parent insertion order. Callers hold e.mu.
func (e *Engine) addChild(parent, child string) {
	if contains(e.selected[parent], child) {
		return
	}
	if _, ok := e.selected[parent]; !ok {
		e.parentOrder = append(e.parentOrder, parent)
	}
	e.selected[parent] = append(e.selected[parent], child)
}

// removeChild removes a child, pruning the parent entry when it empties.
// Callers hold e.mu.
func (e *Engine) removeChild(parent, child string) {
	sel := e.selected[parent]
	for i, c := range sel {
		if c == child {
			sel = append(sel[:i], sel[i+1:]...)
			break
		}
	}
	if len(sel) == 0 {
		e.deleteParent(parent)
		return
	}
	e.selected[parent] = sel
}

// deleteParent removes a parent entry and its order slot. Callers hold e.mu.
func (e *Engine) deleteParent(parent string) {
	delete(e.selected, parent)
	for i, p := range e.parentOrder {
		if p == parent {
			e.parentOrder = append(e.parentOrder[:i], e.parentOrder[i+1:]...)
			return
		}
	}
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

// fieldString renders a row field as its string value.
func fieldString(row Row, field string) string {
	v, ok := row[field]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
