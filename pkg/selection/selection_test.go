package selection

import (
	"reflect"
	"testing"
)

func vehicleRows() []Row {
	return []Row{
		{"manufacturer": "Ford", "model": "F-150"},
		{"manufacturer": "Ford", "model": "Mustang"},
		{"manufacturer": "Honda", "model": "Civic"},
	}
}

func newVehicleEngine() *Engine {
	return New("manufacturer", "model", vehicleRows())
}

func TestFordScenario(t *testing.T) {
	e := newVehicleEngine()

	e.ToggleChild(Row{"manufacturer": "Ford", "model": "F-150"})
	if e.ParentState("Ford") {
		t.Error("Ford should be unchecked with 1 of 2 selected")
	}

	e.ToggleChild(Row{"manufacturer": "Ford", "model": "Mustang"})
	if !e.ParentState("Ford") {
		t.Error("Ford should be checked with 2 of 2 selected")
	}

	e.ToggleParent("Ford")
	if len(e.SelectedKeys()) != 0 {
		t.Errorf("Toggling checked Ford should deselect both children, got %v", e.SelectedKeys())
	}
	if e.ParentState("Honda") {
		t.Error("Honda should be unaffected")
	}
}

func TestToggleChildAddsAndRemoves(t *testing.T) {
	e := newVehicleEngine()
	row := Row{"manufacturer": "Honda", "model": "Civic"}

	e.ToggleChild(row)
	if !e.IsSelected("Honda", "Civic") {
		t.Error("Civic should be selected after toggle")
	}

	e.ToggleChild(row)
	if e.IsSelected("Honda", "Civic") {
		t.Error("Civic should be deselected after second toggle")
	}
	if got := e.SelectedKeys(); len(got) != 0 {
		t.Errorf("Expected empty selection after prune, got %v", got)
	}
}

func TestToggleParentSelectsAllFromPartial(t *testing.T) {
	e := newVehicleEngine()

	e.ToggleChild(Row{"manufacturer": "Ford", "model": "F-150"})

	// Partially selected parent: toggle must select all, never deselect
	// the selected subset.
	e.ToggleParent("Ford")
	if !e.ParentState("Ford") {
		t.Error("Ford should be checked after toggling a partially selected parent")
	}
	if e.SelectedCount("Ford") != 2 {
		t.Errorf("Expected 2 Ford children selected, got %d", e.SelectedCount("Ford"))
	}
}

func TestToggleParentIdempotentPair(t *testing.T) {
	e := newVehicleEngine()

	e.ToggleChild(Row{"manufacturer": "Ford", "model": "F-150"})
	before := e.SelectedKeys()

	// From partial: first toggle selects all, second deselects all. The
	// pair does not restore a partial selection, so start from "none".
	e.ClearAll()
	e.ToggleParent("Ford")
	e.ToggleParent("Ford")

	if len(e.SelectedKeys()) != 0 {
		t.Errorf("Toggle pair from empty should return to empty, got %v", e.SelectedKeys())
	}

	// And from full: pair returns to full.
	e.SetSelectedKeys(before)
	e.ToggleParent("Honda")
	e.ToggleParent("Honda")
	if !reflect.DeepEqual(e.SelectedKeys(), before) {
		t.Errorf("Toggle pair should restore selection: expected %v, got %v", before, e.SelectedKeys())
	}
}

func TestParentStateCountsEqual(t *testing.T) {
	rows := []Row{
		{"manufacturer": "Ford", "model": "F-150"},
		{"manufacturer": "Ford", "model": "Mustang"},
		{"manufacturer": "Ford", "model": "Bronco"},
		{"manufacturer": "Honda", "model": "Civic"},
		{"manufacturer": "Honda", "model": "Accord"},
	}
	e := New("manufacturer", "model", rows)

	for _, row := range rows {
		e.ToggleChild(row)
		for _, parent := range []string{"Ford", "Honda"} {
			want := e.SelectedCount(parent) == e.ChildCount(parent) && e.ChildCount(parent) > 0
			if got := e.ParentState(parent); got != want {
				t.Errorf("ParentState(%s) = %v, want %v (selected=%d children=%d)",
					parent, got, want, e.SelectedCount(parent), e.ChildCount(parent))
			}
		}
	}
}

func TestSetSelectedKeysRoundTrip(t *testing.T) {
	e := newVehicleEngine()

	e.ToggleChild(Row{"manufacturer": "Ford", "model": "Mustang"})
	e.ToggleChild(Row{"manufacturer": "Honda", "model": "Civic"})

	keys := e.SelectedKeys()
	e.SetSelectedKeys(keys)

	if !reflect.DeepEqual(e.SelectedKeys(), keys) {
		t.Errorf("SetSelectedKeys(SelectedKeys()) changed selection: %v != %v", e.SelectedKeys(), keys)
	}
}

func TestSetSelectedKeysDropsInvalid(t *testing.T) {
	e := newVehicleEngine()

	e.SetSelectedKeys([]string{"Ford|F-150", "garbage-no-separator", "Honda|Civic"})

	want := []string{"Ford|F-150", "Honda|Civic"}
	if !reflect.DeepEqual(e.SelectedKeys(), want) {
		t.Errorf("Expected %v, got %v", want, e.SelectedKeys())
	}
}

func TestSetSelectedKeysCollapsesDuplicates(t *testing.T) {
	e := newVehicleEngine()

	e.SetSelectedKeys([]string{"Ford|F-150", "Ford|F-150"})
	if got := e.SelectedKeys(); len(got) != 1 {
		t.Errorf("Expected 1 key after dedup, got %v", got)
	}
}

func TestReanchorPreservesSelection(t *testing.T) {
	full := vehicleRows()
	e := New("manufacturer", "model", full)

	e.SetSelectedKeys([]string{"Ford|F-150", "Ford|Mustang", "Honda|Civic"})

	// Filter down to a single Ford row.
	e.Anchor([]Row{{"manufacturer": "Ford", "model": "F-150"}})

	// Selection keys survive verbatim even while rows are hidden.
	want := []string{"Ford|F-150", "Ford|Mustang", "Honda|Civic"}
	if !reflect.DeepEqual(e.SelectedKeys(), want) {
		t.Errorf("Selection lost across filter: expected %v, got %v", want, e.SelectedKeys())
	}

	// Restore the full dataset: nothing lost.
	e.Anchor(full)
	if !reflect.DeepEqual(e.SelectedKeys(), want) {
		t.Errorf("Selection lost after restore: expected %v, got %v", want, e.SelectedKeys())
	}
}

func TestParentStateDenominatorShiftsWithFilter(t *testing.T) {
	full := vehicleRows()
	e := New("manufacturer", "model", full)

	// Select only the F-150, then filter so the F-150 is Ford's only
	// visible child: Ford reads checked with no selection change.
	e.ToggleChild(Row{"manufacturer": "Ford", "model": "F-150"})
	if e.ParentState("Ford") {
		t.Error("Ford should be unchecked against the full dataset (1 of 2)")
	}

	e.Anchor([]Row{{"manufacturer": "Ford", "model": "F-150"}})
	if !e.ParentState("Ford") {
		t.Error("Ford should be checked against the filtered dataset (1 of 1)")
	}

	e.Anchor(full)
	if e.ParentState("Ford") {
		t.Error("Ford should read unchecked again after the filter is lifted")
	}
}

func TestToggleParentWithNoKnownChildren(t *testing.T) {
	e := newVehicleEngine()

	e.ToggleParent("Toyota")
	if len(e.SelectedKeys()) != 0 {
		t.Errorf("Toggling unknown parent should be a no-op, got %v", e.SelectedKeys())
	}
	if e.ParentState("Toyota") {
		t.Error("Parent with zero known children must read unchecked")
	}
}

func TestClearAll(t *testing.T) {
	e := newVehicleEngine()

	e.ToggleParent("Ford")
	e.ClearAll()

	if len(e.SelectedKeys()) != 0 {
		t.Errorf("Expected empty selection after ClearAll, got %v", e.SelectedKeys())
	}
}

func TestParentStates(t *testing.T) {
	e := newVehicleEngine()
	e.ToggleParent("Honda")

	states := e.ParentStates()
	if states["Ford"] {
		t.Error("Ford should be unchecked")
	}
	if !states["Honda"] {
		t.Error("Honda should be checked")
	}
}

func TestSelectedItems(t *testing.T) {
	e := newVehicleEngine()
	e.ToggleChild(Row{"manufacturer": "Ford", "model": "Mustang"})

	items := e.SelectedItems()
	if len(items) != 1 || items[0].Parent != "Ford" || items[0].Child != "Mustang" {
		t.Errorf("Expected [{Ford Mustang}], got %v", items)
	}
}

func TestSplitKey(t *testing.T) {
	tests := []struct {
		key    string
		parent string
		child  string
		ok     bool
	}{
		{"Ford|F-150", "Ford", "F-150", true},
		{"Ford|", "Ford", "", true},
		{"|Civic", "", "Civic", true},
		{"no-separator", "", "", false},
		{"", "", "", false},
		{"a|b|c", "a", "b|c", true},
	}

	for _, tt := range tests {
		parent, child, ok := SplitKey(tt.key)
		if parent != tt.parent || child != tt.child || ok != tt.ok {
			t.Errorf("SplitKey(%q) = (%q, %q, %v), want (%q, %q, %v)",
				tt.key, parent, child, ok, tt.parent, tt.child, tt.ok)
		}
	}
}

func TestNonStringFieldValues(t *testing.T) {
	rows := []Row{
		{"year": 2024, "trim": "XLT"},
		{"year": 2024, "trim": "Lariat"},
	}
	e := New("year", "trim", rows)

	e.ToggleChild(rows[0])
	if !e.IsSelected("2024", "XLT") {
		t.Error("Numeric parent values should be keyed by their string form")
	}
}
