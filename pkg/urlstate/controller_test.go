package urlstate

import (
	"reflect"
	"testing"
)

func TestControllerReadAfterSync(t *testing.T) {
	c := NewController(NewMemoryNavigator())

	c.Sync(map[string]string{"sort": "model:desc", "page": "2"})

	if got := c.Read("sort"); got != "model:desc" {
		t.Errorf("Expected 'model:desc', got %q", got)
	}
	if got := c.Read("missing"); got != "" {
		t.Errorf("Missing param should read empty, got %q", got)
	}
	if !c.Has("page") || c.Has("missing") {
		t.Error("Has should reflect presence")
	}
}

func TestControllerWriteMerge(t *testing.T) {
	nav := NewMemoryNavigator()
	c := NewController(nav)

	c.Sync(map[string]string{"sort": "model:desc", "page": "2"})

	ok := c.Write(map[string]string{"page": "3"}, ModeMerge)
	if !ok {
		t.Fatal("Write should succeed")
	}

	// Unrelated params survive a merge.
	if c.Read("sort") != "model:desc" {
		t.Error("Merge write clobbered unrelated param")
	}
	if c.Read("page") != "3" {
		t.Errorf("Expected page=3, got %q", c.Read("page"))
	}

	want := map[string]string{"sort": "model:desc", "page": "3"}
	if !reflect.DeepEqual(nav.Current(), want) {
		t.Errorf("Navigator got %v, want %v", nav.Current(), want)
	}
}

func TestControllerWriteMergeDeletesEmptyValues(t *testing.T) {
	c := NewController(NewMemoryNavigator())

	c.Sync(map[string]string{"vehicles": "Ford:F-150", "page": "1"})
	c.Write(map[string]string{"vehicles": ""}, ModeMerge)

	if c.Has("vehicles") {
		t.Error("Empty value should delete the parameter, not write an empty string")
	}
	if !c.Has("page") {
		t.Error("Deletion should not touch other params")
	}
}

func TestControllerWriteReplace(t *testing.T) {
	c := NewController(NewMemoryNavigator())

	c.Sync(map[string]string{"sort": "model:desc", "page": "2", "f_model": "mus"})
	c.Write(map[string]string{"page": "1"}, ModeReplace)

	if got := c.Snapshot(); !reflect.DeepEqual(got, map[string]string{"page": "1"}) {
		t.Errorf("Replace should discard existing params, got %v", got)
	}
}

func TestControllerWriteFailureReported(t *testing.T) {
	nav := NewMemoryNavigator()
	nav.Fail = true
	c := NewController(nav)

	ok := c.Write(map[string]string{"page": "2"}, ModeMerge)
	if ok {
		t.Error("Write should report navigation failure")
	}

	// In-memory state continues; it is transiently ahead of the URL.
	if c.Read("page") != "2" {
		t.Error("Snapshot should still be updated on navigation failure")
	}
}

func TestControllerWatchFiresOnChange(t *testing.T) {
	c := NewController(NewMemoryNavigator())

	var got []string
	cancel := c.Watch("sort", func(v string) { got = append(got, v) })
	defer cancel()

	c.Write(map[string]string{"sort": "model:asc"}, ModeMerge)
	c.Sync(map[string]string{"sort": "model:desc"})

	want := []string{"model:asc", "model:desc"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestControllerWatchDedupsUnchangedValue(t *testing.T) {
	c := NewController(NewMemoryNavigator())
	c.Sync(map[string]string{"sort": "model:asc"})

	count := 0
	cancel := c.Watch("sort", func(string) { count++ })
	defer cancel()

	// Same value via write and via sync: no notifications.
	c.Write(map[string]string{"sort": "model:asc"}, ModeMerge)
	c.Sync(map[string]string{"sort": "model:asc"})

	if count != 0 {
		t.Errorf("Watch should be no-op on unchanged value, fired %d times", count)
	}
}

func TestControllerWatchSeesDeletion(t *testing.T) {
	c := NewController(NewMemoryNavigator())
	c.Sync(map[string]string{"vehicles": "Ford:F-150"})

	var got []string
	cancel := c.Watch("vehicles", func(v string) { got = append(got, v) })
	defer cancel()

	c.Sync(map[string]string{})

	if !reflect.DeepEqual(got, []string{""}) {
		t.Errorf("Deletion should notify with empty value, got %v", got)
	}
}

func TestControllerWatchCancel(t *testing.T) {
	c := NewController(NewMemoryNavigator())

	count := 0
	cancel := c.Watch("page", func(string) { count++ })

	c.Sync(map[string]string{"page": "2"})
	cancel()
	c.Sync(map[string]string{"page": "3"})

	if count != 1 {
		t.Errorf("Expected 1 notification after cancel, got %d", count)
	}
}

func TestControllerSyncQuery(t *testing.T) {
	c := NewController(NewMemoryNavigator())

	c.SyncQuery("sort=model%3Adesc&f_manufacturer=for&page=2&pageSize=10")

	if c.Read("sort") != "model:desc" {
		t.Errorf("Expected decoded sort, got %q", c.Read("sort"))
	}
	if c.Read("f_manufacturer") != "for" {
		t.Errorf("Expected filter param, got %q", c.Read("f_manufacturer"))
	}
}

func TestControllerQueryStringStableOrder(t *testing.T) {
	c := NewController(NewMemoryNavigator())

	c.Write(map[string]string{"sort": "model:asc"}, ModeMerge)
	c.Write(map[string]string{"page": "2"}, ModeMerge)
	c.Write(map[string]string{"sort": "model:desc"}, ModeMerge)

	// sort was seen first; updating it must not move it.
	if got := c.QueryString(); got != "sort=model%3Adesc&page=2" {
		t.Errorf("Unexpected query string: %q", got)
	}
}

func TestControllerPreserved(t *testing.T) {
	c := NewController(NewMemoryNavigator(), WithPersistent("vehicles"))

	c.Sync(map[string]string{
		"vehicles": "Ford:F-150",
		"sort":     "model:desc",
		"page":     "2",
	})

	// Allow-list only.
	keep := c.Preserved()
	if !reflect.DeepEqual(keep, map[string]string{"vehicles": "Ford:F-150"}) {
		t.Errorf("Expected allow-listed params only, got %v", keep)
	}

	// Ad hoc extras for one navigation.
	keep = c.Preserved("sort")
	want := map[string]string{"vehicles": "Ford:F-150", "sort": "model:desc"}
	if !reflect.DeepEqual(keep, want) {
		t.Errorf("Expected %v, got %v", want, keep)
	}
}

func TestControllerHighlightNamespace(t *testing.T) {
	c := NewController(NewMemoryNavigator())
	c.Sync(map[string]string{"sort": "model:asc"})

	c.SetHighlights(map[string]string{"row": "5", "range": "2-8"})

	got := c.Highlights()
	want := map[string]string{"row": "5", "range": "2-8"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
	if c.Read("h_row") != "5" {
		t.Error("Highlights should live under the h_ prefix")
	}

	c.ClearHighlights()
	if len(c.Highlights()) != 0 {
		t.Errorf("Expected no highlights after clear, got %v", c.Highlights())
	}
	if c.Read("sort") != "model:asc" {
		t.Error("Clearing highlights must not touch primary params")
	}
}

func TestIsHighlightParam(t *testing.T) {
	if !IsHighlightParam("h_row") {
		t.Error("h_row is a highlight param")
	}
	if IsHighlightParam("f_model") || IsHighlightParam("sort") {
		t.Error("Primary params are not highlight params")
	}
}

func TestControllerWatchReentrant(t *testing.T) {
	c := NewController(NewMemoryNavigator())

	// A watcher reading the controller must not deadlock.
	cancel := c.Watch("page", func(string) {
		_ = c.Read("sort")
		_ = c.Snapshot()
	})
	defer cancel()

	c.Sync(map[string]string{"page": "2", "sort": "model:asc"})
}
