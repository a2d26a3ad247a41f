package catalog

import (
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gridwire-dev/gridwire/pkg/selection"
	"github.com/gridwire-dev/gridwire/pkg/urlstate"
)

func fleet() []selection.Row {
	return []selection.Row{
		{"manufacturer": "Ford", "model": "Bronco", "year": 2023},
		{"manufacturer": "Ford", "model": "Mustang", "year": 2024},
		{"manufacturer": "Honda", "model": "Accord", "year": 2023},
		{"manufacturer": "Honda", "model": "Civic", "year": 2024},
		{"manufacturer": "Toyota", "model": "Camry", "year": 2024},
	}
}

func TestRunFilterSortPaginate(t *testing.T) {
	s := NewStore(fleet())

	res := s.Run(Query{
		Filters: map[string]string{"manufacturer": "o"},
		Sort:    urlstate.Sort{Field: "model", Order: urlstate.OrderDesc},
		Page:    urlstate.Page{Number: 1, Size: 2},
	})

	// "o" matches Ford, Honda and Toyota; desc by model.
	if res.Total != 5 {
		t.Errorf("Total = %d, want 5", res.Total)
	}
	if len(res.Rows) != 2 || res.Rows[0]["model"] != "Mustang" || res.Rows[1]["model"] != "Civic" {
		t.Errorf("Rows = %v", res.Rows)
	}
}

func TestRunNumericSort(t *testing.T) {
	s := NewStore(fleet())

	res := s.Run(Query{
		Sort: urlstate.Sort{Field: "year", Order: urlstate.OrderAsc},
		Page: urlstate.Page{Number: 1, Size: 10},
	})
	if res.Rows[0]["year"] != 2023 {
		t.Errorf("First year = %v, want 2023", res.Rows[0]["year"])
	}
	if res.Rows[len(res.Rows)-1]["year"] != 2024 {
		t.Errorf("Last year = %v, want 2024", res.Rows[len(res.Rows)-1]["year"])
	}
}

func TestRunPageBeyondRange(t *testing.T) {
	s := NewStore(fleet())

	res := s.Run(Query{Page: urlstate.Page{Number: 99, Size: 10}})
	if len(res.Rows) != 0 || res.Total != 5 {
		t.Errorf("Out-of-range page: rows=%d total=%d", len(res.Rows), res.Total)
	}
}

func TestAPIServesGridContract(t *testing.T) {
	api := NewAPI(NewStore(fleet()), nil)
	server := httptest.NewServer(api.Router())
	defer server.Close()

	resp, err := server.Client().Get(server.URL + "/vehicles?sort=model:asc&f_manufacturer=hon&page=1&pageSize=1")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if result.Total != 2 {
		t.Errorf("Total = %d, want 2", result.Total)
	}
	if len(result.Rows) != 1 || result.Rows[0]["model"] != "Accord" {
		t.Errorf("Rows = %v", result.Rows)
	}
}

func TestAPIDefaultsOnMalformedParams(t *testing.T) {
	api := NewAPI(NewStore(fleet()), nil)
	server := httptest.NewServer(api.Router())
	defer server.Close()

	resp, err := server.Client().Get(server.URL + "/vehicles?page=zero&pageSize=-3&sort=:desc")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if result.Total != 5 || len(result.Rows) != 5 {
		t.Errorf("Malformed params should degrade to defaults: rows=%d total=%d", len(result.Rows), result.Total)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fleet.json")
	data := `[{"manufacturer":"Ford","model":"F-150","year":2024}]`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	rows, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if len(rows) != 1 || rows[0]["model"] != "F-150" {
		t.Errorf("Rows = %v", rows)
	}
}

func TestLoadFileErrors(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("Expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.json")
	os.WriteFile(path, []byte(`{not json`), 0o644)
	if _, err := LoadFile(path); err == nil {
		t.Error("Expected error for malformed dataset")
	}
}
