package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	return path
}

func TestLoadCatalog(t *testing.T) {
	path := writeCatalog(t, `[
		{"key": "snack", "name": "Snack", "cost": 40},
		{"key": "game_30", "name": "30 minutes of video games", "cost": 60}
	]`)

	items, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("LoadCatalog failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("Expected 2 items, got %d", len(items))
	}
	if items[0].Key != "snack" || items[0].Cost != 40 {
		t.Errorf("Unexpected first item: %+v", items[0])
	}
}

func TestLoadCatalogErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"not json", `{broken`},
		{"missing key", `[{"name": "Snack", "cost": 40}]`},
		{"zero cost", `[{"key": "snack", "name": "Snack", "cost": 0}]`},
		{"negative cost", `[{"key": "snack", "name": "Snack", "cost": -5}]`},
		{"duplicate key", `[
			{"key": "snack", "name": "Snack", "cost": 40},
			{"key": "snack", "name": "Other", "cost": 50}
		]`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := writeCatalog(t, tc.content)
			if _, err := LoadCatalog(path); err == nil {
				t.Error("Expected error")
			}
		})
	}

	if _, err := LoadCatalog(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("Expected error for missing file")
	}
}
