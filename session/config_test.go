package session

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		cfg := SessionConfig{
			SessionID:  "s1",
			ProbandID:  "p1",
			Language:   "de",
			Fullscreen: false,
			Autobackup: true,
			TestNames:  []string{"trails", "verbalworkingmemory"},
		}
		if err := cfg.Save(path); err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		loaded, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if loaded.ProbandID != "p1" || loaded.Language != "de" || !loaded.Autobackup {
			t.Errorf("loaded config mismatch: %+v", loaded)
		}
		if len(loaded.TestNames) != 2 || loaded.TestNames[0] != "trails" {
			t.Errorf("test names mismatch: %v", loaded.TestNames)
		}
	})

	t.Run("absent fields keep defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		if err := os.WriteFile(path, []byte("proband_id: p2\n"), 0o644); err != nil {
			t.Fatal(err)
		}

		loaded, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if loaded.ProbandID != "p2" {
			t.Errorf("proband_id = %q, want p2", loaded.ProbandID)
		}
		if loaded.Language != "en" {
			t.Errorf("language = %q, want the en default", loaded.Language)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
		if err == nil {
			t.Error("LoadConfig succeeded on a missing file")
		}
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		if err := os.WriteFile(path, []byte("{not yaml"), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadConfig(path); err == nil {
			t.Error("LoadConfig succeeded on malformed yaml")
		}
	})
}
