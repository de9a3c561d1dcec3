package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadEmptyPathGivesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DBPath != "data/linkharvest.db" {
		t.Errorf("DBPath = %q", cfg.DBPath)
	}
	if cfg.Navigator.Timeout != 30*time.Second || cfg.Navigator.MaxRetries != 3 {
		t.Errorf("navigator defaults = %+v", cfg.Navigator)
	}
	if cfg.Captcha.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d", cfg.Captcha.MaxAttempts)
	}
	if cfg.Captcha.ContinueOnExhaustion == nil || !*cfg.Captcha.ContinueOnExhaustion {
		t.Error("ContinueOnExhaustion default not true")
	}
	if cfg.Harvester.AutoSolve == nil || !*cfg.Harvester.AutoSolve {
		t.Error("AutoSolve default not true")
	}
	if cfg.Scrape.DelayMin != 15*time.Second || cfg.Scrape.DelayMax != 30*time.Second {
		t.Errorf("scrape delays = %+v", cfg.Scrape)
	}
	if cfg.Search.MaxPages != 50 || cfg.Search.MaxResults != 0 {
		t.Errorf("search defaults = %+v", cfg.Search)
	}
}

func TestLoadOverridesAndKeepsOtherDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
db_path: /tmp/custom.db
captcha:
  max_attempts: 5
  continue_on_exhaustion: false
scrape:
  delay_min: 2s
  delay_max: 4s
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DBPath != "/tmp/custom.db" {
		t.Errorf("DBPath = %q", cfg.DBPath)
	}
	if cfg.Captcha.MaxAttempts != 5 {
		t.Errorf("MaxAttempts = %d", cfg.Captcha.MaxAttempts)
	}
	if cfg.Captcha.ContinueOnExhaustion == nil || *cfg.Captcha.ContinueOnExhaustion {
		t.Error("explicit continue_on_exhaustion=false lost")
	}
	if cfg.Scrape.DelayMin != 2*time.Second || cfg.Scrape.DelayMax != 4*time.Second {
		t.Errorf("scrape delays = %+v", cfg.Scrape)
	}
	// Untouched sections still get defaults.
	if cfg.Navigator.Timeout != 30*time.Second {
		t.Errorf("Navigator.Timeout = %v", cfg.Navigator.Timeout)
	}
}

func TestLoadRejectsInvertedDelays(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "scrape:\n  delay_min: 10s\n  delay_max: 5s\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("inverted delay range accepted")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/does/not/exist.yaml"); err == nil {
		t.Error("missing file accepted")
	}
}
