package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Primary != "rightctrl" {
		t.Errorf("Primary = %q, want rightctrl", cfg.Primary)
	}
	if cfg.BriefPress != DefaultBriefPress {
		t.Errorf("BriefPress = %v, want %v", cfg.BriefPress, DefaultBriefPress)
	}
	if !cfg.AutoPaste {
		t.Error("AutoPaste default should be true")
	}
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
[channels]
primary = "rightalt"
secondary = "leftctrl"
shortcut = "ctrl+shift+space"
middle_click = true

[timing]
brief_press = "2s"
double_tap = "800ms"
middle_click_delay = "150ms"

[transcription]
language = "de"

[paste]
auto = false
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Primary != "rightalt" || cfg.Secondary != "leftctrl" {
		t.Errorf("hotkeys = %q/%q", cfg.Primary, cfg.Secondary)
	}
	if !cfg.MiddleClick {
		t.Error("MiddleClick not set")
	}
	if cfg.BriefPress != 2*time.Second {
		t.Errorf("BriefPress = %v, want 2s", cfg.BriefPress)
	}
	if cfg.DoubleTap != 800*time.Millisecond {
		t.Errorf("DoubleTap = %v, want 800ms", cfg.DoubleTap)
	}
	if cfg.Cooldown != DefaultCooldown {
		t.Errorf("Cooldown = %v, want default %v", cfg.Cooldown, DefaultCooldown)
	}
	if cfg.MiddleClickDelay != 150*time.Millisecond {
		t.Errorf("MiddleClickDelay = %v, want 150ms", cfg.MiddleClickDelay)
	}
	if cfg.Language != "de" {
		t.Errorf("Language = %q, want de", cfg.Language)
	}
	if cfg.AutoPaste {
		t.Error("AutoPaste should be false")
	}
}

func TestLoadMalformed(t *testing.T) {
	path := writeConfig(t, `[timing]`+"\n"+`brief_press = "not a duration"`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for malformed duration")
	}
}

func TestNormalizeCollapsesDuplicateHotkeys(t *testing.T) {
	cfg := &Config{Primary: "rightctrl", Secondary: "rightctrl"}
	warnings, err := cfg.Normalize()
	if err != nil {
		t.Fatal(err)
	}
	if len(warnings) != 1 {
		t.Fatalf("warnings = %v, want one", warnings)
	}
	if cfg.Secondary != "" {
		t.Errorf("Secondary = %q, want collapsed away", cfg.Secondary)
	}
}

func TestNormalizePromotesSecondary(t *testing.T) {
	cfg := &Config{Secondary: "leftalt"}
	if _, err := cfg.Normalize(); err != nil {
		t.Fatal(err)
	}
	if cfg.Primary != "leftalt" || cfg.Secondary != "" {
		t.Errorf("got %q/%q, want leftalt promoted to primary", cfg.Primary, cfg.Secondary)
	}
}

func TestNormalizeRejectsUnknownKey(t *testing.T) {
	cfg := &Config{Primary: "hyper"}
	if _, err := cfg.Normalize(); err == nil {
		t.Fatal("expected error for unknown key name")
	}
}

func TestNormalizeRejectsEmpty(t *testing.T) {
	cfg := &Config{}
	if _, err := cfg.Normalize(); err == nil {
		t.Fatal("expected error when no channels are configured")
	}
}
