package scraper

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sydlexius/driftwood/internal/rom"
)

func writeSetFile(t *testing.T, names string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sets.json")
	if err := os.WriteFile(path, []byte(names), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFilterSkipsBIOSDumps(t *testing.T) {
	f, err := NewFilter(true, nil, testLogger())
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		allow bool
	}{
		{"[BIOS] Sega CD Model 2 (USA).zip", false},
		{"[bios] NES PlayChoice.zip", false},
		{"Sonic The Hedgehog (USA).zip", true},
	}
	for _, tt := range tests {
		ok, _ := f.Allow(rom.New("/roms/"+tt.name), "megadrive")
		if ok != tt.allow {
			t.Errorf("Allow(%q) = %v, want %v", tt.name, ok, tt.allow)
		}
	}
}

func TestFilterExcludesMAMESets(t *testing.T) {
	path := writeSetFile(t, `["neogeo", "pgm"]`)
	f, err := NewFilter(false, map[string]string{"BIOS": path}, testLogger())
	if err != nil {
		t.Fatal(err)
	}

	if ok, reason := f.Allow(rom.New("/mame/neogeo.zip"), "MAME"); ok {
		t.Error("neogeo set should be excluded on MAME")
	} else if reason == "" {
		t.Error("exclusion should carry a reason")
	}

	// Set exclusion only applies to the MAME platform.
	if ok, _ := f.Allow(rom.New("/roms/neogeo.zip"), "megadrive"); !ok {
		t.Error("non-MAME platform should ignore set exclusions")
	}

	if ok, _ := f.Allow(rom.New("/mame/sf2.zip"), "MAME"); !ok {
		t.Error("unlisted MAME set should be allowed")
	}
}

func TestFilterBadSetFile(t *testing.T) {
	path := writeSetFile(t, `{"not": "an array"}`)
	if _, err := NewFilter(false, map[string]string{"BIOS": path}, testLogger()); err == nil {
		t.Error("expected error for malformed set file")
	}
}
