package scraper

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"github.com/sydlexius/driftwood/internal/platform"
	"github.com/sydlexius/driftwood/internal/rom"
)

// biosTagPattern matches the "[BIOS]" marker no-intro sets put in BIOS dump
// filenames.
var biosTagPattern = regexp.MustCompile(`(?i)\[BIOS\]`)

// Filter decides which library items are worth scraping. BIOS dumps are
// skipped on every platform; on MAME, machines listed in the exclusion set
// files (BIOSes, devices, mechanical machines) are skipped by set name.
type Filter struct {
	skipBIOS     bool
	excludedSets map[string]string
	logger       *slog.Logger
}

// NewFilter builds a filter. setFiles name JSON files, each holding an
// array of MAME set names to exclude; the file's label is derived from its
// contents key when the file holds an object instead.
func NewFilter(skipBIOS bool, setFiles map[string]string, logger *slog.Logger) (*Filter, error) {
	f := &Filter{
		skipBIOS:     skipBIOS,
		excludedSets: make(map[string]string),
		logger:       logger.With(slog.String("component", "filter")),
	}
	for label, path := range setFiles {
		names, err := loadSetFile(path)
		if err != nil {
			return nil, fmt.Errorf("loading %s set file: %w", label, err)
		}
		for _, name := range names {
			f.excludedSets[strings.ToLower(name)] = label
		}
		f.logger.Debug("loaded exclusion set",
			slog.String("label", label), slog.Int("entries", len(names)))
	}
	return f, nil
}

// loadSetFile reads one JSON array of set names.
func loadSetFile(path string) ([]string, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from config
	if err != nil {
		return nil, err
	}
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return names, nil
}

// Allow reports whether the item should be scraped. A false result carries
// the human-readable skip reason.
func (f *Filter) Allow(item *rom.ROM, plat string) (bool, string) {
	if f.skipBIOS && biosTagPattern.MatchString(item.Base()) {
		return false, "BIOS dump"
	}
	if platform.IsMAME(plat) {
		if label, ok := f.excludedSets[strings.ToLower(item.BaseNoExt())]; ok {
			return false, "MAME " + label + " set"
		}
	}
	return true, ""
}
