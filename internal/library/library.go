// Package library enumerates ROM files and locates their local assets on
// disk. Nothing here persists: the item list is rebuilt from the filesystem
// on every scan.
package library

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sydlexius/driftwood/internal/asset"
	"github.com/sydlexius/driftwood/internal/rom"
)

// Extensions checked when looking for an existing local image asset.
var imageExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".bmp", ".webp"}

// Extensions checked when looking for an existing local trailer.
var videoExtensions = []string{".mp4", ".mkv", ".avi", ".webm"}

// Library is one platform's ROM directory plus its per-type asset
// directories.
type Library struct {
	romDir     string
	extensions map[string]bool
	assetDirs  map[asset.Type]string
	logger     *slog.Logger
}

// New creates a Library. extensions lists accepted ROM file extensions
// (with or without the leading dot); assetDirs maps asset types to their
// artwork directories, with unset types disabled.
func New(romDir string, extensions []string, assetDirs map[asset.Type]string, logger *slog.Logger) *Library {
	extMap := make(map[string]bool, len(extensions))
	for _, e := range extensions {
		e = strings.ToLower(strings.TrimPrefix(e, "."))
		extMap["."+e] = true
	}
	dirs := make(map[asset.Type]string, len(assetDirs))
	for t, d := range assetDirs {
		if d != "" {
			dirs[t] = d
		}
	}
	return &Library{
		romDir:     romDir,
		extensions: extMap,
		assetDirs:  dirs,
		logger:     logger.With(slog.String("component", "library")),
	}
}

// Items returns the ROMs in the library directory in stable name order.
func (l *Library) Items() ([]*rom.ROM, error) {
	entries, err := os.ReadDir(l.romDir)
	if err != nil {
		return nil, fmt.Errorf("reading rom directory: %w", err)
	}

	var items []*rom.ROM
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if len(l.extensions) > 0 && !l.extensions[ext] {
			continue
		}
		items = append(items, rom.New(filepath.Join(l.romDir, entry.Name())))
	}

	sort.Slice(items, func(i, j int) bool { return items[i].Base() < items[j].Base() })
	l.logger.Debug("enumerated library", slog.Int("items", len(items)))
	return items, nil
}

// EnabledAssets filters the requested asset types down to those with a
// configured directory. Unconfigured assets are disabled for the scan.
func (l *Library) EnabledAssets(requested []asset.Type) []asset.Type {
	var enabled []asset.Type
	for _, t := range requested {
		if _, ok := l.assetDirs[t]; ok {
			enabled = append(enabled, t)
		} else {
			l.logger.Debug("asset directory not set, disabling",
				slog.String("asset", string(t)))
		}
	}
	return enabled
}

// AssetDir returns the directory configured for the given asset type, or
// empty when the type is disabled.
func (l *Library) AssetDir(t asset.Type) string {
	return l.assetDirs[t]
}

// LocalAssets returns the existing local asset path per requested type for
// the item, with the empty string where none is found. The lookup matches
// <asset-dir>/<basename>.<ext> across the known extensions for the type.
func (l *Library) LocalAssets(item *rom.ROM, types []asset.Type) map[asset.Type]string {
	found := make(map[asset.Type]string, len(types))
	for _, t := range types {
		found[t] = l.localAsset(item, t)
	}
	return found
}

func (l *Library) localAsset(item *rom.ROM, t asset.Type) string {
	dir, ok := l.assetDirs[t]
	if !ok {
		return ""
	}
	exts := imageExtensions
	if t == asset.Trailer {
		exts = videoExtensions
	}
	base := filepath.Join(dir, item.BaseNoExt())
	for _, ext := range exts {
		candidate := base + ext
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
	}
	return ""
}
