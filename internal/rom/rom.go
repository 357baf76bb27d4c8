// Package rom models a single game ROM file (or standalone launcher entry)
// as it moves through a scraping session.
package rom

import (
	"path/filepath"
	"strings"

	"github.com/sydlexius/driftwood/internal/asset"
)

// ROM is one scrape target. Metadata fields default to empty strings and
// asset slots hold local file paths once populated.
type ROM struct {
	path string

	title     string
	year      string
	genre     string
	developer string
	players   string
	rating    string
	plot      string

	assets  map[asset.Type]string
	trailer string
}

// New creates a ROM for the given file path.
func New(path string) *ROM {
	return &ROM{
		path:   path,
		assets: make(map[asset.Type]string),
	}
}

// Path returns the full file path.
func (r *ROM) Path() string { return r.path }

// Base returns the file basename including extension. This is the canonical
// cache key for scraping lookups.
func (r *ROM) Base() string { return filepath.Base(r.path) }

// BaseNoExt returns the file basename with the extension removed.
func (r *ROM) BaseNoExt() string {
	base := filepath.Base(r.path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// PathNoExt returns the full path with the extension removed.
func (r *ROM) PathNoExt() string {
	return strings.TrimSuffix(r.path, filepath.Ext(r.path))
}

// Title returns the display title.
func (r *ROM) Title() string { return r.title }

// SetTitle sets the display title.
func (r *ROM) SetTitle(v string) { r.title = v }

// Year returns the release year.
func (r *ROM) Year() string { return r.year }

// SetYear sets the release year.
func (r *ROM) SetYear(v string) { r.year = v }

// Genre returns the genre.
func (r *ROM) Genre() string { return r.genre }

// SetGenre sets the genre.
func (r *ROM) SetGenre(v string) { r.genre = v }

// Developer returns the developer.
func (r *ROM) Developer() string { return r.developer }

// SetDeveloper sets the developer.
func (r *ROM) SetDeveloper(v string) { r.developer = v }

// Players returns the player count.
func (r *ROM) Players() string { return r.players }

// SetPlayers sets the player count.
func (r *ROM) SetPlayers(v string) { r.players = v }

// Rating returns the content rating.
func (r *ROM) Rating() string { return r.rating }

// SetRating sets the content rating.
func (r *ROM) SetRating(v string) { r.rating = v }

// Plot returns the plot/description.
func (r *ROM) Plot() string { return r.plot }

// SetPlot sets the plot/description.
func (r *ROM) SetPlot(v string) { r.plot = v }

// HasAsset reports whether the slot for the given asset type is populated.
// The trailer slot is stored separately from image assets.
func (r *ROM) HasAsset(t asset.Type) bool {
	if t == asset.Trailer {
		return r.trailer != ""
	}
	return r.assets[t] != ""
}

// Asset returns the local path stored in the slot for the given asset type.
func (r *ROM) Asset(t asset.Type) string {
	if t == asset.Trailer {
		return r.trailer
	}
	return r.assets[t]
}

// SetAsset stores a local path in the slot for the given asset type.
func (r *ROM) SetAsset(t asset.Type, path string) {
	r.assets[t] = path
}

// SetTrailer stores the trailer path. Trailers are set through a distinct
// mutation because they are media files, not images.
func (r *ROM) SetTrailer(path string) {
	r.trailer = path
}

// Trailer returns the trailer path.
func (r *ROM) Trailer() string { return r.trailer }

// Snapshot returns a full-field copy of the ROM state for logging.
func (r *ROM) Snapshot() map[string]string {
	snap := map[string]string{
		"path":      r.path,
		"title":     r.title,
		"year":      r.year,
		"genre":     r.genre,
		"developer": r.developer,
		"players":   r.players,
		"rating":    r.rating,
		"plot":      r.plot,
		"trailer":   r.trailer,
	}
	for t, p := range r.assets {
		snap["asset_"+string(t)] = p
	}
	return snap
}
