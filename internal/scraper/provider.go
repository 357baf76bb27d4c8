package scraper

import (
	"context"
	"errors"
	"fmt"

	"github.com/sydlexius/driftwood/internal/asset"
)

// MetadataField identifies one metadata field a provider may supply.
type MetadataField string

// Known metadata fields.
const (
	FieldTitle     MetadataField = "title"
	FieldYear      MetadataField = "year"
	FieldGenre     MetadataField = "genre"
	FieldDeveloper MetadataField = "developer"
	FieldPlayers   MetadataField = "nplayers"
	FieldRating    MetadataField = "rating"
	FieldPlot      MetadataField = "plot"
)

// Candidate is one search result naming a possible game match for an item.
// A zero Candidate is the explicit "searched, found nothing" marker.
type Candidate struct {
	ID              string `json:"id"`
	DisplayName     string `json:"display_name"`
	Platform        string `json:"platform"`
	ScraperPlatform string `json:"scraper_platform"`
	Order           int    `json:"order"`
}

// IsZero reports whether c is the empty no-results marker.
func (c Candidate) IsZero() bool { return c.ID == "" }

// MetadataRecord is the metadata a provider returns for a selected
// candidate. All fields are optional and default to empty.
type MetadataRecord struct {
	Title     string `json:"title"`
	Year      string `json:"year"`
	Genre     string `json:"genre"`
	Developer string `json:"developer"`
	Players   string `json:"nplayers"`
	Rating    string `json:"rating"`
	Plot      string `json:"plot"`
}

// AssetRecord is one downloadable artwork option for a candidate. URL may
// be empty for providers whose listings only carry thumbnails; a resolve
// step completes it.
type AssetRecord struct {
	Type         asset.Type `json:"asset_type"`
	DisplayName  string     `json:"display_name"`
	ThumbURL     string     `json:"url_thumb"`
	URL          string     `json:"url"`
	Downloadable bool       `json:"downloadable"`
}

// Provider is the capability interface a lookup source implements. Fetch
// operations take the selected candidate explicitly; per-item state lives
// in SearchSession, never on the provider.
//
// Error convention: a non-nil error signals a transient failure (network,
// parse) and counts against the provider's circuit breaker; a nil error
// with an empty result signals a legitimate "found nothing".
type Provider interface {
	// ID returns the unique provider identifier.
	ID() string

	// Name returns a human-readable provider name.
	Name() string

	// CacheName returns the cache-file-safe provider name.
	CacheName() string

	// SupportsDiskCache reports whether results should be persisted across
	// sessions. Offline databases answer false.
	SupportsDiskCache() bool

	// SupportsSearch reports whether the provider accepts free-text search.
	SupportsSearch() bool

	// SupportsMetadata reports whether the provider supplies metadata at all.
	SupportsMetadata() bool

	// SupportsMetadataField reports whether the provider can supply f.
	SupportsMetadataField(f MetadataField) bool

	// SupportsAssets reports whether the provider supplies assets at all.
	SupportsAssets() bool

	// SupportsAssetType reports whether the provider can supply assets of type t.
	SupportsAssetType(t asset.Type) bool

	// CheckReady verifies credentials and configuration. A non-nil error
	// means the provider must be skipped for the whole session.
	CheckReady(ctx context.Context) error

	// Search looks up candidates for the term. checksumPath names the file
	// to hash for checksum-based providers; for multi-disc sets it may
	// differ from romPath.
	Search(ctx context.Context, term, romPath, checksumPath, platform string) ([]Candidate, error)

	// Metadata fetches the metadata record for a selected candidate.
	Metadata(ctx context.Context, c Candidate, platform string) (*MetadataRecord, error)

	// Assets fetches all asset options for a selected candidate, across
	// every type the provider supports.
	Assets(ctx context.Context, c Candidate, platform string) ([]AssetRecord, error)

	// ResolveAssetURL completes an asset record to its downloadable URL.
	// The second return is a log-safe form of the URL (some providers
	// embed credentials in download URLs).
	ResolveAssetURL(ctx context.Context, a AssetRecord) (url, logURL string, err error)

	// ResolveAssetExtension determines the file extension (without dot)
	// for the resolved URL.
	ResolveAssetExtension(ctx context.Context, a AssetRecord, url string) (string, error)
}

// ImageDownloader is an optional interface a provider implements to take
// over image downloads, e.g. to apply provider-specific throttling.
type ImageDownloader interface {
	DownloadImage(ctx context.Context, url, dest string) error
}

// ErrDisabled is returned by a ProviderRuntime once its circuit breaker has
// opened. Callers treat it as an empty result and do not notify the user
// again.
var ErrDisabled = errors.New("provider disabled after repeated errors")

// UnavailableError wraps a transient provider failure.
type UnavailableError struct {
	Provider string
	Cause    error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("provider %s unavailable: %v", e.Provider, e.Cause)
}

func (e *UnavailableError) Unwrap() error { return e.Cause }

// AuthError indicates missing or rejected provider credentials.
type AuthError struct {
	Provider string
	Reason   string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("provider %s: %s", e.Provider, e.Reason)
}
