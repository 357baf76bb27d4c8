package scraper

import (
	"fmt"

	"github.com/sydlexius/driftwood/internal/asset"
)

// MetadataPolicy decides where metadata comes from during a scan.
type MetadataPolicy string

// Known metadata policies.
const (
	MetadataTitleOnly       MetadataPolicy = "title-only"
	MetadataNFOPreferred    MetadataPolicy = "nfo-preferred"
	MetadataNFOThenProvider MetadataPolicy = "nfo-then-provider"
	MetadataProviderOnly    MetadataPolicy = "provider-only"
)

// AssetPolicy decides where artwork comes from during a scan.
type AssetPolicy string

// Known asset policies.
const (
	AssetLocalOnly         AssetPolicy = "local-only"
	AssetLocalThenProvider AssetPolicy = "local-then-provider"
	AssetProviderOnly      AssetPolicy = "provider-only"
)

// SelectionMode decides whether a choice point is resolved automatically or
// through the user.
type SelectionMode string

// Known selection modes.
const (
	SelectAutomatic SelectionMode = "automatic"
	SelectManual    SelectionMode = "manual"
)

// Settings is the immutable per-scan-session policy bundle.
type Settings struct {
	MetadataPolicy MetadataPolicy
	AssetPolicy    AssetPolicy

	// Selection modes, independent for search-term entry, candidate
	// disambiguation and asset disambiguation.
	SearchTermMode SelectionMode
	CandidateMode  SelectionMode
	AssetMode      SelectionMode

	// AssetTypes lists the asset types to scrape.
	AssetTypes []asset.Type

	// OverwriteExisting allows replacing assets the item already carries.
	OverwriteExisting bool

	// KeepFilenameTitle keeps the cleaned filename as the title even when a
	// provider supplies one.
	KeepFilenameTitle bool

	// CleanTags strips bracketed tags when deriving titles from filenames.
	CleanTags bool

	// UpdateNFO writes the NFO sidecar back after a provider scrape.
	UpdateNFO bool
}

// DefaultSettings returns the conservative defaults: filename titles, local
// artwork, everything automatic.
func DefaultSettings() Settings {
	return Settings{
		MetadataPolicy: MetadataTitleOnly,
		AssetPolicy:    AssetLocalOnly,
		SearchTermMode: SelectAutomatic,
		CandidateMode:  SelectAutomatic,
		AssetMode:      SelectAutomatic,
		AssetTypes:     asset.AllTypes(),
		CleanTags:      true,
	}
}

// ParseMetadataPolicy converts a config string into a MetadataPolicy.
func ParseMetadataPolicy(s string) (MetadataPolicy, error) {
	switch MetadataPolicy(s) {
	case MetadataTitleOnly, MetadataNFOPreferred, MetadataNFOThenProvider, MetadataProviderOnly:
		return MetadataPolicy(s), nil
	}
	return "", fmt.Errorf("unknown metadata policy %q", s)
}

// ParseAssetPolicy converts a config string into an AssetPolicy.
func ParseAssetPolicy(s string) (AssetPolicy, error) {
	switch AssetPolicy(s) {
	case AssetLocalOnly, AssetLocalThenProvider, AssetProviderOnly:
		return AssetPolicy(s), nil
	}
	return "", fmt.Errorf("unknown asset policy %q", s)
}

// ParseSelectionMode converts a config string into a SelectionMode.
func ParseSelectionMode(s string) (SelectionMode, error) {
	switch SelectionMode(s) {
	case SelectAutomatic, SelectManual:
		return SelectionMode(s), nil
	}
	return "", fmt.Errorf("unknown selection mode %q", s)
}
