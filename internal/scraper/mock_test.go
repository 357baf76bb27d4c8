package scraper

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/sydlexius/driftwood/internal/asset"
)

// mockProvider is a scriptable Provider for tests. Function fields default
// to benign successes; call counters track transport usage.
type mockProvider struct {
	id        string
	diskCache bool

	searchFn   func(term string) ([]Candidate, error)
	metadataFn func(c Candidate) (*MetadataRecord, error)
	assetsFn   func(c Candidate) ([]AssetRecord, error)
	resolveURL func(a AssetRecord) (string, string, error)
	resolveExt func(a AssetRecord, url string) (string, error)
	readyErr   error

	assetTypes map[asset.Type]bool

	searchCalls   int
	metadataCalls int
	assetsCalls   int
}

func newMockProvider(id string) *mockProvider {
	return &mockProvider{id: id, diskCache: true}
}

func (m *mockProvider) ID() string              { return m.id }
func (m *mockProvider) Name() string            { return m.id }
func (m *mockProvider) CacheName() string       { return m.id }
func (m *mockProvider) SupportsDiskCache() bool { return m.diskCache }
func (m *mockProvider) SupportsSearch() bool    { return true }
func (m *mockProvider) SupportsMetadata() bool  { return true }

func (m *mockProvider) SupportsMetadataField(MetadataField) bool { return true }

func (m *mockProvider) SupportsAssets() bool { return true }

func (m *mockProvider) SupportsAssetType(t asset.Type) bool {
	if m.assetTypes == nil {
		return true
	}
	return m.assetTypes[t]
}

func (m *mockProvider) CheckReady(context.Context) error { return m.readyErr }

func (m *mockProvider) Search(_ context.Context, term, _, _, _ string) ([]Candidate, error) {
	m.searchCalls++
	if m.searchFn != nil {
		return m.searchFn(term)
	}
	return []Candidate{{ID: "1", DisplayName: term}}, nil
}

func (m *mockProvider) Metadata(_ context.Context, c Candidate, _ string) (*MetadataRecord, error) {
	m.metadataCalls++
	if m.metadataFn != nil {
		return m.metadataFn(c)
	}
	return &MetadataRecord{Title: c.DisplayName}, nil
}

func (m *mockProvider) Assets(_ context.Context, c Candidate, _ string) ([]AssetRecord, error) {
	m.assetsCalls++
	if m.assetsFn != nil {
		return m.assetsFn(c)
	}
	return nil, nil
}

func (m *mockProvider) ResolveAssetURL(_ context.Context, a AssetRecord) (string, string, error) {
	if m.resolveURL != nil {
		return m.resolveURL(a)
	}
	return a.URL, a.URL, nil
}

func (m *mockProvider) ResolveAssetExtension(_ context.Context, a AssetRecord, url string) (string, error) {
	if m.resolveExt != nil {
		return m.resolveExt(a, url)
	}
	return "png", nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestRuntime(t *testing.T, p Provider) *ProviderRuntime {
	t.Helper()
	return NewRuntime(p, RuntimeOptions{CacheDir: t.TempDir()}, testLogger())
}
