package scraper

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/sydlexius/driftwood/internal/filesystem"
	"github.com/sydlexius/driftwood/internal/image"
)

// errorThreshold is the number of provider errors tolerated before the
// runtime disables the provider for the rest of the session. The error
// after the threshold is the one that trips it.
const errorThreshold = 5

// maxImageBytes caps artwork downloads.
const maxImageBytes = 64 << 20

// RuntimeOptions configures a ProviderRuntime.
type RuntimeOptions struct {
	// CacheDir is the root of the on-disk result cache.
	CacheDir string

	// MinInterval is the minimum spacing between provider requests.
	MinInterval time.Duration

	// HTTPTimeout bounds artwork downloads. Zero means 60 seconds.
	HTTPTimeout time.Duration
}

// ProviderRuntime wraps a Provider with the per-session machinery it must
// not carry itself: the disk result cache, request throttling and the
// error circuit breaker. One runtime is built per provider per scan.
//
// Once the breaker opens every operation returns ErrDisabled without
// touching the provider. The error that opens the breaker is reported
// loudly exactly once; everything after it is silent.
type ProviderRuntime struct {
	provider Provider
	cache    *ResultCache
	throttle *Throttle
	client   *http.Client
	logger   *slog.Logger

	errorCount int
	disabled   bool
}

// NewRuntime builds the runtime for one provider.
func NewRuntime(p Provider, opts RuntimeOptions, logger *slog.Logger) *ProviderRuntime {
	timeout := opts.HTTPTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &ProviderRuntime{
		provider: p,
		cache:    NewResultCache(opts.CacheDir, p.CacheName(), logger),
		throttle: NewThrottle(opts.MinInterval),
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With(slog.String("component", "runtime"), slog.String("provider", p.ID())),
	}
}

// Provider returns the wrapped provider.
func (rt *ProviderRuntime) Provider() Provider { return rt.provider }

// Disabled reports whether the breaker has opened.
func (rt *ProviderRuntime) Disabled() bool { return rt.disabled }

// recordError counts one provider failure. The call that pushes the count
// past the threshold opens the breaker and returns the single loud
// "disabled" error; earlier calls return the failure wrapped. Later calls
// never reach here because operations short-circuit on ErrDisabled.
func (rt *ProviderRuntime) recordError(op string, err error) error {
	rt.errorCount++
	rt.logger.Warn("provider error",
		slog.String("op", op),
		slog.Int("count", rt.errorCount),
		slog.String("error", err.Error()))

	if rt.errorCount > errorThreshold {
		rt.disabled = true
		rt.logger.Error("provider disabled for this session",
			slog.Int("errors", rt.errorCount))
		return fmt.Errorf("provider %s disabled after %d errors", rt.provider.Name(), rt.errorCount)
	}
	return &UnavailableError{Provider: rt.provider.Name(), Cause: err}
}

// CheckReady verifies provider readiness, bypassing the breaker.
func (rt *ProviderRuntime) CheckReady(ctx context.Context) error {
	return rt.provider.CheckReady(ctx)
}

// CachedCandidate looks up the previously selected candidate for the
// session's item. The boolean reports a cache hit; a hit may carry the
// zero-candidate marker meaning an earlier search legitimately found
// nothing, so the item must not be searched again.
func (rt *ProviderRuntime) CachedCandidate(s *SearchSession) (Candidate, bool) {
	if !rt.provider.SupportsDiskCache() {
		return Candidate{}, false
	}
	var c Candidate
	ok, err := rt.cache.Get(CacheCandidates, s.Platform, s.Key(), &c)
	if err != nil {
		rt.logger.Warn("candidate cache entry unreadable", slog.String("error", err.Error()))
		return Candidate{}, false
	}
	return c, ok
}

// StoreCandidate records the resolved candidate for the session, both on
// the session itself and in the disk cache. The zero-candidate marker is
// cached too: "searched, found nothing" is a result worth remembering.
// Failed searches never reach here, so they retry on the next run.
func (rt *ProviderRuntime) StoreCandidate(s *SearchSession, c Candidate) {
	s.SetCandidate(c)
	if !rt.provider.SupportsDiskCache() {
		return
	}
	if err := rt.cache.Set(CacheCandidates, s.Platform, s.Key(), c); err != nil {
		rt.logger.Warn("storing candidate failed", slog.String("error", err.Error()))
	}
}

// ClearCandidate drops the cached candidate for the session's item, forcing
// a fresh search. Used when the user rejects a previous match.
func (rt *ProviderRuntime) ClearCandidate(s *SearchSession) {
	s.candidate = nil
	s.resolved = false
	if rt.provider.SupportsDiskCache() {
		rt.cache.Delete(CacheCandidates, s.Platform, s.Key())
	}
}

// ClearAll purges every cache kind for the session's item. Run before a
// fresh search so a rescrape never mixes old fetch results with a new
// candidate.
func (rt *ProviderRuntime) ClearAll(s *SearchSession) {
	if !rt.provider.SupportsDiskCache() {
		return
	}
	for _, kind := range cacheKinds {
		rt.cache.Delete(kind, s.Platform, s.Key())
	}
}

// Search runs the provider search for the session. An empty slice with a
// nil error means the search genuinely found nothing; a non-nil error means
// the search failed and its result must not be cached.
func (rt *ProviderRuntime) Search(ctx context.Context, s *SearchSession) ([]Candidate, error) {
	if rt.disabled {
		return nil, ErrDisabled
	}
	if err := rt.throttle.Wait(ctx); err != nil {
		return nil, fmt.Errorf("throttle: %w", err)
	}
	candidates, err := rt.provider.Search(ctx, s.Term, s.ROMPath, s.ChecksumPath, s.Platform)
	if err != nil {
		return nil, rt.recordError("search", err)
	}
	return candidates, nil
}

// Metadata fetches the metadata record for the session's candidate, using
// the disk cache when the provider supports it.
func (rt *ProviderRuntime) Metadata(ctx context.Context, s *SearchSession) (*MetadataRecord, error) {
	if rt.disabled {
		return nil, ErrDisabled
	}
	c, ok := s.Candidate()
	if !ok {
		return nil, fmt.Errorf("no candidate selected for %s", s.Key())
	}

	if rt.provider.SupportsDiskCache() {
		var rec MetadataRecord
		hit, err := rt.cache.Get(CacheMetadata, s.Platform, s.Key(), &rec)
		if err != nil {
			rt.logger.Warn("metadata cache entry unreadable", slog.String("error", err.Error()))
		} else if hit {
			rt.logger.Debug("metadata cache hit", slog.String("key", s.Key()))
			return &rec, nil
		}
	}

	if err := rt.throttle.Wait(ctx); err != nil {
		return nil, fmt.Errorf("throttle: %w", err)
	}
	rec, err := rt.provider.Metadata(ctx, c, s.Platform)
	if err != nil {
		return nil, rt.recordError("metadata", err)
	}
	if rec == nil {
		rec = &MetadataRecord{}
	}
	if rt.provider.SupportsDiskCache() {
		if err := rt.cache.Set(CacheMetadata, s.Platform, s.Key(), rec); err != nil {
			rt.logger.Warn("storing metadata failed", slog.String("error", err.Error()))
		}
	}
	return rec, nil
}

// Assets fetches all asset options for the session's candidate, using the
// disk cache when the provider supports it. Filtering by type is the
// caller's job; caching the full listing means one fetch serves every
// asset type of the item.
func (rt *ProviderRuntime) Assets(ctx context.Context, s *SearchSession) ([]AssetRecord, error) {
	if rt.disabled {
		return nil, ErrDisabled
	}
	c, ok := s.Candidate()
	if !ok {
		return nil, fmt.Errorf("no candidate selected for %s", s.Key())
	}

	if rt.provider.SupportsDiskCache() {
		var records []AssetRecord
		hit, err := rt.cache.Get(CacheAssets, s.Platform, s.Key(), &records)
		if err != nil {
			rt.logger.Warn("asset cache entry unreadable", slog.String("error", err.Error()))
		} else if hit {
			rt.logger.Debug("asset cache hit", slog.String("key", s.Key()))
			return records, nil
		}
	}

	if err := rt.throttle.Wait(ctx); err != nil {
		return nil, fmt.Errorf("throttle: %w", err)
	}
	records, err := rt.provider.Assets(ctx, c, s.Platform)
	if err != nil {
		return nil, rt.recordError("assets", err)
	}
	if records == nil {
		records = []AssetRecord{}
	}
	if rt.provider.SupportsDiskCache() {
		if err := rt.cache.Set(CacheAssets, s.Platform, s.Key(), records); err != nil {
			rt.logger.Warn("storing assets failed", slog.String("error", err.Error()))
		}
	}
	return records, nil
}

// ResolveAssetURL completes an asset record to its downloadable URL.
func (rt *ProviderRuntime) ResolveAssetURL(ctx context.Context, a AssetRecord) (string, string, error) {
	if rt.disabled {
		return "", "", ErrDisabled
	}
	url, logURL, err := rt.provider.ResolveAssetURL(ctx, a)
	if err != nil {
		return "", "", rt.recordError("resolve-url", err)
	}
	return url, logURL, nil
}

// ResolveAssetExtension determines the file extension for a resolved URL.
func (rt *ProviderRuntime) ResolveAssetExtension(ctx context.Context, a AssetRecord, url string) (string, error) {
	if rt.disabled {
		return "", ErrDisabled
	}
	ext, err := rt.provider.ResolveAssetExtension(ctx, a, url)
	if err != nil {
		return "", rt.recordError("resolve-ext", err)
	}
	return ext, nil
}

// DownloadImage fetches artwork to dest. Providers implementing
// ImageDownloader take over the transfer; otherwise a plain HTTP GET is
// used. The downloaded bytes must decode as a real image before the file
// is committed, so a provider error page never lands as artwork.
func (rt *ProviderRuntime) DownloadImage(ctx context.Context, url, logURL, dest string) error {
	if rt.disabled {
		return ErrDisabled
	}
	if err := rt.throttle.Wait(ctx); err != nil {
		return fmt.Errorf("throttle: %w", err)
	}

	rt.logger.Debug("downloading image",
		slog.String("url", logURL), slog.String("dest", dest))

	if dl, ok := rt.provider.(ImageDownloader); ok {
		if err := dl.DownloadImage(ctx, url, dest); err != nil {
			return rt.recordError("download", err)
		}
	} else if err := rt.httpDownload(ctx, url, dest); err != nil {
		return rt.recordError("download", err)
	}

	data, err := os.ReadFile(dest) //nolint:gosec // G304: dest derives from the asset directory config
	if err != nil {
		return rt.recordError("download", fmt.Errorf("reading downloaded file: %w", err))
	}
	if _, err := image.Validate(data); err != nil {
		_ = os.Remove(dest)
		return rt.recordError("download", fmt.Errorf("downloaded file is not a usable image: %w", err))
	}
	return nil
}

// DownloadFile fetches a non-image asset (trailer, manual) to dest without
// image validation.
func (rt *ProviderRuntime) DownloadFile(ctx context.Context, url, logURL, dest string) error {
	if rt.disabled {
		return ErrDisabled
	}
	if err := rt.throttle.Wait(ctx); err != nil {
		return fmt.Errorf("throttle: %w", err)
	}

	rt.logger.Debug("downloading file",
		slog.String("url", logURL), slog.String("dest", dest))

	if dl, ok := rt.provider.(ImageDownloader); ok {
		if err := dl.DownloadImage(ctx, url, dest); err != nil {
			return rt.recordError("download", err)
		}
		return nil
	}
	if err := rt.httpDownload(ctx, url, dest); err != nil {
		return rt.recordError("download", err)
	}
	return nil
}

// httpDownload performs the default GET transfer with an atomic write.
func (rt *ProviderRuntime) httpDownload(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	resp, err := rt.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetching image: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetching image: unexpected status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return fmt.Errorf("reading image body: %w", err)
	}
	if err := filesystem.WriteFileAtomic(dest, data, 0o644); err != nil {
		return fmt.Errorf("writing image: %w", err)
	}
	return nil
}

// Flush persists the runtime's result cache. Providers without disk cache
// support flush nothing.
func (rt *ProviderRuntime) Flush() error {
	if !rt.provider.SupportsDiskCache() {
		return nil
	}
	return rt.cache.Flush()
}
