package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/sydlexius/driftwood/internal/asset"
	"github.com/sydlexius/driftwood/internal/library"
	"github.com/sydlexius/driftwood/internal/nfo"
	"github.com/sydlexius/driftwood/internal/rom"
	"github.com/sydlexius/driftwood/internal/text"
	"github.com/sydlexius/driftwood/internal/ui"
)

// MetadataAction is the planned metadata source for one item.
type MetadataAction int

// Metadata actions.
const (
	MetadataActionNone MetadataAction = iota
	MetadataActionCleanTitle
	MetadataActionReadNFO
	MetadataActionQuery
)

// AssetAction is the planned artwork source for one asset slot.
type AssetAction int

// Asset actions.
const (
	AssetActionNone AssetAction = iota
	AssetActionLocal
	AssetActionQuery
)

// assetPlan is one asset slot's resolved action plus its local file, if any.
type assetPlan struct {
	assetType asset.Type
	action    AssetAction
	localPath string
}

// ScanResult summarizes one engine run.
type ScanResult struct {
	Processed int
	Skipped   int
	Failed    int
	Canceled  bool
}

// Engine drives a scan: per item it plans a metadata action and one action
// per enabled asset type, resolves a search candidate when any plan needs
// the provider, executes the plans, and applies results to the item. Items
// are processed sequentially in library order; a failing item is skipped
// with a warning and never aborts the scan.
type Engine struct {
	settings Settings
	lib      *library.Library
	filter   *Filter

	metadataRT *ProviderRuntime
	assetRT    *ProviderRuntime

	progress ui.Progress
	prompter ui.Prompter
	notifier ui.Notifier
	logger   *slog.Logger
}

// EngineOptions bundles the engine collaborators. MetadataRuntime and
// AssetRuntime may be nil (no provider configured) or point to the same
// runtime.
type EngineOptions struct {
	Settings        Settings
	Library         *library.Library
	Filter          *Filter
	MetadataRuntime *ProviderRuntime
	AssetRuntime    *ProviderRuntime
	Progress        ui.Progress
	Prompter        ui.Prompter
	Notifier        ui.Notifier
}

// NewEngine builds an Engine.
func NewEngine(opts EngineOptions, logger *slog.Logger) *Engine {
	return &Engine{
		settings:   opts.Settings,
		lib:        opts.Library,
		filter:     opts.Filter,
		metadataRT: opts.MetadataRuntime,
		assetRT:    opts.AssetRuntime,
		progress:   opts.Progress,
		prompter:   opts.Prompter,
		notifier:   opts.Notifier,
		logger:     logger.With(slog.String("component", "engine")),
	}
}

// Run scrapes every item for the platform. Cancellation is polled between
// items; the item in flight always finishes, so its applied actions stay.
func (e *Engine) Run(ctx context.Context, items []*rom.ROM, platform string) (*ScanResult, error) {
	e.dropUnreadyProviders(ctx)

	result := &ScanResult{}
	e.progress.Start("Scraping "+platform, len(items))
	defer e.progress.End()

	for i, item := range items {
		e.progress.Update(i, item.Base())

		if ok, reason := e.filter.Allow(item, platform); !ok {
			e.logger.Debug("item filtered out",
				slog.String("item", item.Base()), slog.String("reason", reason))
			result.Skipped++
			continue
		}

		if err := e.processItemSafe(ctx, item, platform); err != nil {
			e.logger.Warn("item failed",
				slog.String("item", item.Base()), slog.String("error", err.Error()))
			e.notifier.Warn(fmt.Sprintf("Skipped %s: %v", item.Base(), err))
			result.Failed++
		} else {
			result.Processed++
		}

		if e.progress.Canceled() || ctx.Err() != nil {
			result.Canceled = true
			break
		}
	}

	if err := e.flushCaches(); err != nil {
		e.logger.Warn("cache flush failed", slog.String("error", err.Error()))
	}
	return result, nil
}

// dropUnreadyProviders verifies provider readiness once per scan and drops
// providers that fail, so a missing credential produces one message instead
// of one per item.
func (e *Engine) dropUnreadyProviders(ctx context.Context) {
	if e.metadataRT != nil {
		if err := e.metadataRT.CheckReady(ctx); err != nil {
			e.notifier.Notify(fmt.Sprintf("Metadata provider unavailable: %v", err))
			e.metadataRT = nil
		}
	}
	if e.assetRT != nil && e.assetRT != e.metadataRT {
		if err := e.assetRT.CheckReady(ctx); err != nil {
			e.notifier.Notify(fmt.Sprintf("Asset provider unavailable: %v", err))
			e.assetRT = nil
		}
	}
}

// processItemSafe runs one item, converting a panic into an error so a bad
// provider response never kills the scan.
func (e *Engine) processItemSafe(ctx context.Context, item *rom.ROM, platform string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("unexpected failure: %v", r)
		}
	}()
	return e.ProcessItem(ctx, item, platform)
}

// ProcessItem plans and executes the metadata and asset actions for a
// single item.
func (e *Engine) ProcessItem(ctx context.Context, item *rom.ROM, platform string) error {
	nfoExists := nfo.Exists(item.Path())
	metaAction := e.ResolveMetadataAction(nfoExists)
	plans := e.planAssets(item)

	e.logger.Debug("item planned",
		slog.String("item", item.Base()),
		slog.Bool("nfo", nfoExists),
		slog.Int("metadata_action", int(metaAction)),
		slog.Int("asset_plans", len(plans)))

	metaSession, assetSession := e.resolveSessions(ctx, item, platform, metaAction, plans)

	e.executeMetadata(ctx, item, metaAction, metaSession)
	e.executeAssets(ctx, item, plans, assetSession)

	e.logger.Debug("item processed", slog.Any("state", item.Snapshot()))
	return nil
}

// ResolveMetadataAction maps policy and NFO presence to the metadata action.
// With no metadata provider configured the action is none, whatever the
// policy says.
func (e *Engine) ResolveMetadataAction(nfoExists bool) MetadataAction {
	if e.metadataRT == nil {
		return MetadataActionNone
	}
	switch e.settings.MetadataPolicy {
	case MetadataTitleOnly:
		return MetadataActionCleanTitle
	case MetadataNFOPreferred:
		if nfoExists {
			return MetadataActionReadNFO
		}
		return MetadataActionCleanTitle
	case MetadataNFOThenProvider:
		if nfoExists {
			return MetadataActionReadNFO
		}
		return MetadataActionQuery
	case MetadataProviderOnly:
		return MetadataActionQuery
	}
	return MetadataActionNone
}

// ResolveAssetAction maps policy, local file presence and provider support
// to the action for one asset type.
func (e *Engine) ResolveAssetAction(localExists, providerSupports bool) AssetAction {
	if e.assetRT == nil {
		return AssetActionNone
	}
	switch e.settings.AssetPolicy {
	case AssetLocalOnly:
		return AssetActionLocal
	case AssetLocalThenProvider:
		if localExists {
			return AssetActionLocal
		}
		if providerSupports {
			return AssetActionQuery
		}
		return AssetActionLocal
	case AssetProviderOnly:
		if providerSupports {
			return AssetActionQuery
		}
		return AssetActionLocal
	}
	return AssetActionNone
}

// planAssets resolves the action for every enabled asset type. An asset the
// item already carries is skipped outright unless overwriting is allowed.
func (e *Engine) planAssets(item *rom.ROM) []assetPlan {
	enabled := e.lib.EnabledAssets(e.settings.AssetTypes)
	locals := e.lib.LocalAssets(item, enabled)

	plans := make([]assetPlan, 0, len(enabled))
	for _, t := range enabled {
		if !e.settings.OverwriteExisting && item.HasAsset(t) {
			e.logger.Debug("asset already present, skipping",
				slog.String("item", item.Base()), slog.String("asset", string(t)))
			continue
		}
		supports := e.assetRT != nil && e.assetRT.Provider().SupportsAssetType(t)
		plans = append(plans, assetPlan{
			assetType: t,
			action:    e.ResolveAssetAction(locals[t] != "", supports),
			localPath: locals[t],
		})
	}
	return plans
}

// resolveSessions runs candidate resolution for whichever runtimes the
// plans actually query. When metadata and assets share one runtime, the
// search happens once and both phases share the session.
func (e *Engine) resolveSessions(ctx context.Context, item *rom.ROM, platform string, metaAction MetadataAction, plans []assetPlan) (*SearchSession, *SearchSession) {
	needMeta := metaAction == MetadataActionQuery
	needAssets := false
	for _, p := range plans {
		if p.action == AssetActionQuery {
			needAssets = true
			break
		}
	}

	var metaSession, assetSession *SearchSession
	if needMeta {
		metaSession = e.resolveCandidate(ctx, e.metadataRT, item, platform)
	}
	if needAssets {
		if e.assetRT == e.metadataRT && metaSession != nil {
			assetSession = metaSession
		} else {
			assetSession = e.resolveCandidate(ctx, e.assetRT, item, platform)
		}
	}
	return metaSession, assetSession
}

// resolveCandidate finds the candidate for the item on the given runtime.
//
// The candidates cache is authoritative: any hit, including the "searched,
// found nothing" marker, is used without network access, so the only way to
// retry an empty result is an explicit cache clear. On a miss every cache
// kind for the key is purged first, then the search runs. A failed search
// marks the session failed without caching; an empty result stores the
// empty marker; otherwise selection follows the configured candidate mode.
func (e *Engine) resolveCandidate(ctx context.Context, rt *ProviderRuntime, item *rom.ROM, platform string) *SearchSession {
	s := NewSession(text.SearchTerm(item.BaseNoExt()), item.Path(), item.Path(), platform)

	if cached, hit := rt.CachedCandidate(s); hit {
		s.SetCandidate(cached)
		e.logger.Debug("candidate cache hit",
			slog.String("item", s.Key()), slog.Bool("empty", cached.IsZero()))
		return s
	}

	// Only an actual search needs a term, so the prompt waits for the miss.
	if e.settings.SearchTermMode == SelectManual {
		if entered := e.prompter.Text("Search term for "+item.Base(), s.Term); entered != "" {
			s.Term = entered
		}
	}

	rt.ClearAll(s)

	candidates, err := rt.Search(ctx, s)
	if err != nil {
		s.MarkFailed()
		if !errors.Is(err, ErrDisabled) {
			e.notifier.Notify(err.Error())
		}
		return s
	}
	if len(candidates) == 0 {
		rt.StoreCandidate(s, Candidate{})
		e.logger.Debug("no candidates found", slog.String("item", s.Key()))
		return s
	}

	chosen := candidates[e.chooseCandidate(item, candidates)]
	rt.StoreCandidate(s, chosen)
	return s
}

// chooseCandidate picks the candidate index. Manual mode takes the first
// result without asking; automatic mode asks the user when the search is
// ambiguous. That asymmetry is long-standing observed behavior and callers
// rely on automatic runs pausing on ambiguity, so it stays.
func (e *Engine) chooseCandidate(item *rom.ROM, candidates []Candidate) int {
	if e.settings.CandidateMode == SelectManual || len(candidates) == 1 {
		return 0
	}

	options := make([]string, len(candidates))
	for i, c := range candidates {
		options[i] = c.DisplayName
	}
	idx := e.prompter.Select("Select game for "+item.Base(), options)
	if idx < 0 || idx >= len(candidates) {
		return 0
	}
	return idx
}

// executeMetadata applies the planned metadata action to the item.
func (e *Engine) executeMetadata(ctx context.Context, item *rom.ROM, action MetadataAction, s *SearchSession) {
	switch action {
	case MetadataActionNone:

	case MetadataActionCleanTitle:
		item.SetTitle(text.CleanTitle(item.BaseNoExt(), e.settings.CleanTags))

	case MetadataActionReadNFO:
		if err := nfo.ReadInto(item); err != nil {
			e.logger.Warn("nfo unreadable, using filename title",
				slog.String("item", item.Base()), slog.String("error", err.Error()))
			item.SetTitle(text.CleanTitle(item.BaseNoExt(), e.settings.CleanTags))
		}

	case MetadataActionQuery:
		e.queryMetadata(ctx, item, s)
	}
}

// queryMetadata fetches and applies provider metadata. Without a usable
// candidate the item falls back to its filename title, and that state is
// written to the sidecar so a later scan can tell "no match" from "never
// scraped".
func (e *Engine) queryMetadata(ctx context.Context, item *rom.ROM, s *SearchSession) {
	if s == nil {
		return
	}
	if _, ok := s.Candidate(); !ok {
		item.SetTitle(text.CleanTitle(item.BaseNoExt(), e.settings.CleanTags))
		e.writeNFO(item)
		return
	}

	rec, err := e.metadataRT.Metadata(ctx, s)
	if err != nil {
		if !errors.Is(err, ErrDisabled) {
			e.notifier.Notify(err.Error())
		}
		return
	}

	if e.settings.KeepFilenameTitle || rec.Title == "" {
		item.SetTitle(text.CleanTitle(item.BaseNoExt(), e.settings.CleanTags))
	} else {
		item.SetTitle(rec.Title)
	}
	item.SetYear(rec.Year)
	item.SetGenre(rec.Genre)
	item.SetDeveloper(rec.Developer)
	item.SetPlayers(rec.Players)
	item.SetRating(rec.Rating)
	item.SetPlot(rec.Plot)

	e.writeNFO(item)
}

// writeNFO persists the item's metadata to its sidecar when enabled.
func (e *Engine) writeNFO(item *rom.ROM) {
	if !e.settings.UpdateNFO {
		return
	}
	if err := nfo.WriteFrom(item); err != nil {
		e.logger.Warn("nfo write failed",
			slog.String("item", item.Base()), slog.String("error", err.Error()))
	}
}

// executeAssets applies every planned asset action to the item.
func (e *Engine) executeAssets(ctx context.Context, item *rom.ROM, plans []assetPlan, s *SearchSession) {
	for _, p := range plans {
		switch p.action {
		case AssetActionNone:

		case AssetActionLocal:
			if p.localPath != "" {
				e.setAsset(item, p.assetType, p.localPath)
			}

		case AssetActionQuery:
			path := e.queryAsset(ctx, item, p, s)
			if path != "" {
				e.setAsset(item, p.assetType, path)
			}
		}
	}
}

// queryAsset fetches one asset slot from the provider, returning the path
// to store. Every failure path falls back to the local file, which may be
// empty.
func (e *Engine) queryAsset(ctx context.Context, item *rom.ROM, p assetPlan, s *SearchSession) string {
	if s == nil {
		return p.localPath
	}
	if _, ok := s.Candidate(); !ok {
		return p.localPath
	}
	if !e.assetRT.Provider().SupportsAssetType(p.assetType) {
		return p.localPath
	}

	all, err := e.assetRT.Assets(ctx, s)
	if err != nil {
		if !errors.Is(err, ErrDisabled) {
			e.notifier.Notify(err.Error())
		}
		return p.localPath
	}

	var records []AssetRecord
	for _, r := range all {
		if r.Type == p.assetType {
			records = append(records, r)
		}
	}
	if len(records) == 0 {
		return p.localPath
	}

	chosen, keepLocal := e.chooseAsset(item, p, records)
	if keepLocal {
		return p.localPath
	}
	return e.downloadAsset(ctx, item, p, chosen)
}

// chooseAsset picks one asset record. Manual mode offers the existing local
// file as a leading "keep current" option; automatic mode takes the first
// record. keepLocal is true when the local option won.
func (e *Engine) chooseAsset(item *rom.ROM, p assetPlan, records []AssetRecord) (AssetRecord, bool) {
	if e.settings.AssetMode != SelectManual {
		return records[0], false
	}

	hasLocal := p.localPath != ""
	options := make([]string, 0, len(records)+1)
	if hasLocal {
		options = append(options, "Keep current "+filepath.Base(p.localPath))
	}
	for _, r := range records {
		options = append(options, r.DisplayName)
	}

	if len(options) == 1 {
		if hasLocal {
			return AssetRecord{}, true
		}
		return records[0], false
	}

	idx := e.prompter.Select(
		fmt.Sprintf("Select %s for %s", p.assetType.DisplayName(), item.Base()), options)
	if idx < 0 {
		idx = 0
	}
	if hasLocal {
		if idx == 0 {
			return AssetRecord{}, true
		}
		idx--
	}
	if idx >= len(records) {
		idx = 0
	}
	return records[idx], false
}

// downloadAsset resolves and downloads one remote asset, returning the
// stored path or the local fallback.
func (e *Engine) downloadAsset(ctx context.Context, item *rom.ROM, p assetPlan, rec AssetRecord) string {
	url, logURL, err := e.assetRT.ResolveAssetURL(ctx, rec)
	if err != nil || url == "" {
		if err != nil && !errors.Is(err, ErrDisabled) {
			e.notifier.Notify(err.Error())
		}
		return p.localPath
	}

	ext, err := e.assetRT.ResolveAssetExtension(ctx, rec, url)
	if err != nil || ext == "" {
		if err != nil && !errors.Is(err, ErrDisabled) {
			e.notifier.Notify(err.Error())
		}
		return p.localPath
	}

	dest := filepath.Join(e.lib.AssetDir(p.assetType), item.BaseNoExt()+"."+ext)
	download := e.assetRT.DownloadImage
	if p.assetType == asset.Trailer || p.assetType == asset.Manual {
		download = e.assetRT.DownloadFile
	}
	if err := download(ctx, url, logURL, dest); err != nil {
		if !errors.Is(err, ErrDisabled) {
			e.notifier.Notify(fmt.Sprintf("Download failed for %s: %v", item.Base(), err))
		}
		return p.localPath
	}

	e.logger.Info("asset downloaded",
		slog.String("item", item.Base()),
		slog.String("asset", string(p.assetType)),
		slog.String("path", dest))
	return dest
}

// setAsset stores a path in the item's slot. Trailers go through their own
// mutation because they are media files, not images.
func (e *Engine) setAsset(item *rom.ROM, t asset.Type, path string) {
	if t == asset.Trailer {
		item.SetTrailer(path)
		return
	}
	item.SetAsset(t, path)
}

// flushCaches persists every runtime's result cache once at scan end.
func (e *Engine) flushCaches() error {
	var firstErr error
	if e.metadataRT != nil {
		if err := e.metadataRT.Flush(); err != nil {
			firstErr = err
		}
	}
	if e.assetRT != nil && e.assetRT != e.metadataRT {
		if err := e.assetRT.Flush(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
