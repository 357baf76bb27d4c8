package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sydlexius/driftwood/internal/asset"
	"github.com/sydlexius/driftwood/internal/library"
	"github.com/sydlexius/driftwood/internal/nfo"
	"github.com/sydlexius/driftwood/internal/rom"
	"github.com/sydlexius/driftwood/internal/ui"
)

// selectPrompter overrides Select so tests can script candidate choices.
type selectPrompter struct {
	ui.Silent
	selection   int
	selectCalls int
}

func (p *selectPrompter) Select(string, []string) int {
	p.selectCalls++
	return p.selection
}

// textPrompter counts search-term prompts.
type textPrompter struct {
	ui.Silent
	textCalls int
}

func (p *textPrompter) Text(_ string, preset string) string {
	p.textCalls++
	return preset
}

type fixture struct {
	romDir   string
	provider *mockProvider
	runtime  *ProviderRuntime
	silent   *ui.Silent
	lib      *library.Library
	engine   *Engine
}

func newFixture(t *testing.T, settings Settings, assetDirs map[asset.Type]string) *fixture {
	t.Helper()
	romDir := t.TempDir()
	p := newMockProvider("mock")
	rt := NewRuntime(p, RuntimeOptions{CacheDir: t.TempDir()}, testLogger())
	silent := &ui.Silent{}
	lib := library.New(romDir, []string{"zip"}, assetDirs, testLogger())
	filter, err := NewFilter(true, nil, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	e := NewEngine(EngineOptions{
		Settings:        settings,
		Library:         lib,
		Filter:          filter,
		MetadataRuntime: rt,
		AssetRuntime:    rt,
		Progress:        silent,
		Prompter:        silent,
		Notifier:        silent,
	}, testLogger())
	return &fixture{romDir: romDir, provider: p, runtime: rt, silent: silent, lib: lib, engine: e}
}

func (f *fixture) addROM(t *testing.T, name string) *rom.ROM {
	t.Helper()
	path := filepath.Join(f.romDir, name)
	if err := os.WriteFile(path, []byte("rom"), 0o644); err != nil {
		t.Fatal(err)
	}
	return rom.New(path)
}

func TestResolveMetadataActionTable(t *testing.T) {
	tests := []struct {
		policy MetadataPolicy
		nfo    bool
		want   MetadataAction
	}{
		{MetadataTitleOnly, false, MetadataActionCleanTitle},
		{MetadataTitleOnly, true, MetadataActionCleanTitle},
		{MetadataNFOPreferred, true, MetadataActionReadNFO},
		{MetadataNFOPreferred, false, MetadataActionCleanTitle},
		{MetadataNFOThenProvider, true, MetadataActionReadNFO},
		{MetadataNFOThenProvider, false, MetadataActionQuery},
		{MetadataProviderOnly, false, MetadataActionQuery},
		{MetadataProviderOnly, true, MetadataActionQuery},
	}
	for _, tt := range tests {
		settings := DefaultSettings()
		settings.MetadataPolicy = tt.policy
		f := newFixture(t, settings, nil)
		if got := f.engine.ResolveMetadataAction(tt.nfo); got != tt.want {
			t.Errorf("policy=%s nfo=%v: action = %d, want %d", tt.policy, tt.nfo, got, tt.want)
		}
	}
}

func TestResolveMetadataActionWithoutProvider(t *testing.T) {
	policies := []MetadataPolicy{
		MetadataTitleOnly,
		MetadataNFOPreferred,
		MetadataNFOThenProvider,
		MetadataProviderOnly,
	}
	for _, policy := range policies {
		settings := DefaultSettings()
		settings.MetadataPolicy = policy
		f := newFixture(t, settings, nil)
		f.engine.metadataRT = nil

		for _, nfoExists := range []bool{false, true} {
			if got := f.engine.ResolveMetadataAction(nfoExists); got != MetadataActionNone {
				t.Errorf("policy=%s nfo=%v without provider: action = %d, want none",
					policy, nfoExists, got)
			}
		}
	}
}

func TestResolveAssetActionTable(t *testing.T) {
	tests := []struct {
		policy   AssetPolicy
		local    bool
		supports bool
		want     AssetAction
	}{
		{AssetLocalOnly, true, true, AssetActionLocal},
		{AssetLocalOnly, false, false, AssetActionLocal},
		{AssetLocalThenProvider, true, true, AssetActionLocal},
		{AssetLocalThenProvider, false, true, AssetActionQuery},
		{AssetLocalThenProvider, false, false, AssetActionLocal},
		{AssetProviderOnly, true, false, AssetActionLocal},
		{AssetProviderOnly, false, false, AssetActionLocal},
		{AssetProviderOnly, true, true, AssetActionQuery},
		{AssetProviderOnly, false, true, AssetActionQuery},
	}
	for _, tt := range tests {
		settings := DefaultSettings()
		settings.AssetPolicy = tt.policy
		f := newFixture(t, settings, nil)
		if got := f.engine.ResolveAssetAction(tt.local, tt.supports); got != tt.want {
			t.Errorf("policy=%s local=%v supports=%v: action = %d, want %d",
				tt.policy, tt.local, tt.supports, got, tt.want)
		}
	}
}

func TestResolveAssetActionWithoutProvider(t *testing.T) {
	settings := DefaultSettings()
	settings.AssetPolicy = AssetProviderOnly
	f := newFixture(t, settings, nil)
	f.engine.assetRT = nil

	if got := f.engine.ResolveAssetAction(true, true); got != AssetActionNone {
		t.Errorf("action = %d, want none without a provider", got)
	}
}

func TestPlanAssetsSkipsPresentSlots(t *testing.T) {
	settings := DefaultSettings()
	settings.AssetTypes = []asset.Type{asset.Boxfront}
	dirs := map[asset.Type]string{asset.Boxfront: t.TempDir()}

	f := newFixture(t, settings, dirs)
	item := f.addROM(t, "Game.zip")
	item.SetAsset(asset.Boxfront, "/art/existing.png")

	if plans := f.engine.planAssets(item); len(plans) != 0 {
		t.Errorf("populated slot planned anyway: %+v", plans)
	}

	f.engine.settings.OverwriteExisting = true
	if plans := f.engine.planAssets(item); len(plans) != 1 {
		t.Errorf("overwrite enabled but slot not planned")
	}
}

func TestTitleOnlyScrapeMakesNoNetworkCalls(t *testing.T) {
	settings := DefaultSettings()
	settings.MetadataPolicy = MetadataTitleOnly
	f := newFixture(t, settings, nil)
	item := f.addROM(t, "Sonic (USA).zip")

	if err := f.engine.ProcessItem(context.Background(), item, "megadrive"); err != nil {
		t.Fatalf("ProcessItem: %v", err)
	}

	if item.Title() != "Sonic" {
		t.Errorf("title = %q, want Sonic", item.Title())
	}
	if f.provider.searchCalls != 0 || f.provider.metadataCalls != 0 {
		t.Errorf("title-only scrape hit the provider: search=%d metadata=%d",
			f.provider.searchCalls, f.provider.metadataCalls)
	}
}

func TestSingleCandidateScrapeWritesNFO(t *testing.T) {
	settings := DefaultSettings()
	settings.MetadataPolicy = MetadataNFOThenProvider
	settings.UpdateNFO = true
	f := newFixture(t, settings, nil)
	f.provider.searchFn = func(string) ([]Candidate, error) {
		return []Candidate{{ID: "42", DisplayName: "Sonic The Hedgehog"}}, nil
	}
	f.provider.metadataFn = func(Candidate) (*MetadataRecord, error) {
		return &MetadataRecord{Title: "Sonic The Hedgehog", Year: "1991", Developer: "Sega"}, nil
	}
	item := f.addROM(t, "Sonic (USA).zip")

	if err := f.engine.ProcessItem(context.Background(), item, "megadrive"); err != nil {
		t.Fatalf("ProcessItem: %v", err)
	}

	if item.Title() != "Sonic The Hedgehog" || item.Year() != "1991" {
		t.Errorf("metadata not applied: title=%q year=%q", item.Title(), item.Year())
	}
	if f.provider.searchCalls != 1 {
		t.Errorf("searchCalls = %d, want 1", f.provider.searchCalls)
	}

	n, err := nfo.Parse(mustOpen(t, nfo.PathFor(item.Path())))
	if err != nil {
		t.Fatalf("parsing written nfo: %v", err)
	}
	if n.Year != "1991" || n.Developer != "Sega" {
		t.Errorf("nfo = %+v", n)
	}
}

func mustOpen(t *testing.T, path string) *os.File {
	t.Helper()
	f, err := os.Open(path) //nolint:gosec // G304: test fixture path
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { f.Close() }) //nolint:errcheck
	return f
}

func TestRepeatedErrorsDisableProviderOnce(t *testing.T) {
	settings := DefaultSettings()
	settings.MetadataPolicy = MetadataProviderOnly
	f := newFixture(t, settings, nil)
	f.provider.searchFn = func(string) ([]Candidate, error) {
		return nil, fmt.Errorf("connection reset")
	}

	for i := 1; i <= 7; i++ {
		f.addROM(t, fmt.Sprintf("Game%d.zip", i))
	}
	items, err := f.lib.Items()
	if err != nil {
		t.Fatal(err)
	}

	result, err := f.engine.Run(context.Background(), items, "megadrive")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Processed != 7 {
		t.Errorf("processed = %d, want 7 (fallbacks are not failures)", result.Processed)
	}

	// Six errors open the breaker; item seven never reaches the transport.
	if f.provider.searchCalls != errorThreshold+1 {
		t.Errorf("searchCalls = %d, want %d", f.provider.searchCalls, errorThreshold+1)
	}
	if items[6].Title() != "Game7" {
		t.Errorf("item 7 title = %q, want filename fallback", items[6].Title())
	}

	var disabled int
	for _, msg := range f.silent.Notices {
		if strings.Contains(msg, "disabled") {
			disabled++
		}
	}
	if disabled != 1 {
		t.Errorf("disabled notifications = %d, want exactly 1 (notices: %v)",
			disabled, f.silent.Notices)
	}
}

func TestFailedSearchRetriesNextRun(t *testing.T) {
	settings := DefaultSettings()
	settings.MetadataPolicy = MetadataProviderOnly
	f := newFixture(t, settings, nil)
	f.provider.searchFn = func(string) ([]Candidate, error) {
		return nil, fmt.Errorf("timeout")
	}
	item := f.addROM(t, "Game.zip")
	ctx := context.Background()

	if err := f.engine.ProcessItem(ctx, item, "megadrive"); err != nil {
		t.Fatal(err)
	}
	if err := f.engine.ProcessItem(ctx, item, "megadrive"); err != nil {
		t.Fatal(err)
	}

	if f.provider.searchCalls != 2 {
		t.Errorf("searchCalls = %d, want 2: failed searches must not be cached", f.provider.searchCalls)
	}
}

func TestEmptySearchResultCached(t *testing.T) {
	settings := DefaultSettings()
	settings.MetadataPolicy = MetadataProviderOnly
	f := newFixture(t, settings, nil)
	f.provider.searchFn = func(string) ([]Candidate, error) {
		return []Candidate{}, nil
	}
	item := f.addROM(t, "Obscure Homebrew.zip")
	ctx := context.Background()

	if err := f.engine.ProcessItem(ctx, item, "megadrive"); err != nil {
		t.Fatal(err)
	}
	if err := f.engine.ProcessItem(ctx, item, "megadrive"); err != nil {
		t.Fatal(err)
	}

	if f.provider.searchCalls != 1 {
		t.Errorf("searchCalls = %d, want 1: empty result must be served from cache", f.provider.searchCalls)
	}
	if item.Title() != "Obscure Homebrew" {
		t.Errorf("title = %q, want filename fallback", item.Title())
	}
}

func TestCachedCandidateSkipsSearchTermPrompt(t *testing.T) {
	settings := DefaultSettings()
	settings.MetadataPolicy = MetadataProviderOnly
	settings.SearchTermMode = SelectManual
	f := newFixture(t, settings, nil)
	prompter := &textPrompter{}
	f.engine.prompter = prompter
	item := f.addROM(t, "Sonic (USA).zip")
	ctx := context.Background()

	if err := f.engine.ProcessItem(ctx, item, "megadrive"); err != nil {
		t.Fatal(err)
	}
	if prompter.textCalls != 1 {
		t.Fatalf("textCalls = %d, want 1 prompt on the cache miss", prompter.textCalls)
	}

	// The candidate is cached now; a rescan must not block on a prompt.
	if err := f.engine.ProcessItem(ctx, item, "megadrive"); err != nil {
		t.Fatal(err)
	}
	if prompter.textCalls != 1 {
		t.Errorf("textCalls = %d, want no prompt on the cache hit", prompter.textCalls)
	}
	if f.provider.searchCalls != 1 {
		t.Errorf("searchCalls = %d, want 1", f.provider.searchCalls)
	}
}

func TestChooseCandidateSelectionModes(t *testing.T) {
	candidates := []Candidate{
		{ID: "1", DisplayName: "Sonic The Hedgehog"},
		{ID: "2", DisplayName: "Sonic The Hedgehog 2"},
		{ID: "3", DisplayName: "Sonic 3D Blast"},
	}
	item := rom.New("/roms/Sonic.zip")

	// Manual mode takes the first result without asking.
	settings := DefaultSettings()
	settings.CandidateMode = SelectManual
	f := newFixture(t, settings, nil)
	prompter := &selectPrompter{selection: 2}
	f.engine.prompter = prompter
	if idx := f.engine.chooseCandidate(item, candidates); idx != 0 {
		t.Errorf("manual mode picked index %d, want 0", idx)
	}
	if prompter.selectCalls != 0 {
		t.Error("manual mode prompted the user")
	}

	// Automatic mode prompts when the search is ambiguous.
	settings.CandidateMode = SelectAutomatic
	f = newFixture(t, settings, nil)
	prompter = &selectPrompter{selection: 2}
	f.engine.prompter = prompter
	if idx := f.engine.chooseCandidate(item, candidates); idx != 2 {
		t.Errorf("automatic mode picked index %d, want 2", idx)
	}
	if prompter.selectCalls != 1 {
		t.Errorf("selectCalls = %d, want 1", prompter.selectCalls)
	}

	// A single candidate never prompts.
	prompter.selectCalls = 0
	if idx := f.engine.chooseCandidate(item, candidates[:1]); idx != 0 {
		t.Error("single candidate should auto-select")
	}
	if prompter.selectCalls != 0 {
		t.Error("single candidate prompted the user")
	}

	// No selection defaults to the first candidate.
	prompter.selection = -1
	if idx := f.engine.chooseCandidate(item, candidates); idx != 0 {
		t.Error("dismissed prompt should default to the first candidate")
	}
}

func TestChooseAssetKeepCurrentOption(t *testing.T) {
	settings := DefaultSettings()
	settings.AssetMode = SelectManual
	f := newFixture(t, settings, nil)
	item := rom.New("/roms/Sonic.zip")
	records := []AssetRecord{{Type: asset.Boxfront, DisplayName: "EU box"}}

	// Local file present: the keep-current option leads, and a dismissed
	// prompt keeps it.
	prompter := &selectPrompter{selection: -1}
	f.engine.prompter = prompter
	plan := assetPlan{assetType: asset.Boxfront, localPath: "/art/Sonic.png"}
	if _, keep := f.engine.chooseAsset(item, plan, records); !keep {
		t.Error("dismissed prompt should keep the local file")
	}

	// Explicitly choosing the remote option returns it.
	prompter.selection = 1
	rec, keep := f.engine.chooseAsset(item, plan, records)
	if keep || rec.DisplayName != "EU box" {
		t.Errorf("rec=%+v keep=%v", rec, keep)
	}

	// No local file and one record: auto-selected without prompting.
	prompter.selectCalls = 0
	plan.localPath = ""
	rec, keep = f.engine.chooseAsset(item, plan, records)
	if keep || rec.DisplayName != "EU box" {
		t.Errorf("rec=%+v keep=%v", rec, keep)
	}
	if prompter.selectCalls != 0 {
		t.Error("single option prompted the user")
	}
}

func TestAssetDownloadEndToEnd(t *testing.T) {
	img := pngBytes(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write(img) //nolint:errcheck
	}))
	defer srv.Close()

	artDir := t.TempDir()
	settings := DefaultSettings()
	settings.AssetPolicy = AssetProviderOnly
	settings.AssetTypes = []asset.Type{asset.Boxfront}
	f := newFixture(t, settings, map[asset.Type]string{asset.Boxfront: artDir})
	f.provider.assetsFn = func(Candidate) ([]AssetRecord, error) {
		return []AssetRecord{{Type: asset.Boxfront, DisplayName: "US box", URL: srv.URL + "/box.png", Downloadable: true}}, nil
	}
	item := f.addROM(t, "Sonic (USA).zip")

	if err := f.engine.ProcessItem(context.Background(), item, "megadrive"); err != nil {
		t.Fatalf("ProcessItem: %v", err)
	}

	want := filepath.Join(artDir, "Sonic (USA).png")
	if item.Asset(asset.Boxfront) != want {
		t.Errorf("boxfront = %q, want %q", item.Asset(asset.Boxfront), want)
	}
	if _, err := os.Stat(want); err != nil {
		t.Errorf("downloaded file missing: %v", err)
	}
}

func TestLocalTrailerUsesTrailerSlot(t *testing.T) {
	trailerDir := t.TempDir()
	trailerPath := filepath.Join(trailerDir, "Sonic (USA).mp4")
	if err := os.WriteFile(trailerPath, []byte("video"), 0o644); err != nil {
		t.Fatal(err)
	}

	settings := DefaultSettings()
	settings.AssetTypes = []asset.Type{asset.Trailer}
	f := newFixture(t, settings, map[asset.Type]string{asset.Trailer: trailerDir})
	item := f.addROM(t, "Sonic (USA).zip")

	if err := f.engine.ProcessItem(context.Background(), item, "megadrive"); err != nil {
		t.Fatal(err)
	}

	if item.Trailer() != trailerPath {
		t.Errorf("trailer = %q, want %q", item.Trailer(), trailerPath)
	}
}

func TestRunSkipsFilteredItems(t *testing.T) {
	f := newFixture(t, DefaultSettings(), nil)
	f.addROM(t, "[BIOS] Model 2 (USA).zip")
	f.addROM(t, "Sonic (USA).zip")
	items, err := f.lib.Items()
	if err != nil {
		t.Fatal(err)
	}

	result, err := f.engine.Run(context.Background(), items, "megadrive")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Skipped != 1 || result.Processed != 1 {
		t.Errorf("result = %+v, want 1 skipped, 1 processed", result)
	}
}
