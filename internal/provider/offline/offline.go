// Package offline implements a lookup provider backed by a local SQLite
// games database. It answers searches and metadata without any network
// access, so it never needs a disk result cache and supplies no artwork.
package offline

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/sydlexius/driftwood/internal/asset"
	"github.com/sydlexius/driftwood/internal/scraper"
)

// maxResults caps one search's candidate list.
const maxResults = 25

// Provider looks games up in a read-only SQLite database with a `games`
// table: id, title, platform, year, genre, developer, nplayers, rating, plot.
type Provider struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// New opens the games database at path read-only.
func New(path string, logger *slog.Logger) (*Provider, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("offline database: %w", err)
	}
	db, err := sql.Open("sqlite", path+"?mode=ro&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening offline database: %w", err)
	}
	if err := db.PingContext(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging offline database: %w", err)
	}
	return &Provider{
		db:     db,
		path:   path,
		logger: logger.With(slog.String("component", "provider"), slog.String("provider", "offline")),
	}, nil
}

// Close releases the database handle.
func (p *Provider) Close() error { return p.db.Close() }

// ID implements scraper.Provider.
func (p *Provider) ID() string { return "offline" }

// Name implements scraper.Provider.
func (p *Provider) Name() string { return "Offline games database" }

// CacheName implements scraper.Provider.
func (p *Provider) CacheName() string { return "offline" }

// SupportsDiskCache implements scraper.Provider. Local lookups are cheaper
// than the cache they would fill.
func (p *Provider) SupportsDiskCache() bool { return false }

// SupportsSearch implements scraper.Provider.
func (p *Provider) SupportsSearch() bool { return true }

// SupportsMetadata implements scraper.Provider.
func (p *Provider) SupportsMetadata() bool { return true }

// SupportsMetadataField implements scraper.Provider.
func (p *Provider) SupportsMetadataField(scraper.MetadataField) bool { return true }

// SupportsAssets implements scraper.Provider.
func (p *Provider) SupportsAssets() bool { return false }

// SupportsAssetType implements scraper.Provider.
func (p *Provider) SupportsAssetType(asset.Type) bool { return false }

// CheckReady verifies the games table is queryable.
func (p *Provider) CheckReady(ctx context.Context) error {
	var n int
	if err := p.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM games").Scan(&n); err != nil {
		return &scraper.AuthError{Provider: p.Name(), Reason: "games table missing or unreadable: " + err.Error()}
	}
	p.logger.Debug("offline database ready", slog.Int("games", n))
	return nil
}

// Search finds candidates by case-insensitive title match, exact matches
// first.
func (p *Provider) Search(ctx context.Context, term, _, _, platform string) ([]scraper.Candidate, error) {
	pattern := "%" + strings.ToLower(term) + "%"
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, title, platform
		FROM games
		WHERE LOWER(title) LIKE ? AND (? = '' OR platform = ?)
		ORDER BY CASE WHEN LOWER(title) = ? THEN 0 ELSE 1 END, title
		LIMIT ?`,
		pattern, platform, platform, strings.ToLower(term), maxResults)
	if err != nil {
		return nil, fmt.Errorf("querying games: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	candidates := []scraper.Candidate{}
	order := 0
	for rows.Next() {
		var id int64
		var title, plat string
		if err := rows.Scan(&id, &title, &plat); err != nil {
			return nil, fmt.Errorf("scanning game row: %w", err)
		}
		candidates = append(candidates, scraper.Candidate{
			ID:              strconv.FormatInt(id, 10),
			DisplayName:     title,
			Platform:        platform,
			ScraperPlatform: plat,
			Order:           order,
		})
		order++
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading game rows: %w", err)
	}
	return candidates, nil
}

// Metadata loads the full record for a candidate.
func (p *Provider) Metadata(ctx context.Context, c scraper.Candidate, _ string) (*scraper.MetadataRecord, error) {
	rec := &scraper.MetadataRecord{}
	var year, genre, developer, players, rating, plot sql.NullString
	err := p.db.QueryRowContext(ctx, `
		SELECT title, year, genre, developer, nplayers, rating, plot
		FROM games WHERE id = ?`, c.ID).
		Scan(&rec.Title, &year, &genre, &developer, &players, &rating, &plot)
	if errors.Is(err, sql.ErrNoRows) {
		return &scraper.MetadataRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying game %s: %w", c.ID, err)
	}
	rec.Year = year.String
	rec.Genre = genre.String
	rec.Developer = developer.String
	rec.Players = players.String
	rec.Rating = rating.String
	rec.Plot = plot.String
	return rec, nil
}

// Assets implements scraper.Provider. The offline database carries no
// artwork.
func (p *Provider) Assets(context.Context, scraper.Candidate, string) ([]scraper.AssetRecord, error) {
	return nil, nil
}

// ResolveAssetURL implements scraper.Provider as a passthrough.
func (p *Provider) ResolveAssetURL(_ context.Context, a scraper.AssetRecord) (string, string, error) {
	return a.URL, a.URL, nil
}

// ResolveAssetExtension implements scraper.Provider as a passthrough.
func (p *Provider) ResolveAssetExtension(_ context.Context, _ scraper.AssetRecord, url string) (string, error) {
	if idx := strings.LastIndex(url, "."); idx >= 0 && idx < len(url)-1 {
		return url[idx+1:], nil
	}
	return "", fmt.Errorf("no extension in url")
}
