// Package config loads the application configuration from a YAML file with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sydlexius/driftwood/internal/asset"
	"github.com/sydlexius/driftwood/internal/logging"
	"github.com/sydlexius/driftwood/internal/scraper"
)

// Config holds all application configuration.
type Config struct {
	Library   LibraryConfig   `yaml:"library"`
	Scraping  ScrapingConfig  `yaml:"scraping"`
	Providers ProvidersConfig `yaml:"providers"`
	Filter    FilterConfig    `yaml:"filter"`
	Watch     WatchConfig     `yaml:"watch"`
	Logging   logging.Config  `yaml:"logging"`
}

// LibraryConfig holds ROM library path settings.
type LibraryConfig struct {
	Platform   string            `yaml:"platform"`
	ROMDir     string            `yaml:"rom_dir"`
	Extensions []string          `yaml:"extensions"`
	AssetDirs  map[string]string `yaml:"asset_dirs"`
}

// ScrapingConfig holds the per-scan policy settings.
type ScrapingConfig struct {
	MetadataPolicy    string   `yaml:"metadata_policy"`
	AssetPolicy       string   `yaml:"asset_policy"`
	SearchTermMode    string   `yaml:"search_term_mode"`
	CandidateMode     string   `yaml:"candidate_mode"`
	AssetMode         string   `yaml:"asset_mode"`
	AssetTypes        []string `yaml:"asset_types"`
	OverwriteExisting bool     `yaml:"overwrite_existing"`
	KeepFilenameTitle bool     `yaml:"keep_filename_title"`
	CleanTags         bool     `yaml:"clean_tags"`
	UpdateNFO         bool     `yaml:"update_nfo"`
}

// ProvidersConfig holds lookup provider settings.
type ProvidersConfig struct {
	CacheDir       string `yaml:"cache_dir"`
	OfflineDBPath  string `yaml:"offline_db_path"`
	MinIntervalMS  int    `yaml:"min_interval_ms"`
	HTTPTimeoutSec int    `yaml:"http_timeout_sec"`
}

// FilterConfig holds item filtering settings.
type FilterConfig struct {
	SkipBIOS     bool              `yaml:"skip_bios"`
	MAMESetFiles map[string]string `yaml:"mame_set_files"`
}

// WatchConfig holds library watch-mode settings.
type WatchConfig struct {
	DebounceMS int `yaml:"debounce_ms"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Library: LibraryConfig{
			ROMDir:     "/roms",
			Extensions: []string{"zip", "7z"},
		},
		Scraping: ScrapingConfig{
			MetadataPolicy: string(scraper.MetadataTitleOnly),
			AssetPolicy:    string(scraper.AssetLocalOnly),
			SearchTermMode: string(scraper.SelectAutomatic),
			CandidateMode:  string(scraper.SelectAutomatic),
			AssetMode:      string(scraper.SelectAutomatic),
			CleanTags:      true,
			UpdateNFO:      true,
		},
		Providers: ProvidersConfig{
			CacheDir:       "/data/driftwood/cache",
			MinIntervalMS:  500,
			HTTPTimeoutSec: 60,
		},
		Filter: FilterConfig{
			SkipBIOS: true,
		},
		Watch: WatchConfig{
			DebounceMS: 2000,
		},
		Logging: logging.DefaultConfig(),
	}
}

// Load reads config from a YAML file (if it exists) and overrides with
// environment variables. Environment variables take precedence.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFromFile(path); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	cfg.loadFromEnv()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from the CLI flag
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) loadFromEnv() {
	if v := os.Getenv("DW_PLATFORM"); v != "" {
		c.Library.Platform = v
	}
	if v := os.Getenv("DW_ROM_DIR"); v != "" {
		c.Library.ROMDir = v
	}
	if v := os.Getenv("DW_CACHE_DIR"); v != "" {
		c.Providers.CacheDir = v
	}
	if v := os.Getenv("DW_OFFLINE_DB"); v != "" {
		c.Providers.OfflineDBPath = v
	}
	if v := os.Getenv("DW_METADATA_POLICY"); v != "" {
		c.Scraping.MetadataPolicy = v
	}
	if v := os.Getenv("DW_ASSET_POLICY"); v != "" {
		c.Scraping.AssetPolicy = v
	}
	if v := os.Getenv("DW_MIN_INTERVAL_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			c.Providers.MinIntervalMS = ms
		}
	}
	if v := os.Getenv("DW_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("DW_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
}

func (c *Config) validate() error {
	if c.Library.ROMDir == "" {
		return fmt.Errorf("library rom_dir is required")
	}
	if c.Providers.CacheDir == "" {
		return fmt.Errorf("providers cache_dir is required")
	}
	if _, err := scraper.ParseMetadataPolicy(c.Scraping.MetadataPolicy); err != nil {
		return err
	}
	if _, err := scraper.ParseAssetPolicy(c.Scraping.AssetPolicy); err != nil {
		return err
	}
	for _, mode := range []string{c.Scraping.SearchTermMode, c.Scraping.CandidateMode, c.Scraping.AssetMode} {
		if _, err := scraper.ParseSelectionMode(mode); err != nil {
			return err
		}
	}
	for _, t := range c.Scraping.AssetTypes {
		if !asset.Valid(asset.Type(t)) {
			return fmt.Errorf("unknown asset type %q", t)
		}
	}
	for name := range c.Library.AssetDirs {
		if !asset.Valid(asset.Type(name)) {
			return fmt.Errorf("asset_dirs names unknown asset type %q", name)
		}
	}
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}
	if !logging.ValidFormat(c.Logging.Format) {
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}
	return nil
}

// Settings converts the scraping section into engine settings. Validation
// has already run, so the parses cannot fail here.
func (c *Config) Settings() scraper.Settings {
	s := scraper.DefaultSettings()
	s.MetadataPolicy, _ = scraper.ParseMetadataPolicy(c.Scraping.MetadataPolicy)
	s.AssetPolicy, _ = scraper.ParseAssetPolicy(c.Scraping.AssetPolicy)
	s.SearchTermMode, _ = scraper.ParseSelectionMode(c.Scraping.SearchTermMode)
	s.CandidateMode, _ = scraper.ParseSelectionMode(c.Scraping.CandidateMode)
	s.AssetMode, _ = scraper.ParseSelectionMode(c.Scraping.AssetMode)
	s.OverwriteExisting = c.Scraping.OverwriteExisting
	s.KeepFilenameTitle = c.Scraping.KeepFilenameTitle
	s.CleanTags = c.Scraping.CleanTags
	s.UpdateNFO = c.Scraping.UpdateNFO

	if len(c.Scraping.AssetTypes) > 0 {
		s.AssetTypes = make([]asset.Type, 0, len(c.Scraping.AssetTypes))
		for _, t := range c.Scraping.AssetTypes {
			s.AssetTypes = append(s.AssetTypes, asset.Type(t))
		}
	}
	return s
}

// AssetDirs converts the configured asset directory map to typed keys.
func (c *Config) AssetDirs() map[asset.Type]string {
	dirs := make(map[asset.Type]string, len(c.Library.AssetDirs))
	for name, dir := range c.Library.AssetDirs {
		dirs[asset.Type(name)] = dir
	}
	return dirs
}

// RuntimeOptions converts the provider section into runtime options.
func (c *Config) RuntimeOptions() scraper.RuntimeOptions {
	return scraper.RuntimeOptions{
		CacheDir:    c.Providers.CacheDir,
		MinInterval: time.Duration(c.Providers.MinIntervalMS) * time.Millisecond,
		HTTPTimeout: time.Duration(c.Providers.HTTPTimeoutSec) * time.Second,
	}
}
