// Package watcher triggers rescans when ROM files appear in or disappear
// from the library directory.
package watcher

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Service watches one ROM directory and invokes the scan callback after
// file churn settles. Rapid changes (an unzip dropping fifty files) coalesce
// into a single scan through the debounce timer.
type Service struct {
	romDir     string
	extensions map[string]bool
	scanFn     func(ctx context.Context) error
	debounce   time.Duration
	logger     *slog.Logger
}

// NewService creates a watcher for the ROM directory. extensions limits
// which file events count; empty means all files.
func NewService(romDir string, extensions []string, debounce time.Duration, scanFn func(ctx context.Context) error, logger *slog.Logger) *Service {
	extMap := make(map[string]bool, len(extensions))
	for _, e := range extensions {
		extMap["."+strings.ToLower(strings.TrimPrefix(e, "."))] = true
	}
	if debounce <= 0 {
		debounce = 2 * time.Second
	}
	return &Service{
		romDir:     romDir,
		extensions: extMap,
		scanFn:     scanFn,
		debounce:   debounce,
		logger:     logger.With(slog.String("component", "fs-watcher")),
	}
}

// Start blocks until ctx is canceled, dispatching debounced scans on
// library changes.
func (s *Service) Start(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close() //nolint:errcheck

	if err := w.Add(s.romDir); err != nil {
		return err
	}
	s.logger.Info("watching library", slog.String("path", s.romDir))

	// Debounce timer starts stopped; reset on each relevant event.
	debounceTimer := time.NewTimer(0)
	if !debounceTimer.Stop() {
		<-debounceTimer.C
	}
	scanPending := false

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("watcher stopping")
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !s.relevant(ev) {
				continue
			}
			s.logger.Debug("library changed",
				slog.String("path", ev.Name), slog.String("op", ev.Op.String()))
			if !debounceTimer.Stop() {
				select {
				case <-debounceTimer.C:
				default:
				}
			}
			debounceTimer.Reset(s.debounce)
			scanPending = true

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("fsnotify error", slog.String("error", err.Error()))

		case <-debounceTimer.C:
			if scanPending {
				scanPending = false
				s.logger.Info("library settled, rescanning")
				if err := s.scanFn(ctx); err != nil {
					s.logger.Error("triggered scan failed", slog.String("error", err.Error()))
				}
			}
		}
	}
}

// relevant reports whether the event concerns a ROM file appearing,
// disappearing or finishing a copy.
func (s *Service) relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Write) {
		return false
	}
	name := filepath.Base(ev.Name)
	if strings.HasPrefix(name, ".") {
		return false
	}
	if len(s.extensions) == 0 {
		return true
	}
	return s.extensions[strings.ToLower(filepath.Ext(name))]
}
