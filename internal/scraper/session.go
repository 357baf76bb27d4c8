package scraper

import "path/filepath"

// SearchSession carries the lookup context for one item through a provider
// runtime: search inputs, the cache key, and the candidate chosen for it.
// It is created per item and discarded afterwards, so no candidate state
// ever survives from one item to the next.
type SearchSession struct {
	// Term is the search term, either derived from the filename or entered
	// by the user.
	Term string

	// ROMPath is the full path of the item being scraped.
	ROMPath string

	// ChecksumPath is the file to hash for checksum-based providers. For
	// multi-disc sets it points at the first disc rather than ROMPath.
	ChecksumPath string

	// Platform is the library platform name.
	Platform string

	candidate *Candidate
	resolved  bool
}

// NewSession builds a session for one item lookup.
func NewSession(term, romPath, checksumPath, platform string) *SearchSession {
	return &SearchSession{
		Term:         term,
		ROMPath:      romPath,
		ChecksumPath: checksumPath,
		Platform:     platform,
	}
}

// Key returns the cache key for this item: the basename with extension, so
// multi-version sets ("Game (USA).zip", "Game (Europe).zip") cache apart.
func (s *SearchSession) Key() string {
	return filepath.Base(s.ROMPath)
}

// SetCandidate records the candidate chosen for this item. The zero
// Candidate records "searched, found nothing".
func (s *SearchSession) SetCandidate(c Candidate) {
	s.candidate = &c
	s.resolved = true
}

// MarkFailed records that candidate resolution ran but the search errored.
// Unlike the zero candidate this outcome is never cached, so the item is
// retried on the next run.
func (s *SearchSession) MarkFailed() {
	s.candidate = nil
	s.resolved = true
}

// Candidate returns the chosen candidate. The boolean is false when no
// candidate has been set, or the set candidate is the no-results marker.
func (s *SearchSession) Candidate() (Candidate, bool) {
	if s.candidate == nil || s.candidate.IsZero() {
		return Candidate{}, false
	}
	return *s.candidate, true
}

// HasResolved reports whether candidate resolution already ran for this
// session, regardless of whether it produced a match.
func (s *SearchSession) HasResolved() bool {
	return s.resolved
}
