// Package text provides filename and title cleanup utilities for scraping.
//
// ROM filenames in curated sets carry region, revision and dump-status tags
// in parentheses and brackets ("Sonic The Hedgehog (USA) [!].zip"). Search
// terms and display titles are derived by stripping those tags.
package text

import (
	"regexp"
	"strings"
)

var (
	// Bracketed tag groups: (USA), [!], {proto}, including nested spacing.
	tagPattern = regexp.MustCompile(`\s*[\(\[\{][^\)\]\}]*[\)\]\}]`)

	// Multi-disc and dump markers that appear outside brackets.
	discPattern = regexp.MustCompile(`(?i)\s*-?\s*(disc|disk|side|tape)\s*[0-9A-B]+\s*$`)

	spacePattern = regexp.MustCompile(`\s{2,}`)
)

// SearchTerm derives a provider search term from a ROM file basename
// (without extension). All bracketed tags and disc markers are removed so
// the term matches how games are titled in provider databases.
func SearchTerm(name string) string {
	s := tagPattern.ReplaceAllString(name, "")
	s = discPattern.ReplaceAllString(s, "")
	s = spacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// CleanTitle derives a display title from a ROM file basename (without
// extension). When cleanTags is true, bracketed tag groups are stripped;
// otherwise the name is returned with only whitespace normalized.
func CleanTitle(name string, cleanTags bool) string {
	s := name
	if cleanTags {
		s = tagPattern.ReplaceAllString(s, "")
	}
	s = spacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
