// Package platform holds platform identifiers used for provider queries and
// cache file naming.
package platform

import "strings"

// MAME is the long name of the arcade platform. MAME sets need special
// filtering because they mix games with BIOSes, devices and mechanical
// machines.
const MAME = "MAME"

// IsMAME reports whether the given platform name refers to MAME.
func IsMAME(p string) bool {
	return strings.EqualFold(p, MAME)
}

// FileSafe converts a platform name into a string safe for use in cache
// file names: anything outside [A-Za-z0-9._-] becomes an underscore.
func FileSafe(p string) string {
	var b strings.Builder
	b.Grow(len(p))
	for _, r := range p {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '_' || r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
