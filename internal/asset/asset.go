// Package asset defines the artwork and media types associated with a ROM.
package asset

// Type identifies one kind of artwork or media slot on a ROM.
type Type string

// Known asset types.
const (
	Title     Type = "title"
	Snap      Type = "snap"
	Boxfront  Type = "boxfront"
	Boxback   Type = "boxback"
	Cartridge Type = "cartridge"
	Fanart    Type = "fanart"
	Banner    Type = "banner"
	Clearlogo Type = "clearlogo"
	Flyer     Type = "flyer"
	Map       Type = "map"
	Manual    Type = "manual"
	Trailer   Type = "trailer"
)

// AllTypes returns every known asset type in display order.
func AllTypes() []Type {
	return []Type{
		Title, Snap, Boxfront, Boxback, Cartridge, Fanart,
		Banner, Clearlogo, Flyer, Map, Manual, Trailer,
	}
}

// Valid reports whether t is a known asset type.
func Valid(t Type) bool {
	for _, known := range AllTypes() {
		if t == known {
			return true
		}
	}
	return false
}

// DisplayName returns a human-readable name for the asset type.
func (t Type) DisplayName() string {
	switch t {
	case Title:
		return "Title screen"
	case Snap:
		return "Snapshot"
	case Boxfront:
		return "Box front"
	case Boxback:
		return "Box back"
	case Cartridge:
		return "Cartridge"
	case Fanart:
		return "Fanart"
	case Banner:
		return "Banner"
	case Clearlogo:
		return "Clearlogo"
	case Flyer:
		return "Flyer"
	case Map:
		return "Map"
	case Manual:
		return "Manual"
	case Trailer:
		return "Trailer"
	default:
		return string(t)
	}
}

// DirName returns the conventional directory name holding assets of this type.
func (t Type) DirName() string {
	switch t {
	case Title:
		return "titles"
	case Snap:
		return "snaps"
	case Boxfront:
		return "boxfronts"
	case Boxback:
		return "boxbacks"
	case Cartridge:
		return "cartridges"
	case Fanart:
		return "fanarts"
	case Banner:
		return "banners"
	case Clearlogo:
		return "clearlogos"
	case Flyer:
		return "flyers"
	case Map:
		return "maps"
	case Manual:
		return "manuals"
	case Trailer:
		return "trailers"
	default:
		return string(t)
	}
}
