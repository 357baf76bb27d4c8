// Package nfo reads and writes game NFO sidecar files.
//
// An NFO file sits next to its ROM with the extension replaced by .nfo and
// carries a <game> XML document with the scraped metadata fields. Files in
// the wild are frequently hand-edited, so parsing is lenient: UTF-8 BOMs
// are stripped and the decoder runs in non-strict mode.
package nfo

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sydlexius/driftwood/internal/filesystem"
	"github.com/sydlexius/driftwood/internal/rom"
)

// GameNFO is the on-disk metadata record for one ROM.
type GameNFO struct {
	XMLName   xml.Name `xml:"game"`
	Title     string   `xml:"title"`
	Year      string   `xml:"year"`
	Genre     string   `xml:"genre"`
	Developer string   `xml:"developer"`
	Players   string   `xml:"nplayers"`
	Rating    string   `xml:"rating"`
	Plot      string   `xml:"plot"`
}

// PathFor returns the sidecar path for a ROM file path: the extension is
// replaced by .nfo.
func PathFor(romPath string) string {
	if idx := strings.LastIndex(romPath, "."); idx > strings.LastIndexAny(romPath, `/\`) {
		return romPath[:idx] + ".nfo"
	}
	return romPath + ".nfo"
}

// Exists reports whether the sidecar for the given ROM path is present.
func Exists(romPath string) bool {
	info, err := os.Stat(PathFor(romPath))
	return err == nil && !info.IsDir()
}

// Parse reads a game NFO document from the reader.
func Parse(r io.Reader) (*GameNFO, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading nfo data: %w", err)
	}

	data = stripBOM(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("empty nfo file")
	}

	n := &GameNFO{}
	decoder := xml.NewDecoder(bytes.NewReader(data))
	decoder.Strict = false
	decoder.AutoClose = xml.HTMLAutoClose
	if err := decoder.Decode(n); err != nil {
		return nil, fmt.Errorf("parsing nfo xml: %w", err)
	}
	return n, nil
}

// Write writes a game NFO document as XML to the writer, with fields in the
// conventional order. Empty fields are written as empty elements so a later
// scrape can fill them in place.
func Write(w io.Writer, n *GameNFO) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	if _, err := io.WriteString(w, "<game>\n"); err != nil {
		return err
	}

	writeElement(w, "title", n.Title)
	writeElement(w, "year", n.Year)
	writeElement(w, "genre", n.Genre)
	writeElement(w, "developer", n.Developer)
	writeElement(w, "nplayers", n.Players)
	writeElement(w, "rating", n.Rating)
	writeElement(w, "plot", n.Plot)

	if _, err := io.WriteString(w, "</game>\n"); err != nil {
		return err
	}
	return nil
}

// ReadInto parses the sidecar next to the item and merges its fields into
// the item. Empty NFO fields leave the item untouched.
func ReadInto(item *rom.ROM) error {
	f, err := os.Open(PathFor(item.Path())) //nolint:gosec // G304: path derived from scanned library
	if err != nil {
		return fmt.Errorf("opening nfo file: %w", err)
	}
	defer f.Close() //nolint:errcheck

	n, err := Parse(f)
	if err != nil {
		return err
	}

	if n.Title != "" {
		item.SetTitle(n.Title)
	}
	if n.Year != "" {
		item.SetYear(n.Year)
	}
	if n.Genre != "" {
		item.SetGenre(n.Genre)
	}
	if n.Developer != "" {
		item.SetDeveloper(n.Developer)
	}
	if n.Players != "" {
		item.SetPlayers(n.Players)
	}
	if n.Rating != "" {
		item.SetRating(n.Rating)
	}
	if n.Plot != "" {
		item.SetPlot(n.Plot)
	}
	return nil
}

// WriteFrom writes the item's metadata to its sidecar atomically.
func WriteFrom(item *rom.ROM) error {
	n := &GameNFO{
		Title:     item.Title(),
		Year:      item.Year(),
		Genre:     item.Genre(),
		Developer: item.Developer(),
		Players:   item.Players(),
		Rating:    item.Rating(),
		Plot:      item.Plot(),
	}

	var buf bytes.Buffer
	if err := Write(&buf, n); err != nil {
		return fmt.Errorf("encoding nfo: %w", err)
	}
	if err := filesystem.WriteFileAtomic(PathFor(item.Path()), buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing nfo: %w", err)
	}
	return nil
}

// writeElement writes a single XML element with escaped text content.
func writeElement(w io.Writer, name, value string) {
	var buf bytes.Buffer
	if err := xml.EscapeText(&buf, []byte(value)); err != nil {
		return
	}
	fmt.Fprintf(w, "  <%s>%s</%s>\n", name, buf.String(), name) //nolint:errcheck
}

// stripBOM removes a UTF-8 BOM (EF BB BF) from the beginning of the data.
func stripBOM(data []byte) []byte {
	if len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF {
		return data[3:]
	}
	return data
}
