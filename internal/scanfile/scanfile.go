// Package scanfile decodes the sectioned key/value documents exported by the
// diagnostic device.
//
// A document is a root element holding named <section> elements, each with
// ordered <entry key="..."> children. Keys are compared exactly; the device
// emits several near-duplicate keys and prefix or case-folded matching would
// pick the wrong value.
package scanfile

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// ErrNoSections reports a well-formed document with no sections.
var ErrNoSections = errors.New("scan document has no sections")

// Entry is one key/value pair.
type Entry struct {
	Key   string `xml:"key,attr"`
	Value string `xml:",chardata"`
}

// Section is a named group of entries.
type Section struct {
	Name    string  `xml:"name,attr"`
	Entries []Entry `xml:"entry"`
}

// Document is a decoded scan export.
type Document struct {
	XMLName  xml.Name
	Sections []Section `xml:"section"`
}

// Decode parses a document from r. Latin-1 and Windows-1252 declarations are
// transcoded to UTF-8.
func Decode(r io.Reader) (*Document, error) {
	decoder := xml.NewDecoder(r)
	decoder.CharsetReader = charsetReader
	var doc Document
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode scan document: %w", err)
	}
	if len(doc.Sections) == 0 {
		return nil, ErrNoSections
	}
	for i := range doc.Sections {
		for j := range doc.Sections[i].Entries {
			doc.Sections[i].Entries[j].Value = strings.TrimSpace(doc.Sections[i].Entries[j].Value)
		}
	}
	return &doc, nil
}

// ReadFile opens and decodes path.
func ReadFile(path string) (*Document, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open scan file: %w", err)
	}
	defer file.Close()
	return Decode(file)
}

func charsetReader(label string, input io.Reader) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "utf-8", "utf8", "us-ascii", "ascii":
		return input, nil
	case "iso-8859-1", "latin-1", "latin1", "l1":
		return charmap.ISO8859_1.NewDecoder().Reader(input), nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252.NewDecoder().Reader(input), nil
	default:
		return nil, fmt.Errorf("unsupported charset %q", label)
	}
}

// Section returns the first section named name.
func (d *Document) Section(name string) (*Section, bool) {
	for i := range d.Sections {
		if d.Sections[i].Name == name {
			return &d.Sections[i], true
		}
	}
	return nil, false
}

// Lookup returns the first non-empty value stored under key, scanning
// sections in document order.
func (d *Document) Lookup(key string) (string, bool) {
	for i := range d.Sections {
		if value, ok := d.Sections[i].Lookup(key); ok {
			return value, true
		}
	}
	return "", false
}

// Lookup returns the first non-empty value stored under key.
func (s *Section) Lookup(key string) (string, bool) {
	for _, entry := range s.Entries {
		if entry.Key == key && entry.Value != "" {
			return entry.Value, true
		}
	}
	return "", false
}
