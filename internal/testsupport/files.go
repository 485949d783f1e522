package testsupport

import (
	"encoding/csv"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
)

// Scan describes a scan export fixture. Test holds entries of the
// eye-specific test section; Overview holds entries of a trailing
// device-wide section.
type Scan struct {
	Name     string
	Surname  string
	DOB      string
	Eye      string
	ExamDate string
	Test     map[string]string
	Overview map[string]string
}

// GonzalezWooding is the canonical fully-featured right-eye scan.
func GonzalezWooding() Scan {
	return Scan{
		Name:     "Noah",
		Surname:  "Gonzalez-Wooding",
		DOB:      "1999-05-02",
		Eye:      "OD",
		ExamDate: "2023-01-05",
		Test: map[string]string{
			"Cornea Dia Horizontal":     "11.8",
			"SimK steep D":              "44.2",
			"Central Corneal Thickness": "540",
			"Pupil diameter mm":         "4.1",
		},
		Overview: map[string]string{
			"ACV":                          "190",
			"ACD (Int.) [mm]":              "3.1",
			"ACA (180°) [°]":               "38.5",
			"TCRP 3mm zone pupil Km [D]":   "43.9",
			"TCRP 3mm zone pupil Asti [D]": "1.2",
			"BAD D":                        "0.8",
		},
	}
}

// XML renders the scan as a device export document.
func (s Scan) XML() string {
	var b strings.Builder
	b.WriteString("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n<configuration>\n")
	b.WriteString("  <section name=\"Patient Data\">\n")
	writeEntry(&b, "Name", s.Name)
	writeEntry(&b, "Surname", s.Surname)
	writeEntry(&b, "DOB", s.DOB)
	b.WriteString("  </section>\n")
	fmt.Fprintf(&b, "  <section name=\"Test Data %s\">\n", s.Eye)
	writeEntry(&b, "Eye", s.Eye)
	writeEntry(&b, "Test Date", s.ExamDate)
	writeEntries(&b, s.Test)
	b.WriteString("  </section>\n")
	if len(s.Overview) > 0 {
		b.WriteString("  <section name=\"General Overview\">\n")
		writeEntries(&b, s.Overview)
		b.WriteString("  </section>\n")
	}
	b.WriteString("</configuration>\n")
	return b.String()
}

func writeEntries(b *strings.Builder, entries map[string]string) {
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		writeEntry(b, k, entries[k])
	}
}

func writeEntry(b *strings.Builder, key, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(b, "    <entry key=\"%s\">%s</entry>\n", html.EscapeString(key), html.EscapeString(value))
}

// WriteScan writes scan to dir/name and returns the path.
func WriteScan(t testing.TB, dir, name string, scan Scan) string {
	t.Helper()
	return WriteText(t, filepath.Join(dir, name), scan.XML())
}

// WriteText writes content to path, creating parent directories.
func WriteText(t testing.TB, path, content string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// RosterHeader is the default roster column order.
var RosterHeader = []string{
	"NAME", "DOB", "Eye", "Sphere", "Cyl", "ICL Power", "ICL Size", "Vault",
	"Exchange?", "Exchanged Size", "Exchanged Vault", "Exchanged Power", "DOS", "Target",
}

// RosterRow is one fixture roster line; unset fields are written empty.
type RosterRow struct {
	Name, DOB, Eye, Sphere, Cyl, ICLPower, ICLSize, Vault   string
	Exchange, ExchangedSize, ExchangedVault, ExchangedPower string
	DOS, Target                                             string
}

func (r RosterRow) record() []string {
	return []string{
		r.Name, r.DOB, r.Eye, r.Sphere, r.Cyl, r.ICLPower, r.ICLSize, r.Vault,
		r.Exchange, r.ExchangedSize, r.ExchangedVault, r.ExchangedPower, r.DOS, r.Target,
	}
}

// WriteRoster writes rows under RosterHeader to path.
func WriteRoster(t testing.TB, path string, rows ...RosterRow) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := w.Write(RosterHeader); err != nil {
		t.Fatalf("write roster header: %v", err)
	}
	for _, row := range rows {
		if err := w.Write(row.record()); err != nil {
			t.Fatalf("write roster row: %v", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		t.Fatalf("flush roster: %v", err)
	}
	return path
}
