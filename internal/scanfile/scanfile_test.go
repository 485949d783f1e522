package scanfile

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleDoc = `<?xml version="1.0" ?>
<configuration>
  <section name="Patient Data">
    <entry key="Name">Noah</entry>
    <entry key="Surname">Gonzalez-Wooding</entry>
    <entry key="DOB">1999-05-02</entry>
  </section>
  <section name="Test Data OD">
    <entry key="Eye">OD</entry>
    <entry key="ACD (Int.) [mm]"></entry>
    <entry key="ACD [mm]">3.4</entry>
  </section>
  <section name="General Overview">
    <entry key="ACD (Int.) [mm]">
      3.1
    </entry>
    <entry key="ACA (180°) [°]">38.2</entry>
  </section>
</configuration>
`

func TestDecodeAndLookup(t *testing.T) {
	doc, err := Decode(strings.NewReader(sampleDoc))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(doc.Sections) != 3 {
		t.Fatalf("expected 3 sections, got %d", len(doc.Sections))
	}
	patient, ok := doc.Section("Patient Data")
	if !ok {
		t.Fatal("expected patient section")
	}
	if v, _ := patient.Lookup("Surname"); v != "Gonzalez-Wooding" {
		t.Fatalf("unexpected surname %q", v)
	}
	if v, ok := doc.Lookup("ACD (Int.) [mm]"); !ok || v != "3.1" {
		t.Fatalf("expected first non-empty exact key value 3.1, got %q", v)
	}
	if v, ok := doc.Lookup("ACA (180°) [°]"); !ok || v != "38.2" {
		t.Fatalf("unexpected ACA value %q", v)
	}
	if _, ok := doc.Lookup("acd (int.) [mm]"); ok {
		t.Fatal("lookup must be case sensitive")
	}
	if _, ok := doc.Section("Missing"); ok {
		t.Fatal("unexpected section")
	}
}

func TestDecodeLatin1(t *testing.T) {
	raw := "<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?><configuration><section name=\"Patient Data\"><entry key=\"Name\">Jos\xe9</entry></section></configuration>"
	doc, err := Decode(strings.NewReader(raw))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if v, _ := doc.Lookup("Name"); v != "José" {
		t.Fatalf("expected transcoded name, got %q", v)
	}
}

func TestDecodeErrors(t *testing.T) {
	if _, err := Decode(strings.NewReader("<configuration></configuration>")); !errors.Is(err, ErrNoSections) {
		t.Fatalf("expected ErrNoSections, got %v", err)
	}
	if _, err := Decode(strings.NewReader("<configuration><section")); err == nil {
		t.Fatal("expected malformed document error")
	}
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "00000001.xml")
	if err := os.WriteFile(path, []byte(sampleDoc), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := ReadFile(path); err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if _, err := ReadFile(filepath.Join(t.TempDir(), "missing.xml")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}
