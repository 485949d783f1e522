package export

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"iclink/internal/audit"
	"iclink/internal/linkage"
	"iclink/internal/logging"
	"iclink/internal/testsupport"
)

func runScenario(t *testing.T) (*linkage.Result, string) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	testsupport.WriteRoster(t, cfg.Paths.RosterFile,
		testsupport.RosterRow{
			Name: "Gonzalez-Wooding, Noah", DOB: "1999-05-02", Eye: "OD",
			Sphere: "-8.00", Cyl: "-1.50", ICLPower: "-9.5", ICLSize: "12.1", Vault: "300",
			Exchange: "Yes", ExchangedSize: "12.6", ExchangedVault: "420", ExchangedPower: "-9.0",
		},
	)
	testsupport.WriteScan(t, cfg.Paths.ScanDir, "00000001.xml", testsupport.GonzalezWooding())
	stranger := testsupport.GonzalezWooding()
	stranger.Name, stranger.Surname = "Ada", "Lovelace"
	testsupport.WriteScan(t, cfg.Paths.ScanDir, "00000002.xml", stranger)
	testsupport.WriteText(t, filepath.Join(cfg.Paths.ScanDir, "00000003.xml"), "not xml")

	comps, err := linkage.NewComponents(cfg)
	if err != nil {
		t.Fatal(err)
	}
	idx, err := comps.LoadIndex(cfg.Paths.RosterFile)
	if err != nil {
		t.Fatal(err)
	}
	p, err := linkage.NewFromComponents(comps, idx, logging.NewNop(), linkage.Options{})
	if err != nil {
		t.Fatal(err)
	}
	paths, err := linkage.ListScanFiles(cfg.Paths.ScanDir, ".xml")
	if err != nil {
		t.Fatal(err)
	}
	result, err := p.Run(context.Background(), paths)
	if err != nil {
		t.Fatal(err)
	}
	return result, cfg.Paths.ScanDir
}

func TestWriteRunTables(t *testing.T) {
	result, _ := runScenario(t)
	ws, err := Open(filepath.Join(t.TempDir(), "out"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer ws.Close()

	if err := ws.WriteRun(result); err != nil {
		t.Fatalf("WriteRun: %v", err)
	}

	training, err := ReadRecords(ws.Path(TrainingFile))
	if err != nil {
		t.Fatal(err)
	}
	if len(training) != 1 {
		t.Fatalf("expected one training row, got %d", len(training))
	}
	row := training[0]
	checks := map[string]string{
		"XML_File":       "00000001.xml",
		"Name":           "Gonzalez-Wooding Noah",
		"Eye":            "OD",
		"Lens_Size":      "12.6",
		"Vault":          "420",
		"ICL_Power":      "-9",
		"SEQ":            "-8.75",
		"Exchange":       "Yes",
		"Match_Strategy": "exact",
		"Match_Note":     "Exact match",
		"CCT":            "540",
	}
	for col, want := range checks {
		if row[col] != want {
			t.Errorf("%s = %q, want %q", col, row[col], want)
		}
	}
	if !strings.HasPrefix(row["AC_shape_ratio"], "61.29") {
		t.Errorf("AC_shape_ratio = %q", row["AC_shape_ratio"])
	}

	matched, err := ReadRecords(ws.Path(MatchedFile))
	if err != nil {
		t.Fatal(err)
	}
	if len(matched) != 1 || matched[0]["Original_Vault"] != "300" || matched[0]["Exchanged_Vault"] != "420" || matched[0]["Roster_Line"] != "2" {
		t.Fatalf("unexpected matched rows %v", matched)
	}

	unmatched, err := ReadRecords(ws.Path(UnmatchedFile))
	if err != nil {
		t.Fatal(err)
	}
	if len(unmatched) != 1 || unmatched[0]["XML_File"] != "00000002.xml" || unmatched[0]["Raw_Name"] != "Lovelace Ada" {
		t.Fatalf("unexpected unmatched rows %v", unmatched)
	}

	failed, err := ReadRecords(ws.Path(FailedFile))
	if err != nil {
		t.Fatal(err)
	}
	if len(failed) != 1 || failed[0]["XML_File"] != "00000003.xml" || failed[0]["Reason"] == "" {
		t.Fatalf("unexpected failed rows %v", failed)
	}
}

func TestAuditFromDiskMatchesInMemory(t *testing.T) {
	result, scanDir := runScenario(t)
	ws, err := Open(filepath.Join(t.TempDir(), "out"))
	if err != nil {
		t.Fatal(err)
	}
	defer ws.Close()
	if err := ws.WriteRun(result); err != nil {
		t.Fatal(err)
	}

	auditor := audit.New(audit.Features{"WTW", "ACV", "AC_shape_ratio"}, audit.DefaultOptions(), logging.NewNop())
	inMemory, err := auditor.Run(context.Background(), scanDir, Outputs(result))
	if err != nil {
		t.Fatal(err)
	}
	outputs, err := LoadOutputs(ws.Dir())
	if err != nil {
		t.Fatal(err)
	}
	fromDisk, err := auditor.Run(context.Background(), scanDir, outputs)
	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(inMemory.Counts(), fromDisk.Counts()) {
		t.Fatalf("counts differ: %v vs %v", inMemory.Counts(), fromDisk.Counts())
	}
	if inMemory.Trainable != fromDisk.Trainable || inMemory.Trainable.Complete != 1 {
		t.Fatalf("trainability differs: %+v vs %+v", inMemory.Trainable, fromDisk.Trainable)
	}
	if got := strings.Join(fromDisk.Table(audit.TableUnmatchedScans).Column(audit.ColumnFile), ","); got != "00000002.xml,00000003.xml" {
		t.Fatalf("unmatched = %q", got)
	}
}

func TestWriteAudit(t *testing.T) {
	result, scanDir := runScenario(t)
	ws, err := Open(filepath.Join(t.TempDir(), "out"))
	if err != nil {
		t.Fatal(err)
	}
	defer ws.Close()

	auditor := audit.New(audit.Features{"WTW", "BAD_D"}, audit.DefaultOptions(), logging.NewNop())
	report, err := auditor.Run(context.Background(), scanDir, Outputs(result))
	if err != nil {
		t.Fatal(err)
	}
	verdicts := audit.Gates(report, 0)
	if err := ws.WriteAudit(result.RunID, report, verdicts); err != nil {
		t.Fatalf("WriteAudit: %v", err)
	}

	for _, name := range audit.TableNames() {
		data, err := os.ReadFile(filepath.Join(ws.AuditDir(), name+".csv"))
		if err != nil {
			t.Fatalf("expected %s.csv: %v", name, err)
		}
		if len(strings.TrimSpace(string(data))) == 0 {
			t.Fatalf("%s.csv has no header", name)
		}
	}

	data, err := os.ReadFile(filepath.Join(ws.AuditDir(), AuditSummaryFile))
	if err != nil {
		t.Fatal(err)
	}
	var summary AuditSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if summary.RunID != result.RunID || summary.Sources != 3 || len(summary.Gates) != 2 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if summary.Tables[audit.TableFailedExtractions] != 2 {
		t.Fatalf("unexpected table counts %v", summary.Tables)
	}
	for _, g := range summary.Gates {
		if !g.Passed || g.Error != "" {
			t.Fatalf("unexpected gate failure %+v", g)
		}
	}
	if summary.Trainable.Complete != 1 || summary.RequiredFeatures[1] != "BAD_D" {
		t.Fatalf("unexpected trainability %+v %v", summary.Trainable, summary.RequiredFeatures)
	}
}

func TestOpenLocksOutputDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	first, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Open(dir); !errors.Is(err, ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatal(err)
	}
	second, err := Open(dir)
	if err != nil {
		t.Fatalf("expected lock to be released: %v", err)
	}
	_ = second.Close()
}

func TestLoadOutputsMissingTable(t *testing.T) {
	if _, err := LoadOutputs(t.TempDir()); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}
