package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"iclink/internal/audit"
	"iclink/internal/export"
	"iclink/internal/ledger"
	"iclink/internal/testsupport"
)

func TestRunCommandWritesOutputsAndLedger(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WriteScan(t, env.cfg.Paths.ScanDir, "00000001.xml", testsupport.GonzalezWooding())

	out, _, err := runCLI(t, env.configPath, "run")
	if err != nil {
		t.Fatalf("run: %v\n%s", err, out)
	}
	requireContains(t, out, "Training rows")
	requireContains(t, out, "exact")
	requireContains(t, out, "PASS")

	for _, name := range []string{export.TrainingFile, export.MatchedFile, export.UnmatchedFile, export.FailedFile} {
		if _, err := os.Stat(filepath.Join(env.cfg.Paths.OutputDir, name)); err != nil {
			t.Fatalf("expected %s: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(env.cfg.Paths.OutputDir, export.AuditDirName, export.AuditSummaryFile)); err != nil {
		t.Fatalf("expected audit summary: %v", err)
	}

	store, err := ledger.Open(env.cfg.Paths.LedgerPath)
	if err != nil {
		t.Fatalf("ledger.Open: %v", err)
	}
	runs, err := store.ListRuns(context.Background(), 0)
	_ = store.Close()
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 1 || runs[0].Training != 1 || runs[0].Trainable != 1 || !runs[0].GatesPassed {
		t.Fatalf("unexpected ledger runs: %+v", runs)
	}

	out, _, err = runCLI(t, env.configPath, "runs")
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	requireContains(t, out, runs[0].ID[:8])

	out, _, err = runCLI(t, env.configPath, "runs", "show", runs[0].ID[:8], "--decisions")
	if err != nil {
		t.Fatalf("runs show: %v", err)
	}
	requireContains(t, out, runs[0].ID)
	requireContains(t, out, "00000001.xml")
	requireContains(t, out, "Exact match")
}

func TestRunCommandGateFailureStillWritesOutputs(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithoutLedger())
	testsupport.WriteScan(t, env.cfg.Paths.ScanDir, "00000001.xml", testsupport.GonzalezWooding())
	testsupport.WriteScan(t, env.cfg.Paths.ScanDir, "00000003.xml", testsupport.GonzalezWooding())

	out, _, err := runCLI(t, env.configPath, "run")
	if !errors.Is(err, audit.ErrGateFailed) {
		t.Fatalf("expected gate failure, got %v", err)
	}
	requireContains(t, out, "FAIL")
	requireContains(t, out, "missing_ids=1")

	records, err := export.ReadRecords(filepath.Join(env.cfg.Paths.OutputDir, export.TrainingFile))
	if err != nil {
		t.Fatalf("ReadRecords: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected both scans in training table, got %d", len(records))
	}
	missing, err := export.ReadRecords(filepath.Join(env.cfg.Paths.OutputDir, export.AuditDirName, audit.TableMissingIDs+".csv"))
	if err != nil {
		t.Fatalf("read missing ids: %v", err)
	}
	if len(missing) != 1 || missing[0]["Missing_ID"] != "00000002" {
		t.Fatalf("unexpected missing ids: %v", missing)
	}
}

func TestAuditCommandRereadsOutputs(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithoutLedger())
	testsupport.WriteScan(t, env.cfg.Paths.ScanDir, "00000001.xml", testsupport.GonzalezWooding())

	if _, _, err := runCLI(t, env.configPath, "run"); err != nil {
		t.Fatalf("run: %v", err)
	}
	out, _, err := runCLI(t, env.configPath, "audit")
	if err != nil {
		t.Fatalf("audit: %v", err)
	}
	requireContains(t, out, "Audit of 1 scan files")
	requireContains(t, out, audit.TableDuplicateIDs)
	requireContains(t, out, "Reports written to")
}

func TestAuditCommandWithoutRun(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithoutLedger())
	if _, _, err := runCLI(t, env.configPath, "audit"); err == nil {
		t.Fatal("expected error when run outputs are missing")
	}
}

func TestMatchCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{
			name: "exact",
			args: []string{"Gonzalez-Wooding, Noah", "1999-05-02", "OD"},
			want: []string{"exact", "12.6", "420", "Exact match"},
		},
		{
			name: "eye mismatch noted",
			args: []string{"Gonzalez-Wooding, Noah", "1999-05-02", "OS"},
			want: []string{"Eye mismatch"},
		},
		{
			name: "no match",
			args: []string{"Ada Lovelace", "1815-12-10", "OD"},
			want: []string{"none", "No roster entry matched."},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := runCLI(t, env.configPath, append([]string{"match"}, tt.args...)...)
			if err != nil {
				t.Fatalf("match: %v", err)
			}
			for _, want := range tt.want {
				requireContains(t, out, want)
			}
		})
	}
}

func TestMatchCommandRequiresThreeArgs(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, env.configPath, "match", "Noah"); err == nil {
		t.Fatal("expected argument error")
	}
}

func TestInspectCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	path := testsupport.WriteScan(t, env.cfg.Paths.ScanDir, "00000001.xml", testsupport.GonzalezWooding())

	out, _, err := runCLI(t, env.configPath, "inspect", path)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	requireContains(t, out, "00000001.xml")
	requireContains(t, out, "1999-05-02")
	requireContains(t, out, "ACV")
	requireContains(t, out, "190")
}

func TestRunsRequiresLedger(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithoutLedger())
	_, _, err := runCLI(t, env.configPath, "runs")
	if err == nil {
		t.Fatal("expected error with ledger disabled")
	}
	requireContains(t, err.Error(), "ledger is disabled")
}

func TestRunsEmptyLedger(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, env.configPath, "runs")
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	requireContains(t, out, "No runs recorded")

	if _, _, err := runCLI(t, env.configPath, "runs", "show", "missing"); !errors.Is(err, ledger.ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

func TestConfigCommands(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env.configPath, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "[paths]")
	requireContains(t, out, env.cfg.Paths.ScanDir)

	out, _, err = runCLI(t, env.configPath, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")

	target := filepath.Join(t.TempDir(), "nested", "config.toml")
	out, _, err = runCLI(t, "", "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}
	if _, _, err := runCLI(t, "", "config", "init", "--path", target); err == nil {
		t.Fatal("expected refusal to overwrite existing config")
	}
}

func TestRunCommandPreflightFailure(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithoutLedger())
	if err := os.Remove(env.cfg.Paths.RosterFile); err != nil {
		t.Fatal(err)
	}
	_, _, err := runCLI(t, env.configPath, "run")
	if err == nil {
		t.Fatal("expected preflight failure")
	}
	requireContains(t, err.Error(), "preflight failed")
	if _, statErr := os.Stat(filepath.Join(env.cfg.Paths.OutputDir, export.TrainingFile)); !os.IsNotExist(statErr) {
		t.Fatalf("expected no outputs after preflight failure, stat err = %v", statErr)
	}
}
