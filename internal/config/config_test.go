package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"iclink/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	if want := filepath.Join(tempHome, "iclink", "output"); cfg.Paths.OutputDir != want {
		t.Fatalf("unexpected output dir: got %q want %q", cfg.Paths.OutputDir, want)
	}
	if want := filepath.Join(tempHome, ".local", "share", "iclink", "ledger.db"); cfg.Paths.LedgerPath != want {
		t.Fatalf("unexpected ledger path: got %q want %q", cfg.Paths.LedgerPath, want)
	}
	if cfg.Matching.FuzzyNameMin != 0.80 || cfg.Matching.FuzzyDOBMin != 0.90 {
		t.Fatalf("unexpected thresholds: %+v", cfg.Matching)
	}
	if cfg.Matching.DOBToleranceDays != 7 {
		t.Fatalf("unexpected dob tolerance: %d", cfg.Matching.DOBToleranceDays)
	}
	if got := cfg.Extraction.Keys["ACD_internal"]; got != "ACD (Int.) [mm]" {
		t.Fatalf("unexpected ACD key: %q", got)
	}
	if r := cfg.Ranges["Vault"]; r.Min != 50 || r.Max != 2000 {
		t.Fatalf("unexpected vault range: %+v", r)
	}
	if got := cfg.RequiredFeatures(); len(got) != 9 || got[0] != "Age" {
		t.Fatalf("unexpected required features: %v", got)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.OutputDir, cfg.Paths.LogDir, filepath.Dir(cfg.Paths.LedgerPath)} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "iclink.toml")

	type payload struct {
		Paths struct {
			ScanDir   string `toml:"scan_dir"`
			OutputDir string `toml:"output_dir"`
		} `toml:"paths"`
		Matching struct {
			DOBToleranceDays int        `toml:"dob_tolerance_days"`
			Spellings        [][]string `toml:"spellings"`
		} `toml:"matching"`
		Ranges map[string]config.Range `toml:"ranges"`
		Audit  struct {
			RequiredFeatures []string `toml:"required_features"`
		} `toml:"audit"`
	}
	var p payload
	p.Paths.ScanDir = filepath.Join(tempDir, "scans")
	p.Paths.OutputDir = filepath.Join(tempDir, "out")
	p.Matching.DOBToleranceDays = 3
	p.Matching.Spellings = [][]string{{"Katherine", "Catherine", "Katherine"}, {"Solo"}}
	p.Ranges = map[string]config.Range{"Vault": {Min: 100, Max: 1500}}
	p.Audit.RequiredFeatures = []string{"WTW", " ACV ", "WTW"}

	data, err := toml.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("unexpected resolution: %q exists=%v", resolved, exists)
	}
	if cfg.Paths.ScanDir != p.Paths.ScanDir {
		t.Fatalf("unexpected scan dir: %q", cfg.Paths.ScanDir)
	}
	if cfg.Matching.DOBToleranceDays != 3 {
		t.Fatalf("unexpected dob tolerance: %d", cfg.Matching.DOBToleranceDays)
	}
	if len(cfg.Matching.Spellings) != 1 || len(cfg.Matching.Spellings[0]) != 2 {
		t.Fatalf("expected single deduplicated spelling group, got %v", cfg.Matching.Spellings)
	}
	if r := cfg.Ranges["Vault"]; r.Min != 100 || r.Max != 1500 {
		t.Fatalf("expected vault override, got %+v", r)
	}
	if r, ok := cfg.Ranges["WTW"]; !ok || r.Min != 10 {
		t.Fatalf("expected default WTW range retained, got %+v", r)
	}
	if got := strings.Join(cfg.Audit.RequiredFeatures, ","); got != "WTW,ACV" {
		t.Fatalf("unexpected required features: %q", got)
	}
}

func TestLoadMovesFeatureBetweenKeyTables(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)
	configPath := filepath.Join(tempDir, "iclink.toml")
	content := "[extraction.keys]\nWTW = \"Cornea Dia Horizontal\"\n"
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if got := cfg.Extraction.Keys["WTW"]; got != "Cornea Dia Horizontal" {
		t.Fatalf("expected WTW in general keys, got %q", got)
	}
	if _, ok := cfg.Extraction.TestKeys["WTW"]; ok {
		t.Fatal("expected WTW removed from test keys")
	}
	defaults := config.Default()
	if got := cfg.Extraction.TestKeys["CCT"]; got != defaults.Extraction.TestKeys["CCT"] {
		t.Fatalf("expected default CCT test key, got %q", got)
	}
	if got := cfg.Extraction.Keys["ACV"]; got != defaults.Extraction.Keys["ACV"] {
		t.Fatalf("expected default ACV key, got %q", got)
	}
}

func TestLoadRejectsUnknownRequiredFeature(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)
	configPath := filepath.Join(tempDir, "iclink.toml")
	content := "[audit]\nrequired_features = [\"ICL_power\"]\n"
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	_, _, _, err := config.Load(configPath)
	if err == nil || !strings.Contains(err.Error(), "ICL_power") {
		t.Fatalf("expected required feature error, got %v", err)
	}
}

func TestOutputDirEnvOverride(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)
	override := filepath.Join(tempDir, "elsewhere")
	t.Setenv("ICLINK_OUTPUT_DIR", override)

	cfg, _, _, err := config.Load(filepath.Join(tempDir, "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Paths.OutputDir != override {
		t.Fatalf("expected env override %q, got %q", override, cfg.Paths.OutputDir)
	}
}

func TestCreateSample(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("HOME", tempDir)
	path := filepath.Join(tempDir, "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "[extraction.keys]") {
		t.Fatal("sample config missing extraction keys section")
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("sample config does not load: %v", err)
	}
	if !exists {
		t.Fatal("expected sample config to exist")
	}
	defaults := config.Default()
	if got, want := cfg.Extraction.Keys["ACA_global"], defaults.Extraction.Keys["ACA_global"]; got != want {
		t.Fatalf("sample ACA key %q differs from default %q", got, want)
	}
	if len(cfg.Matching.Spellings) != len(defaults.Matching.Spellings) {
		t.Fatalf("sample spellings differ from defaults: %v", cfg.Matching.Spellings)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"name threshold", func(c *config.Config) { c.Matching.FuzzyNameMin = 1.2 }, "fuzzy_name_min"},
		{"dob threshold", func(c *config.Config) { c.Matching.FuzzyDOBMin = 0 }, "fuzzy_dob_min"},
		{"tolerance", func(c *config.Config) { c.Matching.DOBToleranceDays = 0 }, "dob_tolerance_days"},
		{"spelling overlap", func(c *config.Config) {
			c.Matching.Spellings = append(c.Matching.Spellings, []string{"Jon", "Jonny"})
		}, "more than one group"},
		{"patient section", func(c *config.Config) { c.Extraction.PatientSection = "" }, "patient_section"},
		{"inverted range", func(c *config.Config) { c.Ranges["WTW"] = config.Range{Min: 14, Max: 10} }, "ranges.WTW"},
		{"required features", func(c *config.Config) { c.Audit.RequiredFeatures = nil }, "required_features"},
		{"feature mapped twice", func(c *config.Config) { c.Extraction.Keys["WTW"] = "WTW" }, "both"},
		{"unknown scan feature", func(c *config.Config) { c.Extraction.Keys["Lens_Size"] = "Lens" }, "not read from scans"},
		{"unknown required feature", func(c *config.Config) {
			c.Audit.RequiredFeatures = []string{"WTW", "ICL_power"}
		}, `"ICL_power" is not a training column`},
		{"log level", func(c *config.Config) { c.Logging.Level = "loud" }, "logging.level"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}

	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}
