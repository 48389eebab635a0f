package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"abyss/internal/market"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadValidConfig(t *testing.T) {
	path := writeConfig(t, `
[data]
source = "tdx"
tdx_dir = "testdata/day"
universe = ["sh600000", "sz000001"]

[daily]
min_drop_percent = 0.5
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Daily.MinDropPercent != 0.5 {
		t.Errorf("daily.min_drop_percent = %v, want file override 0.5", cfg.Daily.MinDropPercent)
	}
	// 未覆盖的键保持默认值。
	if cfg.Daily.LongTermWindow != 400 {
		t.Errorf("daily.long_term_window = %d, want default 400", cfg.Daily.LongTermWindow)
	}
	if cfg.Weekly.LongTermWindow != 80 {
		t.Errorf("weekly.long_term_window = %d, want default 80", cfg.Weekly.LongTermWindow)
	}
	if cfg.Scan.Period != market.PeriodDaily {
		t.Errorf("scan.period = %s, want daily default", cfg.Scan.Period)
	}
	if got := cfg.ActiveThresholds().Period; got != market.PeriodDaily {
		t.Errorf("active thresholds period = %s", got)
	}
}

func TestLoadMissingFileFailsValidation(t *testing.T) {
	// 默认配置没有标的池，必须在启动期报错而不是带病运行。
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err == nil {
		t.Fatal("expected error without a universe")
	}
	if !strings.Contains(err.Error(), "universe") {
		t.Errorf("error = %v, want universe complaint", err)
	}
}

func TestLoadRejectsInvalidThresholds(t *testing.T) {
	path := writeConfig(t, `
[data]
tdx_dir = "testdata/day"
universe = ["sh600000"]

[daily]
min_drop_percent = 1.5
`)
	_, err := Load(path)
	if err == nil {
		t.Fatal("invalid threshold accepted")
	}
	if !strings.Contains(err.Error(), "min_drop_percent") {
		t.Errorf("error = %v", err)
	}
}

func TestLoadForcesThresholdPeriods(t *testing.T) {
	// 配置段决定周期标签，文件里写反也不接受。
	path := writeConfig(t, `
[data]
tdx_dir = "testdata/day"
universe = ["sh600000"]

[daily]
period = "weekly"

[scan]
period = "weekly"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Daily.Period != market.PeriodDaily {
		t.Errorf("daily.period = %s, want forced daily", cfg.Daily.Period)
	}
	if got := cfg.ActiveThresholds().Period; got != market.PeriodWeekly {
		t.Errorf("active thresholds = %s, want weekly set", got)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("ABYSS_DB_PATH", "/tmp/override.db")
	t.Setenv("ABYSS_TDX_DIR", "/tmp/day")
	path := writeConfig(t, `
[data]
universe = ["sh600000"]
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Store.Path != "/tmp/override.db" {
		t.Errorf("store.path = %s", cfg.Store.Path)
	}
	if cfg.Data.TDXDir != "/tmp/day" {
		t.Errorf("data.tdx_dir = %s", cfg.Data.TDXDir)
	}
}

func TestResolveUniverseMergesFile(t *testing.T) {
	dir := t.TempDir()
	listPath := filepath.Join(dir, "universe.txt")
	content := "# 沪市\nsh600000\n\nsh600036\n# 深市\nsz000001\n"
	if err := os.WriteFile(listPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := Default()
	cfg.Data.Universe = []string{"sh600519"}
	cfg.Data.UniverseFile = listPath

	got, err := cfg.ResolveUniverse()
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"sh600519", "sh600000", "sh600036", "sz000001"}
	if len(got) != len(want) {
		t.Fatalf("universe = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("universe[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestResolveUniverseEmpty(t *testing.T) {
	cfg := Default()
	if _, err := cfg.ResolveUniverse(); err == nil {
		t.Error("empty universe accepted")
	}
}

func TestValidateRejectsBadSource(t *testing.T) {
	cfg := Default()
	cfg.Data.Universe = []string{"sh600000"}
	cfg.Data.Source = "csv"
	if err := cfg.Validate(); err == nil {
		t.Error("unknown source accepted")
	}
}
