package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestInit(t *testing.T) {
	tmp := t.TempDir()
	home := filepath.Join(tmp, ".metamagic")

	if err := Init(home, false); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(home, "config.yaml")); err != nil {
		t.Error("expected config.yaml to exist")
	}

	// Second init should fail without force
	if err := Init(home, false); err == nil {
		t.Error("expected error on duplicate init")
	}

	// Force should succeed
	if err := Init(home, true); err != nil {
		t.Errorf("expected force init to succeed: %v", err)
	}
}

func TestLoad(t *testing.T) {
	tmp := t.TempDir()
	home := filepath.Join(tmp, ".metamagic")
	Init(home, false)

	s, err := Load(home)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if s.Home != home {
		t.Errorf("expected Home=%s, got %s", home, s.Home)
	}
	if s.Config.Metadata.Dir != "./metadata" {
		t.Errorf("metadata.dir = %s, want ./metadata", s.Config.Metadata.Dir)
	}
}

func TestLoad_Missing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Error("expected error loading a missing home")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	home := t.TempDir()
	os.WriteFile(filepath.Join(home, "config.yaml"), []byte("metadata: [unclosed\n"), 0644)
	if _, err := Load(home); err == nil {
		t.Error("expected error for invalid YAML")
	}
	if _, err := LoadOrDefault(home); err == nil {
		t.Error("LoadOrDefault should still report invalid YAML")
	}
}

func TestLoadOrDefault(t *testing.T) {
	home := filepath.Join(t.TempDir(), "never-initialized")
	s, err := LoadOrDefault(home)
	if err != nil {
		t.Fatalf("LoadOrDefault: %v", err)
	}
	if s.Config != DefaultConfig() {
		t.Errorf("expected defaults, got %+v", s.Config)
	}
	if _, err := os.Stat(home); err == nil {
		t.Error("LoadOrDefault must not create the home directory")
	}
}

func TestPath(t *testing.T) {
	s := &Store{Home: "/tmp/.metamagic"}
	got := s.Path("config.yaml")
	want := filepath.Join("/tmp/.metamagic", "config.yaml")
	if got != want {
		t.Errorf("Path() = %s, want %s", got, want)
	}
}

func TestHomeEnvVar(t *testing.T) {
	t.Setenv("METAMAGIC_HOME", "/custom/path")
	if got := Home(); got != "/custom/path" {
		t.Errorf("Home() = %s, want /custom/path", got)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Metadata.Device != "1fc0c10b0a534202" {
		t.Errorf("unexpected default device %s", cfg.Metadata.Device)
	}
	if cfg.Fixture.Path != "test_file.json" {
		t.Errorf("unexpected default fixture path %s", cfg.Fixture.Path)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("unexpected default log level %s", cfg.Log.Level)
	}
}

func TestLoadMergesDefaults(t *testing.T) {
	tmp := t.TempDir()
	home := filepath.Join(tmp, ".metamagic")
	Init(home, false)

	os.WriteFile(filepath.Join(home, "config.yaml"), []byte("version: \"1\"\nmetadata:\n  dir: /data/meta\n"), 0644)

	s, err := Load(home)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if s.Config.Metadata.Dir != "/data/meta" {
		t.Errorf("expected configured dir, got %s", s.Config.Metadata.Dir)
	}
	if s.Config.Metadata.Device != "1fc0c10b0a534202" {
		t.Errorf("expected default device, got %s", s.Config.Metadata.Device)
	}
	if s.Config.Fixture.Path != "test_file.json" {
		t.Errorf("expected default fixture path, got %s", s.Config.Fixture.Path)
	}
}

func TestSetConfigValue(t *testing.T) {
	tmp := t.TempDir()
	home := filepath.Join(tmp, ".metamagic")
	Init(home, false)
	s, _ := Load(home)

	if err := s.SetConfigValue("metadata.device", "abc123"); err != nil {
		t.Fatal(err)
	}
	if got, _ := s.GetConfigValue("metadata.device"); got != "abc123" {
		t.Errorf("expected updated device, got %s", got)
	}

	// Reload and verify persistence
	s2, _ := Load(home)
	if s2.Config.Metadata.Device != "abc123" {
		t.Errorf("config not persisted, got %s", s2.Config.Metadata.Device)
	}
}

func TestSetConfigValue_CreatesHome(t *testing.T) {
	home := filepath.Join(t.TempDir(), "fresh")
	s, _ := LoadOrDefault(home)
	if err := s.SetConfigValue("log.level", "debug"); err != nil {
		t.Fatalf("SetConfigValue: %v", err)
	}
	if _, err := os.Stat(filepath.Join(home, "config.yaml")); err != nil {
		t.Error("expected config.yaml to be written")
	}
}

func TestSetConfigValue_Invalid(t *testing.T) {
	tmp := t.TempDir()
	home := filepath.Join(tmp, ".metamagic")
	Init(home, false)
	s, _ := Load(home)

	cases := []struct{ key, value string }{
		{"nonexistent.key", "value"},
		{"log.level", "loud"},
		{"metadata.dir", "  "},
		{"fixture.path", ""},
	}
	for _, tc := range cases {
		if err := s.SetConfigValue(tc.key, tc.value); err == nil {
			t.Errorf("SetConfigValue(%q, %q): expected error", tc.key, tc.value)
		}
	}
	if _, err := s.GetConfigValue("nope"); err == nil {
		t.Error("expected error for unknown key")
	}
}

func TestCheckHealth(t *testing.T) {
	tmp := t.TempDir()
	home := filepath.Join(tmp, ".metamagic")
	Init(home, false)

	if issues := CheckHealth(home); len(issues) != 0 {
		t.Errorf("expected no issues, got %v", issues)
	}

	os.WriteFile(filepath.Join(home, "config.yaml"), []byte("log:\n  level: shouty\n"), 0644)
	issues := CheckHealth(home)
	if len(issues) != 1 || issues[0].Severity != "warning" {
		t.Errorf("expected one warning for bad log level, got %v", issues)
	}

	os.Remove(filepath.Join(home, "config.yaml"))
	issues = CheckHealth(home)
	if len(issues) == 0 {
		t.Error("expected issues after removing config.yaml")
	}
}

func TestCheckMetadata(t *testing.T) {
	dir := t.TempDir()
	good := `{"fps":10,"format":"video/mp4","res_y":1,"res_x":1,"capture_start":1,"logger_id":"l","device_id":"d","tick":0}`
	os.WriteFile(filepath.Join(dir, "good.json"), []byte(good), 0644)
	os.WriteFile(filepath.Join(dir, "bad.json"), []byte("nope"), 0644)

	issues := CheckMetadata(dir)
	if len(issues) != 1 {
		t.Fatalf("expected 1 issue, got %v", issues)
	}
	if !strings.Contains(issues[0].Message, "bad.json") {
		t.Errorf("issue should name the file: %s", issues[0].Message)
	}

	issues = CheckMetadata(filepath.Join(dir, "missing"))
	if len(issues) != 1 || issues[0].Severity != "error" {
		t.Errorf("expected one error for missing dir, got %v", issues)
	}
}

func TestFixIssues(t *testing.T) {
	tmp := t.TempDir()
	home := filepath.Join(tmp, ".metamagic")
	Init(home, false)

	os.Remove(filepath.Join(home, "config.yaml"))

	fixed := FixIssues(home)
	if len(fixed) == 0 {
		t.Error("expected at least one fix")
	}
	if _, err := os.Stat(filepath.Join(home, "config.yaml")); err != nil {
		t.Error("config.yaml not recreated")
	}
}
