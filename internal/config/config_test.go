package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeConfig(t *testing.T, content string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return dir, path
}

func TestLoad(t *testing.T) {
	_, path := writeConfig(t, `
extract:
  output_dir: "/tmp/images"
  formats: ["png", "jpg"]
  recursive: true
  no_overwrite: true
epub:
  cover_only: true
  cover_fallback: true
  author: "Herbert"
server:
  host: "127.0.0.1"
  port: 9000
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Extract.OutputDir != "/tmp/images" || !cfg.Extract.Recursive || !cfg.Extract.NoOverwrite {
		t.Errorf("unexpected extract config: %+v", cfg.Extract)
	}
	if !reflect.DeepEqual(cfg.Extract.Formats, []string{"png", "jpg"}) {
		t.Errorf("formats = %v", cfg.Extract.Formats)
	}
	if !cfg.EPUB.CoverOnly || !cfg.EPUB.CoverFallback || cfg.EPUB.Author != "Herbert" || cfg.EPUB.Title != "" {
		t.Errorf("unexpected epub config: %+v", cfg.EPUB)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.History.Enabled {
		t.Error("history should default to disabled")
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
}

func TestLoad_debugTrue(t *testing.T) {
	_, path := writeConfig(t, "debug: true\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Debug {
		t.Error("debug should be true when set in config")
	}
}

func TestLoad_invalidYAML(t *testing.T) {
	_, path := writeConfig(t, "extract: [unclosed\n")
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestLoad_expandPathDotSlashRelativeToConfigDir(t *testing.T) {
	dir, path := writeConfig(t, `
extract:
  output_dir: "./images"
history:
  enabled: true
  database_path: "./data/history.db"
watch:
  directories: ["./inbox"]
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(dir, "images"); cfg.Extract.OutputDir != want {
		t.Errorf("output_dir = %s, want %s", cfg.Extract.OutputDir, want)
	}
	if want := filepath.Join(dir, "data", "history.db"); cfg.History.DatabasePath != want {
		t.Errorf("database_path = %s, want %s", cfg.History.DatabasePath, want)
	}
	if len(cfg.Watch.Directories) != 1 || cfg.Watch.Directories[0] != filepath.Join(dir, "inbox") {
		t.Errorf("watch directories = %v", cfg.Watch.Directories)
	}
	if !cfg.Watch.RecursiveOrDefault() {
		t.Error("watch should default to recursive")
	}
}

func TestLoad_unsetOutputDirStaysWorkingDirectory(t *testing.T) {
	_, path := writeConfig(t, "debug: false\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Extract.OutputDir != "." {
		t.Errorf("output_dir = %q, want \".\"", cfg.Extract.OutputDir)
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Default()
	if cfg.Extract.OutputDir != "." {
		t.Errorf("default output dir: got %s", cfg.Extract.OutputDir)
	}
	if len(cfg.Extract.Formats) != 0 {
		t.Errorf("formats should default to the whitelist (empty), got %v", cfg.Extract.Formats)
	}
	if cfg.Server.Host != "localhost" || cfg.Server.Port != 8080 {
		t.Errorf("default server: got %+v", cfg.Server)
	}
	if cfg.History.DatabasePath == "" {
		t.Error("history database path should have a default")
	}
	if cfg.Watch.Recursive != nil {
		t.Error("recursive should stay unset without watch directories")
	}
}

func TestApplyDefaults_WatchRecursiveWhenDirectoriesSet(t *testing.T) {
	cfg := &Config{Watch: WatchConfig{Directories: []string{"/tmp/docs"}}}
	ApplyDefaults(cfg)
	if cfg.Watch.Recursive == nil || !*cfg.Watch.Recursive {
		t.Error("recursive should default to true when directories are set")
	}
}

func TestWatchConfig_RecursiveOrDefault(t *testing.T) {
	t.Run("nil_returns_true", func(t *testing.T) {
		w := &WatchConfig{}
		if got := w.RecursiveOrDefault(); !got {
			t.Errorf("RecursiveOrDefault() = %v, want true", got)
		}
	})
	t.Run("false_returns_false", func(t *testing.T) {
		f := false
		w := &WatchConfig{Recursive: &f}
		if got := w.RecursiveOrDefault(); got {
			t.Errorf("RecursiveOrDefault() = %v, want false", got)
		}
	})
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "saved.yaml")
	cfg := &Config{
		Server:  ServerConfig{Host: "localhost", Port: 9090},
		History: HistoryConfig{Enabled: true, DatabasePath: "/tmp/history.db"},
		Watch:   WatchConfig{Directories: []string{"/tmp/inbox"}},
	}
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Server.Port != 9090 || !loaded.History.Enabled {
		t.Errorf("loaded = %+v", loaded)
	}
	if !reflect.DeepEqual(loaded.Watch.Directories, []string{"/tmp/inbox"}) {
		t.Errorf("watch directories = %v", loaded.Watch.Directories)
	}
}
