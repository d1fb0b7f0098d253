package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/westonwestenborg/VoiceToObsidian-sub001/internal/logging"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	if cfg.Logging.Level != "info" {
		t.Errorf("default log level = %q", cfg.Logging.Level)
	}
	if cfg.LLM.Provider != "" {
		t.Errorf("LLM provider should start unconfigured, got %q", cfg.LLM.Provider)
	}
	if cfg.STT.Provider != "" {
		t.Errorf("STT provider should start unconfigured, got %q", cfg.STT.Provider)
	}
}

func TestLogLevelMapping(t *testing.T) {
	tests := []struct {
		name string
		want int
	}{
		{"fatal", logging.LevelFatal},
		{"error", logging.LevelError},
		{"warn", logging.LevelWarn},
		{"info", logging.LevelInfo},
		{"debug", logging.LevelDebug},
		{"", logging.LevelInfo},
		{"nonsense", logging.LevelInfo},
	}
	for _, tt := range tests {
		cfg := &Config{Logging: LoggingConfig{Level: tt.name}}
		if got := cfg.LogLevel(); got != tt.want {
			t.Errorf("LogLevel(%q) = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "voicenote.json")

	cfg := Default()
	cfg.Logging.Level = "debug"
	cfg.LLM.Provider = "anthropic"
	cfg.LLM.Model = "claude-sonnet-4-5"
	cfg.LLM.CustomWords = []string{"Obsidian", "Kubernetes"}
	if err := cfg.Save(path); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	loaded := Default()
	if err := json.Unmarshal(data, loaded); err != nil {
		t.Fatal(err)
	}
	if loaded.Logging.Level != "debug" || loaded.LLM.Provider != "anthropic" {
		t.Errorf("round trip lost fields: %+v", loaded)
	}
	if len(loaded.LLM.CustomWords) != 2 {
		t.Errorf("CustomWords = %v", loaded.LLM.CustomWords)
	}
}

func TestBackupRotation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.json")

	// Five saves with maxBackups 3 should leave .bak, .bak.1, .bak.2
	// holding the three most recent previous versions.
	for i := 0; i < 5; i++ {
		if err := BackupAndWriteJSON(path, map[string]int{"rev": i}, 3); err != nil {
			t.Fatal(err)
		}
	}

	readRev := func(p string) int {
		t.Helper()
		data, err := os.ReadFile(p)
		if err != nil {
			t.Fatalf("read %s: %v", p, err)
		}
		var v map[string]int
		if err := json.Unmarshal(data, &v); err != nil {
			t.Fatalf("parse %s: %v", p, err)
		}
		return v["rev"]
	}

	if got := readRev(path); got != 4 {
		t.Errorf("current rev = %d", got)
	}
	if got := readRev(path + ".bak"); got != 3 {
		t.Errorf(".bak rev = %d", got)
	}
	if got := readRev(path + ".bak.1"); got != 2 {
		t.Errorf(".bak.1 rev = %d", got)
	}
	if got := readRev(path + ".bak.2"); got != 1 {
		t.Errorf(".bak.2 rev = %d", got)
	}
	if _, err := os.Stat(path + ".bak.3"); !os.IsNotExist(err) {
		t.Error("oldest backup should have been dropped")
	}
}

func TestAtomicWriteLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.json")
	if err := AtomicWriteJSON(path, map[string]string{"a": "b"}, 0600); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "out.json" {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("directory contents = %v", names)
	}
}
