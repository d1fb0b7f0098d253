// Package config loads and saves the application configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/westonwestenborg/VoiceToObsidian-sub001/internal/llm"
	"github.com/westonwestenborg/VoiceToObsidian-sub001/internal/logging"
	"github.com/westonwestenborg/VoiceToObsidian-sub001/internal/paths"
	"github.com/westonwestenborg/VoiceToObsidian-sub001/internal/stt"
)

// Config is the persisted application configuration. The vault location
// and API keys live in the secret store, not here.
type Config struct {
	Logging  LoggingConfig  `json:"logging"`
	STT      stt.STTConfig  `json:"stt"`
	LLM      llm.LLMConfig  `json:"llm"`
	Recorder RecorderConfig `json:"recorder"`
}

// LoggingConfig selects the log verbosity.
type LoggingConfig struct {
	Level string `json:"level,omitempty"` // "fatal", "error", "warn", "info", "debug"
}

// RecorderConfig selects the capture device.
type RecorderConfig struct {
	Device string `json:"device,omitempty"` // empty uses the platform default
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "info"},
		LLM:     llm.DefaultLLMConfig(),
	}
}

// Load reads the configuration, looking for ./voicenote.json first and
// then ~/.voicenote/voicenote.json. A missing file yields defaults and
// the default path for a later Save.
func Load() (*Config, string, error) {
	path, err := paths.ConfigPath()
	if err != nil {
		return nil, "", err
	}
	if path == "" {
		defaultPath, err := paths.DefaultConfigPath()
		if err != nil {
			return nil, "", err
		}
		return Default(), defaultPath, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, "", fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, path, nil
}

// Save writes the configuration atomically, rotating backups of the
// previous file.
func (c *Config) Save(path string) error {
	if err := paths.EnsureParentDir(path); err != nil {
		return err
	}
	return BackupAndWriteJSON(path, c, DefaultBackupCount)
}

// LogLevel maps the configured level name onto the logging package's
// numeric levels. Unknown names fall back to info.
func (c *Config) LogLevel() int {
	switch c.Logging.Level {
	case "fatal":
		return logging.LevelFatal
	case "error":
		return logging.LevelError
	case "warn":
		return logging.LevelWarn
	case "debug":
		return logging.LevelDebug
	default:
		return logging.LevelInfo
	}
}
