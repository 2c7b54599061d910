package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestReadConfigFile(t *testing.T) {
	content := `
port = 9500
api_secret = "hunter2"

[database]
driver = "mysql"
address = "127.0.0.1:3306"
user = "stash"
password = "pw"
db = "stash"

[cache]
flush_interval_ms = 250
`
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := ReadConfigFile(path)
	if err != nil {
		t.Fatalf("ReadConfigFile: %v", err)
	}

	if cfg.Port != 9500 {
		t.Errorf("Expected port 9500, got %d", cfg.Port)
	}
	if cfg.ApiSecret != "hunter2" {
		t.Errorf("Expected api secret from file, got %q", cfg.ApiSecret)
	}
	if cfg.Database.Driver != "mysql" || cfg.Database.Addr != "127.0.0.1:3306" {
		t.Errorf("Expected mysql database settings, got %+v", cfg.Database)
	}
	if cfg.Cache.FlushIntervalMs != 250 {
		t.Errorf("Expected flush interval 250ms, got %d", cfg.Cache.FlushIntervalMs)
	}

	// Values the file does not mention keep their defaults.
	if cfg.Cache.ReadTtlMinutes != 60 {
		t.Errorf("Expected default read ttl 60, got %d", cfg.Cache.ReadTtlMinutes)
	}
	if cfg.Database.MaxPool != 25 {
		t.Errorf("Expected default max pool 25, got %d", cfg.Database.MaxPool)
	}
	if cfg.Logging.MaxSize != 50 {
		t.Errorf("Expected default log max size 50, got %d", cfg.Logging.MaxSize)
	}
}

func TestReadConfigFileMissing(t *testing.T) {
	if _, err := ReadConfigFile(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Error("Expected an error for a missing config file")
	}
}
