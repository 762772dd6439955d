package server

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/crystal-mush/reagentbank/pkg/gamedb"
)

func TestLoadGameConf(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "game.yaml")
	data := `
server_name: Testrealm
port: 7000
page_size: 10
storage_cost: 250
sql_database: bank.db
bankers:
  - ref: 200
    name: Quartiermeister
web_cors_origins: ["https://example.org"]
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("RB_PORT", "7100")
	t.Setenv("RB_WEB_CORS_ORIGINS", "https://a.example,https://b.example")

	gc, err := LoadGameConf(path)
	if err != nil {
		t.Fatalf("LoadGameConf: %v", err)
	}
	if gc.ServerName != "Testrealm" {
		t.Errorf("ServerName = %q", gc.ServerName)
	}
	if gc.Port != 7100 {
		t.Errorf("Port = %d, want env override 7100", gc.Port)
	}
	if gc.SQLDatabase != filepath.Join(dir, "bank.db") {
		t.Errorf("SQLDatabase = %q, want it resolved against the config dir", gc.SQLDatabase)
	}
	if len(gc.Bankers) != 1 || gc.Bankers[0].Ref != 200 || gc.Bankers[0].Name != "Quartiermeister" {
		t.Errorf("Bankers = %+v", gc.Bankers)
	}
	if len(gc.WebCORSOrigins) != 2 || gc.WebCORSOrigins[1] != "https://b.example" {
		t.Errorf("WebCORSOrigins = %v", gc.WebCORSOrigins)
	}
	// Untouched fields keep their defaults.
	if gc.StorageIncrement != 1000 || gc.Locale != "de-DE" {
		t.Errorf("defaults lost: increment=%d locale=%q", gc.StorageIncrement, gc.Locale)
	}

	cfg := gc.BankerConfig()
	if cfg.PageSize != 10 {
		t.Errorf("PageSize = %d", cfg.PageSize)
	}
	if cfg.StorageCost != 250*gamedb.Gold {
		t.Errorf("StorageCost = %d", cfg.StorageCost)
	}
	if cfg.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v", cfg.Timeout)
	}
}

func TestLoadGameConfMissingFile(t *testing.T) {
	if _, err := LoadGameConf(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadGameConfEnvOnly(t *testing.T) {
	t.Setenv("RB_STORAGE_INCREMENT", "500")
	t.Setenv("RB_BANKER_0_NAME", "Lagerverwalter")
	gc, err := LoadGameConf("")
	if err != nil {
		t.Fatal(err)
	}
	if gc.StorageIncrement != 500 {
		t.Errorf("StorageIncrement = %d", gc.StorageIncrement)
	}
	if len(gc.Bankers) != 1 || gc.Bankers[0].Ref != 100 || gc.Bankers[0].Name != "Lagerverwalter" {
		t.Errorf("Bankers = %+v", gc.Bankers)
	}
}

func TestIdleDuration(t *testing.T) {
	gc := DefaultGameConf()
	if gc.IdleDuration() != time.Hour {
		t.Errorf("IdleDuration = %v", gc.IdleDuration())
	}
	gc.IdleTimeout = 0
	if gc.IdleDuration() != 0 {
		t.Errorf("IdleDuration = %v, want 0", gc.IdleDuration())
	}
}
