package server

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/crystal-mush/reagentbank/pkg/gamedb"
	"github.com/crystal-mush/reagentbank/pkg/reagentbank"
)

// GameConf holds game-level configuration parameters. Values come from the
// YAML file first; RB_* environment variables override them.
type GameConf struct {
	// --- Identity ---
	ServerName string `yaml:"server_name" env:"RB_SERVER_NAME"`
	Port       int    `yaml:"port" env:"RB_PORT"`
	Locale     string `yaml:"locale" env:"RB_LOCALE"` // default locale for new sessions

	// --- Idle/timeout ---
	IdleTimeout int `yaml:"idle_timeout" env:"RB_IDLE_TIMEOUT"` // seconds, 0 = never

	// --- Storage ---
	SQLDatabase string `yaml:"sql_database" env:"RB_SQL_DATABASE"`
	SQLTimeout  int    `yaml:"sql_timeout" env:"RB_SQL_TIMEOUT"` // seconds
	BoltPath    string `yaml:"bolt_path" env:"RB_BOLT_PATH"`
	ItemCatalog string `yaml:"item_catalog" env:"RB_ITEM_CATALOG"` // empty = embedded catalog

	// --- Archives ---
	ArchiveDir      string `yaml:"archive_dir" env:"RB_ARCHIVE_DIR"`
	ArchiveInterval int    `yaml:"archive_interval" env:"RB_ARCHIVE_INTERVAL"` // minutes, 0 = disabled
	ArchiveRetain   int    `yaml:"archive_retain" env:"RB_ARCHIVE_RETAIN"`     // keep the newest N, 0 = all

	// --- Reagent bank ---
	PageSize         int         `yaml:"page_size" env:"RB_PAGE_SIZE"`
	StorageCost      int64       `yaml:"storage_cost" env:"RB_STORAGE_COST"` // gold per purchase
	StorageIncrement uint32      `yaml:"storage_increment" env:"RB_STORAGE_INCREMENT"`
	Bankers          []BankerNPC `yaml:"bankers" envPrefix:"RB_BANKER_"` // RB_BANKER_0_REF, RB_BANKER_0_NAME, ...

	// --- Web ---
	WebEnabled     bool     `yaml:"web_enabled" env:"RB_WEB_ENABLED"`
	WebHost        string   `yaml:"web_host" env:"RB_WEB_HOST"`
	WebPort        int      `yaml:"web_port" env:"RB_WEB_PORT"`
	WebCORSOrigins []string `yaml:"web_cors_origins" env:"RB_WEB_CORS_ORIGINS" envSeparator:","`
	WebRateLimit   int      `yaml:"web_rate_limit" env:"RB_WEB_RATE_LIMIT"` // requests per minute per IP
	JWTSecret      string   `yaml:"jwt_secret" env:"RB_JWT_SECRET"`
	JWTExpiry      int      `yaml:"jwt_expiry" env:"RB_JWT_EXPIRY"` // seconds

	// --- Logging ---
	LogFormat string `yaml:"log_format" env:"RB_LOG_FORMAT"` // console or json
	LogLevel  string `yaml:"log_level" env:"RB_LOG_LEVEL"`
}

// BankerNPC places a reagent banker creature in the world.
type BankerNPC struct {
	Ref  int    `yaml:"ref" env:"REF"`
	Name string `yaml:"name" env:"NAME"`
}

// DefaultGameConf returns a GameConf with stock defaults.
func DefaultGameConf() *GameConf {
	return &GameConf{
		ServerName:       "Reagent Bank",
		Port:             6250,
		Locale:           "de-DE",
		IdleTimeout:      3600,
		SQLDatabase:      "data/reagentbank.db",
		SQLTimeout:       5,
		BoltPath:         "data/world.bolt",
		ArchiveDir:       "backups",
		ArchiveRetain:    24,
		PageSize:         23,
		StorageCost:      1000,
		StorageIncrement: 1000,
		Bankers:          []BankerNPC{{Ref: 100, Name: "Reagent Banker"}},
		WebEnabled:       true,
		WebPort:          8443,
		WebRateLimit:     60,
		JWTExpiry:        86400,
		LogFormat:        "console",
		LogLevel:         "info",
	}
}

// LoadGameConf loads a YAML game config and applies environment overrides.
// An empty path yields the defaults plus environment.
func LoadGameConf(path string) (*GameConf, error) {
	gc := DefaultGameConf()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, gc); err != nil {
			return nil, fmt.Errorf("parsing YAML %s: %w", path, err)
		}
		// Relative file paths resolve against the config directory.
		baseDir := filepath.Dir(path)
		for _, p := range []*string{&gc.SQLDatabase, &gc.BoltPath, &gc.ItemCatalog, &gc.ArchiveDir} {
			if *p != "" && !filepath.IsAbs(*p) {
				*p = filepath.Join(baseDir, *p)
			}
		}
	}
	if err := gc.ApplyEnv(); err != nil {
		return nil, err
	}
	return gc, nil
}

// ApplyEnv overrides fields from RB_* environment variables. Unset
// variables leave the field alone.
func (gc *GameConf) ApplyEnv() error {
	if err := env.Parse(gc); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// BankerConfig returns the reagent bank settings derived from the config.
func (gc *GameConf) BankerConfig() reagentbank.Config {
	cfg := reagentbank.DefaultConfig()
	if gc.PageSize > 0 {
		cfg.PageSize = gc.PageSize
	}
	if gc.StorageCost > 0 {
		cfg.StorageCost = gamedb.Money(gc.StorageCost) * gamedb.Gold
	}
	if gc.StorageIncrement > 0 {
		cfg.StorageIncrement = gc.StorageIncrement
	}
	if gc.SQLTimeout > 0 {
		cfg.Timeout = time.Duration(gc.SQLTimeout) * time.Second
	}
	return cfg
}

// IdleDuration returns the idle timeout, zero when disabled.
func (gc *GameConf) IdleDuration() time.Duration {
	if gc.IdleTimeout <= 0 {
		return 0
	}
	return time.Duration(gc.IdleTimeout) * time.Second
}
