package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/crystal-mush/reagentbank/pkg/archive"
	"github.com/crystal-mush/reagentbank/pkg/boltstore"
	"github.com/crystal-mush/reagentbank/pkg/itemdb"
	"github.com/crystal-mush/reagentbank/pkg/ledger"
	"github.com/crystal-mush/reagentbank/pkg/reagentbank"
	"github.com/crystal-mush/reagentbank/pkg/server"
)

// envDefault returns the environment variable value if set, otherwise the fallback.
func envDefault(envVar, fallback string) string {
	if v := os.Getenv(envVar); v != "" {
		return v
	}
	return fallback
}

// newLogger builds the process logger: "json" for production, anything
// else for a human-readable console encoder.
func newLogger(format, level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level %q: %w", level, err)
	}
	var cfg zap.Config
	if format == "json" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	cfg.Level = lvl
	return cfg.Build()
}

// checkpoint folds the ledger's WAL into the database file.
func checkpoint(l *ledger.Store, log *zap.Logger) {
	if err := l.Checkpoint(); err != nil {
		log.Warn("ledger checkpoint failed", zap.String("path", l.Path()), zap.Error(err))
	}
}

func main() {
	confFile := flag.String("conf", envDefault("RB_CONF", ""), "Path to game config file (env: RB_CONF)")
	port := flag.Int("port", 0, "TCP port to listen on, overrides config (env: RB_PORT)")
	boltPath := flag.String("bolt", "", "Path to the bbolt world store, overrides config")
	sqlPath := flag.String("sqldb", "", "Path to the SQLite ledger, overrides config")
	catalog := flag.String("items", "", "Path to the item catalog YAML, overrides config")
	restore := flag.String("restore", envDefault("RB_RESTORE", ""), "Restore from archive before boot (env: RB_RESTORE)")
	archiveNow := flag.Bool("archive", false, "Write one archive and exit")
	flag.Parse()

	gc, err := server.LoadGameConf(*confFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading game config: %v\n", err)
		os.Exit(1)
	}
	if *port != 0 {
		gc.Port = *port
	}
	if *boltPath != "" {
		gc.BoltPath = *boltPath
	}
	if *sqlPath != "" {
		gc.SQLDatabase = *sqlPath
	}
	if *catalog != "" {
		gc.ItemCatalog = *catalog
	}

	log, err := newLogger(gc.LogFormat, gc.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	log.Info("starting", zap.String("version", server.VersionString()), zap.String("conf", *confFile))

	// Pre-boot restore from archive
	if *restore != "" {
		res, err := archive.Restore(archive.RestoreParams{
			Path:       *restore,
			WorldDest:  gc.BoltPath,
			LedgerDest: gc.SQLDatabase,
			ConfDest:   *confFile,
		})
		if err != nil {
			log.Fatal("restore failed", zap.String("archive", *restore), zap.Error(err))
		}
		for _, w := range res.Warnings {
			log.Warn("restore warning", zap.String("warning", w))
		}
		log.Info("restore complete", zap.Strings("files", res.Restored))
	}

	store, err := boltstore.Open(gc.BoltPath, log)
	if err != nil {
		log.Fatal("open world store", zap.Error(err))
	}
	defer store.Close()
	if store.HasData() {
		if err := store.LoadAll(); err != nil {
			log.Fatal("load world store", zap.Error(err))
		}
	} else {
		log.Warn("world store is empty; seed it with dbloader", zap.String("path", gc.BoltPath))
	}

	bank, err := ledger.Open(gc.SQLDatabase, gc.SQLTimeout)
	if err != nil {
		log.Fatal("open ledger", zap.String("path", gc.SQLDatabase), zap.Error(err))
	}
	defer bank.Close()

	var items *itemdb.Registry
	if gc.ItemCatalog != "" {
		items, err = itemdb.LoadFile(gc.ItemCatalog)
	} else {
		items, err = itemdb.LoadEmbedded()
	}
	if err != nil {
		log.Fatal("load item catalog", zap.String("path", gc.ItemCatalog), zap.Error(err))
	}

	game := server.NewGame(store.DB(), gc, log)
	game.Store = store
	game.Ledger = bank
	game.Items = items
	game.ConfPath = *confFile
	game.PlaceBankers()

	banker, err := reagentbank.Register(game.Scripts, game.BankerDeps(gc.BankerConfig()))
	if err != nil {
		log.Fatal("register reagent banker", zap.Error(err))
	}
	game.Banker = banker

	if *archiveNow {
		path, err := game.Archive()
		if err != nil {
			log.Fatal("archive failed", zap.Error(err))
		}
		fmt.Println(path)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := items.Watch(ctx, log); err != nil {
		log.Warn("item catalog watch disabled", zap.Error(err))
	}

	srv := server.NewServer(game)
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		s := <-sig
		log.Info("shutting down", zap.String("signal", s.String()))
		srv.Stop()
	}()

	log.Info("starting server",
		zap.String("name", gc.ServerName),
		zap.Int("port", gc.Port),
		zap.Bool("web", gc.WebEnabled))
	if err := srv.Start(); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
	checkpoint(game.Ledger, log)
	log.Info("stopped")
}
