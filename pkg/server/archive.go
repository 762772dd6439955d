package server

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/crystal-mush/reagentbank/pkg/archive"
)

// Archive snapshots the world store, the ledger, the item catalog and the
// config file into Conf.ArchiveDir, then prunes old archives.
func (g *Game) Archive() (string, error) {
	p := archive.Params{
		Dir:         g.Conf.ArchiveDir,
		ServerName:  g.Conf.ServerName,
		CatalogPath: g.Items.Path(),
		ConfPath:    g.ConfPath,
	}
	if p.Dir == "" {
		p.Dir = "backups"
	}
	g.withLock(func() {
		p.Players = len(g.DB.Players)
		p.Guilds = len(g.DB.Guilds)
	})
	if g.Store != nil {
		p.WorldSnapshot = g.Store.Backup
	}
	if g.Ledger != nil && g.Ledger.Path() != "" {
		p.LedgerPath = g.Ledger.Path()
		p.LedgerCheckpoint = g.Ledger.Checkpoint
	}

	path, err := archive.Create(p)
	if err != nil {
		return "", err
	}
	g.Log.Info("archive written", zap.String("path", path))

	if g.Conf.ArchiveRetain > 0 {
		removed, err := archive.Prune(p.Dir, g.Conf.ArchiveRetain)
		if err != nil {
			g.Log.Warn("archive prune failed", zap.Error(err))
		}
		for _, r := range removed {
			g.Log.Info("archive pruned", zap.String("path", r))
		}
	}
	return path, nil
}

// StartAutoArchive writes an archive every Conf.ArchiveInterval minutes
// until ctx is done.
func (g *Game) StartAutoArchive(ctx context.Context) {
	if g.Conf.ArchiveInterval < 1 {
		return
	}
	go func() {
		ticker := time.NewTicker(time.Duration(g.Conf.ArchiveInterval) * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := g.Archive(); err != nil {
					g.Log.Error("auto-archive failed", zap.Error(err))
				}
			}
		}
	}()
}
