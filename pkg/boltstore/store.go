// Package boltstore persists the world (players, guilds and creatures) in a
// bbolt file. The in-memory gamedb.Database is the working copy; every
// mutation is written through.
package boltstore

import (
	"errors"
	"fmt"
	"os"
	"strings"

	bbolt "go.etcd.io/bbolt"
	"go.uber.org/zap"

	"github.com/crystal-mush/reagentbank/pkg/gamedb"
)

// ErrSchemaVersion is returned by LoadAll for files written by an
// incompatible version.
var ErrSchemaVersion = errors.New("boltstore: unsupported schema version")

// Store wraps a bbolt database and an in-memory cache for ACID persistence.
type Store struct {
	bolt  *bbolt.DB
	cache *gamedb.Database
	log   *zap.Logger
}

// Open opens or creates a bbolt database file and ensures all buckets exist.
func Open(path string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("boltstore: open %s: %w", path, err)
	}

	// Ensure all buckets exist.
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketMeta, bucketPlayers, bucketNames, bucketGuilds, bucketCreatures} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("boltstore: create buckets: %w", err)
	}

	return &Store{
		bolt:  db,
		cache: gamedb.NewDatabase(),
		log:   log.Named("boltstore"),
	}, nil
}

// Close closes the underlying bbolt database.
func (s *Store) Close() error {
	if s.bolt != nil {
		return s.bolt.Close()
	}
	return nil
}

// DB returns the in-memory database cache.
func (s *Store) DB() *gamedb.Database {
	return s.cache
}

// Path returns the filesystem path of the underlying bbolt database.
func (s *Store) Path() string {
	if s.bolt != nil {
		return s.bolt.Path()
	}
	return ""
}

// SavePlayer persists a single player and its name index entry (write-through).
func (s *Store) SavePlayer(p *gamedb.Player) error {
	return s.bolt.Update(func(tx *bbolt.Tx) error {
		return putPlayer(tx, p)
	})
}

// SavePlayers persists multiple players in a single bbolt transaction.
func (s *Store) SavePlayers(players ...*gamedb.Player) error {
	return s.bolt.Update(func(tx *bbolt.Tx) error {
		for _, p := range players {
			if p == nil {
				continue
			}
			if err := putPlayer(tx, p); err != nil {
				return err
			}
		}
		return nil
	})
}

func putPlayer(tx *bbolt.Tx, p *gamedb.Player) error {
	data, err := encode(p)
	if err != nil {
		return fmt.Errorf("boltstore: encode player #%d: %w", p.Ref, err)
	}
	if err := tx.Bucket(bucketPlayers).Put(refToKey(p.Ref), data); err != nil {
		return err
	}
	return tx.Bucket(bucketNames).Put([]byte(strings.ToLower(p.Name)), refToKey(p.Ref))
}

// DeletePlayer removes a player and its name index entry.
func (s *Store) DeletePlayer(p *gamedb.Player) error {
	return s.bolt.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(bucketNames).Delete([]byte(strings.ToLower(p.Name))); err != nil {
			return err
		}
		return tx.Bucket(bucketPlayers).Delete(refToKey(p.Ref))
	})
}

// LookupPlayerRef resolves a player name through the name index.
func (s *Store) LookupPlayerRef(name string) (gamedb.DBRef, bool) {
	ref := gamedb.Nothing
	s.bolt.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket(bucketNames).Get([]byte(strings.ToLower(name))); v != nil {
			ref = keyToRef(v)
		}
		return nil
	})
	return ref, ref != gamedb.Nothing
}

// SaveGuild persists a guild.
func (s *Store) SaveGuild(g *gamedb.Guild) error {
	data, err := encode(g)
	if err != nil {
		return fmt.Errorf("boltstore: encode guild %d: %w", g.ID, err)
	}
	return s.bolt.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketGuilds).Put(guildToKey(g.ID), data)
	})
}

// SaveCreature persists a creature.
func (s *Store) SaveCreature(c *gamedb.Creature) error {
	data, err := encode(c)
	if err != nil {
		return fmt.Errorf("boltstore: encode creature #%d: %w", c.Ref, err)
	}
	return s.bolt.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketCreatures).Put(refToKey(c.Ref), data)
	})
}

// ImportFromDatabase bulk-loads an in-memory Database into bbolt in one
// transaction and makes it the cache.
func (s *Store) ImportFromDatabase(db *gamedb.Database) error {
	s.cache = db

	err := s.bolt.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(bucketMeta).Put(keyVersion, intToKey(schemaVersion)); err != nil {
			return err
		}
		for _, p := range db.Players {
			if err := putPlayer(tx, p); err != nil {
				return err
			}
		}
		for _, g := range db.Guilds {
			data, err := encode(g)
			if err != nil {
				return fmt.Errorf("encode guild %d: %w", g.ID, err)
			}
			if err := tx.Bucket(bucketGuilds).Put(guildToKey(g.ID), data); err != nil {
				return err
			}
		}
		for _, c := range db.Creatures {
			data, err := encode(c)
			if err != nil {
				return fmt.Errorf("encode creature #%d: %w", c.Ref, err)
			}
			if err := tx.Bucket(bucketCreatures).Put(refToKey(c.Ref), data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("boltstore: import: %w", err)
	}

	s.log.Info("imported world",
		zap.Int("players", len(db.Players)),
		zap.Int("guilds", len(db.Guilds)),
		zap.Int("creatures", len(db.Creatures)))
	return nil
}

// LoadAll reads the entire bbolt database into the in-memory cache.
func (s *Store) LoadAll() error {
	db := gamedb.NewDatabase()
	err := s.bolt.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket(bucketMeta).Get(keyVersion); v != nil && keyToInt(v) != schemaVersion {
			return fmt.Errorf("%w: %d", ErrSchemaVersion, keyToInt(v))
		}
		err := tx.Bucket(bucketPlayers).ForEach(func(k, v []byte) error {
			p, err := decode[gamedb.Player](v)
			if err != nil {
				return fmt.Errorf("decode player #%d: %w", keyToRef(k), err)
			}
			if p.Inv == nil {
				p.Inv = gamedb.NewInventory()
			}
			db.Players[p.Ref] = p
			return nil
		})
		if err != nil {
			return err
		}
		err = tx.Bucket(bucketGuilds).ForEach(func(_, v []byte) error {
			g, err := decode[gamedb.Guild](v)
			if err != nil {
				return fmt.Errorf("decode guild: %w", err)
			}
			db.Guilds[g.ID] = g
			return nil
		})
		if err != nil {
			return err
		}
		return tx.Bucket(bucketCreatures).ForEach(func(k, v []byte) error {
			c, err := decode[gamedb.Creature](v)
			if err != nil {
				return fmt.Errorf("decode creature #%d: %w", keyToRef(k), err)
			}
			db.Creatures[c.Ref] = c
			return nil
		})
	})
	if err != nil {
		return fmt.Errorf("boltstore: load: %w", err)
	}

	s.cache = db
	s.log.Info("loaded world",
		zap.Int("players", len(db.Players)),
		zap.Int("guilds", len(db.Guilds)),
		zap.Int("creatures", len(db.Creatures)))
	return nil
}

// Backup creates a hot snapshot of the bbolt database using tx.WriteTo().
func (s *Store) Backup(path string) error {
	return s.bolt.View(func(tx *bbolt.Tx) error {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("boltstore: create backup %s: %w", path, err)
		}
		defer f.Close()
		_, err = tx.WriteTo(f)
		if err != nil {
			return fmt.Errorf("boltstore: write backup: %w", err)
		}
		s.log.Info("backup written", zap.String("path", path))
		return nil
	})
}

// HasData returns true if the bbolt database contains any players.
func (s *Store) HasData() bool {
	hasData := false
	s.bolt.View(func(tx *bbolt.Tx) error {
		if tx.Bucket(bucketPlayers).Stats().KeyN > 0 {
			hasData = true
		}
		return nil
	})
	return hasData
}
