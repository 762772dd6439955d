package main

import (
	"fmt"
	"os"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"github.com/crystal-mush/reagentbank/pkg/gamedb"
	"github.com/crystal-mush/reagentbank/pkg/itemdb"
	"github.com/crystal-mush/reagentbank/pkg/reagentbank"
)

// Seed is the YAML world description dbloader imports.
type Seed struct {
	Guilds    []SeedGuild    `yaml:"guilds"`
	Players   []SeedPlayer   `yaml:"players"`
	Creatures []SeedCreature `yaml:"creatures"`
}

type SeedGuild struct {
	ID     uint32 `yaml:"id"`
	Name   string `yaml:"name"`
	Leader string `yaml:"leader"` // player name
}

type SeedPlayer struct {
	Ref      int        `yaml:"ref"` // 0 = next free
	Name     string     `yaml:"name"`
	Password string     `yaml:"password"`
	Gold     int64      `yaml:"gold"`
	Guild    uint32     `yaml:"guild"`
	Locale   string     `yaml:"locale"`
	Bags     []uint32   `yaml:"bags"` // container entries, equipped in order
	Items    []SeedItem `yaml:"items"`
}

type SeedItem struct {
	Entry uint32 `yaml:"entry"`
	Count uint32 `yaml:"count"`
}

type SeedCreature struct {
	Ref    int    `yaml:"ref"`
	Name   string `yaml:"name"`
	Script string `yaml:"script"` // empty = reagent banker
}

// LoadSeed reads a seed file.
func LoadSeed(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed %s: %w", path, err)
	}
	var s Seed
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse seed %s: %w", path, err)
	}
	return &s, nil
}

// Build turns a seed into a world. Passwords are hashed with cost; items
// are stacked into the backpack and bags by their template's stack size.
func (s *Seed) Build(items *itemdb.Registry, cost int) (*gamedb.Database, error) {
	db := gamedb.NewDatabase()

	for _, sp := range s.Players {
		if sp.Name == "" {
			return nil, fmt.Errorf("player without a name")
		}
		if db.LookupPlayer(sp.Name) != nil {
			return nil, fmt.Errorf("duplicate player %q", sp.Name)
		}
		ref := gamedb.DBRef(sp.Ref)
		if ref <= 0 {
			ref = db.NextPlayerRef()
		}
		if _, taken := db.Players[ref]; taken {
			return nil, fmt.Errorf("player %q: ref #%d already used", sp.Name, ref)
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(sp.Password), cost)
		if err != nil {
			return nil, fmt.Errorf("player %q: hash password: %w", sp.Name, err)
		}
		p := &gamedb.Player{
			Ref:      ref,
			Name:     sp.Name,
			PassHash: string(hash),
			Money:    gamedb.Money(sp.Gold) * gamedb.Gold,
			GuildID:  gamedb.GuildID(sp.Guild),
			Locale:   sp.Locale,
			Inv:      gamedb.NewInventory(),
		}
		for i, entry := range sp.Bags {
			t, ok := items.Get(entry)
			if !ok || t.BagSlots == 0 {
				return nil, fmt.Errorf("player %q: item %d is not a bag", sp.Name, entry)
			}
			if err := p.Inv.EquipBag(gamedb.BagSlotStart+uint8(i), entry, int(t.BagSlots)); err != nil {
				return nil, fmt.Errorf("player %q: %w", sp.Name, err)
			}
		}
		for _, it := range sp.Items {
			t, ok := items.Get(it.Entry)
			if !ok {
				return nil, fmt.Errorf("player %q: unknown item %d", sp.Name, it.Entry)
			}
			if _, err := p.Inv.StoreNew(it.Entry, it.Count, t.MaxStackSize()); err != nil {
				return nil, fmt.Errorf("player %q: store %d x %d: %w", sp.Name, it.Count, it.Entry, err)
			}
		}
		db.Players[ref] = p
	}

	for _, sg := range s.Guilds {
		if sg.ID == 0 {
			return nil, fmt.Errorf("guild %q: id 0 is reserved", sg.Name)
		}
		g := &gamedb.Guild{ID: gamedb.GuildID(sg.ID), Name: sg.Name, Leader: gamedb.Nothing}
		if sg.Leader != "" {
			p := db.LookupPlayer(sg.Leader)
			if p == nil {
				return nil, fmt.Errorf("guild %q: unknown leader %q", sg.Name, sg.Leader)
			}
			if p.GuildID != g.ID {
				return nil, fmt.Errorf("guild %q: leader %q is not a member", sg.Name, sg.Leader)
			}
			g.Leader = p.Ref
		}
		db.Guilds[g.ID] = g
	}
	for _, p := range db.Players {
		if p.GuildID != 0 && db.Guilds[p.GuildID] == nil {
			return nil, fmt.Errorf("player %q: unknown guild %d", p.Name, p.GuildID)
		}
	}

	for _, sc := range s.Creatures {
		script := sc.Script
		if script == "" {
			script = reagentbank.ScriptName
		}
		ref := gamedb.DBRef(sc.Ref)
		if _, taken := db.Creatures[ref]; taken {
			return nil, fmt.Errorf("creature %q: ref #%d already used", sc.Name, ref)
		}
		db.Creatures[ref] = &gamedb.Creature{Ref: ref, Name: sc.Name, Script: script}
	}
	return db, nil
}
