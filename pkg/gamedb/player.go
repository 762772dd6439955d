package gamedb

import (
	"sort"
	"strconv"
	"strings"
)

// Player is a connected or persisted character.
type Player struct {
	Ref      DBRef
	Name     string
	PassHash string // bcrypt hash
	Money    Money
	GuildID  GuildID
	Locale   string
	Inv      *Inventory
}

// HasEnoughMoney reports whether the player can pay amount.
func (p *Player) HasEnoughMoney(amount Money) bool {
	return p.Money >= amount
}

// ModifyMoney adds delta (which may be negative) to the player's balance.
// It refuses to take the balance below zero.
func (p *Player) ModifyMoney(delta Money) bool {
	if p.Money+delta < 0 {
		return false
	}
	p.Money += delta
	return true
}

// Guild is a player-formed group with exactly one leader.
type Guild struct {
	ID     GuildID
	Name   string
	Leader DBRef
}

// Creature is an NPC the players can talk to. Script names the creature
// script handling its dialog.
type Creature struct {
	Ref    DBRef
	Name   string
	Script string
}

// Database is the in-memory world shared by the host runtime.
type Database struct {
	Players   map[DBRef]*Player
	Guilds    map[GuildID]*Guild
	Creatures map[DBRef]*Creature
}

// NewDatabase creates an empty world.
func NewDatabase() *Database {
	return &Database{
		Players:   make(map[DBRef]*Player),
		Guilds:    make(map[GuildID]*Guild),
		Creatures: make(map[DBRef]*Creature),
	}
}

// GuildOf returns the player's guild, or nil when the player has none.
func (db *Database) GuildOf(p *Player) *Guild {
	if p == nil || p.GuildID == 0 {
		return nil
	}
	return db.Guilds[p.GuildID]
}

// IsGuildLeader reports whether the player belongs to a guild and leads it.
func (db *Database) IsGuildLeader(p *Player) bool {
	g := db.GuildOf(p)
	if g == nil {
		return false
	}
	return g.Leader == p.Ref
}

// LookupPlayer finds a player by case-insensitive name.
func (db *Database) LookupPlayer(name string) *Player {
	for _, p := range db.Players {
		if strings.EqualFold(p.Name, name) {
			return p
		}
	}
	return nil
}

// LookupCreature finds a creature by ref ("#100") or case-insensitive name prefix.
func (db *Database) LookupCreature(name string) *Creature {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	refs := make([]DBRef, 0, len(db.Creatures))
	for ref := range db.Creatures {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i] < refs[j] })
	lower := strings.ToLower(name)
	for _, ref := range refs {
		c := db.Creatures[ref]
		if strings.HasPrefix(name, "#") && strings.TrimPrefix(name, "#") == strconv.Itoa(int(ref)) {
			return c
		}
		if strings.HasPrefix(strings.ToLower(c.Name), lower) {
			return c
		}
	}
	return nil
}

// NextPlayerRef returns an unused player reference.
func (db *Database) NextPlayerRef() DBRef {
	next := DBRef(1)
	for ref := range db.Players {
		if ref >= next {
			next = ref + 1
		}
	}
	for ref := range db.Creatures {
		if ref >= next {
			next = ref + 1
		}
	}
	return next
}
