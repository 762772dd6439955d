package server

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/crystal-mush/reagentbank/pkg/boltstore"
	"github.com/crystal-mush/reagentbank/pkg/events"
	"github.com/crystal-mush/reagentbank/pkg/gamedb"
	"github.com/crystal-mush/reagentbank/pkg/itemdb"
	"github.com/crystal-mush/reagentbank/pkg/ledger"
	"github.com/crystal-mush/reagentbank/pkg/locale"
	"github.com/crystal-mush/reagentbank/pkg/reagentbank"
	"github.com/crystal-mush/reagentbank/pkg/scripts"
)

// Game holds the complete game state. Commands, script hooks and query
// callbacks all run under mu, so the world is single-threaded from the
// point of view of game logic.
type Game struct {
	mu sync.Mutex

	DB       *gamedb.Database
	Conns    *ConnManager
	Commands map[string]*Command
	Store    *boltstore.Store // nil = no bbolt persistence
	Ledger   *ledger.Store    // guild reagent ledger
	Items    *itemdb.Registry
	Text     *locale.Bundle
	Scripts  *scripts.Registry
	Banker   *reagentbank.Banker // nil until registered
	Conf     *GameConf
	ConfPath string // config file, included in archives
	EventBus *events.Bus
	Log      *zap.Logger
	Registry *prometheus.Registry // server and reagent bank metrics
	Started  time.Time
}

// NewGame creates a new Game instance around db. Items, Text and Scripts
// start with the embedded defaults; callers replace them as needed.
func NewGame(db *gamedb.Database, conf *GameConf, log *zap.Logger) *Game {
	if conf == nil {
		conf = DefaultGameConf()
	}
	if log == nil {
		log = zap.NewNop()
	}
	bus := events.NewBus()
	cm := NewConnManager()
	cm.EventBus = bus
	return &Game{
		DB:       db,
		Conns:    cm,
		Commands: InitCommands(),
		Text:     locale.MustLoad(),
		Items:    itemdb.New(),
		Scripts:  scripts.NewRegistry(),
		Conf:     conf,
		EventBus: bus,
		Log:      log,
		Registry: prometheus.NewRegistry(),
		Started:  time.Now(),
	}
}

// withLock runs fn while holding the game lock.
func (g *Game) withLock(fn func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	fn()
}

// Dispatch runs one line of player input under the game lock.
func (g *Game) Dispatch(d *Descriptor, input string) {
	g.withLock(func() {
		defer func() {
			if r := recover(); r != nil {
				g.Log.Error("panic in command", zap.Int("desc", d.ID), zap.String("input", input), zap.Any("panic", r), zap.Stack("stack"))
				d.Send("Huh?  (Internal error.)")
			}
		}()
		DispatchCommand(g, d, input)
	})
}

// SavePlayer writes a player to the bolt store (no-op if Store is nil).
// It implements reagentbank.Saver.
func (g *Game) SavePlayer(p *gamedb.Player) error {
	if g.Store == nil || p == nil {
		return nil
	}
	return g.Store.SavePlayer(p)
}

// BankerDeps wires the reagent bank to the game's stores. The bank's
// counters are registered on the game registry, so call it once.
func (g *Game) BankerDeps(cfg reagentbank.Config) reagentbank.Deps {
	return reagentbank.Deps{
		Ledger:  g.Ledger,
		Guilds:  g.DB,
		Items:   g.Items,
		Text:    g.Text,
		Saver:   g,
		Metrics: reagentbank.NewMetrics(g.Registry),
		Log:     g.Log,
		Config:  cfg,
	}
}

// PlaceBankers creates the configured banker creatures that are missing
// from the world.
func (g *Game) PlaceBankers() {
	for _, b := range g.Conf.Bankers {
		ref := gamedb.DBRef(b.Ref)
		if _, ok := g.DB.Creatures[ref]; ok {
			continue
		}
		c := &gamedb.Creature{Ref: ref, Name: b.Name, Script: reagentbank.ScriptName}
		g.DB.Creatures[ref] = c
		if g.Store != nil {
			if err := g.Store.SaveCreature(c); err != nil {
				g.Log.Error("persist creature failed", zap.Int("ref", b.Ref), zap.Error(err))
			}
		}
	}
}

// PlayerName returns the name of a player.
func (g *Game) PlayerName(ref gamedb.DBRef) string {
	if p, ok := g.DB.Players[ref]; ok {
		return p.Name
	}
	return fmt.Sprintf("#%d", ref)
}

// GuildName returns the name of a guild, or "" for none.
func (g *Game) GuildName(id gamedb.GuildID) string {
	if gd, ok := g.DB.Guilds[id]; ok {
		return gd.Name
	}
	return ""
}

// ConnectPlayer logs d in as p and tells the guild.
func (g *Game) ConnectPlayer(d *Descriptor, p *gamedb.Player) {
	g.Conns.Login(d, p.Ref)
	g.Log.Info("player connected",
		zap.Int("desc", d.ID),
		zap.String("player", p.Name),
		zap.String("transport", d.Transport.String()),
		zap.String("addr", d.Addr))
	if p.GuildID != 0 {
		g.EventBus.EmitToGuild(g.DB, p.GuildID, p.Ref, events.Event{
			Type:   events.EvGuild,
			Source: p.Ref,
			Text:   fmt.Sprintf("[%s] %s has connected.", g.GuildName(p.GuildID), p.Name),
			Data:   map[string]any{"player": p.Name, "state": "connect"},
		})
	}
}

// DisconnectPlayer closes any open dialog, drops pending callbacks and
// tells the guild when the player's last connection goes away.
func (g *Game) DisconnectPlayer(d *Descriptor) {
	g.withLock(func() {
		d.gossipNPC = nil
		d.gossipMenu = nil
		if d.queries != nil {
			d.queries.Cancel()
		}
		if d.State != ConnConnected {
			return
		}
		p := d.PlayerObj()
		if p == nil {
			return
		}
		g.Log.Info("player disconnected", zap.Int("desc", d.ID), zap.String("player", p.Name))
		if err := g.SavePlayer(p); err != nil {
			g.Log.Error("save on disconnect failed", zap.String("player", p.Name), zap.Error(err))
		}
		if p.GuildID == 0 || len(g.Conns.GetByPlayer(p.Ref)) > 1 {
			return
		}
		g.EventBus.EmitToGuild(g.DB, p.GuildID, p.Ref, events.Event{
			Type:   events.EvGuild,
			Source: p.Ref,
			Text:   fmt.Sprintf("[%s] %s has disconnected.", g.GuildName(p.GuildID), p.Name),
			Data:   map[string]any{"player": p.Name, "state": "disconnect"},
		})
	})
}

// DisconnectIdle closes connections idle for longer than the configured timeout.
func (g *Game) DisconnectIdle(now time.Time) int {
	limit := g.Conf.IdleDuration()
	if limit == 0 {
		return 0
	}
	n := 0
	g.withLock(func() {
		for _, d := range g.Conns.AllDescriptors() {
			if now.Sub(d.LastCmd) <= limit {
				continue
			}
			d.Send("*** Inactivity Timeout ***")
			d.Close()
			n++
		}
	})
	return n
}

// ConnectionStats returns per-transport counts of logged-in sessions.
func (g *Game) ConnectionStats() map[string]int {
	out := make(map[string]int)
	for t, n := range g.Conns.CountByTransport() {
		out[t.String()] = n
	}
	return out
}

// OnlineGuildMembers returns the names of connected members of a guild.
func (g *Game) OnlineGuildMembers(id gamedb.GuildID) []string {
	var names []string
	for ref, p := range g.DB.Players {
		if p.GuildID == id && g.Conns.IsConnected(ref) {
			names = append(names, p.Name)
		}
	}
	sort.Strings(names)
	return names
}
