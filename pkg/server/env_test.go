package server

import (
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/crystal-mush/reagentbank/pkg/gamedb"
	"github.com/crystal-mush/reagentbank/pkg/itemdb"
	"github.com/crystal-mush/reagentbank/pkg/ledger"
	"github.com/crystal-mush/reagentbank/pkg/reagentbank"
)

const (
	linen    = 2589
	password = "secret"
)

// captureConn buffers everything written to it.
type captureConn struct {
	nullConn
	mu  sync.Mutex
	buf strings.Builder
}

func (c *captureConn) Write(b []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.buf.Write(b)
	return len(b), nil
}

// take returns and clears the captured output.
func (c *captureConn) take() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.buf.String()
	c.buf.Reset()
	return s
}

// testEnv holds the shared test infrastructure.
type testEnv struct {
	game   *Game
	ledger *ledger.Store
	leader *gamedb.Player
	member *gamedb.Player
	loner  *gamedb.Player
	npc    *gamedb.Creature
}

// newTestEnv creates a minimal world for testing:
//   - Guild #1 "Eisenfaust" led by Aria (2500 gold), with member Borin
//   - Cato, who has no guild
//   - Reagent banker #100
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}

	db := gamedb.NewDatabase()
	player := func(ref gamedb.DBRef, name string, guild gamedb.GuildID, gold int64) *gamedb.Player {
		p := &gamedb.Player{
			Ref:      ref,
			Name:     name,
			PassHash: string(hash),
			Money:    gamedb.Money(gold) * gamedb.Gold,
			GuildID:  guild,
			Locale:   "de-DE",
			Inv:      gamedb.NewInventory(),
		}
		db.Players[ref] = p
		return p
	}
	env := &testEnv{
		leader: player(1, "Aria", 1, 2500),
		member: player(2, "Borin", 1, 10),
		loner:  player(3, "Cato", 0, 5000),
	}
	db.Guilds[1] = &gamedb.Guild{ID: 1, Name: "Eisenfaust", Leader: env.leader.Ref}

	conf := DefaultGameConf()
	conf.WebEnabled = false
	conf.IdleTimeout = 0
	g := NewGame(db, conf, zap.NewNop())

	items, err := itemdb.LoadEmbedded()
	if err != nil {
		t.Fatalf("itemdb.LoadEmbedded: %v", err)
	}
	g.Items = items

	store, err := ledger.Open(filepath.Join(t.TempDir(), "bank.db"), 5)
	if err != nil {
		t.Fatalf("ledger.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	g.Ledger = store

	g.PlaceBankers()
	b, err := reagentbank.Register(g.Scripts, g.BankerDeps(conf.BankerConfig()))
	if err != nil {
		t.Fatalf("reagentbank.Register: %v", err)
	}
	g.Banker = b

	env.game = g
	env.ledger = store
	env.npc = db.Creatures[100]
	if env.npc == nil {
		t.Fatal("banker #100 was not placed")
	}
	return env
}

// open creates a logged-out TCP descriptor.
func (e *testEnv) open() (*Descriptor, *captureConn) {
	c := &captureConn{}
	d := NewDescriptor(e.game, e.game.Conns.NextID(), c)
	e.game.Conns.Add(d)
	return d, c
}

// connect logs p in over a fresh descriptor and discards the login output.
func (e *testEnv) connect(t *testing.T, p *gamedb.Player) (*Descriptor, *captureConn) {
	t.Helper()
	d, c := e.open()
	e.game.Dispatch(d, "connect "+p.Name+" "+password)
	if d.State != ConnConnected {
		t.Fatalf("login as %s failed: %q", p.Name, c.take())
	}
	c.take()
	return d, c
}

// drain runs session callbacks until no query is outstanding.
func (e *testEnv) drain(t *testing.T) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		ran, pending := e.game.ProcessCallbacks()
		if pending == 0 {
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for query callbacks")
		}
		if ran == 0 {
			time.Sleep(time.Millisecond)
		}
	}
}

// option returns the 1-based number of the open menu's option with code.
func option(t *testing.T, d *Descriptor, code uint32) int {
	t.Helper()
	_, m := d.GossipMenu()
	if m == nil {
		t.Fatal("no open menu")
	}
	for i, o := range m.Options {
		if o.Code == code {
			return i + 1
		}
	}
	t.Fatalf("menu has no option with code %d: %+v", code, m.Options)
	return 0
}

func (e *testEnv) msg(key string, args ...any) string {
	return e.game.Text.Sprintf("de-DE", key, args...)
}

func (e *testEnv) give(t *testing.T, p *gamedb.Player, entry, n uint32) {
	t.Helper()
	tmpl, ok := e.game.Items.Get(entry)
	if !ok {
		t.Fatalf("no template %d", entry)
	}
	if _, err := p.Inv.StoreNew(entry, n, tmpl.MaxStackSize()); err != nil {
		t.Fatalf("give %d x %d: %v", n, entry, err)
	}
}
