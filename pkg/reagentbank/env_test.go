package reagentbank

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/crystal-mush/reagentbank/pkg/asyncq"
	"github.com/crystal-mush/reagentbank/pkg/gamedb"
	"github.com/crystal-mush/reagentbank/pkg/gossip"
	"github.com/crystal-mush/reagentbank/pkg/itemdb"
	"github.com/crystal-mush/reagentbank/pkg/ledger"
	"github.com/crystal-mush/reagentbank/pkg/locale"
)

// Item entries from the embedded catalog.
const (
	silverleaf  = 765
	malachite   = 774
	linen       = 2589
	ironOre     = 2772
	copperBar   = 2840
	raygun      = 4388
	simpleWood  = 4470
	hearthstone = 6948
)

type fakeSession struct {
	player    *gamedb.Player
	msgs      []string
	menus     []*gossip.Menu
	closed    int
	newItems  []gamedb.Item
	equipErrs []error
	q         *asyncq.Processor
}

func newFakeSession(p *gamedb.Player) *fakeSession {
	return &fakeSession{player: p, q: asyncq.NewProcessor()}
}

func (s *fakeSession) Player() *gamedb.Player { return s.player }
func (s *fakeSession) Locale() string         { return s.player.Locale }
func (s *fakeSession) SendSysMessage(msg string) {
	s.msgs = append(s.msgs, msg)
}
func (s *fakeSession) SendGossipMenu(_ *gamedb.Creature, m *gossip.Menu) {
	s.menus = append(s.menus, m)
}
func (s *fakeSession) CloseGossipMenu() { s.closed++ }
func (s *fakeSession) SendNewItem(entry, count uint32) {
	s.newItems = append(s.newItems, gamedb.Item{Entry: entry, Count: count})
}
func (s *fakeSession) SendEquipError(err error, _ uint32) {
	s.equipErrs = append(s.equipErrs, err)
}
func (s *fakeSession) Queries() *asyncq.Processor { return s.q }

func (s *fakeSession) lastMsg() string {
	if len(s.msgs) == 0 {
		return ""
	}
	return s.msgs[len(s.msgs)-1]
}

func (s *fakeSession) lastMenu() *gossip.Menu {
	if len(s.menus) == 0 {
		return nil
	}
	return s.menus[len(s.menus)-1]
}

// drain runs the session's callbacks until none are pending.
func (s *fakeSession) drain(t *testing.T) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for s.q.Pending() > 0 {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for query callbacks")
		}
		if s.q.Process() == 0 {
			time.Sleep(time.Millisecond)
		}
	}
}

type testEnv struct {
	ctx    context.Context
	world  *gamedb.Database
	store  *ledger.Store
	items  *itemdb.Registry
	text   *locale.Bundle
	banker *Banker
	leader *gamedb.Player
	member *gamedb.Player
	loner  *gamedb.Player
	npc    *gamedb.Creature
}

const guildID gamedb.GuildID = 1

func newPlayer(ref gamedb.DBRef, name string, guild gamedb.GuildID, gold int64) *gamedb.Player {
	return &gamedb.Player{
		Ref:     ref,
		Name:    name,
		GuildID: guild,
		Money:   gamedb.Money(gold) * gamedb.Gold,
		Locale:  "de-DE",
		Inv:     gamedb.NewInventory(),
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store, err := ledger.Open(filepath.Join(t.TempDir(), "bank.db"), 5)
	if err != nil {
		t.Fatalf("ledger.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return newTestEnvWith(t, store, store)
}

func newTestEnvWith(t *testing.T, store *ledger.Store, l Ledger) *testEnv {
	t.Helper()
	items, err := itemdb.LoadEmbedded()
	if err != nil {
		t.Fatalf("itemdb.LoadEmbedded: %v", err)
	}

	world := gamedb.NewDatabase()
	env := &testEnv{
		ctx:    context.Background(),
		world:  world,
		store:  store,
		items:  items,
		text:   locale.MustLoad(),
		leader: newPlayer(1, "Aria", guildID, 2500),
		member: newPlayer(2, "Borin", guildID, 5000),
		loner:  newPlayer(3, "Cato", 0, 5000),
		npc:    &gamedb.Creature{Ref: 100, Name: "Reagent Banker", Script: ScriptName},
	}
	world.Guilds[guildID] = &gamedb.Guild{ID: guildID, Name: "Eisenfaust", Leader: env.leader.Ref}
	for _, p := range []*gamedb.Player{env.leader, env.member, env.loner} {
		world.Players[p.Ref] = p
	}
	world.Creatures[env.npc.Ref] = env.npc

	env.banker = New(Deps{
		Ledger:  l,
		Guilds:  world,
		Items:   items,
		Text:    env.text,
		Metrics: NewMetrics(prometheus.NewRegistry()),
		Log:     zap.NewNop(),
	})
	return env
}

func (e *testEnv) msg(key string, args ...any) string {
	return e.text.Sprintf("de-DE", key, args...)
}

func (e *testEnv) give(t *testing.T, p *gamedb.Player, entry, n uint32) {
	t.Helper()
	tmpl, ok := e.items.Get(entry)
	if !ok {
		t.Fatalf("no template %d", entry)
	}
	if _, err := p.Inv.StoreNew(entry, n, tmpl.MaxStackSize()); err != nil {
		t.Fatalf("give %d x %d: %v", n, entry, err)
	}
}

func (e *testEnv) equipBags(t *testing.T, p *gamedb.Player) {
	t.Helper()
	for pos := gamedb.BagSlotStart; pos < gamedb.BagSlotEnd; pos++ {
		if err := p.Inv.EquipBag(pos, 4500, gamedb.MaxBagSize); err != nil {
			t.Fatalf("EquipBag: %v", err)
		}
	}
}

func (e *testEnv) buySpace(t *testing.T, n uint32) {
	t.Helper()
	if _, err := e.store.AddCapacity(e.ctx, guildID, n); err != nil {
		t.Fatalf("AddCapacity: %v", err)
	}
}

func (e *testEnv) stored(t *testing.T, entry uint32) uint32 {
	t.Helper()
	n, err := e.store.Amount(e.ctx, guildID, entry)
	if err != nil {
		return 0
	}
	return n
}

// flakyLedger fails selected writes and delegates everything else.
type flakyLedger struct {
	Ledger
	depositErr  error
	capacityErr error
}

func (f *flakyLedger) Deposit(ctx context.Context, guild gamedb.GuildID, credits []ledger.Credit) error {
	if f.depositErr != nil {
		return f.depositErr
	}
	return f.Ledger.Deposit(ctx, guild, credits)
}

func (f *flakyLedger) AddCapacity(ctx context.Context, guild gamedb.GuildID, inc uint32) (uint32, error) {
	if f.capacityErr != nil {
		return 0, f.capacityErr
	}
	return f.Ledger.AddCapacity(ctx, guild, inc)
}
