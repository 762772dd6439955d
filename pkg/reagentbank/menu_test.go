package reagentbank

import (
	"strings"
	"testing"

	"github.com/crystal-mush/reagentbank/pkg/gamedb"
	"github.com/crystal-mush/reagentbank/pkg/gossip"
	"github.com/crystal-mush/reagentbank/pkg/ledger"
	"github.com/crystal-mush/reagentbank/pkg/locale"
)

func codes(m *gossip.Menu) []uint32 {
	out := make([]uint32, len(m.Options))
	for i, o := range m.Options {
		out[i] = o.Code
	}
	return out
}

func TestMainMenuByRank(t *testing.T) {
	env := newTestEnv(t)

	loner := env.banker.MainMenu(newFakeSession(env.loner))
	if got := codes(loner); len(got) != 1 || got[0] != CodeExplanation {
		t.Errorf("loner menu codes = %v, want [explanation]", got)
	}

	member := env.banker.MainMenu(newFakeSession(env.member))
	if member.Len() != len(Categories)+1 {
		t.Fatalf("member menu has %d options, want %d", member.Len(), len(Categories)+1)
	}
	if last, _ := member.Option(member.Len() - 1); last.Code != CodeDepositAll {
		t.Errorf("member last option = %+v, want deposit all", last)
	}
	if _, ok := member.Find(0, CodeBuyCapacity); ok {
		t.Error("member must not see the capacity purchase")
	}
	first, _ := member.Option(0)
	if first.Code != uint32(gamedb.SubclassTradeGoods) || !strings.Contains(first.Text, "INV_TradeskillItem_01") || !strings.HasSuffix(first.Text, "Handelswaren") {
		t.Errorf("first category = %q", first.Text)
	}

	leader := env.banker.MainMenu(newFakeSession(env.leader))
	if leader.Len() != len(Categories)+2 {
		t.Fatalf("leader menu has %d options, want %d", leader.Len(), len(Categories)+2)
	}
	buy, ok := leader.Find(0, CodeBuyCapacity)
	if !ok {
		t.Fatal("leader menu lacks the capacity purchase")
	}
	if want := env.msg(locale.MenuBuySpace, int64(1000), uint32(1000)); buy.Text != want {
		t.Errorf("buy option = %q, want %q", buy.Text, want)
	}
	if leader.TextID != 4259 {
		t.Errorf("TextID = %d, want 4259", leader.TextID)
	}
}

func rowsOf(n int) []ledger.Entry {
	rows := make([]ledger.Entry, n)
	for i := range rows {
		rows[i] = ledger.Entry{GuildID: guildID, ItemEntry: uint32(1000 + i), Subclass: gamedb.SubclassHerb, Amount: uint32(i + 1)}
	}
	return rows
}

func TestCategoryMenuPagination(t *testing.T) {
	env := newTestEnv(t)
	s := newFakeSession(env.member)
	const size = 23

	tests := []struct {
		name       string
		rows, page int
		items      int
		prev, next bool
	}{
		{"empty", 0, 0, 0, false, false},
		{"single page", 5, 0, 5, false, false},
		{"exact page", 23, 0, 23, false, false},
		{"first of three", 50, 0, 23, false, true},
		{"middle", 50, 1, 23, true, true},
		{"last partial", 50, 2, 4, true, false},
		{"last exact", 46, 1, 23, true, false},
		{"past the end", 10, 3, 0, true, false},
	}
	for _, tt := range tests {
		m := env.banker.CategoryMenu(s, gamedb.SubclassHerb, uint32(tt.page), rowsOf(tt.rows))

		items := 0
		for _, o := range m.Options {
			if o.Code > MaxActionCode {
				items++
				if o.Page != uint32(tt.page) {
					t.Errorf("%s: item option page = %d, want %d", tt.name, o.Page, tt.page)
				}
			}
		}
		if items != tt.items {
			t.Errorf("%s: %d items, want %d", tt.name, items, tt.items)
		}
		if tt.items > 0 {
			first, _ := m.Option(0)
			if want := uint32(1000 + tt.page*size); first.Code != want {
				t.Errorf("%s: first item = %d, want %d", tt.name, first.Code, want)
			}
		}

		_, prev := m.Find(uint32(tt.page)-1, uint32(gamedb.SubclassHerb))
		if tt.page == 0 {
			prev = false
		}
		_, next := m.Find(uint32(tt.page)+1, uint32(gamedb.SubclassHerb))
		if prev != tt.prev || next != tt.next {
			t.Errorf("%s: prev=%v next=%v, want prev=%v next=%v", tt.name, prev, next, tt.prev, tt.next)
		}

		last, _ := m.Option(m.Len() - 1)
		if last.Code != CodeMainMenu {
			t.Errorf("%s: last option = %+v, want back", tt.name, last)
		}
	}
}

func TestCategoryMenuRowMarkup(t *testing.T) {
	env := newTestEnv(t)
	s := newFakeSession(env.member)
	rows := []ledger.Entry{{GuildID: guildID, ItemEntry: linen, Subclass: gamedb.SubclassCloth, Amount: 42}}

	m := env.banker.CategoryMenu(s, gamedb.SubclassCloth, 0, rows)
	o, _ := m.Option(0)
	want := "|TInterface/ICONS/INV_Fabric_Linen_01:30:30:-18:0|t|cffffffff|Hitem:2589:0|h[Leinenstoff]|h|r (42)"
	if o.Text != want {
		t.Errorf("row = %q, want %q", o.Text, want)
	}
}

func TestSelectCategoryRendersAfterQuery(t *testing.T) {
	env := newTestEnv(t)
	seed(t, env, linen, gamedb.SubclassCloth, 7)
	seed(t, env, ironOre, gamedb.SubclassMetalStone, 9)
	s := newFakeSession(env.member)

	env.banker.OnGossipSelect(s, env.npc, 0, uint32(gamedb.SubclassCloth))
	if s.q.Pending() != 1 {
		t.Fatalf("pending callbacks = %d, want 1", s.q.Pending())
	}
	s.drain(t)

	m := s.lastMenu()
	if m == nil {
		t.Fatal("no menu sent")
	}
	if _, ok := m.Find(0, linen); !ok {
		t.Errorf("cloth listing lacks linen: %v", codes(m))
	}
	if _, ok := m.Find(0, ironOre); ok {
		t.Error("cloth listing shows iron ore")
	}
}

func TestSelectWithdrawGemReturnsToJewelcrafting(t *testing.T) {
	env := newTestEnv(t)
	seed(t, env, malachite, gamedb.SubclassJewelcrafting, 25)
	s := newFakeSession(env.member)

	env.banker.OnGossipSelect(s, env.npc, 0, malachite)
	if len(s.newItems) != 1 || s.newItems[0].Count != 20 {
		t.Fatalf("notifications = %v", s.newItems)
	}
	s.drain(t)

	m := s.lastMenu()
	o, ok := m.Find(0, malachite)
	if !ok {
		t.Fatalf("jewelcrafting listing lacks malachite: %v", codes(m))
	}
	if !strings.HasSuffix(o.Text, "(5)") {
		t.Errorf("row = %q, want remaining (5)", o.Text)
	}
}

func TestSelectDepositClosesMenu(t *testing.T) {
	env := newTestEnv(t)
	env.buySpace(t, 100)
	env.give(t, env.member, linen, 20)
	s := newFakeSession(env.member)

	env.banker.OnGossipSelect(s, env.npc, 0, CodeDepositAll)
	if s.closed != 1 {
		t.Errorf("closed = %d, want 1", s.closed)
	}
	if got := env.stored(t, linen); got != 20 {
		t.Errorf("ledger = %d, want 20", got)
	}
}

func TestSelectBuyRedisplaysMainMenu(t *testing.T) {
	env := newTestEnv(t)
	s := newFakeSession(env.leader)

	env.banker.OnGossipSelect(s, env.npc, 0, CodeBuyCapacity)
	if m := s.lastMenu(); m == nil || m.Len() != len(Categories)+2 {
		t.Errorf("expected main menu after purchase, got %+v", m)
	}
	if c, _ := env.store.Capacity(env.ctx, guildID); c != 1000 {
		t.Errorf("capacity = %d, want 1000", c)
	}
}

func TestSelectExplanationAndUnknown(t *testing.T) {
	env := newTestEnv(t)
	s := newFakeSession(env.loner)

	env.banker.OnGossipSelect(s, env.npc, 0, CodeExplanation)
	if m := s.lastMenu(); m == nil || m.TextID != 90000001 || m.Len() != 0 {
		t.Errorf("explanation menu = %+v", m)
	}

	env.banker.OnGossipSelect(s, env.npc, 0, 500)
	if m := s.lastMenu(); m == nil || m.TextID != 4259 {
		t.Errorf("unknown code should show the main menu, got %+v", m)
	}
}

func TestCancelledSessionDropsListing(t *testing.T) {
	env := newTestEnv(t)
	seed(t, env, linen, gamedb.SubclassCloth, 7)
	s := newFakeSession(env.member)

	env.banker.ShowCategory(s, env.npc, gamedb.SubclassCloth, 0)
	s.q.Cancel()
	s.q.Process()

	if len(s.menus) != 0 {
		t.Errorf("menus sent after cancel: %d", len(s.menus))
	}
}

func TestTradeGoodsCategoryRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	env.buySpace(t, 100)
	env.give(t, env.member, simpleWood, 30)
	s := newFakeSession(env.member)

	env.banker.OnGossipSelect(s, env.npc, 0, CodeDepositAll)
	if got := env.stored(t, simpleWood); got != 30 {
		t.Fatalf("ledger = %d, want 30", got)
	}

	env.banker.OnGossipHello(s, env.npc)
	if _, ok := s.lastMenu().Find(0, uint32(gamedb.SubclassTradeGoods)); !ok {
		t.Fatal("main menu has no trade goods category")
	}

	env.banker.OnGossipSelect(s, env.npc, 0, uint32(gamedb.SubclassTradeGoods))
	s.drain(t)
	if _, ok := s.lastMenu().Find(0, simpleWood); !ok {
		t.Fatalf("trade goods listing = %+v", s.lastMenu())
	}

	env.banker.OnGossipSelect(s, env.npc, 0, simpleWood)
	s.drain(t)
	if n := env.member.Inv.Count(simpleWood); n != 20 {
		t.Errorf("inventory = %d, want 20", n)
	}
	if got := env.stored(t, simpleWood); got != 10 {
		t.Errorf("ledger = %d, want 10", got)
	}
}
