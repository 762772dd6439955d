package reagentbank

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/crystal-mush/reagentbank/pkg/asyncq"
	"github.com/crystal-mush/reagentbank/pkg/gamedb"
	"github.com/crystal-mush/reagentbank/pkg/gossip"
	"github.com/crystal-mush/reagentbank/pkg/ledger"
	"github.com/crystal-mush/reagentbank/pkg/locale"
	"github.com/crystal-mush/reagentbank/pkg/scripts"
)

// Category is one entry of the main menu.
type Category struct {
	Subclass gamedb.Subclass
	Icon     uint32 // item whose icon is shown
	Label    string // message key
}

// Categories lists the main menu in display order.
var Categories = []Category{
	{gamedb.SubclassTradeGoods, 4470, "category.trade_goods"},
	{gamedb.SubclassParts, 4359, "category.parts"},
	{gamedb.SubclassExplosives, 4358, "category.explosives"},
	{gamedb.SubclassDevices, 4388, "category.devices"},
	{gamedb.SubclassJewelcrafting, 1206, "category.jewelcrafting"},
	{gamedb.SubclassCloth, 2589, "category.cloth"},
	{gamedb.SubclassLeather, 2318, "category.leather"},
	{gamedb.SubclassMetalStone, 2772, "category.metal_stone"},
	{gamedb.SubclassMeat, 12208, "category.meat"},
	{gamedb.SubclassHerb, 2453, "category.herb"},
	{gamedb.SubclassElemental, 7068, "category.elemental"},
	{gamedb.SubclassEnchanting, 10940, "category.enchanting"},
	{gamedb.SubclassMaterial, 23572, "category.material"},
	{gamedb.SubclassTradeGoodsOther, 2604, "category.other"},
	{gamedb.SubclassArmorEnchantment, 38682, "category.armor_enchantment"},
	{gamedb.SubclassWeaponEnchantment, 39349, "category.weapon_enchantment"},
}

const backIcon = "Interface/ICONS/Ability_Spy"

func (b *Banker) icon(entry uint32) string {
	t, _ := b.deps.Items.Get(entry)
	return locale.ItemIcon(t, 30, 30, -18, 0)
}

// MainMenu builds the top-level menu for the session's player. Players
// without a guild only get the explanation; guild leaders also get the
// capacity purchase.
func (b *Banker) MainMenu(s scripts.Session) *gossip.Menu {
	p := s.Player()
	m := &gossip.Menu{TextID: b.cfg.TextID, Text: b.text(s, locale.NPCGreeting)}

	if b.deps.Guilds.GuildOf(p) == nil {
		m.Add(gossip.IconChat, b.text(s, locale.MenuExplain), 0, CodeExplanation)
	} else {
		for _, c := range Categories {
			m.Add(gossip.IconMoneyBag, b.icon(c.Icon)+b.text(s, c.Label), 0, uint32(c.Subclass))
		}
		m.Add(gossip.IconMoneyBag, b.text(s, locale.MenuDepositAll), 0, CodeDepositAll)
	}

	if b.deps.Guilds.IsGuildLeader(p) {
		gold := int64(b.cfg.StorageCost / gamedb.Gold)
		m.Add(gossip.IconMoneyBag, b.text(s, locale.MenuBuySpace, gold, b.cfg.StorageIncrement), 0, CodeBuyCapacity)
	}
	return m
}

// ExplanationMenu builds the one-shot explanation screen.
func (b *Banker) ExplanationMenu(s scripts.Session) *gossip.Menu {
	return &gossip.Menu{TextID: b.cfg.ExplanationTextID, Text: b.text(s, locale.NPCExplanation)}
}

// CategoryMenu renders page of a category listing. rows must be ordered by
// item entry. Page k shows rows [kP, min((k+1)P, N)).
func (b *Banker) CategoryMenu(s scripts.Session, subclass gamedb.Subclass, page uint32, rows []ledger.Entry) *gossip.Menu {
	m := &gossip.Menu{TextID: b.cfg.TextID}
	loc := s.Locale()
	size := b.cfg.PageSize
	n := len(rows)

	start := int(page) * size
	end := min(start+size, n)
	for i := start; i < end; i++ {
		row := rows[i]
		t, ok := b.deps.Items.Get(row.ItemEntry)
		if !ok {
			t = &gamedb.ItemTemplate{Entry: row.ItemEntry, Name: fmt.Sprintf("Item #%d", row.ItemEntry)}
		}
		label := fmt.Sprintf("%s%s (%d)", locale.ItemIcon(t, 30, 30, -18, 0), locale.ItemLink(t, loc), row.Amount)
		m.Add(gossip.IconMoneyBag, label, page, row.ItemEntry)
	}

	if page > 0 {
		m.Add(gossip.IconChat, b.text(s, locale.MenuPrevious), page-1, uint32(subclass))
	}
	if (int(page)+1)*size < n {
		m.Add(gossip.IconChat, b.text(s, locale.MenuNext), page+1, uint32(subclass))
	}
	m.Add(gossip.IconMoneyBag, locale.Texture(backIcon, 30, 30, -18, 0)+b.text(s, locale.MenuBack), 0, CodeMainMenu)
	return m
}

// ShowCategory queries the category asynchronously and sends the page once
// the session's query processor runs the callback. A failed query shows an
// empty listing.
func (b *Banker) ShowCategory(s scripts.Session, npc *gamedb.Creature, subclass gamedb.Subclass, page uint32) {
	p := s.Player()
	fut := b.deps.Ledger.ListCategoryAsync(p.GuildID, subclass)
	asyncq.AddCallback(s.Queries(), fut, func(rows []ledger.Entry, err error) {
		if err != nil {
			b.log.Warn("list category failed",
				zap.String("player", p.Name),
				zap.Uint32("guild", uint32(p.GuildID)),
				zap.Uint32("subclass", uint32(subclass)),
				zap.Error(err))
			rows = nil
		}
		b.deps.Metrics.op("list", result(err))
		s.SendGossipMenu(npc, b.CategoryMenu(s, subclass, page, rows))
	})
}

// OnGossipHello implements scripts.CreatureScript.
func (b *Banker) OnGossipHello(s scripts.Session, npc *gamedb.Creature) bool {
	s.SendGossipMenu(npc, b.MainMenu(s))
	return true
}

// OnGossipSelect implements scripts.CreatureScript.
func (b *Banker) OnGossipSelect(s scripts.Session, npc *gamedb.Creature, page, code uint32) bool {
	act, err := Decode(code, page)
	if err != nil {
		b.log.Debug("ignoring gossip selection", zap.String("player", s.Player().Name), zap.Error(err))
		s.SendGossipMenu(npc, b.MainMenu(s))
		return true
	}

	ctx, cancel := b.opContext()
	defer cancel()

	switch act.Kind {
	case KindWithdraw:
		_, err := b.Withdraw(ctx, s, act.Item)
		t, ok := b.deps.Items.Get(act.Item)
		if !ok || errors.Is(err, ErrNoGuild) {
			s.SendGossipMenu(npc, b.MainMenu(s))
			return true
		}
		sub, ok := Bucket(t)
		if !ok {
			sub = t.SubClass
		}
		b.ShowCategory(s, npc, sub, act.Page)
	case KindDepositAll:
		b.DepositAll(ctx, s)
		s.CloseGossipMenu()
	case KindExplanation:
		s.SendGossipMenu(npc, b.ExplanationMenu(s))
	case KindBuyCapacity:
		b.BuyCapacity(ctx, s)
		s.SendGossipMenu(npc, b.MainMenu(s))
	case KindOpenCategory:
		if b.deps.Guilds.GuildOf(s.Player()) == nil {
			b.tell(s, ErrNoGuild)
			s.SendGossipMenu(npc, b.MainMenu(s))
			return true
		}
		b.ShowCategory(s, npc, act.Subclass, act.Page)
	default:
		s.SendGossipMenu(npc, b.MainMenu(s))
	}
	return true
}
