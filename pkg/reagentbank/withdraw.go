package reagentbank

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/crystal-mush/reagentbank/pkg/ledger"
	"github.com/crystal-mush/reagentbank/pkg/scripts"
)

// Withdraw moves at most one stack of item from the guild bank into the
// player's inventory. A missing ledger row is a silent no-op returning 0.
func (b *Banker) Withdraw(ctx context.Context, s scripts.Session, item uint32) (uint32, error) {
	n, err := b.withdraw(ctx, s, item)
	b.deps.Metrics.op("withdraw", result(err))
	if err != nil {
		if !errors.Is(err, errEquip) {
			b.tell(s, err)
		}
		return 0, err
	}
	return n, nil
}

// errEquip marks failures already reported through SendEquipError.
var errEquip = errors.New("equip error")

func (b *Banker) withdraw(ctx context.Context, s scripts.Session, item uint32) (uint32, error) {
	p := s.Player()
	if b.deps.Guilds.GuildOf(p) == nil {
		return 0, ErrNoGuild
	}

	stored, err := b.deps.Ledger.Amount(ctx, p.GuildID, item)
	if errors.Is(err, ledger.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		b.log.Error("read bank amount failed", zap.String("player", p.Name), zap.Uint32("item", item), zap.Error(err))
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	t, ok := b.deps.Items.Get(item)
	if !ok {
		return 0, fmt.Errorf("item %d: %w", item, ErrItemNotFound)
	}
	maxStack := t.MaxStackSize()
	amount := min(stored, maxStack)

	if err := p.Inv.CanStoreNew(item, amount, maxStack); err != nil {
		s.SendEquipError(err, item)
		return 0, fmt.Errorf("%w: %w", errEquip, err)
	}

	taken, err := b.deps.Ledger.Withdraw(ctx, p.GuildID, item, amount)
	if errors.Is(err, ledger.ErrNotFound) {
		// Another guild member emptied the row in between.
		return 0, nil
	}
	if err != nil {
		b.log.Error("withdraw failed", zap.String("player", p.Name), zap.Uint32("item", item), zap.Error(err))
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if _, err := p.Inv.StoreNew(item, taken, maxStack); err != nil {
		// Put the units back so they are not lost.
		sub, _ := Bucket(t)
		credit := []ledger.Credit{{ItemEntry: item, Subclass: sub, Amount: taken}}
		if rerr := b.deps.Ledger.Deposit(ctx, p.GuildID, credit); rerr != nil {
			b.log.Error("re-credit after failed store lost items",
				zap.String("player", p.Name), zap.Uint32("item", item), zap.Uint32("amount", taken), zap.Error(rerr))
		}
		s.SendEquipError(err, item)
		return 0, fmt.Errorf("%w: %w", errEquip, err)
	}

	s.SendNewItem(item, taken)
	b.log.Debug("withdrawn",
		zap.String("player", p.Name),
		zap.Uint32("guild", uint32(p.GuildID)),
		zap.Uint32("item", item),
		zap.Uint32("amount", taken))
	b.deps.Metrics.withdrawn(taken)
	b.save(p)
	return taken, nil
}
