package reagentbank

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/crystal-mush/reagentbank/pkg/locale"
	"github.com/crystal-mush/reagentbank/pkg/scripts"
)

// BuyCapacity charges the guild leader the storage cost and adds the storage
// increment to the guild's capacity. It returns the new capacity.
func (b *Banker) BuyCapacity(ctx context.Context, s scripts.Session) (uint32, error) {
	space, err := b.buyCapacity(ctx, s)
	b.deps.Metrics.op("buy_capacity", result(err))
	if err != nil {
		b.tell(s, err)
		return 0, err
	}
	s.SendSysMessage(b.text(s, locale.BankBoughtSpace, b.cfg.StorageIncrement))
	return space, nil
}

func (b *Banker) buyCapacity(ctx context.Context, s scripts.Session) (uint32, error) {
	p := s.Player()
	if !b.deps.Guilds.IsGuildLeader(p) {
		return 0, ErrNotLeader
	}
	cost := b.cfg.StorageCost
	if !p.HasEnoughMoney(cost) || !p.ModifyMoney(-cost) {
		return 0, ErrNotEnoughMoney
	}

	space, err := b.deps.Ledger.AddCapacity(ctx, p.GuildID, b.cfg.StorageIncrement)
	if err != nil {
		p.ModifyMoney(cost)
		b.log.Error("add capacity failed, refunded",
			zap.String("player", p.Name), zap.Uint32("guild", uint32(p.GuildID)), zap.Error(err))
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	b.log.Info("capacity purchased",
		zap.String("player", p.Name),
		zap.Uint32("guild", uint32(p.GuildID)),
		zap.Uint32("space", space))
	b.deps.Metrics.purchased()
	b.save(p)
	return space, nil
}
