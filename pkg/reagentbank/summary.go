package reagentbank

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/crystal-mush/reagentbank/pkg/ledger"
	"github.com/crystal-mush/reagentbank/pkg/locale"
	"github.com/crystal-mush/reagentbank/pkg/scripts"
)

// Summary tells the player how much of the guild's storage is in use.
func (b *Banker) Summary(ctx context.Context, s scripts.Session) (ledger.Usage, error) {
	p := s.Player()
	if b.deps.Guilds.GuildOf(p) == nil {
		b.tell(s, ErrNoGuild)
		return ledger.Usage{}, ErrNoGuild
	}
	u, err := b.deps.Ledger.Usage(ctx, p.GuildID)
	if err != nil {
		b.log.Error("read usage failed", zap.String("player", p.Name), zap.Uint32("guild", uint32(p.GuildID)), zap.Error(err))
		b.tell(s, ErrUnavailable)
		return ledger.Usage{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	s.SendSysMessage(b.text(s, locale.BankSummary, u.Used, u.Capacity, u.Free()))
	return u, nil
}
