package reagentbank

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/crystal-mush/reagentbank/pkg/ledger"
	"github.com/crystal-mush/reagentbank/pkg/locale"
	"github.com/crystal-mush/reagentbank/pkg/scripts"
)

// allotment is the part of a candidate granted bank space.
type allotment struct {
	cand   *Candidate
	amount uint32
}

// allocate hands out free space first come first served in ascending item
// entry order. Entries left without space are omitted.
func allocate(e Eligible, free uint32) []allotment {
	var out []allotment
	for _, c := range e.Candidates() {
		amount := min(c.Count, free)
		if amount == 0 {
			continue
		}
		out = append(out, allotment{cand: c, amount: amount})
		free -= amount
	}
	return out
}

// DepositAll moves every eligible reagent of the player into the guild bank,
// as far as free space allows, and reports the outcome to the player. It
// returns the number of units deposited.
func (b *Banker) DepositAll(ctx context.Context, s scripts.Session) (uint32, error) {
	n, err := b.depositAll(ctx, s)
	b.deps.Metrics.op("deposit", result(err))
	if err != nil {
		b.tell(s, err)
		return 0, err
	}
	s.SendSysMessage(b.text(s, locale.BankDeposited, n))
	return n, nil
}

func (b *Banker) depositAll(ctx context.Context, s scripts.Session) (uint32, error) {
	p := s.Player()
	if b.deps.Guilds.GuildOf(p) == nil {
		return 0, ErrNoGuild
	}

	eligible := Collect(p.Inv, b.deps.Items)
	if eligible.Empty() {
		return 0, ErrNothingToDeposit
	}

	usage, err := b.deps.Ledger.Usage(ctx, p.GuildID)
	if err != nil {
		b.log.Error("read bank usage failed", zap.String("player", p.Name), zap.Uint32("guild", uint32(p.GuildID)), zap.Error(err))
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if usage.Capacity == 0 {
		return 0, ErrNoStorage
	}
	free := usage.Free()
	if free == 0 {
		return 0, ErrBankFull
	}

	plan := allocate(eligible, free)
	if len(plan) == 0 {
		return 0, ErrNoSpace
	}

	credits := make([]ledger.Credit, len(plan))
	for i, a := range plan {
		credits[i] = ledger.Credit{ItemEntry: a.cand.Entry, Subclass: a.cand.Subclass, Amount: a.amount}
	}
	if err := b.deps.Ledger.Deposit(ctx, p.GuildID, credits); err != nil {
		b.log.Error("deposit failed", zap.String("player", p.Name), zap.Uint32("guild", uint32(p.GuildID)), zap.Error(err))
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var total uint32
	for _, a := range plan {
		remove := a.amount
		for _, loc := range a.cand.Locations {
			if remove == 0 {
				break
			}
			n := min(loc.Count, remove)
			if err := p.Inv.DestroyCount(loc.Bag, loc.Slot, n); err != nil {
				// The ledger already holds these units.
				b.log.Error("remove deposited item failed",
					zap.String("player", p.Name), zap.Uint32("item", a.cand.Entry), zap.Error(err))
				continue
			}
			remove -= n
		}
		total += a.amount
		b.log.Debug("deposited",
			zap.String("player", p.Name),
			zap.Uint32("guild", uint32(p.GuildID)),
			zap.Uint32("item", a.cand.Entry),
			zap.Uint32("amount", a.amount))
	}
	b.deps.Metrics.deposited(total)
	b.save(p)
	return total, nil
}
