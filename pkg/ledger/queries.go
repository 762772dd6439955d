package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"

	"github.com/crystal-mush/reagentbank/pkg/asyncq"
	"github.com/crystal-mush/reagentbank/pkg/gamedb"
)

const (
	upsertAmount = `INSERT INTO custom_guild_reagent_bank (guild_id, item_entry, item_subclass, amount)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (guild_id, item_entry) DO UPDATE SET amount = amount + excluded.amount`
	selectAmount = `SELECT amount FROM custom_guild_reagent_bank WHERE guild_id = ? AND item_entry = ?`
	deleteAmount = `DELETE FROM custom_guild_reagent_bank WHERE guild_id = ? AND item_entry = ?`
	decAmount    = `UPDATE custom_guild_reagent_bank SET amount = amount - ? WHERE guild_id = ? AND item_entry = ?`
	selectUsed   = `SELECT COALESCE(SUM(amount), 0) FROM custom_guild_reagent_bank WHERE guild_id = ?`
	selectSpace  = `SELECT space FROM custom_guild_reagent_bank_size WHERE guild_id = ?`
	upsertSpace  = `INSERT INTO custom_guild_reagent_bank_size (guild_id, space)
		VALUES (?, ?)
		ON CONFLICT (guild_id) DO UPDATE SET space = space + excluded.space`
	selectCategory = `SELECT item_entry, item_subclass, amount FROM custom_guild_reagent_bank
		WHERE guild_id = ? AND item_subclass = ? ORDER BY item_entry`
	selectGuild = `SELECT item_entry, item_subclass, amount FROM custom_guild_reagent_bank
		WHERE guild_id = ? ORDER BY item_subclass, item_entry`
)

// clamp saturates a stored sum at the largest value the bank reports.
func clamp(n int64) uint32 {
	switch {
	case n <= 0:
		return 0
	case n > math.MaxUint32:
		return math.MaxUint32
	}
	return uint32(n)
}

// Capacity returns the guild's purchased space, 0 if it never bought any.
func (s *Store) Capacity(ctx context.Context, guild gamedb.GuildID) (uint32, error) {
	var space int64
	err := s.db.QueryRowContext(ctx, selectSpace, guild).Scan(&space)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("ledger: capacity of guild %d: %w", guild, err)
	}
	return clamp(space), nil
}

// UsedSpace returns the sum of all stored amounts for the guild.
func (s *Store) UsedSpace(ctx context.Context, guild gamedb.GuildID) (uint32, error) {
	var used int64
	if err := s.db.QueryRowContext(ctx, selectUsed, guild).Scan(&used); err != nil {
		return 0, fmt.Errorf("ledger: used space of guild %d: %w", guild, err)
	}
	return clamp(used), nil
}

// Usage returns capacity and used space for the guild.
func (s *Store) Usage(ctx context.Context, guild gamedb.GuildID) (Usage, error) {
	capacity, err := s.Capacity(ctx, guild)
	if err != nil {
		return Usage{}, err
	}
	used, err := s.UsedSpace(ctx, guild)
	if err != nil {
		return Usage{}, err
	}
	return Usage{Capacity: capacity, Used: used}, nil
}

// Amount returns the stored amount of an item, or ErrNotFound.
func (s *Store) Amount(ctx context.Context, guild gamedb.GuildID, item uint32) (uint32, error) {
	var amount int64
	err := s.db.QueryRowContext(ctx, selectAmount, guild, item).Scan(&amount)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("ledger: amount of item %d for guild %d: %w", item, guild, err)
	}
	return uint32(amount), nil
}

// Deposit adds every credit to the guild's balances in one transaction.
// Either all credits are applied or none are.
func (s *Store) Deposit(ctx context.Context, guild gamedb.GuildID, credits []Credit) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ledger: begin deposit: %w", err)
	}
	defer tx.Rollback()

	for _, c := range credits {
		if c.Amount == 0 {
			continue
		}
		if _, err := tx.ExecContext(ctx, upsertAmount, guild, c.ItemEntry, c.Subclass, c.Amount); err != nil {
			return fmt.Errorf("ledger: deposit item %d: %w", c.ItemEntry, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ledger: commit deposit: %w", err)
	}
	return nil
}

// Withdraw takes up to max units of an item out of the guild's balance. The
// row is deleted when the withdrawal empties it. It returns the number of
// units actually taken, or ErrNotFound if nothing is stored.
func (s *Store) Withdraw(ctx context.Context, guild gamedb.GuildID, item, max uint32) (uint32, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("ledger: begin withdraw: %w", err)
	}
	defer tx.Rollback()

	var stored int64
	err = tx.QueryRowContext(ctx, selectAmount, guild, item).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("ledger: withdraw item %d: %w", item, err)
	}

	take := min(uint32(stored), max)
	if uint32(stored) <= take {
		_, err = tx.ExecContext(ctx, deleteAmount, guild, item)
	} else {
		_, err = tx.ExecContext(ctx, decAmount, take, guild, item)
	}
	if err != nil {
		return 0, fmt.Errorf("ledger: withdraw item %d: %w", item, err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("ledger: commit withdraw: %w", err)
	}
	return take, nil
}

// AddCapacity adds increment to the guild's capacity, creating the row on the
// first purchase. It returns the new capacity.
func (s *Store) AddCapacity(ctx context.Context, guild gamedb.GuildID, increment uint32) (uint32, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("ledger: begin capacity: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, upsertSpace, guild, increment); err != nil {
		return 0, fmt.Errorf("ledger: add capacity for guild %d: %w", guild, err)
	}
	var space int64
	if err := tx.QueryRowContext(ctx, selectSpace, guild).Scan(&space); err != nil {
		return 0, fmt.Errorf("ledger: read capacity for guild %d: %w", guild, err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("ledger: commit capacity: %w", err)
	}
	return clamp(space), nil
}

// ListCategory returns the guild's rows in one subclass bucket, ordered by item entry.
func (s *Store) ListCategory(ctx context.Context, guild gamedb.GuildID, subclass gamedb.Subclass) ([]Entry, error) {
	return s.list(ctx, selectCategory, guild, guild, subclass)
}

// ListGuild returns every row of the guild ordered by subclass, then item entry.
func (s *Store) ListGuild(ctx context.Context, guild gamedb.GuildID) ([]Entry, error) {
	return s.list(ctx, selectGuild, guild, guild)
}

// ListCategoryAsync runs ListCategory off the caller's goroutine.
func (s *Store) ListCategoryAsync(guild gamedb.GuildID, subclass gamedb.Subclass) *asyncq.Future[[]Entry] {
	return asyncq.Go(func() ([]Entry, error) {
		ctx, cancel := s.ctx()
		defer cancel()
		return s.ListCategory(ctx, guild, subclass)
	})
}

func (s *Store) list(ctx context.Context, query string, guild gamedb.GuildID, args ...any) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ledger: list guild %d: %w", guild, err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			item, subclass, amount int64
		)
		if err := rows.Scan(&item, &subclass, &amount); err != nil {
			return nil, fmt.Errorf("ledger: scan guild %d: %w", guild, err)
		}
		out = append(out, Entry{
			GuildID:   guild,
			ItemEntry: uint32(item),
			Subclass:  gamedb.Subclass(subclass),
			Amount:    uint32(amount),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ledger: list guild %d: %w", guild, err)
	}
	return out, nil
}
