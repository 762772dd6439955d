package ledger

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/crystal-mush/reagentbank/pkg/gamedb"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "ledger.db"), 5)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCapacityDefaultsToZero(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	u, err := s.Usage(ctx, 7)
	if err != nil {
		t.Fatalf("Usage: %v", err)
	}
	if u.Capacity != 0 || u.Used != 0 || u.Free() != 0 {
		t.Errorf("fresh guild usage = %+v, want zeros", u)
	}
}

func TestAddCapacityIsAdditive(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for i, want := range []uint32{1000, 2000} {
		got, err := s.AddCapacity(ctx, 1, 1000)
		if err != nil {
			t.Fatalf("AddCapacity #%d: %v", i+1, err)
		}
		if got != want {
			t.Errorf("AddCapacity #%d = %d, want %d", i+1, got, want)
		}
	}
	if c, _ := s.Capacity(ctx, 2); c != 0 {
		t.Errorf("other guild capacity = %d, want 0", c)
	}
}

func TestCapacitySaturates(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		got, err := s.AddCapacity(ctx, 1, math.MaxUint32)
		if err != nil {
			t.Fatalf("AddCapacity #%d: %v", i+1, err)
		}
		if got != math.MaxUint32 {
			t.Errorf("AddCapacity #%d = %d, want %d", i+1, got, uint32(math.MaxUint32))
		}
	}
	if c, err := s.Capacity(ctx, 1); err != nil || c != math.MaxUint32 {
		t.Errorf("Capacity = %d, %v, want %d", c, err, uint32(math.MaxUint32))
	}
}

func TestDepositMergesBalances(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	err := s.Deposit(ctx, 1, []Credit{
		{ItemEntry: 2589, Subclass: gamedb.SubclassCloth, Amount: 20},
		{ItemEntry: 2772, Subclass: gamedb.SubclassMetalStone, Amount: 5},
	})
	if err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	if err := s.Deposit(ctx, 1, []Credit{{ItemEntry: 2589, Subclass: gamedb.SubclassCloth, Amount: 15}}); err != nil {
		t.Fatalf("second Deposit: %v", err)
	}

	amt, err := s.Amount(ctx, 1, 2589)
	if err != nil {
		t.Fatalf("Amount: %v", err)
	}
	if amt != 35 {
		t.Errorf("cloth amount = %d, want 35", amt)
	}
	used, err := s.UsedSpace(ctx, 1)
	if err != nil {
		t.Fatalf("UsedSpace: %v", err)
	}
	if used != 40 {
		t.Errorf("used = %d, want 40", used)
	}
}

func TestDepositSkipsZeroCredits(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Deposit(ctx, 1, []Credit{{ItemEntry: 2589, Subclass: gamedb.SubclassCloth}}); err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	if _, err := s.Amount(ctx, 1, 2589); !errors.Is(err, ErrNotFound) {
		t.Errorf("Amount err = %v, want ErrNotFound", err)
	}
}

func TestWithdrawPartialAndFull(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Deposit(ctx, 1, []Credit{{ItemEntry: 2589, Subclass: gamedb.SubclassCloth, Amount: 25}}); err != nil {
		t.Fatalf("Deposit: %v", err)
	}

	got, err := s.Withdraw(ctx, 1, 2589, 20)
	if err != nil {
		t.Fatalf("Withdraw: %v", err)
	}
	if got != 20 {
		t.Errorf("withdrew %d, want 20", got)
	}
	if amt, _ := s.Amount(ctx, 1, 2589); amt != 5 {
		t.Errorf("remaining = %d, want 5", amt)
	}

	got, err = s.Withdraw(ctx, 1, 2589, 20)
	if err != nil {
		t.Fatalf("second Withdraw: %v", err)
	}
	if got != 5 {
		t.Errorf("withdrew %d, want 5", got)
	}
	if _, err := s.Amount(ctx, 1, 2589); !errors.Is(err, ErrNotFound) {
		t.Errorf("row should be deleted, Amount err = %v", err)
	}
	if _, err := s.Withdraw(ctx, 1, 2589, 20); !errors.Is(err, ErrNotFound) {
		t.Errorf("Withdraw on empty err = %v, want ErrNotFound", err)
	}
}

func TestListCategoryOrderedByEntry(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	err := s.Deposit(ctx, 1, []Credit{
		{ItemEntry: 4306, Subclass: gamedb.SubclassCloth, Amount: 3},
		{ItemEntry: 2589, Subclass: gamedb.SubclassCloth, Amount: 1},
		{ItemEntry: 2772, Subclass: gamedb.SubclassMetalStone, Amount: 9},
	})
	if err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	if err := s.Deposit(ctx, 2, []Credit{{ItemEntry: 2996, Subclass: gamedb.SubclassCloth, Amount: 4}}); err != nil {
		t.Fatalf("Deposit guild 2: %v", err)
	}

	rows, err := s.ListCategory(ctx, 1, gamedb.SubclassCloth)
	if err != nil {
		t.Fatalf("ListCategory: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0].ItemEntry != 2589 || rows[1].ItemEntry != 4306 {
		t.Errorf("order = %d,%d, want 2589,4306", rows[0].ItemEntry, rows[1].ItemEntry)
	}

	all, err := s.ListGuild(ctx, 1)
	if err != nil {
		t.Fatalf("ListGuild: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("ListGuild returned %d rows, want 3", len(all))
	}
}

func TestListCategoryAsync(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Deposit(ctx, 1, []Credit{{ItemEntry: 2453, Subclass: gamedb.SubclassHerb, Amount: 12}}); err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	rows, err := s.ListCategoryAsync(1, gamedb.SubclassHerb).Wait()
	if err != nil {
		t.Fatalf("async list: %v", err)
	}
	if len(rows) != 1 || rows[0].Amount != 12 {
		t.Errorf("async rows = %+v", rows)
	}
}
