package gamedb

import (
	"errors"
	"testing"
)

func TestInventoryForEachOrder(t *testing.T) {
	inv := NewInventory()
	if err := inv.EquipBag(20, 4500, 4); err != nil {
		t.Fatalf("EquipBag: %v", err)
	}
	if err := inv.EquipBag(19, 4500, 2); err != nil {
		t.Fatalf("EquipBag: %v", err)
	}
	inv.Put(20, 1, Item{Entry: 3, Count: 1})
	inv.Put(19, 0, Item{Entry: 2, Count: 1})
	inv.Put(BagBackpack, 5, Item{Entry: 1, Count: 1})

	var got []uint32
	inv.ForEach(func(_, _ uint8, it Item) { got = append(got, it.Entry) })
	want := []uint32{1, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestInventoryDestroyCount(t *testing.T) {
	inv := NewInventory()
	inv.Put(BagBackpack, 0, Item{Entry: 2589, Count: 20})

	if err := inv.DestroyCount(BagBackpack, 0, 5); err != nil {
		t.Fatalf("DestroyCount: %v", err)
	}
	if it, _ := inv.ItemAt(BagBackpack, 0); it.Count != 15 {
		t.Errorf("expected 15 left, got %d", it.Count)
	}
	if err := inv.DestroyCount(BagBackpack, 0, 15); err != nil {
		t.Fatalf("DestroyCount: %v", err)
	}
	if _, ok := inv.ItemAt(BagBackpack, 0); ok {
		t.Error("expected slot to be empty")
	}
	if err := inv.DestroyCount(BagBackpack, 0, 1); !errors.Is(err, ErrNotEnoughItems) {
		t.Errorf("expected ErrNotEnoughItems, got %v", err)
	}
	if err := inv.DestroyCount(21, 0, 1); !errors.Is(err, ErrBagSlot) {
		t.Errorf("expected ErrBagSlot for missing bag, got %v", err)
	}
}

func TestInventoryStoreNewMergesFirst(t *testing.T) {
	inv := NewInventory()
	inv.Put(BagBackpack, 3, Item{Entry: 2589, Count: 15})

	dest, err := inv.StoreNew(2589, 10, 20)
	if err != nil {
		t.Fatalf("StoreNew: %v", err)
	}
	if len(dest) != 2 {
		t.Fatalf("expected 2 destinations, got %+v", dest)
	}
	if dest[0].Slot != 3 || dest[0].Count != 5 {
		t.Errorf("expected merge of 5 into slot 3, got %+v", dest[0])
	}
	if dest[1].Slot != 0 || dest[1].Count != 5 {
		t.Errorf("expected 5 into slot 0, got %+v", dest[1])
	}
	if got := inv.Count(2589); got != 25 {
		t.Errorf("expected 25 total, got %d", got)
	}
}

func TestInventoryCanStoreNewFull(t *testing.T) {
	inv := NewInventory()
	for i := 0; i < BackpackSize; i++ {
		inv.Put(BagBackpack, uint8(i), Item{Entry: 1, Count: 1})
	}
	if err := inv.CanStoreNew(2589, 1, 20); !errors.Is(err, ErrInventoryFull) {
		t.Fatalf("expected ErrInventoryFull, got %v", err)
	}
	if _, err := inv.StoreNew(2589, 1, 20); !errors.Is(err, ErrInventoryFull) {
		t.Fatalf("expected ErrInventoryFull, got %v", err)
	}
	if err := inv.EquipBag(19, 4500, 1); err != nil {
		t.Fatal(err)
	}
	if err := inv.CanStoreNew(2589, 20, 20); err != nil {
		t.Errorf("expected one full stack to fit in the new bag, got %v", err)
	}
	if err := inv.CanStoreNew(2589, 21, 20); !errors.Is(err, ErrInventoryFull) {
		t.Errorf("expected 21 units not to fit, got %v", err)
	}
}

func TestPlayerMoney(t *testing.T) {
	p := &Player{Money: 5 * Gold}
	if !p.HasEnoughMoney(5 * Gold) {
		t.Error("expected exactly 5 gold to be enough")
	}
	if p.ModifyMoney(-6 * Gold) {
		t.Error("expected overdraft to be refused")
	}
	if !p.ModifyMoney(-5*Gold) || p.Money != 0 {
		t.Errorf("expected balance 0, got %d", p.Money)
	}
}

func TestGuildLeadership(t *testing.T) {
	db := NewDatabase()
	db.Guilds[7] = &Guild{ID: 7, Name: "Ironforge Traders", Leader: 1}
	leader := &Player{Ref: 1, GuildID: 7}
	member := &Player{Ref: 2, GuildID: 7}
	loner := &Player{Ref: 3}

	if !db.IsGuildLeader(leader) {
		t.Error("expected leader to lead")
	}
	if db.IsGuildLeader(member) {
		t.Error("member is not the leader")
	}
	if db.IsGuildLeader(loner) || db.GuildOf(loner) != nil {
		t.Error("guildless player has no guild")
	}
}
