package gamedb

import (
	"errors"
	"fmt"
)

// Container positions. The backpack is addressed as its own bag; equipped
// bags occupy positions BagSlotStart..BagSlotEnd-1.
const (
	BagBackpack  uint8 = 255
	BackpackSize       = 16
	BagSlotStart uint8 = 19
	BagSlotEnd   uint8 = 23
	MaxBagSize         = 36
)

var (
	// ErrInventoryFull is returned when there is no room for a new stack.
	ErrInventoryFull = errors.New("inventory is full")
	// ErrBagSlot is returned for a bag/slot pair that does not exist.
	ErrBagSlot = errors.New("no such bag slot")
	// ErrNotEnoughItems is returned when destroying more than a slot holds.
	ErrNotEnoughItems = errors.New("not enough items in slot")
)

// ItemPos addresses one inventory slot together with a unit count.
type ItemPos struct {
	Bag   uint8
	Slot  uint8
	Count uint32
}

// Bag is an equipped container. A zero Entry means the bag slot is empty.
type Bag struct {
	Entry uint32
	Slots []Item
}

// Inventory is a player's backpack plus equipped bags. Empty slots hold a
// zero Item.
type Inventory struct {
	Backpack []Item
	Bags     [BagSlotEnd - BagSlotStart]Bag
}

// NewInventory returns an inventory with an empty backpack and no bags.
func NewInventory() *Inventory {
	return &Inventory{Backpack: make([]Item, BackpackSize)}
}

// EquipBag places a container of the given size into bag position pos.
func (inv *Inventory) EquipBag(pos uint8, entry uint32, size int) error {
	if pos < BagSlotStart || pos >= BagSlotEnd {
		return fmt.Errorf("equip bag %d: %w", pos, ErrBagSlot)
	}
	if size <= 0 || size > MaxBagSize {
		return fmt.Errorf("equip bag %d: invalid size %d", pos, size)
	}
	inv.Bags[pos-BagSlotStart] = Bag{Entry: entry, Slots: make([]Item, size)}
	return nil
}

// container returns the slot slice for a bag position.
func (inv *Inventory) container(bag uint8) ([]Item, bool) {
	if bag == BagBackpack {
		return inv.Backpack, true
	}
	if bag < BagSlotStart || bag >= BagSlotEnd {
		return nil, false
	}
	b := &inv.Bags[bag-BagSlotStart]
	if b.Entry == 0 {
		return nil, false
	}
	return b.Slots, true
}

// BagSize returns the slot count of a container, or 0 if nothing is equipped there.
func (inv *Inventory) BagSize(bag uint8) int {
	slots, ok := inv.container(bag)
	if !ok {
		return 0
	}
	return len(slots)
}

// ItemAt returns the stack at bag/slot. ok is false for empty or invalid slots.
func (inv *Inventory) ItemAt(bag, slot uint8) (Item, bool) {
	slots, ok := inv.container(bag)
	if !ok || int(slot) >= len(slots) {
		return Item{}, false
	}
	it := slots[slot]
	if it.Count == 0 {
		return Item{}, false
	}
	return it, true
}

// Put replaces the content of bag/slot.
func (inv *Inventory) Put(bag, slot uint8, it Item) error {
	slots, ok := inv.container(bag)
	if !ok || int(slot) >= len(slots) {
		return fmt.Errorf("put %d/%d: %w", bag, slot, ErrBagSlot)
	}
	slots[slot] = it
	return nil
}

// ForEach visits every occupied slot: the backpack first, then each equipped
// bag in position order, slots ascending.
func (inv *Inventory) ForEach(fn func(bag, slot uint8, it Item)) {
	for i, it := range inv.Backpack {
		if it.Count > 0 {
			fn(BagBackpack, uint8(i), it)
		}
	}
	for pos := BagSlotStart; pos < BagSlotEnd; pos++ {
		slots, ok := inv.container(pos)
		if !ok {
			continue
		}
		for i, it := range slots {
			if it.Count > 0 {
				fn(pos, uint8(i), it)
			}
		}
	}
}

// DestroyCount removes n units from bag/slot, clearing the slot when it empties.
func (inv *Inventory) DestroyCount(bag, slot uint8, n uint32) error {
	slots, ok := inv.container(bag)
	if !ok || int(slot) >= len(slots) {
		return fmt.Errorf("destroy %d/%d: %w", bag, slot, ErrBagSlot)
	}
	it := &slots[slot]
	if it.Count < n {
		return fmt.Errorf("destroy %d from %d/%d holding %d: %w", n, bag, slot, it.Count, ErrNotEnoughItems)
	}
	it.Count -= n
	if it.Count == 0 {
		*it = Item{}
	}
	return nil
}

// Count returns the number of units of entry across all slots.
func (inv *Inventory) Count(entry uint32) uint32 {
	var total uint32
	inv.ForEach(func(_, _ uint8, it Item) {
		if it.Entry == entry {
			total += it.Count
		}
	})
	return total
}

// plan computes where n units of entry would go: partial stacks of the same
// entry first, then empty slots, in ForEach order.
func (inv *Inventory) plan(entry, n, maxStack uint32) ([]ItemPos, uint32) {
	if maxStack == 0 {
		maxStack = 1
	}
	var dest []ItemPos
	remaining := n
	visit := func(empty bool) {
		walk := func(bag uint8, slots []Item) {
			for i, it := range slots {
				if remaining == 0 {
					return
				}
				var room uint32
				switch {
				case empty && it.Count == 0:
					room = maxStack
				case !empty && it.Count > 0 && it.Entry == entry && it.Count < maxStack:
					room = maxStack - it.Count
				default:
					continue
				}
				take := min(room, remaining)
				dest = append(dest, ItemPos{Bag: bag, Slot: uint8(i), Count: take})
				remaining -= take
			}
		}
		walk(BagBackpack, inv.Backpack)
		for pos := BagSlotStart; pos < BagSlotEnd; pos++ {
			if slots, ok := inv.container(pos); ok {
				walk(pos, slots)
			}
		}
	}
	visit(false)
	visit(true)
	return dest, remaining
}

// CanStoreNew reports whether n new units of entry fit into the inventory.
func (inv *Inventory) CanStoreNew(entry, n, maxStack uint32) error {
	if _, remaining := inv.plan(entry, n, maxStack); remaining > 0 {
		return ErrInventoryFull
	}
	return nil
}

// StoreNew adds n units of entry, merging into existing stacks first.
// Nothing is stored when the units do not all fit.
func (inv *Inventory) StoreNew(entry, n, maxStack uint32) ([]ItemPos, error) {
	dest, remaining := inv.plan(entry, n, maxStack)
	if remaining > 0 {
		return nil, ErrInventoryFull
	}
	for _, pos := range dest {
		slots, _ := inv.container(pos.Bag)
		it := &slots[pos.Slot]
		it.Entry = entry
		it.Count += pos.Count
	}
	return dest, nil
}
