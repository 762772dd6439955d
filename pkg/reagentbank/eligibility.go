package reagentbank

import (
	"sort"

	"github.com/crystal-mush/reagentbank/pkg/gamedb"
)

// Templates resolves item entries to their static definition.
type Templates interface {
	Get(entry uint32) (*gamedb.ItemTemplate, bool)
}

// Location is one inventory slot contributing to a deposit.
type Location struct {
	Bag   uint8
	Slot  uint8
	Count uint32
}

// Candidate aggregates every eligible stack of one item entry.
type Candidate struct {
	Entry     uint32
	Subclass  gamedb.Subclass
	Count     uint32
	Locations []Location
}

// Eligible is the result of scanning an inventory for depositable reagents.
type Eligible struct {
	byEntry map[uint32]*Candidate
}

// Bucket reports whether items of template t can be deposited and the
// subclass bucket they are filed under. Gems of every kind share the
// jewelcrafting bucket.
func Bucket(t *gamedb.ItemTemplate) (gamedb.Subclass, bool) {
	if t == nil || t.MaxStackSize() <= 1 {
		return 0, false
	}
	switch t.Class {
	case gamedb.ClassGem:
		return gamedb.SubclassJewelcrafting, true
	case gamedb.ClassTradeGoods:
		return t.SubClass, true
	}
	return 0, false
}

// Collect scans inv without modifying it. Locations keep inventory order:
// backpack first, then each equipped bag.
func Collect(inv *gamedb.Inventory, items Templates) Eligible {
	e := Eligible{byEntry: make(map[uint32]*Candidate)}
	if inv == nil {
		return e
	}
	inv.ForEach(func(bag, slot uint8, it gamedb.Item) {
		t, ok := items.Get(it.Entry)
		if !ok {
			return
		}
		sub, ok := Bucket(t)
		if !ok {
			return
		}
		c, ok := e.byEntry[it.Entry]
		if !ok {
			c = &Candidate{Entry: it.Entry, Subclass: sub}
			e.byEntry[it.Entry] = c
		}
		c.Count += it.Count
		c.Locations = append(c.Locations, Location{Bag: bag, Slot: slot, Count: it.Count})
	})
	return e
}

// Empty reports whether nothing in the inventory is eligible.
func (e Eligible) Empty() bool { return len(e.byEntry) == 0 }

// Len returns the number of distinct eligible item entries.
func (e Eligible) Len() int { return len(e.byEntry) }

// Total returns the number of eligible units across all entries.
func (e Eligible) Total() uint32 {
	var n uint32
	for _, c := range e.byEntry {
		n += c.Count
	}
	return n
}

// Get returns the candidate for an item entry.
func (e Eligible) Get(entry uint32) (*Candidate, bool) {
	c, ok := e.byEntry[entry]
	return c, ok
}

// Entries returns the eligible item entries in ascending order. Deposits
// allocate free space in this order.
func (e Eligible) Entries() []uint32 {
	out := make([]uint32, 0, len(e.byEntry))
	for entry := range e.byEntry {
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Candidates returns the candidates in ascending entry order.
func (e Eligible) Candidates() []*Candidate {
	entries := e.Entries()
	out := make([]*Candidate, len(entries))
	for i, entry := range entries {
		out[i] = e.byEntry[entry]
	}
	return out
}
