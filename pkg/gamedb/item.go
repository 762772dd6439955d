package gamedb

// ItemTemplate is the static definition of an item type.
type ItemTemplate struct {
	Entry    uint32            `yaml:"entry"`
	Name     string            `yaml:"name"`
	Names    map[string]string `yaml:"names,omitempty"` // locale -> localized name
	Class    ItemClass         `yaml:"class"`
	SubClass Subclass          `yaml:"subclass"`
	Quality  Quality           `yaml:"quality"`
	MaxStack uint32            `yaml:"max_stack"`
	Icon     string            `yaml:"icon,omitempty"`
	BagSlots uint32            `yaml:"bag_slots,omitempty"` // container size, 0 for non-bags
}

// MaxStackSize returns the number of units that fit in one slot. A zero
// stack size in the catalog is treated as 1.
func (t *ItemTemplate) MaxStackSize() uint32 {
	if t.MaxStack == 0 {
		return 1
	}
	return t.MaxStack
}

// LocalizedName returns the name for locale, falling back to the base name.
func (t *ItemTemplate) LocalizedName(locale string) string {
	if n, ok := t.Names[locale]; ok && n != "" {
		return n
	}
	return t.Name
}

// Item is one stack of items occupying an inventory slot.
type Item struct {
	Entry uint32
	Count uint32
}
