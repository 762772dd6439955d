package gamedb

// DBRef is the fundamental object reference type for players and creatures.
type DBRef int

const (
	Nothing DBRef = -1
)

// GuildID identifies a guild. Zero means "no guild".
type GuildID uint32

// ItemClass is the top-level classification of an item template.
type ItemClass uint32

const (
	ClassConsumable ItemClass = 0
	ClassContainer  ItemClass = 1
	ClassWeapon     ItemClass = 2
	ClassGem        ItemClass = 3
	ClassArmor      ItemClass = 4
	ClassReagent    ItemClass = 5
	ClassProjectile ItemClass = 6
	ClassTradeGoods ItemClass = 7
	ClassRecipe     ItemClass = 9
	ClassQuiver     ItemClass = 11
	ClassQuest      ItemClass = 12
	ClassKey        ItemClass = 13
	ClassMisc       ItemClass = 15
	ClassGlyph      ItemClass = 16
)

func (c ItemClass) String() string {
	switch c {
	case ClassConsumable:
		return "consumable"
	case ClassContainer:
		return "container"
	case ClassWeapon:
		return "weapon"
	case ClassGem:
		return "gem"
	case ClassArmor:
		return "armor"
	case ClassReagent:
		return "reagent"
	case ClassProjectile:
		return "projectile"
	case ClassTradeGoods:
		return "trade_goods"
	case ClassRecipe:
		return "recipe"
	case ClassQuiver:
		return "quiver"
	case ClassQuest:
		return "quest"
	case ClassKey:
		return "key"
	case ClassMisc:
		return "misc"
	case ClassGlyph:
		return "glyph"
	default:
		return "unknown"
	}
}

// Subclass is the second-level classification. Its meaning depends on the class;
// the constants below are the trade-goods subclasses.
type Subclass uint32

const (
	SubclassTradeGoods        Subclass = 0
	SubclassParts             Subclass = 1
	SubclassExplosives        Subclass = 2
	SubclassDevices           Subclass = 3
	SubclassJewelcrafting     Subclass = 4
	SubclassCloth             Subclass = 5
	SubclassLeather           Subclass = 6
	SubclassMetalStone        Subclass = 7
	SubclassMeat              Subclass = 8
	SubclassHerb              Subclass = 9
	SubclassElemental         Subclass = 10
	SubclassTradeGoodsOther   Subclass = 11
	SubclassEnchanting        Subclass = 12
	SubclassMaterial          Subclass = 13
	SubclassArmorEnchantment  Subclass = 14
	SubclassWeaponEnchantment Subclass = 15

	// MaxTradeGoodsSubclass is the highest trade-goods subclass value.
	MaxTradeGoodsSubclass = SubclassWeaponEnchantment
)

// Quality is the rarity tier of an item; it selects the link color.
type Quality uint32

const (
	QualityPoor Quality = iota
	QualityNormal
	QualityUncommon
	QualityRare
	QualityEpic
	QualityLegendary
	QualityArtifact
	QualityHeirloom
)

// qualityColors are ARGB colors used when rendering item links.
var qualityColors = [...]uint32{
	0xff9d9d9d,
	0xffffffff,
	0xff1eff00,
	0xff0070dd,
	0xffa335ee,
	0xffff8000,
	0xffe6cc80,
	0xffe6cc80,
}

// Color returns the ARGB link color for the quality.
func (q Quality) Color() uint32 {
	if int(q) >= len(qualityColors) {
		return qualityColors[QualityNormal]
	}
	return qualityColors[q]
}

// Money is an amount of currency in copper. 100 copper = 1 silver, 100 silver = 1 gold.
type Money int64

const (
	Silver Money = 100
	Gold   Money = 100 * Silver
)
