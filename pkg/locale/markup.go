package locale

import (
	"fmt"

	"github.com/crystal-mush/reagentbank/pkg/gamedb"
)

// UnknownIcon is drawn for items without an icon.
const UnknownIcon = "Interface/InventoryItems/WoWUnknownItem01"

// ItemLink renders a quality-colored, clickable item link.
func ItemLink(t *gamedb.ItemTemplate, locale string) string {
	return fmt.Sprintf("|c%08x|Hitem:%d:0|h[%s]|h|r", t.Quality.Color(), t.Entry, t.LocalizedName(locale))
}

// ItemIcon renders the texture tag for an item's icon. A nil template or one
// without an icon gets the unknown-item texture.
func ItemIcon(t *gamedb.ItemTemplate, width, height, x, y int) string {
	path := UnknownIcon
	if t != nil && t.Icon != "" {
		path = "Interface/ICONS/" + t.Icon
	}
	return Texture(path, width, height, x, y)
}

// Texture renders an inline texture tag.
func Texture(path string, width, height, x, y int) string {
	return fmt.Sprintf("|T%s:%d:%d:%d:%d|t", path, width, height, x, y)
}
