// Package gossip models the option menus an NPC presents to a player.
package gossip

import (
	"fmt"
	"strings"
)

// Icon selects the glyph a client draws next to a gossip option.
type Icon uint8

const (
	IconChat      Icon = 0
	IconVendor    Icon = 1
	IconTaxi      Icon = 2
	IconTrainer   Icon = 3
	IconInteract1 Icon = 4
	IconInteract2 Icon = 5
	IconMoneyBag  Icon = 6
	IconTalk      Icon = 7
	IconTabard    Icon = 8
	IconBattle    Icon = 9
	IconDot       Icon = 10
)

// DefaultTextID is the NPC text shown when a creature has nothing specific to say.
const DefaultTextID = 4259

// Option is a single selectable line in a menu. Page is the sender value the
// client echoes back and Code is the action it selects.
type Option struct {
	Icon Icon   `json:"icon"`
	Text string `json:"text"`
	Page uint32 `json:"sender"`
	Code uint32 `json:"action"`
}

// Menu is an ordered list of options plus the NPC text shown above them.
type Menu struct {
	TextID  uint32   `json:"text_id"`
	Text    string   `json:"text,omitempty"`
	Options []Option `json:"options"`
}

// Clear drops all options and resets the text.
func (m *Menu) Clear() {
	m.TextID = DefaultTextID
	m.Text = ""
	m.Options = m.Options[:0]
}

// Add appends an option.
func (m *Menu) Add(icon Icon, text string, page, code uint32) {
	m.Options = append(m.Options, Option{Icon: icon, Text: text, Page: page, Code: code})
}

// Len returns the number of options.
func (m *Menu) Len() int { return len(m.Options) }

// Option returns the option at index i, counting from zero.
func (m *Menu) Option(i int) (Option, bool) {
	if i < 0 || i >= len(m.Options) {
		return Option{}, false
	}
	return m.Options[i], true
}

// Find returns the first option with the given page and code.
func (m *Menu) Find(page, code uint32) (Option, bool) {
	for _, o := range m.Options {
		if o.Page == page && o.Code == code {
			return o, true
		}
	}
	return Option{}, false
}

// Render formats the menu for a plain text terminal, numbering options from 1.
// Inline client markup is stripped.
func (m *Menu) Render() string {
	var sb strings.Builder
	if m.Text != "" {
		sb.WriteString(StripMarkup(m.Text))
		sb.WriteString("\r\n")
	}
	for i, o := range m.Options {
		fmt.Fprintf(&sb, "  [%d] %s\r\n", i+1, StripMarkup(o.Text))
	}
	return sb.String()
}
