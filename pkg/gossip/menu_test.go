package gossip

import (
	"strings"
	"testing"
)

func TestMenuAddAndLookup(t *testing.T) {
	var m Menu
	m.Clear()
	m.Add(IconChat, "Deposit", 0, 16)
	m.Add(IconMoneyBag, "Buy", 0, 19)

	if m.Len() != 2 {
		t.Fatalf("Len = %d, want 2", m.Len())
	}
	if m.TextID != DefaultTextID {
		t.Errorf("TextID = %d, want %d", m.TextID, DefaultTextID)
	}
	o, ok := m.Option(1)
	if !ok || o.Code != 19 || o.Icon != IconMoneyBag {
		t.Errorf("Option(1) = %+v, %v", o, ok)
	}
	if _, ok := m.Option(2); ok {
		t.Error("Option(2) should be out of range")
	}
	if _, ok := m.Find(0, 16); !ok {
		t.Error("Find(0, 16) should match")
	}

	m.Clear()
	if m.Len() != 0 {
		t.Errorf("Len after Clear = %d", m.Len())
	}
}

func TestStripMarkup(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{"|TInterface/ICONS/INV_Fabric_Linen_01:30:30:-18:0|tLeinenstoff", "Leinenstoff"},
		{"|cffffffff|Hitem:2589:0|h[Leinenstoff]|h|r x 20", "[Leinenstoff] x 20"},
		{"a || b", "a | b"},
	}
	for _, tt := range tests {
		if got := StripMarkup(tt.in); got != tt.want {
			t.Errorf("StripMarkup(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRenderNumbersOptions(t *testing.T) {
	var m Menu
	m.Text = "Hello"
	m.Add(IconChat, "First", 0, 1)
	m.Add(IconChat, "|TInterface/ICONS/Ability_Spy:30:30:-18:0|tBack...", 0, 17)

	out := m.Render()
	if !strings.Contains(out, "[1] First") || !strings.Contains(out, "[2] Back...") {
		t.Errorf("Render = %q", out)
	}
}
