package events

import (
	"github.com/crystal-mush/reagentbank/pkg/gamedb"
	"github.com/crystal-mush/reagentbank/pkg/gossip"
)

// EventType classifies events for transport-specific encoding.
type EventType int

const (
	EvText         EventType = iota // Raw text (universal fallback)
	EvSystem                        // System message from a script
	EvGossip                        // NPC menu shown
	EvGossipClose                   // NPC menu closed
	EvItemReceived                  // Item stack added to inventory
	EvEquipError                    // Inventory refused an item
	EvConnect                       // Player connected
	EvDisconnect                    // Player disconnected
	EvGuild                         // Guild notice
	EvWho                           // WHO data
)

// String returns a human-readable name for the event type.
func (t EventType) String() string {
	switch t {
	case EvText:
		return "text"
	case EvSystem:
		return "system"
	case EvGossip:
		return "gossip"
	case EvGossipClose:
		return "gossip_close"
	case EvItemReceived:
		return "item_received"
	case EvEquipError:
		return "equip_error"
	case EvConnect:
		return "connect"
	case EvDisconnect:
		return "disconnect"
	case EvGuild:
		return "guild"
	case EvWho:
		return "who"
	default:
		return "unknown"
	}
}

// Event is a structured game event that flows through the event bus.
// Transports decide how to encode each event: telnet uses Text,
// WebSocket/REST use the full structured data.
type Event struct {
	Type   EventType
	Player gamedb.DBRef   // Recipient
	Source gamedb.DBRef   // Who generated the event (NPC for gossip)
	Text   string         // Pre-formatted text (telnet uses this)
	Menu   *gossip.Menu   // EvGossip only
	Data   map[string]any // Structured data for JSON clients
}
