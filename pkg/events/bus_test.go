package events

import (
	"sync"
	"testing"

	"github.com/crystal-mush/reagentbank/pkg/gamedb"
)

// mockSubscriber implements Subscriber for testing.
type mockSubscriber struct {
	mu       sync.Mutex
	events   []Event
	isClosed bool
}

func (m *mockSubscriber) Receive(ev Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
}

func (m *mockSubscriber) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.isClosed
}

func (m *mockSubscriber) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]Event, len(m.events))
	copy(cp, m.events)
	return cp
}

func TestBusEmitToPlayer(t *testing.T) {
	bus := NewBus()
	sub := &mockSubscriber{}

	player := gamedb.DBRef(1)
	bus.Subscribe(player, sub)

	ev := Event{
		Type:   EvSystem,
		Player: player,
		Source: player,
		Text:   "Hello world",
	}
	bus.Emit(ev)

	events := sub.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Text != "Hello world" {
		t.Errorf("expected text %q, got %q", "Hello world", events[0].Text)
	}
	if events[0].Type != EvSystem {
		t.Errorf("expected type EvSystem, got %v", events[0].Type)
	}
}

func TestBusGlobalSubscriber(t *testing.T) {
	bus := NewBus()
	global := &mockSubscriber{}
	bus.SubscribeGlobal(global)

	player := gamedb.DBRef(5)
	ev := Event{Type: EvItemReceived, Player: player, Data: map[string]any{"item": 2589}}
	bus.Emit(ev)

	events := global.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 global event, got %d", len(events))
	}
	if events[0].Data["item"] != 2589 {
		t.Errorf("expected item 2589, got %v", events[0].Data["item"])
	}
}

func TestBusUnsubscribe(t *testing.T) {
	bus := NewBus()
	sub := &mockSubscriber{}
	player := gamedb.DBRef(1)

	bus.Subscribe(player, sub)
	bus.Unsubscribe(player, sub)

	bus.Emit(Event{Type: EvText, Player: player, Text: "should not arrive"})

	if len(sub.Events()) != 0 {
		t.Error("expected no events after unsubscribe")
	}
}

func TestBusClosedSubscriberSkipped(t *testing.T) {
	bus := NewBus()
	sub := &mockSubscriber{isClosed: true}
	player := gamedb.DBRef(1)

	bus.Subscribe(player, sub)
	bus.Emit(Event{Type: EvText, Player: player, Text: "no delivery"})

	if len(sub.Events()) != 0 {
		t.Error("closed subscriber should not receive events")
	}
}

func TestBusEmitToGuild(t *testing.T) {
	db := gamedb.NewDatabase()
	db.Players[1] = &gamedb.Player{Ref: 1, Name: "Aria", GuildID: 7}
	db.Players[2] = &gamedb.Player{Ref: 2, Name: "Borin", GuildID: 7}
	db.Players[3] = &gamedb.Player{Ref: 3, Name: "Cato", GuildID: 8}

	bus := NewBus()
	subs := map[gamedb.DBRef]*mockSubscriber{1: {}, 2: {}, 3: {}}
	for ref, s := range subs {
		bus.Subscribe(ref, s)
	}

	bus.EmitToGuild(db, 7, gamedb.Nothing, Event{Type: EvGuild, Text: "Aria has come online."})

	if len(subs[1].Events()) != 1 || len(subs[2].Events()) != 1 {
		t.Errorf("guild members: got %d and %d events, want 1 each", len(subs[1].Events()), len(subs[2].Events()))
	}
	if len(subs[3].Events()) != 0 {
		t.Errorf("other guild: got %d events, want 0", len(subs[3].Events()))
	}
	if got := subs[2].Events()[0].Player; got != 2 {
		t.Errorf("recipient = %d, want 2", got)
	}
}

func TestBusEmitToGuildExcept(t *testing.T) {
	db := gamedb.NewDatabase()
	db.Players[1] = &gamedb.Player{Ref: 1, Name: "Aria", GuildID: 7}
	db.Players[2] = &gamedb.Player{Ref: 2, Name: "Borin", GuildID: 7}

	bus := NewBus()
	sub1 := &mockSubscriber{}
	sub2 := &mockSubscriber{}
	bus.Subscribe(1, sub1)
	bus.Subscribe(2, sub2)

	bus.EmitToGuild(db, 7, 1, Event{Type: EvGuild, Text: "hello others"})
	bus.EmitToGuild(db, 0, gamedb.Nothing, Event{Type: EvGuild, Text: "nobody"})

	if len(sub1.Events()) != 0 {
		t.Errorf("player 1 (excluded): expected 0 events, got %d", len(sub1.Events()))
	}
	if len(sub2.Events()) != 1 {
		t.Errorf("player 2: expected 1 event, got %d", len(sub2.Events()))
	}
}

func TestBusCleanup(t *testing.T) {
	bus := NewBus()
	active := &mockSubscriber{}
	closed := &mockSubscriber{isClosed: true}
	player := gamedb.DBRef(1)

	bus.Subscribe(player, active)
	bus.Subscribe(player, closed)
	bus.SubscribeGlobal(&mockSubscriber{isClosed: true})

	bus.Cleanup()

	if bus.PlayerSubscribers(player) != 1 {
		t.Errorf("expected 1 active subscriber, got %d", bus.PlayerSubscribers(player))
	}
}

func TestEventTypeString(t *testing.T) {
	tests := []struct {
		t    EventType
		want string
	}{
		{EvText, "text"},
		{EvSystem, "system"},
		{EvGossip, "gossip"},
		{EvItemReceived, "item_received"},
		{EventType(999), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.t.String(); got != tt.want {
			t.Errorf("EventType(%d).String() = %q, want %q", tt.t, got, tt.want)
		}
	}
}
