package server

import (
	"bufio"
	"fmt"
	"net"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/crystal-mush/reagentbank/pkg/asyncq"
	"github.com/crystal-mush/reagentbank/pkg/events"
	"github.com/crystal-mush/reagentbank/pkg/gamedb"
	"github.com/crystal-mush/reagentbank/pkg/gossip"
	"github.com/crystal-mush/reagentbank/pkg/locale"
	"github.com/crystal-mush/reagentbank/pkg/scripts"
)

// TransportType identifies the kind of transport a Descriptor uses.
type TransportType int

const (
	TransportTCP       TransportType = iota // Traditional telnet/TCP
	TransportWebSocket                      // WebSocket (JSON events)
)

func (t TransportType) String() string {
	if t == TransportWebSocket {
		return "websocket"
	}
	return "tcp"
}

// ConnState tracks the state of a connection.
type ConnState int

const (
	ConnLogin     ConnState = iota // Pre-login: awaiting connect
	ConnConnected                  // Logged in as a player
)

// Descriptor represents a single client connection.
// It implements events.Subscriber so it can receive events from the bus,
// and scripts.Session so creature scripts can talk to the player.
type Descriptor struct {
	ID        int
	Conn      net.Conn
	Reader    *bufio.Reader
	State     ConnState
	PlayerRef gamedb.DBRef
	Addr      string
	ConnTime  time.Time
	LastCmd   time.Time
	Retries   int
	CmdCount  int           // Total commands entered this session
	BytesSent int           // Total bytes sent to this connection
	BytesRecv int           // Total bytes received from this connection
	Transport TransportType // Transport type (TCP, WebSocket)

	// SendFunc overrides the default Send behavior (used by WebSocket transport).
	// If nil, the default TCP Send is used.
	SendFunc func(msg string)
	// ReceiveFunc overrides the default Receive behavior (used by WebSocket transport).
	// If nil, the default event→text→Send path is used.
	ReceiveFunc func(ev events.Event)

	game    *Game
	queries *asyncq.Processor

	// Open NPC dialog. Guarded by the game lock like all session state.
	gossipNPC  *gamedb.Creature
	gossipMenu *gossip.Menu

	mu     sync.Mutex
	closed bool
}

// NewDescriptor wraps a net.Conn into a Descriptor bound to g.
func NewDescriptor(g *Game, id int, conn net.Conn) *Descriptor {
	now := time.Now()
	return &Descriptor{
		ID:        id,
		Conn:      conn,
		Reader:    bufio.NewReaderSize(conn, 4096),
		State:     ConnLogin,
		PlayerRef: gamedb.Nothing,
		Addr:      conn.RemoteAddr().String(),
		ConnTime:  now,
		LastCmd:   now,
		Retries:   3,
		game:      g,
		queries:   asyncq.NewProcessor(),
	}
}

// Send writes a string to the client connection.
func (d *Descriptor) Send(msg string) {
	if d.SendFunc != nil {
		d.SendFunc(msg)
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	// Ensure lines end with \r\n for telnet
	if !strings.HasSuffix(msg, "\n") {
		msg += "\r\n"
	}
	d.Conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	n, _ := d.Conn.Write([]byte(msg))
	d.BytesSent += n
}

// SendNoNewline writes a string without appending a newline.
func (d *Descriptor) SendNoNewline(msg string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.Conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	n, _ := d.Conn.Write([]byte(msg))
	d.BytesSent += n
}

// Close shuts down the connection and drops pending query callbacks.
func (d *Descriptor) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.closed {
		d.closed = true
		d.Conn.Close()
	}
	if d.queries != nil {
		d.queries.Cancel()
	}
}

// IsClosed returns whether the connection has been closed.
func (d *Descriptor) IsClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// Receive implements events.Subscriber. It delivers an event to the client
// using the appropriate encoding for this transport.
func (d *Descriptor) Receive(ev events.Event) {
	if d.ReceiveFunc != nil {
		d.ReceiveFunc(ev)
		return
	}
	if ev.Text != "" {
		d.Send(ev.Text)
	}
}

// Closed implements events.Subscriber.
func (d *Descriptor) Closed() bool {
	return d.IsClosed()
}

// --- scripts.Session ---

// PlayerObj returns the logged-in player, or nil before login.
func (d *Descriptor) PlayerObj() *gamedb.Player {
	if d.game == nil || d.PlayerRef == gamedb.Nothing {
		return nil
	}
	return d.game.DB.Players[d.PlayerRef]
}

// Player implements scripts.Session.
func (d *Descriptor) Player() *gamedb.Player { return d.PlayerObj() }

// Locale implements scripts.Session. The player's own locale wins over the
// server default; unknown locales fall back to the base catalog.
func (d *Descriptor) Locale() string {
	want := ""
	if p := d.PlayerObj(); p != nil {
		want = p.Locale
	}
	if want == "" && d.game.Conf != nil {
		want = d.game.Conf.Locale
	}
	return d.game.Text.Match(want)
}

// SendSysMessage implements scripts.Session.
func (d *Descriptor) SendSysMessage(msg string) {
	d.Receive(events.Event{Type: events.EvSystem, Player: d.PlayerRef, Text: msg})
}

// SendGossipMenu implements scripts.Session. The menu stays open until the
// player picks an option, walks away or the script closes it.
func (d *Descriptor) SendGossipMenu(npc *gamedb.Creature, menu *gossip.Menu) {
	d.gossipNPC = npc
	d.gossipMenu = menu
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s:\r\n", npc.Name)
	sb.WriteString(menu.Render())
	if menu.Len() > 0 {
		sb.WriteString("Type 'select <number>' to choose.\r\n")
	}
	d.Receive(events.Event{
		Type:   events.EvGossip,
		Player: d.PlayerRef,
		Source: npc.Ref,
		Text:   sb.String(),
		Menu:   menu,
		Data:   map[string]any{"npc": npc.Name, "npc_ref": int(npc.Ref)},
	})
}

// CloseGossipMenu implements scripts.Session.
func (d *Descriptor) CloseGossipMenu() {
	npc := d.gossipNPC
	d.gossipNPC = nil
	d.gossipMenu = nil
	ev := events.Event{Type: events.EvGossipClose, Player: d.PlayerRef}
	if npc != nil {
		ev.Source = npc.Ref
	}
	d.Receive(ev)
}

// SendNewItem implements scripts.Session.
func (d *Descriptor) SendNewItem(entry, count uint32) {
	loc := d.Locale()
	name := fmt.Sprintf("#%d", entry)
	link := name
	if t, ok := d.game.Items.Get(entry); ok {
		name = t.LocalizedName(loc)
		link = locale.ItemLink(t, loc)
	}
	d.Receive(events.Event{
		Type:   events.EvItemReceived,
		Player: d.PlayerRef,
		Text:   d.game.Text.Sprintf(loc, locale.InventoryReceived, name, count),
		Data:   map[string]any{"entry": entry, "count": count, "link": link},
	})
}

// SendEquipError implements scripts.Session.
func (d *Descriptor) SendEquipError(err error, entry uint32) {
	d.Receive(events.Event{
		Type:   events.EvEquipError,
		Player: d.PlayerRef,
		Text:   d.game.Text.Sprintf(d.Locale(), locale.InventoryFull),
		Data:   map[string]any{"entry": entry, "error": err.Error()},
	})
}

// Queries implements scripts.Session.
func (d *Descriptor) Queries() *asyncq.Processor { return d.queries }

// GossipMenu returns the open NPC dialog, if any.
func (d *Descriptor) GossipMenu() (*gamedb.Creature, *gossip.Menu) {
	return d.gossipNPC, d.gossipMenu
}

var (
	_ events.Subscriber = (*Descriptor)(nil)
	_ scripts.Session   = (*Descriptor)(nil)
)

// nullConn is a no-op net.Conn used for descriptors without a raw socket.
type nullConn struct{}

func (nullConn) Read([]byte) (int, error)         { return 0, fmt.Errorf("no connection") }
func (nullConn) Write(b []byte) (int, error)      { return len(b), nil }
func (nullConn) Close() error                     { return nil }
func (nullConn) LocalAddr() net.Addr              { return nil }
func (nullConn) RemoteAddr() net.Addr             { return &net.TCPAddr{} }
func (nullConn) SetDeadline(time.Time) error      { return nil }
func (nullConn) SetReadDeadline(time.Time) error  { return nil }
func (nullConn) SetWriteDeadline(time.Time) error { return nil }

// ConnManager tracks all active connections.
type ConnManager struct {
	mu          sync.RWMutex
	descriptors map[int]*Descriptor
	nextID      int
	byPlayer    map[gamedb.DBRef][]*Descriptor // player -> connections (multi-login)
	EventBus    *events.Bus                    // Event bus for pub/sub (nil = disabled)
}

// NewConnManager creates a new connection manager.
func NewConnManager() *ConnManager {
	return &ConnManager{
		descriptors: make(map[int]*Descriptor),
		byPlayer:    make(map[gamedb.DBRef][]*Descriptor),
		nextID:      1,
	}
}

// Add registers a new descriptor.
func (cm *ConnManager) Add(d *Descriptor) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.descriptors[d.ID] = d
}

// Remove unregisters a descriptor and unsubscribes it from the event bus.
func (cm *ConnManager) Remove(d *Descriptor) {
	if cm.EventBus != nil && d.PlayerRef != gamedb.Nothing {
		cm.EventBus.Unsubscribe(d.PlayerRef, d)
	}

	cm.mu.Lock()
	defer cm.mu.Unlock()
	delete(cm.descriptors, d.ID)
	if d.PlayerRef != gamedb.Nothing {
		descs := cm.byPlayer[d.PlayerRef]
		for i, dd := range descs {
			if dd.ID == d.ID {
				cm.byPlayer[d.PlayerRef] = append(descs[:i], descs[i+1:]...)
				break
			}
		}
		if len(cm.byPlayer[d.PlayerRef]) == 0 {
			delete(cm.byPlayer, d.PlayerRef)
		}
	}
}

// Login associates a descriptor with a player and subscribes it to the event bus.
func (cm *ConnManager) Login(d *Descriptor, player gamedb.DBRef) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	d.State = ConnConnected
	d.PlayerRef = player
	cm.byPlayer[player] = append(cm.byPlayer[player], d)

	if cm.EventBus != nil {
		cm.EventBus.Subscribe(player, d)
	}
}

// NextID returns the next descriptor ID.
func (cm *ConnManager) NextID() int {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	id := cm.nextID
	cm.nextID++
	return id
}

// GetByPlayer returns all descriptors for a given player.
func (cm *ConnManager) GetByPlayer(player gamedb.DBRef) []*Descriptor {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return append([]*Descriptor(nil), cm.byPlayer[player]...)
}

// IsConnected returns true if the player has at least one active connection.
func (cm *ConnManager) IsConnected(player gamedb.DBRef) bool {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.byPlayer[player]) > 0
}

// AllDescriptors returns a snapshot of all active descriptors ordered by ID.
func (cm *ConnManager) AllDescriptors() []*Descriptor {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	descs := make([]*Descriptor, 0, len(cm.descriptors))
	for _, d := range cm.descriptors {
		descs = append(descs, d)
	}
	sort.Slice(descs, func(i, j int) bool { return descs[i].ID < descs[j].ID })
	return descs
}

// Count returns the number of active connections.
func (cm *ConnManager) Count() int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.descriptors)
}

// CountByTransport returns the number of logged-in connections per transport.
func (cm *ConnManager) CountByTransport() map[TransportType]int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	out := map[TransportType]int{TransportTCP: 0, TransportWebSocket: 0}
	for _, d := range cm.descriptors {
		if d.State == ConnConnected {
			out[d.Transport]++
		}
	}
	return out
}

// FormatConnTime formats a connection duration as "HH:MM" or "Xd HH:MM".
func FormatConnTime(d time.Duration) string {
	secs := int(d.Seconds())
	days := secs / 86400
	hours := (secs % 86400) / 3600
	mins := (secs % 3600) / 60
	if days > 0 {
		return fmt.Sprintf("%dd %02d:%02d", days, hours, mins)
	}
	return fmt.Sprintf("%02d:%02d", hours, mins)
}

// FormatIdleTime formats an idle duration compactly: "5s", "3m", "2h", "1d".
func FormatIdleTime(d time.Duration) string {
	secs := int(d.Seconds())
	switch {
	case secs < 60:
		return fmt.Sprintf("%ds", secs)
	case secs < 3600:
		return fmt.Sprintf("%dm", secs/60)
	case secs < 86400:
		return fmt.Sprintf("%dh", secs/3600)
	default:
		return fmt.Sprintf("%dd", secs/86400)
	}
}
