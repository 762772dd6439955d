// Package scripts binds creature behaviours to named scripts. The server looks
// up a creature's script by name when a player talks to it.
package scripts

import (
	"fmt"
	"sort"
	"sync"

	"github.com/crystal-mush/reagentbank/pkg/asyncq"
	"github.com/crystal-mush/reagentbank/pkg/gamedb"
	"github.com/crystal-mush/reagentbank/pkg/gossip"
)

// Session is the view of a connected player that scripts act on.
type Session interface {
	Player() *gamedb.Player
	Locale() string
	SendSysMessage(msg string)
	SendGossipMenu(npc *gamedb.Creature, menu *gossip.Menu)
	CloseGossipMenu()
	SendNewItem(entry, count uint32)
	SendEquipError(err error, entry uint32)
	// Queries returns the processor whose callbacks run on this session's
	// game loop. Pending callbacks are dropped when the session ends.
	Queries() *asyncq.Processor
}

// CreatureScript handles gossip interaction with a creature. The hooks return
// false when the script did not handle the event.
type CreatureScript interface {
	Name() string
	OnGossipHello(s Session, npc *gamedb.Creature) bool
	OnGossipSelect(s Session, npc *gamedb.Creature, page, code uint32) bool
}

// Registry maps script names to implementations.
type Registry struct {
	mu      sync.RWMutex
	scripts map[string]CreatureScript
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{scripts: make(map[string]CreatureScript)}
}

// Register adds cs under its name. Registering the same name twice is an error.
func (r *Registry) Register(cs CreatureScript) error {
	name := cs.Name()
	if name == "" {
		return fmt.Errorf("scripts: empty script name")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.scripts[name]; ok {
		return fmt.Errorf("scripts: %q already registered", name)
	}
	r.scripts[name] = cs
	return nil
}

// Lookup returns the script registered under name.
func (r *Registry) Lookup(name string) (CreatureScript, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cs, ok := r.scripts[name]
	return cs, ok
}

// Names lists registered script names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.scripts))
	for n := range r.scripts {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
