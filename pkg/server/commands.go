package server

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/crystal-mush/reagentbank/pkg/gamedb"
)

// CommandHandler is the signature for command implementations.
type CommandHandler func(g *Game, d *Descriptor, args string)

// Command defines a player command.
type Command struct {
	Name    string
	Help    string
	Handler CommandHandler
}

// InitCommands returns the command table for logged-in players.
func InitCommands() map[string]*Command {
	cmds := make(map[string]*Command)
	add := func(name, help string, h CommandHandler, aliases ...string) {
		c := &Command{Name: name, Help: help, Handler: h}
		cmds[name] = c
		for _, a := range aliases {
			cmds[a] = c
		}
	}
	add("look", "look: list the NPCs around you", cmdLook, "l")
	add("inventory", "inventory: show your bags", cmdInventory, "i", "inv")
	add("money", "money: show your purse", cmdMoney, "score")
	add("talk", "talk <npc>: open an NPC's dialog", cmdTalk)
	add("select", "select <n>: pick an option of the open dialog", cmdSelect, "sel")
	add("bye", "bye: close the open dialog", cmdBye)
	add("bank", "bank: show your guild's reagent storage", cmdBank)
	add("guild", "guild: show your guild", cmdGuild)
	add("locale", "locale [tag]: show or set your language", cmdLocale)
	add("who", "WHO: list connected players", cmdWho)
	add("quit", "QUIT: disconnect", cmdQuit)
	add("version", "version: show the server version", cmdVersion)
	add("help", "help: this list", cmdHelp)
	return cmds
}

// DispatchCommand routes one line of input. Before login only connect, WHO
// and QUIT are understood.
func DispatchCommand(g *Game, d *Descriptor, input string) {
	input = strings.TrimSpace(input)
	if input == "" {
		return
	}
	d.LastCmd = time.Now()
	d.CmdCount++

	if d.State == ConnLogin {
		handleLoginCommand(g, d, input)
		return
	}

	// A bare number picks an option of the open dialog.
	if _, err := strconv.Atoi(input); err == nil && d.gossipMenu != nil {
		cmdSelect(g, d, input)
		return
	}

	var cmdName, args string
	if spaceIdx := strings.IndexByte(input, ' '); spaceIdx >= 0 {
		cmdName = input[:spaceIdx]
		args = strings.TrimSpace(input[spaceIdx+1:])
	} else {
		cmdName = input
	}

	if cmd, ok := g.Commands[strings.ToLower(cmdName)]; ok {
		cmd.Handler(g, d, args)
		return
	}
	d.Send("Huh?  (Type \"help\" for help.)")
}

func handleLoginCommand(g *Game, d *Descriptor, input string) {
	command, user, password := ParseConnect(input)
	switch {
	case command == "quit":
		cmdQuit(g, d, "")
	case command == "who":
		cmdWho(g, d, "")
	case strings.HasPrefix(command, "co"):
		p, err := Authenticate(g.DB, user, password)
		if err != nil {
			g.Log.Info("failed login", zap.Int("desc", d.ID), zap.String("name", user), zap.String("addr", d.Addr))
			d.Send("Either that player does not exist, or has a different password.")
			d.Retries--
			if d.Retries <= 0 {
				d.Send("Too many failed attempts.")
				d.Close()
			}
			return
		}
		g.ConnectPlayer(d, p)
		d.Send(fmt.Sprintf("Welcome, %s.", p.Name))
		cmdLook(g, d, "")
	default:
		d.Send(WelcomeText)
	}
}

func cmdLook(g *Game, d *Descriptor, _ string) {
	refs := make([]gamedb.DBRef, 0, len(g.DB.Creatures))
	for ref := range g.DB.Creatures {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i] < refs[j] })

	var sb strings.Builder
	sb.WriteString(g.Conf.ServerName + "\r\n")
	if len(refs) == 0 {
		sb.WriteString("Nobody is here.\r\n")
	} else {
		sb.WriteString("You see:\r\n")
		for _, ref := range refs {
			fmt.Fprintf(&sb, "  %s(#%d)\r\n", g.DB.Creatures[ref].Name, ref)
		}
	}
	d.Send(sb.String())
}

func cmdInventory(g *Game, d *Descriptor, _ string) {
	p := d.PlayerObj()
	if p == nil || p.Inv == nil {
		d.Send("You are not carrying anything.")
		return
	}
	loc := d.Locale()
	var sb strings.Builder
	p.Inv.ForEach(func(bag, slot uint8, it gamedb.Item) {
		name := fmt.Sprintf("#%d", it.Entry)
		if t, ok := g.Items.Get(it.Entry); ok {
			name = t.LocalizedName(loc)
		}
		fmt.Fprintf(&sb, "  %-28s x%-4d (bag %d, slot %d)\r\n", name, it.Count, bag, slot)
	})
	if sb.Len() == 0 {
		d.Send("You are not carrying anything.")
		return
	}
	d.Send("You are carrying:\r\n" + sb.String())
}

// FormatMoney renders a copper amount as gold, silver and copper.
func FormatMoney(m gamedb.Money) string {
	gold := m / gamedb.Gold
	silver := (m % gamedb.Gold) / gamedb.Silver
	copper := m % gamedb.Silver
	return fmt.Sprintf("%dg %ds %dc", gold, silver, copper)
}

func cmdMoney(g *Game, d *Descriptor, _ string) {
	p := d.PlayerObj()
	if p == nil {
		return
	}
	d.Send("You have " + FormatMoney(p.Money) + ".")
}

func cmdTalk(g *Game, d *Descriptor, args string) {
	if args == "" {
		d.Send("Talk to whom?")
		return
	}
	npc := g.DB.LookupCreature(args)
	if npc == nil {
		d.Send("I don't see that here.")
		return
	}
	cs, ok := g.Scripts.Lookup(npc.Script)
	if !ok || !cs.OnGossipHello(d, npc) {
		d.Send(fmt.Sprintf("%s has nothing to say.", npc.Name))
	}
}

func cmdSelect(g *Game, d *Descriptor, args string) {
	npc, menu := d.GossipMenu()
	if npc == nil || menu == nil {
		d.Send("You are not talking to anyone.")
		return
	}
	n, err := strconv.Atoi(strings.TrimSpace(args))
	if err != nil {
		d.Send("Select which option?")
		return
	}
	opt, ok := menu.Option(n - 1)
	if !ok {
		d.Send(fmt.Sprintf("There is no option %d.", n))
		return
	}
	SelectGossip(g, d, opt.Page, opt.Code)
}

// SelectGossip hands a (page, code) pick to the script of the open dialog.
// Picks that are not on the open menu are ignored.
func SelectGossip(g *Game, d *Descriptor, page, code uint32) {
	npc, menu := d.GossipMenu()
	if npc == nil || menu == nil {
		return
	}
	if _, ok := menu.Find(page, code); !ok {
		g.Log.Debug("gossip pick not on menu", zap.Int("desc", d.ID), zap.Uint32("page", page), zap.Uint32("code", code))
		return
	}
	cs, ok := g.Scripts.Lookup(npc.Script)
	if !ok {
		d.CloseGossipMenu()
		return
	}
	if !cs.OnGossipSelect(d, npc, page, code) {
		d.CloseGossipMenu()
	}
}

func cmdBye(g *Game, d *Descriptor, _ string) {
	if npc, _ := d.GossipMenu(); npc == nil {
		d.Send("You are not talking to anyone.")
		return
	}
	d.CloseGossipMenu()
}

func cmdBank(g *Game, d *Descriptor, _ string) {
	if g.Banker == nil {
		d.Send("There is no reagent bank here.")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), g.Banker.Config().Timeout)
	defer cancel()
	g.Banker.Summary(ctx, d)
}

func cmdGuild(g *Game, d *Descriptor, _ string) {
	p := d.PlayerObj()
	gd := g.DB.GuildOf(p)
	if gd == nil {
		d.Send("You are not in a guild.")
		return
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Guild: %s\r\n", gd.Name)
	fmt.Fprintf(&sb, "Leader: %s\r\n", g.PlayerName(gd.Leader))
	fmt.Fprintf(&sb, "Online: %s\r\n", strings.Join(g.OnlineGuildMembers(gd.ID), ", "))
	d.Send(sb.String())
}

func cmdLocale(g *Game, d *Descriptor, args string) {
	p := d.PlayerObj()
	if p == nil {
		return
	}
	if args == "" {
		d.Send(fmt.Sprintf("Your locale is %s. Available: %s.", d.Locale(), strings.Join(g.Text.Locales(), ", ")))
		return
	}
	p.Locale = g.Text.Match(args)
	if err := g.SavePlayer(p); err != nil {
		g.Log.Error("save player failed", zap.String("player", p.Name), zap.Error(err))
	}
	d.Send(fmt.Sprintf("Locale set to %s.", p.Locale))
}

func cmdWho(g *Game, d *Descriptor, _ string) {
	now := time.Now()
	var sb strings.Builder
	sb.WriteString("Player Name          On For Idle  Guild\r\n")
	count := 0
	for _, dd := range g.Conns.AllDescriptors() {
		if dd.State != ConnConnected {
			continue
		}
		p := dd.PlayerObj()
		if p == nil {
			continue
		}
		fmt.Fprintf(&sb, "%-20s %6s %4s  %s\r\n",
			p.Name, FormatConnTime(now.Sub(dd.ConnTime)), FormatIdleTime(now.Sub(dd.LastCmd)), g.GuildName(p.GuildID))
		count++
	}
	fmt.Fprintf(&sb, "%d Players logged in.", count)
	d.Send(sb.String())
}

func cmdQuit(g *Game, d *Descriptor, _ string) {
	d.Send("Goodbye.")
	d.Close()
}

func cmdVersion(g *Game, d *Descriptor, _ string) {
	d.Send(VersionString())
}

func cmdHelp(g *Game, d *Descriptor, _ string) {
	seen := make(map[*Command]bool)
	var lines []string
	for _, c := range g.Commands {
		if seen[c] {
			continue
		}
		seen[c] = true
		lines = append(lines, "  "+c.Help)
	}
	sort.Strings(lines)
	d.Send("Commands:\r\n" + strings.Join(lines, "\r\n"))
}
