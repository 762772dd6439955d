package server

import (
	"context"
	"net/http"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/crystal-mush/reagentbank/pkg/gamedb"
	"github.com/crystal-mush/reagentbank/pkg/ledger"
	"github.com/crystal-mush/reagentbank/pkg/locale"
)

// RegisterRESTRoutes registers all REST API endpoints on the web server's mux.
// Called from WebServer.registerRoutes after the mux is created.
func (ws *WebServer) RegisterRESTRoutes() {
	// WHO list (optional auth)
	ws.mux.Handle("GET /api/v1/who",
		authMiddleware(ws.auth, false, http.HandlerFunc(ws.handleWho)))

	// Caller's character (required auth)
	ws.mux.Handle("GET /api/v1/me",
		authMiddleware(ws.auth, true, http.HandlerFunc(ws.handleMe)))

	// Guild reagent bank (required auth)
	ws.mux.Handle("GET /api/v1/bank",
		authMiddleware(ws.auth, true, http.HandlerFunc(ws.handleBank)))
	ws.mux.Handle("GET /api/v1/bank/{subclass}",
		authMiddleware(ws.auth, true, http.HandlerFunc(ws.handleBankCategory)))
}

// --- WHO ---

func (ws *WebServer) handleWho(w http.ResponseWriter, r *http.Request) {
	type whoEntry struct {
		Name  string `json:"name"`
		Ref   int    `json:"ref"`
		Guild string `json:"guild,omitempty"`
		OnFor string `json:"on_for"`
		Idle  string `json:"idle"`
	}

	now := time.Now()
	var entries []whoEntry
	ws.game.withLock(func() {
		for _, dd := range ws.game.Conns.AllDescriptors() {
			if dd.State != ConnConnected {
				continue
			}
			p := dd.PlayerObj()
			if p == nil {
				continue
			}
			entries = append(entries, whoEntry{
				Name:  p.Name,
				Ref:   int(p.Ref),
				Guild: ws.game.GuildName(p.GuildID),
				OnFor: FormatConnTime(now.Sub(dd.ConnTime)),
				Idle:  FormatIdleTime(now.Sub(dd.LastCmd)),
			})
		}
	})

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name < entries[j].Name
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"players": entries,
		"count":   len(entries),
	})
}

// --- Character ---

type itemView struct {
	Entry uint32 `json:"entry"`
	Name  string `json:"name"`
	Link  string `json:"link"`
	Count uint32 `json:"count"`
	Bag   uint8  `json:"bag"`
	Slot  uint8  `json:"slot"`
}

func (ws *WebServer) handleMe(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())
	var body map[string]any
	ws.game.withLock(func() {
		p, ok := ws.game.DB.Players[claims.PlayerRef]
		if !ok {
			return
		}
		loc := ws.game.Text.Match(p.Locale)
		items := []itemView{}
		if p.Inv != nil {
			p.Inv.ForEach(func(bag, slot uint8, it gamedb.Item) {
				items = append(items, ws.itemView(it.Entry, it.Count, loc, bag, slot))
			})
		}
		body = map[string]any{
			"ref":       int(p.Ref),
			"name":      p.Name,
			"locale":    loc,
			"guild_id":  uint32(p.GuildID),
			"guild":     ws.game.GuildName(p.GuildID),
			"money":     int64(p.Money),
			"money_fmt": FormatMoney(p.Money),
			"items":     items,
		}
	})
	if body == nil {
		writeError(w, http.StatusNotFound, "no such player")
		return
	}
	writeJSON(w, http.StatusOK, body)
}

func (ws *WebServer) itemView(entry, count uint32, loc string, bag, slot uint8) itemView {
	v := itemView{Entry: entry, Count: count, Bag: bag, Slot: slot, Name: "#" + strconv.FormatUint(uint64(entry), 10)}
	if t, ok := ws.game.Items.Get(entry); ok {
		v.Name = t.LocalizedName(loc)
		v.Link = locale.ItemLink(t, loc)
	}
	return v
}

// --- Reagent bank ---

type bankEntry struct {
	ledger.Entry
	Name string `json:"name"`
	Link string `json:"link"`
}

// callerGuild resolves the guild and locale of the authenticated player.
func (ws *WebServer) callerGuild(r *http.Request) (gamedb.GuildID, string, bool) {
	claims := ClaimsFromContext(r.Context())
	var guild gamedb.GuildID
	var loc string
	ws.game.withLock(func() {
		if p, ok := ws.game.DB.Players[claims.PlayerRef]; ok {
			guild = p.GuildID
			loc = ws.game.Text.Match(p.Locale)
			if ws.game.DB.GuildOf(p) == nil {
				guild = 0
			}
		}
	})
	return guild, loc, guild != 0
}

func (ws *WebServer) bankEntries(rows []ledger.Entry, loc string) []bankEntry {
	out := make([]bankEntry, 0, len(rows))
	for _, e := range rows {
		be := bankEntry{Entry: e}
		v := ws.itemView(e.ItemEntry, e.Amount, loc, 0, 0)
		be.Name, be.Link = v.Name, v.Link
		out = append(out, be)
	}
	return out
}

func (ws *WebServer) handleBank(w http.ResponseWriter, r *http.Request) {
	guild, loc, ok := ws.callerGuild(r)
	if !ok {
		writeError(w, http.StatusForbidden, "not in a guild")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	usage, err := ws.game.Ledger.Usage(ctx, guild)
	if err != nil {
		ws.log.Error("bank usage failed", zap.Uint32("guild", uint32(guild)), zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "bank unavailable")
		return
	}
	rows, err := ws.game.Ledger.ListGuild(ctx, guild)
	if err != nil {
		ws.log.Error("bank listing failed", zap.Uint32("guild", uint32(guild)), zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "bank unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"guild_id": uint32(guild),
		"capacity": usage.Capacity,
		"used":     usage.Used,
		"free":     usage.Free(),
		"entries":  ws.bankEntries(rows, loc),
	})
}

func (ws *WebServer) handleBankCategory(w http.ResponseWriter, r *http.Request) {
	sub, err := strconv.ParseUint(r.PathValue("subclass"), 10, 32)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid subclass")
		return
	}
	guild, loc, ok := ws.callerGuild(r)
	if !ok {
		writeError(w, http.StatusForbidden, "not in a guild")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	rows, err := ws.game.Ledger.ListCategory(ctx, guild, gamedb.Subclass(sub))
	if err != nil {
		ws.log.Error("bank category failed", zap.Uint32("guild", uint32(guild)), zap.Uint64("subclass", sub), zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "bank unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"guild_id": uint32(guild),
		"subclass": sub,
		"entries":  ws.bankEntries(rows, loc),
	})
}
