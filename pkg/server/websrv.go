package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/crystal-mush/reagentbank/pkg/asyncq"
	"github.com/crystal-mush/reagentbank/pkg/events"
	"github.com/crystal-mush/reagentbank/pkg/gamedb"
	"github.com/crystal-mush/reagentbank/pkg/gossip"
)

// WebConfig holds configuration for the web server.
type WebConfig struct {
	Port        int
	Host        string
	CORSOrigins []string
	RateLimit   int
	JWTSecret   string
	JWTExpiry   int
}

// WebServer provides HTTP/WebSocket transport alongside the TCP game server.
type WebServer struct {
	game      *Game
	httpSrv   *http.Server
	mux       *http.ServeMux
	auth      *AuthService
	rl        *rateLimiter
	upgrader  websocket.Upgrader
	metrics   *Metrics
	startTime time.Time
	log       *zap.Logger
	stop      chan struct{}
}

// NewWebServer creates a web server bound to the game.
func NewWebServer(game *Game, cfg WebConfig) *WebServer {
	ws := &WebServer{
		game:      game,
		mux:       http.NewServeMux(),
		auth:      NewAuthService(game, cfg.JWTSecret, cfg.JWTExpiry),
		rl:        newRateLimiter(cfg.RateLimit),
		startTime: time.Now(),
		log:       game.Log.Named("web"),
		stop:      make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				if len(cfg.CORSOrigins) == 0 {
					return true
				}
				origin := r.Header.Get("Origin")
				for _, o := range cfg.CORSOrigins {
					if strings.EqualFold(o, origin) {
						return true
					}
				}
				return false
			},
		},
	}

	ws.registerRoutes(cfg)
	return ws
}

// Auth returns the auth service for external use (e.g., REST handlers).
func (ws *WebServer) Auth() *AuthService {
	return ws.auth
}

// Handler returns the root handler with middleware applied.
func (ws *WebServer) Handler() http.Handler {
	return ws.httpSrv.Handler
}

// registerRoutes sets up all HTTP routes.
func (ws *WebServer) registerRoutes(cfg WebConfig) {
	// Apply global middleware: CORS -> rate limit
	handler := http.Handler(ws.mux)
	handler = rateLimitMiddleware(ws.rl, handler)
	handler = corsMiddleware(cfg.CORSOrigins, handler)

	ws.httpSrv = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// WebSocket endpoint
	ws.mux.HandleFunc("GET /ws", ws.handleWebSocket)

	// Auth endpoints
	ws.mux.HandleFunc("POST /api/v1/auth/login", ws.handleAuthLogin)
	ws.mux.HandleFunc("POST /api/v1/auth/refresh", ws.handleAuthRefresh)

	// REST API endpoints
	ws.RegisterRESTRoutes()

	// Health endpoint (no auth)
	ws.mux.HandleFunc("GET /health", ws.handleHealth)

	// Prometheus metrics endpoint
	ws.metrics = NewMetrics(ws.game, ws.startTime)
	ws.mux.Handle("GET /metrics", ws.metrics.Handler())
}

// Start begins listening over plain HTTP. TLS is expected to terminate at a
// reverse proxy.
func (ws *WebServer) Start() error {
	// Rate limiter cleanup goroutine
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ws.stop:
				return
			case now := <-ticker.C:
				ws.rl.cleanup(now)
			}
		}
	}()

	ws.log.Info("web server listening", zap.String("addr", ws.httpSrv.Addr))
	err := ws.httpSrv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop gracefully shuts down the web server.
func (ws *WebServer) Stop(ctx context.Context) error {
	select {
	case <-ws.stop:
	default:
		close(ws.stop)
	}
	return ws.httpSrv.Shutdown(ctx)
}

// --- WebSocket Handler ---

// WSMessage is the JSON message format for WebSocket communication.
// Clients send "login", "command" and "gossip_select"; the server sends
// one message per game event.
type WSMessage struct {
	Type    string         `json:"type"`
	Text    string         `json:"text,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
	Command string         `json:"command,omitempty"`
	Menu    *gossip.Menu   `json:"menu,omitempty"`
	Sender  uint32         `json:"sender,omitempty"`
	Action  uint32         `json:"action,omitempty"`
}

// handleWebSocket upgrades an HTTP connection to a WebSocket and creates
// a game Descriptor for the client.
func (ws *WebServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Authenticate via query param or header
	var claims *Claims
	token := r.URL.Query().Get("token")
	if token == "" {
		token, _ = bearerToken(r)
	}
	if token != "" {
		var err error
		claims, err = ws.auth.ValidateToken(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
	}

	wsConn, err := ws.upgrader.Upgrade(w, r, nil)
	if err != nil {
		ws.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	// Use X-Forwarded-For or X-Real-IP if behind a reverse proxy
	remoteAddr := r.RemoteAddr
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx >= 0 {
			remoteAddr = strings.TrimSpace(xff[:idx])
		} else {
			remoteAddr = strings.TrimSpace(xff)
		}
	} else if xri := r.Header.Get("X-Real-IP"); xri != "" {
		remoteAddr = strings.TrimSpace(xri)
	}
	d, wc := newWSDescriptor(ws.game, wsConn, remoteAddr)
	ws.game.Conns.Add(d)

	if claims != nil {
		ws.game.withLock(func() {
			p, ok := ws.game.DB.Players[claims.PlayerRef]
			if !ok {
				wc.sendJSON(WSMessage{Type: "error", Text: "Unknown player"})
				return
			}
			ws.game.ConnectPlayer(d, p)
			wc.sendJSON(loginMessage(p))
		})
	} else {
		wc.sendJSON(WSMessage{Type: "welcome", Text: "Connected. Send {\"type\":\"login\",\"command\":\"connect name password\"} to authenticate."})
	}

	go wsReadLoop(ws, d, wc)
}

func loginMessage(p *gamedb.Player) WSMessage {
	return WSMessage{
		Type: "login",
		Data: map[string]any{
			"player_ref":  int(p.Ref),
			"player_name": p.Name,
			"guild_id":    uint32(p.GuildID),
		},
	}
}

// wsConn holds the WebSocket connection and its write mutex.
type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (wc *wsConn) sendJSON(msg WSMessage) {
	wc.mu.Lock()
	defer wc.mu.Unlock()
	wc.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	wc.conn.WriteJSON(msg)
}

// newWSDescriptor creates a Descriptor configured for WebSocket transport.
// The Descriptor's SendFunc and ReceiveFunc are wired to write JSON to the WS conn.
func newWSDescriptor(game *Game, conn *websocket.Conn, addr string) (*Descriptor, *wsConn) {
	wc := &wsConn{conn: conn}
	d := &Descriptor{
		ID:        game.Conns.NextID(),
		Conn:      nullConn{}, // No raw TCP conn for WS
		State:     ConnLogin,
		PlayerRef: gamedb.Nothing,
		Addr:      addr,
		ConnTime:  time.Now(),
		LastCmd:   time.Now(),
		Retries:   3,
		Transport: TransportWebSocket,
		game:      game,
		queries:   asyncq.NewProcessor(),
	}
	d.SendFunc = func(msg string) {
		wc.sendJSON(WSMessage{Type: "text", Text: msg})
	}
	d.ReceiveFunc = func(ev events.Event) {
		wc.sendJSON(WSMessage{
			Type: ev.Type.String(),
			Text: ev.Text,
			Data: ev.Data,
			Menu: ev.Menu,
		})
	}
	return d, wc
}

func wsReadLoop(ws *WebServer, d *Descriptor, wc *wsConn) {
	defer func() {
		ws.game.DisconnectPlayer(d)
		ws.game.Conns.Remove(d)
		d.Close()
		wc.conn.Close()
		ws.log.Info("websocket closed", zap.Int("desc", d.ID), zap.String("addr", d.Addr))
	}()

	for {
		_, msgBytes, err := wc.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				ws.log.Warn("websocket read error", zap.Int("desc", d.ID), zap.Error(err))
			}
			return
		}

		var msg WSMessage
		if err := json.Unmarshal(msgBytes, &msg); err != nil {
			wc.sendJSON(WSMessage{Type: "error", Text: "Invalid JSON message"})
			continue
		}

		switch msg.Type {
		case "command":
			ws.game.Dispatch(d, msg.Command)
		case "login":
			handleWSLogin(ws, d, wc, msg.Command)
		case "gossip_select":
			ws.game.withLock(func() {
				d.LastCmd = time.Now()
				if d.State != ConnConnected {
					wc.sendJSON(WSMessage{Type: "error", Text: "Not logged in"})
					return
				}
				SelectGossip(ws.game, d, msg.Sender, msg.Action)
			})
		default:
			wc.sendJSON(WSMessage{Type: "error", Text: fmt.Sprintf("Unknown message type: %s", msg.Type)})
		}
		if d.IsClosed() {
			return
		}
	}
}

func handleWSLogin(ws *WebServer, d *Descriptor, wc *wsConn, input string) {
	command, user, password := ParseConnect(input)
	if !strings.HasPrefix(command, "co") {
		wc.sendJSON(WSMessage{Type: "error", Text: "Use: connect <name> <password>"})
		return
	}
	ws.game.withLock(func() {
		if d.State == ConnConnected {
			wc.sendJSON(WSMessage{Type: "error", Text: "Already logged in"})
			return
		}
		p, err := Authenticate(ws.game.DB, user, password)
		if err != nil {
			wc.sendJSON(WSMessage{Type: "error", Text: "Invalid credentials"})
			return
		}
		ws.game.ConnectPlayer(d, p)
		wc.sendJSON(loginMessage(p))
	})
}

// --- Auth HTTP Handlers ---

func (ws *WebServer) handleAuthLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, err := ws.auth.Login(req.Name, req.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (ws *WebServer) handleAuthRefresh(w http.ResponseWriter, r *http.Request) {
	token, ok := bearerToken(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "authorization required")
		return
	}
	newToken, err := ws.auth.RefreshToken(token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": newToken})
}

// --- Health Handler ---

func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if ws.game.Ledger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := ws.game.Ledger.Ping(ctx); err != nil {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, code, map[string]any{
		"status":         status,
		"version":        Version,
		"uptime_seconds": time.Since(ws.startTime).Seconds(),
	})
}

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
