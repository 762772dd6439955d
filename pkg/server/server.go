package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Server is the main TCP game server.
type Server struct {
	Game      *Game
	listener  net.Listener
	webServer *WebServer
	cancel    context.CancelFunc
	mu        sync.Mutex
}

// NewServer creates a new server instance around a fully wired game.
func NewServer(game *Game) *Server {
	return &Server{Game: game}
}

// Start begins listening for connections and blocks until every listener
// has stopped.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	s.Game.StartQueueProcessor(ctx)
	s.Game.StartAutoArchive(ctx)

	conf := s.Game.Conf
	log := s.Game.Log
	log.Info("world loaded",
		zap.Int("players", len(s.Game.DB.Players)),
		zap.Int("guilds", len(s.Game.DB.Guilds)),
		zap.Int("creatures", len(s.Game.DB.Creatures)),
		zap.Int("items", s.Game.Items.Len()))

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", conf.Port))
	if err != nil {
		cancel()
		return fmt.Errorf("listener: %w", err)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	log.Info("listening", zap.Int("port", conf.Port))

	var wg sync.WaitGroup
	errCh := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.acceptLoop(ln)
	}()

	// Start web server if enabled
	if conf.WebEnabled {
		cfg := WebConfig{
			Port:        conf.WebPort,
			Host:        conf.WebHost,
			CORSOrigins: conf.WebCORSOrigins,
			RateLimit:   conf.WebRateLimit,
			JWTSecret:   conf.JWTSecret,
			JWTExpiry:   conf.JWTExpiry,
		}
		ws := NewWebServer(s.Game, cfg)
		s.mu.Lock()
		s.webServer = ws
		s.mu.Unlock()
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := ws.Start(); err != nil {
				errCh <- fmt.Errorf("web server: %w", err)
			}
		}()
	}

	wg.Wait()
	select {
	case err := <-errCh:
		return err
	default:
	}
	return nil
}

// acceptLoop accepts connections on the given listener until it is closed.
func (s *Server) acceptLoop(ln net.Listener) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.Game.Log.Warn("accept error", zap.Error(err))
			continue
		}
		go s.handleConnection(conn)
	}
}

// Stop closes all listeners and stops the queue processor.
func (s *Server) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		s.listener.Close()
	}
	if s.webServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.webServer.Stop(ctx)
	}
	if s.cancel != nil {
		s.cancel()
	}
	for _, d := range s.Game.Conns.AllDescriptors() {
		d.Send("Shutting down. Goodbye.")
		d.Close()
	}
}

// handleConnection manages a single client connection lifecycle.
func (s *Server) handleConnection(conn net.Conn) {
	id := s.Game.Conns.NextID()
	d := NewDescriptor(s.Game, id, conn)
	s.Game.Conns.Add(d)
	log := s.Game.Log.With(zap.Int("desc", d.ID))
	log.Info("new connection", zap.String("addr", d.Addr))

	defer func() {
		s.Game.DisconnectPlayer(d)
		s.Game.Conns.Remove(d)
		d.Close()
		log.Info("connection closed", zap.String("addr", d.Addr))
	}()

	d.SendNoNewline(WelcomeText)

	scanner := bufio.NewScanner(d.Conn)
	scanner.Buffer(make([]byte, 8192), 8192)

	for scanner.Scan() {
		if d.IsClosed() {
			return
		}
		line := scanner.Text()
		d.BytesRecv += len(line) + 1 // +1 for newline
		line = stripTelnet(line)
		line = strings.TrimRight(line, "\r\n")
		log.Debug("input", zap.Int("player", int(d.PlayerRef)), zap.String("line", line))
		s.Game.Dispatch(d, line)
		if d.IsClosed() {
			return
		}
	}
}

// stripTelnet removes telnet IAC sequences and stray control characters.
func stripTelnet(s string) string {
	var buf strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == 0xFF {
			// IAC + command, plus the option byte for WILL/WONT/DO/DONT.
			if i+1 < len(s) && s[i+1] >= 0xFB && s[i+1] <= 0xFE {
				i += 2
			} else {
				i++
			}
			continue
		}
		if c < 32 && c != '\t' {
			continue
		}
		buf.WriteByte(c)
	}
	return buf.String()
}
