package server

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// ProcessCallbacks runs the ready query callbacks of every session under
// the game lock. It returns how many ran and how many are still waiting.
func (g *Game) ProcessCallbacks() (ran, pending int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, d := range g.Conns.AllDescriptors() {
		if d.queries == nil || d.IsClosed() {
			continue
		}
		ran += d.queries.Process()
		pending += d.queries.Pending()
	}
	return ran, pending
}

// QueueStats returns the number of sessions with outstanding queries and
// the total number of outstanding queries.
func (g *Game) QueueStats() (sessions, pending int) {
	for _, d := range g.Conns.AllDescriptors() {
		if d.queries == nil {
			continue
		}
		if n := d.queries.Pending(); n > 0 {
			sessions++
			pending += n
		}
	}
	return sessions, pending
}

// StartQueueProcessor drains session callbacks until ctx is done. It ticks
// fast while queries are outstanding and slows down when idle.
func (g *Game) StartQueueProcessor(ctx context.Context) {
	go func() {
		const fastTick = 10 * time.Millisecond
		const idleTick = 100 * time.Millisecond
		ticker := time.NewTicker(idleTick)
		defer ticker.Stop()
		heartbeat := time.NewTicker(60 * time.Second)
		defer heartbeat.Stop()
		idle := true
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				func() {
					defer func() {
						if r := recover(); r != nil {
							g.Log.Error("panic in queue processor", zap.Any("panic", r), zap.Stack("stack"))
						}
					}()
					ran, pending := g.ProcessCallbacks()
					hadWork := ran > 0 || pending > 0
					if hadWork && idle {
						idle = false
						ticker.Reset(fastTick)
					} else if !hadWork && !idle {
						idle = true
						ticker.Reset(idleTick)
					}
				}()
			case <-heartbeat.C:
				if sessions, pending := g.QueueStats(); pending > 0 {
					g.Log.Info("queue heartbeat", zap.Int("sessions", sessions), zap.Int("pending", pending))
				}
				g.DisconnectIdle(time.Now())
			}
		}
	}()
}
