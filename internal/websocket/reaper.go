package websocket

import (
	"time"

	"go.uber.org/zap"
)

// IdleReaper disconnects clients that have sent nothing for longer than
// the idle limit, so abandoned browser tabs do not hold provider
// sessions open.
type IdleReaper struct {
	hub       *Hub
	idleLimit time.Duration
	interval  time.Duration
	logger    *zap.Logger
	stopChan  chan struct{}
}

// NewIdleReaper creates an idle-client reaper for the hub
func NewIdleReaper(hub *Hub, idleLimit time.Duration, logger *zap.Logger) *IdleReaper {
	if idleLimit <= 0 {
		idleLimit = 5 * time.Minute
	}
	return &IdleReaper{
		hub:       hub,
		idleLimit: idleLimit,
		interval:  idleLimit / 2,
		logger:    logger,
		stopChan:  make(chan struct{}),
	}
}

// Start begins the background reap loop
func (r *IdleReaper) Start() {
	go r.reapLoop()
	r.logger.Info("Idle reaper started", zap.Duration("idleLimit", r.idleLimit))
}

// Stop gracefully stops the reaper
func (r *IdleReaper) Stop() {
	close(r.stopChan)
	r.logger.Info("Idle reaper stopped")
}

func (r *IdleReaper) reapLoop() {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopChan:
			return
		case <-ticker.C:
			r.reap()
		}
	}
}

// reap closes the connection of every client idle beyond the limit. The
// client's read pump then unregisters it through the normal path.
func (r *IdleReaper) reap() {
	cutoff := time.Now().Add(-r.idleLimit)

	r.hub.mu.RLock()
	var stale []*Client
	for _, client := range r.hub.clients {
		if client.idleSince().Before(cutoff) {
			stale = append(stale, client)
		}
	}
	r.hub.mu.RUnlock()

	for _, client := range stale {
		r.logger.Info("Disconnecting idle client",
			zap.String("sessionID", client.sessionID))
		client.conn.Close()
	}
}
