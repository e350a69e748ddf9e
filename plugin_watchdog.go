package omronfins

import (
	"errors"
	"sync"
	"time"
)

// ConnectionEventType describes the type of reachability event.
type ConnectionEventType string

const (
	ConnectionEventReachable   ConnectionEventType = "reachable"
	ConnectionEventUnreachable ConnectionEventType = "unreachable"
)

// ConnectionEvent is emitted whenever the PLC becomes reachable or unreachable.
type ConnectionEvent struct {
	Time      time.Time
	Type      ConnectionEventType
	Err       error         // Set when unreachable
	Downtime  time.Duration // Time spent unreachable (on reachable)
	Reachable bool
}

// ConnectionStats contains snapshot metrics about PLC reachability.
type ConnectionStats struct {
	Reachable       bool
	LastReachable   time.Time
	LastUnreachable time.Time
	CurrentDowntime time.Duration
	TotalDowntime   time.Duration
	LastErr         error
	Exchanges       int64
	Failures        int64
	LastRTT         time.Duration
}

// ConnectionWatchdog is a plugin that tracks whether the PLC answers.
// UDP has no connection, so a transport error marks the PLC unreachable and
// any received datagram marks it reachable again. Context cancellation does
// not change the state. Only state changes emit events; events are dropped
// if the channel buffer is full.
type ConnectionWatchdog struct {
	events chan ConnectionEvent

	mu sync.RWMutex

	// guarded by mu
	known           bool
	reachable       bool
	lastReachable   time.Time
	lastUnreachable time.Time
	downtimeStart   time.Time
	totalDowntime   time.Duration
	lastErr         error
	exchanges       int64
	failures        int64
	lastRTT         time.Duration
}

// NewConnectionWatchdog creates a new watchdog plugin.
// eventBuffer controls the channel buffer size for Events(); use 0 for the default of 16.
func NewConnectionWatchdog(eventBuffer int) *ConnectionWatchdog {
	if eventBuffer <= 0 {
		eventBuffer = 16
	}
	return &ConnectionWatchdog{
		events: make(chan ConnectionEvent, eventBuffer),
	}
}

// Name implements Plugin.
func (w *ConnectionWatchdog) Name() string { return "connection_watchdog" }

// Initialize implements Plugin. No-op.
func (w *ConnectionWatchdog) Initialize(*Client) error { return nil }

// OnExchange implements ExchangePlugin.
func (w *ConnectionWatchdog) OnExchange(_ *Client, ex Exchange) {
	var te TransportError
	switch {
	case ex.Err == nil:
		w.markReachable(ex.RTT)
	case errors.As(ex.Err, &te):
		w.markUnreachable(ex.Err)
	}
}

func (w *ConnectionWatchdog) markReachable(rtt time.Duration) {
	now := time.Now()
	var downtime time.Duration

	w.mu.Lock()
	w.exchanges++
	w.lastRTT = rtt
	w.lastReachable = now
	changed := !w.known || !w.reachable
	if !w.downtimeStart.IsZero() {
		downtime = now.Sub(w.downtimeStart)
		w.totalDowntime += downtime
		w.downtimeStart = time.Time{}
	}
	w.known, w.reachable = true, true
	w.mu.Unlock()

	if changed {
		w.emit(ConnectionEvent{
			Time:      now,
			Type:      ConnectionEventReachable,
			Downtime:  downtime,
			Reachable: true,
		})
	}
}

func (w *ConnectionWatchdog) markUnreachable(err error) {
	now := time.Now()

	w.mu.Lock()
	w.exchanges++
	w.failures++
	w.lastErr = err
	changed := !w.known || w.reachable
	if changed {
		w.lastUnreachable = now
		w.downtimeStart = now
	}
	w.known, w.reachable = true, false
	w.mu.Unlock()

	if changed {
		w.emit(ConnectionEvent{
			Time: now,
			Type: ConnectionEventUnreachable,
			Err:  err,
		})
	}
}

// Events returns a read-only channel of reachability events.
func (w *ConnectionWatchdog) Events() <-chan ConnectionEvent {
	return w.events
}

// Stats returns a snapshot of reachability metrics.
func (w *ConnectionWatchdog) Stats() ConnectionStats {
	w.mu.RLock()
	defer w.mu.RUnlock()

	stats := ConnectionStats{
		Reachable:       w.reachable,
		LastReachable:   w.lastReachable,
		LastUnreachable: w.lastUnreachable,
		TotalDowntime:   w.totalDowntime,
		LastErr:         w.lastErr,
		Exchanges:       w.exchanges,
		Failures:        w.failures,
		LastRTT:         w.lastRTT,
	}
	if !w.reachable && !w.downtimeStart.IsZero() {
		stats.CurrentDowntime = time.Since(w.downtimeStart)
	}
	return stats
}

func (w *ConnectionWatchdog) emit(evt ConnectionEvent) {
	select {
	case w.events <- evt:
	default:
	}
}

var _ ExchangePlugin = (*ConnectionWatchdog)(nil)
