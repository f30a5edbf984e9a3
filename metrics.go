package main

import "sync/atomic"

// Metrics holds process-wide counters exposed by /admin/stats.
type Metrics struct {
	ticks       atomic.Int64
	tickNanos   atomic.Int64
	connsOpened atomic.Int64
	connsClosed atomic.Int64
}

// AddTick records one scheduler tick and its duration.
func (m *Metrics) AddTick(ns int64) {
	m.ticks.Add(1)
	m.tickNanos.Add(ns)
}

// ConnOpened records an accepted WebSocket connection.
func (m *Metrics) ConnOpened() { m.connsOpened.Add(1) }

// ConnClosed records a dropped WebSocket connection.
func (m *Metrics) ConnClosed() { m.connsClosed.Add(1) }

// Snapshot returns a read-only copy for HTTP output.
func (m *Metrics) Snapshot() map[string]any {
	ticks := m.ticks.Load()
	nanos := m.tickNanos.Load()
	var avgMs float64
	if ticks > 0 {
		avgMs = float64(nanos) / float64(ticks) / 1e6
	}
	return map[string]any{
		"ticks":        ticks,
		"avg_tick_ms":  avgMs,
		"conns_opened": m.connsOpened.Load(),
		"conns_closed": m.connsClosed.Load(),
	}
}
