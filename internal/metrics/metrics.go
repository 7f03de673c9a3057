package metrics

import (
	"runtime"
	"sync/atomic"
	"time"
)

// Metrics tracks websocket server load and resource usage with atomic
// counters, cheap enough to bump from every hot path.
type Metrics struct {
	activeConnections int64
	totalConnections  int64
	activePolls       int64

	messagesReceived int64
	messagesSent     int64

	broadcastErrors int64

	startTime time.Time
}

func New() *Metrics {
	return &Metrics{
		startTime: time.Now(),
	}
}

func (m *Metrics) ConnectionOpened() {
	atomic.AddInt64(&m.activeConnections, 1)
	atomic.AddInt64(&m.totalConnections, 1)
}

func (m *Metrics) ConnectionClosed() {
	atomic.AddInt64(&m.activeConnections, -1)
}

func (m *Metrics) PollCreated() {
	atomic.AddInt64(&m.activePolls, 1)
}

func (m *Metrics) PollRemoved() {
	atomic.AddInt64(&m.activePolls, -1)
}

func (m *Metrics) MessageReceived() {
	atomic.AddInt64(&m.messagesReceived, 1)
}

func (m *Metrics) MessageSent() {
	atomic.AddInt64(&m.messagesSent, 1)
}

func (m *Metrics) BroadcastError() {
	atomic.AddInt64(&m.broadcastErrors, 1)
}

// Snapshot is a point-in-time view of all counters.
type Snapshot struct {
	ActiveConnections int64 `json:"active_connections"`
	TotalConnections  int64 `json:"total_connections"`
	ActivePolls       int64 `json:"active_polls"`

	MessagesReceived int64 `json:"messages_received"`
	MessagesSent     int64 `json:"messages_sent"`

	BroadcastErrors int64 `json:"broadcast_errors"`

	UptimeSeconds int64  `json:"uptime_seconds"`
	MemoryUsageMB uint64 `json:"memory_usage_mb"`
	NumGoroutines int    `json:"num_goroutines"`
}

func (m *Metrics) Snapshot() Snapshot {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return Snapshot{
		ActiveConnections: atomic.LoadInt64(&m.activeConnections),
		TotalConnections:  atomic.LoadInt64(&m.totalConnections),
		ActivePolls:       atomic.LoadInt64(&m.activePolls),
		MessagesReceived:  atomic.LoadInt64(&m.messagesReceived),
		MessagesSent:      atomic.LoadInt64(&m.messagesSent),
		BroadcastErrors:   atomic.LoadInt64(&m.broadcastErrors),
		UptimeSeconds:     int64(time.Since(m.startTime).Seconds()),
		MemoryUsageMB:     memStats.Alloc / 1024 / 1024,
		NumGoroutines:     runtime.NumGoroutine(),
	}
}
