package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/CLDWare/pollroom-backend/pkg/logger"
)

// startHeartbeatMonitor watches a connection for silence. After a
// quiet period the server starts pinging; a client that stays silent
// past the kill delay is disconnected, which also runs the normal
// participant teardown.
func (conn *websocketConnection) startHeartbeatMonitor() {
	ctx, cancel := context.WithCancel(context.Background())

	conn.mu.Lock()
	conn.heartbeatCancel = cancel
	conn.mu.Unlock()

	hb := conn.handler.config.Heartbeat

	go func() {
		ticker := time.NewTicker(hb.CheckInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				conn.mu.RLock()
				age := time.Since(conn.latestMessage)
				heartbeatAge := time.Since(conn.latestHeartbeat)
				pingsSent := conn.pingsSent
				pongsReceived := conn.pongsReceived
				conn.mu.RUnlock()

				if age >= hb.KillDelay {
					errMsg := "Heartbeat missed"
					conn.send(websocketErrorMessage{ErrorCode: 1, Info: &errMsg})
					conn.close()
					responseRate := float32(0)
					if pingsSent > 0 {
						responseRate = float32(pongsReceived) / float32(pingsSent) * 100
					}
					logger.Info(fmt.Sprintf(
						"Disconnected %s, heartbeat missed. %.2f%% response rate (%d/%d)",
						conn.connectionID, responseRate, pongsReceived, pingsSent,
					))
					return
				}

				if age >= hb.Delay && heartbeatAge >= hb.Interval {
					conn.send(websocketMessage{Command: "ping"})
					conn.mu.Lock()
					conn.pingsSent++
					conn.latestHeartbeat = time.Now()
					conn.mu.Unlock()
					logger.Debug(fmt.Sprintf("Sent heartbeat to %s", conn.connectionID))
				}
			}
		}
	}()
}

func (conn *websocketConnection) stopHeartbeatMonitor() {
	conn.mu.Lock()
	cancel := conn.heartbeatCancel
	conn.heartbeatCancel = nil
	conn.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}
