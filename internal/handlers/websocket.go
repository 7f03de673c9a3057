package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"gorm.io/gorm"

	"github.com/CLDWare/pollroom-backend/config"
	"github.com/CLDWare/pollroom-backend/internal/metrics"
	"github.com/CLDWare/pollroom-backend/internal/store"
	"github.com/CLDWare/pollroom-backend/pkg/logger"
)

// wsConn is the slice of *websocket.Conn the handler needs. Tests
// substitute an in-memory implementation.
type wsConn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteJSON(v any) error
	Close() error
}

// WebsocketHandler owns every live connection and the topic
// subscriptions used to fan events out per poll. All poll mutation
// goes through the injected store, which serializes it.
type WebsocketHandler struct {
	config  *config.Config
	db      *gorm.DB
	store   *store.Store
	timers  *store.TimerManager
	metrics *metrics.Metrics

	mu          sync.RWMutex
	connections map[string]*websocketConnection
	topics      map[string]map[string]*websocketConnection // topic -> connection id -> connection

	locksMu   sync.Mutex
	pollLocks map[string]*sync.Mutex // poll id -> event serialization lock
}

func NewWebsocketHandler(cfg *config.Config, db *gorm.DB, st *store.Store, timers *store.TimerManager, m *metrics.Metrics) *WebsocketHandler {
	return &WebsocketHandler{
		config:      cfg,
		db:          db,
		store:       st,
		timers:      timers,
		metrics:     m,
		connections: make(map[string]*websocketConnection),
		topics:      make(map[string]map[string]*websocketConnection),
		pollLocks:   make(map[string]*sync.Mutex),
	}
}

// lockPoll serializes whole-event handling per poll: the store call and
// the broadcasts it triggers happen as one unit, so subscribers never
// observe events out of order relative to the state transitions that
// produced them. Returns the unlock func.
func (h *WebsocketHandler) lockPoll(pollID string) func() {
	h.locksMu.Lock()
	l, ok := h.pollLocks[pollID]
	if !ok {
		l = &sync.Mutex{}
		h.pollLocks[pollID] = l
	}
	h.locksMu.Unlock()

	l.Lock()
	return l.Unlock
}

func (h *WebsocketHandler) forgetPollLock(pollID string) {
	h.locksMu.Lock()
	delete(h.pollLocks, pollID)
	h.locksMu.Unlock()
}

// websocketConnection is one live client connection.
type websocketConnection struct {
	connectionID string
	ws           wsConn
	handler      *WebsocketHandler

	mu              sync.RWMutex // guards the lifecycle fields below
	latestMessage   time.Time
	latestHeartbeat time.Time
	pingsSent       int
	pongsReceived   int
	closed          bool
	heartbeatCancel func()

	sendMu sync.Mutex // serializes writes to ws
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // In production, check the origin properly!
	},
}

func (h *WebsocketHandler) InitialiseWebsocket(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Err(err)
		return
	}

	conn := h.register(ws)
	defer h.disconnect(conn)

	conn.startHeartbeatMonitor()

	for {
		_, data, err := conn.ws.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Info(fmt.Sprintf("Connection %s read ended: %s", conn.connectionID, err))
			}
			break
		}

		var msg websocketMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			errMsg := "Invalid message, expected JSON with a 'command' field"
			conn.send(websocketErrorMessage{ErrorCode: 0, Info: &errMsg}) // bad request
			continue
		}

		h.metrics.MessageReceived()
		h.handleMessage(conn, msg)
	}
}

// register wraps a raw connection and adds it to the registry.
func (h *WebsocketHandler) register(ws wsConn) *websocketConnection {
	conn := &websocketConnection{
		connectionID:    uuid.NewString(),
		ws:              ws,
		handler:         h,
		latestMessage:   time.Now(),
		latestHeartbeat: time.Now(),
	}

	h.mu.Lock()
	h.connections[conn.connectionID] = conn
	h.mu.Unlock()

	h.metrics.ConnectionOpened()
	logger.Info(fmt.Sprintf("Client connected: %s", conn.connectionID))
	return conn
}

func (h *WebsocketHandler) handleMessage(conn *websocketConnection, msg websocketMessage) {
	conn.mu.Lock()
	conn.latestMessage = time.Now()
	conn.mu.Unlock()

	switch {
	case msg.Command == "pong":
		conn.mu.Lock()
		conn.pongsReceived++
		conn.mu.Unlock()
	case triggersPollFlow(&msg):
		h.pollFlow(conn, msg)
	default:
		errMsg := fmt.Sprintf("Unknown command '%s'", msg.Command)
		conn.send(websocketErrorMessage{ErrorCode: 0, Info: &errMsg}) // bad request
	}
}

// send writes one message to the client. Writes are serialized per
// connection because gorilla connections allow only one writer.
func (conn *websocketConnection) send(msg any) {
	conn.sendMu.Lock()
	defer conn.sendMu.Unlock()

	if err := conn.ws.WriteJSON(msg); err != nil {
		logger.Err(fmt.Sprintf("Write to %s failed: %s", conn.connectionID, err))
		conn.handler.metrics.BroadcastError()
		return
	}
	conn.handler.metrics.MessageSent()
}

func (conn *websocketConnection) close() {
	conn.mu.Lock()
	if conn.closed {
		conn.mu.Unlock()
		return
	}
	conn.closed = true
	conn.mu.Unlock()

	conn.stopHeartbeatMonitor()
	conn.ws.Close()
}

// pollTopic is the broadcast scope of one poll.
func pollTopic(pollID string) string {
	return "poll:" + pollID
}

func (h *WebsocketHandler) subscribe(conn *websocketConnection, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.topics[topic] == nil {
		h.topics[topic] = make(map[string]*websocketConnection)
	}
	h.topics[topic][conn.connectionID] = conn
}

func (h *WebsocketHandler) unsubscribe(connectionID, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if subs, ok := h.topics[topic]; ok {
		delete(subs, connectionID)
		if len(subs) == 0 {
			delete(h.topics, topic)
		}
	}
}

// dropTopic removes a whole topic, used on poll teardown.
func (h *WebsocketHandler) dropTopic(topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.topics, topic)
}

// publish delivers an event to every connection subscribed to the
// topic. At-least-once: a failed write is logged and counted, never
// retried or reordered.
func (h *WebsocketHandler) publish(topic, event string, data map[string]any) {
	h.publishExcept(topic, "", event, data)
}

// publishExcept is publish minus one connection, used for events the
// originating client already learns about through its ack.
func (h *WebsocketHandler) publishExcept(topic, exceptConnectionID, event string, data map[string]any) {
	h.mu.RLock()
	subscribers := make([]*websocketConnection, 0, len(h.topics[topic]))
	for id, conn := range h.topics[topic] {
		if id != exceptConnectionID {
			subscribers = append(subscribers, conn)
		}
	}
	h.mu.RUnlock()

	msg := websocketMessage{Command: event, Data: data}
	for _, conn := range subscribers {
		conn.send(msg)
	}
}

// sendToConnection delivers a targeted event to a single connection.
func (h *WebsocketHandler) sendToConnection(connectionID string, msg any) bool {
	h.mu.RLock()
	conn, ok := h.connections[connectionID]
	h.mu.RUnlock()

	if !ok {
		return false
	}
	conn.send(msg)
	return true
}

// disconnect finalizes a connection. The participant leaves their
// poll; when the participant is the teacher the whole poll is torn
// down and the remaining participants are notified before the
// connection is forgotten.
func (h *WebsocketHandler) disconnect(conn *websocketConnection) {
	conn.close()

	h.mu.Lock()
	delete(h.connections, conn.connectionID)
	h.mu.Unlock()
	h.metrics.ConnectionClosed()

	participant, ok := h.store.GetParticipant(conn.connectionID)
	if !ok {
		logger.Info(fmt.Sprintf("Client disconnected: %s", conn.connectionID))
		return
	}

	unlock := h.lockPoll(participant.PollID)
	defer unlock()

	topic := pollTopic(participant.PollID)
	if participant.Role == store.RoleTeacher {
		removed := h.store.RemovePoll(participant.PollID)
		for _, p := range removed {
			if p.ConnectionID == conn.connectionID {
				continue
			}
			h.sendToConnection(p.ConnectionID, websocketMessage{
				Command: evtPollClosed,
				Data:    map[string]any{"message": "Teacher has left the poll"},
			})
		}
		h.dropTopic(topic)
		h.forgetPollLock(participant.PollID)
		h.metrics.PollRemoved()
		h.recordPollEnded(participant.PollID)
		logger.Info(fmt.Sprintf("Teacher disconnected, closed poll %s", participant.PollID))
	} else {
		h.store.RemoveParticipant(conn.connectionID)
		h.unsubscribe(conn.connectionID, topic)
		h.publish(topic, evtStudentLeft, map[string]any{
			"name":         participant.Name,
			"participants": h.store.ActiveStudents(participant.PollID),
		})
	}

	logger.Info(fmt.Sprintf("Client disconnected: %s", conn.connectionID))
}
