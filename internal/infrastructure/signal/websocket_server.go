package signal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"proctorhub/internal/core/domain"
	"proctorhub/internal/core/ports"
	"proctorhub/pkg/tracing"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Should be configured properly for production
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Config carries the transport tuning knobs for the relay.
type Config struct {
	PingInterval   time.Duration
	PongTimeout    time.Duration
	WriteTimeout   time.Duration
	SendBufferSize int
	MaxMessageSize int64
	OpTimeout      time.Duration

	MessagesPerSecond float64 // 0 disables the per-connection limiter
	MessageBurst      int
}

// Metrics is the subset of the monitoring collector the relay reports to.
type Metrics interface {
	ConnOpened()
	ConnClosed()
	SetRoomCount(n int)
	EventIngested(eventType string)
	EventDropped()
	SignalRelayed(targeted bool)
	ObserveAppend(d time.Duration)
}

// client is one connected participant. All writes to the connection go
// through the buffered send channel so a slow consumer never blocks the
// goroutine handling another participant's message.
type client struct {
	id   domain.ConnID
	conn *websocket.Conn
	send chan []byte
}

// WebSocketServer is the relay: it owns the live connections, routes
// negotiation payloads inside a session's room, and turns detection events
// into durable log appends plus room broadcasts.
type WebSocketServer struct {
	registry ports.RoomRegistry
	sessions ports.SessionRepository
	events   ports.EventRepository
	metrics  Metrics

	clients map[domain.ConnID]*client
	mu      sync.RWMutex

	cfg Config

	logger *zap.SugaredLogger
}

func NewWebSocketServer(
	registry ports.RoomRegistry,
	sessions ports.SessionRepository,
	events ports.EventRepository,
	metrics Metrics,
	cfg Config,
	logger *zap.SugaredLogger,
) *WebSocketServer {
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	if cfg.PongTimeout <= 0 {
		cfg.PongTimeout = 60 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.SendBufferSize <= 0 {
		cfg.SendBufferSize = 64
	}
	if cfg.OpTimeout <= 0 {
		cfg.OpTimeout = 5 * time.Second
	}

	return &WebSocketServer{
		registry: registry,
		sessions: sessions,
		events:   events,
		metrics:  metrics,
		clients:  make(map[domain.ConnID]*client),
		cfg:      cfg,
		logger:   logger,
	}
}

func (s *WebSocketServer) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Errorw("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	connID := domain.ConnID(uuid.New().String())
	c := &client{
		id:   connID,
		conn: conn,
		send: make(chan []byte, s.cfg.SendBufferSize),
	}

	s.mu.Lock()
	s.clients[connID] = c
	s.mu.Unlock()
	s.metrics.ConnOpened()

	s.logger.Infow("participant connected", "conn_id", connID)

	if s.cfg.MaxMessageSize > 0 {
		conn.SetReadLimit(s.cfg.MaxMessageSize)
	}
	conn.SetReadDeadline(time.Now().Add(s.cfg.PongTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(s.cfg.PongTimeout))
		return nil
	})

	go s.writePump(c)

	var limiter *rate.Limiter
	if s.cfg.MessagesPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(s.cfg.MessagesPerSecond), s.cfg.MessageBurst)
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.logger.Infow("error reading message from participant", "conn_id", connID, "error", err)
			}
			break
		}
		conn.SetReadDeadline(time.Now().Add(s.cfg.PongTimeout))

		if limiter != nil && !limiter.Allow() {
			s.sendError(connID, "rate limit exceeded")
			continue
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			s.sendError(connID, "malformed message")
			continue
		}

		if err := s.handleMessage(context.Background(), connID, msg); err != nil {
			s.logger.Infow("error handling message from participant",
				"conn_id", connID, "type", msg.Type, "error", err)
			s.sendError(connID, err.Error())
		}
	}

	// Clean up on disconnect. No participant-left broadcast: absence is
	// observed as silence, and history stays reachable via the report.
	// Closing the send channel under the write lock keeps it ordered
	// against in-flight broadcasts, which send under the read lock.
	s.mu.Lock()
	delete(s.clients, connID)
	close(c.send)
	s.mu.Unlock()

	s.registry.Leave(connID)
	s.metrics.ConnClosed()
	s.metrics.SetRoomCount(s.registry.Sessions())

	s.logger.Infow("participant disconnected", "conn_id", connID)
}

// writePump owns every write to the connection, including pings.
func (s *WebSocketServer) writePump(c *client) {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				c.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *WebSocketServer) handleMessage(ctx context.Context, connID domain.ConnID, msg Message) error {
	if msg.Type == "" {
		return fmt.Errorf("message type is required")
	}

	ctx, span := tracing.TraceWebSocketMessage(ctx, msg.Type, string(connID))
	defer span.End()

	var err error
	switch msg.Type {
	case "join-session":
		err = s.handleJoinSession(ctx, connID, msg)
	case "signal":
		err = s.handleSignal(ctx, connID, msg)
	case "detection-event":
		err = s.handleDetectionEvent(ctx, connID, msg)
	default:
		err = fmt.Errorf("unknown message type: %s", msg.Type)
	}
	if err != nil {
		tracing.RecordError(ctx, err)
	}
	return err
}

// handleJoinSession registers the participant in the session's room and,
// for the two known roles, merges their identity into the session record.
// Any other role string is accepted and registered verbatim: role is
// advisory metadata, not an access-control claim.
func (s *WebSocketServer) handleJoinSession(ctx context.Context, connID domain.ConnID, msg Message) error {
	var payload JoinSessionPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return fmt.Errorf("invalid join-session payload: %w", err)
	}
	if payload.SessionID == "" {
		return fmt.Errorf("sessionId is required")
	}

	s.registry.Join(connID, payload.SessionID, domain.Role(payload.Role), payload.Name)
	s.metrics.SetRoomCount(s.registry.Sessions())

	var patch domain.SessionPatch
	switch domain.Role(payload.Role) {
	case domain.RoleCandidate:
		now := time.Now().UTC()
		patch = domain.SessionPatch{CandidateName: &payload.Name, StartTime: &now}
	case domain.RoleInterviewer:
		patch = domain.SessionPatch{InterviewerName: &payload.Name}
	}

	if !patch.Empty() {
		opCtx, cancel := context.WithTimeout(ctx, s.cfg.OpTimeout)
		err := s.sessions.Upsert(opCtx, payload.SessionID, patch)
		cancel()
		if err != nil {
			// The join itself stays live: membership is ephemeral and the
			// session record is reconstructable from a later upsert. The
			// joiner still learns the write failed.
			s.logger.Warnw("session upsert failed on join",
				"session_id", payload.SessionID, "role", payload.Role, "error", err)
			s.sendError(connID, "session record update failed")
		}
	}

	s.logger.Infow("participant joined session",
		"conn_id", connID,
		"session_id", payload.SessionID,
		"role", payload.Role,
		"name", payload.Name,
	)

	// Everyone in the room, the joiner included, hears about the join.
	s.broadcast(s.registry.Members(payload.SessionID), Message{
		Type: "participant-joined",
		Payload: mustMarshal(ParticipantJoinedPayload{
			SessionID: payload.SessionID,
			Role:      payload.Role,
			Name:      payload.Name,
		}),
	})

	return nil
}

// handleSignal relays an opaque negotiation payload. Delivery is
// best-effort: a target that has disconnected is silently skipped, since the
// negotiation protocol above this layer handles retries.
func (s *WebSocketServer) handleSignal(ctx context.Context, connID domain.ConnID, msg Message) error {
	var payload SignalPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return fmt.Errorf("invalid signal payload: %w", err)
	}

	out := Message{
		Type: "signal",
		Payload: mustMarshal(SignalRelayPayload{
			From: connID,
			Data: payload.Data,
		}),
	}

	if payload.To != "" {
		s.send(payload.To, out)
		s.metrics.SignalRelayed(true)
		return nil
	}

	if payload.SessionID == "" {
		return fmt.Errorf("signal requires a sessionId or a target")
	}
	s.broadcast(s.registry.MembersExcept(payload.SessionID, connID), out)
	s.metrics.SignalRelayed(false)
	return nil
}

// handleDetectionEvent is the ingestion path: durable append first, broadcast
// only after the append succeeds. On storage failure the event is not
// broadcast and the sender sees an explicit error; re-sending is the
// detector's call.
func (s *WebSocketServer) handleDetectionEvent(ctx context.Context, connID domain.ConnID, msg Message) error {
	var payload DetectionEventPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return fmt.Errorf("invalid detection-event payload: %w", err)
	}
	if payload.SessionID == "" {
		return fmt.Errorf("sessionId is required")
	}

	candidateName := ""
	if member, ok := s.registry.Member(connID); ok {
		candidateName = member.Name
	}
	if candidateName == "" {
		candidateName = candidateNameFromMeta(payload.Meta)
	}

	event := &domain.Event{
		SessionID:     payload.SessionID,
		CandidateName: candidateName,
		Type:          payload.Type,
		Meta:          payload.Meta,
		Ts:            parseTimestamp(payload.Ts),
	}

	opCtx, cancel := context.WithTimeout(ctx, s.cfg.OpTimeout)
	start := time.Now()
	stored, err := s.events.Append(opCtx, event)
	cancel()
	s.metrics.ObserveAppend(time.Since(start))
	if err != nil {
		s.metrics.EventDropped()
		return fmt.Errorf("failed to store detection event: %w", err)
	}
	s.metrics.EventIngested(stored.Type)

	s.logger.Debugw("detection event stored",
		"session_id", stored.SessionID,
		"event_id", stored.ID,
		"event_type", stored.Type,
	)

	s.broadcast(s.registry.Members(payload.SessionID), Message{
		Type: "detection-event",
		Payload: mustMarshal(DetectionEventBroadcast{
			ID:        stored.ID,
			SessionID: stored.SessionID,
			Type:      stored.Type,
			Meta:      stored.Meta,
			Ts:        stored.Ts,
		}),
	})

	return nil
}

// send queues a message for one connection, silently dropping it when the
// connection is gone or its buffer is full.
func (s *WebSocketServer) send(connID domain.ConnID, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		s.logger.Errorw("failed to marshal outbound message", "error", err)
		return
	}
	s.sendRaw(connID, data)
}

func (s *WebSocketServer) broadcast(connIDs []domain.ConnID, msg Message) {
	if len(connIDs) == 0 {
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		s.logger.Errorw("failed to marshal outbound message", "error", err)
		return
	}
	for _, connID := range connIDs {
		s.sendRaw(connID, data)
	}
}

func (s *WebSocketServer) sendRaw(connID domain.ConnID, data []byte) {
	// The send happens under the read lock so it cannot interleave with the
	// close in the disconnect path, which holds the write lock.
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.clients[connID]
	if !ok {
		return
	}

	select {
	case c.send <- data:
	default:
		s.logger.Warnw("send buffer full, dropping message", "conn_id", connID)
	}
}

func (s *WebSocketServer) sendError(connID domain.ConnID, message string) {
	s.send(connID, Message{
		Type:    "error",
		Payload: mustMarshal(ErrorPayload{Message: message}),
	})
}

// ConnectionCount returns the number of live connections.
func (s *WebSocketServer) ConnectionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// IsConnected reports whether the handle identifies a live connection.
func (s *WebSocketServer) IsConnected(connID domain.ConnID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.clients[connID]
	return ok
}

func candidateNameFromMeta(meta json.RawMessage) string {
	if len(meta) == 0 {
		return ""
	}
	var fields struct {
		CandidateName string `json:"candidateName"`
	}
	if err := json.Unmarshal(meta, &fields); err != nil {
		return ""
	}
	return fields.CandidateName
}

func mustMarshal(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return data
}
