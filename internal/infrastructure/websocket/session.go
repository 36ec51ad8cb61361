package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	gorillaws "github.com/gorilla/websocket"

	apperrors "caselink/pkg/errors"
	"caselink/pkg/logger"
)

// SessionState tracks the connection lifecycle. Transitions are
// Connecting -> Joined -> Closed; Closed is terminal.
type SessionState int32

const (
	StateConnecting SessionState = iota
	StateJoined
	StateClosed
)

// MessageSink validates and persists one inbound chat message, returning the
// event to broadcast. Persistence completes before the session broadcasts.
type MessageSink interface {
	HandleInbound(ctx context.Context, senderID, receiverID, caseID, content string) (ChatEvent, error)
}

// wireConn is the subset of *gorilla/websocket.Conn the session uses.
type wireConn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Session represents one live connection's chat lifecycle. It owns its group
// membership and delegates persistence and fan-out.
type Session struct {
	userID     string
	receiverID string
	groupKey   string

	conn     wireConn
	registry *GroupRegistry
	sink     MessageSink

	send   chan []byte
	mu     sync.Mutex
	closed bool
	state  atomic.Int32
}

func NewSession(userID, receiverID, groupKey string, conn wireConn, registry *GroupRegistry, sink MessageSink) *Session {
	return &Session{
		userID:     userID,
		receiverID: receiverID,
		groupKey:   groupKey,
		conn:       conn,
		registry:   registry,
		sink:       sink,
		send:       make(chan []byte, 256),
	}
}

func (s *Session) UserID() string { return s.userID }

func (s *Session) GroupKey() string { return s.groupKey }

func (s *Session) State() SessionState {
	return SessionState(s.state.Load())
}

// Join registers the session with its group and transitions to Joined.
func (s *Session) Join() {
	s.registry.Join(s.groupKey, s)
	s.state.Store(int32(StateJoined))
}

// Close deregisters the session and tears the connection down. It is safe to
// call more than once; cleanup runs exactly once even on abnormal disconnect.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.send)
	s.mu.Unlock()

	s.registry.Leave(s.groupKey, s)
	s.conn.Close()
	s.state.Store(int32(StateClosed))
}

// ReadPump consumes inbound frames until the connection drops, then runs the
// guaranteed cleanup. Frames from one sender are processed sequentially, so
// messages are persisted and broadcast in the order sent.
func (s *Session) ReadPump(ctx context.Context) {
	defer s.Close()

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if gorillaws.IsUnexpectedCloseError(err, gorillaws.CloseGoingAway, gorillaws.CloseNormalClosure) {
				logger.Debug("session %s: read error: %v", s.userID, err)
			}
			return
		}
		if ctx.Err() != nil {
			return
		}
		s.handleFrame(ctx, raw)
	}
}

// WritePump drains the send channel onto the connection.
func (s *Session) WritePump() {
	defer s.conn.Close()

	for payload := range s.send {
		if err := s.conn.WriteMessage(gorillaws.TextMessage, payload); err != nil {
			logger.Debug("session %s: write error: %v", s.userID, err)
			return
		}
	}
	s.conn.WriteMessage(gorillaws.CloseMessage, []byte{})
}

func (s *Session) handleFrame(ctx context.Context, raw []byte) {
	var frame InboundFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		s.sendError("Invalid message format")
		return
	}

	content := strings.TrimSpace(frame.Message)
	if content == "" {
		s.sendError("Message content is missing")
		return
	}
	if frame.CaseID == "" {
		s.sendError("Missing case_id")
		return
	}

	event, err := s.sink.HandleInbound(ctx, s.userID, s.receiverID, frame.CaseID.String(), content)
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			if appErr.Code == "INTERNAL_ERROR" {
				logger.Error("session %s: message store failure: %v", s.userID, err)
			}
			s.sendError(appErr.Message)
		} else {
			s.sendError("Failed to process message")
		}
		return
	}

	s.registry.Broadcast(s.groupKey, event)
}

// enqueue hands a payload to the write pump without blocking. It reports
// false when the session is closed or its buffer is full.
func (s *Session) enqueue(payload []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.send <- payload:
		return true
	default:
		return false
	}
}

func (s *Session) sendError(message string) {
	payload, err := json.Marshal(ErrorFrame{Error: message})
	if err != nil {
		return
	}
	s.enqueue(payload)
}
