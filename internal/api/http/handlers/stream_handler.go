package handlers

import (
	"context"
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/semillero-service/internal/api/dto"
	"github.com/spec-kit/semillero-service/internal/domain"
	"github.com/spec-kit/semillero-service/internal/service"
)

const streamSessionKey = "stream_session_id"

// frameWriter is the part of a websocket connection the hub writes to.
type frameWriter interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

type subscription struct {
	conn      frameWriter
	sessionID string
	initial   domain.Session
}

// SessionStream pushes session snapshots to the shells watching them.
type SessionStream struct {
	sessions   *service.SessionService
	logger     *zap.Logger
	clients    map[frameWriter]string
	updates    chan domain.Session
	register   chan subscription
	unregister chan frameWriter
	done       chan struct{}
}

// NewSessionStream builds the hub and subscribes it to session changes.
func NewSessionStream(sessions *service.SessionService, logger *zap.Logger) *SessionStream {
	s := &SessionStream{
		sessions:   sessions,
		logger:     logger,
		clients:    make(map[frameWriter]string),
		updates:    make(chan domain.Session, 256),
		register:   make(chan subscription),
		unregister: make(chan frameWriter),
		done:       make(chan struct{}),
	}
	if sessions != nil {
		sessions.Watch(s.Publish)
	}
	return s
}

// Publish queues a snapshot. It drops the update when the hub is saturated.
func (s *SessionStream) Publish(sess domain.Session) {
	select {
	case s.updates <- sess:
	default:
		s.logger.Warn("session stream saturated; dropping update", zap.String("session_id", sess.ID))
	}
}

// Run delivers updates until ctx is done, then closes every connection.
func (s *SessionStream) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(s.done)
			for conn := range s.clients {
				_ = conn.Close()
				delete(s.clients, conn)
			}
			return

		case sub := <-s.register:
			s.clients[sub.conn] = sub.sessionID
			s.logger.Debug("stream connected", zap.String("session_id", sub.sessionID), zap.Int("clients", len(s.clients)))
			s.write(sub.conn, sub.initial)

		case conn := <-s.unregister:
			if _, ok := s.clients[conn]; ok {
				delete(s.clients, conn)
				_ = conn.Close()
			}

		case sess := <-s.updates:
			for conn, id := range s.clients {
				if id == sess.ID {
					s.write(conn, sess)
				}
			}
		}
	}
}

func (s *SessionStream) write(conn frameWriter, sess domain.Session) {
	data, err := json.Marshal(fiber.Map{"type": "session", "data": dto.NewSessionResponse(sess)})
	if err != nil {
		s.logger.Error("marshal session snapshot", zap.Error(err))
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		s.logger.Debug("stream write failed", zap.Error(err))
		delete(s.clients, conn)
		_ = conn.Close()
	}
}

// Upgrade rejects plain HTTP requests and remembers the caller's session.
func (s *SessionStream) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	c.Locals(streamSessionKey, sessionID(c))
	return c.Next()
}

// Handle GET /ws/sessions.
func (s *SessionStream) Handle() fiber.Handler {
	return websocket.New(s.serve)
}

func (s *SessionStream) serve(conn *websocket.Conn) {
	id, _ := conn.Locals(streamSessionKey).(string)
	sess, err := s.sessions.Get(context.Background(), id)
	if err != nil {
		_ = conn.Close()
		return
	}

	select {
	case s.register <- subscription{conn: conn, sessionID: id, initial: sess}:
	case <-s.done:
		_ = conn.Close()
		return
	}
	defer func() {
		select {
		case s.unregister <- conn:
		case <-s.done:
		}
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
