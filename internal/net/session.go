package net

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stellardominion/server/internal/core/event"
	"github.com/stellardominion/server/internal/world"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	maxMessageSize = 64 << 10
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
)

// Session is one websocket client. Network I/O runs in dedicated
// goroutines; the session never touches simulation state. Commands go to
// the gateway inbox, notifications arrive on the out queue.
type Session struct {
	ID       uint64
	IP       string
	Faction  world.FactionID // zero for operators and observers
	Observer bool            // observers may not issue commands

	conn  *websocket.Conn
	out   chan []byte
	inbox chan<- event.Event
	dead  func(id uint64)

	writeTimeout time.Duration
	readTimeout  time.Duration
	limiter      *rate.Limiter // nil means unlimited

	closeCh   chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool

	log *zap.Logger
}

func newSession(conn *websocket.Conn, id uint64, outSize int, inbox chan<- event.Event, log *zap.Logger) *Session {
	s := &Session{
		ID:      id,
		conn:    conn,
		out:     make(chan []byte, max(outSize, 1)),
		inbox:   inbox,
		closeCh: make(chan struct{}),
		log:     log.With(zap.Uint64("session", id)),
	}
	if conn != nil {
		s.IP = conn.RemoteAddr().String()
	}
	return s
}

type welcome struct {
	Type     string          `json:"type"`
	Session  uint64          `json:"session"`
	Faction  world.FactionID `json:"faction,omitempty"`
	Observer bool            `json:"observer"`
}

type replyError struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

// start queues the welcome message and launches the reader and writer.
func (s *Session) start() {
	hello, _ := json.Marshal(welcome{Type: "welcome", Session: s.ID, Faction: s.Faction, Observer: s.Observer})
	s.enqueue(hello)
	go s.readLoop()
	go s.writeLoop()
}

// enqueue hands data to the writer without blocking. It reports false when
// the out queue is full.
func (s *Session) enqueue(data []byte) bool {
	if s.closed.Load() {
		return true
	}
	select {
	case s.out <- data:
		return true
	default:
		return false
	}
}

func (s *Session) reply(reason string) {
	msg, _ := json.Marshal(replyError{Type: "error", Reason: reason})
	s.enqueue(msg)
}

// Close shuts the session down once and reports it to the gateway.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.closeCh)
		if s.conn != nil {
			s.conn.Close()
		}
		if s.dead != nil {
			s.dead(s.ID)
		}
	})
}

func (s *Session) IsClosed() bool {
	return s.closed.Load()
}

// readLoop decodes commands and forwards them to the inbox. It blocks when
// the inbox is full, which only stalls this client.
func (s *Session) readLoop() {
	defer s.Close()

	s.conn.SetReadLimit(maxMessageSize)
	wait := s.readTimeout
	if wait <= 0 {
		wait = pongWait
	}
	s.conn.SetReadDeadline(time.Now().Add(wait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(wait))
	})

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if !s.closed.Load() && websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Debug("讀取錯誤", zap.Error(err))
			}
			return
		}
		s.conn.SetReadDeadline(time.Now().Add(wait))

		if s.Observer {
			s.reply("observers cannot issue commands")
			continue
		}
		if s.limiter != nil && !s.limiter.Allow() {
			s.log.Debug("訊息過於頻繁")
			s.reply("too many messages")
			continue
		}
		cmd, err := event.DecodeCommand(raw)
		if err != nil {
			s.log.Debug("指令解析失敗", zap.Error(err))
			s.reply(err.Error())
			continue
		}
		cmd = event.WithFaction(cmd, s.Faction)

		select {
		case s.inbox <- cmd:
		case <-s.closeCh:
			return
		}
	}
}

func (s *Session) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.Close()
	}()

	for {
		select {
		case data := <-s.out:
			if !s.write(websocket.TextMessage, data) {
				return
			}
		case <-ticker.C:
			if !s.write(websocket.PingMessage, nil) {
				return
			}
		case <-s.closeCh:
			return
		}
	}
}

func (s *Session) write(kind int, data []byte) bool {
	timeout := s.writeTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	s.conn.SetWriteDeadline(time.Now().Add(timeout))
	if err := s.conn.WriteMessage(kind, data); err != nil {
		if !s.closed.Load() {
			s.log.Debug("寫入錯誤", zap.Error(err))
		}
		return false
	}
	return true
}
