// Package net is the websocket gateway between remote clients and the game
// loop.
package net

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stellardominion/server/internal/config"
	"github.com/stellardominion/server/internal/core/event"
	"github.com/stellardominion/server/internal/world"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"
)

// Server accepts websocket clients. New and dead sessions reach the game
// loop through channels; the session table itself is owned by the game
// loop, which touches it only from Drain and Publish.
type Server struct {
	cfg      config.GatewayConfig
	log      *zap.Logger
	upgrader websocket.Upgrader
	nextID   atomic.Uint64

	inbox    chan event.Event
	newConns chan *Session
	deadCh   chan uint64

	sessions map[uint64]*Session // game loop only
	dropped  uint64
}

func NewServer(cfg config.GatewayConfig, log *zap.Logger) *Server {
	return &Server{
		cfg: cfg,
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		inbox:    make(chan event.Event, max(cfg.InQueueSize, 1)),
		newConns: make(chan *Session, 64),
		deadCh:   make(chan uint64, 64),
		sessions: make(map[uint64]*Session),
	}
}

// Handler serves the websocket endpoint at the configured path.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	path := s.cfg.Path
	if path == "" {
		path = "/ws"
	}
	mux.HandleFunc(path, s.handleUpgrade)
	return mux
}

// ListenAndServe runs the HTTP listener until ctx is cancelled, then
// closes every session.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.BindAddress,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.log.Info("閘道啟動", zap.String("addr", s.cfg.BindAddress), zap.String("path", s.cfg.Path))

	select {
	case err := <-errCh:
		return fmt.Errorf("gateway: %w", err)
	case <-ctx.Done():
	}
	shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdown); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("gateway shutdown: %w", err)
	}
	return nil
}

// authenticate returns whether the request carries the operator token.
// Without a configured hash every client is an observer.
func (s *Server) authenticate(r *http.Request) (bool, error) {
	token := r.URL.Query().Get("token")
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		token = strings.TrimPrefix(h, "Bearer ")
	}
	if token == "" || s.cfg.TokenHash == "" {
		return false, nil
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.cfg.TokenHash), []byte(token)); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	authed, err := s.authenticate(r)
	if err != nil {
		s.log.Warn("驗證失敗", zap.String("ip", r.RemoteAddr))
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}
	var faction world.FactionID
	if v := r.URL.Query().Get("faction"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			http.Error(w, "bad faction", http.StatusBadRequest)
			return
		}
		faction = world.FactionID(n)
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("升級失敗", zap.Error(err))
		return
	}

	id := s.nextID.Add(1)
	sess := newSession(conn, id, s.cfg.OutQueueSize, s.inbox, s.log)
	sess.Faction = faction
	sess.Observer = !authed
	sess.writeTimeout = s.cfg.WriteTimeout
	sess.readTimeout = s.cfg.ReadTimeout
	if s.cfg.MessageRate > 0 {
		sess.limiter = rate.NewLimiter(rate.Limit(s.cfg.MessageRate), max(s.cfg.MessageBurst, 1))
	}
	sess.dead = s.notifyDead

	select {
	case s.newConns <- sess:
	default:
		s.log.Warn("連線佇列已滿，拒絕新連線")
		conn.Close()
		return
	}
	sess.start()
	s.log.Info(fmt.Sprintf("玩家連線  session=%d  ip=%s", id, sess.IP),
		zap.Uint64("faction", uint64(faction)), zap.Bool("observer", sess.Observer))
}

func (s *Server) notifyDead(id uint64) {
	select {
	case s.deadCh <- id:
	default:
	}
}

// admit moves session arrivals and departures into the table.
func (s *Server) admit() {
	for {
		select {
		case sess := <-s.newConns:
			s.sessions[sess.ID] = sess
		case id := <-s.deadCh:
			if _, ok := s.sessions[id]; ok {
				delete(s.sessions, id)
				s.log.Info("連線中斷", zap.Uint64("session", id))
			}
		default:
			return
		}
	}
}

// Drain implements the input system's command source. It returns at most
// max queued commands; zero means no limit.
func (s *Server) Drain(max int) []event.Event {
	s.admit()
	var out []event.Event
	for max <= 0 || len(out) < max {
		select {
		case cmd := <-s.inbox:
			out = append(out, cmd)
		default:
			return out
		}
	}
	return out
}

// Publish implements the observer sink. The event is encoded once and
// offered to every session; a session whose queue is full is dropped.
func (s *Server) Publish(ev event.Event) {
	s.admit()
	if len(s.sessions) == 0 {
		return
	}
	data, err := event.Encode(ev)
	if err != nil {
		s.log.Error("事件編碼失敗", zap.Stringer("event", ev.Kind()), zap.Error(err))
		return
	}
	for id, sess := range s.sessions {
		if sess.IsClosed() {
			delete(s.sessions, id)
			continue
		}
		if !sess.enqueue(data) {
			s.log.Warn("輸出佇列已滿，斷開慢速連線", zap.Uint64("session", id))
			s.dropped++
			sess.Close()
			delete(s.sessions, id)
		}
	}
}

// Sessions returns the number of live sessions. Game loop only.
func (s *Server) Sessions() int {
	s.admit()
	for id, sess := range s.sessions {
		if sess.IsClosed() {
			delete(s.sessions, id)
		}
	}
	return len(s.sessions)
}

// Dropped returns how many slow sessions were disconnected. Game loop only.
func (s *Server) Dropped() uint64 { return s.dropped }
