// Package inspector streams CompiledStructure deltas to websocket clients
// as the demo scenario ticks, so a browser or `curl --include` client can
// watch a live execution's compiled output evolve.
//
// It keeps a session registry and one writer goroutine per session; a new
// client gets no hello frame, only the tick frames that follow, sent as JSON
// CompiledStructure patches rather than a binary frame format so the
// inspector stays curl-able.
package inspector

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rlindgren/aidk/internal/structdiff"
	"github.com/rlindgren/aidk/pkg/aidk"
)

// Server upgrades /inspector/ws to a websocket and broadcasts tick events
// to every connected session.
type Server struct {
	upgrader websocket.Upgrader

	mu       sync.RWMutex
	sessions map[*session]struct{}

	logger *slog.Logger
}

// NewServer creates an inspector Server. logger defaults to slog.Default
// if nil.
func NewServer(logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		sessions: make(map[*session]struct{}),
		logger:   logger,
	}
}

type session struct {
	send   chan []byte
	closed chan struct{}
	once   sync.Once
}

func (s *session) close() {
	s.once.Do(func() { close(s.closed) })
}

// tickEvent is the JSON frame pushed to every connected client once per
// tick.
type tickEvent struct {
	Tick             int                 `json:"tick"`
	Iterations       int                 `json:"iterations"`
	ForcedStable     bool                `json:"forced_stable"`
	RecompileReasons []string            `json:"recompile_reasons"`
	Patches          []structdiff.Patch  `json:"patches"`
}

// HandleWebSocket upgrades the request and registers a new session that
// receives every subsequent broadcast call until the connection drops.
func (srv *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := srv.upgrader.Upgrade(w, r, nil)
	if err != nil {
		srv.logger.Warn("aidk/inspector: upgrade failed", "error", err)
		return
	}

	sess := &session{send: make(chan []byte, 64), closed: make(chan struct{})}
	srv.mu.Lock()
	srv.sessions[sess] = struct{}{}
	srv.mu.Unlock()

	go srv.writer(conn, sess)
	go srv.reader(conn, sess)
}

func (srv *Server) writer(conn *websocket.Conn, sess *session) {
	defer func() {
		srv.mu.Lock()
		delete(srv.sessions, sess)
		srv.mu.Unlock()
		conn.Close()
	}()
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case msg, ok := <-sess.send:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-sess.closed:
			return
		}
	}
}

func (srv *Server) reader(conn *websocket.Conn, sess *session) {
	defer sess.close()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// broadcast sends evt to every currently connected session, dropping it
// for any session whose send buffer is full rather than blocking the tick
// loop.
func (srv *Server) broadcast(evt tickEvent) {
	data, err := json.Marshal(evt)
	if err != nil {
		srv.logger.Warn("aidk/inspector: marshal failed", "error", err)
		return
	}
	srv.mu.RLock()
	defer srv.mu.RUnlock()
	for sess := range srv.sessions {
		select {
		case sess.send <- data:
		default:
			srv.logger.Warn("aidk/inspector: session send buffer full, dropping tick event")
		}
	}
}

// RunTicks drives compiler through maxTicks ticks of element at interval,
// broadcasting a structdiff.Diff against the previous snapshot after each
// one, until ctx is cancelled or maxTicks is reached (0 means unbounded).
func (srv *Server) RunTicks(ctx context.Context, compiler *aidk.Compiler, element aidk.Element, interval time.Duration, maxTicks int) error {
	var prev *aidk.CompiledStructure
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	tick := 0
	for {
		compiler.NotifyTickStart(tick)
		result, err := compiler.CompileUntilStable(element, tick, 0)
		if err != nil {
			compiler.NotifyTickEnd(tick)
			return fmt.Errorf("tick %d: %w", tick, err)
		}
		if err := compiler.NotifyTickEnd(tick); err != nil {
			return fmt.Errorf("tick %d: %w", tick, err)
		}

		patches := structdiff.Diff(prev, result.Compiled)
		prev = result.Compiled
		srv.broadcast(tickEvent{
			Tick: tick, Iterations: result.Iterations, ForcedStable: result.ForcedStable,
			RecompileReasons: result.RecompileReasons, Patches: patches,
		})

		tick++
		if maxTicks > 0 && tick >= maxTicks {
			compiler.NotifyComplete(tick)
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
