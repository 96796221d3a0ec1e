package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/tessro/riffdeck/internal/logging"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub streams bus events to WebSocket clients as JSON.
type Hub struct {
	bus    *Bus
	logger *zap.Logger

	mu       sync.RWMutex
	snapshot func() any
}

// NewHub creates a hub over bus.
func NewHub(bus *Bus, logger *zap.Logger) *Hub {
	return &Hub{bus: bus, logger: logging.OrNop(logger).Named("notify")}
}

// SetSnapshot makes GET /snapshot return fn's result as JSON.
func (h *Hub) SetSnapshot(fn func() any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.snapshot = fn
}

// Handler returns the hub's routes: the /events stream, /healthz and
// /snapshot.
func (h *Hub) Handler() http.Handler {
	router := mux.NewRouter()
	router.HandleFunc("/events", h.serveEvents).Methods(http.MethodGet)
	router.HandleFunc("/healthz", h.serveHealth).Methods(http.MethodGet)
	router.HandleFunc("/snapshot", h.serveSnapshot).Methods(http.MethodGet)
	return router
}

func (h *Hub) serveHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"listeners": h.bus.Subscribers(),
	})
}

func (h *Hub) serveSnapshot(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	fn := h.snapshot
	h.mu.RUnlock()

	if fn == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no snapshot source"})
		return
	}
	writeJSON(w, http.StatusOK, fn())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Hub) serveEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	events, cancel := h.bus.Subscribe()
	defer cancel()

	h.logger.Info("listener connected", zap.String("remote", r.RemoteAddr))
	defer h.logger.Info("listener disconnected", zap.String("remote", r.RemoteAddr))

	// Drain incoming frames so close and pong frames are handled.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-closed:
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(e); err != nil {
				h.logger.Debug("write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ListenAndServe serves the hub on addr until ctx is done.
func (h *Hub) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return h.Serve(ctx, ln)
}

// Serve serves the hub on ln until ctx is done.
func (h *Hub) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           h.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		// Upgraded connections outlive Shutdown; tie them to ctx instead.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	h.logger.Info("serving transition events", zap.String("addr", ln.Addr().String()))
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
