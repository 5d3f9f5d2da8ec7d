package hub

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"clinic-queue/internal/logx"
)

type HandlerConfig struct {
	Client ClientOptions
	// AllowedOrigins lists accepted Origin hosts. Empty accepts any origin.
	AllowedOrigins []string
	Logger         logx.Logger
}

// Handler upgrades HTTP requests to board connections.
type Handler struct {
	manager  *Manager
	upgrader websocket.Upgrader
	opts     ClientOptions
	log      logx.Logger
}

func NewHandler(m *Manager, cfg HandlerConfig) *Handler {
	return &Handler{
		manager: m,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(cfg.AllowedOrigins),
		},
		opts: cfg.Client,
		log:  cfg.Logger,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already answered the request.
		h.log.Warn("websocket upgrade failed", logx.String("remote", r.RemoteAddr), logx.Err(err))
		return
	}

	client := NewClient(conn, h.opts, h.log)
	if err := h.manager.Register(r.Context(), client); err != nil {
		msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		_ = conn.Close()
		return
	}

	go client.write()
	go client.read(h.manager)
}

// originChecker accepts requests without an Origin header (non-browser
// clients) and browser requests whose Origin host is listed.
func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	hosts := make(map[string]struct{}, len(allowed))
	for _, a := range allowed {
		a = strings.ToLower(strings.TrimSpace(a))
		if u, err := url.Parse(a); err == nil && u.Host != "" {
			a = u.Host
		}
		hosts[a] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		_, ok := hosts[strings.ToLower(u.Host)]
		return ok
	}
}

type MuxConfig struct {
	WSPath    string
	StaticDir string
}

// NewMux routes the websocket endpoint plus the read-only diagnostics:
// GET /health and GET /slots.
func NewMux(m *Manager, ws http.Handler, cfg MuxConfig) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("GET "+cfg.WSPath, ws)

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("GET /slots", func(w http.ResponseWriter, r *http.Request) {
		payload := struct {
			Slots   any `json:"slots"`
			Clients int `json:"clients"`
		}{
			Slots:   m.Snapshot(),
			Clients: m.Clients(),
		}
		data, err := json.Marshal(payload)
		if err != nil {
			http.Error(w, "failed to encode", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(data)
	})

	if cfg.StaticDir != "" {
		mux.Handle("GET /", http.FileServer(http.Dir(cfg.StaticDir)))
	}
	return mux
}
