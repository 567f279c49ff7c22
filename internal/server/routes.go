package server

import (
	"log/slog"
	"net/http"
	"slices"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/cedric-sd/Camus/internal/config"
	"github.com/cedric-sd/Camus/internal/signaling"
)

// Server owns the HTTP surface of the relay: the /ws upgrade endpoint and
// a health check.
type Server struct {
	hub      *signaling.Hub
	cfg      *config.Config
	log      *slog.Logger
	upgrader websocket.Upgrader
}

// New builds a Server around the hub. The origin check allows everything
// when cfg.AllowedOrigins is empty, which matches development use behind a
// local frontend.
func New(hub *signaling.Hub, cfg *config.Config, log *slog.Logger) *Server {
	s := &Server{hub: hub, cfg: cfg, log: log}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  16 * 1024,
		WriteBufferSize: 16 * 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(cfg.AllowedOrigins) == 0 {
				return true
			}
			return slices.Contains(cfg.AllowedOrigins, r.Header.Get("Origin"))
		},
	}
	return s
}

// Routes returns the mux with all handlers registered.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ws", s.handleWs)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Presence relay is healthy."))
}

// handleWs upgrades the HTTP connection to a websocket, registers the new
// client with the hub and starts its read and write pumps.
func (s *Server) handleWs(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("failed to upgrade connection", "error", err)
		return
	}

	client := signaling.NewClient(uuid.New(), s.hub, conn,
		s.cfg.SendBuffer, rate.Limit(s.cfg.InboundRate), s.cfg.InboundBurst, s.log)

	client.Hub.Register <- client

	go client.WritePump()
	go client.ReadPump()
}
