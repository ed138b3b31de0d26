package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/whatthetune/blindtest/internal/game"
	"github.com/whatthetune/blindtest/internal/middleware"
)

// Server holds the HTTP/WebSocket surface over the room registry.
type Server struct {
	Log       *logrus.Logger
	Registry  *game.Registry
	PublicURL string
}

// NewServer wires a server. publicURL is the externally visible base used for
// QR join links.
func NewServer(logger *logrus.Logger, registry *game.Registry, publicURL string) *Server {
	return &Server{
		Log:       logger,
		Registry:  registry,
		PublicURL: publicURL,
	}
}

// Routes builds the router. Everything, WebSocket upgrades included, passes
// through the logging middleware.
func (s *Server) Routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(mux.MiddlewareFunc(middleware.LogMiddleware(s.Log)))

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/room/create", s.handleCreateRoom).Methods(http.MethodPost)
	r.HandleFunc("/room/join", s.handleJoinRoom).Methods(http.MethodPost)
	r.HandleFunc("/room/{code}/qr", s.handleRoomQR).Methods(http.MethodGet)
	r.HandleFunc("/room/ws/{code}", s.handleRoomWS).Methods(http.MethodGet)
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"rooms":  s.Registry.Count(),
	})
}
