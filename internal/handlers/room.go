package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/whatthetune/blindtest/internal/auth"
	"github.com/whatthetune/blindtest/internal/game"
)

type createRoomRequest struct {
	PlayerName string `json:"playerName"`
}

type joinRoomRequest struct {
	RoomID     string `json:"roomId"`
	PlayerName string `json:"playerName"`
}

// roomCredentials is the create/join response. The token must be presented on
// the WebSocket attach; it is what stops a client from claiming another
// player's id.
type roomCredentials struct {
	RoomID   string `json:"roomId"`
	PlayerID string `json:"playerId"`
	Token    string `json:"token"`
}

// handleCreateRoom makes a fresh room with the caller as host.
func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request payload", http.StatusBadRequest)
		return
	}

	code, playerID, err := s.Registry.CreateRoom(req.PlayerName)
	if err != nil {
		s.writeRejection(w, err)
		return
	}
	s.issueCredentials(w, code, playerID)
}

// handleJoinRoom adds a player to an existing lobby-phase room.
func (s *Server) handleJoinRoom(w http.ResponseWriter, r *http.Request) {
	var req joinRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request payload", http.StatusBadRequest)
		return
	}

	code := game.NormalizeCode(req.RoomID)
	playerID, err := s.Registry.JoinRoom(code, req.PlayerName)
	if err != nil {
		s.writeRejection(w, err)
		return
	}
	s.issueCredentials(w, code, playerID)
}

func (s *Server) issueCredentials(w http.ResponseWriter, code string, playerID uuid.UUID) {
	token, err := auth.CreatePlayerToken(playerID, code)
	if err != nil {
		s.Log.WithError(err).Error("failed to sign player token")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, roomCredentials{
		RoomID:   code,
		PlayerID: playerID.String(),
		Token:    token,
	})
}

// writeRejection maps game.RejectError kinds onto HTTP statuses.
func (s *Server) writeRejection(w http.ResponseWriter, err error) {
	var reject *game.RejectError
	if !errors.As(err, &reject) {
		s.Log.WithError(err).Error("unexpected room error")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	status := http.StatusBadRequest
	switch reject.Kind {
	case game.RejectRoomNotFound:
		status = http.StatusNotFound
	case game.RejectRoomFull, game.RejectGameAlreadyStarted:
		status = http.StatusConflict
	}
	writeJSON(w, status, map[string]string{"error": string(reject.Kind)})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
