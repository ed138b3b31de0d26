package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/whatthetune/blindtest/internal/auth"
	"github.com/whatthetune/blindtest/internal/game"
	"github.com/whatthetune/blindtest/internal/middleware"
)

// handleRoomWS upgrades the connection and attaches the caller's channel to
// their room. The player must already hold credentials from create/join; the
// token is checked against the room in the path so a valid token for room A
// cannot attach to room B.
func (s *Server) handleRoomWS(w http.ResponseWriter, r *http.Request) {
	code := game.NormalizeCode(mux.Vars(r)["code"])
	room, ok := s.Registry.Get(code)
	if !ok {
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}

	token := r.URL.Query().Get("token")
	if token == "" {
		if cookie, err := r.Cookie("player_token"); err == nil {
			token = cookie.Value
		}
	}
	playerID, tokenRoom, err := auth.VerifyPlayerToken(token)
	if err != nil || tokenRoom != code {
		http.Error(w, "invalid token", http.StatusForbidden)
		return
	}

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols:   []string{"tune"},
		OriginPatterns: []string{"*"}, // Adjust for production security.
	})
	if err != nil {
		s.Log.Warnf("WebSocket accept error for room %s: %v", code, err)
		return
	}
	defer c.Close(websocket.StatusInternalError, "handler exited")

	if c.Subprotocol() != "tune" {
		c.Close(websocket.StatusPolicyViolation, "client must speak the tune subprotocol")
		return
	}
	middleware.LogWebSocketConnect(s.Log, r.RemoteAddr, code)

	conn := game.NewConn(playerID)
	if err := room.Attach(playerID, conn); err != nil {
		s.Log.Warnf("attach failed for player %s in room %s: %v", playerID, code, err)
		c.Close(websocket.StatusPolicyViolation, "attach refused")
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	go writePump(ctx, c, conn, s.Log)

	readErr := readPump(ctx, c, room, playerID, s.Log)

	// Reading stopped: the player is gone as far as the room is concerned.
	room.Detach(playerID, conn)
	conn.Close()
	middleware.LogWebSocketDisconnect(s.Log, r.RemoteAddr, code, readErr)
}

// writePump drains the room's outbound channel onto the socket. It exits when
// the room detaches the channel or the socket dies; the read side notices via
// the closed connection.
func writePump(ctx context.Context, c *websocket.Conn, conn *game.Conn, logger *logrus.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-conn.Done():
			c.Close(websocket.StatusNormalClosure, "detached")
			return
		case ev := <-conn.Events():
			data, err := json.Marshal(ev)
			if err != nil {
				logger.WithError(err).Errorf("failed to marshal %s event", ev.Type)
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = c.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				logger.Warnf("write to player %s failed: %v", conn.PlayerID, err)
				return
			}
		}
	}
}

// readPump feeds inbound frames into the room's serialized command queue.
// Malformed frames still go through Dispatch so the room can answer with an
// action_rejected; no command is silently dropped.
func readPump(ctx context.Context, c *websocket.Conn, room *game.Room, playerID uuid.UUID, logger *logrus.Logger) error {
	for {
		typ, data, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				return nil
			}
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		if typ != websocket.MessageText {
			logger.Warnf("ignoring non-text frame from player %s", playerID)
			continue
		}

		var cmd game.Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			logger.Warnf("invalid JSON from player %s: %v", playerID, err)
			cmd = game.Command{Type: "invalid"}
		}
		room.Dispatch(playerID, cmd)

		if cmd.Type == game.CmdLeaveRoom {
			return nil
		}
	}
}
