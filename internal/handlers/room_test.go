package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whatthetune/blindtest/internal/auth"
	"github.com/whatthetune/blindtest/internal/catalog"
	"github.com/whatthetune/blindtest/internal/game"
)

func newTestServer(t *testing.T, cfg game.Config) *Server {
	t.Helper()
	auth.Init()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	registry := game.NewRegistry(cfg, catalog.NewStatic(nil), logger)
	t.Cleanup(registry.Close)
	return NewServer(logger, registry, "http://example.test")
}

func postJSON(t *testing.T, h http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func createRoom(t *testing.T, h http.Handler, name string) roomCredentials {
	t.Helper()
	rec := postJSON(t, h, "/room/create", createRoomRequest{PlayerName: name})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var creds roomCredentials
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&creds))
	return creds
}

func TestCreateRoomIssuesCredentials(t *testing.T) {
	srv := newTestServer(t, game.Config{})
	router := srv.Routes()

	creds := createRoom(t, router, "Ava")
	assert.Regexp(t, regexp.MustCompile(`^[A-Z0-9]{6}$`), creds.RoomID)
	assert.NotEmpty(t, creds.PlayerID)
	require.NotEmpty(t, creds.Token)

	playerID, room, err := auth.VerifyPlayerToken(creds.Token)
	require.NoError(t, err)
	assert.Equal(t, creds.PlayerID, playerID.String())
	assert.Equal(t, creds.RoomID, room)
}

func TestCreateRoomRejectsEmptyName(t *testing.T) {
	srv := newTestServer(t, game.Config{})
	rec := postJSON(t, srv.Routes(), "/room/create", createRoomRequest{PlayerName: "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestJoinRoomHappyPath(t *testing.T) {
	srv := newTestServer(t, game.Config{})
	router := srv.Routes()

	host := createRoom(t, router, "Ava")
	rec := postJSON(t, router, "/room/join", joinRoomRequest{RoomID: host.RoomID, PlayerName: "Ben"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var creds roomCredentials
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&creds))
	assert.Equal(t, host.RoomID, creds.RoomID)
	assert.NotEqual(t, host.PlayerID, creds.PlayerID)
}

func TestJoinRoomUnknownCodeIs404(t *testing.T) {
	srv := newTestServer(t, game.Config{})
	rec := postJSON(t, srv.Routes(), "/room/join", joinRoomRequest{RoomID: "NOPE99", PlayerName: "Ben"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "room_not_found", body["error"])
}

func TestJoinRoomFullIs409(t *testing.T) {
	srv := newTestServer(t, game.Config{MaxPlayers: 2})
	router := srv.Routes()

	host := createRoom(t, router, "Ava")
	rec := postJSON(t, router, "/room/join", joinRoomRequest{RoomID: host.RoomID, PlayerName: "Ben"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = postJSON(t, router, "/room/join", joinRoomRequest{RoomID: host.RoomID, PlayerName: "Cleo"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRoomQR(t *testing.T) {
	srv := newTestServer(t, game.Config{})
	router := srv.Routes()
	host := createRoom(t, router, "Ava")

	req := httptest.NewRequest(http.MethodGet, "/room/"+host.RoomID+"/qr", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Body.Bytes())

	req = httptest.NewRequest(http.MethodGet, "/room/NOPE99/qr", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRoomWSRejectsBadCredentials(t *testing.T) {
	srv := newTestServer(t, game.Config{})
	router := srv.Routes()
	host := createRoom(t, router, "Ava")

	// Unknown room.
	req := httptest.NewRequest(http.MethodGet, "/room/ws/NOPE99?token="+host.Token, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Missing token.
	req = httptest.NewRequest(http.MethodGet, "/room/ws/"+host.RoomID, nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Token minted for a different room.
	other := createRoom(t, router, "Ben")
	req = httptest.NewRequest(http.MethodGet, "/room/ws/"+host.RoomID+"?token="+other.Token, nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, game.Config{})
	router := srv.Routes()
	createRoom(t, router, "Ava")

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(1), body["rooms"])
}
