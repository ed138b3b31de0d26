package game

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T, cfg Config) *Registry {
	t.Helper()
	reg := NewRegistry(cfg, &stubCatalog{songs: testSongs()}, testLogger())
	t.Cleanup(reg.Close)
	return reg
}

func TestCreateRoomCodeFormat(t *testing.T) {
	reg := newTestRegistry(t, Config{})
	codePattern := regexp.MustCompile(`^[A-Z0-9]{6}$`)

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		code, playerID, err := reg.CreateRoom("Ava")
		require.NoError(t, err)
		assert.Regexp(t, codePattern, code)
		assert.NotEqual(t, uuid.Nil, playerID)
		assert.False(t, seen[code], "codes must be unique among live rooms")
		seen[code] = true
	}
	assert.Equal(t, 50, reg.Count())
}

func TestJoinRoomCaseInsensitiveCode(t *testing.T) {
	reg := newTestRegistry(t, Config{})
	code, _, err := reg.CreateRoom("Ava")
	require.NoError(t, err)

	benID, err := reg.JoinRoom("  "+strings.ToLower(code)+" ", "Ben")
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, benID)
}

func TestJoinRoomUnknownCode(t *testing.T) {
	reg := newTestRegistry(t, Config{})

	_, err := reg.JoinRoom("NOPE99", "Ben")
	var reject *RejectError
	require.ErrorAs(t, err, &reject)
	assert.Equal(t, RejectRoomNotFound, reject.Kind)
}

func TestCreateRoomRejectsBadNames(t *testing.T) {
	reg := newTestRegistry(t, Config{})

	for _, name := range []string{"", "   ", strings.Repeat("x", 33)} {
		_, _, err := reg.CreateRoom(name)
		var reject *RejectError
		require.ErrorAs(t, err, &reject, "name %q", name)
		assert.Equal(t, RejectEmptyOrOverlongText, reject.Kind)
	}
	assert.Equal(t, 0, reg.Count())
}

func TestEmptyRoomRemovedAfterGrace(t *testing.T) {
	reg := newTestRegistry(t, Config{EmptyGrace: 50 * time.Millisecond})
	code, hostID, err := reg.CreateRoom("Ava")
	require.NoError(t, err)

	room, ok := reg.Get(code)
	require.True(t, ok)
	room.Dispatch(hostID, Command{Type: CmdLeaveRoom})

	require.Eventually(t, func() bool {
		_, live := reg.Get(code)
		return !live && reg.Count() == 0
	}, 2*time.Second, 10*time.Millisecond, "empty room should be garbage collected")

	// The vacated code is gone for joiners too.
	_, err = reg.JoinRoom(code, "Ben")
	var reject *RejectError
	require.ErrorAs(t, err, &reject)
	assert.Equal(t, RejectRoomNotFound, reject.Kind)
}

func TestRejoinWithinGraceKeepsRoom(t *testing.T) {
	reg := newTestRegistry(t, Config{EmptyGrace: 150 * time.Millisecond})
	code, hostID, err := reg.CreateRoom("Ava")
	require.NoError(t, err)

	room, _ := reg.Get(code)
	room.Dispatch(hostID, Command{Type: CmdLeaveRoom})

	// Someone joins before the grace runs out; the room must survive it.
	_, err = reg.JoinRoom(code, "Ben")
	require.NoError(t, err)

	time.Sleep(300 * time.Millisecond)
	_, live := reg.Get(code)
	assert.True(t, live)
}

func TestRegistryCloseShutsDownRooms(t *testing.T) {
	reg := NewRegistry(Config{}, &stubCatalog{songs: testSongs()}, testLogger())
	code, _, err := reg.CreateRoom("Ava")
	require.NoError(t, err)
	room, ok := reg.Get(code)
	require.True(t, ok)

	reg.Close()

	require.Eventually(t, func() bool {
		_, err := room.Join("Ben")
		return err == ErrRoomClosed
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, reg.Count())
}

func TestNormalizeCode(t *testing.T) {
	assert.Equal(t, "ABC123", NormalizeCode("  abc123 "))
	assert.Equal(t, "ABC123", NormalizeCode("ABC123"))
}
