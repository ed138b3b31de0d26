package game

import (
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/whatthetune/blindtest/internal/catalog"
)

// Room codes are short, human-shareable and case-insensitive on input.
const (
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength   = 6

	maxNameLen = 32
)

// Registry owns the process-wide code -> room map. It is the only structure
// shared across rooms; individual room state is mutated solely by each room's
// own command loop.
type Registry struct {
	cfg     Config
	catalog catalog.Catalog
	log     *logrus.Logger

	// OnFinished is installed on every room the registry creates.
	OnFinished func(GameSummary)

	mu    sync.Mutex
	rooms map[string]*Room
	rng   *rand.Rand
}

// NewRegistry builds an empty registry. cfg is applied to every room.
func NewRegistry(cfg Config, cat catalog.Catalog, logger *logrus.Logger) *Registry {
	return &Registry{
		cfg:     cfg.withDefaults(),
		catalog: cat,
		log:     logger,
		rooms:   make(map[string]*Room),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// CreateRoom generates a unique code, spins up the room's command loop and
// adds the host as its first player.
func (reg *Registry) CreateRoom(hostName string) (string, uuid.UUID, error) {
	name, err := cleanName(hostName)
	if err != nil {
		return "", uuid.Nil, err
	}

	reg.mu.Lock()
	code := reg.generateCodeLocked()
	room := newRoom(code, reg.cfg, reg.catalog, reg.log)
	room.OnFinished = reg.OnFinished
	room.onClosed = func(c string) { reg.removeRoom(c, room) }
	room.start()
	reg.rooms[code] = room
	reg.mu.Unlock()

	playerID, err := room.Join(name)
	if err != nil {
		room.Shutdown()
		return "", uuid.Nil, err
	}
	reg.log.WithFields(logrus.Fields{"room": code, "host": playerID}).Info("room created")
	return code, playerID, nil
}

// JoinRoom looks up a room by exact (case-normalized) code and adds a player.
func (reg *Registry) JoinRoom(code, playerName string) (uuid.UUID, error) {
	name, err := cleanName(playerName)
	if err != nil {
		return uuid.Nil, err
	}

	room, ok := reg.Get(code)
	if !ok {
		return uuid.Nil, &RejectError{Kind: RejectRoomNotFound}
	}
	playerID, err := room.Join(name)
	if err == ErrRoomClosed {
		return uuid.Nil, &RejectError{Kind: RejectRoomNotFound}
	}
	return playerID, err
}

// Get returns the live room for a code, if any. Codes are normalized to
// uppercase at this boundary.
func (reg *Registry) Get(code string) (*Room, bool) {
	normalized := NormalizeCode(code)
	reg.mu.Lock()
	defer reg.mu.Unlock()
	room, ok := reg.rooms[normalized]
	return room, ok
}

// Count reports the number of live rooms.
func (reg *Registry) Count() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return len(reg.rooms)
}

// Close shuts down every room. Used on server exit and in tests.
func (reg *Registry) Close() {
	reg.mu.Lock()
	rooms := make([]*Room, 0, len(reg.rooms))
	for _, room := range reg.rooms {
		rooms = append(rooms, room)
	}
	reg.mu.Unlock()
	for _, room := range rooms {
		room.Shutdown()
	}
}

// removeRoom drops the map entry for a closed room. The pointer comparison
// protects a new room that may have been issued the same code since.
func (reg *Registry) removeRoom(code string, room *Room) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if current, ok := reg.rooms[code]; ok && current == room {
		delete(reg.rooms, code)
		reg.log.WithField("room", code).Info("room removed from registry")
	}
}

// generateCodeLocked produces a code unique among live rooms, retrying on
// collision. Caller holds reg.mu.
func (reg *Registry) generateCodeLocked() string {
	buf := make([]byte, codeLength)
	for {
		for i := range buf {
			buf[i] = codeAlphabet[reg.rng.Intn(len(codeAlphabet))]
		}
		code := string(buf)
		if _, taken := reg.rooms[code]; !taken {
			return code
		}
	}
}

// NormalizeCode uppercases and trims a client-supplied room code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func cleanName(name string) (string, error) {
	cleaned := strings.TrimSpace(name)
	if cleaned == "" || len([]rune(cleaned)) > maxNameLen {
		return "", &RejectError{Kind: RejectEmptyOrOverlongText}
	}
	return cleaned, nil
}
