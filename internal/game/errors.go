package game

// RejectKind enumerates every player-triggered violation. A rejected command
// never crashes a room; it yields an action_rejected event (or an HTTP error
// for create/join) carrying one of these kinds.
type RejectKind string

const (
	RejectRoomNotFound        RejectKind = "room_not_found"
	RejectRoomFull            RejectKind = "room_full"
	RejectGameAlreadyStarted  RejectKind = "game_already_started"
	RejectNotHost             RejectKind = "not_host"
	RejectNotEnoughPlayers    RejectKind = "not_enough_players"
	RejectPlayersNotReady     RejectKind = "players_not_ready"
	RejectInvalidPhase        RejectKind = "invalid_phase"
	RejectDuplicateAnswer     RejectKind = "duplicate_answer"
	RejectEmptyOrOverlongText RejectKind = "empty_or_overlong_text"
	RejectUnknownCommand      RejectKind = "unknown_command"

	// RejectCatalogUnavailable is reported when the song catalog cannot supply
	// a sequence at game start. Not part of the player-fault taxonomy, but the
	// host still needs an answer to their start_game command.
	RejectCatalogUnavailable RejectKind = "catalog_unavailable"
)

// RejectError carries a RejectKind across the synchronous create/join path so
// HTTP handlers can map it to a status code.
type RejectError struct {
	Kind RejectKind
}

func (e *RejectError) Error() string {
	return string(e.Kind)
}

type roomClosedError struct{}

func (roomClosedError) Error() string { return "room closed" }

// ErrRoomClosed is returned by synchronous room operations after the room's
// command loop has shut down.
var ErrRoomClosed error = roomClosedError{}
