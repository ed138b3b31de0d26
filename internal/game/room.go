package game

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/whatthetune/blindtest/internal/catalog"
	"github.com/whatthetune/blindtest/internal/models"
)

// Phase is the room's position in its lifecycle state machine.
type Phase string

const (
	PhaseLobby        Phase = "lobby"
	PhasePlaying      Phase = "playing"
	PhaseIntermission Phase = "round_intermission"
	PhaseFinished     Phase = "finished"
)

// Config holds the per-room gameplay knobs. Zero values are replaced by the
// defaults the original client assumed (10 songs, 30s answer window).
type Config struct {
	SongsPerGame  int
	RoundDuration time.Duration
	Intermission  time.Duration
	MaxPlayers    int
	ChatMaxLen    int
	ChatRetention int
	EmptyGrace    time.Duration
}

func (c Config) withDefaults() Config {
	if c.SongsPerGame <= 0 {
		c.SongsPerGame = 10
	}
	if c.RoundDuration <= 0 {
		c.RoundDuration = 30 * time.Second
	}
	if c.Intermission <= 0 {
		c.Intermission = 8 * time.Second
	}
	if c.MaxPlayers <= 0 {
		c.MaxPlayers = 8
	}
	if c.ChatMaxLen <= 0 {
		c.ChatMaxLen = 500
	}
	if c.ChatRetention <= 0 {
		c.ChatRetention = 200
	}
	if c.EmptyGrace <= 0 {
		c.EmptyGrace = 60 * time.Second
	}
	return c
}

// GameSummary describes a finished game for downstream consumers (history
// queue, lobby screens). Produced once, when the room reaches finished.
type GameSummary struct {
	RoomCode   string            `json:"roomCode"`
	StartedAt  time.Time         `json:"startedAt"`
	FinishedAt time.Time         `json:"finishedAt"`
	Rounds     int               `json:"rounds"`
	Standings  []models.Standing `json:"standings"`
}

// playerState is the loop-owned record for one room member. The players slice
// preserves join order, which doubles as the host-succession order and the
// leaderboard tie-break.
type playerState struct {
	id     uuid.UUID
	name   string
	score  int
	ready  bool
	isHost bool
	conn   *Conn
}

// Inbox message variants. Every mutation of room state, client commands and
// timer expiries alike, arrives through the inbox and is applied by the
// single run loop in arrival order.
type (
	cmdMsg struct {
		playerID uuid.UUID
		cmd      Command
	}
	joinMsg struct {
		name  string
		reply chan joinReply
	}
	joinReply struct {
		playerID uuid.UUID
		err      error
	}
	attachMsg struct {
		playerID uuid.UUID
		conn     *Conn
		reply    chan error
	}
	detachMsg struct {
		playerID uuid.UUID
		conn     *Conn
	}
	songsLoadedMsg struct {
		hostID uuid.UUID
		songs  []models.Song
		err    error
	}
	roundExpiredMsg     struct{ round int }
	intermissionOverMsg struct{ round int }
	emptyExpiredMsg     struct{}
	closeMsg            struct{}

	// loopTask runs fn with loop ownership of the room state.
	loopTask struct{ fn func(*Room) }
)

// Room is one isolated game session. All exported methods are safe for
// concurrent use; they only post messages into the inbox.
type Room struct {
	Code string

	// OnFinished, if set, receives the final summary when the game ends.
	OnFinished func(GameSummary)

	// onClosed is invoked exactly once after the run loop exits, so the
	// registry can drop its map entry.
	onClosed func(code string)

	cfg     Config
	catalog catalog.Catalog
	log     *logrus.Entry

	inbox    chan interface{}
	quit     chan struct{}
	quitOnce sync.Once

	mirrorMu    sync.RWMutex
	mirrorPhase Phase

	// Everything below is owned by the run loop. Never touch it from outside.
	players     []*playerState
	songs       []models.Song
	starting    bool
	phase       Phase
	roundIndex  int
	roundStart  time.Time
	roundWindow time.Duration
	roundTimer  *time.Timer
	intermTimer *time.Timer
	answers     map[uuid.UUID]models.Answer
	ledger      [][]models.Answer
	chat        []models.ChatMessage
	gameStart   time.Time
}

func newRoom(code string, cfg Config, cat catalog.Catalog, logger *logrus.Logger) *Room {
	r := &Room{
		Code:        code,
		cfg:         cfg.withDefaults(),
		catalog:     cat,
		log:         logger.WithField("room", code),
		inbox:       make(chan interface{}, 64),
		quit:        make(chan struct{}),
		phase:       PhaseLobby,
		mirrorPhase: PhaseLobby,
		answers:     make(map[uuid.UUID]models.Answer),
	}
	return r
}

// start launches the command loop. Callbacks must be installed before this.
func (r *Room) start() {
	go r.run()
}

// Phase reports the room's current phase. Safe from any goroutine.
func (r *Room) Phase() Phase {
	r.mirrorMu.RLock()
	defer r.mirrorMu.RUnlock()
	return r.mirrorPhase
}

func (r *Room) setPhase(ph Phase) {
	r.phase = ph
	r.mirrorMu.Lock()
	r.mirrorPhase = ph
	r.mirrorMu.Unlock()
}

// post delivers a message into the inbox unless the room has shut down.
func (r *Room) post(m interface{}) bool {
	select {
	case r.inbox <- m:
		return true
	case <-r.quit:
		return false
	}
}

// Join adds a named player, returning the server-issued id. Fails with
// RejectGameAlreadyStarted outside the lobby phase and RejectRoomFull at the
// player cap.
func (r *Room) Join(name string) (uuid.UUID, error) {
	reply := make(chan joinReply, 1)
	if !r.post(joinMsg{name: name, reply: reply}) {
		return uuid.Nil, ErrRoomClosed
	}
	// The loop may shut down after accepting the message but before replying.
	select {
	case res := <-reply:
		return res.playerID, res.err
	case <-r.quit:
		return uuid.Nil, ErrRoomClosed
	}
}

// Attach binds a live channel to an already-joined player. A previous channel
// for the same player is replaced and closed.
func (r *Room) Attach(playerID uuid.UUID, conn *Conn) error {
	reply := make(chan error, 1)
	if !r.post(attachMsg{playerID: playerID, conn: conn, reply: reply}) {
		return ErrRoomClosed
	}
	select {
	case err := <-reply:
		return err
	case <-r.quit:
		return ErrRoomClosed
	}
}

// Detach reports that conn is gone. The player is removed from the room; a
// stale detach for an already-replaced channel is ignored.
func (r *Room) Detach(playerID uuid.UUID, conn *Conn) {
	r.post(detachMsg{playerID: playerID, conn: conn})
}

// Dispatch queues a client command for serialized processing.
func (r *Room) Dispatch(playerID uuid.UUID, cmd Command) {
	r.post(cmdMsg{playerID: playerID, cmd: cmd})
}

// Shutdown ends the room immediately (registry close path).
func (r *Room) Shutdown() {
	r.post(closeMsg{})
}

// run drains the inbox until the room closes. A panic tears down this room
// only; other rooms are unaffected.
func (r *Room) run() {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.WithField("panic", rec).Error("room loop panicked, tearing down room")
		}
		r.teardown()
	}()

	for {
		select {
		case m := <-r.inbox:
			if stop := r.handle(m); stop {
				return
			}
		case <-r.quit:
			return
		}
	}
}

// handle applies one inbox message. Returns true when the loop should stop.
func (r *Room) handle(m interface{}) bool {
	switch msg := m.(type) {
	case joinMsg:
		msg.reply <- r.handleJoin(msg.name)
	case attachMsg:
		msg.reply <- r.handleAttach(msg.playerID, msg.conn)
	case detachMsg:
		r.handleDetach(msg.playerID, msg.conn)
	case cmdMsg:
		r.handleCommand(msg.playerID, msg.cmd)
	case songsLoadedMsg:
		r.handleSongsLoaded(msg)
	case loopTask:
		msg.fn(r)
	case roundExpiredMsg:
		if r.phase == PhasePlaying && msg.round == r.roundIndex {
			r.endRound()
		}
	case intermissionOverMsg:
		if r.phase == PhaseIntermission && msg.round == r.roundIndex {
			r.advanceRound()
		}
	case emptyExpiredMsg:
		if len(r.players) == 0 {
			r.log.Info("room empty past grace period, closing")
			return true
		}
	case closeMsg:
		return true
	default:
		r.log.Warnf("dropping unknown inbox message %T", m)
	}
	return false
}

func (r *Room) teardown() {
	r.quitOnce.Do(func() { close(r.quit) })
	if r.roundTimer != nil {
		r.roundTimer.Stop()
	}
	if r.intermTimer != nil {
		r.intermTimer.Stop()
	}
	for _, p := range r.players {
		if p.conn != nil {
			p.conn.Close()
		}
	}
	if r.onClosed != nil {
		r.onClosed(r.Code)
	}
}

// --- join / attach / leave ---

func (r *Room) handleJoin(name string) joinReply {
	// A room with a start in flight is closed to joiners too, otherwise a
	// newcomer could slip in after the all-ready check.
	if r.phase != PhaseLobby || r.starting {
		return joinReply{err: &RejectError{Kind: RejectGameAlreadyStarted}}
	}
	if len(r.players) >= r.cfg.MaxPlayers {
		return joinReply{err: &RejectError{Kind: RejectRoomFull}}
	}

	p := &playerState{
		id:     uuid.New(),
		name:   name,
		isHost: len(r.players) == 0, // first joiner is the host
	}
	r.players = append(r.players, p)
	r.log.WithFields(logrus.Fields{"player": p.id, "name": p.name, "host": p.isHost}).Info("player joined")
	r.broadcastRoster()
	return joinReply{playerID: p.id}
}

func (r *Room) handleAttach(playerID uuid.UUID, conn *Conn) error {
	p := r.findPlayer(playerID)
	if p == nil {
		return fmt.Errorf("player %s is not a member of room %s", playerID, r.Code)
	}
	if p.conn != nil && p.conn != conn {
		// Replacing a stale channel (e.g. reconnect racing the old close).
		p.conn.Close()
	}
	p.conn = conn
	p.conn.Send(Event{Type: EventRoomState, State: r.snapshot(p)})
	r.broadcastRoster()
	return nil
}

func (r *Room) handleDetach(playerID uuid.UUID, conn *Conn) {
	p := r.findPlayer(playerID)
	if p == nil || p.conn != conn {
		return // already removed, or channel was replaced
	}
	r.removePlayer(p, "disconnect")
}

// removePlayer drops p from the room, transfers the host flag to the
// earliest-joined survivor if needed, and schedules room GC when empty.
func (r *Room) removePlayer(p *playerState, reason string) {
	idx := -1
	for i, q := range r.players {
		if q == p {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}
	if p.conn != nil {
		p.conn.Close()
		p.conn = nil
	}
	r.players = append(r.players[:idx], r.players[idx+1:]...)
	r.log.WithFields(logrus.Fields{"player": p.id, "reason": reason}).Info("player removed")

	if p.isHost && len(r.players) > 0 {
		r.players[0].isHost = true
		r.log.WithField("player", r.players[0].id).Info("host promoted")
	}

	if len(r.players) == 0 {
		grace := r.cfg.EmptyGrace
		time.AfterFunc(grace, func() { r.post(emptyExpiredMsg{}) })
		r.log.Infof("room empty, closing in %s unless someone joins", grace)
		return
	}

	r.broadcastRoster()

	// A leaver must not stall the round for everyone else.
	if r.phase == PhasePlaying && r.allAnswered() {
		r.endRound()
	}
}

// --- command processing ---

func (r *Room) handleCommand(playerID uuid.UUID, cmd Command) {
	p := r.findPlayer(playerID)
	if p == nil {
		r.log.WithField("player", playerID).Warn("command from non-member dropped")
		return
	}

	switch cmd.Type {
	case CmdToggleReady:
		r.toggleReady(p, cmd)
	case CmdStartGame:
		r.startGame(p, cmd)
	case CmdSubmitAnswer:
		r.submitAnswer(p, cmd)
	case CmdSendChat:
		r.sendChat(p, cmd)
	case CmdLeaveRoom:
		r.removePlayer(p, "leave")
	case CmdPing:
		r.sendTo(p, Event{Type: EventPong})
	default:
		r.reject(p, RejectUnknownCommand, cmd)
	}
}

func (r *Room) toggleReady(p *playerState, cmd Command) {
	if r.phase != PhaseLobby {
		r.reject(p, RejectInvalidPhase, cmd)
		return
	}
	p.ready = !p.ready
	r.broadcastRoster()
}

func (r *Room) startGame(p *playerState, cmd Command) {
	switch {
	case r.phase != PhaseLobby || r.starting:
		r.reject(p, RejectInvalidPhase, cmd)
		return
	case !p.isHost:
		r.reject(p, RejectNotHost, cmd)
		return
	case len(r.players) < 2:
		r.reject(p, RejectNotEnoughPlayers, cmd)
		return
	case !r.allReady():
		r.reject(p, RejectPlayersNotReady, cmd)
		return
	}

	// Fetch off the loop: a slow catalog must not freeze chat and the rest of
	// the room's commands. The result comes back through the inbox.
	r.starting = true
	hostID := p.id
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				r.post(songsLoadedMsg{hostID: hostID, err: fmt.Errorf("catalog panicked: %v", rec)})
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		songs, err := r.catalog.GetSongSequence(ctx, r.cfg.SongsPerGame)
		r.post(songsLoadedMsg{hostID: hostID, songs: songs, err: err})
	}()
}

// handleSongsLoaded completes a start_game once the catalog has answered.
func (r *Room) handleSongsLoaded(msg songsLoadedMsg) {
	r.starting = false
	if r.phase != PhaseLobby {
		return
	}
	host := r.findPlayer(msg.hostID)
	if msg.err != nil || len(msg.songs) == 0 {
		r.log.WithError(msg.err).Error("failed to fetch song sequence")
		if host != nil {
			r.reject(host, RejectCatalogUnavailable, Command{Type: CmdStartGame})
		}
		return
	}
	if len(r.players) < 2 {
		// The lobby thinned out while the catalog answered.
		if host != nil {
			r.reject(host, RejectNotEnoughPlayers, Command{Type: CmdStartGame})
		}
		return
	}

	// The sequence is fixed for the whole game from this point on.
	r.songs = msg.songs
	r.gameStart = time.Now()
	r.ledger = r.ledger[:0]
	r.log.WithField("songs", len(r.songs)).Info("game started")
	r.startRound(0)
}

func (r *Room) startRound(idx int) {
	song := r.songs[idx]
	r.roundIndex = idx
	r.setPhase(PhasePlaying)
	r.answers = make(map[uuid.UUID]models.Answer)
	r.roundWindow = r.answerWindow(song)
	r.roundStart = time.Now()

	round := idx // capture for the stale-timer guard
	r.roundTimer = time.AfterFunc(r.roundWindow, func() { r.post(roundExpiredMsg{round: round}) })

	r.broadcast(Event{Type: EventPhaseChanged, Phase: &PhaseChange{
		Phase:      PhasePlaying,
		RoundIndex: idx,
		TotalSongs: len(r.songs),
		Song:       songView(song),
		WindowMs:   r.roundWindow.Milliseconds(),
	}})
}

// answerWindow bounds the guessing window by the song's playable duration
// when that is shorter than the configured round length.
func (r *Room) answerWindow(song models.Song) time.Duration {
	w := r.cfg.RoundDuration
	if d := time.Duration(song.DurationMs) * time.Millisecond; d > 0 && d < w {
		w = d
	}
	return w
}

func (r *Room) submitAnswer(p *playerState, cmd Command) {
	if r.phase != PhasePlaying || time.Since(r.roundStart) >= r.roundWindow {
		// The expiry timer may still be in flight; a guess past the window is
		// rejected either way.
		r.reject(p, RejectInvalidPhase, cmd)
		return
	}
	if _, dup := r.answers[p.id]; dup {
		r.reject(p, RejectDuplicateAnswer, cmd)
		return
	}

	song := r.songs[r.roundIndex]
	elapsed := time.Since(r.roundStart)
	correct, points := Score(cmd.Title, cmd.Artist, song.Title, song.Artist, elapsed, r.roundWindow)

	r.answers[p.id] = models.Answer{
		PlayerID:    p.id,
		SongID:      song.ID,
		Title:       cmd.Title,
		Artist:      cmd.Artist,
		SubmittedAt: time.Now(),
		Correct:     correct,
		Points:      points,
	}

	// The submitter learns only that their guess was recorded; correctness and
	// points stay hidden until the reveal.
	r.sendTo(p, Event{Type: EventAnswerAccepted, Answer: &AnswerAck{RoundIndex: r.roundIndex, SongID: song.ID}})
	r.broadcast(Event{Type: EventAnswerProgress, Progress: &AnswerProgress{
		Submitted: r.submittedCount(),
		Total:     len(r.players),
	}})

	if r.allAnswered() {
		r.endRound()
	}
}

// endRound transitions playing -> round_intermission: cancels the timer,
// applies round points to cumulative scores and reveals the answer.
func (r *Room) endRound() {
	if r.roundTimer != nil {
		r.roundTimer.Stop()
		r.roundTimer = nil
	}
	r.setPhase(PhaseIntermission)

	deltas := make([]ScoreDelta, 0, len(r.players))
	for _, p := range r.players {
		points := 0
		correct := false
		if ans, ok := r.answers[p.id]; ok {
			points = ans.Points
			correct = ans.Correct
		}
		p.score += points
		deltas = append(deltas, ScoreDelta{
			PlayerID: p.id,
			Name:     p.name,
			Correct:  correct,
			Points:   points,
			Total:    p.score,
		})
	}

	// Ledger entries are append-only and survive the round, including answers
	// from players who have since left.
	recorded := make([]models.Answer, 0, len(r.answers))
	for _, ans := range r.answers {
		recorded = append(recorded, ans)
	}
	sort.Slice(recorded, func(i, j int) bool { return recorded[i].SubmittedAt.Before(recorded[j].SubmittedAt) })
	r.ledger = append(r.ledger, recorded)

	song := r.songs[r.roundIndex]
	r.broadcast(Event{Type: EventRoundRevealed, Reveal: &RoundReveal{
		RoundIndex: r.roundIndex,
		Title:      song.Title,
		Artist:     song.Artist,
		Deltas:     deltas,
	}})
	r.broadcast(Event{Type: EventPhaseChanged, Phase: &PhaseChange{
		Phase:      PhaseIntermission,
		RoundIndex: r.roundIndex,
		TotalSongs: len(r.songs),
	}})

	round := r.roundIndex
	r.intermTimer = time.AfterFunc(r.cfg.Intermission, func() { r.post(intermissionOverMsg{round: round}) })
}

func (r *Room) advanceRound() {
	if next := r.roundIndex + 1; next < len(r.songs) {
		r.startRound(next)
		return
	}
	r.finishGame()
}

func (r *Room) finishGame() {
	r.setPhase(PhaseFinished)
	standings := r.standings()
	r.broadcast(Event{Type: EventPhaseChanged, Phase: &PhaseChange{
		Phase:      PhaseFinished,
		RoundIndex: r.roundIndex,
		TotalSongs: len(r.songs),
		Standings:  standings,
	}})
	r.log.Info("game finished")

	if r.OnFinished != nil {
		summary := GameSummary{
			RoomCode:   r.Code,
			StartedAt:  r.gameStart,
			FinishedAt: time.Now(),
			Rounds:     len(r.songs),
			Standings:  standings,
		}
		go r.OnFinished(summary)
	}
}

func (r *Room) sendChat(p *playerState, cmd Command) {
	text := strings.TrimSpace(cmd.Text)
	if text == "" || len([]rune(text)) > r.cfg.ChatMaxLen {
		r.reject(p, RejectEmptyOrOverlongText, cmd)
		return
	}
	msg := models.ChatMessage{
		ID:       uuid.New(),
		PlayerID: p.id,
		Author:   p.name,
		Text:     text,
		Ts:       time.Now().UnixMilli(),
	}
	r.chat = append(r.chat, msg)
	if over := len(r.chat) - r.cfg.ChatRetention; over > 0 {
		r.chat = r.chat[over:]
	}
	r.broadcast(Event{Type: EventChatAppended, Message: &msg})
}

// --- helpers (run loop only) ---

func (r *Room) findPlayer(id uuid.UUID) *playerState {
	for _, p := range r.players {
		if p.id == id {
			return p
		}
	}
	return nil
}

func (r *Room) allReady() bool {
	for _, p := range r.players {
		if !p.ready {
			return false
		}
	}
	return true
}

// submittedCount counts answers from players still in the room.
func (r *Room) submittedCount() int {
	n := 0
	for _, p := range r.players {
		if _, ok := r.answers[p.id]; ok {
			n++
		}
	}
	return n
}

func (r *Room) allAnswered() bool {
	if len(r.players) == 0 {
		return false
	}
	return r.submittedCount() == len(r.players)
}

// standings sorts by score descending; ties keep join order (stable sort over
// the join-ordered slice).
func (r *Room) standings() []models.Standing {
	ordered := make([]*playerState, len(r.players))
	copy(ordered, r.players)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].score > ordered[j].score })

	standings := make([]models.Standing, len(ordered))
	for i, p := range ordered {
		standings[i] = models.Standing{
			Rank:     i + 1,
			PlayerID: p.id,
			Name:     p.name,
			Score:    p.score,
		}
	}
	return standings
}

func (r *Room) roster() []RosterEntry {
	roster := make([]RosterEntry, len(r.players))
	for i, p := range r.players {
		roster[i] = RosterEntry{
			ID:       p.id,
			Name:     p.name,
			Score:    p.score,
			Ready:    p.ready,
			IsHost:   p.isHost,
			Attached: p.conn != nil,
		}
	}
	return roster
}

func (r *Room) snapshot(p *playerState) *RoomSnapshot {
	snap := &RoomSnapshot{
		RoomCode:   r.Code,
		YourID:     p.id,
		Phase:      r.phase,
		RoundIndex: r.roundIndex,
		TotalSongs: r.cfg.SongsPerGame,
		Players:    r.roster(),
		Chat:       append([]models.ChatMessage(nil), r.chat...),
	}
	if len(r.songs) > 0 {
		snap.TotalSongs = len(r.songs)
	}
	if r.phase == PhasePlaying {
		snap.Song = songView(r.songs[r.roundIndex])
		if remaining := r.roundWindow - time.Since(r.roundStart); remaining > 0 {
			snap.RemainingMs = remaining.Milliseconds()
		}
	}
	if r.phase == PhaseFinished {
		snap.Standings = r.standings()
	}
	return snap
}

func songView(s models.Song) *SongView {
	return &SongView{ID: s.ID, MediaURL: s.MediaURL, DurationMs: s.DurationMs}
}

func (r *Room) reject(p *playerState, kind RejectKind, cmd Command) {
	echo := cmd
	r.sendTo(p, Event{Type: EventActionRejected, Reject: &Rejection{Kind: kind, Command: &echo}})
}

// sendTo delivers one event to a single player. Delivery failure detaches the
// player, same as a broadcast failure.
func (r *Room) sendTo(p *playerState, ev Event) {
	if p.conn == nil {
		return
	}
	if !p.conn.Send(ev) {
		r.log.WithField("player", p.id).Warn("channel delivery failed, detaching player")
		r.removePlayer(p, "delivery_failed")
	}
}

// broadcast fans an event out to every attached channel in command order.
// Channels that fail delivery are detached afterwards so one slow client
// never blocks the room.
func (r *Room) broadcast(ev Event) {
	var failed []*playerState
	for _, p := range r.players {
		if p.conn != nil && !p.conn.Send(ev) {
			failed = append(failed, p)
		}
	}
	for _, p := range failed {
		r.log.WithField("player", p.id).Warn("channel backlog exceeded, detaching player")
		r.removePlayer(p, "delivery_failed")
	}
}

func (r *Room) broadcastRoster() {
	r.broadcast(Event{Type: EventRosterChanged, Players: r.roster()})
}
