package main

import (
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/stephenkowalewski/stack-wars/internal/protocol"
)

const (
	// players without a WebSocket are removed after this long
	roomReconnectGrace time.Duration = 60 * time.Second
	// rooms nobody ever joined are removed after this long
	roomEmptyTimeout time.Duration = 10 * time.Minute
	roomMaxAge       time.Duration = 24 * time.Hour
)

var (
	errRoomNotFound    = errors.New("Room not found")
	errRoomExists      = errors.New("Room already exists")
	errRoomStarted     = errors.New("Game already started")
	errRoomNotStarted  = errors.New("Game not started")
	errRoomFull        = fmt.Errorf("Room is full (max %d players)", protocol.MaxPlayers)
	errDuplicateName   = errors.New("Player name already exists in room")
	errPlayerNotFound  = errors.New("Player not found")
	errInvalidRoomCode = errors.New("Invalid room code")
)

// Room is a group of up to protocol.MaxPlayers players sharing a session.
// players keeps join order; the host is passed along that order.
type Room struct {
	mu        sync.Mutex
	code      string
	hostName  string
	host      uuid.UUID
	players   []*Player
	wsConns   map[uuid.UUID]*websocket.Conn
	started   bool
	createdAt time.Time
}

func (r *Room) String() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var sb strings.Builder
	sb.WriteString("room {\n")
	fmt.Fprintf(&sb, "  code: %s\n", r.code)
	fmt.Fprintf(&sb, "  started: %t\n", r.started)
	fmt.Fprintf(&sb, "  created: %s\n", r.createdAt.Format(time.RFC3339))
	for _, p := range r.players {
		mark := " "
		if p.id == r.host {
			mark = "*"
		}
		fmt.Fprintf(&sb, "  %s %s\n", mark, p)
	}
	sb.WriteString("}")
	return sb.String()
}

var activeRooms = map[string]*Room{}
var roomMutex sync.Mutex

// generateRoomCode returns an unused room code. Caller holds roomMutex.
func generateRoomCode() string {
	b := make([]byte, protocol.RoomCodeLength)
	for {
		for i := range b {
			b[i] = protocol.RoomCodeAlphabet[rand.IntN(len(protocol.RoomCodeAlphabet))]
		}
		if _, taken := activeRooms[string(b)]; !taken {
			return string(b)
		}
	}
}

// createRoom registers a new room. An empty code asks for a generated
// one.
func createRoom(code string, hostName string) (*Room, error) {
	roomMutex.Lock()
	defer roomMutex.Unlock()

	if code == "" {
		code = generateRoomCode()
	} else {
		code = protocol.NormalizeRoomCode(code)
		if !protocol.ValidRoomCode(code) {
			return nil, errInvalidRoomCode
		}
		if _, ok := activeRooms[code]; ok {
			return nil, errRoomExists
		}
	}

	room := &Room{
		code:      code,
		hostName:  hostName,
		wsConns:   map[uuid.UUID]*websocket.Conn{},
		createdAt: time.Now(),
	}
	activeRooms[code] = room
	return room, nil
}

func getRoom(code string) (*Room, error) {
	roomMutex.Lock()
	defer roomMutex.Unlock()
	room, ok := activeRooms[protocol.NormalizeRoomCode(code)]
	if !ok {
		return nil, errRoomNotFound
	}
	return room, nil
}

// deleteRoom removes a room and closes the connections of its players
func deleteRoom(code string) error {
	roomMutex.Lock()
	defer roomMutex.Unlock()

	code = protocol.NormalizeRoomCode(code)
	room, ok := activeRooms[code]
	if !ok {
		return errRoomNotFound
	}
	room.mu.Lock()
	room.closeAll("room deleted")
	room.mu.Unlock()
	delete(activeRooms, code)
	return nil
}

// deleteRoomIfEmpty removes room when its last player is gone
func deleteRoomIfEmpty(room *Room) bool {
	roomMutex.Lock()
	defer roomMutex.Unlock()
	room.mu.Lock()
	defer room.mu.Unlock()

	if len(room.players) > 0 || activeRooms[room.code] != room {
		return false
	}
	delete(activeRooms, room.code)
	return true
}

// closeAll closes every WebSocket of the room. Caller holds r.mu.
func (r *Room) closeAll(reason string) {
	for id, c := range r.wsConns {
		_ = c.Close(websocket.StatusGoingAway, reason)
		delete(r.wsConns, id)
	}
}

// join adds a player called name. The first player becomes the host.
func (r *Room) join(name string) (*Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return nil, errRoomStarted
	}
	if len(r.players) >= protocol.MaxPlayers {
		return nil, errRoomFull
	}
	for _, p := range r.players {
		if p.Name == name {
			return nil, errDuplicateName
		}
	}

	p := newPlayer(name)
	if len(r.players) == 0 {
		r.host = p.id
		if r.hostName == "" {
			r.hostName = name
		}
	}
	r.players = append(r.players, p)
	return p, nil
}

// findPlayer returns the player with id. Caller holds r.mu.
func (r *Room) findPlayer(id uuid.UUID) (int, *Player) {
	for i, p := range r.players {
		if p.id == id {
			return i, p
		}
	}
	return -1, nil
}

// leave removes the player with id and returns them along with the
// messages announcing a session outcome their departure caused.
func (r *Room) leave(id uuid.UUID) (*Player, []protocol.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i, p := r.findPlayer(id)
	if p == nil {
		return nil, nil, errPlayerNotFound
	}
	return p, r.removePlayer(i), nil
}

// removePlayer drops players[i], closes their WebSocket and passes the
// host role on. Caller holds r.mu.
func (r *Room) removePlayer(i int) []protocol.Message {
	p := r.players[i]
	r.players = slices.Delete(r.players, i, i+1)
	if c := r.wsConns[p.id]; c != nil {
		_ = c.Close(websocket.StatusNormalClosure, "left room")
		delete(r.wsConns, p.id)
	}
	if r.host == p.id {
		r.host = uuid.Nil
		if len(r.players) > 0 {
			r.host = r.players[0].id
			r.hostName = r.players[0].Name
		}
	}
	if !r.started || len(r.players) == 0 {
		return nil
	}
	return r.outcome()
}

// summaries lists the players in join order. Caller holds r.mu.
func (r *Room) summaries() []protocol.PlayerSummary {
	out := make([]protocol.PlayerSummary, 0, len(r.players))
	for _, p := range r.players {
		out = append(out, p.summary(p.id == r.host, r.wsConns[p.id] != nil))
	}
	return out
}

// standings lists the players by score, best first. Ties keep join order.
// Caller holds r.mu.
func (r *Room) standings() []protocol.PlayerSummary {
	out := r.summaries()
	slices.SortStableFunc(out, func(a, b protocol.PlayerSummary) int {
		return b.Score - a.Score
	})
	return out
}

func (r *Room) info() protocol.RoomInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.infoLocked()
}

func (r *Room) infoLocked() protocol.RoomInfo {
	return protocol.RoomInfo{
		Exists:      true,
		RoomCode:    r.code,
		IsStarted:   r.started,
		PlayerCount: len(r.players),
		MaxPlayers:  protocol.MaxPlayers,
		HostName:    r.hostName,
		CreatedAt:   r.createdAt,
		Players:     r.summaries(),
	}
}

// start begins a session for every player of the room
func (r *Room) start() (protocol.GameStarted, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return protocol.GameStarted{}, errRoomStarted
	}
	r.begin()
	return protocol.GameStarted{RoomCode: r.code, Players: r.summaries()}, nil
}

// restart begins a new session once the previous one has ended
func (r *Room) restart() (protocol.GameStarted, error) {
	return r.start()
}

// begin resets the reported state of every player. Caller holds r.mu.
func (r *Room) begin() {
	r.started = true
	for _, p := range r.players {
		p.resetState()
	}
}

// recordState stores the update of the player with id. It returns the
// player and the announcements the whole room must receive: the
// player's elimination and the session outcome, when they happened.
func (r *Room) recordState(id uuid.UUID, update protocol.StateUpdate) (*Player, []protocol.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, p := r.findPlayer(id)
	if p == nil {
		return nil, nil, errPlayerNotFound
	}
	if !r.started {
		return p, nil, errRoomNotStarted
	}

	wasOver := p.state.IsGameOver
	p.recordState(update)

	var msgs []protocol.Message
	if update.IsGameOver && !wasOver {
		alive := 0
		for _, o := range r.players {
			if !o.state.IsGameOver {
				alive++
			}
		}
		msgs = append(msgs, newMessage(protocol.TypePlayerGameOver, protocol.PlayerGameOver{
			PlayerName:       p.Name,
			FinalScore:       update.Score,
			PlayersRemaining: alive,
			TotalPlayers:     len(r.players),
			Standings:        r.standings(),
		}))
	}
	return p, append(msgs, r.outcome()...), nil
}

// outcome ends the session when a single player survives in a room of
// several, or when nobody survives. Caller holds r.mu.
func (r *Room) outcome() []protocol.Message {
	var alive []*Player
	for _, p := range r.players {
		if !p.state.IsGameOver {
			alive = append(alive, p)
		}
	}
	total := len(r.players)

	switch {
	case len(alive) == 1 && total > 1:
		r.started = false
		winner := alive[0]
		return []protocol.Message{newMessage(protocol.TypeGameWinner, protocol.GameOutcome{
			Winner:       winner.summary(winner.id == r.host, r.wsConns[winner.id] != nil),
			FinalScores:  r.standings(),
			TotalPlayers: total,
			Reason:       protocol.ReasonLastPlayerStanding,
		})}
	case len(alive) == 0 && total > 0:
		r.started = false
		standings := r.standings()
		return []protocol.Message{newMessage(protocol.TypeGameEnded, protocol.GameOutcome{
			Winner:       standings[0],
			FinalScores:  standings,
			TotalPlayers: total,
			Reason:       protocol.ReasonAllGameOver,
		})}
	}
	return nil
}

// departure is a player removed by the cleanup task
type departure struct {
	room   *Room
	player *Player
	msgs   []protocol.Message
}

// cleanUpRooms removes players that stayed disconnected, rooms nobody
// joined, and rooms past roomMaxAge. It returns the departures the
// remaining players still need to hear about.
func cleanUpRooms(serverlog *log.Logger, debug bool) []departure {
	roomMutex.Lock()
	defer roomMutex.Unlock()

	var departures []departure
	for code, room := range activeRooms {
		room.mu.Lock()
		age := time.Since(room.createdAt)
		if age > roomMaxAge {
			serverlog.Printf("cleanUpRooms(): Deleting room %s, open since %s", code, room.createdAt.Format(time.RFC3339))
			room.closeAll("room expired")
			delete(activeRooms, code)
			room.mu.Unlock()
			continue
		}

		hadPlayers := len(room.players) > 0
		for i := len(room.players) - 1; i >= 0; i-- {
			p := room.players[i]
			if room.wsConns[p.id] != nil || time.Since(p.lastSeen) <= roomReconnectGrace {
				continue
			}
			serverlog.Printf("cleanUpRooms(): Purging disconnected player %s from room %s", p.Name, code)
			msgs := room.removePlayer(i)
			departures = append(departures, departure{room: room, player: p, msgs: msgs})
		}

		if len(room.players) == 0 && (hadPlayers || age > roomEmptyTimeout) {
			serverlog.Println("cleanUpRooms(): Deleting empty room " + code)
			delete(activeRooms, code)
		} else if debug {
			serverlog.Println("cleanUpRooms(): keeping", code, len(room.players), "players")
		}
		room.mu.Unlock()
	}
	return departures
}

func cleanUpRoomsBackgroundTask(serverlog *log.Logger, debug bool) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		<-ticker.C
		for _, d := range cleanUpRooms(serverlog, debug) {
			gameWsBroadcastPlayerLeft(d.room, d.player.Name)
			gameWsBroadcast(d.room, d.msgs, uuid.Nil)
		}
	}
}
