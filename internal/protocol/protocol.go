// Package protocol defines the messages exchanged between the relay server
// and its players, over the WebSocket and over the HTTP room API.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/stephenkowalewski/stack-wars/internal/tetris"
)

// Message types sent by players.
const (
	TypePong        = "pong"
	TypeStartGame   = "start_game"
	TypeRestartGame = "restart_game"
	TypeStateUpdate = "state_update"
	TypeSendGarbage = "send_garbage"
	TypePauseGame   = "pause_game"
	TypeResumeGame  = "resume_game"
)

// Message types sent by the relay.
const (
	TypePing           = "ping"
	TypeRoomInfo       = "room_info"
	TypePlayerJoined   = "player_joined"
	TypePlayerLeft     = "player_left"
	TypeGameStarted    = "game_started"
	TypeGameRestarted  = "game_restarted"
	TypePlayerState    = "player_state"
	TypePlayerGameOver = "player_game_over"
	TypeGameWinner     = "game_winner"
	TypeGameEnded      = "game_ended"
	TypeReceiveGarbage = "receive_garbage"
	TypeGamePaused     = "game_paused"
	TypeGameResumed    = "game_resumed"
	TypeError          = "error"
)

// Reasons reported with a game outcome.
const (
	ReasonLastPlayerStanding = "last_player_standing"
	ReasonAllGameOver        = "all_players_game_over"
)

// Message is the envelope of every WebSocket frame.
// Payload is one of the payload structs defined below or empty.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewMessage marshals payload into a Message of type msgType. A nil
// payload produces a message without one.
func NewMessage(msgType string, payload any) (Message, error) {
	msg := Message{Type: msgType}
	if payload == nil {
		return msg, nil
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return msg, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	msg.Payload = b
	return msg, nil
}

// Decode unmarshals the payload of msg.
func Decode[T any](msg Message) (T, error) {
	var payload T
	if len(msg.Payload) == 0 {
		return payload, errors.New("Missing payload for msg type " + msg.Type)
	}
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return payload, fmt.Errorf("Invalid payload for msg type %s: %w", msg.Type, err)
	}
	return payload, nil
}

// type == "state_update"
// The grid is only sent while a piece is falling or right after a lock.
type StateUpdate struct {
	Grid       tetris.Grid `json:"grid,omitempty"`
	Score      int         `json:"score"`
	Lines      int         `json:"lines"`
	Level      int         `json:"level"`
	IsGameOver bool        `json:"is_game_over"`
}

// Validate checks the shape of an update received from a player.
func (u StateUpdate) Validate() error {
	if u.Score < 0 || u.Lines < 0 || u.Level < 0 {
		return errors.New("Score, lines and level must not be negative")
	}
	if u.Grid == nil {
		return nil
	}
	if len(u.Grid) != tetris.Height {
		return fmt.Errorf("Grid must have %d rows, got %d", tetris.Height, len(u.Grid))
	}
	for y, row := range u.Grid {
		if len(row) != tetris.Width {
			return fmt.Errorf("Grid row %d must have %d cells, got %d", y, tetris.Width, len(row))
		}
	}
	return nil
}

// type == "send_garbage"
type SendGarbage struct {
	GarbageRows int `json:"garbage_rows"`
}

// type == "receive_garbage"
type ReceiveGarbage struct {
	GarbageRows int    `json:"garbage_rows"`
	FromPlayer  string `json:"from_player"`
}

// PlayerSummary is the public view of one player of a room.
type PlayerSummary struct {
	Name       string `json:"name"`
	IsHost     bool   `json:"is_host"`
	Connected  bool   `json:"connected"`
	Score      int    `json:"score"`
	Lines      int    `json:"lines"`
	Level      int    `json:"level"`
	IsGameOver bool   `json:"is_game_over"`
}

// type == "room_info", also the body of GET /api/rooms/{code}
type RoomInfo struct {
	Exists      bool            `json:"exists"`
	RoomCode    string          `json:"room_code"`
	IsStarted   bool            `json:"is_started"`
	PlayerCount int             `json:"player_count"`
	MaxPlayers  int             `json:"max_players"`
	HostName    string          `json:"host_name"`
	CreatedAt   time.Time       `json:"created_at"`
	Players     []PlayerSummary `json:"players"`
	// Identity is the name of the receiving player. Only set over the
	// WebSocket.
	Identity string `json:"identity,omitempty"`
}

// type == "player_joined"
type PlayerJoined struct {
	NewPlayer string          `json:"new_player"`
	RoomCode  string          `json:"room_code"`
	Players   []PlayerSummary `json:"players"`
}

// type == "player_left"
type PlayerLeft struct {
	PlayerName string          `json:"player_name"`
	RoomCode   string          `json:"room_code"`
	Players    []PlayerSummary `json:"players"`
}

// type == "game_started" or
// type == "game_restarted"
type GameStarted struct {
	StartedBy string          `json:"started_by"`
	RoomCode  string          `json:"room_code"`
	Players   []PlayerSummary `json:"players"`
}

// type == "player_state"
type PlayerState struct {
	PlayerName string      `json:"player_name"`
	State      StateUpdate `json:"state"`
}

// type == "player_game_over"
type PlayerGameOver struct {
	PlayerName       string          `json:"player_name"`
	FinalScore       int             `json:"final_score"`
	PlayersRemaining int             `json:"players_remaining"`
	TotalPlayers     int             `json:"total_players"`
	Standings        []PlayerSummary `json:"standings"`
}

// type == "game_winner" or
// type == "game_ended"
type GameOutcome struct {
	Winner       PlayerSummary   `json:"winner"`
	FinalScores  []PlayerSummary `json:"final_scores"`
	TotalPlayers int             `json:"total_players"`
	Reason       string          `json:"reason"`
}

// type == "game_paused" or
// type == "game_resumed"
type SessionControl struct {
	By       string `json:"by"`
	RoomCode string `json:"room_code"`
}

// type == "error"
type Error struct {
	Message string `json:"message"`
}
