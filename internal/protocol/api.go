package protocol

import (
	"regexp"
	"strings"
	"time"
)

const (
	// MaxPlayers is the capacity of a room.
	MaxPlayers = 8
	// RoomCodeLength is the length of generated room codes.
	RoomCodeLength = 6
	// MaxNameLength bounds player names, in bytes after cleaning.
	MaxNameLength = 20
	// DefaultPlayerName replaces names that are empty after cleaning.
	DefaultPlayerName = "Player"
)

// RoomCodeAlphabet holds the characters room codes are made of.
const RoomCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Cookies set by the join endpoint and read by the WebSocket endpoint.
const (
	CookiePlayerId   = "player-id"
	CookiePlayerName = "player-name"
	CookieRoomCode   = "room-code"
)

var (
	roomCodeRegexp  = regexp.MustCompile(`^[A-Z0-9]{6}$`)
	nameStripRegexp = regexp.MustCompile(`[^\w\s-]`)
)

// NormalizeRoomCode trims and upper-cases a user supplied room code.
func NormalizeRoomCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidRoomCode reports whether code, once normalized, is six characters
// from RoomCodeAlphabet.
func ValidRoomCode(code string) bool {
	return roomCodeRegexp.MatchString(NormalizeRoomCode(code))
}

// CleanPlayerName trims name, removes characters other than letters,
// digits, underscores, spaces and dashes, and truncates it. An empty
// result becomes DefaultPlayerName.
func CleanPlayerName(name string) string {
	cleaned := nameStripRegexp.ReplaceAllString(strings.TrimSpace(name), "")
	if len(cleaned) > MaxNameLength {
		cleaned = cleaned[:MaxNameLength]
	}
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return DefaultPlayerName
	}
	return cleaned
}

// body of POST /api/rooms
type CreateRoomRequest struct {
	PlayerName string `json:"player_name"`
	RoomCode   string `json:"room_code,omitempty"`
}

// response to POST /api/rooms
type CreateRoomResponse struct {
	RoomCode   string `json:"room_code"`
	PlayerName string `json:"player_name"`
	Message    string `json:"message"`
}

// body of POST /api/rooms/{code}/join
type JoinRoomRequest struct {
	PlayerName string `json:"player_name"`
}

// response to POST /api/rooms/{code}/join
type JoinRoomResponse struct {
	RoomCode   string `json:"room_code"`
	PlayerName string `json:"player_name"`
	PlayerId   string `json:"player_id"`
	IsHost     bool   `json:"is_host"`
}

// ErrorResponse is the body of every failed API request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// response to GET /health
type Health struct {
	Status    string    `json:"status"`
	Version   string    `json:"version"`
	Rooms     int       `json:"rooms"`
	Timestamp time.Time `json:"timestamp"`
}
