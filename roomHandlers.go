package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/stephenkowalewski/stack-wars/internal/protocol"
)

// RoomDeleted is the response to DELETE /api/rooms/{code}
type RoomDeleted struct {
	Message  string `json:"message"`
	RoomCode string `json:"room_code"`
}

const maxRequestBody = 1 << 16

// writeJSON writes v with the given status code
func writeJSON(w http.ResponseWriter, status int, v any) {
	j, err := json.Marshal(v)
	if err != nil {
		serverlog.Println("writeJSON:", err)
		http.Error(w, "500 Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprintln(w, string(j))
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, protocol.ErrorResponse{Error: message})
}

// readJSON decodes the request body into v. An empty body leaves v untouched.
func readJSON(r *http.Request, v any) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody)).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// createRoomHandler creates a room. The room stays empty until its
// creator joins it.
func createRoomHandler(w http.ResponseWriter, r *http.Request) {
	var req protocol.CreateRoomRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.PlayerName) == "" {
		writeError(w, http.StatusBadRequest, "Player name is required")
		return
	}
	name := protocol.CleanPlayerName(req.PlayerName)

	room, err := createRoom(req.RoomCode, name)
	switch {
	case errors.Is(err, errRoomExists):
		writeError(w, http.StatusConflict, err.Error())
		return
	case errors.Is(err, errInvalidRoomCode):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		serverlog.Println("createRoomHandler:", err)
		writeError(w, http.StatusInternalServerError, "Failed to create room")
		return
	}

	serverlog.Printf("Created room %s for %s", room.code, name)
	writeJSON(w, http.StatusCreated, protocol.CreateRoomResponse{
		RoomCode:   room.code,
		PlayerName: name,
		Message:    "Room created successfully",
	})
}

// roomInfoHandler returns the public state of a room as json
func roomInfoHandler(w http.ResponseWriter, r *http.Request) {
	code := protocol.NormalizeRoomCode(r.PathValue("code"))
	room, err := getRoom(code)
	if err != nil {
		writeJSON(w, http.StatusNotFound, protocol.RoomInfo{Exists: false, RoomCode: code})
		return
	}
	writeJSON(w, http.StatusOK, room.info())
}

// deleteRoomHandler removes a room and disconnects its players
func deleteRoomHandler(w http.ResponseWriter, r *http.Request) {
	code := protocol.NormalizeRoomCode(r.PathValue("code"))
	if err := deleteRoom(code); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	serverlog.Println("Deleted room " + code)
	writeJSON(w, http.StatusOK, RoomDeleted{Message: "Room deleted successfully", RoomCode: code})
}

// joinRoomHandler adds a player to a room and sets cookies identifying
// them for the WebSocket
func joinRoomHandler(w http.ResponseWriter, r *http.Request) {
	var req protocol.JoinRoomRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	name := protocol.CleanPlayerName(req.PlayerName)

	room, err := getRoom(r.PathValue("code"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	player, err := room.join(name)
	switch {
	case errors.Is(err, errRoomStarted):
		writeError(w, http.StatusForbidden, err.Error())
		return
	case errors.Is(err, errRoomFull), errors.Is(err, errDuplicateName):
		writeError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		serverlog.Println("joinRoomHandler:", err)
		writeError(w, http.StatusInternalServerError, "Failed to join room")
		return
	}

	room.mu.Lock()
	isHost := room.host == player.id
	room.mu.Unlock()
	if debug {
		serverlog.Println("joinRoomHandler:", room)
	}

	w.Header().Add("Set-Cookie", fmt.Sprintf(`%s=%s; path=/`, protocol.CookiePlayerId, url.QueryEscape(player.id.String())))
	w.Header().Add("Set-Cookie", fmt.Sprintf(`%s=%s; path=/`, protocol.CookiePlayerName, url.QueryEscape(player.Name)))
	w.Header().Add("Set-Cookie", fmt.Sprintf(`%s=%s; path=/`, protocol.CookieRoomCode, url.QueryEscape(room.code)))
	writeJSON(w, http.StatusOK, protocol.JoinRoomResponse{
		RoomCode:   room.code,
		PlayerName: player.Name,
		PlayerId:   player.id.String(),
		IsHost:     isHost,
	})

	gameWsBroadcastPlayerJoined(room, player.Name)
}

// roomLeaveHandler removes a player from their room and redirects back to
// the main page
func roomLeaveHandler(w http.ResponseWriter, r *http.Request) {
	room, player, err := getRoomPlayerFromReq(r, false)
	if err != nil {
		serverlog.Println("roomLeaveHandler: Error from getRoomPlayerFromReq: " + err.Error())
	} else {
		leaveRoom(room, player.id)
	}
	clearCookies(w)
	http.Redirect(w, r, "/", http.StatusFound)
}

// leaveRoom removes a player, tells the others and deletes the room once
// it is empty
func leaveRoom(room *Room, id uuid.UUID) {
	player, announcements, err := room.leave(id)
	if err != nil {
		serverlog.Println("leaveRoom:", err)
		return
	}
	serverlog.Printf("%s left room %s", player.Name, room.code)
	if deleteRoomIfEmpty(room) {
		serverlog.Printf("Room %s deleted (empty)", room.code)
		return
	}
	gameWsBroadcastPlayerLeft(room, player.Name)
	gameWsBroadcast(room, announcements, uuid.Nil)
}

// healthHandler reports that the server is up
func healthHandler(w http.ResponseWriter, r *http.Request) {
	roomMutex.Lock()
	rooms := len(activeRooms)
	roomMutex.Unlock()

	writeJSON(w, http.StatusOK, protocol.Health{
		Status:    "OK",
		Version:   Version,
		Rooms:     rooms,
		Timestamp: time.Now().UTC(),
	})
}
