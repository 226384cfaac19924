package main

import (
	"fmt"
	"html"
	"net/http"
	"net/url"
	"slices"

	"github.com/google/uuid"

	"github.com/stephenkowalewski/stack-wars/internal/logging"
	"github.com/stephenkowalewski/stack-wars/internal/protocol"
)

func addDebugEndpoints() {
	http.Handle("/debug",
		logging.AccessLogHandler(accesslog, handleGlobalheaders(false,
			http.HandlerFunc(debugHandlerListRooms))))
	http.Handle("/debug/join-existing-player",
		logging.AccessLogHandler(accesslog, handleGlobalheaders(false,
			http.HandlerFunc(debugHandlerJoinExistingPlayer))))
	http.Handle("DELETE /api/rooms/{code}",
		logging.AccessLogHandler(accesslog, handleGlobalheaders(false,
			http.HandlerFunc(deleteRoomHandler))))
}

// debugHandlerListRooms lists out all active rooms and provides buttons to
// take over an existing player.
func debugHandlerListRooms(w http.ResponseWriter, r *http.Request) {
	fmt.Fprintln(w, `<!DOCTYPE html><head></head><body>`)

	roomMutex.Lock()
	codes := make([]string, 0, len(activeRooms))
	rooms := make(map[string]*Room, len(activeRooms))
	for k, v := range activeRooms {
		codes = append(codes, k)
		rooms[k] = v
	}
	roomMutex.Unlock()

	if len(codes) == 0 {
		fmt.Fprint(w, `<p>No active rooms</p></body>`)
		return
	}
	slices.Sort(codes)

	for _, code := range codes {
		fmt.Fprintf(w, `<pre>%s</pre>`, html.EscapeString(rooms[code].String()))
		room := rooms[code]
		room.mu.Lock()
		for _, p := range room.players {
			fmt.Fprintf(w, `<button onclick="window.location.replace('/debug/join-existing-player?room-code=%s&player-id=%v&player-name=%s');">%s</button>`,
				code, p.id, url.QueryEscape(p.Name), html.EscapeString(p.Name))
		}
		room.mu.Unlock()
		fmt.Fprintln(w, `<br>`)
	}
	fmt.Fprintln(w, `</body>`)
}

// debugHandlerJoinExistingPlayer sets the cookies of an existing player
func debugHandlerJoinExistingPlayer(w http.ResponseWriter, r *http.Request) {
	roomCode := r.URL.Query().Get("room-code")
	playerId := r.URL.Query().Get("player-id")
	playerName := r.URL.Query().Get("player-name")
	if roomCode == "" || playerId == "" || playerName == "" {
		http.Error(w, "400 bad request", http.StatusBadRequest)
		return
	}

	w.Header().Add("Set-Cookie", fmt.Sprintf(`%s=%s; path=/`, protocol.CookiePlayerId, url.QueryEscape(playerId)))
	w.Header().Add("Set-Cookie", fmt.Sprintf(`%s=%s; path=/`, protocol.CookiePlayerName, url.QueryEscape(playerName)))
	w.Header().Add("Set-Cookie", fmt.Sprintf(`%s=%s; path=/`, protocol.CookieRoomCode, url.QueryEscape(roomCode)))

	http.Redirect(w, r, "/", http.StatusFound)
}

// createRoomWithStaticUUIDs creates a room with numPlayers players whose
// ids count up from the last section of roomUuid.
// For room 00000000-0000-0000-0002-000000000000,
// Player 1 is 00000000-0000-0000-0002-000000000001,
// Player 2 is 00000000-0000-0000-0002-000000000002, etc
// Intended to be called before the http server starts up.
func createRoomWithStaticUUIDs(code string, roomUuid uuid.UUID, numPlayers int) {
	if numPlayers < 0 || numPlayers > protocol.MaxPlayers {
		serverlog.Fatalf("Invalid numPlayers arg to createRoomWithStaticUUIDs(): %d", numPlayers)
		return
	}
	room, err := createRoom(code, "")
	if err != nil {
		serverlog.Fatalf("createRoomWithStaticUUIDs(%s): %v", code, err)
	}

	for i := 0; i < numPlayers; i++ {
		p, err := room.join(fmt.Sprintf("Player %d", i+1))
		if err != nil {
			serverlog.Fatal(err)
		}
		id := roomUuid
		id[len(id)-1] += byte(i + 1)
		room.mu.Lock()
		if room.host == p.id {
			room.host = id
		}
		p.id = id
		room.mu.Unlock()
	}
	serverlog.Println("Created debug room", room)
}
