package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stephenkowalewski/stack-wars/internal/protocol"
)

// newTestMux routes the room API the way main does
func newTestMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/rooms", createRoomHandler)
	mux.HandleFunc("GET /api/rooms/{code}", roomInfoHandler)
	mux.HandleFunc("DELETE /api/rooms/{code}", deleteRoomHandler)
	mux.HandleFunc("POST /api/rooms/{code}/join", joinRoomHandler)
	mux.HandleFunc("/room/leave", roomLeaveHandler)
	mux.HandleFunc("GET /health", healthHandler)
	mux.HandleFunc("/game/ws", gameWsHandler)
	return mux
}

// doRequest sends body to the test mux and decodes the json response into v
func doRequest(t *testing.T, method, target, body string, v any) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rr := httptest.NewRecorder()
	newTestMux().ServeHTTP(rr, req)
	if v != nil {
		if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
			t.Fatalf("%s %s: cannot decode %q: %v", method, target, rr.Body.String(), err)
		}
	}
	return rr
}

func TestCreateRoomHandler(t *testing.T) {
	quietServerlog()
	resetRooms(t)

	var created protocol.CreateRoomResponse
	rr := doRequest(t, "POST", "/api/rooms", `{"player_name": "  Alice!  "}`, &created)
	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected 201. Got %d: %s", rr.Code, rr.Body)
	}
	if !protocol.ValidRoomCode(created.RoomCode) || created.PlayerName != "Alice" {
		t.Errorf("Unexpected response %+v", created)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Unexpected Content-Type %q", ct)
	}

	rr = doRequest(t, "POST", "/api/rooms", `{"player_name": "Bob", "room_code": "bobs01"}`, &created)
	if rr.Code != http.StatusCreated || created.RoomCode != "BOBS01" {
		t.Errorf("Expected room BOBS01. Got %d %+v", rr.Code, created)
	}

	tests := []struct {
		body    string
		status  int
		message string
	}{
		{`{"player_name": "Carol", "room_code": "BOBS01"}`, http.StatusConflict, errRoomExists.Error()},
		{`{"player_name": "Carol", "room_code": "BOB"}`, http.StatusBadRequest, errInvalidRoomCode.Error()},
		{`{"player_name": "   "}`, http.StatusBadRequest, "Player name is required"},
		{``, http.StatusBadRequest, "Player name is required"},
		{`{"player_name": `, http.StatusBadRequest, "Invalid request body"},
	}
	for _, tt := range tests {
		var resp protocol.ErrorResponse
		rr := doRequest(t, "POST", "/api/rooms", tt.body, &resp)
		if rr.Code != tt.status || resp.Error != tt.message {
			t.Errorf("POST %s: expected %d %q. Got %d %q", tt.body, tt.status, tt.message, rr.Code, resp.Error)
		}
	}
}

func TestRoomInfoHandler(t *testing.T) {
	quietServerlog()
	resetRooms(t)

	var info protocol.RoomInfo
	rr := doRequest(t, "GET", "/api/rooms/nope01", "", &info)
	if rr.Code != http.StatusNotFound || info.Exists || info.RoomCode != "NOPE01" {
		t.Errorf("Expected a 404 for a missing room. Got %d %+v", rr.Code, info)
	}

	room, _ := createRoom("INFO01", "Alice")
	joinWrapper(t, room, "Alice")
	joinWrapper(t, room, "Bob")

	rr = doRequest(t, "GET", "/api/rooms/info01", "", &info)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200. Got %d", rr.Code)
	}
	if !info.Exists || info.PlayerCount != 2 || info.MaxPlayers != protocol.MaxPlayers || info.HostName != "Alice" || info.IsStarted {
		t.Errorf("Unexpected room info %+v", info)
	}
	if len(info.Players) != 2 || !info.Players[0].IsHost || info.Players[1].IsHost || info.Players[0].Connected {
		t.Errorf("Unexpected players %+v", info.Players)
	}
}

func TestDeleteRoomHandler(t *testing.T) {
	quietServerlog()
	resetRooms(t)

	createRoom("GONE01", "Alice")
	var deleted RoomDeleted
	rr := doRequest(t, "DELETE", "/api/rooms/gone01", "", &deleted)
	if rr.Code != http.StatusOK || deleted.RoomCode != "GONE01" {
		t.Errorf("Unexpected delete response %d %+v", rr.Code, deleted)
	}
	rr = doRequest(t, "DELETE", "/api/rooms/GONE01", "", nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected 404 deleting a missing room. Got %d", rr.Code)
	}
}

// responseCookies returns the cookies set by rr by name
func responseCookies(rr *httptest.ResponseRecorder) map[string]string {
	cookies := map[string]string{}
	for _, c := range rr.Result().Cookies() {
		v, _ := url.QueryUnescape(c.Value)
		cookies[c.Name] = v
	}
	return cookies
}

func TestJoinRoomHandler(t *testing.T) {
	quietServerlog()
	resetRooms(t)

	room, _ := createRoom("JOIN02", "Alice")

	var joined protocol.JoinRoomResponse
	rr := doRequest(t, "POST", "/api/rooms/join02/join", `{"player_name": "Alice"}`, &joined)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200. Got %d: %s", rr.Code, rr.Body)
	}
	if joined.RoomCode != "JOIN02" || joined.PlayerName != "Alice" || !joined.IsHost {
		t.Errorf("Unexpected join response %+v", joined)
	}
	cookies := responseCookies(rr)
	if cookies[protocol.CookiePlayerId] != joined.PlayerId ||
		cookies[protocol.CookiePlayerName] != "Alice" ||
		cookies[protocol.CookieRoomCode] != "JOIN02" {
		t.Errorf("Unexpected cookies %v", cookies)
	}

	rr = doRequest(t, "POST", "/api/rooms/JOIN02/join", `{"player_name": "Bob Two"}`, &joined)
	if rr.Code != http.StatusOK || joined.IsHost {
		t.Errorf("Expected Bob to join as a guest. Got %d %+v", rr.Code, joined)
	}
	if got := responseCookies(rr)[protocol.CookiePlayerName]; got != "Bob Two" {
		t.Errorf("Expected the name cookie to survive escaping. Got %q", got)
	}

	// empty names get the default name
	rr = doRequest(t, "POST", "/api/rooms/JOIN02/join", `{}`, &joined)
	if rr.Code != http.StatusOK || joined.PlayerName != protocol.DefaultPlayerName {
		t.Errorf("Expected the default name. Got %d %+v", rr.Code, joined)
	}

	tests := []struct {
		target string
		body   string
		status int
	}{
		{"/api/rooms/NOPE02/join", `{"player_name": "Carol"}`, http.StatusNotFound},
		{"/api/rooms/JOIN02/join", `{"player_name": "Alice"}`, http.StatusConflict},
		{"/api/rooms/JOIN02/join", `{"player_name": 7}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		rr := doRequest(t, "POST", tt.target, tt.body, nil)
		if rr.Code != tt.status {
			t.Errorf("POST %s %s: expected %d. Got %d", tt.target, tt.body, tt.status, rr.Code)
		}
	}

	// full rooms
	for i := room.info().PlayerCount; i < protocol.MaxPlayers; i++ {
		joinWrapper(t, room, "Filler"+string(rune('A'+i)))
	}
	if rr := doRequest(t, "POST", "/api/rooms/JOIN02/join", `{"player_name": "Late"}`, nil); rr.Code != http.StatusConflict {
		t.Errorf("Expected 409 joining a full room. Got %d", rr.Code)
	}

	// started rooms
	started, _ := createRoom("JOIN03", "Dave")
	joinWrapper(t, started, "Dave")
	started.start()
	if rr := doRequest(t, "POST", "/api/rooms/JOIN03/join", `{"player_name": "Late"}`, nil); rr.Code != http.StatusForbidden {
		t.Errorf("Expected 403 joining a started room. Got %d", rr.Code)
	}
}

func TestRoomLeaveHandler(t *testing.T) {
	quietServerlog()
	resetRooms(t)

	room, _ := createRoom("LEAVE2", "Alice")
	alice := joinWrapper(t, room, "Alice")
	bob := joinWrapper(t, room, "Bob")

	leave := func(p *Player) *httptest.ResponseRecorder {
		req := httptest.NewRequest("GET", "/room/leave", nil)
		addPlayerCookies(req, p, room.code)
		rr := httptest.NewRecorder()
		newTestMux().ServeHTTP(rr, req)
		return rr
	}

	rr := leave(alice)
	if rr.Code != http.StatusFound || rr.Header().Get("Location") != "/" {
		t.Errorf("Expected a redirect to /. Got %d %q", rr.Code, rr.Header().Get("Location"))
	}
	if n := len(rr.Result().Cookies()); n != 3 {
		t.Errorf("Expected 3 cleared cookies. Got %d", n)
	}
	if info := room.info(); info.PlayerCount != 1 || info.HostName != "Bob" {
		t.Errorf("Expected Bob alone and hosting. Got %+v", info)
	}

	leave(bob)
	if _, err := getRoom("LEAVE2"); err == nil {
		t.Error("Expected the room to be deleted once empty")
	}

	// leaving twice still clears the cookies
	if rr := leave(bob); rr.Code != http.StatusFound {
		t.Errorf("Expected a redirect. Got %d", rr.Code)
	}
}

func TestGetRoomPlayerFromReq(t *testing.T) {
	quietServerlog()
	resetRooms(t)

	room, _ := createRoom("COOKIE", "Alice")
	alice := joinWrapper(t, room, "Alice Smith")

	req := httptest.NewRequest("GET", "/game/ws", nil)
	addPlayerCookies(req, alice, "cookie")
	gotRoom, gotPlayer, err := getRoomPlayerFromReq(req, false)
	if err != nil || gotRoom != room || gotPlayer != alice {
		t.Errorf("Expected Alice in COOKIE. Got %v %v %v", gotRoom, gotPlayer, err)
	}

	// missing cookies
	if _, _, err := getRoomPlayerFromReq(httptest.NewRequest("GET", "/game/ws", nil), false); err == nil {
		t.Error("Expected an error without cookies")
	}

	// a wrong name does not match the id
	req = httptest.NewRequest("GET", "/game/ws", nil)
	addPlayerCookies(req, &Player{Name: "Mallory", id: alice.id}, room.code)
	if _, _, err := getRoomPlayerFromReq(req, false); err != errPlayerNotFound {
		t.Errorf("Expected errPlayerNotFound. Got %v", err)
	}

	// unknown rooms
	req = httptest.NewRequest("GET", "/game/ws", nil)
	addPlayerCookies(req, alice, "NOPE03")
	if _, _, err := getRoomPlayerFromReq(req, false); err != errRoomNotFound {
		t.Errorf("Expected errRoomNotFound. Got %v", err)
	}
}

func TestHealthHandler(t *testing.T) {
	quietServerlog()
	resetRooms(t)
	createRoom("HEALTH", "Alice")

	var health protocol.Health
	rr := doRequest(t, "GET", "/health", "", &health)
	if rr.Code != http.StatusOK || health.Status != "OK" || health.Rooms != 1 || health.Version != Version {
		t.Errorf("Unexpected health %d %+v", rr.Code, health)
	}
}

// addPlayerCookies sets the cookies joinRoomHandler hands out
func addPlayerCookies(req *http.Request, p *Player, roomCode string) {
	req.AddCookie(&http.Cookie{Name: protocol.CookiePlayerId, Value: url.QueryEscape(p.id.String())})
	req.AddCookie(&http.Cookie{Name: protocol.CookiePlayerName, Value: url.QueryEscape(p.Name)})
	req.AddCookie(&http.Cookie{Name: protocol.CookieRoomCode, Value: url.QueryEscape(roomCode)})
}
