package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"

	"github.com/stephenkowalewski/stack-wars/internal/logging"
	"github.com/stephenkowalewski/stack-wars/internal/protocol"
)

const (
	wsWriteTimeout = 2 * time.Second
	wsReadTimeout  = 10 * time.Second
	wsPingInterval = 4 * time.Second
)

// getRoomPlayerFromReq gets the player based on cookies and optionally
// updates the lastSeen field for that player.
func getRoomPlayerFromReq(r *http.Request, updateLastSeen bool) (*Room, *Player, error) {
	cookiePlayerId, err := getCookieWrapper(r, protocol.CookiePlayerId)
	if err != nil || cookiePlayerId == "" {
		return nil, nil, fmt.Errorf("Required cookie missing or empty: %s", protocol.CookiePlayerId)
	}
	cookiePlayerName, err := getCookieWrapper(r, protocol.CookiePlayerName)
	if err != nil || cookiePlayerName == "" {
		return nil, nil, fmt.Errorf("Required cookie missing or empty: %s", protocol.CookiePlayerName)
	}
	cookieRoomCode, err := getCookieWrapper(r, protocol.CookieRoomCode)
	if err != nil || cookieRoomCode == "" {
		return nil, nil, fmt.Errorf("Required cookie missing or empty: %s", protocol.CookieRoomCode)
	}

	playerId, err := uuid.Parse(cookiePlayerId)
	if err != nil {
		return nil, nil, err
	}
	room, err := getRoom(cookieRoomCode)
	if err != nil {
		return nil, nil, err
	}

	room.mu.Lock()
	defer room.mu.Unlock()
	_, p := room.findPlayer(playerId)
	if p == nil || p.Name != cookiePlayerName {
		return room, nil, errPlayerNotFound
	}
	if updateLastSeen {
		p.lastSeen = time.Now()
	}
	return room, p, nil
}

// newMessage builds a Message, logging payloads that cannot be marshalled
func newMessage(msgType string, payload any) protocol.Message {
	msg, err := protocol.NewMessage(msgType, payload)
	if err != nil {
		serverlog.Println(err)
	}
	return msg
}

// gameWsHandler sets up a WebSocket and relays messages between the
// players of a room
func gameWsHandler(w http.ResponseWriter, r *http.Request) {
	room, player, err := getRoomPlayerFromReq(r, true)
	if err != nil {
		if debug {
			serverlog.Println("gameWsHandler:", err)
		}
		http.Error(w, "403 forbidden", http.StatusForbidden)
		return
	}

	c, err := websocket.Accept(w, r, nil)
	if err != nil {
		serverlog.Println(err)
		return
	}
	defer c.CloseNow()

	// register the connection, replacing an older one of the same player
	room.mu.Lock()
	if old := room.wsConns[player.id]; old != nil {
		_ = old.Close(websocket.StatusGoingAway, "connection replaced")
	}
	room.wsConns[player.id] = c
	room.mu.Unlock()
	logging.LogWebSocket(accesslog, r, "connected", room.code)

	defer func() {
		room.mu.Lock()
		if room.wsConns[player.id] == c {
			delete(room.wsConns, player.id)
		}
		player.lastSeen = time.Now()
		room.mu.Unlock()
		logging.LogWebSocket(accesslog, r, "disconnected", room.code)
	}()

	cancel := gameWsStartPingPong(c)
	defer cancel()

	// Send initial room_info on connection
	info := room.info()
	info.Identity = player.Name
	if err := gameWsSend(c, newMessage(protocol.TypeRoomInfo, info)); err != nil {
		serverlog.Printf("Failed to send room_info to client: %v\n", err)
		c.Close(websocket.StatusInternalError, "send error")
		return
	}

	// Wait for client messages
	for {
		msg, err := gameWsReadMessage(c)
		if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
			return
		}
		if err != nil {
			room.mu.Lock()
			replaced := room.wsConns[player.id] != c
			room.mu.Unlock()
			if !replaced {
				serverlog.Printf("gameWsReadMessage failed for %v (room: %s, player: %s): %v", r.RemoteAddr, room.code, player.Name, err)
				c.Close(websocket.StatusInternalError, "read error")
			}
			return
		}

		if msg.Type == protocol.TypePong {
			// If the client stops sending these, gameWsReadMessage will time out
			continue
		}

		room.mu.Lock()
		player.lastSeen = time.Now()
		room.mu.Unlock()

		switch msg.Type {
		case protocol.TypeStateUpdate:
			if debug {
				logging.LogWebSocket(accesslog, r, msg.Type, len(msg.Payload))
			}
			gameWsHandleStateUpdate(c, room, player, msg)
		case protocol.TypeSendGarbage:
			logging.LogWebSocket(accesslog, r, msg.Type, string(msg.Payload))
			gameWsHandleSendGarbage(c, room, player, msg)
		case protocol.TypeStartGame, protocol.TypeRestartGame:
			logging.LogWebSocket(accesslog, r, msg.Type, "")
			gameWsHandleStart(c, room, player, msg.Type)
		case protocol.TypePauseGame, protocol.TypeResumeGame:
			logging.LogWebSocket(accesslog, r, msg.Type, "")
			gameWsHandlePause(c, room, player, msg.Type)
		default:
			serverlog.Println("unimplemented:", msg.Type)
			_ = gameWsSendError(c, "Unknown message type "+msg.Type)
		}
	}
}

// gameWsStartPingPong sends "ping" messages to the client. The client should respond with "pong"
// messages to keep the WebSocket connection alive.
func gameWsStartPingPong(conn *websocket.Conn) context.CancelFunc {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		ticker := time.NewTicker(wsPingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				pingCtx, pingCancel := context.WithTimeout(ctx, wsWriteTimeout)
				err := wsjson.Write(pingCtx, conn, protocol.Message{Type: protocol.TypePing})
				pingCancel()
				if err != nil {
					if ctx.Err() == nil && debug {
						serverlog.Println("Ping write error:", err)
					}
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return cancel
}

// gameWsReadMessage reads a Message from the client. Unpacks Message.Type but not Message.Payload.
func gameWsReadMessage(conn *websocket.Conn) (*protocol.Message, error) {
	readTimeout := wsReadTimeout
	if debug {
		readTimeout *= 10
	}
	ctx, cancel := context.WithTimeout(context.Background(), readTimeout)
	defer cancel()

	var msg protocol.Message
	if err := wsjson.Read(ctx, conn, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func gameWsSend(conn *websocket.Conn, msg protocol.Message) error {
	ctx, cancel := context.WithTimeout(context.Background(), wsWriteTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, msg)
}

// gameWsSendError sends the client a message of type "error"
func gameWsSendError(conn *websocket.Conn, message string) error {
	return gameWsSend(conn, newMessage(protocol.TypeError, protocol.Error{Message: message}))
}

// gameWsBroadcast sends msgs, in order, to every connected player of room
// except skip
func gameWsBroadcast(room *Room, msgs []protocol.Message, skip uuid.UUID) {
	if len(msgs) == 0 {
		return
	}
	var wg sync.WaitGroup
	room.mu.Lock()
	defer room.mu.Unlock()
	for id, conn := range room.wsConns {
		if id == skip {
			continue
		}
		wg.Add(1)
		go func(conn *websocket.Conn) {
			defer wg.Done()
			for _, msg := range msgs {
				if err := gameWsSend(conn, msg); err != nil {
					if debug {
						serverlog.Printf("Failed to send %s: %v", msg.Type, err)
					}
					return
				}
			}
		}(conn)
	}
	wg.Wait() // wait for go routines to complete before releasing room.mu lock
}

// send "player_joined" to everyone in room
func gameWsBroadcastPlayerJoined(room *Room, name string) {
	room.mu.Lock()
	payload := protocol.PlayerJoined{NewPlayer: name, RoomCode: room.code, Players: room.summaries()}
	room.mu.Unlock()
	gameWsBroadcast(room, []protocol.Message{newMessage(protocol.TypePlayerJoined, payload)}, uuid.Nil)
}

// send "player_left" to everyone still in room
func gameWsBroadcastPlayerLeft(room *Room, name string) {
	room.mu.Lock()
	payload := protocol.PlayerLeft{PlayerName: name, RoomCode: room.code, Players: room.summaries()}
	room.mu.Unlock()
	gameWsBroadcast(room, []protocol.Message{newMessage(protocol.TypePlayerLeft, payload)}, uuid.Nil)
}

// gameWsHandleStateUpdate stores a player's update, forwards it to the
// other players as "player_state", and announces eliminations and the end
// of the session
func gameWsHandleStateUpdate(conn *websocket.Conn, room *Room, whoami *Player, msg *protocol.Message) {
	update, err := protocol.Decode[protocol.StateUpdate](*msg)
	if err == nil {
		err = update.Validate()
	}
	if err != nil {
		serverlog.Printf("Rejected state_update from %s in room %s: %v", whoami.Name, room.code, err)
		_ = gameWsSendError(conn, "Invalid state update: "+err.Error())
		return
	}

	p, announcements, err := room.recordState(whoami.id, update)
	if errors.Is(err, errRoomNotStarted) {
		// late updates after the session ended are expected
		return
	}
	if err != nil {
		serverlog.Printf("recordState failed for %s in room %s: %v", whoami.Name, room.code, err)
		_ = gameWsSendError(conn, err.Error())
		return
	}

	gameWsBroadcast(room, []protocol.Message{
		newMessage(protocol.TypePlayerState, protocol.PlayerState{PlayerName: p.Name, State: update}),
	}, whoami.id)
	for _, a := range announcements {
		serverlog.Printf("Room %s: %s", room.code, a.Type)
	}
	gameWsBroadcast(room, announcements, uuid.Nil)
}

// gameWsHandleSendGarbage forwards garbage rows to every other player
func gameWsHandleSendGarbage(conn *websocket.Conn, room *Room, whoami *Player, msg *protocol.Message) {
	payload, err := protocol.Decode[protocol.SendGarbage](*msg)
	if err != nil {
		serverlog.Println(err)
		_ = gameWsSendError(conn, "Invalid garbage")
		return
	}
	if payload.GarbageRows <= 0 {
		return
	}

	room.mu.Lock()
	started := room.started
	room.mu.Unlock()
	if !started {
		return
	}

	gameWsBroadcast(room, []protocol.Message{
		newMessage(protocol.TypeReceiveGarbage, protocol.ReceiveGarbage{
			GarbageRows: payload.GarbageRows,
			FromPlayer:  whoami.Name,
		}),
	}, whoami.id)
}

// gameWsHandleStart starts or restarts the session of room
func gameWsHandleStart(conn *websocket.Conn, room *Room, whoami *Player, msgType string) {
	start := room.start
	replyType := protocol.TypeGameStarted
	if msgType == protocol.TypeRestartGame {
		start = room.restart
		replyType = protocol.TypeGameRestarted
	}

	payload, err := start()
	if err != nil {
		_ = gameWsSendError(conn, err.Error())
		return
	}
	payload.StartedBy = whoami.Name
	serverlog.Printf("Room %s: %s by %s with %d players", room.code, replyType, whoami.Name, len(payload.Players))
	gameWsBroadcast(room, []protocol.Message{newMessage(replyType, payload)}, uuid.Nil)
}

// gameWsHandlePause pauses or resumes every player of a started room
func gameWsHandlePause(conn *websocket.Conn, room *Room, whoami *Player, msgType string) {
	room.mu.Lock()
	started := room.started
	room.mu.Unlock()
	if !started {
		_ = gameWsSendError(conn, errRoomNotStarted.Error())
		return
	}

	replyType := protocol.TypeGamePaused
	if msgType == protocol.TypeResumeGame {
		replyType = protocol.TypeGameResumed
	}
	gameWsBroadcast(room, []protocol.Message{
		newMessage(replyType, protocol.SessionControl{By: whoami.Name, RoomCode: room.code}),
	}, uuid.Nil)
}
