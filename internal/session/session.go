// Package session connects a player to the relay server. It joins a room
// over HTTP, keeps a WebSocket open with automatic reconnects, and exposes
// the relayed messages as channels so the game loop never blocks on the
// network.
package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"golang.org/x/sync/errgroup"

	"github.com/stephenkowalewski/stack-wars/internal/protocol"
)

const (
	writeTimeout = 2 * time.Second
	readTimeout  = 10 * time.Second
	queueLength  = 64
)

var (
	// ErrRoomGone is returned by Run when the room no longer exists.
	ErrRoomGone = errors.New("Room not found")
	// ErrReplaced is returned by Run when another connection took over
	// this player.
	ErrReplaced = errors.New("Connection replaced")
)

// APIError is a failed room API request.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.Message)
}

// Config describes how to reach the relay.
type Config struct {
	// Server is the base URL of the relay, for example http://localhost:8080.
	Server     string
	RoomCode   string
	PlayerName string
	HTTPClient *http.Client
	Logger     *log.Logger
	Debug      bool
	// MinBackoff and MaxBackoff bound the reconnect delay. Zero values use
	// DefaultMinBackoff and DefaultMaxBackoff.
	MinBackoff time.Duration
	MaxBackoff time.Duration
}

// Client is one player's connection to a room.
type Client struct {
	cfg     Config
	baseURL *url.URL
	http    *http.Client

	mu      sync.Mutex
	cookies []*http.Cookie
	joined  protocol.JoinRoomResponse

	connected atomic.Bool
	inbound   chan protocol.Message
	outbound  chan protocol.Message
}

// New returns a client for cfg. It does not contact the server.
func New(cfg Config) (*Client, error) {
	u, err := url.Parse(cfg.Server)
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported server url scheme %q", u.Scheme)
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(io.Discard, "", 0)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	cfg.RoomCode = protocol.NormalizeRoomCode(cfg.RoomCode)
	return &Client{
		cfg:      cfg,
		baseURL:  u,
		http:     httpClient,
		inbound:  make(chan protocol.Message, queueLength),
		outbound: make(chan protocol.Message, queueLength),
	}, nil
}

// Inbound delivers every message relayed to this player except pings.
func (c *Client) Inbound() <-chan protocol.Message {
	return c.inbound
}

// Connected reports whether the WebSocket is currently open.
func (c *Client) Connected() bool {
	return c.connected.Load()
}

// Joined returns the result of the last successful Join.
func (c *Client) Joined() protocol.JoinRoomResponse {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.joined
}

// Send queues msg for the relay. It returns false, dropping msg, while the
// client is disconnected or its queue is full.
func (c *Client) Send(msg protocol.Message) bool {
	if !c.connected.Load() {
		return false
	}
	select {
	case c.outbound <- msg:
		return true
	default:
		c.cfg.Logger.Printf("Outbound queue full, dropping %s", msg.Type)
		return false
	}
}

func (c *Client) endpoint(path string) string {
	u := *c.baseURL
	u.Path = strings.TrimSuffix(u.Path, "/") + path
	return u.String()
}

// doJSON posts body to path and decodes a successful response into out.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var apiErr protocol.ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return resp, &APIError{StatusCode: resp.StatusCode, Message: apiErr.Error}
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp, fmt.Errorf("decode %s %s response: %w", method, path, err)
		}
	}
	return resp, nil
}

// CreateRoom asks the relay for a new room. The configured room code is
// requested when set; otherwise the relay picks one, and the client uses
// it from then on.
func (c *Client) CreateRoom(ctx context.Context) (protocol.CreateRoomResponse, error) {
	var created protocol.CreateRoomResponse
	req := protocol.CreateRoomRequest{PlayerName: c.cfg.PlayerName, RoomCode: c.cfg.RoomCode}
	if _, err := c.doJSON(ctx, http.MethodPost, "/api/rooms", req, &created); err != nil {
		return created, fmt.Errorf("create room: %w", err)
	}
	c.mu.Lock()
	c.cfg.RoomCode = created.RoomCode
	c.mu.Unlock()
	return created, nil
}

// RoomInfo fetches the public state of the configured room.
func (c *Client) RoomInfo(ctx context.Context) (protocol.RoomInfo, error) {
	var info protocol.RoomInfo
	_, err := c.doJSON(ctx, http.MethodGet, "/api/rooms/"+url.PathEscape(c.roomCode()), nil, &info)
	if err != nil {
		return info, fmt.Errorf("room info: %w", err)
	}
	return info, nil
}

func (c *Client) roomCode() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg.RoomCode
}

// Join adds the player to the room and keeps the session cookies for the
// WebSocket.
func (c *Client) Join(ctx context.Context) (protocol.JoinRoomResponse, error) {
	var joined protocol.JoinRoomResponse
	path := "/api/rooms/" + url.PathEscape(c.roomCode()) + "/join"
	resp, err := c.doJSON(ctx, http.MethodPost, path, protocol.JoinRoomRequest{PlayerName: c.cfg.PlayerName}, &joined)
	if err != nil {
		return joined, fmt.Errorf("join room %s: %w", c.roomCode(), err)
	}

	c.mu.Lock()
	c.cookies = resp.Cookies()
	c.joined = joined
	c.mu.Unlock()
	c.cfg.Logger.Printf("Joined room %s as %s", joined.RoomCode, joined.PlayerName)
	return joined, nil
}

func (c *Client) wsURL() string {
	u := *c.baseURL
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/game/ws"
	return u.String()
}

func (c *Client) cookieHeader() http.Header {
	c.mu.Lock()
	defer c.mu.Unlock()
	parts := make([]string, 0, len(c.cookies))
	for _, cookie := range c.cookies {
		parts = append(parts, cookie.Name+"="+cookie.Value)
	}
	h := http.Header{}
	h.Set("Cookie", strings.Join(parts, "; "))
	return h
}

// Run keeps the player connected until ctx is done. Lost connections are
// retried with exponential backoff; when the relay no longer recognizes
// the player, Run joins again. Run returns ctx.Err() on shutdown,
// ErrRoomGone when the room was deleted and ErrReplaced when the player
// connected from elsewhere.
func (c *Client) Run(ctx context.Context) error {
	delays := newBackoff(c.cfg.MinBackoff, c.cfg.MaxBackoff)
	for {
		served, err := c.connect(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		switch {
		case errors.Is(err, ErrReplaced), errors.Is(err, ErrRoomGone):
			return err
		case err != nil:
			c.cfg.Logger.Printf("Connection to %s lost: %v", c.cfg.Server, err)
		}
		if served {
			delays.Reset()
		}

		delay := delays.Next()
		if c.cfg.Debug {
			c.cfg.Logger.Printf("Reconnecting in %v", delay)
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// connect dials once and serves the connection until it fails. served
// reports whether the dial succeeded.
func (c *Client) connect(ctx context.Context) (served bool, err error) {
	conn, resp, err := websocket.Dial(ctx, c.wsURL(), &websocket.DialOptions{
		HTTPClient: c.http,
		HTTPHeader: c.cookieHeader(),
	})
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusForbidden {
			return false, c.rejoin(ctx)
		}
		return false, fmt.Errorf("dial: %w", err)
	}
	defer conn.CloseNow()

	c.connected.Store(true)
	defer c.connected.Store(false)
	c.cfg.Logger.Printf("Connected to %s", c.wsURL())

	err = c.serve(ctx, conn)
	var closeErr websocket.CloseError
	if errors.As(err, &closeErr) && closeErr.Reason == "connection replaced" {
		return true, ErrReplaced
	}
	return true, err
}

// rejoin joins the room again after the relay refused our cookies.
func (c *Client) rejoin(ctx context.Context) error {
	_, err := c.Join(ctx)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		return ErrRoomGone
	}
	return err
}

// serve runs the reader and the writer of one connection. The first one to
// fail stops the other.
func (c *Client) serve(ctx context.Context, conn *websocket.Conn) error {
	g, ctx := errgroup.WithContext(ctx)
	pongs := make(chan struct{}, 1)

	g.Go(func() error {
		for {
			readCtx, cancel := context.WithTimeout(ctx, readTimeout)
			var msg protocol.Message
			err := wsjson.Read(readCtx, conn, &msg)
			cancel()
			if err != nil {
				return err
			}
			if msg.Type == protocol.TypePing {
				select {
				case pongs <- struct{}{}:
				default:
				}
				continue
			}
			if c.cfg.Debug {
				c.cfg.Logger.Printf("Received %s", msg.Type)
			}
			select {
			case c.inbound <- msg:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	})

	g.Go(func() error {
		for {
			var msg protocol.Message
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-pongs:
				msg = protocol.Message{Type: protocol.TypePong}
			case msg = <-c.outbound:
			}
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(writeCtx, conn, msg)
			cancel()
			if err != nil {
				return fmt.Errorf("write %s: %w", msg.Type, err)
			}
		}
	})

	err := g.Wait()
	conn.Close(websocket.StatusNormalClosure, "")
	return err
}
