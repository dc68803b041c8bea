// Package mmtest provides a fake Mattermost server for tests: password login,
// bearer-token checked REST routes and a scripted websocket endpoint.
package mmtest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/luciancaetano/mmapi"
)

// OnConnectFn scripts a websocket session. It is called after the
// authentication frame has been read and answered. When it returns, the
// server keeps reading until the client goes away.
type OnConnectFn = func(conn *Conn)

// Config configures a Server.
type Config struct {
	// Token is issued on login and required on REST calls and in the
	// websocket authentication challenge.
	Token string

	// LoginID and Password are the only accepted credentials.
	LoginID  string
	Password string

	// OmitLoginToken makes a successful login answer without a Token header.
	OmitLoginToken bool

	OnConnect OnConnectFn
}

// Server is a fake Mattermost instance backed by httptest.
type Server struct {
	*httptest.Server

	cfg      Config
	mu       sync.RWMutex
	routes   map[string]http.HandlerFunc // "METHOD /api/v4/endpoint"
	upgrader websocket.Upgrader

	challenges chan string
	requests   chan *http.Request
}

// NewServer starts a Server. Call Close when done.
func NewServer(cfg Config) *Server {
	s := &Server{
		cfg:        cfg,
		routes:     make(map[string]http.HandlerFunc),
		challenges: make(chan string, 16),
		requests:   make(chan *http.Request, 64),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v4/users/login", s.handleLogin)
	mux.HandleFunc("/api/v4/websocket", s.handleWebSocket)
	mux.HandleFunc("/", s.handleRoute)

	s.Server = httptest.NewServer(mux)
	return s
}

// InstanceURL returns the instance root, without the API prefix.
func (s *Server) InstanceURL() string { return s.Server.URL }

// Handle registers a REST handler for method and an endpoint relative to
// /api/v4/. Requests without the configured bearer token never reach it.
func (s *Server) Handle(method, endpoint string, h http.HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routes[method+" "+mmapi.APIPath+strings.TrimPrefix(endpoint, "/")] = h
}

// HandleJSON registers a handler answering with status and body encoded as JSON.
func (s *Server) HandleJSON(method, endpoint string, status int, body any) {
	s.Handle(method, endpoint, func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, status, body)
	})
}

// Challenges yields the token of every authentication challenge received.
func (s *Server) Challenges() <-chan string { return s.challenges }

// Requests yields every REST request that passed authentication.
func (s *Server) Requests() <-chan *http.Request { return s.requests }

// WriteJSON writes body as a JSON response.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// AppError builds the server's structured error for status.
func AppError(id, message string, status int) *mmapi.APIError {
	return &mmapi.APIError{
		ID:         id,
		Message:    message,
		RequestID:  "fake-request-id",
		StatusCode: status,
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteJSON(w, http.StatusMethodNotAllowed, AppError("api.context.method_not_allowed", "Method not allowed", http.StatusMethodNotAllowed))
		return
	}

	var body struct {
		LoginID  string `json:"login_id"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		WriteJSON(w, http.StatusBadRequest, AppError("api.user.login.invalid_body", "Invalid body", http.StatusBadRequest))
		return
	}

	if body.LoginID != s.cfg.LoginID || body.Password != s.cfg.Password {
		WriteJSON(w, http.StatusUnauthorized, AppError("api.user.login.invalid_credentials_email_username", "Enter a valid email or username and/or password.", http.StatusUnauthorized))
		return
	}

	if !s.cfg.OmitLoginToken {
		w.Header().Set(mmapi.TokenHeader, s.cfg.Token)
	}
	WriteJSON(w, http.StatusOK, mmapi.User{ID: "user-1", Username: body.LoginID})
}

func (s *Server) authorized(r *http.Request) bool {
	return r.Header.Get("Authorization") == "Bearer "+s.cfg.Token
}

func (s *Server) handleRoute(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		WriteJSON(w, http.StatusUnauthorized, AppError("api.context.session_expired.app_error", "Invalid or expired session, please login again.", http.StatusUnauthorized))
		return
	}

	s.mu.RLock()
	h, ok := s.routes[r.Method+" "+r.URL.Path]
	s.mu.RUnlock()

	if !ok {
		WriteJSON(w, http.StatusNotFound, AppError("api.context.404.app_error", "Sorry, we could not find the page.", http.StatusNotFound))
		return
	}

	select {
	case s.requests <- r:
	default:
	}

	h(w, r)
}

// handleWebSocket handles incoming WebSocket connections
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	conn := newConn(ws)
	defer conn.ws.Close()

	ws.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := ws.ReadMessage()
	if err != nil {
		return
	}
	ws.SetReadDeadline(time.Time{})

	var challenge struct {
		Seq    int64  `json:"seq"`
		Action string `json:"action"`
		Data   struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	if err := json.Unmarshal(data, &challenge); err != nil || challenge.Action != mmapi.ActionAuthenticationChallenge {
		conn.Close(websocket.CloseProtocolError, "expected authentication challenge")
		return
	}

	select {
	case s.challenges <- challenge.Data.Token:
	default:
	}

	if challenge.Data.Token != s.cfg.Token {
		conn.SendReply(challenge.Seq, mmapi.ReplyStatusFail)
		conn.Close(websocket.ClosePolicyViolation, "authentication failed")
		return
	}

	conn.SendReply(challenge.Seq, mmapi.ReplyStatusOK)
	conn.SendEvent(mmapi.Event{Event: mmapi.EventHello, Data: json.RawMessage(`{"server_version":"fake"}`)})

	// Read in the background so control frames (pings) are answered while
	// the script runs.
	go conn.readLoop()

	if s.cfg.OnConnect != nil {
		s.cfg.OnConnect(conn)
	}

	<-conn.Done()
}

// Conn is the server side of one websocket session.
type Conn struct {
	ws    *websocket.Conn
	wmu   sync.Mutex
	seq   atomic.Int64
	pings atomic.Int32
	done  chan struct{}
}

func newConn(ws *websocket.Conn) *Conn {
	c := &Conn{ws: ws, done: make(chan struct{})}
	ws.SetPingHandler(func(appData string) error {
		c.pings.Add(1)
		return ws.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(time.Second))
	})
	return c
}

func (c *Conn) readLoop() {
	defer close(c.done)
	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			return
		}
	}
}

// Done is closed once the client is gone.
func (c *Conn) Done() <-chan struct{} { return c.done }

// Pings returns the number of pings received from the client.
func (c *Conn) Pings() int { return int(c.pings.Load()) }

// SendText writes a raw text frame.
func (c *Conn) SendText(text string) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	return c.ws.WriteMessage(websocket.TextMessage, []byte(text))
}

// SendBinary writes a binary frame.
func (c *Conn) SendBinary(data []byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	return c.ws.WriteMessage(websocket.BinaryMessage, data)
}

// SendEvent writes ev as a text frame. A zero Seq is replaced by the next
// sequence number of the connection.
func (c *Conn) SendEvent(ev mmapi.Event) error {
	if ev.Seq == 0 {
		ev.Seq = c.seq.Add(1) - 1
	}
	if ev.Data == nil {
		ev.Data = json.RawMessage(`{}`)
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return c.SendText(string(data))
}

// SendReply writes a seq_reply frame.
func (c *Conn) SendReply(seq int64, status string) error {
	data, err := json.Marshal(map[string]any{"status": status, "seq_reply": seq})
	if err != nil {
		return err
	}
	return c.SendText(string(data))
}

// Ping writes a ping control frame.
func (c *Conn) Ping() error {
	return c.ws.WriteControl(websocket.PingMessage, []byte("fake"), time.Now().Add(time.Second))
}

// Close sends a close frame with code and reason.
func (c *Conn) Close(code int, reason string) error {
	message := websocket.FormatCloseMessage(code, reason)
	return c.ws.WriteControl(websocket.CloseMessage, message, time.Now().Add(time.Second))
}

// Drop closes the network connection without a close frame.
func (c *Conn) Drop() error {
	return c.ws.UnderlyingConn().Close()
}

// WaitPings blocks until n pings were received or timeout passes.
func (c *Conn) WaitPings(n int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if c.Pings() >= n {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return c.Pings() >= n
}
