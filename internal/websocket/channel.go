package websocket

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/luciancaetano/mmapi"
	"github.com/luciancaetano/mmapi/internal/protocol"
)

const (
	// DefaultKeepAlive is the default interval between keep-alive pings.
	DefaultKeepAlive = 30 * time.Second

	// DefaultHandshakeTimeout bounds the websocket upgrade.
	DefaultHandshakeTimeout = 10 * time.Second

	writeWait      = 10 * time.Second
	maxMessageSize = 10 * 1024 * 1024

	// malformedLogInterval is the minimum time between two warnings about
	// malformed frames; every frame is still logged at debug level.
	malformedLogInterval = 10 * time.Second
)

// Config configures a Channel. URL, Token and Handler are required.
type Config struct {
	URL     string
	Token   string
	Handler mmapi.EventHandler

	// KeepAlive is the ping interval. Zero or negative disables pings.
	KeepAlive time.Duration

	// HandshakeTimeout bounds the upgrade when Dialer is nil.
	HandshakeTimeout time.Duration

	// Dialer overrides the default dialer.
	Dialer *websocket.Dialer

	Logger logrus.FieldLogger
}

// Channel implements mmapi.EventChannel
type Channel struct {
	id        string
	url       string
	token     string
	handler   mmapi.EventHandler
	keepAlive time.Duration
	dialer    *websocket.Dialer
	log       logrus.FieldLogger

	state   atomic.Int32
	started atomic.Bool

	malformedLog rate.Sometimes
	malformed    atomic.Int64 // malformed frames since the last warning
}

// inbound is one result of a read on the connection.
type inbound struct {
	messageType int
	data        []byte
	err         error
}

// NewChannel creates a Channel. Nothing is dialed until Run.
func NewChannel(cfg *Config) (*Channel, error) {
	if cfg.Token == "" {
		return nil, mmapi.ErrMissingAuthToken
	}

	if cfg.Handler == nil {
		return nil, mmapi.ErrMissingHandler
	}

	dialer := cfg.Dialer
	if dialer == nil {
		timeout := cfg.HandshakeTimeout
		if timeout <= 0 {
			timeout = DefaultHandshakeTimeout
		}
		dialer = &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: timeout,
		}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	id := uuid.New().String()

	return &Channel{
		id:           id,
		url:          cfg.URL,
		token:        cfg.Token,
		handler:      cfg.Handler,
		keepAlive:    cfg.KeepAlive,
		dialer:       dialer,
		log:          logger.WithFields(logrus.Fields{"conn_id": id, "url": cfg.URL}),
		malformedLog: rate.Sometimes{First: 1, Interval: malformedLogInterval},
	}, nil
}

// ID returns a unique identifier for the connection
func (c *Channel) ID() string {
	return c.id
}

// URL returns the websocket URL
func (c *Channel) URL() string {
	return c.url
}

// State returns the current lifecycle state
func (c *Channel) State() mmapi.ConnState {
	return mmapi.ConnState(c.state.Load())
}

func (c *Channel) setState(s mmapi.ConnState) {
	c.state.Store(int32(s))
	c.log.WithField("state", s.String()).Debug("Websocket state changed")
}

func (c *Channel) fail(op string, err error) error {
	c.setState(mmapi.StateFailed)
	c.log.WithError(err).WithField("op", op).Error("Websocket connection failed")
	return &mmapi.Error{Kind: mmapi.KindWebSocket, Op: op, Err: err}
}

// Run dials the server, authenticates and dispatches events until the
// connection ends.
func (c *Channel) Run(ctx context.Context) error {
	if !c.started.CompareAndSwap(false, true) {
		return mmapi.ErrChannelAlreadyUsed
	}

	c.setState(mmapi.StateHandshaking)
	conn, resp, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		if resp != nil {
			c.log.WithField("status", resp.StatusCode).Debug("Websocket upgrade rejected")
		}
		return c.fail("dial", err)
	}
	defer conn.Close()

	// The server answers the challenge with a seq_reply but does not require
	// the client to wait for it; a rejected token shows up as a close frame.
	c.setState(mmapi.StateAuthenticating)
	challenge, err := protocol.EncodeAuthChallenge(c.token)
	if err != nil {
		return c.fail("authenticate", err)
	}

	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, challenge); err != nil {
		return c.fail("authenticate", err)
	}
	conn.SetWriteDeadline(time.Time{})

	conn.SetReadLimit(maxMessageSize)
	conn.SetPingHandler(func(appData string) error {
		c.log.Debug("Websocket ping message")
		err := conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(writeWait))
		if errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		return err
	})
	conn.SetPongHandler(func(string) error {
		c.log.Debug("Websocket pong message")
		return nil
	})

	c.setState(mmapi.StateStreaming)

	frames := make(chan inbound)
	done := make(chan struct{})
	defer close(done)
	go c.readPump(conn, frames, done)

	var tick <-chan time.Time
	if c.keepAlive > 0 {
		ticker := time.NewTicker(c.keepAlive)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case in := <-frames:
			if in.err != nil {
				// 1006 is never sent on the wire: gorilla reports it when the
				// stream ends without a close frame.
				var closeErr *websocket.CloseError
				if errors.As(in.err, &closeErr) && closeErr.Code != websocket.CloseAbnormalClosure {
					c.setState(mmapi.StateClosing)
					c.log.WithFields(logrus.Fields{
						"code":   closeErr.Code,
						"reason": closeErr.Text,
					}).Info("Websocket closed by server")
					c.setState(mmapi.StateClosed)
					return nil
				}
				return c.fail("read", in.err)
			}
			c.dispatch(ctx, in.messageType, in.data)

		case <-tick:
			// Send ping to keep connection alive
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				c.log.WithError(err).Warn("Could not send keep-alive ping")
			}

		case <-ctx.Done():
			c.setState(mmapi.StateClosing)
			message := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			conn.WriteControl(websocket.CloseMessage, message, time.Now().Add(time.Second))
			c.setState(mmapi.StateClosed)
			return ctx.Err()
		}
	}
}

// readPump forwards every read result to the run loop until the first error.
func (c *Channel) readPump(conn *websocket.Conn, frames chan<- inbound, done <-chan struct{}) {
	for {
		messageType, data, err := conn.ReadMessage()
		select {
		case frames <- inbound{messageType: messageType, data: data, err: err}:
		case <-done:
			return
		}
		if err != nil {
			return
		}
	}
}

// dispatch hands text frames that are events to the handler. Replies and
// binary frames are dropped.
func (c *Channel) dispatch(ctx context.Context, messageType int, data []byte) {
	if messageType != websocket.TextMessage {
		c.log.WithField("bytes", len(data)).Debug("Websocket binary message")
		return
	}

	frame, err := protocol.Decode(data)
	if err != nil {
		c.reportMalformed(err)
		return
	}

	if reply := frame.Reply; reply != nil {
		log := c.log.WithFields(logrus.Fields{"seq_reply": reply.SeqReply, "status": reply.Status})
		if reply.Failed() {
			if reply.Error != nil {
				log = log.WithError(reply.Error)
			}
			log.Warn("Websocket request was rejected")
			return
		}
		log.Debug("Websocket reply")
		return
	}

	c.handler.HandleEvent(ctx, frame.Event)
}

func (c *Channel) reportMalformed(err error) {
	n := c.malformed.Add(1)
	c.log.WithError(err).Debug("Could not parse websocket event JSON")
	c.malformedLog.Do(func() {
		c.log.WithError(err).WithField("count", n).Error("Could not parse websocket event JSON")
		c.malformed.Store(0)
	})
}
