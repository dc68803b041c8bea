package websocket

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luciancaetano/mmapi"
	"github.com/luciancaetano/mmapi/internal/mmtest"
)

const testToken = "test-token"

// recorder collects the events delivered to it, in order.
type recorder struct {
	mu     sync.Mutex
	events []*mmapi.Event
}

func (r *recorder) HandleEvent(_ context.Context, ev *mmapi.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) types() []mmapi.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]mmapi.EventType, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Event)
	}
	return out
}

func websocketURL(srv *mmtest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + mmapi.APIPath + mmapi.WebsocketEndpoint
}

func newTestChannel(t *testing.T, srv *mmtest.Server, token string, handler mmapi.EventHandler, keepAlive time.Duration) (*Channel, *test.Hook) {
	t.Helper()

	logger, hook := test.NewNullLogger()
	ch, err := NewChannel(&Config{
		URL:       websocketURL(srv),
		Token:     token,
		Handler:   handler,
		KeepAlive: keepAlive,
		Logger:    logger,
	})
	require.NoError(t, err)
	return ch, hook
}

func runWithTimeout(t *testing.T, ch *Channel, timeout time.Duration) error {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	err := ch.Run(ctx)
	require.NotErrorIs(t, err, context.DeadlineExceeded, "Run did not return before the timeout")
	return err
}

func hasEntry(hook *test.Hook, level logrus.Level, message string) bool {
	for _, entry := range hook.AllEntries() {
		if entry.Level == level && entry.Message == message {
			return true
		}
	}
	return false
}

func TestNewChannel(t *testing.T) {
	t.Parallel()

	handler := &recorder{}

	t.Run("missing token", func(t *testing.T) {
		t.Parallel()
		_, err := NewChannel(&Config{URL: "ws://localhost/api/v4/websocket", Handler: handler})
		assert.ErrorIs(t, err, mmapi.ErrMissingAuthToken)
	})

	t.Run("missing handler", func(t *testing.T) {
		t.Parallel()
		_, err := NewChannel(&Config{URL: "ws://localhost/api/v4/websocket", Token: testToken})
		assert.ErrorIs(t, err, mmapi.ErrMissingHandler)
	})

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()
		ch, err := NewChannel(&Config{URL: "ws://localhost/api/v4/websocket", Token: testToken, Handler: handler})
		require.NoError(t, err)

		_, err = uuid.Parse(ch.ID())
		assert.NoError(t, err, "ID should be a UUID")
		assert.Equal(t, "ws://localhost/api/v4/websocket", ch.URL())
		assert.Equal(t, mmapi.StateDisconnected, ch.State())
		assert.Equal(t, DefaultHandshakeTimeout, ch.dialer.HandshakeTimeout)
	})
}

// TestChannelIDsAreUnique tests that each channel has a unique ID
func TestChannelIDsAreUnique(t *testing.T) {
	t.Parallel()

	ids := make(map[string]bool)
	for i := 0; i < 100; i++ {
		ch, err := NewChannel(&Config{URL: "ws://localhost", Token: testToken, Handler: &recorder{}})
		require.NoError(t, err)
		if ids[ch.ID()] {
			t.Fatalf("duplicate ID generated: %s", ch.ID())
		}
		ids[ch.ID()] = true
	}
}

func TestRunDeliversEventsInOrder(t *testing.T) {
	t.Parallel()

	srv := mmtest.NewServer(mmtest.Config{
		Token: testToken,
		OnConnect: func(conn *mmtest.Conn) {
			conn.SendEvent(mmapi.Event{Event: mmapi.EventPosted})
			conn.SendReply(5, mmapi.ReplyStatusOK)
			conn.SendText(`{"event":"posted","status":"OK","seq_reply":null}`)
			conn.SendText(`{"this is": not json`)
			conn.SendText(`{"data":{}}`)
			conn.SendBinary([]byte{0x01, 0x02})
			conn.SendEvent(mmapi.Event{Event: mmapi.EventTyping, Broadcast: mmapi.Broadcast{ChannelID: "c1"}})
			conn.SendEvent(mmapi.Event{Event: "custom_plugin_event"})
			conn.Close(websocket.CloseNormalClosure, "bye")
		},
	})
	defer srv.Close()

	handler := &recorder{}
	ch, hook := newTestChannel(t, srv, testToken, handler, 0)

	err := runWithTimeout(t, ch, 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, mmapi.StateClosed, ch.State())

	assert.Equal(t, []mmapi.EventType{
		mmapi.EventHello,
		mmapi.EventPosted,
		mmapi.EventTyping,
		"custom_plugin_event",
	}, handler.types())

	handler.mu.Lock()
	typing := handler.events[2]
	handler.mu.Unlock()
	assert.Equal(t, "c1", typing.Broadcast.ChannelID)

	assert.True(t, hasEntry(hook, logrus.ErrorLevel, "Could not parse websocket event JSON"))
	assert.True(t, hasEntry(hook, logrus.InfoLevel, "Websocket closed by server"))
}

func TestRunSendsAuthChallenge(t *testing.T) {
	t.Parallel()

	srv := mmtest.NewServer(mmtest.Config{
		Token: testToken,
		OnConnect: func(conn *mmtest.Conn) {
			conn.Close(websocket.CloseNormalClosure, "")
		},
	})
	defer srv.Close()

	ch, _ := newTestChannel(t, srv, testToken, &recorder{}, 0)
	require.NoError(t, runWithTimeout(t, ch, 5*time.Second))

	select {
	case token := <-srv.Challenges():
		assert.Equal(t, testToken, token)
	case <-time.After(time.Second):
		t.Fatal("server did not receive an authentication challenge")
	}
}

func TestRunRejectedToken(t *testing.T) {
	t.Parallel()

	srv := mmtest.NewServer(mmtest.Config{Token: testToken})
	defer srv.Close()

	handler := &recorder{}
	ch, hook := newTestChannel(t, srv, "wrong-token", handler, 0)

	// A close frame, whatever its code, ends the channel cleanly.
	err := runWithTimeout(t, ch, 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, mmapi.StateClosed, ch.State())
	assert.Empty(t, handler.types())
	assert.True(t, hasEntry(hook, logrus.WarnLevel, "Websocket request was rejected"))
}

func TestRunConnectionDropped(t *testing.T) {
	t.Parallel()

	srv := mmtest.NewServer(mmtest.Config{
		Token: testToken,
		OnConnect: func(conn *mmtest.Conn) {
			conn.SendEvent(mmapi.Event{Event: mmapi.EventPosted})
			time.Sleep(50 * time.Millisecond)
			conn.Drop()
		},
	})
	defer srv.Close()

	handler := &recorder{}
	ch, _ := newTestChannel(t, srv, testToken, handler, 0)

	err := runWithTimeout(t, ch, 5*time.Second)
	require.Error(t, err)
	assert.True(t, mmapi.IsKind(err, mmapi.KindWebSocket))
	assert.Equal(t, mmapi.StateFailed, ch.State())
	assert.Equal(t, []mmapi.EventType{mmapi.EventHello, mmapi.EventPosted}, handler.types())

	// gorilla reports the missing close frame as an abnormal closure
	var closeErr *websocket.CloseError
	require.True(t, errors.As(err, &closeErr), "got %v", err)
	assert.Equal(t, websocket.CloseAbnormalClosure, closeErr.Code)
}

func TestRunDialFailure(t *testing.T) {
	t.Parallel()

	srv := mmtest.NewServer(mmtest.Config{Token: testToken})
	url := websocketURL(srv)
	srv.Close()

	ch, err := NewChannel(&Config{URL: url, Token: testToken, Handler: &recorder{}, Logger: logrus.New()})
	require.NoError(t, err)

	err = runWithTimeout(t, ch, 5*time.Second)
	require.Error(t, err)

	var mmErr *mmapi.Error
	require.True(t, errors.As(err, &mmErr))
	assert.Equal(t, mmapi.KindWebSocket, mmErr.Kind)
	assert.Equal(t, "dial", mmErr.Op)
	assert.Equal(t, mmapi.StateFailed, ch.State())
}

func TestRunKeepAlive(t *testing.T) {
	t.Parallel()

	pinged := make(chan bool, 1)
	srv := mmtest.NewServer(mmtest.Config{
		Token: testToken,
		OnConnect: func(conn *mmtest.Conn) {
			pinged <- conn.WaitPings(3, 3*time.Second)
			conn.Close(websocket.CloseNormalClosure, "")
		},
	})
	defer srv.Close()

	ch, _ := newTestChannel(t, srv, testToken, &recorder{}, 20*time.Millisecond)
	require.NoError(t, runWithTimeout(t, ch, 5*time.Second))
	assert.True(t, <-pinged, "expected at least 3 keep-alive pings")
}

func TestRunAnswersServerPings(t *testing.T) {
	t.Parallel()

	srv := mmtest.NewServer(mmtest.Config{
		Token: testToken,
		OnConnect: func(conn *mmtest.Conn) {
			conn.Ping()
			conn.SendEvent(mmapi.Event{Event: mmapi.EventStatusChange})
			conn.Close(websocket.CloseNormalClosure, "")
		},
	})
	defer srv.Close()

	handler := &recorder{}
	ch, _ := newTestChannel(t, srv, testToken, handler, 0)
	require.NoError(t, runWithTimeout(t, ch, 5*time.Second))
	assert.Equal(t, []mmapi.EventType{mmapi.EventHello, mmapi.EventStatusChange}, handler.types())
}

func TestRunContextCancellation(t *testing.T) {
	t.Parallel()

	srv := mmtest.NewServer(mmtest.Config{Token: testToken})
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Cancel once the hello event shows the connection is streaming.
	handler := mmapi.EventHandlerFunc(func(_ context.Context, ev *mmapi.Event) {
		if ev.Event == mmapi.EventHello {
			cancel()
		}
	})
	ch, _ := newTestChannel(t, srv, testToken, handler, 0)

	errc := make(chan error, 1)
	go func() { errc <- ch.Run(ctx) }()

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, mmapi.StateClosed, ch.State())
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

func TestRunOnlyOnce(t *testing.T) {
	t.Parallel()

	srv := mmtest.NewServer(mmtest.Config{
		Token: testToken,
		OnConnect: func(conn *mmtest.Conn) {
			conn.Close(websocket.CloseNormalClosure, "")
		},
	})
	defer srv.Close()

	ch, _ := newTestChannel(t, srv, testToken, &recorder{}, 0)
	require.NoError(t, runWithTimeout(t, ch, 5*time.Second))

	err := ch.Run(context.Background())
	assert.ErrorIs(t, err, mmapi.ErrChannelAlreadyUsed)
	assert.Equal(t, mmapi.StateClosed, ch.State())
}

// failingConn lets writes through until fail is set.
type failingConn struct {
	net.Conn
	fail *atomic.Bool
}

func (c *failingConn) Write(p []byte) (int, error) {
	if c.fail.Load() {
		return 0, errors.New("write refused")
	}
	return c.Conn.Write(p)
}

func TestRunSurvivesFailedPings(t *testing.T) {
	t.Parallel()

	connected := make(chan *mmtest.Conn, 1)
	srv := mmtest.NewServer(mmtest.Config{
		Token:     testToken,
		OnConnect: func(conn *mmtest.Conn) { connected <- conn },
	})
	defer srv.Close()

	var fail atomic.Bool
	dialer := &websocket.Dialer{
		HandshakeTimeout: DefaultHandshakeTimeout,
		NetDialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			var d net.Dialer
			conn, err := d.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			return &failingConn{Conn: conn, fail: &fail}, nil
		},
	}

	logger, hook := test.NewNullLogger()
	handler := &recorder{}
	ch, err := NewChannel(&Config{
		URL:       websocketURL(srv),
		Token:     testToken,
		Handler:   handler,
		KeepAlive: 20 * time.Millisecond,
		Dialer:    dialer,
		Logger:    logger,
	})
	require.NoError(t, err)

	errc := make(chan error, 1)
	go func() { errc <- ch.Run(context.Background()) }()

	var conn *mmtest.Conn
	select {
	case conn = <-connected:
	case <-time.After(5 * time.Second):
		t.Fatal("channel never authenticated")
	}

	// The challenge is already written; from here on every ping fails.
	fail.Store(true)
	require.Eventually(t, func() bool {
		return hasEntry(hook, logrus.WarnLevel, "Could not send keep-alive ping")
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, mmapi.StateStreaming, ch.State())

	require.NoError(t, conn.SendEvent(mmapi.Event{Event: mmapi.EventPosted}))
	require.NoError(t, conn.Close(websocket.CloseNormalClosure, ""))

	select {
	case err := <-errc:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after the close frame")
	}
	assert.Equal(t, mmapi.StateClosed, ch.State())
	assert.Equal(t, []mmapi.EventType{mmapi.EventHello, mmapi.EventPosted}, handler.types())
}
