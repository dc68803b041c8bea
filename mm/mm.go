// Package mm builds mmapi clients.
package mm

import (
	"context"
	"net/http"
	"time"

	gorillaws "github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/luciancaetano/mmapi"
	"github.com/luciancaetano/mmapi/internal/rest"
	"github.com/luciancaetano/mmapi/internal/websocket"
)

const (
	// DefaultKeepAlive is the default interval between websocket pings.
	DefaultKeepAlive = websocket.DefaultKeepAlive

	// DefaultHandshakeTimeout bounds the websocket upgrade.
	DefaultHandshakeTimeout = websocket.DefaultHandshakeTimeout

	// DefaultHTTPTimeout is the timeout of the default HTTP client.
	DefaultHTTPTimeout = 30 * time.Second
)

// HTTPClient represents the functionality we need from an *http.Client.
type HTTPClient = rest.HTTPClient

// Config configures a client. Build it with NewConfig to get the defaults.
type Config struct {
	// InstanceURL is the root URL of the instance, e.g.
	// "https://chat.example.com". A URL without a path gets /api/v4/.
	InstanceURL string

	Credentials mmapi.Credentials

	// HTTPClient performs REST calls. Nil uses a client with DefaultHTTPTimeout.
	HTTPClient HTTPClient

	// KeepAlive is the websocket ping interval; zero disables pings.
	KeepAlive time.Duration

	// HandshakeTimeout bounds the websocket upgrade.
	HandshakeTimeout time.Duration

	// Dialer overrides the websocket dialer, e.g. for custom TLS settings.
	Dialer *gorillaws.Dialer

	// Logger receives the client's logs. Nil uses logrus' standard logger.
	Logger logrus.FieldLogger
}

// NewConfig returns a Config with default timeouts and keep-alive.
//
// Example:
//
//	cfg := mm.NewConfig("https://chat.example.com", mmapi.TokenCredentials(token))
//	cfg.KeepAlive = 15 * time.Second
//	client, err := mm.New(cfg)
func NewConfig(instanceURL string, creds mmapi.Credentials) *Config {
	return &Config{
		InstanceURL:      instanceURL,
		Credentials:      creds,
		HTTPClient:       &http.Client{Timeout: DefaultHTTPTimeout},
		KeepAlive:        DefaultKeepAlive,
		HandshakeTimeout: DefaultHandshakeTimeout,
	}
}

var _ mmapi.Client = (*client)(nil)

// client implements mmapi.Client on top of a REST session.
type client struct {
	*rest.Session

	keepAlive        time.Duration
	handshakeTimeout time.Duration
	dialer           *gorillaws.Dialer
}

// New creates a client. It fails when the instance URL is malformed or the
// credentials were not built with mmapi.PasswordCredentials or
// mmapi.TokenCredentials.
func New(cfg *Config) (mmapi.Client, error) {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultHTTPTimeout}
	}

	session, err := rest.NewSession(&rest.Config{
		InstanceURL: cfg.InstanceURL,
		Credentials: cfg.Credentials,
		HTTPClient:  httpClient,
		Logger:      cfg.Logger,
	})
	if err != nil {
		return nil, err
	}

	return &client{
		Session:          session,
		keepAlive:        cfg.KeepAlive,
		handshakeTimeout: cfg.HandshakeTimeout,
		dialer:           cfg.Dialer,
	}, nil
}

// NewEventChannel prepares a websocket connection using the current token.
func (c *client) NewEventChannel(handler mmapi.EventHandler) (mmapi.EventChannel, error) {
	ch, err := websocket.NewChannel(&websocket.Config{
		URL:              c.WebsocketURL(),
		Token:            c.AuthToken(),
		Handler:          handler,
		KeepAlive:        c.keepAlive,
		HandshakeTimeout: c.handshakeTimeout,
		Dialer:           c.dialer,
		Logger:           c.Logger(),
	})
	if err != nil {
		return nil, err
	}
	return ch, nil
}

// ConnectToWebsocket runs a new event channel until it ends.
func (c *client) ConnectToWebsocket(ctx context.Context, handler mmapi.EventHandler) error {
	ch, err := c.NewEventChannel(handler)
	if err != nil {
		return err
	}
	return ch.Run(ctx)
}
