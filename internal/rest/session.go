// Package rest implements the REST half of a Mattermost session: instance URL
// handling, the bearer token and the request executor.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/luciancaetano/mmapi"
)

// HTTPClient represents the functionality we need from an *http.Client, or
// similar.
type HTTPClient interface {
	Do(*http.Request) (*http.Response, error)
}

// Config holds what a Session needs. Only InstanceURL and Credentials are
// required.
type Config struct {
	InstanceURL string
	Credentials mmapi.Credentials
	HTTPClient  HTTPClient
	Logger      logrus.FieldLogger
}

// Session is an authenticated view of one instance. REST calls may be issued
// concurrently; the token is the only mutable state.
type Session struct {
	instanceURL *url.URL
	creds       mmapi.Credentials
	httpClient  HTTPClient
	log         logrus.FieldLogger

	mu    sync.RWMutex
	token string
}

type loginRequest struct {
	LoginID  string `json:"login_id"`
	Password string `json:"password"`
}

// NewSession validates the instance URL and returns a Session. Token
// credentials make the token available immediately.
func NewSession(cfg *Config) (*Session, error) {
	u, err := ParseInstanceURL(cfg.InstanceURL)
	if err != nil {
		return nil, err
	}

	if !cfg.Credentials.Valid() {
		return nil, mmapi.ErrMissingCredentials
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Session{
		instanceURL: u,
		creds:       cfg.Credentials,
		httpClient:  httpClient,
		log:         logger,
		token:       cfg.Credentials.Token(),
	}, nil
}

// ParseInstanceURL parses and normalizes an instance URL. A URL without a
// path gets the API prefix appended; any other path is kept as given.
func ParseInstanceURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, &mmapi.Error{Kind: mmapi.KindConfig, Op: "parse instance URL", Err: err}
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, &mmapi.Error{
			Kind: mmapi.KindConfig,
			Op:   "parse instance URL",
			Err:  fmt.Errorf("unsupported scheme %q in %q", u.Scheme, raw),
		}
	}

	if u.Host == "" {
		return nil, &mmapi.Error{
			Kind: mmapi.KindConfig,
			Op:   "parse instance URL",
			Err:  fmt.Errorf("missing host in %q", raw),
		}
	}

	if u.Path == "" || u.Path == "/" {
		u.Path = mmapi.APIPath
		u.RawPath = ""
	}
	u.RawQuery, u.Fragment = "", ""

	return u, nil
}

// InstanceURL returns the normalized REST base URL.
func (s *Session) InstanceURL() string { return s.instanceURL.String() }

// WebsocketInstanceURL returns the base URL with a websocket scheme.
func (s *Session) WebsocketInstanceURL() string {
	u := *s.instanceURL
	u.Scheme = websocketScheme(u.Scheme)
	return u.String()
}

// EndpointURL joins endpoint under the base URL.
func (s *Session) EndpointURL(endpoint string) string {
	return s.endpointURL(endpoint).String()
}

// WebsocketURL returns the URL of the websocket endpoint.
func (s *Session) WebsocketURL() string {
	u := s.endpointURL(mmapi.WebsocketEndpoint)
	u.Scheme = websocketScheme(u.Scheme)
	return u.String()
}

// endpointURL cleans endpoint as a rooted path, so ".." can never climb out
// of the API prefix, then appends it to the base path. Anything after the
// first "?" is kept as the raw query.
func (s *Session) endpointURL(endpoint string) *url.URL {
	u := *s.instanceURL

	endpointPath, rawQuery, _ := strings.Cut(endpoint, "?")
	rel := path.Clean("/" + endpointPath)
	if rel == "/" {
		rel = ""
	} else {
		rel = rel[1:]
		if strings.HasSuffix(endpointPath, "/") {
			rel += "/"
		}
	}

	u.Path = strings.TrimSuffix(u.Path, "/") + "/" + rel
	u.RawPath = ""
	u.RawQuery = rawQuery
	return &u
}

func websocketScheme(scheme string) string {
	if scheme == "https" {
		return "wss"
	}
	return "ws"
}

// Credentials returns the credentials the session was built with.
func (s *Session) Credentials() mmapi.Credentials { return s.creds }

// AuthToken returns the bearer token, or "" when none is held.
func (s *Session) AuthToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Session) setAuthToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

// Logger returns the session logger.
func (s *Session) Logger() logrus.FieldLogger { return s.log }

// StoreSessionToken logs in with the login_id and password and stores the
// session token from the Token response header. It is a no-op for token
// credentials.
func (s *Session) StoreSessionToken(ctx context.Context) error {
	if s.creds.UsingToken() {
		s.log.Debug("Using personal access token; getting a session token is a no-op")
		return nil
	}

	op := http.MethodPost + " " + mmapi.LoginEndpoint
	s.log.WithField("login_id", s.creds.LoginID()).Debug("Getting a session token from login_id and password")

	payload, err := json.Marshal(loginRequest{
		LoginID:  s.creds.LoginID(),
		Password: s.creds.Password(),
	})
	if err != nil {
		return &mmapi.Error{Kind: mmapi.KindSerialization, Op: op, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.EndpointURL(mmapi.LoginEndpoint), bytes.NewReader(payload))
	if err != nil {
		return &mmapi.Error{Kind: mmapi.KindTransport, Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return &mmapi.Error{Kind: mmapi.KindTransport, Op: op, Err: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	token := resp.Header.Get(mmapi.TokenHeader)
	if token == "" {
		s.log.WithField("status", resp.StatusCode).Error("Login response did not carry a session token")
		return &mmapi.TokenError{StatusCode: resp.StatusCode}
	}

	s.setAuthToken(token)
	s.log.Debug("Session token retrieved and stored")
	return nil
}
