package mmapi

import (
	"context"
	"net/url"
)

// Client is a session against one Mattermost instance. It holds the
// credentials, the bearer token and the HTTP transport, and issues REST calls
// and websocket connections with that token.
//
// Example usage:
//
//	import "github.com/luciancaetano/mmapi/mm"
//
//	creds := mmapi.PasswordCredentials("you@example.com", "password")
//	client, err := mm.New(mm.NewConfig("https://chat.example.com", creds))
//	if err != nil {
//	    return err
//	}
//	if err := client.StoreSessionToken(ctx); err != nil {
//	    return err
//	}
//	team, err := client.GetTeamByName(ctx, "engineering")
type Client interface {
	// InstanceURL returns the normalized REST base URL, e.g.
	// "https://chat.example.com/api/v4/".
	InstanceURL() string

	// WebsocketInstanceURL returns InstanceURL with its scheme swapped to ws or wss.
	WebsocketInstanceURL() string

	// EndpointURL joins endpoint under InstanceURL. A leading slash on endpoint
	// is ignored; the API prefix is never duplicated or escaped.
	EndpointURL(endpoint string) string

	// AuthToken returns the bearer token, or "" when none is held yet.
	AuthToken() string

	// StoreSessionToken exchanges the login_id and password for a session token
	// and stores it. It does nothing for token credentials.
	//
	// Returns a *TokenError when the login response carries no Token header.
	// Calling it again re-runs the login.
	StoreSessionToken(ctx context.Context) error

	// Query makes a raw request against the REST API and decodes the JSON
	// response into out. out may be nil to discard the body. endpoint may
	// carry its own query string; values in query are added to it.
	//
	// A non-2xx response is returned as an *APIError when the body holds the
	// server's structured error, and as a *StatusError otherwise. Local
	// failures are returned as *Error values classified by Kind.
	//
	// Prefer the typed endpoint methods; Query exists for endpoints this
	// package does not cover.
	//
	// Example:
	//
	//	var status map[string]any
	//	err := client.Query(ctx, http.MethodGet, "system/ping", nil, nil, &status)
	Query(ctx context.Context, method, endpoint string, query url.Values, body []byte, out any) error

	// Post encodes body as JSON and POSTs it to endpoint, decoding the response
	// into out. Errors follow Query.
	Post(ctx context.Context, endpoint string, body, out any) error

	// GetTeam returns a team by ID.
	GetTeam(ctx context.Context, id string) (*Team, error)

	// GetTeamByName returns a team by its name.
	GetTeamByName(ctx context.Context, name string) (*Team, error)

	// GetTeams lists teams that are open or, with the "manage_system"
	// permission, all teams.
	GetTeams(ctx context.Context) ([]Team, error)

	// GetTeamUnreadsFor returns unread and mention counts for every team the
	// user belongs to.
	GetTeamUnreadsFor(ctx context.Context, userID string) ([]TeamUnread, error)

	// GetTeamUnreadsForIn returns unread and mention counts of the user in one
	// team. Requires "read_channel" or "edit_other_users".
	GetTeamUnreadsForIn(ctx context.Context, userID, teamID string) (*TeamUnread, error)

	// GetAllChannels lists every channel on the instance. Requires
	// "manage_system".
	GetAllChannels(ctx context.Context, opts ChannelListOptions) ([]Channel, error)

	// GetChannel returns a channel by ID. Requires "read_channel".
	GetChannel(ctx context.Context, channelID string) (*Channel, error)

	// GetPublicChannels lists the public channels of a team. Requires
	// "list_team_channels".
	GetPublicChannels(ctx context.Context, teamID string) ([]Channel, error)

	// GetMe returns the authenticated user.
	GetMe(ctx context.Context) (*User, error)

	// GetUser returns a user by ID.
	GetUser(ctx context.Context, userID string) (*User, error)

	// CreatePost creates a post and returns it as stored by the server.
	CreatePost(ctx context.Context, post *Post) (*Post, error)

	// GetPost returns a post by ID.
	GetPost(ctx context.Context, postID string) (*Post, error)

	// NewEventChannel prepares a websocket connection delivering events to
	// handler. Nothing is dialed until Run is called.
	//
	// Returns ErrMissingAuthToken when no bearer token is held.
	NewEventChannel(handler EventHandler) (EventChannel, error)

	// ConnectToWebsocket is NewEventChannel followed by Run. It blocks until
	// the server closes the connection (nil), the transport fails, or ctx is
	// cancelled.
	//
	// Example:
	//
	//	err := client.ConnectToWebsocket(ctx, mmapi.EventHandlerFunc(func(ctx context.Context, ev *mmapi.Event) {
	//	    log.Printf("%s on %s", ev.Event, ev.Broadcast.ChannelID)
	//	}))
	ConnectToWebsocket(ctx context.Context, handler EventHandler) error
}

// EventChannel is one websocket connection to the instance.
//
// It runs a single receive loop and is not safe for concurrent use. After Run
// returns, the channel is spent; build a new one to reconnect.
type EventChannel interface {
	// ID returns a unique identifier of the connection, used in logs.
	ID() string

	// URL returns the websocket URL the channel dials.
	URL() string

	// State returns the current lifecycle state.
	State() ConnState

	// Run dials, sends the authentication challenge and dispatches events to
	// the handler until the connection ends.
	//
	// Returns nil when the server sends a close frame, the context error when
	// ctx is cancelled, and a KindWebSocket *Error on transport failure.
	// Malformed frames and failed keep-alive pings are logged, not returned.
	Run(ctx context.Context) error
}

// EventHandler receives websocket events in arrival order. HandleEvent is
// called from the receive loop; a slow handler delays the next event.
type EventHandler interface {
	HandleEvent(ctx context.Context, event *Event)
}

// EventHandlerFunc adapts a function to EventHandler.
type EventHandlerFunc func(ctx context.Context, event *Event)

// HandleEvent calls f.
func (f EventHandlerFunc) HandleEvent(ctx context.Context, event *Event) { f(ctx, event) }

// ConnState is the lifecycle state of an EventChannel.
type ConnState int32

const (
	StateDisconnected ConnState = iota
	StateHandshaking
	StateAuthenticating
	StateStreaming
	StateClosing
	StateClosed
	StateFailed
)

// String returns the state name.
func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateHandshaking:
		return "handshaking"
	case StateAuthenticating:
		return "authenticating"
	case StateStreaming:
		return "streaming"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}
