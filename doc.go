// Package mmapi is a client for the Mattermost REST (v4) and WebSocket APIs.
//
// A Client authenticates with either a login_id and password or a personal
// access token, issues typed REST calls with the resulting bearer token, and
// opens websocket connections that deliver events to a handler you supply.
//
// # Quick Start
//
//	import (
//	    "github.com/luciancaetano/mmapi"
//	    "github.com/luciancaetano/mmapi/mm"
//	)
//
//	creds := mmapi.PasswordCredentials("you@example.com", "password")
//	client, err := mm.New(mm.NewConfig("https://chat.example.com", creds))
//	if err != nil {
//	    return err
//	}
//
//	// Exchange the password for a session token (no-op for access tokens)
//	if err := client.StoreSessionToken(ctx); err != nil {
//	    return err
//	}
//
//	team, err := client.GetTeamByName(ctx, "engineering")
//
//	// Stream events until the server closes the connection
//	err = client.ConnectToWebsocket(ctx, mmapi.EventHandlerFunc(func(ctx context.Context, ev *mmapi.Event) {
//	    if ev.Event == mmapi.EventPosted {
//	        // ...
//	    }
//	}))
//
// # URLs
//
// The instance URL is normalized once: a URL without a path gets /api/v4/
// appended, any other path is kept as given. Every endpoint is joined under
// that prefix, and the websocket URL is the same prefix with the scheme
// swapped (http to ws, https to wss) plus "websocket".
//
// # Errors
//
// REST failures are returned as distinct values:
//
//   - ErrMissingAuthToken: no token is held yet
//   - *TokenError: the login response had no Token header
//   - *APIError: a non-2xx response with the server's structured error body
//   - *StatusError: a non-2xx response with any other body
//   - *Error: a local failure, classified by Kind (config, transport, header,
//     method, serialization, websocket)
//
// # Websocket Lifecycle
//
// An EventChannel dials, sends the authentication challenge as its first
// frame, then reads frames until the connection ends. It does not wait for
// the server to acknowledge the challenge: a rejected token shows up as a
// close frame.
//
//   - Events are delivered to the handler in arrival order
//   - Replies to client frames (seq_reply) are not delivered
//   - Malformed frames are logged and skipped
//   - A ping is sent every KeepAlive interval (30s by default); a failed ping
//     is logged and does not end the connection
//   - A close frame ends Run with a nil error; a transport failure ends it
//     with a KindWebSocket *Error
//
// There is no reconnection. After Run returns, build a new EventChannel.
package mmapi
