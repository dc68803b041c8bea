package mmapi

// EventType is the name of a websocket event sent by the server. Values not
// listed below are still delivered; Known reports whether the client
// recognizes the name.
type EventType string

// Websocket event names.
const (
	EventAddedToTeam             EventType = "added_to_team"
	EventAuthenticationChallenge EventType = "authentication_challenge"
	EventChannelConverted        EventType = "channel_converted"
	EventChannelCreated          EventType = "channel_created"
	EventChannelDeleted          EventType = "channel_deleted"
	EventChannelMemberUpdated    EventType = "channel_member_updated"
	EventChannelUpdated          EventType = "channel_updated"
	EventChannelViewed           EventType = "channel_viewed"
	EventConfigChanged           EventType = "config_changed"
	EventDeleteTeam              EventType = "delete_team"
	EventDirectAdded             EventType = "direct_added"
	EventEmojiAdded              EventType = "emoji_added"
	EventEphemeralMessage        EventType = "ephemeral_message"
	EventGroupAdded              EventType = "group_added"
	EventHello                   EventType = "hello"
	EventLeaveTeam               EventType = "leave_team"
	EventLicenseChanged          EventType = "license_changed"
	EventMemberRoleUpdated       EventType = "memberrole_updated"
	EventNewUser                 EventType = "new_user"
	EventPluginDisabled          EventType = "plugin_disabled"
	EventPluginEnabled           EventType = "plugin_enabled"
	EventPluginStatusesChanged   EventType = "plugin_statuses_changed"
	EventPostDeleted             EventType = "post_deleted"
	EventPostEdited              EventType = "post_edited"
	EventPostUnread              EventType = "post_unread"
	EventPosted                  EventType = "posted"
	EventPreferenceChanged       EventType = "preference_changed"
	EventPreferencesChanged      EventType = "preferences_changed"
	EventPreferencesDeleted      EventType = "preferences_deleted"
	EventReactionAdded           EventType = "reaction_added"
	EventReactionRemoved         EventType = "reaction_removed"
	EventResponse                EventType = "response"
	EventRoleUpdated             EventType = "role_updated"
	EventStatusChange            EventType = "status_change"
	EventTyping                  EventType = "typing"
	EventUpdateTeam              EventType = "update_team"
	EventUserAdded               EventType = "user_added"
	EventUserRemoved             EventType = "user_removed"
	EventUserRoleUpdated         EventType = "user_role_updated"
	EventUserUpdated             EventType = "user_updated"
	EventDialogOpened            EventType = "dialog_opened"
	EventThreadUpdated           EventType = "thread_updated"
	EventThreadFollowChanged     EventType = "thread_follow_changed"
	EventThreadReadChanged       EventType = "thread_read_changed"
)

var knownEvents = map[EventType]struct{}{
	EventAddedToTeam: {}, EventAuthenticationChallenge: {}, EventChannelConverted: {},
	EventChannelCreated: {}, EventChannelDeleted: {}, EventChannelMemberUpdated: {},
	EventChannelUpdated: {}, EventChannelViewed: {}, EventConfigChanged: {},
	EventDeleteTeam: {}, EventDirectAdded: {}, EventEmojiAdded: {},
	EventEphemeralMessage: {}, EventGroupAdded: {}, EventHello: {},
	EventLeaveTeam: {}, EventLicenseChanged: {}, EventMemberRoleUpdated: {},
	EventNewUser: {}, EventPluginDisabled: {}, EventPluginEnabled: {},
	EventPluginStatusesChanged: {}, EventPostDeleted: {}, EventPostEdited: {},
	EventPostUnread: {}, EventPosted: {}, EventPreferenceChanged: {},
	EventPreferencesChanged: {}, EventPreferencesDeleted: {}, EventReactionAdded: {},
	EventReactionRemoved: {}, EventResponse: {}, EventRoleUpdated: {},
	EventStatusChange: {}, EventTyping: {}, EventUpdateTeam: {},
	EventUserAdded: {}, EventUserRemoved: {}, EventUserRoleUpdated: {},
	EventUserUpdated: {}, EventDialogOpened: {}, EventThreadUpdated: {},
	EventThreadFollowChanged: {}, EventThreadReadChanged: {},
}

// Known reports whether t is one of the event names listed in this package.
func (t EventType) Known() bool {
	_, ok := knownEvents[t]
	return ok
}

// String returns the raw event name.
func (t EventType) String() string { return string(t) }

// Websocket actions sent by the client.
const (
	// ActionAuthenticationChallenge authenticates the connection with a bearer token.
	ActionAuthenticationChallenge = "authentication_challenge"

	// AuthenticationSeq is the sequence number of the authentication frame,
	// always the first frame sent on a connection.
	AuthenticationSeq int64 = 1
)

// Reply statuses reported in seq_reply frames.
const (
	ReplyStatusOK   = "OK"
	ReplyStatusFail = "FAIL"
)

// API path segments.
const (
	// APIPath is appended to an instance URL that has no path of its own.
	APIPath = "/api/v4/"

	// LoginEndpoint exchanges a login_id and password for a session token.
	LoginEndpoint = "users/login"

	// WebsocketEndpoint is the websocket path under the API prefix.
	WebsocketEndpoint = "websocket"

	// TokenHeader carries the session token in the login response.
	TokenHeader = "Token"

	// RequestIDHeader correlates a request with server logs.
	RequestIDHeader = "X-Request-ID"
)

// Standard error messages
const (
	// Authentication errors
	ErrMsgMissingAuthToken   = "no token was supplied or retrieved"
	ErrMsgCouldNotGetToken   = "could not turn login_id and password into a session token"
	ErrMsgMissingCredentials = "credentials must hold either a login_id and password or an access token"

	// Configuration errors
	ErrMsgInvalidInstanceURL = "invalid instance URL"

	// Transport and protocol errors
	ErrMsgInvalidMethod      = "invalid HTTP method"
	ErrMsgInvalidHeader      = "invalid HTTP header value"
	ErrMsgRequestFailed      = "HTTP request failed"
	ErrMsgJSONProcessing     = "JSON processing error"
	ErrMsgNonStandardStatus  = "non-standard remote status code error"
	ErrMsgWebsocket          = "websocket connection error"
	ErrMsgMalformedEvent     = "malformed websocket event"
	ErrMsgChannelAlreadyUsed = "event channel already ran; create a new one to reconnect"
	ErrMsgMissingHandler     = "an event handler is required"
)
