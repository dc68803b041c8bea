package mmapi

import "encoding/json"

// Event is an event delivered by the websocket API.
type Event struct {
	// Event is the event name. Unknown names are kept as sent.
	Event EventType `json:"event"`
	// Data is the event payload; its shape depends on Event.
	Data json.RawMessage `json:"data"`
	// Broadcast describes who the event was sent to.
	Broadcast Broadcast `json:"broadcast"`
	// Seq is the server-side sequence number of the event.
	Seq int64 `json:"seq"`
}

// UnmarshalData decodes the event payload into v.
func (e *Event) UnmarshalData(v any) error {
	if len(e.Data) == 0 {
		return nil
	}
	return json.Unmarshal(e.Data, v)
}

// Broadcast is the routing information of an Event.
type Broadcast struct {
	// OmitUsers lists users who did not receive the event.
	OmitUsers map[string]bool `json:"omit_users,omitempty"`
	// UserID is the recipient, when the event targets one user.
	UserID    string `json:"user_id,omitempty"`
	ChannelID string `json:"channel_id"`
	TeamID    string `json:"team_id"`
}

// Team is returned by the teams endpoints.
type Team struct {
	ID              string  `json:"id"`
	CreateAt        int64   `json:"create_at"`
	UpdateAt        int64   `json:"update_at"`
	DeleteAt        int64   `json:"delete_at"`
	DisplayName     string  `json:"display_name"`
	Name            string  `json:"name"`
	Description     string  `json:"description"`
	Email           string  `json:"email"`
	Type            string  `json:"type"`
	AllowedDomains  string  `json:"allowed_domains"`
	InviteID        string  `json:"invite_id"`
	AllowOpenInvite bool    `json:"allow_open_invite"`
	PolicyID        *string `json:"policy_id"`
}

// TeamUnread is the unread message and mention count of a user in a team.
type TeamUnread struct {
	TeamID       string `json:"team_id"`
	MsgCount     int64  `json:"msg_count"`
	MentionCount int64  `json:"mention_count"`
}

// Channel is returned by the channels endpoints.
type Channel struct {
	ID            string  `json:"id"`
	CreateAt      int64   `json:"create_at"`
	UpdateAt      int64   `json:"update_at"`
	DeleteAt      int64   `json:"delete_at"`
	TeamID        string  `json:"team_id"`
	Type          string  `json:"type"`
	DisplayName   string  `json:"display_name"`
	Name          string  `json:"name"`
	Header        string  `json:"header"`
	Purpose       string  `json:"purpose"`
	LastPostAt    int64   `json:"last_post_at"`
	TotalMsgCount int64   `json:"total_msg_count"`
	CreatorID     string  `json:"creator_id"`
	PolicyID      *string `json:"policy_id"`
}

// ChannelListOptions filters GetAllChannels. Nil fields are not sent.
type ChannelListOptions struct {
	NotAssociatedToGroup     *string
	Page                     *int
	PerPage                  *int
	ExcludeDefaultChannels   *bool
	ExcludePolicyConstrained *bool
}

// User is returned by the users endpoints.
type User struct {
	ID        string `json:"id"`
	CreateAt  int64  `json:"create_at"`
	UpdateAt  int64  `json:"update_at"`
	DeleteAt  int64  `json:"delete_at"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Nickname  string `json:"nickname"`
	Email     string `json:"email"`
	Roles     string `json:"roles"`
	Locale    string `json:"locale"`
	IsBot     bool   `json:"is_bot,omitempty"`
}

// Post is a message in a channel.
type Post struct {
	ID        string         `json:"id,omitempty"`
	CreateAt  int64          `json:"create_at,omitempty"`
	UpdateAt  int64          `json:"update_at,omitempty"`
	DeleteAt  int64          `json:"delete_at,omitempty"`
	UserID    string         `json:"user_id,omitempty"`
	ChannelID string         `json:"channel_id"`
	RootID    string         `json:"root_id,omitempty"`
	Message   string         `json:"message"`
	Type      string         `json:"type,omitempty"`
	Props     map[string]any `json:"props,omitempty"`
	FileIDs   []string       `json:"file_ids,omitempty"`
}
