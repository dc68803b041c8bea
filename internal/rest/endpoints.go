package rest

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/luciancaetano/mmapi"
)

// GetTeam returns a team by ID.
func (s *Session) GetTeam(ctx context.Context, id string) (*mmapi.Team, error) {
	var team mmapi.Team
	if err := s.Query(ctx, http.MethodGet, "teams/"+id, nil, nil, &team); err != nil {
		return nil, err
	}
	return &team, nil
}

// GetTeamByName returns a team by name.
func (s *Session) GetTeamByName(ctx context.Context, name string) (*mmapi.Team, error) {
	var team mmapi.Team
	if err := s.Query(ctx, http.MethodGet, "teams/name/"+name, nil, nil, &team); err != nil {
		return nil, err
	}
	return &team, nil
}

// GetTeams lists the teams visible to the user.
func (s *Session) GetTeams(ctx context.Context) ([]mmapi.Team, error) {
	var teams []mmapi.Team
	if err := s.Query(ctx, http.MethodGet, "teams", nil, nil, &teams); err != nil {
		return nil, err
	}
	return teams, nil
}

// GetTeamUnreadsFor returns unread counts of the user in each of their teams.
func (s *Session) GetTeamUnreadsFor(ctx context.Context, userID string) ([]mmapi.TeamUnread, error) {
	var unreads []mmapi.TeamUnread
	endpoint := "users/" + userID + "/teams/unread"
	if err := s.Query(ctx, http.MethodGet, endpoint, nil, nil, &unreads); err != nil {
		return nil, err
	}
	return unreads, nil
}

// GetTeamUnreadsForIn returns unread counts of the user in one team.
func (s *Session) GetTeamUnreadsForIn(ctx context.Context, userID, teamID string) (*mmapi.TeamUnread, error) {
	var unread mmapi.TeamUnread
	endpoint := "users/" + userID + "/teams/" + teamID + "/unread"
	if err := s.Query(ctx, http.MethodGet, endpoint, nil, nil, &unread); err != nil {
		return nil, err
	}
	return &unread, nil
}

// GetAllChannels lists every channel on the instance.
func (s *Session) GetAllChannels(ctx context.Context, opts mmapi.ChannelListOptions) ([]mmapi.Channel, error) {
	var channels []mmapi.Channel
	if err := s.Query(ctx, http.MethodGet, "channels", channelListQuery(opts), nil, &channels); err != nil {
		return nil, err
	}
	return channels, nil
}

func channelListQuery(opts mmapi.ChannelListOptions) url.Values {
	q := url.Values{}
	if opts.NotAssociatedToGroup != nil {
		q.Set("not_associated_to_group", *opts.NotAssociatedToGroup)
	}
	if opts.Page != nil {
		q.Set("page", strconv.Itoa(*opts.Page))
	}
	if opts.PerPage != nil {
		q.Set("per_page", strconv.Itoa(*opts.PerPage))
	}
	if opts.ExcludeDefaultChannels != nil {
		q.Set("exclude_default_channels", strconv.FormatBool(*opts.ExcludeDefaultChannels))
	}
	if opts.ExcludePolicyConstrained != nil {
		q.Set("exclude_policy_constrained", strconv.FormatBool(*opts.ExcludePolicyConstrained))
	}
	return q
}

// GetChannel returns a channel by ID.
func (s *Session) GetChannel(ctx context.Context, channelID string) (*mmapi.Channel, error) {
	var channel mmapi.Channel
	if err := s.Query(ctx, http.MethodGet, "channels/"+channelID, nil, nil, &channel); err != nil {
		return nil, err
	}
	return &channel, nil
}

// GetPublicChannels lists the public channels of a team.
func (s *Session) GetPublicChannels(ctx context.Context, teamID string) ([]mmapi.Channel, error) {
	var channels []mmapi.Channel
	if err := s.Query(ctx, http.MethodGet, "teams/"+teamID+"/channels", nil, nil, &channels); err != nil {
		return nil, err
	}
	return channels, nil
}

// GetMe returns the authenticated user.
func (s *Session) GetMe(ctx context.Context) (*mmapi.User, error) {
	return s.GetUser(ctx, "me")
}

// GetUser returns a user by ID.
func (s *Session) GetUser(ctx context.Context, userID string) (*mmapi.User, error) {
	var user mmapi.User
	if err := s.Query(ctx, http.MethodGet, "users/"+userID, nil, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// CreatePost creates a post.
func (s *Session) CreatePost(ctx context.Context, post *mmapi.Post) (*mmapi.Post, error) {
	var created mmapi.Post
	if err := s.Post(ctx, "posts", post, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// GetPost returns a post by ID.
func (s *Session) GetPost(ctx context.Context, postID string) (*mmapi.Post, error) {
	var post mmapi.Post
	if err := s.Query(ctx, http.MethodGet, "posts/"+postID, nil, nil, &post); err != nil {
		return nil, err
	}
	return &post, nil
}
