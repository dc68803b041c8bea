package main

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/luciancaetano/mmapi"
)

func newTeamCmd(opts *options) *cobra.Command {
	team := &cobra.Command{
		Use:   "team",
		Short: "Inspect teams",
	}

	var byName bool
	get := &cobra.Command{
		Use:   "get <id|name>",
		Short: "Print a team",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := connect(cmd.Context(), cmd, opts)
			if err != nil {
				return err
			}

			var t *mmapi.Team
			if byName {
				t, err = client.GetTeamByName(cmd.Context(), args[0])
			} else {
				t, err = client.GetTeam(cmd.Context(), args[0])
			}
			if err != nil {
				return errors.Wrapf(err, "getting team %s", args[0])
			}
			return printJSON(cmd.OutOrStdout(), t)
		},
	}
	get.Flags().BoolVar(&byName, "name", false, "look the team up by name instead of ID")

	list := &cobra.Command{
		Use:   "list",
		Short: "Print the teams visible to the user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := connect(cmd.Context(), cmd, opts)
			if err != nil {
				return err
			}

			teams, err := client.GetTeams(cmd.Context())
			if err != nil {
				return errors.Wrap(err, "listing teams")
			}
			return printJSON(cmd.OutOrStdout(), teams)
		},
	}

	team.AddCommand(get, list)
	return team
}

func newChannelCmd(opts *options) *cobra.Command {
	channel := &cobra.Command{
		Use:   "channel",
		Short: "Inspect channels",
	}

	get := &cobra.Command{
		Use:   "get <id>",
		Short: "Print a channel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := connect(cmd.Context(), cmd, opts)
			if err != nil {
				return err
			}

			ch, err := client.GetChannel(cmd.Context(), args[0])
			if err != nil {
				return errors.Wrapf(err, "getting channel %s", args[0])
			}
			return printJSON(cmd.OutOrStdout(), ch)
		},
	}

	channel.AddCommand(get)
	return channel
}

func newPostCmd(opts *options) *cobra.Command {
	post := &cobra.Command{
		Use:   "post",
		Short: "Create posts",
	}

	var channelID, rootID string
	create := &cobra.Command{
		Use:   "create <message>",
		Short: "Post a message to a channel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := connect(cmd.Context(), cmd, opts)
			if err != nil {
				return err
			}

			created, err := client.CreatePost(cmd.Context(), &mmapi.Post{
				ChannelID: channelID,
				RootID:    rootID,
				Message:   args[0],
			})
			if err != nil {
				return errors.Wrapf(err, "posting to channel %s", channelID)
			}
			return printJSON(cmd.OutOrStdout(), created)
		},
	}
	create.Flags().StringVar(&channelID, "channel", "", "ID of the channel to post to")
	create.Flags().StringVar(&rootID, "root", "", "ID of the post to reply to")
	_ = create.MarkFlagRequired("channel")

	post.AddCommand(create)
	return post
}
