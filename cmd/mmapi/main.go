package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/luciancaetano/mmapi"
	"github.com/luciancaetano/mmapi/internal/config"
	"github.com/luciancaetano/mmapi/mm"
)

// Version information, injected at build time via ldflags.
var (
	Version   = "dev"
	Build     = "unknown"
	BuildTime = "unknown"
)

// options are the persistent flags shared by every command.
type options struct {
	configPath string
	envFile    string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "mmapi",
		Short: "Talk to a Mattermost instance from the command line",
		Long: `mmapi logs in to a Mattermost instance, calls REST endpoints and streams
websocket events as JSON lines.

Settings are read from a YAML file (--config), then a .env file (--env-file),
then MM_URL, MM_TOKEN, MM_LOGIN_ID, MM_PASSWORD, MM_KEEPALIVE, MM_LOG_LEVEL
and MM_LOG_FORMAT. Use either MM_TOKEN or MM_LOGIN_ID and MM_PASSWORD.`,
		Version:       fmt.Sprintf("%s (build %s, %s)", Version, Build, BuildTime),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to a YAML config file")
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "path to a .env file, ignored when missing")

	root.AddCommand(
		newLoginCmd(opts),
		newListenCmd(opts),
		newTeamCmd(opts),
		newChannelCmd(opts),
		newPostCmd(opts),
	)
	return root
}

// connect loads the settings, builds a client and makes sure it holds a token.
func connect(ctx context.Context, cmd *cobra.Command, opts *options) (mmapi.Client, *logrus.Logger, error) {
	cfg, err := config.Load(opts.configPath, opts.envFile)
	if err != nil {
		return nil, nil, err
	}

	logger := cfg.NewLogger(cmd.ErrOrStderr())

	client, err := mm.New(cfg.ClientConfig(logger))
	if err != nil {
		return nil, nil, err
	}

	if err := client.StoreSessionToken(ctx); err != nil {
		return nil, nil, err
	}
	return client, logger, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
