package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/luciancaetano/mmapi"
)

func newLoginCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Log in and print the session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := connect(cmd.Context(), cmd, opts)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), client.AuthToken())
			return nil
		},
	}
}

func newListenCmd(opts *options) *cobra.Command {
	var events []string

	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Stream websocket events as JSON lines until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			client, logger, err := connect(ctx, cmd, opts)
			if err != nil {
				return err
			}

			err = client.ConnectToWebsocket(ctx, newLineWriter(cmd, logger, events))
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringSliceVarP(&events, "event", "e", nil, "only print these event types (repeatable)")
	return cmd
}

// lineWriter prints each event as one line of JSON.
type lineWriter struct {
	mu     sync.Mutex
	enc    *json.Encoder
	log    logrus.FieldLogger
	filter map[mmapi.EventType]bool
}

func newLineWriter(cmd *cobra.Command, logger logrus.FieldLogger, events []string) *lineWriter {
	w := &lineWriter{enc: json.NewEncoder(cmd.OutOrStdout()), log: logger}
	if len(events) > 0 {
		w.filter = make(map[mmapi.EventType]bool, len(events))
		for _, name := range events {
			w.filter[mmapi.EventType(name)] = true
		}
	}
	return w
}

func (w *lineWriter) HandleEvent(_ context.Context, ev *mmapi.Event) {
	if w.filter != nil && !w.filter[ev.Event] {
		return
	}
	if !ev.Event.Known() {
		w.log.WithField("event", ev.Event).Debug("Unknown event type")
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.enc.Encode(ev); err != nil {
		w.log.WithError(err).Warn("Could not write event")
	}
}
