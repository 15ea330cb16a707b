package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"folio/internal/watch"
)

func newInvalidateCmd() *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "invalidate",
		Short: "Tell running servers to reload through Redis",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			client := a.redisClient()
			if client == nil {
				return withExit(2, errors.New("redis.addr is not configured"))
			}
			defer client.Close()

			n, err := watch.Publish(cmd.Context(), client, a.cfg.Redis.Channel, reason)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "notified %d subscriber(s) on %s\n", n, a.cfg.Redis.Channel)
			return nil
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "cli", "message logged by the subscribers")
	return cmd
}
