package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"mediabridge/internal/worker"
)

var consumeCmd = &cobra.Command{
	Use:   "consume",
	Short: "Consume jobs from the Redis queue without the HTTP API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd.Context(), appOptions{requireQueue: true})
		if err != nil {
			return err
		}
		defer a.close()

		err = worker.Run(cmd.Context(), worker.Deps{Queue: a.queue, Handler: a.proc, Log: a.log})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}
