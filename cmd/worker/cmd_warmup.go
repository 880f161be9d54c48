package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"mediabridge/internal/worker/processor"
	"mediabridge/internal/worker/util"
)

var warmupCmd = &cobra.Command{
	Use:   "warmup",
	Short: "Run the pipeline once with the default source and discard the artifact",
	Long: `Loads the engine models by running one job with BASE_URL as the source.
The artifact is dropped; only a summary is printed.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd.Context(), appOptions{logToStderr: true})
		if err != nil {
			return err
		}
		defer a.close()

		start := time.Now()
		res := a.proc.Handle(cmd.Context(), processor.JobRequest{ID: "warmup-" + util.NewJobID()})

		fmt.Fprintf(cmd.OutOrStdout(), "warmup finished in %s: %s\n", time.Since(start).Round(time.Millisecond), res)
		if res.Status != processor.StatusSuccess {
			return fmt.Errorf("warmup failed: %s", res.Message)
		}
		return nil
	},
}
