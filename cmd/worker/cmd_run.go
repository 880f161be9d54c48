package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mediabridge/internal/worker/processor"
	"mediabridge/internal/worker/util"
)

var (
	runURL   string
	runID    string
	runInput string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process one job and print its result as JSON",
	Long: `Runs a single job through the engine. The job comes from --input (a JSON envelope
{"id": ..., "input": {"url": ...}}) or from --url/--id. The result
{"status", "message", "refresh_worker"} is written to stdout.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		job, err := loadJob()
		if err != nil {
			return err
		}

		a, err := newApp(cmd.Context(), appOptions{logToStderr: true})
		if err != nil {
			return err
		}
		defer a.close()

		res := a.proc.Handle(cmd.Context(), job)

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return err
		}
		if res.Status != processor.StatusSuccess {
			return fmt.Errorf("job %s failed", job.ID)
		}
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&runURL, "url", "", "source reference injected into the pipeline")
	runCmd.Flags().StringVar(&runID, "id", "", "job id (generated when empty)")
	runCmd.Flags().StringVar(&runInput, "input", "", "path to a JSON job envelope")
}

func loadJob() (processor.JobRequest, error) {
	var job processor.JobRequest
	if runInput != "" {
		raw, err := os.ReadFile(runInput)
		if err != nil {
			return job, fmt.Errorf("read job envelope: %w", err)
		}
		if err := json.Unmarshal(raw, &job); err != nil {
			return job, fmt.Errorf("parse job envelope %s: %w", runInput, err)
		}
	}
	if runURL != "" {
		job.Input.URL = runURL
	}
	if runID != "" {
		job.ID = runID
	}
	if job.ID == "" {
		job.ID = util.NewJobID()
	}
	return job, nil
}
