package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadJob(t *testing.T) {
	reset := func() { runURL, runID, runInput = "", "", "" }
	t.Cleanup(reset)

	t.Run("flags only", func(t *testing.T) {
		reset()
		runURL = "http://x/video.mp4"
		job, err := loadJob()
		if err != nil {
			t.Fatal(err)
		}
		if job.Input.URL != "http://x/video.mp4" || job.ID == "" {
			t.Errorf("unexpected job %+v", job)
		}
	})

	t.Run("envelope with flag override", func(t *testing.T) {
		reset()
		path := filepath.Join(t.TempDir(), "job.json")
		if err := os.WriteFile(path, []byte(`{"id":"from-file","input":{"url":"a.mp4"}}`), 0o644); err != nil {
			t.Fatal(err)
		}
		runInput = path
		runURL = "b.mp4"

		job, err := loadJob()
		if err != nil {
			t.Fatal(err)
		}
		if job.ID != "from-file" || job.Input.URL != "b.mp4" {
			t.Errorf("unexpected job %+v", job)
		}
	})

	t.Run("bad envelope", func(t *testing.T) {
		reset()
		path := filepath.Join(t.TempDir(), "job.json")
		_ = os.WriteFile(path, []byte(`{`), 0o644)
		runInput = path
		if _, err := loadJob(); err == nil {
			t.Error("expected parse error")
		}
	})
}

func TestCommandsRegistered(t *testing.T) {
	want := map[string]bool{"serve": false, "consume": false, "run": false, "warmup": false}
	for _, c := range rootCmd.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("subcommand %s not registered", name)
		}
	}
}
