// worker is the media bridge process: it feeds jobs to a local pipeline
// engine and returns the generated artifact.
//
// Usage:
//
//	worker serve   [--config=bridge.yaml]
//	worker consume [--config=bridge.yaml]
//	worker run --url=<source> [--id=<job id>] [--input=<envelope.json>]
//	worker warmup
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"mediabridge/internal/worker/util"
)

// version is set at build time via -ldflags.
var version = "dev"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "worker",
	Short: "Bridge jobs to a local media pipeline engine",
	Long: "worker injects a source reference into a pipeline template, submits it to the\n" +
		"engine, waits for the generated artifact and returns it inline or by URL.",
	SilenceUsage: true,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", util.Env("CONFIG_FILE", ""),
		"YAML config file (env CONFIG_FILE); environment variables override it")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(consumeCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(warmupCmd)
	rootCmd.Version = version
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
