// Package main provides the mathgraph binary entry point.
// Mathgraph watches document collections, detects mathematical content,
// and feeds extracted concepts into a knowledge graph.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/supersonic-electronic/AI-sub001/config"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "mathgraph"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		configPath string
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Mathematical document knowledge graph pipeline",
		Long: `Mathgraph ingests document collections (PDF, LaTeX, HTML, DOCX, XML,
EPUB, plain text), detects mathematical content, extracts and deduplicates
concepts, and publishes them to a knowledge graph over NATS.

Modes:
- watch: watch a directory and process changes incrementally
- batch: process a directory tree in parallel batches
- sync:  one-shot catch-up of tracker state against a directory
- detect: score a text snippet for mathematical content`,
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level override (debug, info, warn, error)")

	loadCfg := func() (*config.Config, error) {
		cfg, err := loadConfig(configPath)
		if err != nil {
			return nil, err
		}
		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
		return cfg, nil
	}

	cmd.AddCommand(watchCmd(loadCfg))
	cmd.AddCommand(batchCmd(loadCfg))
	cmd.AddCommand(syncCmd(loadCfg))
	cmd.AddCommand(detectCmd(loadCfg))

	// Version command
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	})

	return cmd
}

type configLoader func() (*config.Config, error)

func watchCmd(loadCfg configLoader) *cobra.Command {
	var syncFirst bool

	cmd := &cobra.Command{
		Use:   "watch <directory>",
		Short: "Watch a directory and process document changes incrementally",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadCfg()
			if err != nil {
				return err
			}

			app, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer app.Close()

			signalCtx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			return app.Watch(signalCtx, args[0], syncFirst)
		},
	}

	cmd.Flags().BoolVar(&syncFirst, "sync-first", true, "Run a directory sync before watching to catch up on offline changes")
	return cmd
}

func batchCmd(loadCfg configLoader) *cobra.Command {
	var (
		recursive  bool
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "batch <directory>",
		Short: "Process a directory tree in parallel batches",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadCfg()
			if err != nil {
				return err
			}

			app, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer app.Close()

			signalCtx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			summary, err := app.Batch(signalCtx, args[0], recursive)
			if err != nil {
				return err
			}

			if jsonOutput {
				return json.NewEncoder(os.Stdout).Encode(summary)
			}
			printSummary(summary)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&recursive, "recursive", "r", true, "Recurse into subdirectories")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the summary as JSON")
	return cmd
}

func syncCmd(loadCfg configLoader) *cobra.Command {
	var recursive bool

	cmd := &cobra.Command{
		Use:   "sync <directory>",
		Short: "Reconcile tracker state with a directory (one shot)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadCfg()
			if err != nil {
				return err
			}

			app, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer app.Close()

			signalCtx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			result, err := app.Sync(signalCtx, args[0], recursive)
			if err != nil {
				return err
			}
			fmt.Printf("Processed: %d  Skipped: %d  Errors: %d\n",
				result.Processed, result.Skipped, result.Errors)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&recursive, "recursive", "r", true, "Recurse into subdirectories")
	return cmd
}

func detectCmd(loadCfg configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "detect <text>",
		Short: "Score a text snippet for mathematical content",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadCfg()
			if err != nil {
				return err
			}

			app, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer app.Close()

			for _, text := range args {
				app.Detect(os.Stdout, text)
			}
			return nil
		},
	}
}

// loadConfig prefers an explicit path, falling back to the layered loader
// (user config, then project mathgraph.yaml).
func loadConfig(configPath string) (*config.Config, error) {
	if configPath != "" {
		cfg, err := config.LoadFromFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		return cfg, nil
	}
	return config.NewLoader(nil).Load()
}
