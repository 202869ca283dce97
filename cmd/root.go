package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"scan-analysis/config"
	"scan-analysis/logging"
	"scan-analysis/measurement"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	configPath string
	workers    int
	logLevel   string
	outDir     string

	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:           "scan-analysis",
	Short:         "Provider attribution and connectivity clusters for mail autoconfiguration scans",
	SilenceUsage:  true,
	SilenceErrors: true,
	Run: func(cmd *cobra.Command, args []string) {
		printBanner()
		_ = cmd.Help()
	},
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if !cmd.HasParent() {
			return nil // bare invocation only prints help
		}
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("workers") {
			cfg.Pipeline.Workers = workers
		}
		if cmd.Flags().Changed("log-level") {
			cfg.Logging.Level = logLevel
		}
		if cmd.Flags().Changed("out-dir") {
			cfg.Output.Dir = outDir
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		logger = logging.New(os.Stderr, cfg.Logging)
		return os.MkdirAll(cfg.Output.Dir, 0755)
	},
}

func pipelineOptions() measurement.PipelineOptions {
	return measurement.PipelineOptions{Workers: cfg.Pipeline.Workers, Logger: logger}
}

func outPath(name string) string {
	return filepath.Join(cfg.Output.Dir, name)
}

// save writes one artifact and reports it on stdout.
func save(name string, write func(w io.Writer) error) error {
	path := outPath(name)
	if err := measurement.SaveFile(path, write); err != nil {
		logger.Error("failed to save artifact", "path", path, "err", err)
		return err
	}
	fmt.Printf("%s %s\n", color.GreenString("saved"), path)
	return nil
}

func openInput(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input: %w", err)
	}
	return f, nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file (created with defaults if missing)")
	rootCmd.PersistentFlags().IntVarP(&workers, "workers", "w", 1, "number of partitions processed in parallel")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "debug | info | warn | error")
	rootCmd.PersistentFlags().StringVarP(&outDir, "out-dir", "o", ".", "directory for output artifacts")
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error:"), err)
		stop()
		os.Exit(1)
	}
}
