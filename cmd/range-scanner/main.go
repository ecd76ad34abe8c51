package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/btcsuite/btclog/v2"
	"github.com/spf13/cobra"

	"github.com/screa/range-scanner/internal/config"
	logpkg "github.com/screa/range-scanner/internal/logger"
	"github.com/screa/range-scanner/pkg/scanner"
	"github.com/screa/range-scanner/pkg/worker"
)

var cfg = config.NewConfig()

func main() {
	var rootCmd = &cobra.Command{
		Use:   "range-scanner",
		Short: "Bidirectional private key range scanner",
		Long: `Exhaustively scans a private key range for the key of a known address.
Half of the workers walk their share of the range upwards, the other half
walk the same shares downwards. The scan stops at the first match.`,
		RunE:          runScanner,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.Flags().StringVarP(&cfg.Start, "start", "a", cfg.Start, "First private key of the range (hex)")
	rootCmd.Flags().StringVarP(&cfg.End, "end", "b", cfg.End, "Last private key of the range (hex, inclusive)")
	rootCmd.Flags().StringVarP(&cfg.Target, "target", "t", cfg.Target, "Address to find the private key of")
	rootCmd.Flags().IntVarP(&cfg.Workers, "workers", "w", runtime.NumCPU(), "Number of worker goroutines (rounded down to even, minimum 2)")
	rootCmd.Flags().Uint64Var(&cfg.BatchSize, "batch-size", cfg.BatchSize, "Keys tested between checks for a match by another worker")
	rootCmd.Flags().DurationVar(&cfg.PollInterval, "poll-interval", cfg.PollInterval, "How often the coordinator checks progress")
	rootCmd.Flags().DurationVar(&cfg.ReportInterval, "report-interval", cfg.ReportInterval, "Maximum time between progress lines")
	rootCmd.Flags().DurationVar(&cfg.FlushInterval, "flush-interval", cfg.FlushInterval, "Maximum age of log lines not yet flushed to disk")
	rootCmd.Flags().StringVarP(&cfg.LogFile, "log-file", "l", cfg.LogFile, "Append-only transcript file")
	rootCmd.Flags().StringVar(&cfg.Chain, "chain", cfg.Chain, "Address format: btc or eth")
	rootCmd.Flags().StringVar(&cfg.Network, "network", cfg.Network, "Bitcoin network: mainnet, testnet3, regtest, signet or simnet")
	rootCmd.Flags().BoolVar(&cfg.Uncompressed, "uncompressed", false, "Derive bitcoin addresses from uncompressed public keys")
	rootCmd.Flags().BoolVar(&cfg.NoColor, "no-color", false, "Disable console colors")
	rootCmd.Flags().BoolVarP(&cfg.Verbose, "verbose", "v", false, "Verbose diagnostic output")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runScanner(cmd *cobra.Command, args []string) error {
	diag := setupDiagnostics()

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := cfg.ResolveTarget(); err != nil {
		return err
	}
	deriver, err := cfg.Deriver()
	if err != nil {
		return err
	}
	if _, err := cfg.Range(); err != nil {
		return err
	}

	// Setup logging
	opts := []logpkg.Option{
		logpkg.WithFlushInterval(cfg.FlushInterval),
		logpkg.WithDiagnostics(diag),
	}
	if cfg.NoColor {
		opts = append(opts, logpkg.WithColor(false))
	}
	transcript, err := logpkg.Open(cfg.LogFile, opts...)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer transcript.Close()

	s, err := scanner.NewScanner(cfg, deriver, transcript)
	if err != nil {
		return err
	}

	// Ctrl+C stops the workers at their next batch boundary.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := s.Scan(ctx)
	if err != nil {
		return err
	}

	diag.Debugf("Scan done: processed=%d total=%d found=%v interrupted=%v",
		result.Processed.ToBig(), result.Total.ToBig(), result.Found != nil,
		result.Interrupted)

	return nil
}

// setupDiagnostics creates the stderr logger used for log I/O failures and
// debug output, and hands it to the subsystems.
func setupDiagnostics() btclog.Logger {
	diag := btclog.NewSLogger(btclog.NewDefaultHandler(os.Stderr))
	if cfg.Verbose {
		diag.SetLevel(btclog.LevelDebug)
	} else {
		diag.SetLevel(btclog.LevelInfo)
	}

	scanner.UseLogger(diag.SubSystem(scanner.Subsystem))
	worker.UseLogger(diag.SubSystem(worker.Subsystem))

	return diag
}
