package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/screa/range-scanner/internal/crypto"
	"github.com/screa/range-scanner/pkg/keyspace"
	"github.com/screa/range-scanner/pkg/types"
)

// Errors
var (
	ErrNoTargetSpecified  = errors.New("must specify --target")
	ErrNoRangeSpecified   = errors.New("must specify both --start and --end")
	ErrInvalidBatchSize   = errors.New("--batch-size must be at least 1")
	ErrInvalidInterval    = errors.New("intervals must be positive")
	ErrNoLogFileSpecified = errors.New("must specify --log-file")
)

// Defaults
const (
	DefaultStart          = "1000000"
	DefaultEnd            = "1ffffff"
	DefaultTarget         = "15JhYXn6Mx3oF4Y7PcTAv2wVVAuCFFQNiP"
	DefaultLogFile        = "range_scanner.log"
	DefaultBatchSize      = 10000
	DefaultPollInterval   = 100 * time.Millisecond
	DefaultReportInterval = 2 * time.Second
	DefaultFlushInterval  = 30 * time.Second
)

// Config holds the application configuration
type Config struct {
	Start          string
	End            string
	Target         string
	Workers        int
	BatchSize      uint64
	PollInterval   time.Duration
	ReportInterval time.Duration
	FlushInterval  time.Duration
	LogFile        string
	Chain          string
	Network        string
	Uncompressed   bool
	NoColor        bool
	Verbose        bool
}

// NewConfig creates a new configuration with default values
func NewConfig() *Config {
	return &Config{
		Start:          DefaultStart,
		End:            DefaultEnd,
		Target:         DefaultTarget,
		Workers:        runtime.NumCPU(),
		BatchSize:      DefaultBatchSize,
		PollInterval:   DefaultPollInterval,
		ReportInterval: DefaultReportInterval,
		FlushInterval:  DefaultFlushInterval,
		LogFile:        DefaultLogFile,
		Chain:          crypto.ChainBitcoin,
		Network:        "mainnet",
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Target) == "" {
		return ErrNoTargetSpecified
	}
	if c.Start == "" || c.End == "" {
		return ErrNoRangeSpecified
	}
	if c.BatchSize == 0 {
		return ErrInvalidBatchSize
	}
	if c.PollInterval <= 0 || c.ReportInterval <= 0 || c.FlushInterval <= 0 {
		return ErrInvalidInterval
	}
	if c.LogFile == "" {
		return ErrNoLogFileSpecified
	}
	if _, err := crypto.NewDeriver(c.Chain, c.Network, true); err != nil {
		return err
	}
	return nil
}

// Range parses the configured key range
func (c *Config) Range() (keyspace.Range, error) {
	return keyspace.ParseRange(c.Start, c.End)
}

// Deriver returns the address derivation for the configured chain
func (c *Config) Deriver() (types.AddressDeriver, error) {
	return crypto.NewDeriver(c.Chain, c.Network, !c.Uncompressed)
}

// ResolveTarget validates the target address and rewrites it into the form
// the deriver produces.
func (c *Config) ResolveTarget() error {
	target, err := crypto.CanonicalTarget(c.Chain, c.Network, c.Target)
	if err != nil {
		return err
	}
	c.Target = target
	return nil
}

// GetTargetDescription returns a human-readable description of the target
func (c *Config) GetTargetDescription() string {
	switch strings.ToLower(c.Chain) {
	case crypto.ChainEthereum:
		return c.Target + " (ethereum)"
	default:
		kind := "compressed"
		if c.Uncompressed {
			kind = "uncompressed"
		}
		return fmt.Sprintf("%s (bitcoin %s, %s P2PKH)", c.Target, c.Network, kind)
	}
}

// EvenWorkers coerces n to an even worker count of at least 2, so the
// workers split evenly between the ascending and descending passes. n <= 0
// selects the host parallelism.
func EvenWorkers(n int) int {
	if n <= 0 {
		n = runtime.NumCPU()
	}
	if n%2 != 0 {
		n--
	}
	if n < 2 {
		n = 2
	}
	return n
}
