package scanner

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync/atomic"
	"time"

	"github.com/holiman/uint256"
	"github.com/lightningnetwork/lnd/clock"
	"golang.org/x/sync/errgroup"

	"github.com/screa/range-scanner/internal/config"
	"github.com/screa/range-scanner/internal/logger"
	"github.com/screa/range-scanner/pkg/keyspace"
	"github.com/screa/range-scanner/pkg/shared"
	"github.com/screa/range-scanner/pkg/types"
	"github.com/screa/range-scanner/pkg/worker"
)

// Errors
var (
	ErrInvalidConfig  = errors.New("invalid scan configuration")
	ErrAlreadyStarted = errors.New("scan already started")
)

// State is the lifecycle stage of a Scanner.
type State int32

const (
	Configuring State = iota
	Running
	Reporting
	Done
)

func (s State) String() string {
	switch s {
	case Configuring:
		return "configuring"
	case Running:
		return "running"
	case Reporting:
		return "reporting"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}

// Logger is the transcript the scanner and its workers write to.
type Logger interface {
	worker.Logger
	Progress(style logger.Style, msg string)
	Flush()
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithClock sets the time source for progress reporting.
func WithClock(c clock.Clock) Option {
	return func(s *Scanner) { s.clock = c }
}

// Scanner coordinates a full scan of a key range
type Scanner struct {
	config       *config.Config
	keyRange     keyspace.Range
	partitions   []types.Partition
	workerConfig *types.WorkerConfig
	transcript   Logger
	clock        clock.Clock

	found     shared.FoundSlot
	processed shared.Counter
	state     atomic.Int32
}

// NewScanner validates cfg and computes the worker partitions. Any error it
// returns is a configuration error and no worker has been started.
func NewScanner(cfg *config.Config, deriver types.AddressDeriver, transcript Logger,
	opts ...Option) (*Scanner, error) {

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if deriver == nil {
		return nil, fmt.Errorf("%w: no address deriver", ErrInvalidConfig)
	}

	keyRange, err := cfg.Range()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	cfg.Workers = config.EvenWorkers(cfg.Workers)
	partitions, err := keyspace.Partition(keyRange, cfg.Workers)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	s := &Scanner{
		config:     cfg,
		keyRange:   keyRange,
		partitions: partitions,
		workerConfig: &types.WorkerConfig{
			Target:    cfg.Target,
			BatchSize: cfg.BatchSize,
			Deriver:   deriver,
		},
		transcript: transcript,
		clock:      clock.NewDefaultClock(),
	}
	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// State returns the current lifecycle stage.
func (s *Scanner) State() State {
	return State(s.state.Load())
}

// Partitions returns the sub-ranges assigned to the workers.
func (s *Scanner) Partitions() []types.Partition {
	return s.partitions
}

// Processed returns the number of candidates tested so far.
func (s *Scanner) Processed() *uint256.Int {
	return s.processed.Load()
}

// Scan runs every worker until a match is found, the range is exhausted,
// or ctx is cancelled, and then reports the outcome. It always waits for
// all workers to return. A Scanner can only scan once.
func (s *Scanner) Scan(ctx context.Context) (*types.Result, error) {
	if !s.state.CompareAndSwap(int32(Configuring), int32(Running)) {
		return nil, ErrAlreadyStarted
	}

	start := s.clock.Now()
	s.logBanner()

	var g errgroup.Group
	for _, p := range s.partitions {
		w := worker.NewWorker(s.workerConfig, p, &s.found, &s.processed, s.transcript)
		g.Go(func() error {
			w.Run(ctx)
			return nil
		})
	}

	finished := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(finished)
	}()

	s.poll(ctx, start, finished)

	s.state.Store(int32(Reporting))
	log.Debugf("Waiting for %d workers to return", len(s.partitions))
	<-finished
	elapsed := s.clock.Now().Sub(start)

	result := &types.Result{
		Processed: s.processed.Load(),
		Total:     s.keyRange.Total(),
		Duration:  elapsed,
	}
	if rec, ok := s.found.Get(); ok {
		result.Found = &rec
	} else if ctx.Err() != nil && result.Processed.Lt(result.Total) {
		result.Interrupted = true
	}

	s.state.Store(int32(Done))
	s.logOutcome(result)

	return result, nil
}

// poll reports progress until a match is recorded, every candidate has been
// processed, all workers have returned, or ctx is cancelled.
func (s *Scanner) poll(ctx context.Context, start time.Time, finished <-chan struct{}) {
	var (
		total         = s.keyRange.Total()
		onePercent    = new(uint256.Int).Div(total, uint256.NewInt(100))
		lastProcessed = new(uint256.Int)
		lastReport    = start
		advanced      = new(uint256.Int)
	)

	for {
		select {
		case <-s.clock.TickAfter(s.config.PollInterval):
		case <-finished:
			return
		case <-ctx.Done():
			return
		}

		if s.found.IsSet() {
			return
		}

		now := s.clock.Now()
		processed := s.processed.Load()
		advanced.Sub(processed, lastProcessed)

		significant := !advanced.IsZero() && !advanced.Lt(onePercent)
		if now.Sub(lastReport) >= s.config.ReportInterval || significant {
			s.logProgress(processed, total, now.Sub(start))
			lastProcessed = processed
			lastReport = now
		}

		if !processed.Lt(total) {
			return
		}
	}
}

func (s *Scanner) logProgress(processed, total *uint256.Int, elapsed time.Duration) {
	done := toFloat(processed)
	all := toFloat(total)

	var rate float64
	if secs := elapsed.Seconds(); secs > 0 {
		rate = done / secs
	}

	var eta float64
	if rate > 0 && processed.Lt(total) {
		remaining := new(uint256.Int).Sub(total, processed)
		eta = toFloat(remaining) / rate
	}

	s.transcript.Progress(logger.Blue, fmt.Sprintf(
		"Progress: %d/%d (%.5f%%) | Speed: %.0f keys/s | ETA: %s",
		processed.ToBig(), total.ToBig(), done/all*100, rate, FormatDuration(eta)))
}

func (s *Scanner) logBanner() {
	half := len(s.partitions) / 2

	s.transcript.Line(logger.Magenta, "range-scanner: bidirectional private key range scan", false)
	s.transcript.Line(logger.Bold, "Starting address scan", false)
	s.transcript.Line(logger.Plain, "Target address: "+s.config.GetTargetDescription(), false)
	s.transcript.Line(logger.Plain, "Key range: "+s.keyRange.String(), false)
	s.transcript.Line(logger.Plain, fmt.Sprintf("Using %d workers (%d ascending + %d descending)",
		len(s.partitions), half, half), false)
	s.transcript.Line(logger.Plain, fmt.Sprintf("Log file: %s (flushed every %s)",
		s.config.LogFile, s.config.FlushInterval), false)
	s.transcript.Line(logger.Plain, strings.Repeat("=", 60), false)

	for _, p := range s.partitions {
		from, to := &p.Start, &p.End
		if p.Direction == types.Descending {
			from, to = to, from
		}
		s.transcript.Line(logger.Yellow, fmt.Sprintf("Worker %d (%s) range: %x to %x",
			p.ID, p.Direction, from.ToBig(), to.ToBig()), false)
	}
}

func (s *Scanner) logOutcome(result *types.Result) {
	s.transcript.Line(logger.Bold, fmt.Sprintf("Scan finished in %.2f seconds",
		result.Duration.Seconds()), true)

	switch {
	case result.Found != nil:
		s.transcript.Line(logger.Green, "Private key found!", true)
		s.transcript.Line(logger.Plain, "Private key (HEX): "+result.Found.PrivateKeyHex, true)
		s.transcript.Line(logger.Plain, "Address: "+result.Found.Address, true)
	case result.Interrupted:
		s.transcript.Line(logger.Yellow, fmt.Sprintf(
			"Scan interrupted after %d of %d candidates", result.Processed.ToBig(),
			result.Total.ToBig()), true)
	default:
		s.transcript.Line(logger.Red, "No matching private key in the configured range", true)
	}

	s.transcript.Flush()
}

func toFloat(x *uint256.Int) float64 {
	f, _ := new(big.Float).SetInt(x.ToBig()).Float64()
	return f
}
