package worker

import (
	"context"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/screa/range-scanner/internal/crypto"
	"github.com/screa/range-scanner/internal/logger"
	"github.com/screa/range-scanner/pkg/shared"
	"github.com/screa/range-scanner/pkg/types"
)

// DefaultBatchSize is the number of candidates tested between checks of
// the shared stop conditions.
const DefaultBatchSize = 10000

// Logger is the subset of the transcript logger a worker writes to.
type Logger interface {
	Line(style logger.Style, msg string, force bool)
	Block(style logger.Style, title string, lines []string, force bool)
}

// Worker scans one partition of the keyspace
type Worker struct {
	config     *types.WorkerConfig
	partition  types.Partition
	found      *shared.FoundSlot
	processed  *shared.Counter
	transcript Logger

	batchSize uint64

	// Pre-allocated buffers for performance
	candidate uint256.Int
	hexBuffer [crypto.KeyHexLen]byte
}

// NewWorker creates a new worker instance
func NewWorker(config *types.WorkerConfig, partition types.Partition,
	found *shared.FoundSlot, processed *shared.Counter, transcript Logger) *Worker {

	batchSize := config.BatchSize
	if batchSize == 0 {
		batchSize = DefaultBatchSize
	}

	return &Worker{
		config:     config,
		partition:  partition,
		found:      found,
		processed:  processed,
		transcript: transcript,
		batchSize:  batchSize,
	}
}

// Run scans the partition in batches until it is exhausted, a match is
// recorded by any worker, or ctx is cancelled. The stop conditions are
// checked before every batch.
func (w *Worker) Run(ctx context.Context) {
	if w.partition.Direction == types.Descending {
		w.runDescending(ctx)
		return
	}
	w.runAscending(ctx)
}

func (w *Worker) shouldStop(ctx context.Context) bool {
	return w.found.IsSet() || ctx.Err() != nil
}

func (w *Worker) runAscending(ctx context.Context) {
	var (
		start = &w.partition.Start
		end   = &w.partition.End

		current  = new(uint256.Int).Set(start)
		batchEnd = new(uint256.Int)
		step     = uint256.NewInt(w.batchSize - 1)
	)

	for {
		if w.shouldStop(ctx) {
			return
		}

		// Clamp the batch to end, also when current+step wraps.
		if _, overflow := batchEnd.AddOverflow(current, step); overflow || batchEnd.Gt(end) {
			batchEnd.Set(end)
		}
		n := new(uint256.Int).Sub(batchEnd, current).Uint64() + 1

		w.candidate.Set(current)
		for i := uint64(0); i < n; i++ {
			if w.check() {
				return
			}
			w.candidate.AddUint64(&w.candidate, 1)
		}

		w.processed.Add(n)

		if batchEnd.Eq(end) {
			return
		}
		current.AddUint64(batchEnd, 1)
	}
}

func (w *Worker) runDescending(ctx context.Context) {
	var (
		start = &w.partition.Start
		end   = &w.partition.End

		current    = new(uint256.Int).Set(end)
		batchStart = new(uint256.Int)
		step       = uint256.NewInt(w.batchSize - 1)
	)

	for {
		if w.shouldStop(ctx) {
			return
		}

		// Clamp the batch to start, also when current-step wraps below 0.
		if _, underflow := batchStart.SubOverflow(current, step); underflow || batchStart.Lt(start) {
			batchStart.Set(start)
		}
		n := new(uint256.Int).Sub(current, batchStart).Uint64() + 1

		w.candidate.Set(current)
		for i := uint64(0); i < n; i++ {
			if w.check() {
				return
			}
			w.candidate.SubUint64(&w.candidate, 1)
		}

		w.processed.Add(n)

		if batchStart.Eq(start) {
			return
		}
		current.SubUint64(batchStart, 1)
	}
}

// check tests the current candidate and records it if it matches.
// Derivation errors are treated as a miss.
func (w *Worker) check() bool {
	crypto.EncodeKeyInto(w.hexBuffer[:], &w.candidate)
	keyHex := string(w.hexBuffer[:])

	address, err := w.config.Deriver.DeriveAddress(keyHex)
	if err != nil || address != w.config.Target {
		return false
	}

	w.report(types.FoundRecord{PrivateKeyHex: keyHex, Address: address})
	return true
}

func (w *Worker) report(rec types.FoundRecord) {
	if w.found.TrySet(rec) {
		log.Debugf("Worker %d recorded match %s", w.partition.ID, rec.PrivateKeyHex)
	} else {
		log.Debugf("Worker %d found %s after another worker already recorded a match",
			w.partition.ID, rec.PrivateKeyHex)
	}

	w.transcript.Line(logger.Green, fmt.Sprintf("Worker %d (%s) found a matching private key!",
		w.partition.ID, w.partition.Direction), true)
	w.transcript.Block(logger.Cyan, "Private key details:", []string{
		"Private key (HEX): " + rec.PrivateKeyHex,
		"Private key (DEC): " + w.candidate.ToBig().String(),
		"Address: " + rec.Address,
	}, true)
}
