package types

import (
	"time"

	"github.com/holiman/uint256"
)

// Direction is the order in which a worker walks its partition
type Direction int

const (
	Ascending Direction = iota
	Descending
)

func (d Direction) String() string {
	switch d {
	case Ascending:
		return "ascending"
	case Descending:
		return "descending"
	default:
		return "unknown"
	}
}

// Partition is an inclusive sub-range assigned to a single worker
type Partition struct {
	ID        int
	Start     uint256.Int
	End       uint256.Int
	Direction Direction
}

// FoundRecord is the key/address pair of a successful match
type FoundRecord struct {
	PrivateKeyHex string
	Address       string
}

// Result represents the outcome of a scan run
type Result struct {
	Found       *FoundRecord // nil when the range was exhausted or the scan was interrupted
	Processed   *uint256.Int
	Total       *uint256.Int
	Duration    time.Duration
	Interrupted bool
}

// AddressDeriver turns a fixed-width hex private key into a public address.
// Errors are expected for malformed or out-of-domain keys.
type AddressDeriver interface {
	DeriveAddress(keyHex string) (string, error)
}

// WorkerConfig contains configuration shared by all workers of a scan
type WorkerConfig struct {
	Target    string
	BatchSize uint64
	Deriver   AddressDeriver
}
