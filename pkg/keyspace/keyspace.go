// Package keyspace holds the scalar range being searched and the arithmetic
// that splits it across workers.
package keyspace

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/holiman/uint256"

	"github.com/screa/range-scanner/pkg/types"
)

// Errors
var (
	ErrInvalidHex         = errors.New("invalid hex scalar")
	ErrEmptyRange         = errors.New("range start is greater than range end")
	ErrRangeTooLarge      = errors.New("range is too large to scan twice")
	ErrInvalidWorkerCount = errors.New("worker count must be even and at least 2")
)

// maxHexDigits is the width of a 256-bit scalar in hex.
const maxHexDigits = 64

// Range is an inclusive set of scalars [Start, End].
type Range struct {
	start uint256.Int
	end   uint256.Int
	size  uint256.Int
	total uint256.Int
}

// NewRange builds a range, rejecting empty ranges and ranges whose two-pass
// total would not fit in 256 bits.
func NewRange(start, end *uint256.Int) (Range, error) {
	var r Range
	if start.Gt(end) {
		return r, ErrEmptyRange
	}

	r.start.Set(start)
	r.end.Set(end)

	r.size.Sub(end, start)
	if _, overflow := r.size.AddOverflow(&r.size, uint256.NewInt(1)); overflow {
		return Range{}, ErrRangeTooLarge
	}
	if _, overflow := r.total.AddOverflow(&r.size, &r.size); overflow {
		return Range{}, ErrRangeTooLarge
	}

	return r, nil
}

// ParseRange parses both bounds from hex (with or without 0x).
func ParseRange(startHex, endHex string) (Range, error) {
	start, err := ParseHex(startHex)
	if err != nil {
		return Range{}, fmt.Errorf("start: %w", err)
	}
	end, err := ParseHex(endHex)
	if err != nil {
		return Range{}, fmt.Errorf("end: %w", err)
	}
	return NewRange(start, end)
}

// ParseHex decodes a hex scalar of up to 64 digits.
func ParseHex(s string) (*uint256.Int, error) {
	h := strings.TrimSpace(s)
	if len(h) >= 2 && (h[0:2] == "0x" || h[0:2] == "0X") {
		h = h[2:]
	}
	if len(h) == 0 || len(h) > maxHexDigits {
		return nil, fmt.Errorf("%w: %q", ErrInvalidHex, s)
	}

	padded := strings.Repeat("0", maxHexDigits-len(h)) + h
	b, err := hex.DecodeString(padded)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidHex, s)
	}
	return new(uint256.Int).SetBytes(b), nil
}

// Start returns a copy of the lower bound.
func (r Range) Start() *uint256.Int { return new(uint256.Int).Set(&r.start) }

// End returns a copy of the upper bound.
func (r Range) End() *uint256.Int { return new(uint256.Int).Set(&r.end) }

// Size returns the number of scalars in the range.
func (r Range) Size() *uint256.Int { return new(uint256.Int).Set(&r.size) }

// Total returns the theoretical candidate count of a scan, which visits
// the range once in each direction.
func (r Range) Total() *uint256.Int { return new(uint256.Int).Set(&r.total) }

func (r Range) String() string {
	return fmt.Sprintf("%x to %x", r.start.ToBig(), r.end.ToBig())
}

// Partition splits r into workers/2 contiguous sub-ranges and returns them
// twice: first tagged Ascending, then tagged Descending. The last sub-range
// absorbs the division remainder. When the range holds fewer scalars than
// workers/2, one single-scalar sub-range is produced per scalar instead.
func Partition(r Range, workers int) ([]types.Partition, error) {
	if workers < 2 || workers%2 != 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidWorkerCount, workers)
	}
	if r.size.IsZero() {
		return nil, ErrEmptyRange
	}

	half := uint64(workers / 2)
	if r.size.LtUint64(half) {
		half = r.size.Uint64()
	}

	chunk := new(uint256.Int).Div(&r.size, uint256.NewInt(half))
	bounds := make([][2]uint256.Int, half)
	for i := uint64(0); i < half; i++ {
		var start, end uint256.Int
		start.Mul(chunk, uint256.NewInt(i))
		start.Add(&start, &r.start)
		if i == half-1 {
			end.Set(&r.end)
		} else {
			end.Add(&start, chunk)
			end.SubUint64(&end, 1)
		}
		bounds[i] = [2]uint256.Int{start, end}
	}

	parts := make([]types.Partition, 0, 2*half)
	for _, dir := range []types.Direction{types.Ascending, types.Descending} {
		for _, b := range bounds {
			parts = append(parts, types.Partition{
				ID:        len(parts),
				Start:     b[0],
				End:       b[1],
				Direction: dir,
			})
		}
	}
	return parts, nil
}
