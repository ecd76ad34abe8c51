package keyspace

import (
	"strings"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/screa/range-scanner/pkg/types"
)

func mustRange(t testing.TB, start, end uint64) Range {
	r, err := NewRange(uint256.NewInt(start), uint256.NewInt(end))
	require.NoError(t, err)
	return r
}

func TestParseHex(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    uint64
		wantErr bool
	}{
		{name: "bare", in: "1ffffff", want: 0x1ffffff},
		{name: "prefixed", in: "0x10", want: 0x10},
		{name: "upper prefix", in: "0XfF", want: 0xff},
		{name: "leading zeros", in: "0000000000000001", want: 1},
		{name: "odd length", in: "abc", want: 0xabc},
		{name: "empty", in: "", wantErr: true},
		{name: "prefix only", in: "0x", wantErr: true},
		{name: "not hex", in: "xyz", wantErr: true},
		{name: "too long", in: strings.Repeat("f", 65), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseHex(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidHex)
				return
			}
			require.NoError(t, err)
			require.Equal(t, uint256.NewInt(tt.want), got)
		})
	}
}

func TestParseHexFullWidth(t *testing.T) {
	got, err := ParseHex(strings.Repeat("f", 64))
	require.NoError(t, err)

	want := new(uint256.Int).SetAllOne()
	require.Equal(t, want, got)
}

func TestNewRange(t *testing.T) {
	r := mustRange(t, 0x10, 0x1f)
	require.Equal(t, uint256.NewInt(16), r.Size())
	require.Equal(t, uint256.NewInt(32), r.Total())
	require.Equal(t, "10 to 1f", r.String())

	single := mustRange(t, 7, 7)
	require.Equal(t, uint256.NewInt(1), single.Size())

	_, err := NewRange(uint256.NewInt(2), uint256.NewInt(1))
	require.ErrorIs(t, err, ErrEmptyRange)
}

func TestNewRangeTooLarge(t *testing.T) {
	maxKey := new(uint256.Int).SetAllOne()

	// Size itself overflows.
	_, err := NewRange(uint256.NewInt(0), maxKey)
	require.ErrorIs(t, err, ErrRangeTooLarge)

	// Size fits but the two-pass total does not.
	half := new(uint256.Int).Rsh(maxKey, 1)
	_, err = NewRange(uint256.NewInt(0), half)
	require.ErrorIs(t, err, ErrRangeTooLarge)

	// The largest range whose total still fits.
	end := new(uint256.Int).SubUint64(half, 1)
	r, err := NewRange(uint256.NewInt(0), end)
	require.NoError(t, err)
	require.Equal(t, new(uint256.Int).Add(half, half), r.Total())
}

func TestParseRange(t *testing.T) {
	r, err := ParseRange("1000000", "0x1ffffff")
	require.NoError(t, err)
	require.Equal(t, uint256.NewInt(0x1000000), r.Size())

	_, err = ParseRange("zz", "1")
	require.ErrorIs(t, err, ErrInvalidHex)

	_, err = ParseRange("1", "zz")
	require.ErrorIs(t, err, ErrInvalidHex)

	_, err = ParseRange("20", "10")
	require.ErrorIs(t, err, ErrEmptyRange)
}

func TestPartitionExample(t *testing.T) {
	parts, err := Partition(mustRange(t, 0x10, 0x1f), 4)
	require.NoError(t, err)
	require.Len(t, parts, 4)

	want := []struct {
		start, end uint64
		dir        types.Direction
	}{
		{0x10, 0x17, types.Ascending},
		{0x18, 0x1f, types.Ascending},
		{0x10, 0x17, types.Descending},
		{0x18, 0x1f, types.Descending},
	}
	for i, w := range want {
		require.Equal(t, i, parts[i].ID)
		require.Equal(t, w.start, parts[i].Start.Uint64())
		require.Equal(t, w.end, parts[i].End.Uint64())
		require.Equal(t, w.dir, parts[i].Direction)
	}
}

func TestPartitionRemainder(t *testing.T) {
	// 10 scalars over 3 sub-ranges: 3, 3, 4.
	parts, err := Partition(mustRange(t, 0, 9), 6)
	require.NoError(t, err)
	require.Len(t, parts, 6)

	require.EqualValues(t, 0, parts[0].Start.Uint64())
	require.EqualValues(t, 2, parts[0].End.Uint64())
	require.EqualValues(t, 3, parts[1].Start.Uint64())
	require.EqualValues(t, 5, parts[1].End.Uint64())
	require.EqualValues(t, 6, parts[2].Start.Uint64())
	require.EqualValues(t, 9, parts[2].End.Uint64())
}

func TestPartitionSmallRange(t *testing.T) {
	// Three scalars cannot feed eight sub-ranges; fall back to three.
	parts, err := Partition(mustRange(t, 5, 7), 16)
	require.NoError(t, err)
	require.Len(t, parts, 6)

	for i, p := range parts {
		require.Equal(t, p.Start, p.End, "partition %d", i)
	}
}

func TestPartitionInvalid(t *testing.T) {
	r := mustRange(t, 0, 100)

	tests := []struct {
		name    string
		workers int
	}{
		{name: "zero", workers: 0},
		{name: "one", workers: 1},
		{name: "odd", workers: 5},
		{name: "negative", workers: -2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Partition(r, tt.workers)
			require.ErrorIs(t, err, ErrInvalidWorkerCount)
		})
	}

	_, err := Partition(Range{}, 2)
	require.ErrorIs(t, err, ErrEmptyRange)
}

// TestPartitionCoverage checks that each direction tiles the range exactly:
// sub-ranges are contiguous, non-overlapping, and span [start, end].
func TestPartitionCoverage(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		start := rapid.Uint64Range(0, 1<<62).Draw(rt, "start")
		length := rapid.Uint64Range(1, 1<<20).Draw(rt, "length")
		workers := 2 * rapid.IntRange(1, 64).Draw(rt, "half")

		r, err := NewRange(uint256.NewInt(start), uint256.NewInt(start+length-1))
		require.NoError(rt, err)

		parts, err := Partition(r, workers)
		require.NoError(rt, err)
		require.Zero(rt, len(parts)%2)

		half := len(parts) / 2
		for _, dir := range []types.Direction{types.Ascending, types.Descending} {
			pass := parts[:half]
			if dir == types.Descending {
				pass = parts[half:]
			}

			next := r.Start()
			covered := new(uint256.Int)
			for _, p := range pass {
				require.Equal(rt, dir, p.Direction)
				require.Equal(rt, next, &p.Start)
				require.False(rt, p.Start.Gt(&p.End))

				n := new(uint256.Int).Sub(&p.End, &p.Start)
				n.AddUint64(n, 1)
				covered.Add(covered, n)

				next = new(uint256.Int).AddUint64(&p.End, 1)
			}
			require.Equal(rt, r.End(), new(uint256.Int).SubUint64(next, 1))
			require.Equal(rt, r.Size(), covered)
		}
	})
}
