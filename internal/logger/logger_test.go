package logger

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/btcsuite/btclog/v2"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2024, time.March, 9, 14, 5, 7, 0, time.Local)

func newTestLogger(opts ...Option) (*Logger, *bytes.Buffer, *bytes.Buffer, *clock.TestClock) {
	var console, file bytes.Buffer
	c := clock.NewTestClock(testTime)
	opts = append([]Option{WithClock(c)}, opts...)
	return New(&console, &file, opts...), &console, &file, c
}

func TestLineForcedFlush(t *testing.T) {
	l, console, file, _ := newTestLogger()

	l.Line(Green, "match found", true)

	require.Equal(t, "[2024-03-09 14:05:07] match found\n", file.String())
	require.Equal(t, "[2024-03-09 14:05:07] match found\n", console.String())
}

func TestLineDeferredFlush(t *testing.T) {
	l, _, file, c := newTestLogger()

	l.Line(Plain, "first", false)
	require.Empty(t, file.String())
	require.Positive(t, l.buf.Buffered())

	// Still inside the flush interval.
	c.SetTime(testTime.Add(DefaultFlushInterval))
	l.Line(Plain, "second", false)
	require.Empty(t, file.String())

	// Past the interval: this write flushes everything buffered so far.
	c.SetTime(testTime.Add(DefaultFlushInterval + time.Second))
	l.Line(Plain, "third", false)
	require.Equal(t, 3, strings.Count(file.String(), "\n"))
	require.Zero(t, l.buf.Buffered())

	// The flush reset the timer.
	l.Line(Plain, "fourth", false)
	require.Equal(t, 3, strings.Count(file.String(), "\n"))
}

func TestColorOnlyOnConsole(t *testing.T) {
	l, console, file, _ := newTestLogger(WithColor(true))

	l.Line(Red, "not found", true)

	require.Equal(t, "[2024-03-09 14:05:07] \x1b[31mnot found\x1b[0m\n", console.String())
	require.Equal(t, "[2024-03-09 14:05:07] not found\n", file.String())
}

func TestStripEmbeddedSequences(t *testing.T) {
	l, _, file, _ := newTestLogger()

	l.Line(Plain, "\x1b[1mbold\x1b[0m and \x1b[36mcyan\x1b[0m", true)

	require.Equal(t, "[2024-03-09 14:05:07] bold and cyan\n", file.String())
	require.Equal(t, "plain", Strip("plain"))
}

func TestBlock(t *testing.T) {
	l, console, file, _ := newTestLogger(WithColor(true))

	l.Block(Cyan, "Key details:", []string{"hex: 19", "address: abc"}, true)

	want := "[2024-03-09 14:05:07] Key details:\n" +
		"[2024-03-09 14:05:07]   hex: 19\n" +
		"[2024-03-09 14:05:07]   address: abc\n"
	require.Equal(t, want, file.String())
	require.Contains(t, console.String(), "\x1b[36mhex: 19\x1b[0m")
}

func TestProgressOverwritesConsoleLine(t *testing.T) {
	l, console, file, _ := newTestLogger()

	l.Progress(Blue, "10%")
	l.Progress(Blue, "20%")
	l.Line(Plain, "done", true)

	require.Equal(t,
		"\r[2024-03-09 14:05:07] 10%"+
			"\r[2024-03-09 14:05:07] 20%"+
			"\n[2024-03-09 14:05:07] done\n",
		console.String())
	require.Equal(t,
		"[2024-03-09 14:05:07] 10%\n"+
			"[2024-03-09 14:05:07] 20%\n"+
			"[2024-03-09 14:05:07] done\n",
		file.String())
}

func TestContendedFileLockSkipsFile(t *testing.T) {
	l, console, file, _ := newTestLogger()

	l.fileMu.Lock()
	l.Line(Plain, "skipped", true)
	l.fileMu.Unlock()

	require.Contains(t, console.String(), "skipped")
	require.Zero(t, l.buf.Buffered())
	require.Empty(t, file.String())

	l.Line(Plain, "written", true)
	require.Equal(t, "[2024-03-09 14:05:07] written\n", file.String())
}

type failingWriter struct {
	writes int
}

func (f *failingWriter) Write(p []byte) (int, error) {
	f.writes++
	return 0, errors.New("disk full")
}

func TestFileErrorsDoNotStopConsole(t *testing.T) {
	var console bytes.Buffer
	sink := &failingWriter{}
	l := New(&console, sink)

	for i := 0; i < 3; i++ {
		l.Line(Plain, "line", true)
	}

	require.Equal(t, 3, strings.Count(console.String(), "line"))
	// bufio keeps the first error, so the sink only sees one attempt.
	require.Equal(t, 1, sink.writes)
}

func TestFileErrorsReportedOnce(t *testing.T) {
	var console, diagOut bytes.Buffer
	diag := btclog.NewSLogger(btclog.NewDefaultHandler(&diagOut))
	l := New(&console, &failingWriter{}, WithDiagnostics(diag))

	for i := 0; i < 3; i++ {
		l.Line(Plain, "line", true)
	}
	l.Flush()

	// The first line fails on flush, the later ones on write.
	out := diagOut.String()
	require.Equal(t, 1, strings.Count(out, "Unable to flush log file"))
	require.Equal(t, 1, strings.Count(out, "Unable to write log file"))
	require.Contains(t, out, "disk full")
	require.NotContains(t, console.String(), "Unable to")
}

func TestConsoleOnly(t *testing.T) {
	var console bytes.Buffer
	l := New(&console, nil)

	l.Line(Plain, "hello", true)
	l.Flush()
	require.NoError(t, l.Close())
	require.Contains(t, console.String(), "hello")
}

func TestOpenAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.log")
	require.NoError(t, os.WriteFile(path, []byte("previous run\n"), 0644))

	l, err := Open(path, WithConsole(&bytes.Buffer{}))
	require.NoError(t, err)
	l.Line(Plain, "new run", false)

	// Not yet forced to disk.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "previous run\n", string(data))

	require.NoError(t, l.Close())
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(data), "previous run\n["))
	require.True(t, strings.HasSuffix(string(data), "] new run\n"))
}

func TestOpenMissingDirectory(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing", "scan.log"))
	require.Error(t, err)
}
