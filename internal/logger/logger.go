// Package logger writes the scan transcript to the console and to an
// append-only log file. Writes to the file never wait: if another goroutine
// holds the file, the line only goes to the console.
package logger

import (
	"bufio"
	"io"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/btcsuite/btclog/v2"
	"github.com/lightningnetwork/lnd/clock"
	"golang.org/x/term"
)

const (
	// TimeFormat is the timestamp layout of every transcript line.
	TimeFormat = "2006-01-02 15:04:05"

	// DefaultFlushInterval bounds how long a line may sit in the file
	// buffer before it is forced to disk.
	DefaultFlushInterval = 30 * time.Second

	// blockIndent prefixes continuation lines of a block.
	blockIndent = "  "
)

// Style is the console decoration of a message. It never reaches the file.
type Style int

const (
	Plain Style = iota
	Bold
	Red
	Green
	Yellow
	Blue
	Magenta
	Cyan
)

const ansiReset = "\x1b[0m"

var ansiCodes = map[Style]string{
	Bold:    "\x1b[1m",
	Red:     "\x1b[31m",
	Green:   "\x1b[32m",
	Yellow:  "\x1b[33m",
	Blue:    "\x1b[34m",
	Magenta: "\x1b[35m",
	Cyan:    "\x1b[36m",
}

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*m`)

// Strip removes ANSI SGR sequences from s.
func Strip(s string) string {
	if !strings.Contains(s, "\x1b") {
		return s
	}
	return ansiPattern.ReplaceAllString(s, "")
}

// Option configures a Logger.
type Option func(*Logger)

// WithClock sets the time source used for timestamps and flush scheduling.
func WithClock(c clock.Clock) Option {
	return func(l *Logger) { l.clock = c }
}

// WithColor enables or disables console decoration.
func WithColor(enabled bool) Option {
	return func(l *Logger) { l.color = enabled }
}

// WithFlushInterval sets the maximum age of unflushed file output.
func WithFlushInterval(d time.Duration) Option {
	return func(l *Logger) { l.flushInterval = d }
}

// WithDiagnostics sets where log I/O failures are reported.
func WithDiagnostics(d btclog.Logger) Option {
	return func(l *Logger) { l.diag = d }
}

// WithConsole sets the console writer.
func WithConsole(w io.Writer) Option {
	return func(l *Logger) { l.console = w }
}

// syncer is implemented by sinks that can be forced to stable storage.
type syncer interface {
	Sync() error
}

// Logger is the dual-sink transcript writer.
type Logger struct {
	clock         clock.Clock
	flushInterval time.Duration
	diag          btclog.Logger

	consoleMu sync.Mutex
	console   io.Writer
	color     bool
	midLine   bool // a progress line is on screen without a newline

	// fileMu guards the buffered file writer and the flush timestamp.
	fileMu    sync.Mutex
	sink      io.Writer
	closer    io.Closer
	buf       *bufio.Writer
	lastFlush time.Time

	writeErrOnce sync.Once
	flushErrOnce sync.Once
}

// New creates a logger writing to console and file. file may be nil, in
// which case only the console is written.
func New(console, file io.Writer, opts ...Option) *Logger {
	l := &Logger{
		clock:         clock.NewDefaultClock(),
		flushInterval: DefaultFlushInterval,
		diag:          btclog.Disabled,
		console:       console,
		sink:          file,
	}
	for _, opt := range opts {
		opt(l)
	}

	if l.console == nil {
		l.console = io.Discard
	}
	if file != nil {
		l.buf = bufio.NewWriter(file)
		if c, ok := file.(io.Closer); ok {
			l.closer = c
		}
	}
	l.lastFlush = l.clock.Now()

	return l
}

// Open creates a logger writing to stdout and appending to the file at
// path. Console decoration defaults to on when stdout is a terminal.
func Open(path string, opts ...Option) (*Logger, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}

	defaults := []Option{
		WithConsole(os.Stdout),
		WithColor(term.IsTerminal(int(os.Stdout.Fd()))),
	}
	return New(nil, file, append(defaults, opts...)...), nil
}

// Line writes a single message.
func (l *Logger) Line(style Style, msg string, force bool) {
	stamp := l.stamp()
	l.writeConsole(stamp+l.paint(style, msg)+"\n", false)
	l.writeFile(stamp+Strip(msg)+"\n", force)
}

// Block writes a title followed by indented continuation lines, all with
// the same timestamp. style applies to the continuation lines.
func (l *Logger) Block(style Style, title string, lines []string, force bool) {
	stamp := l.stamp()

	var console, file strings.Builder
	console.WriteString(stamp + title + "\n")
	file.WriteString(stamp + Strip(title) + "\n")
	for _, line := range lines {
		console.WriteString(stamp + blockIndent + l.paint(style, line) + "\n")
		file.WriteString(stamp + blockIndent + Strip(line) + "\n")
	}

	l.writeConsole(console.String(), false)
	l.writeFile(file.String(), force)
}

// Progress overwrites the current console line with msg. The file receives
// an ordinary line.
func (l *Logger) Progress(style Style, msg string) {
	stamp := l.stamp()
	l.writeConsole(stamp+l.paint(style, msg), true)
	l.writeFile(stamp+Strip(msg)+"\n", false)
}

// Flush forces buffered file output to disk, waiting for the file lock.
func (l *Logger) Flush() {
	if l.buf == nil {
		return
	}
	l.fileMu.Lock()
	defer l.fileMu.Unlock()
	l.flushLocked()
}

// Close flushes and closes the file sink.
func (l *Logger) Close() error {
	l.Flush()

	l.consoleMu.Lock()
	if l.midLine {
		_, _ = io.WriteString(l.console, "\n")
		l.midLine = false
	}
	l.consoleMu.Unlock()

	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

func (l *Logger) stamp() string {
	return "[" + l.clock.Now().Format(TimeFormat) + "] "
}

func (l *Logger) paint(style Style, msg string) string {
	code, ok := ansiCodes[style]
	if !l.color || !ok {
		return msg
	}
	return code + msg + ansiReset
}

func (l *Logger) writeConsole(text string, progress bool) {
	l.consoleMu.Lock()
	defer l.consoleMu.Unlock()

	switch {
	case progress:
		text = "\r" + text
	case l.midLine:
		text = "\n" + text
	}
	l.midLine = progress

	_, _ = io.WriteString(l.console, text)
}

// writeFile appends text to the file buffer unless another writer holds
// the file, in which case the text is dropped.
func (l *Logger) writeFile(text string, force bool) {
	if l.buf == nil {
		return
	}
	if !l.fileMu.TryLock() {
		return
	}
	defer l.fileMu.Unlock()

	if _, err := l.buf.WriteString(text); err != nil {
		l.writeErrOnce.Do(func() {
			l.diag.Errorf("Unable to write log file: %v", err)
		})
		return
	}

	if force || l.clock.Now().Sub(l.lastFlush) > l.flushInterval {
		l.flushLocked()
	}
}

// flushLocked must be called with fileMu held.
func (l *Logger) flushLocked() {
	err := l.buf.Flush()
	if err == nil {
		if s, ok := l.sink.(syncer); ok {
			err = s.Sync()
		}
	}
	l.lastFlush = l.clock.Now()

	if err != nil {
		l.flushErrOnce.Do(func() {
			l.diag.Errorf("Unable to flush log file: %v", err)
		})
	}
}
