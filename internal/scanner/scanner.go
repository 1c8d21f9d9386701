// Package scanner reads a running task's stdout/stderr, forwards each line
// as a log record, strips ANSI escapes so every downstream sink sees plain
// text, and fires a one-shot readiness callback on the first line matching
// a task's completion pattern.
//
// Buffer sizing and the two-pipe supervision shape are grounded on
// edirooss-zmux-server's internal/infrastructure/processmgr/process.go,
// the corpus's own example of multiplexing a child's stdout/stderr with
// readiness detection on one of the streams.
package scanner

import (
	"bufio"
	"context"
	"io"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/ridgeback/tasq/internal/types"
)

// ansiEscape matches CSI/OSC terminal escape sequences. No third-party
// ANSI-stripping library appears anywhere in the retrieved corpus, and a
// single compiled regexp is the idiomatic, dependency-free way to express
// this (see DESIGN.md for the explicit justification).
var ansiEscape = regexp.MustCompile("\x1b\\[[0-9;]*[a-zA-Z]|\x1b\\][^\x07\x1b]*(?:\x07|\x1b\\\\)")

// sanitize repairs malformed UTF-8 (never raising, per spec.md §4.2) and
// strips ANSI escapes from a single line. Lines reach it without their
// trailing newline (bufio.Scanner drops it), and the forwarded message
// does not carry one.
func sanitize(line string) string {
	return ansiEscape.ReplaceAllString(strings.ToValidUTF8(line, "�"), "")
}

// readTimeout bounds how often the scan loop checks for cancellation,
// matching spec.md §4.2's "bounded read timeout (on the order of 1 s)".
const readTimeout = time.Second

// levelFor assigns the level attribute spec.md §6 requires on every
// crossing-the-boundary log record: stdout lines are informational,
// stderr lines are elevated since a task's own classification of its
// stream is the only signal this layer has.
func levelFor(stream types.Stream) types.Level {
	if stream == types.StreamStderr {
		return types.LevelWarn
	}
	return types.LevelInfo
}

// Scanner reads one task's output streams.
type Scanner struct {
	TaskName string

	Stdout io.Reader
	// Stderr is nil when the handler already merged stderr into Stdout
	// (PatternInStderr) or when no separate stderr pump is needed.
	Stderr io.Reader

	// Pattern is the compiled completion pattern, or nil when readiness
	// is pure natural-exit.
	Pattern *regexp.Regexp

	// Sink receives every forwarded line.
	Sink func(types.LogRecord)

	// OnReady fires exactly once: on first pattern match, or on natural
	// exit when Pattern is nil. Guarded internally; callers never need
	// to dedupe their own callback.
	OnReady func()

	readyOnce sync.Once
}

func (s *Scanner) fireReady() {
	if s.OnReady == nil {
		return
	}
	s.readyOnce.Do(s.OnReady)
}

// Run pumps stdout (and stderr, if set) until both streams close, then
// resolves readiness. It returns *types.PatternMissError if a completion
// pattern was configured but never matched before the stdout stream
// closed. Context cancellation is swallowed: it is the expected shutdown
// path (spec.md §5).
func (s *Scanner) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	matched := false

	wg.Add(1)
	go func() {
		defer wg.Done()
		matched = s.pump(ctx, s.Stdout, types.StreamStdout, true)
	}()

	if s.Stderr != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.pump(ctx, s.Stderr, types.StreamStderr, false)
		}()
	}

	wg.Wait()

	if ctx.Err() != nil {
		return nil
	}

	if s.Pattern != nil {
		if !matched {
			return &types.PatternMissError{TaskName: s.TaskName}
		}
		return nil
	}

	s.fireReady()
	return nil
}

// pump reads lines from r, forwards each as a LogRecord, and — when
// testPattern is true and a Pattern is configured — tests each stdout
// line against it, firing OnReady on first match. It returns whether the
// pattern matched during this pump's lifetime.
func (s *Scanner) pump(ctx context.Context, r io.Reader, stream types.Stream, testPattern bool) bool {
	lines := make(chan string)
	done := make(chan struct{})

	go func() {
		defer close(done)
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 64*1024), 1024*1024)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	matched := false
	ticker := time.NewTicker(readTimeout)
	defer ticker.Stop()

	for {
		select {
		case line, ok := <-lines:
			if !ok {
				return matched
			}
			clean := sanitize(line)
			if s.Sink != nil {
				s.Sink(types.LogRecord{
					Timestamp: time.Now(),
					Level:     levelFor(stream),
					TaskName:  s.TaskName,
					Stream:    stream,
					Message:   clean,
				})
			}
			if testPattern && s.Pattern != nil && !matched && s.Pattern.MatchString(clean) {
				matched = true
				s.fireReady()
			}
		case <-done:
			// The producer only closes done after every Scan()-ed line
			// has already been delivered synchronously over lines, so
			// nothing is left to drain here (spec.md §4.2).
			return matched
		case <-ctx.Done():
			return matched
		case <-ticker.C:
			// Wake up periodically purely to stay cancellable; no work.
		}
	}
}
