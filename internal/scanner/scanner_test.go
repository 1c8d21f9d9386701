package scanner

import (
	"context"
	"io"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridgeback/tasq/internal/types"
)

func TestSanitizeStripsANSIAndKeepsLine(t *testing.T) {
	got := sanitize("\x1b[31mhello\x1b[0m")
	assert.Equal(t, "hello", got)
}

func TestSanitizeRepairsInvalidUTF8(t *testing.T) {
	got := sanitize(string([]byte{0xff, 'o', 'k'}))
	assert.Contains(t, got, "ok")
}

func TestRunPrintOnlyFiresOnReadyAtEOF(t *testing.T) {
	var lines []types.LogRecord
	var readyFired bool

	s := &Scanner{
		TaskName: "A",
		Stdout:   strings.NewReader("one\ntwo\n"),
		Sink:     func(r types.LogRecord) { lines = append(lines, r) },
		OnReady:  func() { readyFired = true },
	}

	err := s.Run(context.Background())
	require.NoError(t, err)
	require.True(t, readyFired)
	require.Len(t, lines, 2)
	assert.Equal(t, "one", lines[0].Message)
	assert.Equal(t, "two", lines[1].Message)
}

func TestRunPatternMatchFiresOnceThenKeepsPrinting(t *testing.T) {
	var readyCount int
	var lines []string

	s := &Scanner{
		TaskName: "A",
		Stdout:   strings.NewReader("starting\nready\nstill going\n"),
		Pattern:  regexp.MustCompile("^ready$"),
		Sink:     func(r types.LogRecord) { lines = append(lines, r.Message) },
		OnReady:  func() { readyCount++ },
	}

	err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, readyCount)
	assert.Equal(t, []string{"starting", "ready", "still going"}, lines)
}

func TestRunPatternMissReturnsError(t *testing.T) {
	s := &Scanner{
		TaskName: "A",
		Stdout:   strings.NewReader("never matches\n"),
		Pattern:  regexp.MustCompile("^ready$"),
		OnReady:  func() {},
	}

	err := s.Run(context.Background())
	var pm *types.PatternMissError
	require.ErrorAs(t, err, &pm)
	assert.Equal(t, "A", pm.TaskName)
}

func TestRunPumpsSeparateStderrWhenSet(t *testing.T) {
	var streams []types.Stream
	s := &Scanner{
		TaskName: "A",
		Stdout:   strings.NewReader("out-line\n"),
		Stderr:   strings.NewReader("err-line\n"),
		Sink:     func(r types.LogRecord) { streams = append(streams, r.Stream) },
		OnReady:  func() {},
	}

	err := s.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, streams, 2)
	assert.Contains(t, streams, types.StreamStdout)
	assert.Contains(t, streams, types.StreamStderr)
}

func TestRunCancellationReturnsPromptly(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	blockingReader, writer := io.Pipe()
	t.Cleanup(func() { writer.Close() })

	s := &Scanner{TaskName: "A", Stdout: blockingReader, OnReady: func() {}}

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return promptly after cancellation")
	}
}
