package observer

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"

	"github.com/ridgeback/tasq/internal/bus"
	"github.com/ridgeback/tasq/internal/types"
)

// palette cycles a distinct color per task name, the same "assign on
// first sight" approach aws-copilot-cli's styling package leaves to
// fatih/color's terminal-aware defaults.
var palette = []*color.Color{
	color.New(color.FgCyan),
	color.New(color.FgMagenta),
	color.New(color.FgYellow),
	color.New(color.FgGreen),
	color.New(color.FgBlue),
	color.New(color.FgRed),
}

var levelRank = map[types.Level]int{
	types.LevelDebug: 0,
	types.LevelInfo:  1,
	types.LevelWarn:  2,
	types.LevelError: 3,
}

// ConsoleObserver is the plain-console Observer spec.md §4.5 falls
// back to when no GUI is requested: log lines prefixed with the
// originating task name, colorized per task, status transitions
// printed as they arrive, and START/STOP commands read one per line
// from Stdin.
type ConsoleObserver struct {
	Level         types.Level
	FileOutputDir string
	// Interactive controls whether Run reads START/STOP commands from
	// Stdin. False reproduces spec.md §4.5's no-observer-configured
	// fallback: log records still print with the task prefix, but
	// commands are ignored.
	Interactive bool
	Stdin       io.Reader
	Stdout      io.Writer

	mu        sync.Mutex
	colors    map[string]*color.Color
	nextColor int
	files     map[string]*os.File
}

// NewConsole builds a ConsoleObserver filtering to level and, when
// fileOutputDir is non-empty, mirroring each task's lines to
// <dir>/<task>_<DD-MM-YYYY_HH-MM-SS>.log (spec.md §6). interactive
// selects whether Stdin is read for START/STOP commands.
func NewConsole(level types.Level, fileOutputDir string, interactive bool) *ConsoleObserver {
	return &ConsoleObserver{
		Level:         level,
		FileOutputDir: fileOutputDir,
		Interactive:   interactive,
		Stdin:         os.Stdin,
		Stdout:        os.Stdout,
		colors:        make(map[string]*color.Color),
		files:         make(map[string]*os.File),
	}
}

// Run implements Observer.
func (c *ConsoleObserver) Run(ctx context.Context, b *bus.Bus) error {
	defer c.closeFiles()

	if c.Interactive {
		go c.readCommands(ctx, b)
	}

	for {
		select {
		case rec, ok := <-b.Logs():
			if !ok {
				return nil
			}
			c.printLog(rec)
		case evt, ok := <-b.Statuses():
			if !ok {
				return nil
			}
			c.printStatus(evt)
		case <-ctx.Done():
			return nil
		}
	}
}

func (c *ConsoleObserver) printLog(rec types.LogRecord) {
	if rec.Level != "" && levelRank[rec.Level] < levelRank[c.Level] {
		return
	}
	line := fmt.Sprintf("[%s]: %s", rec.TaskName, rec.Message)
	fmt.Fprintln(c.Stdout, c.colorFor(rec.TaskName).Sprint(line))
	c.mirrorToFile(rec)
}

func (c *ConsoleObserver) printStatus(evt types.TaskStatusEvent) {
	line := fmt.Sprintf("[%s]: %s", evt.Name, evt.Status)
	fmt.Fprintln(c.Stdout, c.colorFor(evt.Name).Sprint(line))
}

func (c *ConsoleObserver) colorFor(task string) *color.Color {
	c.mu.Lock()
	defer c.mu.Unlock()
	if col, ok := c.colors[task]; ok {
		return col
	}
	col := palette[c.nextColor%len(palette)]
	c.nextColor++
	c.colors[task] = col
	return col
}

// mirrorToFile lazily opens <task>_<DD-MM-YYYY_HH-MM-SS>.log on a
// task's first line and appends every subsequent line to it, per
// spec.md §6's --file-output contract.
func (c *ConsoleObserver) mirrorToFile(rec types.LogRecord) {
	if c.FileOutputDir == "" {
		return
	}

	c.mu.Lock()
	f, ok := c.files[rec.TaskName]
	if !ok {
		stamp := time.Now().Format("02-01-2006_15-04-05")
		path := filepath.Join(c.FileOutputDir, fmt.Sprintf("%s_%s.log", rec.TaskName, stamp))
		opened, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			c.mu.Unlock()
			return
		}
		f = opened
		c.files[rec.TaskName] = f
	}
	c.mu.Unlock()

	fmt.Fprintln(f, rec.Message)
}

func (c *ConsoleObserver) closeFiles() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, f := range c.files {
		f.Close()
	}
}

// readCommands parses "START <task>" / "STOP <task>" lines off Stdin
// into TaskCommands, the interactive control surface spec.md §4.5
// assigns to the Observer. It returns once Stdin closes, or at the first
// line read after ctx ends; ctx is not checked while a read blocks.
func (c *ConsoleObserver) readCommands(ctx context.Context, b *bus.Bus) {
	sc := bufio.NewScanner(c.Stdin)
	for sc.Scan() {
		select {
		case <-ctx.Done():
			return
		default:
		}

		fields := strings.Fields(sc.Text())
		if len(fields) != 2 {
			continue
		}

		var cmd types.Command
		switch strings.ToUpper(fields[0]) {
		case string(types.CommandStart):
			cmd = types.CommandStart
		case string(types.CommandStop):
			cmd = types.CommandStop
		default:
			continue
		}

		b.SendCommand(types.TaskCommand{Name: fields[1], Command: cmd})
	}
}
