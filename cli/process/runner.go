// Package process launches external executables with captured output and
// delivers their output line by line, followed by exactly one exit code.
package process

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"al.essio.dev/pkg/shellescape"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// ExitFailed is the exit code reported when no process could be run.
const ExitFailed = -1

// Stream identifies which output of a child a line was read from.
type Stream uint8

const (
	Stdout Stream = iota
	Stderr
)

func (s Stream) String() string {
	if s == Stderr {
		return "stderr"
	}
	return "stdout"
}

// LineFunc receives one decoded output line of invocation id.
type LineFunc func(id int, stream Stream, line string)

// ExitFunc receives the exit code of invocation id. It is called exactly once
// per invocation, after the last line.
type ExitFunc func(id int, prefix string, code int)

// Invocation describes one run of an external executable.
type Invocation struct {
	// Prefix is the logical command name reported with the exit code
	Prefix string
	// Executable to run, either a path or a name looked up in PATH
	Executable string
	// Args passed to the executable
	Args []string
	// Dir is the working directory; it must exist
	Dir string
	// Env holds variables added on top of the parent environment
	Env map[string]string
}

// CommandLine renders the invocation as a shell-quoted command line.
func (inv Invocation) CommandLine() string {
	parts := make([]string, 0, len(inv.Args)+1)
	parts = append(parts, inv.Executable)
	parts = append(parts, inv.Args...)
	return shellescape.QuoteCommand(parts)
}

// environ merges the overrides into the parent environment, sorted by key so
// the child sees a stable order.
func (inv Invocation) environ() []string {
	if len(inv.Env) == 0 {
		return nil
	}
	keys := make([]string, 0, len(inv.Env))
	for k := range inv.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	env := os.Environ()
	for _, k := range keys {
		env = append(env, fmt.Sprintf("%s=%s", k, inv.Env[k]))
	}
	return env
}

// Runner starts invocations. A Runner may be shared; every invocation gets its
// own id.
type Runner struct {
	logger zerolog.Logger
	nextID atomic.Int32
}

// New creates a Runner logging diagnostics to logger.
func New(logger zerolog.Logger) *Runner {
	return &Runner{logger: logger}
}

// Run executes inv and blocks until the child exited and both of its output
// streams reached end of file. Lines are passed to onLine (never concurrently)
// and the exit code to onExit; the exit code is returned as well.
func (r *Runner) Run(ctx context.Context, inv Invocation, onLine LineFunc, onExit ExitFunc) int {
	id := int(r.nextID.Add(1))
	if onLine == nil {
		onLine = func(int, Stream, string) {}
	}
	if onExit == nil {
		onExit = func(int, string, int) {}
	}

	logger := r.logger.With().Int("pid", id).Str("prefix", inv.Prefix).Logger()

	if info, err := os.Stat(inv.Dir); err != nil || !info.IsDir() {
		logger.Error().Str("dir", inv.Dir).Msg("Working directory does not exist")
		onExit(id, inv.Prefix, ExitFailed)
		return ExitFailed
	}

	code := r.run(ctx, logger, id, inv, onLine)
	onExit(id, inv.Prefix, code)
	return code
}

func (r *Runner) run(ctx context.Context, logger zerolog.Logger, id int, inv Invocation, onLine LineFunc) int {
	cmd := exec.CommandContext(ctx, inv.Executable, inv.Args...)
	cmd.Dir = inv.Dir
	cmd.Env = inv.environ()

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create stdout pipe")
		return ExitFailed
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create stderr pipe")
		return ExitFailed
	}
	// Children never wait for input: standard input reads from the null device
	cmd.Stdin = nil

	logger.Debug().
		Str("command", inv.CommandLine()).
		Str("dir", inv.Dir).
		Msg("Starting process")

	start := time.Now()
	if err := cmd.Start(); err != nil {
		logger.Error().Err(err).Str("executable", inv.Executable).Msg("Failed to start process")
		return ExitFailed
	}

	// Both readers share one delivery lock so the sink never sees two lines
	// at once; each reader keeps its own stream in order.
	var deliver sync.Mutex
	emit := func(stream Stream) func(string) {
		return func(line string) {
			deliver.Lock()
			defer deliver.Unlock()
			onLine(id, stream, line)
		}
	}

	var g errgroup.Group
	g.Go(func() error { return readLines(stdout, emit(Stdout)) })
	g.Go(func() error { return readLines(stderr, emit(Stderr)) })
	readErr := g.Wait()

	// Wait may only be called once the pipes are drained.
	waitErr := cmd.Wait()

	if readErr != nil {
		logger.Warn().Err(readErr).Msg("Failed to read process output")
	}

	code := exitCode(waitErr)
	logger.Debug().
		Int("exit_code", code).
		Dur("duration", time.Since(start)).
		Msg("Process finished")
	return code
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return ExitFailed
}

// Format renders a line the way the console shows child output: the
// invocation id followed by the text, with stderr lines marked.
func Format(id int, stream Stream, line string) string {
	if stream == Stderr {
		return fmt.Sprintf("%d! %s", id, strings.TrimRight(line, " \t"))
	}
	return fmt.Sprintf("%d: %s", id, strings.TrimRight(line, " \t"))
}
