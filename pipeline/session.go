// Package pipeline implements the release commands (version control, file
// operations, engine builds and metadata rewrites) over one project session.
// Commands run strictly one after another; each returns once everything it
// started has finished and reports progress as tagged lines.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/perfgo/unirelease/cli/process"
	"github.com/perfgo/unirelease/settings"
	"github.com/rs/zerolog"
)

// Severity classifies a reported line.
type Severity uint8

const (
	Info Severity = iota
	// Command is the command line of a started process
	Command
	// Output is a line printed by a child process
	Output
	Success
	Warning
	Error
)

func (s Severity) String() string {
	switch s {
	case Info:
		return "info"
	case Command:
		return "command"
	case Output:
		return "output"
	case Success:
		return "success"
	case Warning:
		return "warning"
	case Error:
		return "error"
	}
	return fmt.Sprintf("severity(%d)", uint8(s))
}

// Line is one user-facing progress line.
type Line struct {
	Severity Severity
	// Tag names the command that produced the line
	Tag  string
	Text string
}

// Sink receives the lines of a session. Emit is never called concurrently.
type Sink interface {
	Emit(Line)
}

// Runner runs external processes. *process.Runner implements it.
type Runner interface {
	Run(ctx context.Context, inv process.Invocation, onLine process.LineFunc, onExit process.ExitFunc) int
}

// Session is the state shared by the commands of one project.
type Session struct {
	Settings *settings.BuildSettings
	Sink     Sink
	Runner   Runner
	Logger   zerolog.Logger

	// Git is the version control executable
	Git string
	// MirrorTool is the directory mirroring executable
	MirrorTool string
	// MirrorProgress keeps the mirror tool's per-file progress output
	MirrorProgress bool

	// UpToDate is set by Status when the working copy matches the remote
	// branch and cleared by anything that proves otherwise.
	UpToDate bool

	// Now returns the current time; nil means time.Now
	Now func() time.Time
}

// Time returns the session's current time.
func (s *Session) Time() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s *Session) emit(sev Severity, tag, format string, args ...any) {
	if s.Sink == nil {
		return
	}
	s.Sink.Emit(Line{Severity: sev, Tag: tag, Text: fmt.Sprintf(format, args...)})
}

// Info reports a line on behalf of a caller outside the pipeline.
func (s *Session) Info(tag, format string, args ...any) { s.emit(Info, tag, format, args...) }

func (s *Session) Warn(tag, format string, args ...any) { s.emit(Warning, tag, format, args...) }

func (s *Session) Fail(tag, format string, args ...any) { s.emit(Error, tag, format, args...) }

func (s *Session) Succeed(tag, format string, args ...any) { s.emit(Success, tag, format, args...) }

// ReportExit emits the standard exit code line of a command.
func (s *Session) ReportExit(tag string, code int) {
	if code == 0 {
		s.emit(Success, tag, "exit code 0")
		return
	}
	s.emit(Error, tag, "exit code %d", code)
}

// exec runs inv in the project directory unless inv.Dir is set. Every output
// line is emitted and, when watch is set, passed to it. report receives the
// exit code; nil reports it with ReportExit.
func (s *Session) exec(ctx context.Context, inv process.Invocation, watch func(string), report func(code int)) int {
	if inv.Dir == "" {
		inv.Dir = s.Settings.WorkDir
	}
	if report == nil {
		report = func(code int) { s.ReportExit(inv.Prefix, code) }
	}

	s.emit(Command, inv.Prefix, "%s", inv.CommandLine())

	onLine := func(id int, stream process.Stream, line string) {
		s.emit(Output, inv.Prefix, "%s", process.Format(id, stream, line))
		if watch != nil {
			watch(line)
		}
	}
	onExit := func(_ int, _ string, code int) {
		report(code)
	}

	code := s.Runner.Run(ctx, inv, onLine, onExit)
	s.Logger.Debug().
		Str("command", inv.Prefix).
		Int("exit_code", code).
		Msg("Command finished")
	return code
}
