package pipeline

// This file contains the headless engine build of the configured targets.

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/perfgo/unirelease/cli/process"
	"github.com/perfgo/unirelease/cli/unity"
)

const buildTag = "build"

// BuildTargets builds every configured target in order. A failing target does
// not stop the remaining ones; the error names all targets that failed.
func (s *Session) BuildTargets(ctx context.Context) error {
	var failed []string
	for i, target := range s.Settings.Targets {
		if code := s.BuildTarget(ctx, i); code != 0 {
			failed = append(failed, target)
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("build failed for %s", strings.Join(failed, ", "))
	}
	return nil
}

// BuildTarget builds the target at index. On exit code 0 the target is marked
// succeeded. The engine log is kept as a build report either way.
func (s *Session) BuildTarget(ctx context.Context, index int) int {
	if index < 0 || index >= len(s.Settings.Targets) {
		s.emit(Error, buildTag, "no build target at index %d", index)
		return process.ExitFailed
	}
	target := s.Settings.Targets[index]
	if s.Settings.EnginePath == "" {
		s.emit(Error, buildTag, "engine executable is not configured")
		return process.ExitFailed
	}

	logPath := unity.LogPath(s.Settings.WorkDir, target)
	prev, err := unity.RotateLog(logPath)
	if err != nil {
		s.emit(Error, buildTag, "%s: %v", target, err)
		return process.ExitFailed
	}
	if prev != "" {
		s.emit(Info, buildTag, "previous log moved to %s", prev)
	}

	s.emit(Info, buildTag, "building %s (%d/%d)", target, index+1, len(s.Settings.Targets))
	code := s.exec(ctx, process.Invocation{
		Prefix:     buildTag,
		Executable: s.Settings.EnginePath,
		Args: unity.BuildArgs(unity.Options{
			Target:      target,
			ProjectPath: s.Settings.WorkDir,
			LogFile:     logPath,
		}),
		Env: s.Settings.BuildEnv,
	}, nil, nil)

	if code == 0 {
		if err := s.Settings.MarkSucceeded(target); err != nil {
			s.emit(Error, buildTag, "%v", err)
			return process.ExitFailed
		}
		s.emit(Success, buildTag, "%s built", target)
	}

	s.keepReport(target, logPath)
	return code
}

func (s *Session) keepReport(target, logPath string) {
	if _, err := os.Stat(logPath); errors.Is(err, os.ErrNotExist) {
		s.emit(Warning, buildTag, "%s: no build log written", target)
		return
	}

	report := unity.ReportPath(s.Settings.WorkDir, target)
	created, err := unity.CopyReport(logPath, report)
	if err != nil {
		s.emit(Warning, buildTag, "%s: %v", target, err)
		return
	}
	s.emit(Info, buildTag, "build report %s", s.relative(report))
	if created {
		s.emit(Info, buildTag, "created %s", s.relative(unity.MetaPath(report)))
	}
}
