package pipeline

// This file contains the version control commands.

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/perfgo/unirelease/cli/process"
)

const (
	gitTag = "git"

	remote = "origin"
	branch = "main"

	upToDateMarker = "Your branch is up to date"
)

func (s *Session) git(ctx context.Context, watch func(string), args ...string) int {
	return s.exec(ctx, process.Invocation{
		Prefix:     gitTag,
		Executable: s.gitExecutable(),
		Args:       args,
	}, watch, nil)
}

// Status queries the working copy and the commits not yet pushed. UpToDate is
// only set when git confirms the branch is up to date and neither local
// changes nor unpushed commits exist.
func (s *Session) Status(ctx context.Context) int {
	s.UpToDate = false

	confirmed := false
	code := s.git(ctx, func(line string) {
		if strings.Contains(line, upToDateMarker) {
			confirmed = true
		}
	}, "status")
	if code != 0 {
		return code
	}

	changed := 0
	code = s.git(ctx, func(line string) {
		if strings.TrimSpace(line) != "" {
			changed++
		}
	}, "status", "--porcelain=v1")
	if code != 0 {
		return code
	}

	unpushed := 0
	code = s.git(ctx, func(line string) {
		if strings.TrimSpace(line) != "" {
			unpushed++
		}
	}, "log", "--pretty=oneline", fmt.Sprintf("%s/%s..HEAD", remote, branch))
	if code != 0 {
		return code
	}

	s.UpToDate = confirmed && changed == 0 && unpushed == 0
	switch {
	case s.UpToDate:
		s.emit(Success, gitTag, "working copy is up to date with %s/%s", remote, branch)
	case !confirmed && changed == 0 && unpushed == 0:
		s.emit(Warning, gitTag, "branch is not confirmed up to date with %s/%s", remote, branch)
	default:
		s.emit(Warning, gitTag, "not up to date: %d changed files, %d unpushed commits", changed, unpushed)
	}
	return 0
}

// Pull rebases the working copy onto the remote branch.
func (s *Session) Pull(ctx context.Context) int {
	return s.git(ctx, nil, "pull", "--rebase=true", "--no-autostash", remote, branch)
}

// PushOptions controls PushWithLabel.
type PushOptions struct {
	// Message of the release commit; empty derives it from the version
	Message string
	// Options are passed to git push before the remote
	Options []string
	// DryRun prints the commands instead of running them
	DryRun bool
}

// TagName is the release tag of version on date.
func TagName(date time.Time, version string) string {
	return date.Format("2006-01-02") + "_" + version
}

// ReleaseFiles are the tracked files a version change modifies, relative to
// the project directory.
func (s *Session) ReleaseFiles() []string {
	return []string{
		s.relative(s.Settings.IdentityPath()),
		s.relative(s.Settings.BuildInfoPath()),
	}
}

func (s *Session) relative(path string) string {
	rel, err := filepath.Rel(s.Settings.WorkDir, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}

// PushWithLabel commits the release files, labels the commit with a dated
// version tag and pushes branch and tags.
func (s *Session) PushWithLabel(ctx context.Context, opts PushOptions) int {
	version := s.Settings.ProductVersion
	message := opts.Message
	if message == "" {
		message = fmt.Sprintf("Version %s (build %s)", version, s.Settings.BundleVersion)
	}
	files := s.ReleaseFiles()

	commit := append([]string{"commit", "-m", message}, files...)
	tag := []string{"tag", "-f", TagName(s.Time(), version)}
	push := append(append([]string{"push"}, opts.Options...), "--tags", remote, branch)
	steps := [][]string{commit, tag, push}

	if opts.DryRun {
		for _, args := range steps {
			inv := process.Invocation{Executable: s.gitExecutable(), Args: args}
			s.emit(Command, gitTag, "(dry run) %s", inv.CommandLine())
		}
		s.emit(Warning, gitTag, "dry run: remember to revert %s and %s", files[0], files[1])
		return 0
	}

	for _, args := range steps {
		if code := s.git(ctx, nil, args...); code != 0 {
			return code
		}
	}
	return 0
}

func (s *Session) gitExecutable() string {
	if s.Git == "" {
		return "git"
	}
	return s.Git
}

// Revert force-checks-out files. Glob patterns are expanded relative to the
// project directory; nothing is run when no file remains.
func (s *Session) Revert(ctx context.Context, files []string) int {
	paths, err := s.expand(files)
	if err != nil {
		s.emit(Error, gitTag, "failed to expand revert patterns: %v", err)
		return process.ExitFailed
	}
	if len(paths) == 0 {
		s.emit(Info, gitTag, "nothing to revert")
		return 0
	}
	return s.git(ctx, nil, append([]string{"checkout", "--force", "--"}, paths...)...)
}

func (s *Session) expand(patterns []string) ([]string, error) {
	var out []string
	for _, p := range patterns {
		p = filepath.ToSlash(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if !strings.ContainsAny(p, "*?[{") {
			out = append(out, p)
			continue
		}
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid pattern %q", p)
		}
		matches, err := doublestar.Glob(s.projectFS(), p, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("failed to expand %q: %w", p, err)
		}
		if len(matches) == 0 {
			s.Logger.Debug().Str("pattern", p).Msg("Revert pattern matched no files")
		}
		out = append(out, matches...)
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}

// RevertConfigured reverts the after-build revert files of the project.
func (s *Session) RevertConfigured(ctx context.Context) int {
	return s.Revert(ctx, s.Settings.RevertFiles())
}

func (s *Session) projectFS() fs.FS {
	return os.DirFS(s.Settings.WorkDir)
}
