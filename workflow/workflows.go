package workflow

// This file contains the fixed release workflows. Each one runs its pipeline
// commands strictly in order and returns the first error that ends it.

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/perfgo/unirelease/cli/mirror"
	"github.com/perfgo/unirelease/history"
	"github.com/perfgo/unirelease/model"
	"github.com/perfgo/unirelease/pipeline"
	"github.com/perfgo/unirelease/version"
)

// WebGLTarget is the build target whose releases are recorded in the build
// history.
const WebGLTarget = "WebGL"

const historyDateLayout = "2006-01-02 15:04"

// ExitError is returned when an external command of a workflow failed.
type ExitError struct {
	Command string
	Code    int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with code %d", e.Command, e.Code)
}

func check(command string, code int) error {
	if code != 0 {
		return &ExitError{Command: command, Code: code}
	}
	return nil
}

// Status reports the state of the working copy.
func Status(ctx context.Context, s *pipeline.Session) error {
	return check("git status", s.Status(ctx))
}

// Pull rebases the working copy onto the remote branch.
func Pull(ctx context.Context, s *pipeline.Session) error {
	return check("git pull", s.Pull(ctx))
}

// Revert restores the files a build may have modified.
func Revert(ctx context.Context, s *pipeline.Session) error {
	return check("git checkout", s.RevertConfigured(ctx))
}

// VersionOptions controls UpdateVersion.
type VersionOptions struct {
	// Set is the explicit new version; empty bumps the current one
	Set string
	// Push commits, tags and pushes the change
	Push bool
	pipeline.PushOptions
}

// UpdateVersion moves the project to its next version and build number and
// regenerates the build info. A failing status check only degrades to the
// not-up-to-date warning.
func UpdateVersion(ctx context.Context, s *pipeline.Session, opts VersionOptions) error {
	if err := Status(ctx, s); err != nil {
		s.Warn(workflowTag, "could not confirm the working copy state: %v", err)
	}
	if !s.UpToDate {
		s.Warn(workflowTag, "working copy is not up to date, the release commit may include other changes")
	}

	current := s.Settings.ProductVersion
	next, err := nextVersion(s, current, opts.Set)
	if err != nil {
		return err
	}

	bundle, err := strconv.Atoi(s.Settings.BundleVersion)
	if err != nil {
		return fmt.Errorf("bundle counter %q is not a number: %w", s.Settings.BundleVersion, err)
	}
	bundle++

	if _, err := s.UpdateIdentity(next, strconv.Itoa(bundle)); err != nil {
		return fmt.Errorf("failed to update identity: %w", err)
	}
	s.Settings.ProductVersion = next
	s.Settings.BundleVersion = strconv.Itoa(bundle)

	if _, err := s.UpdateBuildInfo(version.PatchValue(next, bundle)); err != nil {
		return fmt.Errorf("failed to update build info: %w", err)
	}
	s.Succeed(workflowTag, "version %s -> %s, build %d", current, next, bundle)

	if !opts.Push {
		return nil
	}
	return check("git push", s.PushWithLabel(ctx, opts.PushOptions))
}

func nextVersion(s *pipeline.Session, current, set string) (string, error) {
	if set == "" {
		next, err := version.Bump(current, s.Time())
		if err != nil {
			return "", fmt.Errorf("failed to bump version: %w", err)
		}
		return next, nil
	}

	cmp, err := version.Compare(set, current)
	if err != nil {
		return "", err
	}
	if cmp <= 0 {
		return "", fmt.Errorf("version %s is not greater than the current version %s", set, current)
	}
	return set, nil
}

// BuildOptions controls BuildAll.
type BuildOptions struct {
	// Clean deletes the output directories of all targets first
	Clean bool
	// Simulate only reports what Clean would delete
	Simulate bool
}

// BuildDir is the output directory of target relative to the project.
func BuildDir(target string) string {
	return path.Join("Builds", target)
}

// BuildAll builds every target. The after-build revert always runs once the
// pre-build copies started, even when a copy or a build failed.
func BuildAll(ctx context.Context, s *pipeline.Session, opts BuildOptions) error {
	s.Settings.ResetResults()
	targets := s.Settings.Targets
	if len(targets) == 0 {
		return errors.New("no build targets configured")
	}

	if opts.Clean {
		dirs := make([]string, 0, len(targets))
		for _, t := range targets {
			dirs = append(dirs, BuildDir(t))
		}
		if err := s.DeleteDirs(dirs, opts.Simulate); err != nil {
			return fmt.Errorf("failed to clean build directories: %w", err)
		}
	}

	buildErr := prepareAndBuild(ctx, s)

	var revertErr error
	if err := Revert(ctx, s); err != nil {
		revertErr = fmt.Errorf("failed to revert build changes: %w", err)
	}

	built := s.Settings.SucceededTargets()
	for _, t := range targets {
		if s.Settings.Succeeded(t) {
			s.Succeed(workflowTag, "%s: succeeded", t)
		} else {
			s.Fail(workflowTag, "%s: failed", t)
		}
	}
	s.Info(workflowTag, "built %d of %d targets", len(built), len(targets))

	return errors.Join(buildErr, revertErr)
}

func prepareAndBuild(ctx context.Context, s *pipeline.Session) error {
	for _, c := range s.Settings.BeforeCopy {
		if err := s.CopyFile(c.Source, c.Target); err != nil {
			return fmt.Errorf("failed to prepare build: %w", err)
		}
	}
	return s.BuildTargets(ctx)
}

// PostOptions controls PostProcess.
type PostOptions struct {
	// Simulate lists mirror changes without applying them and records no
	// history
	Simulate bool
	// HRef is the link recorded in the build history; "{version}" is
	// replaced by the product version
	HRef string
	// Notes are recorded in the build history
	Notes string
}

// DefaultHRef is the history link used when PostOptions.HRef is empty.
const DefaultHRef = "{version}/index.html"

// PostProcess publishes the targets built successfully in this session by
// mirroring their output directories. Published web builds are recorded in
// the build history.
func PostProcess(ctx context.Context, s *pipeline.Session, opts PostOptions) error {
	targets := s.Settings.SucceededTargets()
	if len(targets) == 0 {
		s.Warn(workflowTag, "no successfully built targets to process")
		return nil
	}

	var failed []string
	for _, target := range targets {
		ok := true
		for _, c := range s.Settings.DirCopies(target) {
			code := s.Mirror(ctx, c.SourceDir, c.TargetDir, opts.Simulate)
			if !mirror.Interpret(code).OK() {
				ok = false
			}
		}
		if !ok {
			failed = append(failed, target)
			continue
		}

		if strings.EqualFold(target, WebGLTarget) && s.Settings.HistoryJSON != "" && !opts.Simulate {
			if err := recordHistory(s, opts); err != nil {
				return err
			}
		}
	}

	if len(failed) > 0 {
		return fmt.Errorf("failed to publish %s", strings.Join(failed, ", "))
	}
	return nil
}

func recordHistory(s *pipeline.Session, opts PostOptions) error {
	ver := s.Settings.ProductVersion
	href := opts.HRef
	if href == "" {
		href = DefaultHRef
	}

	entry := model.BuildLogEntry{
		Ver:   ver,
		Date:  s.Time().Format(historyDateLayout),
		Label: fmt.Sprintf("%s %s (build %s)", s.Settings.ProductName, ver, s.Settings.BundleVersion),
		HRef:  strings.ReplaceAll(href, "{version}", ver),
		Notes: opts.Notes,
	}
	path := s.Settings.Path(s.Settings.HistoryJSON)
	if err := history.Prepend(s.Logger, path, entry); err != nil {
		return err
	}
	s.Succeed(workflowTag, "recorded %s in %s", ver, s.Settings.HistoryJSON)
	return nil
}

// ReleaseOptions controls Release.
type ReleaseOptions struct {
	Build BuildOptions
	Post  PostOptions
}

// Release builds all targets and publishes the ones that succeeded.
func Release(ctx context.Context, s *pipeline.Session, opts ReleaseOptions) error {
	buildErr := BuildAll(ctx, s, opts.Build)
	if len(s.Settings.SucceededTargets()) == 0 {
		return buildErr
	}
	return errors.Join(buildErr, PostProcess(ctx, s, opts.Post))
}
