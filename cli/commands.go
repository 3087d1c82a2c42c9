package cli

// This file contains the commands starting release workflows.

import (
	"context"
	"fmt"
	"os"

	"github.com/perfgo/unirelease/cli/process"
	"github.com/perfgo/unirelease/pipeline"
	"github.com/perfgo/unirelease/settings"
	"github.com/perfgo/unirelease/workflow"
	"github.com/urfave/cli/v2"
)

type workflowFunc func(context.Context, *pipeline.Session) error

// runWorkflow loads the project, runs fn as the only workflow of this process
// and waits for it.
func (a *App) runWorkflow(ctx *cli.Context, name string, fn workflowFunc) error {
	s, err := settings.Load(a.logger, ctx.String("project"))
	if err != nil {
		return fmt.Errorf("failed to load project: %w", err)
	}

	sink := NewConsoleSink(os.Stdout, !ctx.Bool("no-color") && IsTerminal(os.Stdout))
	seq := workflow.NewSequencer(a.logger, sink, ctx.Duration("watchdog"))
	session := &pipeline.Session{
		Settings:   s,
		Sink:       seq.Sink(),
		Runner:     process.New(a.logger),
		Logger:     a.logger,
		Git:        ctx.String("git"),
		MirrorTool: ctx.String("mirror-tool"),
	}
	// Only release defines --progress
	session.MirrorProgress = ctx.Bool("progress")

	a.logger.Debug().
		Str("workflow", name).
		Str("project", s.WorkDir).
		Str("product", s.ProductName).
		Str("version", s.ProductVersion).
		Msg("Starting workflow")

	var result error
	err = seq.Start(name, func() error {
		return fn(ctx.Context, session)
	}, func(err error) {
		result = err
	})
	if err != nil {
		return err
	}
	seq.Wait()

	if result != nil {
		return cli.Exit(fmt.Sprintf("%s failed", name), 1)
	}
	return nil
}

func (a *App) status(ctx *cli.Context) error {
	return a.runWorkflow(ctx, "status", workflow.Status)
}

func (a *App) pull(ctx *cli.Context) error {
	return a.runWorkflow(ctx, "pull", workflow.Pull)
}

func (a *App) revert(ctx *cli.Context) error {
	return a.runWorkflow(ctx, "revert", workflow.Revert)
}

func (a *App) version(ctx *cli.Context) error {
	opts := workflow.VersionOptions{
		Set:  ctx.String("set"),
		Push: ctx.Bool("push"),
		PushOptions: pipeline.PushOptions{
			Message: ctx.String("message"),
			Options: ctx.StringSlice("push-option"),
			DryRun:  ctx.Bool("dry-run"),
		},
	}
	if opts.DryRun && !opts.Push {
		a.logger.Warn().Msg("--dry-run has no effect without --push")
	}
	return a.runWorkflow(ctx, "version", func(c context.Context, s *pipeline.Session) error {
		return workflow.UpdateVersion(c, s, opts)
	})
}

func buildOptions(ctx *cli.Context) workflow.BuildOptions {
	return workflow.BuildOptions{
		Clean:    ctx.Bool("clean"),
		Simulate: ctx.Bool("simulate"),
	}
}

// releaseOptions applies --simulate to both halves of a release: a simulated
// release neither deletes, mirrors nor records anything.
func releaseOptions(ctx *cli.Context) workflow.ReleaseOptions {
	return workflow.ReleaseOptions{
		Build: buildOptions(ctx),
		Post: workflow.PostOptions{
			Simulate: ctx.Bool("simulate"),
			HRef:     ctx.String("href"),
			Notes:    ctx.String("notes"),
		},
	}
}

func (a *App) build(ctx *cli.Context) error {
	opts := buildOptions(ctx)
	return a.runWorkflow(ctx, "build", func(c context.Context, s *pipeline.Session) error {
		return workflow.BuildAll(c, s, opts)
	})
}

func (a *App) release(ctx *cli.Context) error {
	opts := releaseOptions(ctx)
	return a.runWorkflow(ctx, "release", func(c context.Context, s *pipeline.Session) error {
		return workflow.Release(c, s, opts)
	})
}
