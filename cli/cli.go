package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/perfgo/unirelease/cli/mirror"
	"github.com/perfgo/unirelease/workflow"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

const AppName = "unirelease"

const envPrefix = "UNIRELEASE_"

type App struct {
	logger zerolog.Logger
	cli    *cli.App
}

func env(name string) []string {
	return []string{envPrefix + name}
}

func New() *App {

	// Set default log level to info
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	logger :=
		log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339Nano,
		})

	app := &App{
		logger: logger,
		cli: &cli.App{
			Name:  AppName,
			Usage: "Version, build and publish a Unity project",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:    "verbose",
					Usage:   "Enable verbose (debug) logging",
					EnvVars: env("VERBOSE"),
				},
				&cli.StringFlag{
					Name:    "project",
					Aliases: []string{"C"},
					Usage:   "Project directory",
					Value:   ".",
					EnvVars: env("PROJECT"),
				},
				&cli.StringFlag{
					Name:    "git",
					Usage:   "Git executable",
					Value:   "git",
					EnvVars: env("GIT"),
				},
				&cli.StringFlag{
					Name:    "mirror-tool",
					Usage:   "Directory mirroring executable",
					Value:   mirror.DefaultTool,
					EnvVars: env("MIRROR_TOOL"),
				},
				&cli.DurationFlag{
					Name:    "watchdog",
					Usage:   "Interval of \"still running\" notices, 0 disables them",
					Value:   workflow.DefaultWatchdog,
					EnvVars: env("WATCHDOG"),
				},
				&cli.BoolFlag{
					Name:    "no-color",
					Usage:   "Disable coloured output",
					EnvVars: []string{envPrefix + "NO_COLOR", "NO_COLOR"},
				},
			},
			Before: func(ctx *cli.Context) error {
				if ctx.Bool("verbose") {
					zerolog.SetGlobalLevel(zerolog.DebugLevel)
				}
				return nil
			},
		},
	}
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:   "status",
		Usage:  "Show whether the working copy is up to date with origin/main",
		Action: app.status,
	})
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:   "pull",
		Usage:  "Rebase the working copy onto origin/main",
		Action: app.pull,
	})
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:   "version",
		Usage:  "Bump the product version and build number and regenerate the build info",
		Action: app.version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "set",
				Usage: "Explicit new version, must be greater than the current one",
			},
			&cli.BoolFlag{
				Name:  "push",
				Usage: "Commit, tag and push the version change",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Print the git commands of --push instead of running them",
			},
			&cli.StringSliceFlag{
				Name:    "push-option",
				Aliases: []string{"o"},
				Usage:   "Argument passed to git push (repeatable)",
				EnvVars: env("PUSH_OPTIONS"),
			},
			&cli.StringFlag{
				Name:    "message",
				Aliases: []string{"m"},
				Usage:   "Commit message (default: \"Version <version> (build <bundle>)\")",
			},
		},
	})
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:   "build",
		Usage:  "Build all configured targets",
		Action: app.build,
		Flags:  buildFlags(),
	})
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:   "release",
		Usage:  "Build all targets and publish the successful ones",
		Action: app.release,
		Flags:  releaseFlags(),
	})
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:   "revert",
		Usage:  "Restore the after.revert files from git",
		Action: app.revert,
	})
	app.cli.Commands = append(app.cli.Commands, &cli.Command{
		Name:   "history",
		Usage:  "List the recorded web builds",
		Action: app.history,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Limit number of results (default: 20)",
				Value:   20,
			},
		},
	})
	return app
}

func buildFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "clean",
			Usage: "Delete Builds/<target> before building",
		},
		&cli.BoolFlag{
			Name:  "simulate",
			Usage: "With --clean, only report the directories that would be deleted",
		},
	}
}

func releaseFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "clean",
			Usage: "Delete Builds/<target> before building",
		},
		&cli.BoolFlag{
			Name:  "simulate",
			Usage: "Only report what --clean would delete, list mirror changes without copying and record no history",
		},
		&cli.BoolFlag{
			Name:  "progress",
			Usage: "Show per-file progress of the mirroring tool",
		},
		&cli.StringFlag{
			Name:  "href",
			Usage: "Link recorded in the build history, {version} is replaced",
			Value: workflow.DefaultHRef,
		},
		&cli.StringFlag{
			Name:  "notes",
			Usage: "Release notes recorded in the build history",
		},
	}
}

func (a *App) Run(args []string) error {
	return a.cli.Run(args)
}

// SetVersion sets the version information for the CLI application
func (a *App) SetVersion(version, commit, date string) {
	a.cli.Version = version
	if commit != "none" && commit != "" {
		short := commit
		if len(short) > 8 {
			short = short[:8]
		}
		a.cli.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version, short, date)
	}
}
