package cli

// This file contains the history command for listing the recorded web builds.

import (
	"fmt"
	"io"
	"os"

	"github.com/perfgo/unirelease/history"
	"github.com/perfgo/unirelease/model"
	"github.com/perfgo/unirelease/settings"
	"github.com/urfave/cli/v2"
)

func (a *App) history(ctx *cli.Context) error {
	s, err := settings.Load(a.logger, ctx.String("project"))
	if err != nil {
		return fmt.Errorf("failed to load project: %w", err)
	}
	if s.HistoryJSON == "" {
		return fmt.Errorf("no build history configured in %s", settings.TargetConfigFile)
	}

	path := s.Path(s.HistoryJSON)
	h, err := history.Load(path)
	if err != nil {
		return err
	}

	a.logger.Debug().Str("path", path).Int("entries", len(h.Builds)).Msg("Loaded build history")
	printHistory(os.Stdout, h, ctx.Int("limit"))
	return nil
}

func printHistory(w io.Writer, h model.BuildHistory, limit int) {
	if len(h.Builds) == 0 {
		fmt.Fprintln(w, "No builds recorded")
		return
	}

	// Entries are stored newest first
	builds := h.Builds
	if limit > 0 && limit < len(builds) {
		builds = builds[:limit]
	}

	fmt.Fprintf(w, "\n=== Build History (%d total) ===\n\n", len(h.Builds))
	for _, b := range builds {
		fmt.Fprintf(w, "%s  %s  %s\n", b.Date, b.Ver, b.Label)
		if b.HRef != "" {
			fmt.Fprintf(w, "   Link: %s\n", b.HRef)
		}
		if b.Notes != "" {
			fmt.Fprintf(w, "   Notes: %s\n", b.Notes)
		}
		fmt.Fprintln(w)
	}
}
