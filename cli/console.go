package cli

// This file contains the console sink printing pipeline lines to the
// terminal.

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/perfgo/unirelease/pipeline"
	"golang.org/x/term"
)

var markers = map[pipeline.Severity]string{
	pipeline.Info:    ".",
	pipeline.Command: ">",
	pipeline.Output:  " ",
	pipeline.Success: "+",
	pipeline.Warning: "-",
	pipeline.Error:   "!",
}

// ConsoleSink writes pipeline lines, one per row, coloured by severity.
type ConsoleSink struct {
	out    io.Writer
	colors map[pipeline.Severity]*color.Color
}

// NewConsoleSink creates a sink writing to out. Colours are only used when
// colored is set.
func NewConsoleSink(out io.Writer, colored bool) *ConsoleSink {
	colors := map[pipeline.Severity]*color.Color{
		pipeline.Info:    color.New(color.FgWhite),
		pipeline.Command: color.New(color.FgCyan),
		pipeline.Output:  color.New(color.FgHiBlack),
		pipeline.Success: color.New(color.FgGreen),
		pipeline.Warning: color.New(color.FgYellow),
		pipeline.Error:   color.New(color.FgRed, color.Bold),
	}
	for _, c := range colors {
		if colored {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return &ConsoleSink{out: out, colors: colors}
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func (c *ConsoleSink) Emit(l pipeline.Line) {
	marker, ok := markers[l.Severity]
	if !ok {
		marker = "?"
	}
	text := fmt.Sprintf("%s %-9s %s", marker, l.Tag, l.Text)
	if col, ok := c.colors[l.Severity]; ok {
		text = col.Sprint(text)
	}
	fmt.Fprintln(c.out, text)
}
