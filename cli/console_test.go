package cli

import (
	"bytes"
	"testing"

	"github.com/perfgo/unirelease/pipeline"
	"github.com/stretchr/testify/assert"
)

func TestConsoleSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewConsoleSink(&buf, false)

	sink.Emit(pipeline.Line{Severity: pipeline.Command, Tag: "git", Text: "git status"})
	sink.Emit(pipeline.Line{Severity: pipeline.Output, Tag: "git", Text: "1: On branch main"})
	sink.Emit(pipeline.Line{Severity: pipeline.Error, Tag: "workflow", Text: "ERROR: build failed"})

	assert.Equal(t,
		"> git       git status\n"+
			"  git       1: On branch main\n"+
			"! workflow  ERROR: build failed\n",
		buf.String())
}

func TestConsoleSinkColored(t *testing.T) {
	var buf bytes.Buffer
	sink := NewConsoleSink(&buf, true)

	sink.Emit(pipeline.Line{Severity: pipeline.Success, Tag: "build", Text: "WebGL built"})
	assert.Contains(t, buf.String(), "\x1b[")
	assert.Contains(t, buf.String(), "WebGL built")
}
