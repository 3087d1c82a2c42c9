package workflow

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/perfgo/unirelease/pipeline"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu    sync.Mutex
	lines []pipeline.Line
}

func (s *recordingSink) Emit(l pipeline.Line) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append(s.lines, l)
}

func (s *recordingSink) texts(sev pipeline.Severity) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, l := range s.lines {
		if l.Severity == sev {
			out = append(out, l.Text)
		}
	}
	return out
}

type finishRecorder struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *finishRecorder) finish(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.err = err
}

func TestSequencerRunsOnce(t *testing.T) {
	sink := &recordingSink{}
	q := NewSequencer(zerolog.Nop(), sink, 0)
	rec := &finishRecorder{}

	ran := 0
	require.NoError(t, q.Start("build", func() error {
		ran++
		return nil
	}, rec.finish))
	q.Wait()

	assert.Equal(t, 1, ran)
	assert.Equal(t, 1, rec.calls)
	assert.NoError(t, rec.err)
	assert.Equal(t, "", q.Running())
	require.Len(t, sink.texts(pipeline.Success), 1)
	assert.True(t, strings.HasPrefix(sink.texts(pipeline.Success)[0], "build finished in "))
}

func TestSequencerRejectsSecondWorkflow(t *testing.T) {
	q := NewSequencer(zerolog.Nop(), &recordingSink{}, 0)

	release := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, q.Start("build", func() error {
		close(started)
		<-release
		return nil
	}, nil))
	<-started

	assert.Equal(t, "build", q.Running())
	err := q.Start("post", func() error { return nil }, nil)
	require.ErrorIs(t, err, ErrBusy)
	assert.Contains(t, err.Error(), "build")

	close(release)
	q.Wait()

	rec := &finishRecorder{}
	require.NoError(t, q.Start("post", func() error { return nil }, rec.finish))
	q.Wait()
	assert.Equal(t, 1, rec.calls)
}

func TestSequencerReportsErrors(t *testing.T) {
	sink := &recordingSink{}
	q := NewSequencer(zerolog.Nop(), sink, 0)
	rec := &finishRecorder{}

	failure := errors.New("engine missing")
	require.NoError(t, q.Start("build", func() error { return failure }, rec.finish))
	q.Wait()

	assert.Equal(t, 1, rec.calls)
	assert.ErrorIs(t, rec.err, failure)
	errs := sink.texts(pipeline.Error)
	require.Len(t, errs, 1)
	assert.True(t, strings.HasPrefix(errs[0], "ERROR: build failed after "))
	assert.Contains(t, errs[0], "engine missing")
}

func TestSequencerRecoversPanics(t *testing.T) {
	sink := &recordingSink{}
	q := NewSequencer(zerolog.Nop(), sink, 0)
	rec := &finishRecorder{}

	require.NoError(t, q.Start("version", func() error {
		var m map[string]int
		m["x"]++
		return nil
	}, rec.finish))
	q.Wait()

	assert.Equal(t, 1, rec.calls)
	require.Error(t, rec.err)
	assert.Contains(t, rec.err.Error(), "panic")
	assert.Len(t, sink.texts(pipeline.Error), 1)
	assert.Equal(t, "", q.Running())
}

func TestSequencerWatchdog(t *testing.T) {
	sink := &recordingSink{}
	q := NewSequencer(zerolog.Nop(), sink, 5*time.Millisecond)

	require.NoError(t, q.Start("build", func() error {
		time.Sleep(60 * time.Millisecond)
		return nil
	}, nil))
	q.Wait()

	var notices []string
	for _, text := range sink.texts(pipeline.Info) {
		if strings.Contains(text, "still running") {
			notices = append(notices, text)
		}
	}
	assert.NotEmpty(t, notices)

	// No notice after the workflow finished.
	count := len(sink.texts(pipeline.Info))
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, count, len(sink.texts(pipeline.Info)))
}

func TestSequencerWaitIdle(t *testing.T) {
	q := NewSequencer(zerolog.Nop(), nil, 0)
	q.Wait()

	require.NoError(t, q.Start("status", func() error { return nil }, nil))
	q.Wait()
	q.Wait()
}
