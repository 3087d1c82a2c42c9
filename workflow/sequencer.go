// Package workflow runs the release workflows one at a time on a background
// goroutine and implements the fixed workflows on top of the pipeline
// commands.
package workflow

import (
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/perfgo/unirelease/pipeline"
	"github.com/rs/zerolog"
)

const workflowTag = "workflow"

// DefaultWatchdog is the interval of "still running" notices.
const DefaultWatchdog = 30 * time.Second

// ErrBusy is returned when a workflow is started while another one runs.
var ErrBusy = errors.New("a workflow is already running")

// Sequencer runs at most one workflow at a time. Starting a second workflow
// is rejected, never queued.
type Sequencer struct {
	logger   zerolog.Logger
	sink     *lockedSink
	watchdog time.Duration

	mu      sync.Mutex
	running string
	done    chan struct{}
}

// NewSequencer creates a Sequencer reporting to sink. A watchdog of zero or
// less disables the "still running" notices.
func NewSequencer(logger zerolog.Logger, sink pipeline.Sink, watchdog time.Duration) *Sequencer {
	return &Sequencer{
		logger:   logger,
		sink:     &lockedSink{sink: sink},
		watchdog: watchdog,
	}
}

// Sink returns the sink workflows must report to. It serialises the
// workflow's lines with the sequencer's own notices.
func (q *Sequencer) Sink() pipeline.Sink {
	return q.sink
}

// Running returns the name of the running workflow, or "".
func (q *Sequencer) Running() string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.running
}

// Start runs fn on a new goroutine. onFinish, if set, is called exactly once
// with the workflow's result after it stopped running, whether fn returned an
// error, panicked or succeeded.
func (q *Sequencer) Start(name string, fn func() error, onFinish func(error)) error {
	q.mu.Lock()
	if q.running != "" {
		running := q.running
		q.mu.Unlock()
		q.logger.Warn().Str("workflow", name).Str("running", running).Msg("Rejected workflow")
		return fmt.Errorf("%w: %s", ErrBusy, running)
	}
	q.running = name
	done := make(chan struct{})
	q.done = done
	q.mu.Unlock()

	go q.run(name, fn, onFinish, done)
	return nil
}

func (q *Sequencer) run(name string, fn func() error, onFinish func(error), done chan struct{}) {
	defer close(done)

	logger := q.logger.With().Str("workflow", name).Logger()
	logger.Debug().Msg("Workflow started")
	q.emit(pipeline.Info, "%s started", name)

	start := time.Now()
	stop := q.startWatchdog(name, start)
	err := call(logger, fn)
	stop()

	elapsed := time.Since(start).Round(time.Millisecond)
	if err != nil {
		q.emit(pipeline.Error, "ERROR: %s failed after %s: %v", name, elapsed, err)
		logger.Debug().Err(err).Dur("duration", elapsed).Msg("Workflow failed")
	} else {
		q.emit(pipeline.Success, "%s finished in %s", name, elapsed)
		logger.Debug().Dur("duration", elapsed).Msg("Workflow finished")
	}

	q.mu.Lock()
	q.running = ""
	q.mu.Unlock()

	if onFinish != nil {
		onFinish(err)
	}
}

// call runs fn and turns a panic into an error.
func call(logger zerolog.Logger, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Str("stack", string(debug.Stack())).Msg("Workflow panicked")
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}

func (q *Sequencer) startWatchdog(name string, start time.Time) (stop func()) {
	if q.watchdog <= 0 {
		return func() {}
	}

	quit := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		ticker := time.NewTicker(q.watchdog)
		defer ticker.Stop()
		for {
			select {
			case <-quit:
				return
			case <-ticker.C:
				q.emit(pipeline.Info, "%s still running (%s)", name, time.Since(start).Round(time.Second))
			}
		}
	}()
	return func() {
		close(quit)
		<-stopped
	}
}

// Wait blocks until the workflow running at the time of the call finished.
func (q *Sequencer) Wait() {
	q.mu.Lock()
	done := q.done
	q.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (q *Sequencer) emit(sev pipeline.Severity, format string, args ...any) {
	q.sink.Emit(pipeline.Line{Severity: sev, Tag: workflowTag, Text: fmt.Sprintf(format, args...)})
}

type lockedSink struct {
	mu   sync.Mutex
	sink pipeline.Sink
}

func (s *lockedSink) Emit(l pipeline.Line) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sink != nil {
		s.sink.Emit(l)
	}
}
