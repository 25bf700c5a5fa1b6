package sp108e

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jmylchreest/sp108ed/internal/errors"
)

// Work is one unit executed by the Serializer.
type Work func(ctx context.Context) error

type job struct {
	ctx  context.Context
	work Work
	pace time.Duration
	done chan error
}

// Serializer executes submitted work strictly one at a time in submission
// order. A failed unit does not affect the ones queued behind it.
type Serializer struct {
	jobs    chan *job
	quit    chan struct{}
	stopped chan struct{}
	once    sync.Once
	logger  *slog.Logger
}

// NewSerializer starts a serializer whose queue holds up to depth waiting units.
func NewSerializer(depth int, logger *slog.Logger) *Serializer {
	if depth <= 0 {
		depth = DefaultQueueDepth
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Serializer{
		jobs:    make(chan *job, depth),
		quit:    make(chan struct{}),
		stopped: make(chan struct{}),
		logger:  logger,
	}
	go s.run()
	return s
}

// Submit enqueues work and blocks until it has run, including any pacing
// delay. If ctx is done before the unit reaches the front of the queue the
// unit is skipped and ctx's error returned; once started it is never
// interrupted.
func (s *Serializer) Submit(ctx context.Context, pace time.Duration, work Work) error {
	select {
	case <-s.quit:
		return errors.ErrClosed
	default:
	}

	j := &job{ctx: ctx, work: work, pace: pace, done: make(chan error, 1)}
	select {
	case s.jobs <- j:
	case <-ctx.Done():
		return ctx.Err()
	case <-s.quit:
		return errors.ErrClosed
	}

	select {
	case err := <-j.done:
		return err
	case <-s.stopped:
		select {
		case err := <-j.done:
			return err
		default:
			return errors.ErrClosed
		}
	}
}

// Pending returns the number of units waiting behind the one in flight.
func (s *Serializer) Pending() int {
	return len(s.jobs)
}

// Close stops the worker after the unit in flight. Queued and later units
// fail with ErrClosed.
func (s *Serializer) Close() {
	s.once.Do(func() {
		close(s.quit)
	})
	<-s.stopped
}

func (s *Serializer) run() {
	defer close(s.stopped)
	for {
		select {
		case <-s.quit:
			s.drain()
			return
		case j := <-s.jobs:
			s.execute(j)
		}
	}
}

func (s *Serializer) execute(j *job) {
	if err := j.ctx.Err(); err != nil {
		s.logger.Debug("sp108e: skipping cancelled request", "error", err)
		j.done <- err
		return
	}

	err := j.work(context.WithoutCancel(j.ctx))

	if j.pace > 0 {
		t := time.NewTimer(j.pace)
		select {
		case <-t.C:
		case <-s.quit:
			t.Stop()
		}
	}
	j.done <- err
}

func (s *Serializer) drain() {
	for {
		select {
		case j := <-s.jobs:
			j.done <- errors.ErrClosed
		default:
			return
		}
	}
}
