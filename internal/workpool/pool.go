// Package workpool runs blocking calls on a fixed number of worker
// goroutines fed through a task channel.
package workpool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
)

// DefaultSize is the number of workers used when New is given a size < 1.
const DefaultSize = 5

// ErrClosed is returned when submitting to a pool that has been closed.
var ErrClosed = errors.New("workpool: closed")

type task struct {
	run  func()
	done chan struct{}
}

// Pool is a fixed-size worker pool. Tasks are handed to idle workers over an
// unbuffered channel, so Do blocks while every worker is busy.
type Pool struct {
	size  int
	tasks chan task
	g     *errgroup.Group

	mu     sync.RWMutex
	closed bool
}

// New starts a pool with size workers.
func New(size int) *Pool {
	if size < 1 {
		size = DefaultSize
	}
	p := &Pool{
		size:  size,
		tasks: make(chan task),
		g:     new(errgroup.Group),
	}
	for i := range size {
		p.g.Go(func() error {
			p.work(i)
			return nil
		})
	}
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return p.size }

func (p *Pool) work(id int) {
	for t := range p.tasks {
		slog.Debug("worker picked up task", "worker", id)
		t.run()
		close(t.done)
	}
}

// Do hands fn to an idle worker and waits for it to finish. ctx only bounds
// the wait for a free worker: once fn has been dispatched it runs to
// completion and Do waits for it regardless of ctx. fn should therefore
// bound its own duration.
func Do[T any](ctx context.Context, p *Pool, fn func() (T, error)) (T, error) {
	var (
		out T
		err error
	)
	t := task{
		run: func() {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("workpool: task panicked: %v", r)
				}
			}()
			out, err = fn()
		},
		done: make(chan struct{}),
	}

	// With an idle worker both select cases below are ready and one is
	// picked at random, so a context that is already done is checked first.
	if err := ctx.Err(); err != nil {
		return out, err
	}

	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return out, ErrClosed
	}
	select {
	case p.tasks <- t:
		p.mu.RUnlock()
	case <-ctx.Done():
		p.mu.RUnlock()
		return out, ctx.Err()
	}

	<-t.done
	return out, err
}

// Close stops accepting tasks and waits for running ones to finish. Pending
// submissions already blocked in Do are served before the workers exit.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()
	return p.g.Wait()
}
