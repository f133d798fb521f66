package engine

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// job is a unit of handler work submitted to the worker pool; it executes
// on a pool goroutine and hands its result back via finishExchange, which
// re-checks the connection table under the engine's mutex.
type job func()

// workerPool is a fixed-size pool of N goroutines draining a buffered job
// queue, per spec.md §4.F's "optional pool of N worker threads" — a fixed
// pool rather than Go's usual goroutine-per-task default, since the spec
// requires a bounded, nameable size.
type workerPool struct {
	jobs   chan job
	group  *errgroup.Group
	cancel context.CancelFunc
}

// newWorkerPool starts size worker goroutines under an errgroup, grounded
// on golang-tools' and the unraid agent's use of golang.org/x/sync/errgroup
// for bounded concurrent work.
func newWorkerPool(size int) *workerPool {
	ctx, cancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(ctx)
	p := &workerPool{jobs: make(chan job, size*4), group: g, cancel: cancel}
	for i := 0; i < size; i++ {
		g.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					return nil
				case j, ok := <-p.jobs:
					if !ok {
						return nil
					}
					j()
				}
			}
		})
	}
	return p
}

// Submit enqueues j, blocking if the queue is full (back-pressure onto the
// reactor thread is intentional: spec.md §4.F never asks for an unbounded
// queue).
func (p *workerPool) Submit(j job) {
	p.jobs <- j
}

// Close stops accepting new work and waits for in-flight jobs to drain.
func (p *workerPool) Close() {
	close(p.jobs)
	p.cancel()
	p.group.Wait()
}
