package worker

import (
	"context"
	"log"
	"runtime"
	"sync"
)

// Job is one unit of background work producing text.
type Job func(ctx context.Context) (string, error)

// ResultCallback is invoked on job completion (from a worker goroutine).
// The event loop should pass a closure that posts back into the event loop safely.
type ResultCallback func(text string, err error)

// Pool is a fixed-size worker pool with a 1-slot input queue (strict back-pressure).
type Pool struct {
	jobs chan job
	wg   sync.WaitGroup
}

type job struct {
	ctx  context.Context
	name string
	run  Job
	cb   ResultCallback
}

// New creates a worker pool. Size defaults to NumCPU when size<=0. Queue is 1 slot.
func New(size int) *Pool {
	if size <= 0 {
		size = runtime.NumCPU()
	}
	p := &Pool{jobs: make(chan job, 1)}
	p.start(size)
	return p
}

func (p *Pool) start(n int) {
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for j := range p.jobs {
				log.Printf("Worker: Starting %s", j.name)
				text, err := runWithContext(j.ctx, j.run)
				log.Printf("Worker: %s completed, text length=%d, err=%v", j.name, len(text), err)
				if j.cb != nil {
					j.cb(text, err)
				}
			}
		}()
	}
}

// Submit enqueues a job if the single-slot queue is free. Returns false if dropped.
func (p *Pool) Submit(ctx context.Context, name string, run Job, cb ResultCallback) bool {
	select {
	case p.jobs <- job{ctx: ctx, name: name, run: run, cb: cb}:
		return true
	default:
		log.Printf("Worker: dropped %s, queue full", name)
		return false
	}
}

// Close stops the pool after draining current work.
func (p *Pool) Close() {
	close(p.jobs)
	p.wg.Wait()
}

// runWithContext returns early with ctx.Err() when ctx ends before the job does.
func runWithContext(ctx context.Context, run Job) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if ctx.Done() == nil {
		return run(ctx)
	}
	resCh := make(chan struct {
		text string
		err  error
	}, 1)
	go func() {
		text, err := run(ctx)
		resCh <- struct {
			text string
			err  error
		}{text, err}
	}()
	select {
	case r := <-resCh:
		return r.text, r.err
	case <-ctx.Done():
		// The job keeps running in the background; its result is discarded.
		return "", ctx.Err()
	}
}
