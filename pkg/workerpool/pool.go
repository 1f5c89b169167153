// Package workerpool runs tasks on a fixed set of goroutines. A pool of one
// worker is an ordered queue: the shop client sends cart commands through it
// so they reach the server in the order they were issued.
//
//	pool := workerpool.New(1, 64)
//	defer pool.Shutdown()
//
//	_ = pool.SubmitWait(send) // blocks while the queue is full
//	pool.Wait()               // every task submitted so far has finished
package workerpool

import (
	"errors"
	"sync"

	"github.com/modera-shop/modera/pkg/logger"
)

var ErrPoolClosed = errors.New("workerpool: pool is closed")

type Pool struct {
	tasks chan func()

	mu      sync.RWMutex // guards closed against sends on a closed channel
	closed  bool
	workers sync.WaitGroup
	pending sync.WaitGroup
}

// New starts size workers sharing a queue of the given capacity. Values
// below 1 become 1.
func New(size, queue int) *Pool {
	if size < 1 {
		size = 1
	}
	if queue < 1 {
		queue = 1
	}

	p := &Pool{tasks: make(chan func(), queue)}
	for i := 0; i < size; i++ {
		p.workers.Add(1)
		go p.worker()
	}
	return p
}

// SubmitWait enqueues task, blocking while the queue is full.
func (p *Pool) SubmitWait(task func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}

	p.pending.Add(1)
	p.tasks <- task
	return nil
}

// Wait blocks until every task submitted before the call has run.
func (p *Pool) Wait() {
	p.pending.Wait()
}

// Shutdown stops accepting tasks, runs the ones already queued and stops
// the workers. Safe to call more than once.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()

	p.workers.Wait()
}

func (p *Pool) worker() {
	defer p.workers.Done()
	for task := range p.tasks {
		p.run(task)
	}
}

func (p *Pool) run(task func()) {
	defer p.pending.Done()
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("workerpool: task panicked", "panic", rec)
		}
	}()
	task()
}
