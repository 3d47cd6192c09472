package worker

import (
	"sync"

	"github.com/misteraverin/notification-service/pkg/logger"
)

type Handler = func(workerIndex int, job interface{})

// Pool is a fixed-size goroutine pool draining a shared job channel.
// It is explicitly constructed and stopped; nothing here listens for
// process signals, the owning binary decides when to shut it down.
type Pool struct {
	size int
	jobs chan interface{}
	quit chan struct{}
	do   Handler
	wg   sync.WaitGroup
}

func NewPool(bufferSize, size int, do Handler) *Pool {
	if size < 1 {
		size = 1
	}
	if bufferSize < size {
		bufferSize = size
	}
	return &Pool{
		size: size,
		jobs: make(chan interface{}, bufferSize),
		quit: make(chan struct{}),
		do:   do,
	}
}

func (p *Pool) Size() int {
	return p.size
}

func (p *Pool) Backlog() int {
	return len(p.jobs)
}

// Enqueue publishes a job onto the channel. Blocks when the buffer is
// full, which back-pressures the producing cycle.
func (p *Pool) Enqueue(job interface{}) {
	p.jobs <- job
}

func (p *Pool) Start() {
	p.wg.Add(p.size)
	for i := 0; i < p.size; i++ {
		go func(index int) {
			defer p.wg.Done()
			for {
				select {
				case job := <-p.jobs:
					p.do(index, job)
				case <-p.quit:
					return
				}
			}
		}(i)
	}
}

// Stop terminates the workers. Jobs still buffered are dropped; callers
// that care must wait for their own completion signals first.
func (p *Pool) Stop() {
	logger.Info("worker pool shutting down", "workers", p.size, "backlog", len(p.jobs))
	close(p.quit)
	p.wg.Wait()
}
