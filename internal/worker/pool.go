package worker

import (
	"sync"

	"github.com/crickpick/contest-backend/internal/metrics"
)

type task func()

// Pool is a fixed-size worker pool used to push notification and audit
// work off the request path.
type Pool struct {
	wg   sync.WaitGroup
	jobs chan task
}

func NewPool(n int) *Pool {
	p := &Pool{jobs: make(chan task, 1024)}
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for job := range p.jobs {
				job()
				metrics.WorkerQueueDepth.Set(float64(len(p.jobs)))
			}
		}()
	}
	return p
}

func (p *Pool) Submit(f task) {
	p.jobs <- f
	metrics.WorkerQueueDepth.Set(float64(len(p.jobs)))
}

// Stop closes the queue and drains outstanding jobs.
func (p *Pool) Stop() { close(p.jobs); p.wg.Wait() }
