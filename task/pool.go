package task

import (
	"context"
	"errors"
	"sync"

	"ScoreFM/logger"

	"golang.org/x/sync/semaphore"
)

// ErrQueueFull is returned by Submit when the pending queue is at
// capacity. Callers should answer with a retry-later response.
var ErrQueueFull = errors.New("generation queue is full, try again later")

// Job is one unit of background work bound to a task id.
type Job struct {
	TaskID string
	Run    func(ctx context.Context)
}

// Pool executes generation jobs with a bounded pending queue and a cap
// on concurrent executions. Jobs run detached from the submitting
// request and always run to completion; there is no cancellation.
type Pool struct {
	pending chan Job
	sem     *semaphore.Weighted

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// NewPool creates a pool allowing up to workers concurrent jobs and
// queueSize pending submissions.
func NewPool(workers, queueSize int) *Pool {
	if workers <= 0 {
		workers = 4
	}
	if queueSize <= 0 {
		queueSize = 64
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		pending: make(chan Job, queueSize),
		sem:     semaphore.NewWeighted(int64(workers)),
		ctx:     ctx,
		cancel:  cancel,
	}

	p.wg.Add(1)
	go p.consume()
	return p
}

// Submit enqueues a job, rejecting with ErrQueueFull when the queue is
// at capacity.
func (p *Pool) Submit(job Job) error {
	select {
	case p.pending <- job:
		logger.Debug("job submitted", logger.String("taskId", job.TaskID))
		return nil
	default:
		logger.Warn("job rejected, queue full", logger.String("taskId", job.TaskID))
		return ErrQueueFull
	}
}

// consume drains the pending queue, holding a semaphore slot for the
// lifetime of each running job.
func (p *Pool) consume() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case job := <-p.pending:
			if err := p.sem.Acquire(p.ctx, 1); err != nil {
				return
			}
			p.wg.Add(1)
			go func(j Job) {
				defer p.wg.Done()
				defer p.sem.Release(1)
				// Detached from the submitting request on purpose.
				j.Run(context.Background())
			}(job)
		}
	}
}

// Close stops accepting work and waits for in-flight jobs to finish.
func (p *Pool) Close() {
	p.once.Do(func() {
		p.cancel()
		p.wg.Wait()
	})
}
