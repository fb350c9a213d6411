package worker

import "context"

// provides a simple in-memory job queue used by the worker pool.

type Queue struct {
	Ch chan Job
}

func NewQueue(size int) *Queue {
	return &Queue{Ch: make(chan Job, size)}
}

func (q *Queue) Push(j Job) {
	q.Ch <- j
}

// Close marks the end of submissions. Pop drains what is left, then
// reports false.
func (q *Queue) Close() {
	close(q.Ch)
}

func (q *Queue) Pop(ctx context.Context) (Job, bool) {
	select {
	case j, ok := <-q.Ch:
		return j, ok
	case <-ctx.Done():
		return Job{}, false
	}
}

// Drain returns the jobs that were never popped. Only valid after Close.
func (q *Queue) Drain() []Job {
	var left []Job
	for j := range q.Ch {
		left = append(left, j)
	}
	return left
}
