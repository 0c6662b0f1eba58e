package queue

import (
	"container/heap"
	"time"
)

// TimerQueue holds delayed jobs ordered by ProcessAt. It is not safe for
// concurrent use; the owning queue guards it.
type TimerQueue struct {
	items  *timerHeap
	lookup map[string]*Job
}

// timerHeap implements heap.Interface for jobs ordered by ProcessAt
type timerHeap []*Job

func (h *timerHeap) Len() int {
	return len(*h)
}

func (h *timerHeap) Less(i, j int) bool {
	return (*h)[i].ProcessAt.Before((*h)[j].ProcessAt)
}

func (h *timerHeap) Swap(i, j int) {
	(*h)[i], (*h)[j] = (*h)[j], (*h)[i]
}

func (h *timerHeap) Push(x any) {
	*h = append(*h, x.(*Job))
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[0 : n-1]
	return item
}

// NewTimerQueue creates an empty timer queue.
func NewTimerQueue() *TimerQueue {
	return &TimerQueue{
		items:  &timerHeap{},
		lookup: make(map[string]*Job),
	}
}

// Push schedules job at job.ProcessAt.
func (tq *TimerQueue) Push(job *Job) error {
	if job == nil || job.ID == "" || job.ProcessAt.IsZero() {
		return ErrInvalidJob
	}
	if _, exists := tq.lookup[job.ID]; exists {
		return ErrInvalidJob
	}
	heap.Push(tq.items, job)
	tq.lookup[job.ID] = job
	return nil
}

// Due pops every job whose ProcessAt is not after now.
func (tq *TimerQueue) Due(now time.Time) []*Job {
	var jobs []*Job
	for len(*tq.items) > 0 && !(*tq.items)[0].ProcessAt.After(now) {
		job := heap.Pop(tq.items).(*Job)
		delete(tq.lookup, job.ID)
		jobs = append(jobs, job)
	}
	return jobs
}

// NextDue returns the duration until the next job is due, or -1 when empty.
func (tq *TimerQueue) NextDue(now time.Time) time.Duration {
	if len(*tq.items) == 0 {
		return -1
	}
	next := (*tq.items)[0].ProcessAt
	if !next.After(now) {
		return 0
	}
	return next.Sub(now)
}

// Len returns the number of scheduled jobs.
func (tq *TimerQueue) Len() int {
	return len(*tq.items)
}
