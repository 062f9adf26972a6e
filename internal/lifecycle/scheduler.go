package lifecycle

import (
	"container/heap"
	"sync"
	"time"
)

type task struct {
	at  time.Time
	run func()
}

type taskHeap []task

func (h taskHeap) Len() int           { return len(h) }
func (h taskHeap) Less(i, j int) bool { return h[i].at.Before(h[j].at) }
func (h taskHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *taskHeap) Push(x any) { *h = append(*h, x.(task)) }

func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	*h = old[:n-1]
	return t
}

// Scheduler fires delayed tasks from a single dispatch goroutine. Tasks sit
// in a min-heap keyed by fire time; scheduling something earlier than the
// current head wakes the dispatcher so it can re-arm its timer. Each due
// task runs on its own goroutine, so a slow task never delays the next one.
//
// There is no cancellation. A task whose work is no longer relevant must
// re-check state when it fires and no-op.
type Scheduler struct {
	mu    sync.Mutex
	tasks taskHeap
	wake  chan struct{}
	done  chan struct{}
	once  sync.Once
}

func NewScheduler() *Scheduler {
	s := &Scheduler{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go s.loop()
	return s
}

// Schedule queues run to fire at the given time. A time in the past fires
// on the next dispatch pass.
func (s *Scheduler) Schedule(at time.Time, run func()) {
	s.mu.Lock()
	heap.Push(&s.tasks, task{at: at, run: run})
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Stop terminates the dispatch loop. Pending tasks are dropped; reservation
// expiry is not durable across restarts.
func (s *Scheduler) Stop() {
	s.once.Do(func() { close(s.done) })
}

func (s *Scheduler) loop() {
	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	for {
		s.mu.Lock()
		wait := time.Hour
		if len(s.tasks) > 0 {
			wait = time.Until(s.tasks[0].at)
		}
		s.mu.Unlock()

		if wait <= 0 {
			s.runDue()
			continue
		}

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(wait)

		select {
		case <-timer.C:
			s.runDue()
		case <-s.wake:
		case <-s.done:
			return
		}
	}
}

func (s *Scheduler) runDue() {
	now := time.Now()

	s.mu.Lock()
	var due []task
	for len(s.tasks) > 0 && !s.tasks[0].at.After(now) {
		due = append(due, heap.Pop(&s.tasks).(task))
	}
	s.mu.Unlock()

	for _, t := range due {
		go t.run()
	}
}
