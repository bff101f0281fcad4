package dispatch

import "sync"

// Manual is an executor that only runs tasks when asked to.
//
// It stands in for the UI thread in tests: Post queues, and the test calls
// RunPending or Drain at the point where the UI thread would catch up.
// Panics propagate to the caller of RunPending or Drain.
type Manual struct {
	runner

	mu    sync.Mutex
	queue []func()
}

// NewManual creates a manually stepped executor.
func NewManual() *Manual {
	return &Manual{runner: runner{recorder: nopRecorder{}}}
}

// Post queues task.
func (m *Manual) Post(task func()) {
	if task == nil {
		return
	}
	m.mu.Lock()
	m.queue = append(m.queue, task)
	m.mu.Unlock()
	m.posted.Add(1)
}

// Pending returns the number of queued tasks.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// RunPending runs the tasks queued at the time of the call and returns how
// many ran. Tasks they post stay queued.
func (m *Manual) RunPending() int {
	m.mu.Lock()
	batch := m.queue
	m.queue = nil
	m.mu.Unlock()

	for i, task := range batch {
		m.runOrRequeue(task, batch[i+1:])
	}
	return len(batch)
}

// runOrRequeue runs task. If it panics, rest is put back at the front of
// the queue before the panic continues.
func (m *Manual) runOrRequeue(task func(), rest []func()) {
	completed := false
	defer func() {
		if completed || len(rest) == 0 {
			return
		}
		m.mu.Lock()
		m.queue = append(append([]func(){}, rest...), m.queue...)
		m.mu.Unlock()
	}()

	m.run(task)
	completed = true
}

// Drain runs tasks until the queue is empty and returns how many ran.
func (m *Manual) Drain() int {
	total := 0
	for {
		n := m.RunPending()
		if n == 0 {
			return total
		}
		total += n
	}
}

// Stats returns executor statistics.
func (m *Manual) Stats() Stats {
	return m.stats(m.Pending())
}
