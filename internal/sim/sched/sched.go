// Package sched runs cooperative tasks on a single logical thread.
//
// Each task body runs on its own goroutine, but only while the scheduler has
// handed it the baton: Go and Step block until the resumed task waits again or
// returns. At most one body runs at a time and never concurrently with the
// goroutine that calls Step, so task code may touch simulation state freely.
// Step, Go and Cancel must be called from that goroutine or from inside a task
// body; Step must never be called from inside a task body.
package sched

import "time"

type Scheduler struct {
	now   time.Duration
	dt    time.Duration
	frame uint64

	tasks  []*Task
	nextID uint64
}

// Task is a handle to a running cooperative task.
type Task struct {
	s    *Scheduler
	id   uint64
	name string

	// ready is evaluated on the scheduler thread; nil means "next frame".
	ready    func() bool
	resume   chan bool
	yield    chan struct{}
	canceled bool
	done     bool
}

func New() *Scheduler { return &Scheduler{} }

// Now is the accumulated simulation time.
func (s *Scheduler) Now() time.Duration { return s.now }

// Delta is the dt of the current (last) frame.
func (s *Scheduler) Delta() time.Duration { return s.dt }

func (s *Scheduler) Frame() uint64 { return s.frame }

// Len counts tasks that have not finished.
func (s *Scheduler) Len() int {
	n := 0
	for _, t := range s.tasks {
		if !t.done {
			n++
		}
	}
	return n
}

// Go starts fn and runs it until its first wait (or return) before returning.
func (s *Scheduler) Go(name string, fn func(t *Task)) *Task {
	s.nextID++
	t := &Task{
		s:      s,
		id:     s.nextID,
		name:   name,
		resume: make(chan bool),
		yield:  make(chan struct{}),
	}
	s.tasks = append(s.tasks, t)
	go t.main(fn)
	s.run(t)
	return t
}

func (t *Task) main(fn func(t *Task)) {
	defer func() {
		t.done = true
		t.yield <- struct{}{}
	}()
	if ok := <-t.resume; !ok {
		return
	}
	fn(t)
}

func (s *Scheduler) run(t *Task) {
	t.ready = nil
	t.resume <- !t.canceled
	<-t.yield
}

// Step advances the clock by dt and resumes every task whose wait is
// satisfied, in start order. Canceled tasks are always resumed so they can
// exit. Tasks started during Step are first considered on the next Step.
func (s *Scheduler) Step(dt time.Duration) {
	if dt < 0 {
		dt = 0
	}
	s.frame++
	s.dt = dt
	s.now += dt

	batch := append([]*Task(nil), s.tasks...)
	for _, t := range batch {
		if t.done {
			continue
		}
		if t.canceled || t.ready == nil || t.ready() {
			s.run(t)
		}
	}
	s.compact()
}

func (s *Scheduler) compact() {
	live := s.tasks[:0]
	for _, t := range s.tasks {
		if !t.done {
			live = append(live, t)
		}
	}
	for i := len(live); i < len(s.tasks); i++ {
		s.tasks[i] = nil
	}
	s.tasks = live
}

// Close cancels every task and resumes each until it returns.
func (s *Scheduler) Close() {
	for _, t := range s.tasks {
		t.canceled = true
	}
	for _, t := range s.tasks {
		for i := 0; !t.done && i < 1024; i++ {
			s.run(t)
		}
	}
	s.compact()
}

func (t *Task) ID() uint64     { return t.id }
func (t *Task) Name() string   { return t.name }
func (t *Task) Done() bool     { return t.done }
func (t *Task) Canceled() bool { return t.canceled }

// Cancel marks the task canceled. Its pending wait returns false on the next
// Step; a task that is not yet waiting sees false from its next wait.
func (t *Task) Cancel() {
	if t == nil {
		return
	}
	t.canceled = true
}

func (t *Task) wait(cond func() bool) bool {
	if t.canceled {
		return false
	}
	t.ready = cond
	t.yield <- struct{}{}
	return <-t.resume
}

// NextFrame suspends until the next Step.
func (t *Task) NextFrame() bool { return t.wait(nil) }

// Frames suspends for n Steps.
func (t *Task) Frames(n int) bool {
	for i := 0; i < n; i++ {
		if !t.NextFrame() {
			return false
		}
	}
	return !t.canceled
}

// Until suspends until cond holds. It returns at once when cond already holds.
func (t *Task) Until(cond func() bool) bool {
	if t.canceled {
		return false
	}
	if cond() {
		return true
	}
	return t.wait(cond)
}

// While suspends as long as cond holds.
func (t *Task) While(cond func() bool) bool {
	return t.Until(func() bool { return !cond() })
}

// Sleep suspends until d of simulation time has passed.
func (t *Task) Sleep(d time.Duration) bool {
	if d <= 0 {
		return !t.canceled
	}
	s := t.s
	deadline := s.now + d
	return t.wait(func() bool { return s.now >= deadline })
}
