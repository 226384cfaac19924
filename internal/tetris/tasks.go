package tetris

import (
	"slices"
	"time"
)

type taskKind uint8

const (
	taskClearLines taskKind = iota + 1
	taskEndShake
)

func (k taskKind) String() string {
	switch k {
	case taskClearLines:
		return "clear-lines"
	case taskEndShake:
		return "end-shake"
	default:
		return "unknown"
	}
}

// task is a deferred mutation. Tasks are keyed by the logical clock passed
// to Step, not by wall-clock timers, and fire in (due, seq) order.
type task struct {
	due   time.Duration
	seq   uint64
	kind  taskKind
	bonus int // hard drop points credited when the lines are cleared
}

func taskLess(a, b task) int {
	if a.due != b.due {
		if a.due < b.due {
			return -1
		}
		return 1
	}
	if a.seq < b.seq {
		return -1
	}
	if a.seq > b.seq {
		return 1
	}
	return 0
}

// schedule queues a task to fire delay after the current logical time.
func (s *State) schedule(delay time.Duration, kind taskKind, bonus int) {
	s.taskSeq++
	t := task{due: s.now + delay, seq: s.taskSeq, kind: kind, bonus: bonus}
	s.tasks = append(slices.Clip(s.tasks), t)
}

// popDue removes and returns the earliest task due at or before now.
func (s *State) popDue() (task, bool) {
	if len(s.tasks) == 0 {
		return task{}, false
	}
	i := 0
	for j := 1; j < len(s.tasks); j++ {
		if taskLess(s.tasks[j], s.tasks[i]) < 0 {
			i = j
		}
	}
	t := s.tasks[i]
	if t.due > s.now {
		return task{}, false
	}
	s.tasks = slices.Delete(slices.Clone(s.tasks), i, i+1)
	return t, true
}

// PendingTasks returns the number of deferred mutations still queued.
func (s State) PendingTasks() int {
	return len(s.tasks)
}

// runDueTasks fires every task that is due, reading the state as it is
// when the task fires.
func (s *State) runDueTasks(events *[]Event) {
	for {
		t, ok := s.popDue()
		if !ok {
			return
		}
		if s.Status == GameOver {
			continue
		}
		s.dirty = true
		switch t.kind {
		case taskClearLines:
			s.clearLines(t.bonus, events)
		case taskEndShake:
			s.Shake = false
		}
	}
}
