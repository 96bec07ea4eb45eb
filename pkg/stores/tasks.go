package stores

import (
	"context"

	"github.com/stivan622/jarvis-system/pkg/planner"
)

// TaskStore caches tasks for the weekly panel and "linked task" lookups
// on the grid. Completion toggles are optimistic.
type TaskStore struct {
	client   *Client
	tasks    []planner.Task
	onChange func()
}

func NewTaskStore(client *Client) *TaskStore {
	return &TaskStore{client: client}
}

func (s *TaskStore) OnChange(fn func()) {
	s.onChange = fn
}

func (s *TaskStore) notify() {
	if s.onChange != nil {
		s.onChange()
	}
}

// Tasks returns the cached tasks. Callers must not mutate the slice.
func (s *TaskStore) Tasks() []planner.Task {
	return s.tasks
}

// Find returns the cached task with the given id, for resolving an
// event's linked task.
func (s *TaskStore) Find(id string) (planner.Task, bool) {
	for _, t := range s.tasks {
		if t.ID == id {
			return t, true
		}
	}
	return planner.Task{}, false
}

func (s *TaskStore) indexOf(id string) int {
	for i, t := range s.tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// Load fetches all tasks and wholesale-replaces the cache.
func (s *TaskStore) Load() Mutation {
	return func(ctx context.Context) Outcome {
		return apply(ctx,
			func(ctx context.Context) ([]planner.Task, error) {
				return s.client.Tasks(ctx, "", false)
			},
			func(tasks []planner.Task) {
				s.tasks = tasks
				s.notify()
			},
			func() {},
		)
	}
}

// ToggleDone flips completion optimistically.
func (s *TaskStore) ToggleDone(id string) Mutation {
	i := s.indexOf(id)
	if i < 0 {
		return func(ctx context.Context) Outcome {
			return Outcome{Apply: func() {}, Err: planner.NotFoundError("task", id)}
		}
	}

	snapshot := s.tasks[i]
	s.tasks[i].Done = !s.tasks[i].Done
	s.notify()
	done := s.tasks[i].Done

	return func(ctx context.Context) Outcome {
		return apply(ctx,
			func(ctx context.Context) (*planner.Task, error) {
				return s.client.UpdateTask(ctx, id, Patch{"done": done})
			},
			func(updated *planner.Task) {
				if j := s.indexOf(id); j >= 0 {
					s.tasks[j] = *updated
				}
				s.notify()
			},
			func() {
				if j := s.indexOf(id); j >= 0 {
					s.tasks[j] = snapshot
				}
				s.notify()
			},
		)
	}
}
