package stores

import (
	"context"

	"github.com/stivan622/jarvis-system/pkg/planner"
)

// ScheduleStore caches the visible range's locally scheduled events and
// pushes mutations through the API. Update and Delete are optimistic;
// Create waits for the server because the grid needs the minted id.
type ScheduleStore struct {
	client   *Client
	events   []planner.ScheduleEvent
	onChange func()
}

func NewScheduleStore(client *Client) *ScheduleStore {
	return &ScheduleStore{client: client}
}

// OnChange registers the re-render callback. At most one subscriber;
// the hosting view owns the store.
func (s *ScheduleStore) OnChange(fn func()) {
	s.onChange = fn
}

func (s *ScheduleStore) notify() {
	if s.onChange != nil {
		s.onChange()
	}
}

// Events returns the cached events. Callers must not mutate the slice.
func (s *ScheduleStore) Events() []planner.ScheduleEvent {
	return s.events
}

// Find returns the cached event with the given id.
func (s *ScheduleStore) Find(id string) (planner.ScheduleEvent, bool) {
	for _, e := range s.events {
		if e.ID == id {
			return e, true
		}
	}
	return planner.ScheduleEvent{}, false
}

func (s *ScheduleStore) indexOf(id string) int {
	for i, e := range s.events {
		if e.ID == id {
			return i
		}
	}
	return -1
}

// Load fetches the date range and wholesale-replaces the cache.
func (s *ScheduleStore) Load(dateFrom, dateTo string) Mutation {
	return func(ctx context.Context) Outcome {
		return apply(ctx,
			func(ctx context.Context) ([]planner.ScheduleEvent, error) {
				return s.client.ScheduleEvents(ctx, dateFrom, dateTo)
			},
			func(events []planner.ScheduleEvent) {
				s.events = events
				s.notify()
			},
			func() {},
		)
	}
}

// Create persists a new event and inserts the server copy on success.
// Nothing is shown speculatively: the inline-create block the user was
// editing already occupies the slot until the outcome lands.
func (s *ScheduleStore) Create(e planner.ScheduleEvent) Mutation {
	return func(ctx context.Context) Outcome {
		return apply(ctx,
			func(ctx context.Context) (*planner.ScheduleEvent, error) {
				return s.client.CreateScheduleEvent(ctx, e)
			},
			func(created *planner.ScheduleEvent) {
				s.events = append(s.events, *created)
				s.notify()
			},
			func() {},
		)
	}
}

// Update applies mutate to the cached event immediately and sends patch
// to the server. On success the server copy replaces the speculative
// one; on failure the snapshot is restored.
func (s *ScheduleStore) Update(id string, mutate func(*planner.ScheduleEvent), patch Patch) Mutation {
	i := s.indexOf(id)
	if i < 0 {
		return func(ctx context.Context) Outcome {
			return Outcome{Apply: func() {}, Err: planner.NotFoundError("schedule event", id)}
		}
	}

	snapshot := s.events[i]
	mutate(&s.events[i])
	s.notify()

	return func(ctx context.Context) Outcome {
		return apply(ctx,
			func(ctx context.Context) (*planner.ScheduleEvent, error) {
				return s.client.UpdateScheduleEvent(ctx, id, patch)
			},
			func(updated *planner.ScheduleEvent) {
				if j := s.indexOf(id); j >= 0 {
					s.events[j] = *updated
				}
				s.notify()
			},
			func() {
				if j := s.indexOf(id); j >= 0 {
					s.events[j] = snapshot
				}
				s.notify()
			},
		)
	}
}

// Move is the drag/resize commit: optimistic placement update.
func (s *ScheduleStore) Move(id, date string, startMinutes, durationMinutes int) Mutation {
	return s.Update(id,
		func(e *planner.ScheduleEvent) {
			e.Date = date
			e.StartMinutes = startMinutes
			e.DurationMinutes = durationMinutes
		},
		Patch{
			"date":             date,
			"start_minutes":    startMinutes,
			"duration_minutes": durationMinutes,
		},
	)
}

// Delete removes the event optimistically; failure puts it back where
// it was.
func (s *ScheduleStore) Delete(id string) Mutation {
	i := s.indexOf(id)
	if i < 0 {
		return func(ctx context.Context) Outcome {
			return Outcome{Apply: func() {}, Err: planner.NotFoundError("schedule event", id)}
		}
	}

	snapshot := s.events[i]
	pos := i
	s.events = append(s.events[:i], s.events[i+1:]...)
	s.notify()

	return func(ctx context.Context) Outcome {
		return apply(ctx,
			func(ctx context.Context) (struct{}, error) {
				return struct{}{}, s.client.DeleteScheduleEvent(ctx, id)
			},
			func(struct{}) {},
			func() {
				if pos > len(s.events) {
					pos = len(s.events)
				}
				s.events = append(s.events[:pos], append([]planner.ScheduleEvent{snapshot}, s.events[pos:]...)...)
				s.notify()
			},
		)
	}
}
