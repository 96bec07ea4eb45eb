package stores

import (
	"context"

	"github.com/stivan622/jarvis-system/pkg/planner"
)

// GoogleCalendarStore holds the read-only external events. The list is
// wholesale-replaced on each successful fetch and never mutated; a
// failed fetch leaves the grid rendering with zero external events
// rather than failing the whole week view.
type GoogleCalendarStore struct {
	client   *Client
	events   []planner.RemoteEvent
	onChange func()
}

func NewGoogleCalendarStore(client *Client) *GoogleCalendarStore {
	return &GoogleCalendarStore{client: client}
}

func (s *GoogleCalendarStore) OnChange(fn func()) {
	s.onChange = fn
}

func (s *GoogleCalendarStore) notify() {
	if s.onChange != nil {
		s.onChange()
	}
}

// Events returns the cached external events. Callers must not mutate
// the slice.
func (s *GoogleCalendarStore) Events() []planner.RemoteEvent {
	return s.events
}

// Load fetches the range. On failure the previous list is cleared so a
// stale event can never be mistaken for a live one; the error is still
// reported for an optional notification.
func (s *GoogleCalendarStore) Load(dateFrom, dateTo string) Mutation {
	return func(ctx context.Context) Outcome {
		events, err := s.client.GoogleEvents(ctx, dateFrom, dateTo)
		if err != nil {
			return Outcome{
				Apply: func() {
					s.events = nil
					s.notify()
				},
				Err: err,
			}
		}
		return Outcome{Apply: func() {
			s.events = events
			s.notify()
		}}
	}
}
