package providers

import (
	"testing"
	"time"
)

func TestGridTimes(t *testing.T) {
	denver := time.FixedZone("MST", -7*3600)
	tests := []struct {
		name         string
		start, end   time.Time
		allDay       bool
		wantDate     string
		wantStart    int
		wantDuration int
	}{
		{
			name:         "timed event keeps its own wall clock",
			start:        time.Date(2026, 3, 4, 10, 0, 0, 0, denver),
			end:          time.Date(2026, 3, 4, 11, 30, 0, 0, denver),
			wantDate:     "2026-03-04",
			wantStart:    600,
			wantDuration: 90,
		},
		{
			name:         "short event floored to minimum block",
			start:        time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC),
			end:          time.Date(2026, 3, 4, 10, 5, 0, 0, time.UTC),
			wantDate:     "2026-03-04",
			wantStart:    600,
			wantDuration: 15,
		},
		{
			name:         "zero-length event floored to minimum block",
			start:        time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC),
			end:          time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC),
			wantDate:     "2026-03-04",
			wantStart:    600,
			wantDuration: 15,
		},
		{
			name:         "all-day spans the whole day",
			start:        time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC),
			end:          time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC),
			allDay:       true,
			wantDate:     "2026-03-04",
			wantStart:    0,
			wantDuration: 1440,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			date, start, duration := GridTimes(tt.start, tt.end, tt.allDay)
			if date != tt.wantDate || start != tt.wantStart || duration != tt.wantDuration {
				t.Errorf("GridTimes = (%s, %d, %d), want (%s, %d, %d)",
					date, start, duration, tt.wantDate, tt.wantStart, tt.wantDuration)
			}
		})
	}
}
