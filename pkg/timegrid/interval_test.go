package timegrid

import "testing"

func TestClip(t *testing.T) {
	tests := []struct {
		name                 string
		start, duration      int
		winStart, winEnd     int
		want                 Interval
		wantOK               bool
	}{
		{"inside window", 700, 60, 600, 1200, Interval{700, 760}, true},
		{"overlaps window start", 540, 120, 600, 1200, Interval{600, 660}, true},
		{"overlaps window end", 1150, 120, 600, 1200, Interval{1150, 1200}, true},
		{"spans whole window", 0, 1440, 600, 1200, Interval{600, 1200}, true},
		{"before window", 0, 600, 600, 1200, Interval{}, false},
		{"after window", 1200, 60, 600, 1200, Interval{}, false},
		{"zero duration", 700, 0, 600, 1200, Interval{}, false},
		{"touches window start only", 540, 60, 600, 1200, Interval{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Clip(tt.start, tt.duration, tt.winStart, tt.winEnd)
			if ok != tt.wantOK {
				t.Fatalf("Clip(%d,%d,%d,%d) ok = %v, want %v",
					tt.start, tt.duration, tt.winStart, tt.winEnd, ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("Clip(%d,%d,%d,%d) = %+v, want %+v",
					tt.start, tt.duration, tt.winStart, tt.winEnd, got, tt.want)
			}
		})
	}
}

func TestOverlaps(t *testing.T) {
	a := Interval{0, 60}
	tests := []struct {
		name string
		b    Interval
		want bool
	}{
		{"partial overlap", Interval{30, 90}, true},
		{"contained", Interval{10, 50}, true},
		{"identical", Interval{0, 60}, true},
		{"touching end", Interval{60, 90}, false},
		{"touching start", Interval{-30, 0}, false},
		{"disjoint", Interval{90, 120}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Overlaps(a, tt.b); got != tt.want {
				t.Errorf("Overlaps(%+v, %+v) = %v, want %v", a, tt.b, got, tt.want)
			}
			if got := Overlaps(tt.b, a); got != tt.want {
				t.Errorf("Overlaps(%+v, %+v) = %v, want %v", tt.b, a, got, tt.want)
			}
		})
	}
}

func TestMergeAndSum(t *testing.T) {
	tests := []struct {
		name      string
		intervals []Interval
		want      int
	}{
		{"empty", nil, 0},
		{"single", []Interval{{600, 660}}, 60},
		{"disjoint", []Interval{{600, 660}, {700, 760}}, 120},
		{"overlapping pair counted once", []Interval{{600, 1200}, {600, 1200}}, 600},
		{"partial overlap", []Interval{{0, 60}, {30, 90}}, 90},
		{"touching joins", []Interval{{0, 60}, {60, 120}}, 120},
		{"unsorted input", []Interval{{700, 760}, {0, 60}, {30, 90}}, 150},
		{"contained interval", []Interval{{0, 120}, {30, 60}}, 120},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MergeAndSum(tt.intervals); got != tt.want {
				t.Errorf("MergeAndSum(%v) = %d, want %d", tt.intervals, got, tt.want)
			}
		})
	}
}

func TestMergeAndSumIdempotent(t *testing.T) {
	input := []Interval{{700, 760}, {0, 60}, {30, 90}, {55, 100}, {1400, 1440}}
	first := MergeAndSum(input)
	if again := MergeAndSum(Merge(input)); again != first {
		t.Errorf("MergeAndSum over merged output = %d, want %d", again, first)
	}
}

func TestMergeDoesNotModifyInput(t *testing.T) {
	input := []Interval{{700, 760}, {0, 60}}
	MergeAndSum(input)
	if input[0] != (Interval{700, 760}) || input[1] != (Interval{0, 60}) {
		t.Errorf("input reordered: %v", input)
	}
}

func TestSnapMinutes(t *testing.T) {
	tests := []struct {
		raw  float64
		want int
	}{
		{0, 0},
		{7, 0},
		{7.5, 15},
		{22, 15},
		{23, 30},
		{600, 600},
		{1432.5, 1440},
		{-10, -15},
		{-7, 0},
	}
	for _, tt := range tests {
		if got := SnapMinutes(tt.raw); got != tt.want {
			t.Errorf("SnapMinutes(%v) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}
