package cue

import (
	"errors"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		cues     []Cue
		duration float64
		wantErr  bool
	}{
		{
			name: "ordered",
			cues: []Cue{
				{Ordinal: 1, Interval: TimeInterval{0, 1}, Text: "a"},
				{Ordinal: 2, Interval: TimeInterval{1, 2}, Text: "b"},
			},
			duration: 2,
		},
		{
			name: "overlap",
			cues: []Cue{
				{Ordinal: 1, Interval: TimeInterval{0, 1.5}},
				{Ordinal: 2, Interval: TimeInterval{1, 2}},
			},
			duration: 3,
			wantErr:  true,
		},
		{
			name:     "past duration",
			cues:     []Cue{{Ordinal: 1, Interval: TimeInterval{0, 4}}},
			duration: 3,
			wantErr:  true,
		},
		{
			name:     "zero length",
			cues:     []Cue{{Ordinal: 1, Interval: TimeInterval{2, 2}}},
			duration: 3,
			wantErr:  true,
		},
		{
			name: "ordinal repeats",
			cues: []Cue{
				{Ordinal: 1, Interval: TimeInterval{0, 1}},
				{Ordinal: 1, Interval: TimeInterval{1, 2}},
			},
			duration: 3,
			wantErr:  true,
		},
		{
			name:     "unbounded duration",
			cues:     []Cue{{Ordinal: 1, Interval: TimeInterval{10, 400}}},
			duration: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.cues, tt.duration)
			if tt.wantErr && err == nil {
				t.Fatal("expected error")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if err != nil {
				var inv *InvariantError
				if !errors.As(err, &inv) {
					t.Fatalf("expected InvariantError, got %T", err)
				}
			}
		})
	}
}

func TestTimeIntervalOverlaps(t *testing.T) {
	a := TimeInterval{Start: 2, End: 3}
	if !a.Overlaps(TimeInterval{Start: 2.5, End: 3.5}) {
		t.Fatal("expected overlap")
	}
	if a.Overlaps(TimeInterval{Start: 3, End: 4}) {
		t.Fatal("touching intervals should not overlap")
	}
}

func TestCountByKind(t *testing.T) {
	diags := []Diagnostic{
		{Kind: KindInterpolated, Line: 1},
		{Kind: KindClampedStart, Line: 2},
		{Kind: KindInterpolated, Line: 3},
	}
	counts := CountByKind(diags)
	if counts[KindInterpolated] != 2 || counts[KindClampedStart] != 1 {
		t.Fatalf("unexpected counts %v", counts)
	}
	if !diags[1].IsRepair() || diags[0].IsRepair() {
		t.Fatal("IsRepair classification wrong")
	}
	if got := Filter(diags, KindInterpolated); len(got) != 2 {
		t.Fatalf("Filter returned %d", len(got))
	}
}
