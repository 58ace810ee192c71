package models

import (
	"testing"
	"time"
)

func at(hour int) time.Time {
	return time.Date(2025, 3, 10, hour, 0, 0, 0, time.UTC)
}

func TestOverlaps(t *testing.T) {
	cases := []struct {
		name                       string
		aStart, aEnd, bStart, bEnd time.Time
		want                       bool
	}{
		{"disjoint before", at(8), at(9), at(10), at(12), false},
		{"disjoint after", at(13), at(14), at(10), at(12), false},
		{"touching at boundary", at(8), at(10), at(10), at(12), false},
		{"touching other side", at(12), at(14), at(10), at(12), false},
		{"partial overlap", at(9), at(11), at(10), at(12), true},
		{"contained", at(10), at(11), at(9), at(12), true},
		{"containing", at(9), at(13), at(10), at(12), true},
		{"identical", at(10), at(12), at(10), at(12), true},
		{"one minute overlap", at(10).Add(-time.Minute), at(10).Add(time.Minute), at(10), at(12), true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Overlaps(tc.aStart, tc.aEnd, tc.bStart, tc.bEnd)
			if got != tc.want {
				t.Errorf("Overlaps(%v, %v, %v, %v) = %v, want %v",
					tc.aStart, tc.aEnd, tc.bStart, tc.bEnd, got, tc.want)
			}
		})
	}

	// symmetry
	if Overlaps(at(9), at(11), at(10), at(12)) != Overlaps(at(10), at(12), at(9), at(11)) {
		t.Error("Overlaps is not symmetric")
	}
}

func TestBookingValidate(t *testing.T) {
	b := Booking{ResourceId: 1, StartTime: at(10), EndTime: at(12), AllocatedQty: 1}
	if err := b.validate(); err != nil {
		t.Fatalf("valid booking rejected: %v", err)
	}

	b.EndTime = b.StartTime
	if err := b.validate(); err == nil {
		t.Error("zero-length booking accepted")
	}

	b.EndTime = at(12)
	b.AllocatedQty = 0
	if err := b.validate(); err == nil {
		t.Error("zero-quantity booking accepted")
	}
}
