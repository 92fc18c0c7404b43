package analysis

import (
	"testing"
)

func TestDetectFillers(t *testing.T) {
	tests := []struct {
		name       string
		transcript string
		wantTotal  int
		wantDetail map[string]int
	}{
		{
			name:       "empty",
			transcript: "   ",
			wantTotal:  0,
			wantDetail: map[string]int{},
		},
		{
			name:       "no substring matches",
			transcript: "It is likely that the umbrella was justified.",
			wantTotal:  0,
			wantDetail: map[string]int{},
		},
		{
			name:       "case insensitive words",
			transcript: "Um, I was, UM, like the lead. Uh yes.",
			wantTotal:  4,
			wantDetail: map[string]int{"um": 2, "like": 1, "uh": 1},
		},
		{
			name:       "multi word phrases",
			transcript: "You know, I mean the project was, you know, fine.",
			wantTotal:  3,
			wantDetail: map[string]int{"you know": 2, "i mean": 1},
		},
		{
			name:       "overlapping phrases counted independently",
			transcript: "So basically we shipped it.",
			wantTotal:  2,
			wantDetail: map[string]int{"basically": 1, "so basically": 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectFillers(tt.transcript)
			if got.TotalCount != tt.wantTotal {
				t.Errorf("Expected total %d, got %d (%v)", tt.wantTotal, got.TotalCount, got.Detail)
			}
			if len(got.Detail) != len(tt.wantDetail) {
				t.Fatalf("Expected detail %v, got %v", tt.wantDetail, got.Detail)
			}
			for k, v := range tt.wantDetail {
				if got.Detail[k] != v {
					t.Errorf("Expected %q=%d, got %d", k, v, got.Detail[k])
				}
			}
		})
	}
}

func TestFillerRatePerMinute(t *testing.T) {
	if got := FillerRatePerMinute(5, 0); got != 0 {
		t.Errorf("Expected 0 for unknown duration, got %v", got)
	}
	if got := FillerRatePerMinute(7, 90); got != 4.67 {
		t.Errorf("Expected 4.67, got %v", got)
	}
}
