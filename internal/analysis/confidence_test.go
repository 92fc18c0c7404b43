package analysis

import (
	"reflect"
	"testing"
)

func floatPtr(v float64) *float64 { return &v }

func TestScoreConfidence(t *testing.T) {
	tests := []struct {
		name           string
		in             ScoreInput
		wantConfidence float64
		wantReadiness  float64
		wantFlags      []string
	}{
		{
			name:           "heavy penalties without star",
			in:             ScoreInput{FillerCount: 20, DurationSeconds: 60, PauseCount: 7, WPM: 200},
			wantConfidence: 40,
			wantReadiness:  40,
			wantFlags:      []string{FlagHighFiller, FlagPaceIssue, FlagManyPauses},
		},
		{
			name:           "clean delivery with star",
			in:             ScoreInput{FillerCount: 2, DurationSeconds: 70, PauseCount: 1, WPM: 135, StarScore: floatPtr(90)},
			wantConfidence: 100,
			wantReadiness:  96.0,
			wantFlags:      []string{},
		},
		{
			name:           "boundaries use strict greater than for fillers",
			in:             ScoreInput{FillerCount: 15, DurationSeconds: 50, PauseCount: 3, WPM: 165},
			wantConfidence: 80,
			wantReadiness:  80,
			wantFlags:      []string{FlagModerateFiller},
		},
		{
			name:           "minor filler penalty has no flag",
			in:             ScoreInput{FillerCount: 5, DurationSeconds: 45, PauseCount: 0, WPM: 99},
			wantConfidence: 75,
			wantReadiness:  75,
			wantFlags:      []string{},
		},
		{
			name:           "unknown pace is not penalized",
			in:             ScoreInput{FillerCount: 0, DurationSeconds: 0, PauseCount: 0, WPM: 0},
			wantConfidence: 80,
			wantReadiness:  80,
			wantFlags:      []string{FlagTooShort},
		},
		{
			name:           "every penalty applies",
			in:             ScoreInput{FillerCount: 30, DurationSeconds: 10, PauseCount: 10, WPM: 40, StarScore: floatPtr(0)},
			wantConfidence: 20,
			wantReadiness:  12,
			wantFlags:      []string{FlagHighFiller, FlagPaceIssue, FlagManyPauses, FlagTooShort},
		},
		{
			name:           "readiness rounded to one decimal",
			in:             ScoreInput{FillerCount: 9, DurationSeconds: 65, PauseCount: 0, WPM: 130, StarScore: floatPtr(33)},
			wantConfidence: 85,
			wantReadiness:  64.2,
			wantFlags:      []string{FlagModerateFiller},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ScoreConfidence(tt.in)
			if got.ConfidenceScore != tt.wantConfidence {
				t.Errorf("Expected confidence %v, got %v", tt.wantConfidence, got.ConfidenceScore)
			}
			if got.ReadinessScore != tt.wantReadiness {
				t.Errorf("Expected readiness %v, got %v", tt.wantReadiness, got.ReadinessScore)
			}
			if !reflect.DeepEqual(got.Flags, tt.wantFlags) {
				t.Errorf("Expected flags %v, got %v", tt.wantFlags, got.Flags)
			}
		})
	}
}

func TestScoreConfidence_MonotoneInPenalties(t *testing.T) {
	base := ScoreInput{FillerCount: 0, DurationSeconds: 60, PauseCount: 0, WPM: 140}

	sweep := func(t *testing.T, steps int, apply func(in *ScoreInput, i int)) {
		t.Helper()
		prev := ScoreConfidence(base).ConfidenceScore
		for i := 1; i <= steps; i++ {
			in := base
			apply(&in, i)
			got := ScoreConfidence(in).ConfidenceScore
			if got > prev {
				t.Fatalf("Expected non-increasing score at step %d (%+v), got %.1f after %.1f", i, in, got, prev)
			}
			prev = got
		}
	}

	t.Run("filler count", func(t *testing.T) {
		sweep(t, 30, func(in *ScoreInput, i int) { in.FillerCount = i })
	})
	t.Run("pause count", func(t *testing.T) {
		sweep(t, 12, func(in *ScoreInput, i int) { in.PauseCount = i })
	})
	t.Run("wpm above band", func(t *testing.T) {
		sweep(t, 160, func(in *ScoreInput, i int) { in.WPM = 140 + float64(i) })
	})
	t.Run("wpm below band", func(t *testing.T) {
		// zero wpm means unknown, so stop at 1
		sweep(t, 139, func(in *ScoreInput, i int) { in.WPM = 140 - float64(i) })
	})
}
