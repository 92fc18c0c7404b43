package practice

import (
	"context"
	"fmt"

	"github.com/flowenci/interview-coach/internal/coaching"
	"github.com/flowenci/interview-coach/internal/store"
)

// FeedbackView is the polling response for one recording
type FeedbackView struct {
	RecordingID      string          `json:"recording_id"`
	Status           string          `json:"status"`
	Feedback         *store.Feedback `json:"feedback"`
	MilestoneMessage string          `json:"milestone_message,omitempty"`
}

// LoadFeedback returns the analysis state of a user's recording. Feedback is nil until done.
func LoadFeedback(ctx context.Context, ds store.DataStore, userID, recordingID string) (*FeedbackView, error) {
	rec, err := ds.GetRecording(ctx, recordingID, userID)
	if err != nil {
		return nil, err
	}
	view := &FeedbackView{RecordingID: rec.ID, Status: rec.AnalysisStatus}
	if rec.AnalysisStatus != store.StatusDone {
		return view, nil
	}

	fb, err := ds.GetFeedbackByRecording(ctx, rec.ID)
	if err != nil {
		return nil, err
	}
	done, err := ds.ListDoneRecordings(ctx, userID, "")
	if err != nil {
		return nil, fmt.Errorf("count done recordings: %w", err)
	}

	view.Feedback = fb
	view.MilestoneMessage = coaching.MilestoneMessage(len(done), fb.ReadinessScore, fb.FillerWordCount)
	return view, nil
}
