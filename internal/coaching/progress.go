package coaching

import "fmt"

// MilestoneMessage returns the progress message for a user's done-recording count
// and latest metrics. The first matching rule wins.
func MilestoneMessage(completed int, readiness float64, fillerCount int) string {
	switch {
	case completed == 1:
		return "🎉 First recording done! Every expert was once a beginner. Keep going!"
	case completed == 5:
		return "🔥 5 recordings in! You're building a real habit. Consistency is key."
	case completed == 10:
		return "🚀 10 recordings! You're in the top 10% of serious interview preppers."
	case readiness >= 75:
		return "✨ Readiness score above 75! You're interview-ready. Trust your preparation."
	case fillerCount <= 3:
		return "💪 Excellent - barely any filler words! Interviewers will notice your calm delivery."
	case completed > 0 && completed%5 == 0:
		return fmt.Sprintf("📈 %d recordings completed! Track your trend to see how far you've come.", completed)
	default:
		return "Keep practicing - every recording makes you more confident!"
	}
}
