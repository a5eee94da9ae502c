package wolf

import "time"

type Mood string

const (
	Energized Mood = "energized"
	Focused   Mood = "focused"
	Playful   Mood = "playful"
	Tired     Mood = "tired"
	Proud     Mood = "proud"
)

// State is what the client reports about its wolf's recent activity.
type State struct {
	RecentSuccesses int  `json:"recentSuccesses"`
	MessageCount    int  `json:"messageCount"`
	HourOfDay       *int `json:"hourOfDay,omitempty"`
}

// CalculateMood picks a mood from the reported state. Night hours win over
// everything else, then a recent success, then a busy conversation.
func CalculateMood(s State, now time.Time, r Rand) Mood {
	hour := now.Hour()
	if s.HourOfDay != nil {
		hour = *s.HourOfDay
	}
	switch {
	case hour >= 2 && hour <= 6:
		return Tired
	case s.RecentSuccesses > 0:
		return Proud
	case s.MessageCount > 5:
		return Energized
	case r.Float64() > 0.7:
		return Playful
	default:
		return Focused
	}
}
