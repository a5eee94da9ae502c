package assistant

import (
	"fmt"
	"strings"
	"time"
)

// Briefing summarises a wolf's reminders and tasks as of now.
func Briefing(wolfName string, d *WolfData, now time.Time) string {
	nowMs := now.UnixMilli()
	upcoming := d.upcomingReminders(now)
	var overdue []Reminder
	for _, r := range d.Reminders {
		if r.DueAt <= nowMs && !r.Dismissed {
			overdue = append(overdue, r)
		}
	}
	pending := d.pendingTasks()
	completedToday := 0
	for _, t := range d.Tasks {
		if t.Completed && sameDay(time.UnixMilli(t.CompletedAt).In(now.Location()), now) {
			completedToday++
		}
	}

	header := fmt.Sprintf("📋 **daily briefing from %s**\n\n", wolfName)
	if len(upcoming) == 0 && len(pending) == 0 && len(overdue) == 0 {
		return header + "all clear! no reminders or tasks pending. enjoy the calm... or give me something to track 🐺"
	}

	var b strings.Builder
	b.WriteString(header)
	if len(overdue) > 0 {
		b.WriteString("⚠️ **overdue:**\n")
		for _, r := range overdue {
			fmt.Fprintf(&b, "  • %s\n", r.Task)
		}
		b.WriteString("\n")
	}
	if len(upcoming) > 0 {
		fmt.Fprintf(&b, "⏰ **upcoming reminders:** %d\n", len(upcoming))
		for i, r := range upcoming {
			if i == 3 {
				fmt.Fprintf(&b, "  ... and %d more\n", len(upcoming)-3)
				break
			}
			fmt.Fprintf(&b, "  • %s (%s)\n", r.Task, FormatTimeUntil(time.UnixMilli(r.DueAt), now))
		}
		b.WriteString("\n")
	}
	if len(pending) > 0 {
		fmt.Fprintf(&b, "📝 **tasks:** %d pending\n", len(pending))
		for i, t := range pending {
			if i == 5 {
				fmt.Fprintf(&b, "  ... and %d more\n", len(pending)-5)
				break
			}
			fmt.Fprintf(&b, "  %d. %s\n", i+1, t.Task)
		}
		b.WriteString("\n")
	}
	if completedToday > 0 {
		fmt.Fprintf(&b, "✅ **completed today:** %d\n", completedToday)
	}
	return b.String()
}

// FormatTimeUntil renders the coarsest whole unit left until due.
func FormatTimeUntil(due, now time.Time) string {
	diff := due.Sub(now)
	if diff < 0 {
		return "overdue"
	}
	minutes := int(diff / time.Minute)
	hours := minutes / 60
	days := hours / 24
	switch {
	case days > 0:
		return fmt.Sprintf("in %dd", days)
	case hours > 0:
		return fmt.Sprintf("in %dh", hours)
	case minutes > 0:
		return fmt.Sprintf("in %dm", minutes)
	default:
		return "soon"
	}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
