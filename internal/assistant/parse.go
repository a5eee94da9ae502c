package assistant

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ReminderIntent is a parsed "remind me ..." request.
type ReminderIntent struct {
	Task  string
	DueAt time.Time
	DueIn string
}

var (
	remindIn       = regexp.MustCompile(`(?i)remind\s+me\s+in\s+(\d+)\s*(minutes|minute|min|hours|hour|hr|h|days|day|d)\b\s*(?:to\s+)?(.+)`)
	remindAt       = regexp.MustCompile(`(?i)remind\s+me\s+at\s+(\d{1,2})(?::(\d{2}))?\s*(am|pm)?\s*(?:to\s+)?(.+)`)
	remindTomorrow = regexp.MustCompile(`(?i)remind\s+me\s+tomorrow\s*(?:to\s+)?(.+)`)
)

// ParseReminder recognises relative ("in 2 hours"), clock ("at 3:30pm") and
// "tomorrow" reminders. Clock times already past today roll to tomorrow;
// "tomorrow" means 09:00 the next day. Times are in now's location.
func ParseReminder(message string, now time.Time) (ReminderIntent, bool) {
	if m := remindIn.FindStringSubmatch(message); m != nil {
		amount, err := strconv.Atoi(m[1])
		if err != nil {
			return ReminderIntent{}, false
		}
		unit := strings.ToLower(m[2])
		var step time.Duration
		switch {
		case strings.HasPrefix(unit, "m"):
			step = time.Minute
		case strings.HasPrefix(unit, "h"):
			step = time.Hour
		default:
			step = 24 * time.Hour
		}
		return ReminderIntent{
			Task:  strings.TrimSpace(m[3]),
			DueAt: now.Add(time.Duration(amount) * step),
			DueIn: fmt.Sprintf("in %d %s", amount, unit),
		}, true
	}

	if m := remindAt.FindStringSubmatch(message); m != nil {
		hours, _ := strconv.Atoi(m[1])
		minutes := 0
		if m[2] != "" {
			minutes, _ = strconv.Atoi(m[2])
		}
		switch strings.ToLower(m[3]) {
		case "pm":
			if hours < 12 {
				hours += 12
			}
		case "am":
			if hours == 12 {
				hours = 0
			}
		}
		if hours > 23 || minutes > 59 {
			return ReminderIntent{}, false
		}
		due := time.Date(now.Year(), now.Month(), now.Day(), hours, minutes, 0, 0, now.Location())
		if !due.After(now) {
			due = due.AddDate(0, 0, 1)
		}
		return ReminderIntent{
			Task:  strings.TrimSpace(m[4]),
			DueAt: due,
			DueIn: fmt.Sprintf("at %d:%02d", hours, minutes),
		}, true
	}

	if m := remindTomorrow.FindStringSubmatch(message); m != nil {
		due := time.Date(now.Year(), now.Month(), now.Day()+1, 9, 0, 0, 0, now.Location())
		return ReminderIntent{
			Task:  strings.TrimSpace(m[1]),
			DueAt: due,
			DueIn: "tomorrow at 9am",
		}, true
	}

	return ReminderIntent{}, false
}

type TaskAction string

const (
	TaskAdd            TaskAction = "add"
	TaskComplete       TaskAction = "complete"
	TaskList           TaskAction = "list"
	TaskClearCompleted TaskAction = "clear_completed"
)

// TaskIntent is a parsed task command. Index is zero based into the pending
// task list.
type TaskIntent struct {
	Action TaskAction
	Task   string
	Index  int
}

var (
	explicitAdd = regexp.MustCompile(`(?i)(?:add|create|new)\s+task[:\s]+(.+)`)
	looseAdd    = []*regexp.Regexp{
		regexp.MustCompile(`(?i)task[:\s]+(.+)`),
		regexp.MustCompile(`(?i)todo[:\s]+(.+)`),
		regexp.MustCompile(`(?i)(?:i need to|i have to|i should)\s+(.+)`),
	}
	completeTask = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:complete|done|finish|check off)\s+(?:task\s+)?#?(\d+)`),
		regexp.MustCompile(`(?i)(?:mark|set)\s+(?:task\s+)?#?(\d+)\s+(?:as\s+)?(?:done|complete)`),
	}
)

// ParseTask recognises task commands. An explicit "add task" wins over a
// completion, and a completion wins over the looser "task: ..." forms so
// "complete task 2" is not read as a new task named "2".
func ParseTask(message string) (TaskIntent, bool) {
	if m := explicitAdd.FindStringSubmatch(message); m != nil {
		return TaskIntent{Action: TaskAdd, Task: strings.TrimSpace(m[1])}, true
	}
	for _, p := range completeTask {
		if m := p.FindStringSubmatch(message); m != nil {
			n, err := strconv.Atoi(m[1])
			if err != nil {
				continue
			}
			return TaskIntent{Action: TaskComplete, Index: n - 1}, true
		}
	}
	for _, p := range looseAdd {
		if m := p.FindStringSubmatch(message); m != nil {
			return TaskIntent{Action: TaskAdd, Task: strings.TrimSpace(m[1])}, true
		}
	}

	lower := strings.ToLower(message)
	switch {
	case containsAny(lower, "list task", "show task", "my task", "what are my task"):
		return TaskIntent{Action: TaskList}, true
	case containsAny(lower, "clear completed", "remove completed"):
		return TaskIntent{Action: TaskClearCompleted}, true
	}
	return TaskIntent{}, false
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
