package assistant

import "time"

// Timestamps are unix milliseconds, the unit the web client works in.

type Reminder struct {
	ID        string `json:"id"`
	Task      string `json:"task"`
	DueAt     int64  `json:"dueAt"`
	CreatedAt int64  `json:"createdAt"`
	Notified  bool   `json:"notified"`
	Dismissed bool   `json:"dismissed,omitempty"`
}

type Task struct {
	ID          string `json:"id"`
	Task        string `json:"task"`
	Completed   bool   `json:"completed"`
	CreatedAt   int64  `json:"createdAt"`
	CompletedAt int64  `json:"completedAt,omitempty"`
}

type Settings struct {
	Name string `json:"name,omitempty"`
	Type string `json:"type,omitempty"`
}

type Trial struct {
	Active        bool   `json:"active"`
	ExpiresAt     int64  `json:"expiresAt"`
	MessagesUsed  int    `json:"messagesUsed"`
	MessagesLimit int    `json:"messagesLimit"`
	Upgraded      bool   `json:"upgraded"`
	UpgradedAt    int64  `json:"upgradedAt,omitempty"`
	UpgradeTx     string `json:"upgradeTx,omitempty"`
}

// WolfData is everything stored for one wolf.
type WolfData struct {
	Reminders  []Reminder `json:"reminders"`
	Tasks      []Task     `json:"tasks"`
	Settings   Settings   `json:"settings"`
	CreatedAt  int64      `json:"createdAt"`
	LastActive int64      `json:"lastActive,omitempty"`
	Trial      *Trial     `json:"trial,omitempty"`
}

func newWolfData(now time.Time) *WolfData {
	return &WolfData{
		Reminders: []Reminder{},
		Tasks:     []Task{},
		CreatedAt: now.UnixMilli(),
	}
}

func (d *WolfData) pendingTasks() []*Task {
	var out []*Task
	for i := range d.Tasks {
		if !d.Tasks[i].Completed {
			out = append(out, &d.Tasks[i])
		}
	}
	return out
}

func (d *WolfData) upcomingReminders(now time.Time) []Reminder {
	var out []Reminder
	for _, r := range d.Reminders {
		if r.DueAt > now.UnixMilli() {
			out = append(out, r)
		}
	}
	return out
}

func (d *WolfData) hasData() bool {
	return len(d.Reminders) > 0 || len(d.Tasks) > 0
}
