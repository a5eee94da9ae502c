// Package assistant keeps a wolf's reminders, tasks and trial state and
// answers the assistant chat intents that operate on them.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/heyzoos123-blip/darkflobi-industries/internal/blob"
	"github.com/heyzoos123-blip/darkflobi-industries/internal/log"
	"github.com/heyzoos123-blip/darkflobi-industries/internal/payment"
)

var logger = log.NewLogger("assistant")

const (
	DefaultTrialLength   = 24 * time.Hour
	DefaultTrialMessages = 10
	DefaultType          = "assistant"

	// A wolf with no heartbeat for this long is considered abandoned.
	expiryAfter = 30 * 24 * time.Hour

	lockStripes = 32
)

const (
	ActionInit           = "init"
	ActionDelete         = "delete"
	ActionCheckTrial     = "check_trial"
	ActionUseMessage     = "use_message"
	ActionUpgrade        = "upgrade"
	ActionHeartbeat      = "heartbeat"
	ActionGetBriefing    = "get_briefing"
	ActionCheckReminders = "check_reminders"
	ActionGetData        = "get_data"
)

var (
	ErrMissingWolfID    = errors.New("Missing wolfId")
	ErrMissingSignature = errors.New("Missing transaction signature")
)

// PaymentError is returned by an upgrade whose payment was rejected.
type PaymentError struct {
	Verdict payment.Verdict
}

func (e *PaymentError) Error() string { return e.Verdict.Error }

// PaymentVerifier is satisfied by *payment.Verifier.
type PaymentVerifier interface {
	Verify(ctx context.Context, signature string, kind payment.Kind, expected decimal.Decimal) (payment.Verdict, error)
}

type Options struct {
	Store         blob.Store
	Verifier      PaymentVerifier
	UpgradeKind   payment.Kind
	UpgradePrice  decimal.Decimal
	TrialLength   time.Duration
	TrialMessages int
	Now           func() time.Time
	NewID         func() string
}

type Request struct {
	WolfID      string `json:"wolfId"`
	WolfName    string `json:"wolfName"`
	WolfType    string `json:"wolfType"`
	Action      string `json:"action"`
	Message     string `json:"message"`
	TxSignature string `json:"txSignature"`
}

type InitResult struct {
	Success bool   `json:"success"`
	WolfID  string `json:"wolfId"`
	Trial   Trial  `json:"trial"`
}

type DeleteResult struct {
	Success bool `json:"success"`
	Deleted bool `json:"deleted"`
}

// TrialStatus is a trial plus its derived status. Status is upgraded,
// expired or active; Reason says why an expired trial ended.
type TrialStatus struct {
	Trial
	Status       string `json:"status"`
	Reason       string `json:"reason,omitempty"`
	TimeLeft     int64  `json:"timeLeft"`
	MessagesLeft int    `json:"messagesLeft"`
}

type CheckTrialResult struct {
	Trial TrialStatus `json:"trial"`
}

type UseMessageResult struct {
	Success       bool `json:"success"`
	MessagesUsed  int  `json:"messagesUsed"`
	MessagesLimit int  `json:"messagesLimit"`
}

type UpgradeResult struct {
	Success  bool   `json:"success"`
	Upgraded bool   `json:"upgraded"`
	Message  string `json:"message"`
}

type HeartbeatResult struct {
	Success   bool `json:"success"`
	IsExpired bool `json:"isExpired"`
}

type DataResult struct {
	Data *WolfData `json:"data"`
}

// Reply answers briefing, reminder and free-text requests. Response and
// Action are empty when nothing matched.
type Reply struct {
	Response string `json:"response"`
	Action   string `json:"action"`
	HasData  bool   `json:"hasData"`
}

type Assistant struct {
	store         blob.Store
	verifier      PaymentVerifier
	upgradeKind   payment.Kind
	upgradePrice  decimal.Decimal
	trialLength   time.Duration
	trialMessages int
	now           func() time.Time
	newID         func() string
	locks         [lockStripes]sync.Mutex
}

func New(opts Options) *Assistant {
	a := &Assistant{
		store:         blob.Namespace(opts.Store, "wolf-data/"),
		verifier:      opts.Verifier,
		upgradeKind:   opts.UpgradeKind,
		upgradePrice:  opts.UpgradePrice,
		trialLength:   opts.TrialLength,
		trialMessages: opts.TrialMessages,
		now:           opts.Now,
		newID:         opts.NewID,
	}
	if a.trialLength <= 0 {
		a.trialLength = DefaultTrialLength
	}
	if a.trialMessages <= 0 {
		a.trialMessages = DefaultTrialMessages
	}
	if a.now == nil {
		a.now = time.Now
	}
	if a.newID == nil {
		a.newID = func() string { return uuid.NewString() }
	}
	return a
}

// lock serialises read-modify-write cycles on one wolf.
func (a *Assistant) lock(wolfID string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(wolfID))
	mu := &a.locks[h.Sum32()%lockStripes]
	mu.Lock()
	return mu.Unlock
}

func (a *Assistant) load(ctx context.Context, wolfID string) (*WolfData, error) {
	data := &WolfData{}
	found, err := blob.GetJSON(ctx, a.store, wolfID, data)
	if err != nil {
		return nil, fmt.Errorf("load wolf %s: %w", wolfID, err)
	}
	if !found {
		return newWolfData(a.now()), nil
	}
	if data.Reminders == nil {
		data.Reminders = []Reminder{}
	}
	if data.Tasks == nil {
		data.Tasks = []Task{}
	}
	return data, nil
}

func (a *Assistant) save(ctx context.Context, wolfID string, data *WolfData) error {
	if err := blob.SetJSON(ctx, a.store, wolfID, data); err != nil {
		return fmt.Errorf("save wolf %s: %w", wolfID, err)
	}
	return nil
}

// Handle runs one assistant request. The result is one of the *Result types
// or a Reply, ready to be encoded as the response body.
func (a *Assistant) Handle(ctx context.Context, req Request) (any, error) {
	if req.WolfID == "" {
		return nil, ErrMissingWolfID
	}
	if req.Action == ActionUpgrade {
		return a.upgrade(ctx, req)
	}

	unlock := a.lock(req.WolfID)
	defer unlock()

	data, err := a.load(ctx, req.WolfID)
	if err != nil {
		return nil, err
	}
	now := a.now()

	switch req.Action {
	case ActionInit:
		return a.startTrial(ctx, req, now)
	case ActionDelete:
		if err := a.store.Delete(ctx, req.WolfID); err != nil && !errors.Is(err, blob.ErrNotFound) {
			return nil, fmt.Errorf("delete wolf %s: %w", req.WolfID, err)
		}
		logger.Info().Str("wolf", req.WolfID).Msg("wolf deleted")
		return DeleteResult{Success: true, Deleted: true}, nil
	case ActionCheckTrial:
		return CheckTrialResult{Trial: trialStatus(data.Trial, now)}, nil
	case ActionUseMessage:
		if t := data.Trial; t != nil && t.Active && !t.Upgraded {
			t.MessagesUsed++
			if err := a.save(ctx, req.WolfID, data); err != nil {
				return nil, err
			}
		}
		res := UseMessageResult{Success: true, MessagesLimit: DefaultTrialMessages}
		if data.Trial != nil {
			res.MessagesUsed = data.Trial.MessagesUsed
			if data.Trial.MessagesLimit > 0 {
				res.MessagesLimit = data.Trial.MessagesLimit
			}
		}
		return res, nil
	case ActionHeartbeat:
		expired := data.LastActive > 0 && now.Sub(time.UnixMilli(data.LastActive)) > expiryAfter
		data.LastActive = now.UnixMilli()
		if err := a.save(ctx, req.WolfID, data); err != nil {
			return nil, err
		}
		return HeartbeatResult{Success: true, IsExpired: expired}, nil
	case ActionGetData:
		return DataResult{Data: data}, nil
	case ActionGetBriefing:
		return Reply{Response: Briefing(displayName(req), data, now), Action: "briefing", HasData: data.hasData()}, nil
	case ActionCheckReminders:
		return a.checkReminders(ctx, req.WolfID, data, now)
	}

	reply := Reply{}
	if req.Message != "" {
		reply, err = a.message(ctx, req, data, now)
		if err != nil {
			return nil, err
		}
	}
	reply.HasData = data.hasData()
	return reply, nil
}

func (a *Assistant) startTrial(ctx context.Context, req Request, now time.Time) (any, error) {
	wolfType := req.WolfType
	if wolfType == "" {
		wolfType = DefaultType
	}
	trial := Trial{
		Active:        true,
		ExpiresAt:     now.Add(a.trialLength).UnixMilli(),
		MessagesLimit: a.trialMessages,
	}
	data := newWolfData(now)
	data.LastActive = now.UnixMilli()
	data.Settings = Settings{Name: req.WolfName, Type: wolfType}
	data.Trial = &trial
	if err := a.save(ctx, req.WolfID, data); err != nil {
		return nil, err
	}
	logger.Info().Str("wolf", req.WolfID).Str("type", wolfType).Msg("trial started")
	return InitResult{Success: true, WolfID: req.WolfID, Trial: trial}, nil
}

func trialStatus(t *Trial, now time.Time) TrialStatus {
	if t == nil {
		// Wolves created before trials existed are treated as paid.
		t = &Trial{Upgraded: true}
	}
	st := TrialStatus{
		Trial:        *t,
		Status:       "active",
		TimeLeft:     max(0, t.ExpiresAt-now.UnixMilli()),
		MessagesLeft: max(0, t.MessagesLimit-t.MessagesUsed),
	}
	switch {
	case t.Upgraded:
		st.Status = "upgraded"
	case t.Active && now.UnixMilli() > t.ExpiresAt:
		st.Status, st.Reason = "expired", "time"
	case t.Active && t.MessagesUsed >= t.MessagesLimit:
		st.Status, st.Reason = "expired", "messages"
	}
	return st
}

// upgrade verifies the payment before taking the wolf lock so a slow RPC
// does not hold up other requests for the same stripe.
func (a *Assistant) upgrade(ctx context.Context, req Request) (any, error) {
	if req.TxSignature == "" {
		return nil, ErrMissingSignature
	}
	if a.verifier == nil {
		return nil, errors.New("payment verification is not configured")
	}
	verdict, err := a.verifier.Verify(ctx, req.TxSignature, a.upgradeKind, a.upgradePrice)
	if err != nil {
		verdict = payment.Unverifiable(err)
	}
	if !verdict.Valid {
		logger.Warn().Str("wolf", req.WolfID).Str("reason", string(verdict.Reason)).Msg("upgrade payment rejected")
		return nil, &PaymentError{Verdict: verdict}
	}

	unlock := a.lock(req.WolfID)
	defer unlock()

	data, err := a.load(ctx, req.WolfID)
	if err != nil {
		return nil, err
	}
	now := a.now()
	if data.Trial == nil {
		data.Trial = &Trial{}
	}
	data.Trial.Upgraded = true
	data.Trial.Active = false
	data.Trial.UpgradedAt = now.UnixMilli()
	data.Trial.UpgradeTx = req.TxSignature
	if err := a.save(ctx, req.WolfID, data); err != nil {
		return nil, err
	}
	logger.Info().Str("wolf", req.WolfID).Str("amount", verdict.Amount.String()).Msg("wolf upgraded")
	return UpgradeResult{Success: true, Upgraded: true, Message: "Wolf upgraded! No more limits."}, nil
}

func (a *Assistant) checkReminders(ctx context.Context, wolfID string, data *WolfData, now time.Time) (Reply, error) {
	var due []string
	for i := range data.Reminders {
		r := &data.Reminders[i]
		if r.DueAt <= now.UnixMilli() && !r.Notified {
			r.Notified = true
			due = append(due, "• "+r.Task)
		}
	}
	if len(due) == 0 {
		return Reply{Action: "no_reminders", HasData: data.hasData()}, nil
	}
	if err := a.save(ctx, wolfID, data); err != nil {
		return Reply{}, err
	}
	plural := ""
	if len(due) > 1 {
		plural = "s"
	}
	return Reply{
		Response: fmt.Sprintf("🔔 **reminder%s!**\n%s", plural, strings.Join(due, "\n")),
		Action:   "reminder_alert",
		HasData:  true,
	}, nil
}

var briefingKeywords = []string{"briefing", "brief me", "what's up", "status", "what do i have"}

func (a *Assistant) message(ctx context.Context, req Request, data *WolfData, now time.Time) (Reply, error) {
	if r, ok := ParseReminder(req.Message, now); ok {
		data.Reminders = append(data.Reminders, Reminder{
			ID:        a.newID(),
			Task:      r.Task,
			DueAt:     r.DueAt.UnixMilli(),
			CreatedAt: now.UnixMilli(),
		})
		if err := a.save(ctx, req.WolfID, data); err != nil {
			return Reply{}, err
		}
		return Reply{
			Response: fmt.Sprintf("⏰ got it. i'll remind you %s: \"%s\"", r.DueIn, r.Task),
			Action:   "reminder_set",
		}, nil
	}

	if t, ok := ParseTask(req.Message); ok {
		reply, changed := a.applyTask(t, data, now)
		if changed {
			if err := a.save(ctx, req.WolfID, data); err != nil {
				return Reply{}, err
			}
		}
		return reply, nil
	}

	lower := strings.ToLower(req.Message)
	if containsAny(lower, briefingKeywords...) {
		return Reply{Response: Briefing(displayName(req), data, now), Action: "briefing"}, nil
	}
	if containsAny(lower, "list reminder", "my reminder", "show reminder") {
		upcoming := data.upcomingReminders(now)
		if len(upcoming) == 0 {
			return Reply{Response: "no active reminders. want me to set one?", Action: "reminder_list"}, nil
		}
		lines := make([]string, len(upcoming))
		for i, r := range upcoming {
			lines[i] = fmt.Sprintf("• %s (%s)", r.Task, FormatTimeUntil(time.UnixMilli(r.DueAt), now))
		}
		return Reply{Response: "⏰ **your reminders:**\n" + strings.Join(lines, "\n"), Action: "reminder_list"}, nil
	}
	return Reply{}, nil
}

func (a *Assistant) applyTask(t TaskIntent, data *WolfData, now time.Time) (Reply, bool) {
	switch t.Action {
	case TaskAdd:
		data.Tasks = append(data.Tasks, Task{ID: a.newID(), Task: t.Task, CreatedAt: now.UnixMilli()})
		return Reply{
			Response: fmt.Sprintf("📝 added: \"%s\" (%d tasks pending)", t.Task, len(data.pendingTasks())),
			Action:   "task_added",
		}, true
	case TaskComplete:
		pending := data.pendingTasks()
		if t.Index < 0 || t.Index >= len(pending) {
			return Reply{
				Response: fmt.Sprintf("hmm, can't find task #%d. try \"list tasks\" to see them.", t.Index+1),
				Action:   "task_not_found",
			}, false
		}
		done := pending[t.Index]
		done.Completed = true
		done.CompletedAt = now.UnixMilli()
		return Reply{Response: fmt.Sprintf("✅ done: \"%s\"", done.Task), Action: "task_completed"}, true
	case TaskList:
		pending := data.pendingTasks()
		if len(pending) == 0 {
			return Reply{Response: "no tasks! either you're crushing it or slacking. give me something to track.", Action: "task_list"}, false
		}
		lines := make([]string, len(pending))
		for i, p := range pending {
			lines[i] = fmt.Sprintf("%d. %s", i+1, p.Task)
		}
		return Reply{
			Response: "📝 **your tasks:**\n" + strings.Join(lines, "\n") + "\n\nsay \"done #\" to complete one.",
			Action:   "task_list",
		}, false
	case TaskClearCompleted:
		kept := data.Tasks[:0]
		for _, task := range data.Tasks {
			if !task.Completed {
				kept = append(kept, task)
			}
		}
		cleared := len(data.Tasks) - len(kept)
		data.Tasks = kept
		return Reply{Response: fmt.Sprintf("cleared %d completed tasks.", cleared), Action: "tasks_cleared"}, true
	}
	return Reply{}, false
}

func displayName(req Request) string {
	if req.WolfName != "" {
		return req.WolfName
	}
	return req.WolfID
}
