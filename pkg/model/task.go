package model

import (
	"bytes"
	"encoding/json"
	"slices"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Priority ranks a task for display. Only the three values below are valid.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Priorities lists the valid priorities from lowest to highest.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

func (p Priority) Valid() bool {
	return slices.Contains(Priorities, p)
}

// ParsePriority parses user input such as "High" or " low ".
func ParsePriority(s string) (Priority, bool) {
	p := Priority(strings.ToLower(strings.TrimSpace(s)))
	return p, p.Valid()
}

// Task is a single to-do item.
type Task struct {
	Identity  Identity
	Text      string
	Completed bool
	Priority  Priority
	CreatedAt time.Time
}

// ID returns the canonical lookup key of the task.
func (t Task) ID() ID {
	return t.Identity.ID()
}

// Draft is a task that has not been added to a store yet.
type Draft struct {
	Text      string
	Completed bool
	Priority  Priority
	CreatedAt time.Time
}

// wireTask is the persisted shape shared with the browser app:
// {"id", "text", "completed", "priority", "createdAt"}.
type wireTask struct {
	ID        json.RawMessage `json:"id"`
	LocalID   string          `json:"localId,omitempty"`
	Text      string          `json:"text"`
	Completed bool            `json:"completed"`
	Priority  Priority        `json:"priority"`
	CreatedAt string          `json:"createdAt"`
}

// MarshalJSON implements the json.Marshaler interface for Task.
func (t Task) MarshalJSON() ([]byte, error) {
	id, err := json.Marshal(string(t.ID()))
	if err != nil {
		return nil, errors.WithStack(err)
	}

	w := wireTask{
		ID:        id,
		Text:      t.Text,
		Completed: t.Completed,
		Priority:  t.Priority,
	}
	if t.Identity.Linked() {
		w.LocalID = t.Identity.Local
	}
	if !t.CreatedAt.IsZero() {
		w.CreatedAt = t.CreatedAt.UTC().Format(time.RFC3339Nano)
	}

	return json.Marshal(w)
}

// UnmarshalJSON implements the json.Unmarshaler interface for Task.
// The id may be a JSON string or a JSON number; older records used numeric ids.
func (t *Task) UnmarshalJSON(b []byte) error {
	var w wireTask
	if err := json.Unmarshal(b, &w); err != nil {
		return errors.WithStack(err)
	}

	raw, err := decodeRawID(w.ID)
	if err != nil {
		return err
	}

	priority := w.Priority
	if !priority.Valid() {
		priority = PriorityMedium
	}

	var createdAt time.Time
	if w.CreatedAt != "" {
		// An unparseable timestamp is not worth losing the task over.
		createdAt, _ = time.Parse(time.RFC3339Nano, w.CreatedAt)
	}

	*t = Task{
		Identity:  ParseIdentity(raw, w.LocalID),
		Text:      w.Text,
		Completed: w.Completed,
		Priority:  priority,
		CreatedAt: createdAt,
	}
	return nil
}

func decodeRawID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", errors.Wrap(err, "could not decode task id")
		}
		return s, nil
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", errors.Wrapf(err, "task id '%s' is neither a string nor a number", raw)
	}
	return n.String(), nil
}
