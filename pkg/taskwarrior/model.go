package taskwarrior

import (
	"strings"
	"time"

	"github.com/harrisonrobin/taskmerge/pkg/model"
	"github.com/pkg/errors"
)

const (
	PENDING   = "pending"
	COMPLETED = "completed"
	WAITING   = "waiting"
	DELETED   = "deleted"
	RECURRING = "recurring"
)

const timeLayout = "20060102T150405Z" // YYYYMMDDTHHMMSSZ, always UTC

type CustomTime struct {
	time.Time
}

func (ct *CustomTime) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "0" {
		ct.Time = time.Time{}
		return nil
	}

	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return errors.Wrapf(err, "failed to parse taskwarrior time '%s'", s)
	}
	ct.Time = t
	return nil
}

func (ct CustomTime) MarshalJSON() ([]byte, error) {
	if ct.Time.IsZero() {
		return []byte(`""`), nil
	}
	return []byte(`"` + ct.Time.UTC().Format(timeLayout) + `"`), nil
}

// Task holds the fields of a `task export` record used for importing.
type Task struct {
	UUID        string      `json:"uuid"`
	Description string      `json:"description"`
	Status      string      `json:"status"`
	Priority    string      `json:"priority,omitempty"`
	Tags        []string    `json:"tags,omitempty"`
	Entry       *CustomTime `json:"entry,omitempty"`
}

var priorities = map[string]model.Priority{
	"H": model.PriorityHigh,
	"M": model.PriorityMedium,
	"L": model.PriorityLow,
}

// Draft converts the task. Deleted tasks and recurrence templates have no
// counterpart and report false.
func (t Task) Draft() (model.Draft, bool) {
	switch t.Status {
	case DELETED, RECURRING:
		return model.Draft{}, false
	}

	text := strings.TrimSpace(t.Description)
	if text == "" {
		return model.Draft{}, false
	}

	priority, ok := priorities[strings.ToUpper(t.Priority)]
	if !ok {
		priority = model.PriorityMedium
	}

	draft := model.Draft{
		Text:      text,
		Completed: t.Status == COMPLETED,
		Priority:  priority,
	}
	if t.Entry != nil {
		draft.CreatedAt = t.Entry.Time
	}
	return draft, true
}

func (t Task) HasTag(tag string) bool {
	for _, candidate := range t.Tags {
		if candidate == tag {
			return true
		}
	}
	return false
}

// Drafts converts tasks, keeping only those carrying tag when it is set.
func Drafts(tasks []Task, tag string) []model.Draft {
	drafts := make([]model.Draft, 0, len(tasks))
	for _, task := range tasks {
		if tag != "" && !task.HasTag(tag) {
			continue
		}
		if draft, ok := task.Draft(); ok {
			drafts = append(drafts, draft)
		}
	}
	return drafts
}
