// Package store holds the canonical in-memory task list.
//
// Every operation is total: invalid input and unknown ids turn into no-ops
// instead of errors. Tasks handed out by the store are copies; changing them
// does not affect the store.
package store

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/harrisonrobin/taskmerge/pkg/model"
)

type Store struct {
	mu    sync.RWMutex
	tasks []model.Task
	newID func() string
	now   func() time.Time
}

type OptionFunc func(s *Store)

// WithIDGenerator replaces the default UUID generator for local ids.
func WithIDGenerator(fn func() string) OptionFunc {
	return func(s *Store) {
		s.newID = fn
	}
}

func WithClock(fn func() time.Time) OptionFunc {
	return func(s *Store) {
		s.now = fn
	}
}

// New creates a store holding a copy of initial.
func New(initial []model.Task, funcs ...OptionFunc) *Store {
	s := &Store{
		newID: uuid.NewString,
		now:   time.Now,
	}
	for _, fn := range funcs {
		fn(s)
	}
	s.Initialize(initial)
	return s
}

// Initialize replaces the whole collection with a copy of initial. Records
// with empty text are dropped and invalid priorities become medium. Records
// without an id, or whose id was already seen, keep their data under a fresh
// local-only id.
func (s *Store) Initialize(initial []model.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks := make([]model.Task, 0, len(initial))
	seen := make(map[model.ID]struct{}, len(initial))
	taken := func(id model.ID) bool {
		_, exists := seen[id]
		return exists
	}

	for _, t := range initial {
		t.Text = strings.TrimSpace(t.Text)
		if t.Text == "" {
			continue
		}
		if !t.Priority.Valid() {
			t.Priority = model.PriorityMedium
		}

		switch {
		case t.ID() == "":
			t.Identity = model.LocalIdentity(s.freshLocalID(taken))
		case taken(t.ID()):
			duplicate := t.ID()
			t.Identity = s.unlinkedIdentity(t.Identity, taken)
			slog.Warn("duplicate task id, keeping task as local-only",
				slog.String("id", string(duplicate)),
				slog.String("new_id", string(t.ID())),
			)
		}

		seen[t.ID()] = struct{}{}
		tasks = append(tasks, t)
	}
	s.tasks = tasks
}

// All returns every task in insertion order.
func (s *Store) All() []model.Task {
	return s.Filtered(model.FilterAll)
}

// Filtered returns the tasks matching filter, in insertion order.
func (s *Store) Filtered(filter model.Filter) []model.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if filter.Match(t) {
			out = append(out, t)
		}
	}
	return out
}

func (s *Store) Get(id model.ID) (model.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.indexOf(id); i >= 0 {
		return s.tasks[i], true
	}
	return model.Task{}, false
}

// Add appends a new local-only task. It returns false, and adds nothing, when
// text is blank. An invalid priority is treated as omitted.
func (s *Store) Add(text string, priority model.Priority) (model.Task, bool) {
	return s.AddDraft(model.Draft{Text: text, Priority: priority})
}

// AddDraft is Add for tasks coming from another source, which may already be
// completed and carry their own creation time.
func (s *Store) AddDraft(d model.Draft) (model.Task, bool) {
	text := strings.TrimSpace(d.Text)
	if text == "" {
		return model.Task{}, false
	}
	priority := d.Priority
	if !priority.Valid() {
		priority = model.PriorityMedium
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.freshLocalID(func(id model.ID) bool { return s.indexOf(id) >= 0 })

	t := model.Task{
		Identity:  model.LocalIdentity(id),
		Text:      text,
		Completed: d.Completed,
		Priority:  priority,
		CreatedAt: d.CreatedAt,
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = s.now()
	}
	s.tasks = append(s.tasks, t)
	return t, true
}

// UpdatePriority rejects priorities outside the enum.
func (s *Store) UpdatePriority(id model.ID, priority model.Priority) bool {
	if !priority.Valid() {
		return false
	}
	return s.update(id, func(t *model.Task) bool {
		t.Priority = priority
		return true
	})
}

func (s *Store) Toggle(id model.ID) bool {
	return s.update(id, func(t *model.Task) bool {
		t.Completed = !t.Completed
		return true
	})
}

// Promote links a local-only task to a remote record. A linked task is never
// relinked, and two tasks never share a remote id.
func (s *Store) Promote(id model.ID, remote int64) (model.Task, bool) {
	if remote <= 0 {
		return model.Task{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 || s.tasks[i].Identity.Linked() {
		return model.Task{}, false
	}
	if s.indexOf(model.ServerID(remote)) >= 0 {
		return model.Task{}, false
	}

	s.tasks[i].Identity = s.tasks[i].Identity.Link(remote)
	return s.tasks[i], true
}

func (s *Store) Delete(id model.ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return false
	}
	s.tasks = append(s.tasks[:i:i], s.tasks[i+1:]...)
	return true
}

func (s *Store) ClearCompleted() {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := make([]model.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if !t.Completed {
			kept = append(kept, t)
		}
	}
	s.tasks = kept
}

// Stats returns the number of tasks and how many of them are completed.
func (s *Store) Stats() (total int, done int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.tasks {
		if t.Completed {
			done++
		}
	}
	return len(s.tasks), done
}

func (s *Store) update(id model.ID, fn func(t *model.Task) bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return false
	}
	return fn(&s.tasks[i])
}

// maxIDAttempts bounds how often the configured generator is asked for an
// id before falling back to a random UUID.
const maxIDAttempts = 32

// freshLocalID must be called with the lock held. Generated ids that are
// empty, taken or shaped like a server id are discarded.
func (s *Store) freshLocalID(taken func(id model.ID) bool) string {
	for range maxIDAttempts {
		if id := s.newID(); usableLocalID(id, taken) {
			return id
		}
	}
	for {
		if id := uuid.NewString(); !taken(model.ID(id)) {
			return id
		}
	}
}

// unlinkedIdentity demotes a record whose id collides with an earlier one.
// Its previous local id is reused when still free.
func (s *Store) unlinkedIdentity(identity model.Identity, taken func(id model.ID) bool) model.Identity {
	if usableLocalID(identity.Local, taken) {
		return model.LocalIdentity(identity.Local)
	}
	return model.LocalIdentity(s.freshLocalID(taken))
}

func usableLocalID(id string, taken func(id model.ID) bool) bool {
	if id == "" {
		return false
	}
	if _, server := model.ID(id).RemoteID(); server {
		return false
	}
	return !taken(model.ID(id))
}

// indexOf must be called with the lock held.
func (s *Store) indexOf(id model.ID) int {
	if id == "" {
		return -1
	}
	for i, t := range s.tasks {
		if t.ID() == id {
			return i
		}
	}
	return -1
}
