package reconcile

import (
	"context"
	"log/slog"

	"github.com/bornholm/go-x/slogx"
	"github.com/harrisonrobin/taskmerge/pkg/model"
	"github.com/harrisonrobin/taskmerge/pkg/remote"
	"github.com/harrisonrobin/taskmerge/pkg/store"
	"github.com/pkg/errors"
)

var (
	ErrEmptyText       = errors.New("task text is empty")
	ErrInvalidPriority = errors.New("invalid priority")
	ErrNotFound        = errors.New("task not found")
)

// Persister loads and saves full task snapshots.
type Persister interface {
	Load(ctx context.Context) ([]model.Task, error)
	Save(ctx context.Context, tasks []model.Task) error
}

// Notifier reports remote failures that did not prevent the local change.
type Notifier func(ctx context.Context, msg string, err error)

func logNotifier(ctx context.Context, msg string, err error) {
	slog.WarnContext(ctx, msg, slogx.Error(err))
}

type Options struct {
	Remote       remote.Client
	Notify       Notifier
	UserID       int
	FetchLimit   int
	StoreOptions []store.OptionFunc
}

type OptionFunc func(opts *Options)

// WithRemote sets the backend local changes are mirrored to. Without one,
// tasks stay local-only.
func WithRemote(client remote.Client) OptionFunc {
	return func(opts *Options) {
		opts.Remote = client
	}
}

func WithNotifier(notify Notifier) OptionFunc {
	return func(opts *Options) {
		opts.Notify = notify
	}
}

func WithUserID(userID int) OptionFunc {
	return func(opts *Options) {
		opts.UserID = userID
	}
}

func WithFetchLimit(limit int) OptionFunc {
	return func(opts *Options) {
		opts.FetchLimit = limit
	}
}

func WithStoreOptions(funcs ...store.OptionFunc) OptionFunc {
	return func(opts *Options) {
		opts.StoreOptions = append(opts.StoreOptions, funcs...)
	}
}

func NewOptions(funcs ...OptionFunc) *Options {
	opts := &Options{
		Notify:     logNotifier,
		UserID:     1,
		FetchLimit: 10,
	}
	for _, fn := range funcs {
		fn(opts)
	}
	return opts
}

// Service applies every change to the local store first, mirrors it to the
// remote backend when the task is server-linked, then saves the snapshot.
// Remote failures are reported and never roll back the local change.
type Service struct {
	store     *store.Store
	persister Persister
	remote    remote.Client
	notify    Notifier
	userID    int
	limit     int
}

func New(persister Persister, funcs ...OptionFunc) *Service {
	opts := NewOptions(funcs...)
	return &Service{
		store:     store.New(nil, opts.StoreOptions...),
		persister: persister,
		remote:    opts.Remote,
		notify:    opts.Notify,
		userID:    opts.UserID,
		limit:     opts.FetchLimit,
	}
}

// Store gives read access to the task list. Mutations must go through the
// service so they are mirrored and persisted.
func (s *Service) Store() *store.Store {
	return s.store
}

// Open loads the persisted snapshot into the store.
func (s *Service) Open(ctx context.Context) error {
	tasks, err := s.persister.Load(ctx)
	if err != nil {
		return errors.Wrap(err, "could not load tasks")
	}
	s.store.Initialize(tasks)
	slog.DebugContext(ctx, "loaded tasks", slog.Int("count", len(s.store.All())))
	return nil
}

func (s *Service) save(ctx context.Context) error {
	if err := s.persister.Save(ctx, s.store.All()); err != nil {
		return errors.Wrap(err, "could not save tasks")
	}
	return nil
}

// Add creates a task locally, then on the remote backend. When the remote
// create succeeds the task is promoted to the returned id.
func (s *Service) Add(ctx context.Context, text string, priority model.Priority) (model.Task, error) {
	task, ok := s.store.Add(text, priority)
	if !ok {
		return model.Task{}, errors.WithStack(ErrEmptyText)
	}

	if s.remote != nil {
		remoteID, err := s.remote.Create(ctx, remote.Draft{Title: task.Text, UserID: s.userID})
		if err != nil {
			s.notify(ctx, "task added locally but not saved on the server", err)
		} else if promoted, ok := s.store.Promote(task.ID(), remoteID); ok {
			task = promoted
		} else {
			s.notify(ctx, "task added locally but the server id is already in use", errors.Errorf("remote id %d", remoteID))
		}
	}

	return task, s.save(ctx)
}

func (s *Service) Toggle(ctx context.Context, id model.ID) (model.Task, error) {
	if !s.store.Toggle(id) {
		return model.Task{}, errors.Wrapf(ErrNotFound, "%s", id)
	}
	task, _ := s.store.Get(id)

	completed := task.Completed
	s.mirrorUpdate(ctx, task, remote.Patch{Completed: &completed}, "could not update task status on the server")

	return task, s.save(ctx)
}

// UpdatePriority leaves the task and the snapshot untouched when the priority
// does not change.
func (s *Service) UpdatePriority(ctx context.Context, id model.ID, priority model.Priority) (model.Task, error) {
	if !priority.Valid() {
		return model.Task{}, errors.Wrapf(ErrInvalidPriority, "'%s'", priority)
	}

	task, ok := s.store.Get(id)
	if !ok {
		return model.Task{}, errors.Wrapf(ErrNotFound, "%s", id)
	}
	if task.Priority == priority {
		return task, nil
	}

	s.store.UpdatePriority(id, priority)
	task.Priority = priority

	p := string(priority)
	s.mirrorUpdate(ctx, task, remote.Patch{Priority: &p}, "could not update task priority on the server")

	return task, s.save(ctx)
}

func (s *Service) Delete(ctx context.Context, id model.ID) (model.Task, error) {
	task, ok := s.store.Get(id)
	if !ok {
		return model.Task{}, errors.Wrapf(ErrNotFound, "%s", id)
	}
	s.store.Delete(id)

	if s.remote != nil && task.Identity.Linked() {
		if err := s.remote.Delete(ctx, task.Identity.Remote); err != nil {
			s.notify(ctx, "could not delete task on the server", err)
		}
	}

	return task, s.save(ctx)
}

// ClearCompleted removes every completed task and returns them.
func (s *Service) ClearCompleted(ctx context.Context) ([]model.Task, error) {
	completed := s.store.Filtered(model.FilterCompleted)

	if s.remote != nil {
		for _, task := range completed {
			if !task.Identity.Linked() {
				continue
			}
			if err := s.remote.Delete(ctx, task.Identity.Remote); err != nil {
				slog.DebugContext(ctx, "could not delete completed task on the server",
					slog.String("id", string(task.ID())),
					slogx.Error(err),
				)
			}
		}
	}

	s.store.ClearCompleted()
	return completed, s.save(ctx)
}

func (s *Service) mirrorUpdate(ctx context.Context, task model.Task, patch remote.Patch, msg string) {
	if s.remote == nil || !task.Identity.Linked() {
		return
	}
	if err := s.remote.Update(ctx, task.Identity.Remote, patch); err != nil {
		s.notify(ctx, msg, err)
	}
}
