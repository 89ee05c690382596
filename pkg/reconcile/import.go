package reconcile

import (
	"context"
	"log/slog"
	"strings"

	"github.com/harrisonrobin/taskmerge/pkg/model"
	"github.com/harrisonrobin/taskmerge/pkg/remote"
	"github.com/pkg/errors"
	"golang.org/x/text/cases"
)

// textKeys indexes task texts by their trimmed, case-folded form.
type textKeys struct {
	caser cases.Caser
	seen  map[string]struct{}
}

func newTextKeys(tasks []model.Task) *textKeys {
	k := &textKeys{caser: cases.Fold(), seen: make(map[string]struct{}, len(tasks))}
	for _, t := range tasks {
		k.add(t.Text)
	}
	return k
}

func (k *textKeys) key(text string) string {
	return k.caser.String(strings.TrimSpace(text))
}

func (k *textKeys) has(text string) bool {
	_, exists := k.seen[k.key(text)]
	return exists
}

func (k *textKeys) add(text string) {
	k.seen[k.key(text)] = struct{}{}
}

// Import fetches tasks from the remote backend and adds the ones whose text
// is not already present. Imported tasks are server-linked from the start.
// It returns how many tasks were added.
func (s *Service) Import(ctx context.Context) (int, error) {
	if s.remote == nil {
		return 0, errors.WithStack(remote.ErrOffline)
	}

	remoteTasks, err := s.remote.List(ctx, s.limit)
	if err != nil {
		return 0, errors.Wrap(err, "could not load tasks from the server")
	}

	keys := newTextKeys(s.store.All())
	added := 0
	for _, rt := range remoteTasks {
		text := strings.TrimSpace(rt.Title)
		if text == "" || keys.has(text) {
			continue
		}

		task, ok := s.store.AddDraft(model.Draft{Text: text, Completed: rt.Completed, Priority: model.PriorityMedium})
		if !ok {
			continue
		}
		if _, ok := s.store.Promote(task.ID(), rt.ID); !ok {
			// The remote task is already linked under another text.
			s.store.Delete(task.ID())
			slog.DebugContext(ctx, "skipping remote task already linked", slog.Int64("remote_id", rt.ID))
			continue
		}

		keys.add(text)
		added++
	}

	if added == 0 {
		return 0, nil
	}
	return added, s.save(ctx)
}

// ImportDrafts adds drafts from a non-remote source, skipping texts already
// present. Imported tasks are local-only.
func (s *Service) ImportDrafts(ctx context.Context, drafts []model.Draft) (int, error) {
	keys := newTextKeys(s.store.All())
	added := 0
	for _, d := range drafts {
		if keys.has(d.Text) {
			continue
		}
		if _, ok := s.store.AddDraft(d); !ok {
			continue
		}
		keys.add(d.Text)
		added++
	}

	if added == 0 {
		return 0, nil
	}
	return added, s.save(ctx)
}
