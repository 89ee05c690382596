package reconcile

import (
	"strconv"
	"strings"

	"github.com/harrisonrobin/taskmerge/pkg/model"
	"github.com/pkg/errors"
)

var ErrAmbiguous = errors.New("task reference is ambiguous")

// Resolve turns a user supplied reference into a task id. An exact id wins,
// then a bare server number, then a unique prefix of a local-only id. A
// reference shaped like a server id never falls back to prefix matching.
func (s *Service) Resolve(ref string) (model.ID, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", errors.Wrap(ErrNotFound, "empty reference")
	}

	if task, ok := s.store.Get(model.ID(ref)); ok {
		return task.ID(), nil
	}

	if _, server := model.ID(ref).RemoteID(); server {
		return "", errors.Wrapf(ErrNotFound, "%s", ref)
	}

	if n, err := strconv.ParseInt(ref, 10, 64); err == nil && n > 0 {
		if task, ok := s.store.Get(model.ServerID(n)); ok {
			return task.ID(), nil
		}
		return "", errors.Wrapf(ErrNotFound, "%s", ref)
	}

	var matches []model.ID
	for _, task := range s.store.All() {
		if task.Identity.Linked() {
			continue
		}
		if strings.HasPrefix(string(task.ID()), ref) {
			matches = append(matches, task.ID())
		}
	}

	switch len(matches) {
	case 0:
		return "", errors.Wrapf(ErrNotFound, "%s", ref)
	case 1:
		return matches[0], nil
	default:
		return "", errors.Wrapf(ErrAmbiguous, "'%s' matches %d tasks", ref, len(matches))
	}
}
