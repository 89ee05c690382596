// Package storage persists full task snapshots. Every Save replaces the
// previous snapshot; there is no incremental diff.
package storage

import (
	"context"

	"github.com/harrisonrobin/taskmerge/pkg/model"
	"github.com/pkg/errors"
)

const (
	KindJSON   = "json"
	KindSQLite = "sqlite"
)

type Storage interface {
	Load(ctx context.Context) ([]model.Task, error)
	Save(ctx context.Context, tasks []model.Task) error
	Close() error
}

// Open returns the storage of the given kind rooted at path.
func Open(kind string, path string) (Storage, error) {
	switch kind {
	case KindJSON, "":
		return NewJSONFile(path), nil
	case KindSQLite:
		return NewSQLite(path)
	default:
		return nil, errors.Errorf("unknown storage kind '%s'", kind)
	}
}
