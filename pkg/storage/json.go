package storage

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/bornholm/go-x/slogx"
	"github.com/harrisonrobin/taskmerge/pkg/model"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// JSONFile stores the snapshot as a JSON array, the same shape the browser
// app kept in local storage.
type JSONFile struct {
	Path string
	fs   afero.Fs
}

func NewJSONFile(path string) *JSONFile {
	return NewJSONFileFs(afero.NewOsFs(), path)
}

func NewJSONFileFs(fs afero.Fs, path string) *JSONFile {
	return &JSONFile{Path: path, fs: fs}
}

// Load returns an empty list when the file is missing or unreadable as JSON.
func (s *JSONFile) Load(ctx context.Context) ([]model.Task, error) {
	data, err := afero.ReadFile(s.fs, s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return []model.Task{}, nil
		}
		return nil, errors.Wrapf(err, "could not read tasks file '%s'", s.Path)
	}

	var tasks []model.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		slog.WarnContext(ctx, "ignoring corrupt tasks file", slog.String("path", s.Path), slogx.Error(err))
		return []model.Task{}, nil
	}
	return tasks, nil
}

// Save writes the snapshot through a temporary file and renames it into place.
func (s *JSONFile) Save(ctx context.Context, tasks []model.Task) error {
	if tasks == nil {
		tasks = []model.Task{}
	}

	if err := s.fs.MkdirAll(filepath.Dir(s.Path), 0700); err != nil {
		return errors.Wrap(err, "failed to create data directory")
	}

	data, err := json.MarshalIndent(tasks, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to encode tasks")
	}

	tmpPath := s.Path + ".tmp"
	if err := afero.WriteFile(s.fs, tmpPath, data, 0600); err != nil {
		return errors.Wrap(err, "failed to write tasks")
	}
	if err := s.fs.Rename(tmpPath, s.Path); err != nil {
		s.fs.Remove(tmpPath)
		return errors.Wrap(err, "failed to rename tasks file")
	}

	slog.DebugContext(ctx, "saved tasks", slog.String("path", s.Path), slog.Int("count", len(tasks)))
	return nil
}

func (s *JSONFile) Close() error {
	return nil
}
