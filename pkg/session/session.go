// Package session keeps per-session UI state, currently the selected filter.
// State lives under the OS temp directory and does not outlive the session.
package session

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"

	"github.com/bornholm/go-x/slogx"
	"github.com/harrisonrobin/taskmerge/pkg/model"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

type State struct {
	Path string
	fs   afero.Fs
}

type stateFile struct {
	Filter model.Filter `json:"filter"`
}

// Open returns the state of session id for the given application.
func Open(app string, id string) *State {
	name := "session-" + unsafeChars.ReplaceAllString(id, "_") + ".json"
	return NewState(afero.NewOsFs(), filepath.Join(os.TempDir(), app, name))
}

func NewState(fs afero.Fs, path string) *State {
	return &State{Path: path, fs: fs}
}

// Filter returns the stored filter, or all when none is stored.
func (s *State) Filter() model.Filter {
	data, err := afero.ReadFile(s.fs, s.Path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("could not read session state", slog.String("path", s.Path), slogx.Error(err))
		}
		return model.FilterAll
	}

	var state stateFile
	if err := json.Unmarshal(data, &state); err != nil {
		return model.FilterAll
	}
	return model.ParseFilter(string(state.Filter))
}

func (s *State) SetFilter(filter model.Filter) error {
	if err := s.fs.MkdirAll(filepath.Dir(s.Path), 0700); err != nil {
		return errors.WithStack(err)
	}

	data, err := json.Marshal(stateFile{Filter: model.ParseFilter(string(filter))})
	if err != nil {
		return errors.WithStack(err)
	}

	if err := afero.WriteFile(s.fs, s.Path, data, 0600); err != nil {
		return errors.Wrapf(err, "could not write session state '%s'", s.Path)
	}
	return nil
}
