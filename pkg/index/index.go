// Package index maps numeric remote handles to the string ids used by
// backends that do not hand out numeric ids themselves.
package index

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

var ErrUnknownHandle = errors.New("unknown remote handle")

type HandleIndex struct {
	Mappings map[int64]string `json:"mappings"`
	Next     int64            `json:"next"`
	Path     string           `json:"-"`
	mu       sync.RWMutex
	dirty    bool
}

// Open loads the index stored at path. A missing file yields an empty index.
func Open(path string) (*HandleIndex, error) {
	idx := &HandleIndex{
		Mappings: make(map[int64]string),
		Next:     1,
		Path:     path,
	}

	if _, err := os.Stat(path); err == nil {
		if err := idx.Load(); err != nil {
			return nil, err
		}
	}

	return idx, nil
}

func (idx *HandleIndex) Load() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	f, err := os.Open(idx.Path)
	if err != nil {
		return errors.WithStack(err)
	}
	defer f.Close()

	if err := json.NewDecoder(f).Decode(idx); err != nil {
		return errors.Wrapf(err, "could not decode index '%s'", idx.Path)
	}
	if idx.Mappings == nil {
		idx.Mappings = make(map[int64]string)
	}
	for handle := range idx.Mappings {
		if handle >= idx.Next {
			idx.Next = handle + 1
		}
	}
	return nil
}

func (idx *HandleIndex) Save() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if !idx.dirty {
		return nil
	}

	dir := filepath.Dir(idx.Path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return errors.WithStack(err)
	}

	f, err := os.Create(idx.Path)
	if err != nil {
		return errors.WithStack(err)
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(idx); err != nil {
		return errors.WithStack(err)
	}
	idx.dirty = false
	return nil
}

// Handle returns the handle of externalID, allocating one if needed.
func (idx *HandleIndex) Handle(externalID string) int64 {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	for handle, id := range idx.Mappings {
		if id == externalID {
			return handle
		}
	}

	handle := idx.Next
	idx.Next++
	idx.Mappings[handle] = externalID
	idx.dirty = true
	return handle
}

func (idx *HandleIndex) Get(handle int64) (string, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	id, exists := idx.Mappings[handle]
	if !exists {
		return "", errors.Wrapf(ErrUnknownHandle, "handle %d", handle)
	}
	return id, nil
}

func (idx *HandleIndex) Remove(handle int64) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if _, exists := idx.Mappings[handle]; exists {
		delete(idx.Mappings, handle)
		idx.dirty = true
	}
}
