// Package remote defines the contract with the remote to-do API.
package remote

import (
	"context"

	"github.com/pkg/errors"
)

var (
	ErrNotFound = errors.New("remote task not found")

	// ErrOffline is returned by callers that need a remote backend when none
	// is configured.
	ErrOffline = errors.New("remote backend disabled")
)

// Task is a task as returned by the remote API.
type Task struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

// Draft is the payload used to create a remote task.
type Draft struct {
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
	UserID    int    `json:"userId"`
}

// Patch carries partial changes. Nil fields are left untouched.
type Patch struct {
	Completed *bool   `json:"completed,omitempty"`
	Priority  *string `json:"priority,omitempty"`
}

func (p Patch) Empty() bool {
	return p.Completed == nil && p.Priority == nil
}

// Client is implemented by every remote backend. Remote ids are numeric.
type Client interface {
	Create(ctx context.Context, draft Draft) (int64, error)
	Update(ctx context.Context, id int64, patch Patch) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, limit int) ([]Task, error)
}
