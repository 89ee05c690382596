// Package google implements the remote backend on top of the Google Tasks API.
//
// Google task ids are opaque strings; the numeric ids handed to callers are
// handles kept in an index.HandleIndex. Google Tasks has no priority field, so
// priorities live on a "Priority: x" line of the task notes. The rest of the
// notes is left as the user wrote it.
package google

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/bornholm/go-x/slogx"
	"github.com/harrisonrobin/taskmerge/pkg/index"
	"github.com/harrisonrobin/taskmerge/pkg/remote"
	"github.com/pkg/errors"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/tasks/v1"
)

const (
	statusNeedsAction = "needsAction"
	statusCompleted   = "completed"

	maxPageSize = 100
)

// TasksClient is a Google Tasks API client bound to a single task list.
type TasksClient struct {
	srv    *tasks.Service
	listID string
	index  *index.HandleIndex
}

var _ remote.Client = &TasksClient{}

func NewTasksClient(srv *tasks.Service, listID string, idx *index.HandleIndex) *TasksClient {
	return &TasksClient{srv: srv, listID: listID, index: idx}
}

// Create implements remote.Client.
func (c *TasksClient) Create(ctx context.Context, draft remote.Draft) (int64, error) {
	created, err := c.srv.Tasks.Insert(c.listID, &tasks.Task{
		Title:  draft.Title,
		Status: statusFor(draft.Completed),
	}).Context(ctx).Do()
	if err != nil {
		return 0, wrapErr(err, "could not create task")
	}

	handle := c.index.Handle(created.Id)
	c.saveIndex(ctx)
	return handle, nil
}

// Update implements remote.Client. A priority change fetches the task first to
// rewrite its notes in place.
func (c *TasksClient) Update(ctx context.Context, id int64, patch remote.Patch) error {
	if patch.Empty() {
		return nil
	}

	taskID, err := c.index.Get(id)
	if err != nil {
		return errors.Wrap(remote.ErrNotFound, err.Error())
	}

	update := &tasks.Task{}
	if patch.Completed != nil {
		update.Status = statusFor(*patch.Completed)
		if !*patch.Completed {
			update.NullFields = append(update.NullFields, "Completed")
		}
	}
	if patch.Priority != nil {
		current, err := c.srv.Tasks.Get(c.listID, taskID).Context(ctx).Do()
		if err != nil {
			return wrapErr(err, fmt.Sprintf("could not fetch task %d", id))
		}
		update.Notes = withPriority(current.Notes, *patch.Priority)
	}

	if _, err := c.srv.Tasks.Patch(c.listID, taskID, update).Context(ctx).Do(); err != nil {
		return wrapErr(err, fmt.Sprintf("could not update task %d", id))
	}
	return nil
}

// Delete implements remote.Client.
func (c *TasksClient) Delete(ctx context.Context, id int64) error {
	taskID, err := c.index.Get(id)
	if err != nil {
		return errors.Wrap(remote.ErrNotFound, err.Error())
	}

	if err := c.srv.Tasks.Delete(c.listID, taskID).Context(ctx).Do(); err != nil {
		return wrapErr(err, fmt.Sprintf("could not delete task %d", id))
	}

	c.index.Remove(id)
	c.saveIndex(ctx)
	return nil
}

// List implements remote.Client.
func (c *TasksClient) List(ctx context.Context, limit int) ([]remote.Task, error) {
	pageSize := int64(maxPageSize)
	if limit > 0 && limit < maxPageSize {
		pageSize = int64(limit)
	}

	var out []remote.Task
	pageToken := ""
	for {
		call := c.srv.Tasks.List(c.listID).
			MaxResults(pageSize).
			ShowCompleted(true).
			ShowHidden(true).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		res, err := call.Do()
		if err != nil {
			return nil, wrapErr(err, "could not list tasks")
		}

		for _, item := range res.Items {
			if item.Deleted || item.Title == "" {
				continue
			}
			out = append(out, toRemote(item, c.index.Handle(item.Id)))
			if limit > 0 && len(out) >= limit {
				c.saveIndex(ctx)
				return out, nil
			}
		}

		if res.NextPageToken == "" {
			break
		}
		pageToken = res.NextPageToken
	}

	c.saveIndex(ctx)
	return out, nil
}

func (c *TasksClient) saveIndex(ctx context.Context) {
	if err := c.index.Save(); err != nil {
		slog.WarnContext(ctx, "could not save handle index", slogx.Error(err))
	}
}

func statusFor(completed bool) string {
	if completed {
		return statusCompleted
	}
	return statusNeedsAction
}

func toRemote(item *tasks.Task, handle int64) remote.Task {
	return remote.Task{
		ID:        handle,
		Title:     item.Title,
		Completed: item.Status == statusCompleted,
	}
}

const priorityPrefix = "Priority: "

// withPriority replaces the priority line of notes, or appends one.
func withPriority(notes string, priority string) string {
	line := priorityPrefix + priority
	if notes == "" {
		return line
	}

	lines := strings.Split(notes, "\n")
	for i, l := range lines {
		if strings.HasPrefix(l, priorityPrefix) {
			lines[i] = line
			return strings.Join(lines, "\n")
		}
	}
	return notes + "\n" + line
}

func wrapErr(err error, msg string) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
		return errors.Wrap(remote.ErrNotFound, msg)
	}
	return errors.Wrap(err, msg)
}
