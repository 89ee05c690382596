package rest

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/harrisonrobin/taskmerge/pkg/remote"
	"github.com/pkg/errors"
)

// Create implements remote.Client.
func (c *Client) Create(ctx context.Context, draft remote.Draft) (int64, error) {
	if draft.UserID == 0 {
		draft.UserID = 1
	}

	var created remote.Task
	if err := c.request(ctx, http.MethodPost, "", nil, draft, &created); err != nil {
		return 0, errors.Wrap(err, "could not create remote task")
	}
	if created.ID <= 0 {
		return 0, errors.Errorf("remote returned invalid id %d", created.ID)
	}

	return created.ID, nil
}

// Update implements remote.Client.
func (c *Client) Update(ctx context.Context, id int64, patch remote.Patch) error {
	if patch.Empty() {
		return nil
	}
	if err := c.request(ctx, http.MethodPatch, strconv.FormatInt(id, 10), nil, patch, nil); err != nil {
		return errors.Wrapf(err, "could not update remote task %d", id)
	}
	return nil
}

// Delete implements remote.Client.
func (c *Client) Delete(ctx context.Context, id int64) error {
	if err := c.request(ctx, http.MethodDelete, strconv.FormatInt(id, 10), nil, nil, nil); err != nil {
		return errors.Wrapf(err, "could not delete remote task %d", id)
	}
	return nil
}

// List implements remote.Client. A limit of zero or less returns everything
// the API hands out.
func (c *Client) List(ctx context.Context, limit int) ([]remote.Task, error) {
	var query url.Values
	if limit > 0 {
		query = url.Values{"_limit": []string{strconv.Itoa(limit)}}
	}

	var tasks []remote.Task
	if err := c.request(ctx, http.MethodGet, "", query, nil, &tasks); err != nil {
		return nil, errors.Wrap(err, "could not list remote tasks")
	}
	return tasks, nil
}
