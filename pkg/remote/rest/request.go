package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/harrisonrobin/taskmerge/pkg/remote"
	"github.com/pkg/errors"
)

func (c *Client) request(ctx context.Context, method string, path string, query url.Values, payload any, result any) error {
	u := c.baseURL.JoinPath(path)
	if query != nil {
		u.RawQuery = query.Encode()
	}

	slog.DebugContext(ctx, "new remote request",
		slog.String("method", method),
		slog.String("path", u.Path),
		slog.String("host", u.Host),
	)

	var body io.Reader
	if payload != nil {
		var buff bytes.Buffer
		if err := json.NewEncoder(&buff).Encode(payload); err != nil {
			return errors.WithStack(err)
		}
		body = &buff
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return errors.WithStack(err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return errors.WithStack(err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return errors.Wrapf(remote.ErrNotFound, "%s %s", method, u.Path)
	}
	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusBadRequest {
		return errors.Errorf("unexpected response code %d (%s)", res.StatusCode, res.Status)
	}

	if result == nil {
		_, _ = io.Copy(io.Discard, res.Body)
		return nil
	}

	if err := json.NewDecoder(res.Body).Decode(result); err != nil {
		return errors.Wrap(err, "could not decode response")
	}

	return nil
}
