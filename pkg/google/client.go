package google

import (
	"context"
	"net/http"
	"strings"

	"github.com/harrisonrobin/taskmerge/pkg/index"
	"github.com/pkg/errors"
	"google.golang.org/api/option"
	"google.golang.org/api/tasks/v1"
)

// Scopes are the OAuth scopes the Google Tasks backend needs.
var Scopes = []string{tasks.TasksScope}

// NewClient creates a Google Tasks client bound to the task list named
// listName. httpClient must already be authenticated.
func NewClient(ctx context.Context, httpClient *http.Client, listName string, idx *index.HandleIndex, opts ...option.ClientOption) (*TasksClient, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
	srv, err := tasks.NewService(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "unable to create Tasks service")
	}

	listID, err := findList(ctx, srv, listName)
	if err != nil {
		return nil, err
	}

	return NewTasksClient(srv, listID, idx), nil
}

func findList(ctx context.Context, srv *tasks.Service, listName string) (string, error) {
	want := strings.TrimSpace(listName)
	pageToken := ""
	for {
		call := srv.Tasklists.List().MaxResults(100).Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		lists, err := call.Do()
		if err != nil {
			return "", errors.Wrap(err, "unable to retrieve task lists")
		}
		for _, item := range lists.Items {
			if strings.EqualFold(strings.TrimSpace(item.Title), want) {
				return item.Id, nil
			}
		}
		if lists.NextPageToken == "" {
			return "", errors.Errorf("task list '%s' not found", listName)
		}
		pageToken = lists.NextPageToken
	}
}
