package rest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/harrisonrobin/taskmerge/pkg/remote"
)

type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Auth   string
	Body   string
}

func newTestServer(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*Client, *[]recordedRequest) {
	t.Helper()
	var requests []recordedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		requests = append(requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Auth:   r.Header.Get("Authorization"),
			Body:   string(body),
		})
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	baseURL, err := url.Parse(srv.URL + "/todos")
	if err != nil {
		t.Fatalf("url.Parse: %v", err)
	}
	return New(WithBaseURL(baseURL), WithToken("secret")), &requests
}

func TestCreate(t *testing.T) {
	client, requests := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"id": 201, "title": "Buy milk", "completed": false, "userId": 1}`)
	})

	id, err := client.Create(context.Background(), remote.Draft{Title: "Buy milk"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if id != 201 {
		t.Errorf("Expected id 201, got %d", id)
	}

	req := (*requests)[0]
	if req.Method != http.MethodPost || req.Path != "/todos" {
		t.Errorf("Unexpected request %s %s", req.Method, req.Path)
	}
	if req.Auth != "Bearer secret" {
		t.Errorf("Expected bearer token, got %q", req.Auth)
	}
	var draft remote.Draft
	if err := json.Unmarshal([]byte(req.Body), &draft); err != nil {
		t.Fatalf("could not decode request body: %v", err)
	}
	if draft.Title != "Buy milk" || draft.UserID != 1 || draft.Completed {
		t.Errorf("Unexpected draft %+v", draft)
	}
}

func TestUpdateSendsOnlySetFields(t *testing.T) {
	client, requests := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{}`)
	})

	completed := true
	if err := client.Update(context.Background(), 42, remote.Patch{Completed: &completed}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	req := (*requests)[0]
	if req.Method != http.MethodPatch || req.Path != "/todos/42" {
		t.Errorf("Unexpected request %s %s", req.Method, req.Path)
	}
	if strings.TrimSpace(req.Body) != `{"completed":true}` {
		t.Errorf("Unexpected body %s", req.Body)
	}

	if err := client.Update(context.Background(), 42, remote.Patch{}); err != nil {
		t.Fatalf("empty Update failed: %v", err)
	}
	if len(*requests) != 1 {
		t.Errorf("Expected empty patch not to hit the API")
	}
}

func TestDeleteNotFound(t *testing.T) {
	client, requests := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	err := client.Delete(context.Background(), 7)
	if !errors.Is(err, remote.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if (*requests)[0].Method != http.MethodDelete || (*requests)[0].Path != "/todos/7" {
		t.Errorf("Unexpected request %+v", (*requests)[0])
	}
}

func TestList(t *testing.T) {
	client, requests := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[
			{"userId": 1, "id": 1, "title": "delectus aut autem", "completed": false},
			{"userId": 1, "id": 2, "title": "quis ut nam facilis", "completed": true}
		]`)
	})

	tasks, err := client.List(context.Background(), 10)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(tasks) != 2 || tasks[1].ID != 2 || !tasks[1].Completed {
		t.Errorf("Unexpected tasks %+v", tasks)
	}
	if (*requests)[0].Query != "_limit=10" {
		t.Errorf("Expected _limit=10, got %q", (*requests)[0].Query)
	}
}

func TestServerError(t *testing.T) {
	client, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	if _, err := client.List(context.Background(), 0); err == nil {
		t.Errorf("Expected an error on HTTP 500")
	}
}
