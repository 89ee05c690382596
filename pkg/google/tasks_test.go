package google

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/harrisonrobin/taskmerge/pkg/index"
	"github.com/harrisonrobin/taskmerge/pkg/remote"
	"google.golang.org/api/option"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *TasksClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	idx, err := index.Open(filepath.Join(t.TempDir(), "handles.json"))
	if err != nil {
		t.Fatalf("index.Open: %v", err)
	}

	client, err := NewClient(context.Background(), srv.Client(), "Groceries", idx, option.WithEndpoint(srv.URL+"/"))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func TestCreateAndUpdate(t *testing.T) {
	var patched map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/users/@me/lists"):
			io.WriteString(w, `{"items": [{"id": "other", "title": "Work"}, {"id": "L1", "title": "groceries "}]}`)
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/lists/L1/tasks"):
			io.WriteString(w, `{"id": "T-abc", "title": "Buy milk", "status": "needsAction"}`)
		case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/lists/L1/tasks/T-abc"):
			io.WriteString(w, `{"id": "T-abc", "notes": "Semi-skimmed\nPriority: low"}`)
		case r.Method == http.MethodPatch && strings.HasSuffix(r.URL.Path, "/lists/L1/tasks/T-abc"):
			json.NewDecoder(r.Body).Decode(&patched)
			io.WriteString(w, `{"id": "T-abc"}`)
		default:
			http.Error(w, "unexpected "+r.Method+" "+r.URL.Path, http.StatusTeapot)
		}
	})

	handle, err := client.Create(context.Background(), remote.Draft{Title: "Buy milk"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if handle <= 0 {
		t.Fatalf("Expected a positive handle, got %d", handle)
	}

	completed := true
	priority := "high"
	if err := client.Update(context.Background(), handle, remote.Patch{Completed: &completed, Priority: &priority}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if patched["status"] != "completed" || patched["notes"] != "Semi-skimmed\nPriority: high" {
		t.Errorf("Unexpected patch body %v", patched)
	}
}

func TestListAllocatesHandles(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/users/@me/lists"):
			io.WriteString(w, `{"items": [{"id": "L1", "title": "Groceries"}]}`)
		case strings.HasSuffix(r.URL.Path, "/lists/L1/tasks"):
			io.WriteString(w, `{"items": [
				{"id": "a", "title": "Eggs", "status": "needsAction"},
				{"id": "b", "title": "", "status": "needsAction"},
				{"id": "c", "title": "Bread", "status": "completed"}
			]}`)
		default:
			http.Error(w, "unexpected", http.StatusTeapot)
		}
	})

	items, err := client.List(context.Background(), 10)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("Expected 2 tasks, got %+v", items)
	}
	if items[0].Title != "Eggs" || items[0].Completed || !items[1].Completed {
		t.Errorf("Unexpected tasks %+v", items)
	}
	if items[0].ID == items[1].ID {
		t.Errorf("Expected distinct handles")
	}
}

func TestDeleteUnknownHandle(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"items": [{"id": "L1", "title": "Groceries"}]}`)
	})

	if err := client.Delete(context.Background(), 99); !errors.Is(err, remote.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestMissingList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"items": [{"id": "L1", "title": "Work"}]}`)
	}))
	defer srv.Close()

	idx, _ := index.Open(filepath.Join(t.TempDir(), "handles.json"))
	if _, err := NewClient(context.Background(), srv.Client(), "Groceries", idx, option.WithEndpoint(srv.URL+"/")); err == nil {
		t.Errorf("Expected an error for a missing task list")
	}
}

func TestWithPriority(t *testing.T) {
	cases := []struct {
		notes string
		want  string
	}{
		{"", "Priority: high"},
		{"Semi-skimmed", "Semi-skimmed\nPriority: high"},
		{"Priority: low", "Priority: high"},
		{"Top shelf\nPriority: low\nTwo bottles", "Top shelf\nPriority: high\nTwo bottles"},
	}
	for _, c := range cases {
		if got := withPriority(c.notes, "high"); got != c.want {
			t.Errorf("withPriority(%q): expected %q, got %q", c.notes, c.want, got)
		}
	}
}
