package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/harrisonrobin/taskmerge/pkg/model"
	"github.com/harrisonrobin/taskmerge/pkg/render"
	"github.com/harrisonrobin/taskmerge/pkg/storage"
	"github.com/zalando/go-keyring"
)

func TestMain(m *testing.M) {
	keyring.MockInit()
	os.Exit(m.Run())
}

type cliResult struct {
	stdout string
	stderr string
	err    error
}

func runCLI(t *testing.T, stdin string, args ...string) cliResult {
	t.Helper()

	var stdout, stderr bytes.Buffer
	app := newApp()
	app.Reader = strings.NewReader(stdin)
	app.Writer = &stdout
	app.ErrWriter = &stderr

	err := app.Run(append([]string{"taskmerge"}, args...))
	return cliResult{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

// setupCLI points the configuration at a temporary data file and returns
// its path.
func setupCLI(t *testing.T, backend string, baseURL string) string {
	t.Helper()

	dir := t.TempDir()
	dataPath := filepath.Join(dir, "tasks.json")
	t.Setenv("TMPDIR", dir)
	t.Setenv("TASKMERGE_DATA_PATH", dataPath)
	t.Setenv("TASKMERGE_STORAGE", "json")
	t.Setenv("TASKMERGE_SESSION", "test")
	t.Setenv("TASKMERGE_BACKEND", backend)
	t.Setenv("TASKMERGE_BASE_URL", baseURL)
	t.Setenv("TASKMERGE_TOKEN", "")
	return dataPath
}

func loadIDs(t *testing.T, path string) []string {
	t.Helper()

	store, err := storage.Open(storage.KindJSON, path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer store.Close()

	tasks, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	ids := make([]string, 0, len(tasks))
	for _, task := range tasks {
		ids = append(ids, string(task.ID()))
	}
	return ids
}

func TestCLILocalLifecycle(t *testing.T) {
	dataPath := setupCLI(t, "none", "")

	res := runCLI(t, "", "add", "--priority", "high", "Buy", "milk")
	if res.err != nil {
		t.Fatalf("add failed: %v (%s)", res.err, res.stderr)
	}
	if !strings.Contains(res.stdout, "Buy milk") || !strings.Contains(res.stdout, "High") {
		t.Errorf("Unexpected add output %q", res.stdout)
	}

	ids := loadIDs(t, dataPath)
	if len(ids) != 1 {
		t.Fatalf("Expected 1 persisted task, got %d", len(ids))
	}

	if res := runCLI(t, "", "toggle", render.ShortID(model.ID(ids[0]))); res.err != nil {
		t.Fatalf("toggle failed: %v (%s)", res.err, res.stderr)
	}

	res = runCLI(t, "", "list", "--filter", "completed")
	if !strings.Contains(res.stdout, "[x]") || !strings.Contains(res.stdout, "1 tasks · 1 done") {
		t.Errorf("Unexpected list output %q", res.stdout)
	}

	if res := runCLI(t, "", "filter", "active"); res.err != nil || strings.TrimSpace(res.stdout) != "active" {
		t.Fatalf("filter failed: %v %q", res.err, res.stdout)
	}
	res = runCLI(t, "", "list")
	if !strings.Contains(res.stdout, "No tasks.") {
		t.Errorf("Expected the session filter to hide completed tasks, got %q", res.stdout)
	}

	res = runCLI(t, "n\n", "clear")
	if !strings.Contains(res.stdout, "Aborted.") {
		t.Errorf("Expected clear to be aborted, got %q", res.stdout)
	}
	if len(loadIDs(t, dataPath)) != 1 {
		t.Fatalf("Expected the task to survive an aborted clear")
	}

	res = runCLI(t, "", "clear", "--yes")
	if res.err != nil || !strings.Contains(res.stdout, "Removed 1 task(s)") {
		t.Fatalf("clear failed: %v %q", res.err, res.stdout)
	}
	if len(loadIDs(t, dataPath)) != 0 {
		t.Errorf("Expected no tasks after clear")
	}
}

func TestCLIRejectsInput(t *testing.T) {
	setupCLI(t, "none", "")

	if res := runCLI(t, "", "add", "   "); res.err == nil {
		t.Errorf("Expected blank text to be rejected")
	}
	if res := runCLI(t, "", "add", "--priority", "urgent", "Task"); res.err == nil {
		t.Errorf("Expected an invalid priority to be rejected")
	}

	res := runCLI(t, "", "toggle", "missing")
	if res.err == nil || !strings.Contains(res.stderr, "task not found") {
		t.Errorf("Expected a not found error, got %v %q", res.err, res.stderr)
	}

	if res := runCLI(t, "", "import"); res.err == nil {
		t.Errorf("Expected import to fail without a remote backend")
	}
}

type todoServer struct {
	mu       sync.Mutex
	requests []string
	bodies   []map[string]any
}

func (s *todoServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = append(s.requests, r.Method+" "+r.URL.Path)
	var body map[string]any
	json.NewDecoder(r.Body).Decode(&body)
	s.bodies = append(s.bodies, body)

	w.Header().Set("Content-Type", "application/json")
	switch r.Method {
	case http.MethodPost:
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{"id": 201, "title": body["title"], "completed": false})
	case http.MethodGet:
		json.NewEncoder(w).Encode([]map[string]any{
			{"id": 1, "title": "delectus aut autem", "completed": false},
			{"id": 2, "title": "quis ut nam facilis", "completed": true},
		})
	default:
		w.Write([]byte("{}"))
	}
}

func TestCLIRemoteReconciliation(t *testing.T) {
	todos := &todoServer{}
	srv := httptest.NewServer(todos)
	defer srv.Close()

	setupCLI(t, "rest", srv.URL+"/todos")

	res := runCLI(t, "", "add", "Write report")
	if res.err != nil {
		t.Fatalf("add failed: %v (%s)", res.err, res.stderr)
	}
	if !strings.Contains(res.stdout, "server-201") {
		t.Errorf("Expected the task to be promoted, got %q", res.stdout)
	}

	if res := runCLI(t, "", "toggle", "201"); res.err != nil {
		t.Fatalf("toggle failed: %v (%s)", res.err, res.stderr)
	}
	if res := runCLI(t, "", "priority", "server-201", "low"); res.err != nil {
		t.Fatalf("priority failed: %v (%s)", res.err, res.stderr)
	}

	res = runCLI(t, "", "import")
	if res.err != nil || !strings.Contains(res.stdout, "Imported 2 task(s)") {
		t.Fatalf("import failed: %v %q (%s)", res.err, res.stdout, res.stderr)
	}

	if res := runCLI(t, "", "delete", "server-1"); res.err != nil {
		t.Fatalf("delete failed: %v (%s)", res.err, res.stderr)
	}

	want := []string{
		"POST /todos",
		"PATCH /todos/201",
		"PATCH /todos/201",
		"GET /todos",
		"DELETE /todos/1",
	}
	todos.mu.Lock()
	defer todos.mu.Unlock()
	if len(todos.requests) != len(want) {
		t.Fatalf("Expected requests %v, got %v", want, todos.requests)
	}
	for i := range want {
		if todos.requests[i] != want[i] {
			t.Errorf("Request %d: expected %s, got %s", i, want[i], todos.requests[i])
		}
	}
	if completed, _ := todos.bodies[1]["completed"].(bool); !completed {
		t.Errorf("Expected the toggle to send completed=true, got %v", todos.bodies[1])
	}
	if todos.bodies[2]["priority"] != "low" {
		t.Errorf("Expected the priority patch to send low, got %v", todos.bodies[2])
	}
}

func TestCLIOfflineFlag(t *testing.T) {
	todos := &todoServer{}
	srv := httptest.NewServer(todos)
	defer srv.Close()

	setupCLI(t, "rest", srv.URL+"/todos")

	res := runCLI(t, "", "--offline", "add", "Local only")
	if res.err != nil {
		t.Fatalf("add failed: %v (%s)", res.err, res.stderr)
	}
	if strings.Contains(res.stdout, "server-") {
		t.Errorf("Expected a local-only task, got %q", res.stdout)
	}
	if len(todos.requests) != 0 {
		t.Errorf("Expected no requests, got %v", todos.requests)
	}
}

func TestCLIImportTaskwarrior(t *testing.T) {
	dataPath := setupCLI(t, "none", "")

	export := `[{"uuid":"1","description":"Buy milk","status":"pending","priority":"H"},
{"uuid":"2","description":"Gone","status":"deleted"},
{"uuid":"3","description":"buy MILK","status":"completed"}]`

	res := runCLI(t, export, "import-taskwarrior", "--file", "-")
	if res.err != nil {
		t.Fatalf("import-taskwarrior failed: %v (%s)", res.err, res.stderr)
	}
	if !strings.Contains(res.stdout, "Imported 1 of 2 task(s)") {
		t.Errorf("Unexpected output %q", res.stdout)
	}
	if ids := loadIDs(t, dataPath); len(ids) != 1 {
		t.Errorf("Expected 1 task, got %d", len(ids))
	}
}
