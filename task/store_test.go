package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/ahenry/taskdeck/client"
)

// requestLog records handled requests as "METHOD path" in arrival order.
type requestLog struct {
	mu      sync.Mutex
	entries []string
	tokens  []string
}

func (l *requestLog) record(r *http.Request) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, r.Method+" "+r.URL.Path)
	l.tokens = append(l.tokens, r.Header.Get(client.TokenHeader))
}

func (l *requestLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.entries...)
}

func newTestStore(t *testing.T, handler http.Handler) (*Store, *requestLog) {
	t.Helper()
	rl := &requestLog{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rl.record(r)
		if r.URL.Path == client.TokenPath {
			json.NewEncoder(w).Encode(map[string]string{"csrf_token": "test-token"})
			return
		}
		handler.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)

	c, err := client.New(srv.URL, client.Options{Logger: testLogger(t)})
	if err != nil {
		t.Fatalf("client.New: %v", err)
	}
	return NewStore(c, testLogger(t)), rl
}

func testLogger(t *testing.T) *log.Logger {
	return log.New(&testLogWriter{t: t}, "", 0)
}

type testLogWriter struct{ t *testing.T }

func (w *testLogWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeAPIError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func TestStore_FetchAll(t *testing.T) {
	tasks := []Task{
		{ID: 1, Title: "write report", Priority: PriorityHigh},
		{ID: 2, Title: "buy milk", Priority: PriorityMedium},
	}

	for _, tt := range []struct {
		name    string
		payload any
	}{
		{name: "bare array", payload: tasks},
		{name: "envelope", payload: map[string]any{"tasks": tasks}},
	} {
		t.Run(tt.name, func(t *testing.T) {
			store, _ := newTestStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.payload)
			}))

			got, err := store.FetchAll(context.Background())
			if err != nil {
				t.Fatalf("FetchAll: %v", err)
			}
			if len(got) != 2 || got[0].ID != 1 || got[1].Title != "buy milk" {
				t.Errorf("FetchAll = %+v", got)
			}
			if store.Loading() {
				t.Error("loading still set after fetch")
			}
			if store.Err() != "" {
				t.Errorf("Err() = %q after success", store.Err())
			}
		})
	}
}

func TestStore_FetchAll_ClearsStaleError(t *testing.T) {
	var fail bool
	store, _ := newTestStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail {
			writeAPIError(w, http.StatusInternalServerError, "boom")
			return
		}
		writeJSON(w, []Task{})
	}))

	fail = true
	if _, err := store.FetchAll(context.Background()); err == nil {
		t.Fatal("expected fetch error")
	}
	if store.Err() != "boom" {
		t.Errorf("Err() = %q, want %q", store.Err(), "boom")
	}

	fail = false
	if _, err := store.FetchAll(context.Background()); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if store.Err() != "" {
		t.Errorf("stale error kept after successful retry: %q", store.Err())
	}
}

func TestStore_Update_FetchesTokenThenSendsIt(t *testing.T) {
	store, rl := newTestStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]bool{"ok": true})
	}))
	store.tasks = []Task{{ID: 1, Title: "draft post"}}

	title := "publish post"
	if err := store.Update(context.Background(), 1, Patch{Title: &title}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	want := []string{"GET " + client.TokenPath, "PUT /api/tasks/1"}
	got := rl.all()
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("requests = %v, want %v", got, want)
	}
	if rl.tokens[1] != "test-token" {
		t.Errorf("PUT token header = %q, want %q", rl.tokens[1], "test-token")
	}
}

func TestStore_Update_ServerErrorLeavesEntryUntouched(t *testing.T) {
	store, _ := newTestStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeAPIError(w, http.StatusBadRequest, "Update failed")
	}))
	store.tasks = []Task{{ID: 1, Title: "original title", Priority: PriorityLow}}

	title := "new title"
	err := store.Update(context.Background(), 1, Patch{Title: &title})
	if err == nil {
		t.Fatal("expected update error")
	}
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) || apiErr.Message != "Update failed" {
		t.Errorf("err = %v, want APIError with server message", err)
	}
	if store.Err() != "Update failed" {
		t.Errorf("Err() = %q, want server message verbatim", store.Err())
	}
	if got, _ := store.Find(1); got.Title != "original title" {
		t.Errorf("entry mutated on failed update: %+v", got)
	}
}

func TestStore_Update_InvalidPatchSkipsNetwork(t *testing.T) {
	store, rl := newTestStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("unexpected request for invalid patch")
	}))
	store.tasks = []Task{{ID: 1, Title: "keep me"}}

	title := " x "
	if err := store.Update(context.Background(), 1, Patch{Title: &title}); !errors.Is(err, ErrTitleTooShort) {
		t.Fatalf("err = %v, want ErrTitleTooShort", err)
	}
	if entries := rl.all(); len(entries) != 0 {
		t.Errorf("requests issued for invalid patch: %v", entries)
	}
}

func TestStore_Update_UnknownIDStillCallsServer(t *testing.T) {
	store, rl := newTestStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]bool{"ok": true})
	}))
	store.tasks = []Task{{ID: 1, Title: "only task"}}

	done := true
	if err := store.Update(context.Background(), 42, Patch{Completed: &done}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	var sawPut bool
	for _, entry := range rl.all() {
		if entry == "PUT /api/tasks/42" {
			sawPut = true
		}
	}
	if !sawPut {
		t.Errorf("no PUT issued for unknown id: %v", rl.all())
	}
	if got := store.Tasks(); len(got) != 1 || got[0].ID != 1 || got[0].Completed {
		t.Errorf("local list changed: %+v", got)
	}
}

func TestStore_Update_StaleResponseDiscarded(t *testing.T) {
	release := make(chan struct{})
	arrived := make(chan struct{})
	var once sync.Once

	store, _ := newTestStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var patch Patch
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &patch)
		// Hold the first title update until the second one has finished.
		if patch.Title != nil && *patch.Title == "stale" {
			once.Do(func() { close(arrived) })
			<-release
		}
		writeJSON(w, map[string]bool{"ok": true})
	}))
	store.tasks = []Task{{ID: 1, Title: "original"}}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		title := "stale"
		if err := store.Update(context.Background(), 1, Patch{Title: &title}); err != nil {
			t.Errorf("first update: %v", err)
		}
	}()

	<-arrived
	title := "fresh"
	if err := store.Update(context.Background(), 1, Patch{Title: &title}); err != nil {
		t.Fatalf("second update: %v", err)
	}
	close(release)
	wg.Wait()

	if got, _ := store.Find(1); got.Title != "fresh" {
		t.Errorf("title = %q, want the newer update to win", got.Title)
	}
}

func TestStore_Create(t *testing.T) {
	store, _ := newTestStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/tasks" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var draft Task
		json.NewDecoder(r.Body).Decode(&draft)
		draft.ID = 7
		writeJSON(w, draft)
	}))

	created, err := store.Create(context.Background(), New("Buy milk"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID != 7 || created.Title != "Buy milk" {
		t.Errorf("created = %+v", created)
	}
	if created.Completed {
		t.Error("new task marked completed")
	}
	if created.Priority != PriorityMedium {
		t.Errorf("priority = %d, want default %d", created.Priority, PriorityMedium)
	}
	if got := store.Tasks(); len(got) != 1 || got[0].ID != 7 {
		t.Errorf("store list = %+v", got)
	}
}

func TestStore_Create_InvalidTitleSkipsNetwork(t *testing.T) {
	store, rl := newTestStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("unexpected request for invalid draft")
	}))

	if _, err := store.Create(context.Background(), New("  a ")); !errors.Is(err, ErrTitleTooShort) {
		t.Fatalf("err = %v, want ErrTitleTooShort", err)
	}
	if entries := rl.all(); len(entries) != 0 {
		t.Errorf("requests issued: %v", entries)
	}
}

func TestStore_Delete(t *testing.T) {
	store, _ := newTestStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/api/tasks/2" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		writeJSON(w, map[string]bool{"ok": true})
	}))
	store.tasks = []Task{
		{ID: 1, Title: "keep"},
		{ID: 2, Title: "remove"},
	}

	if err := store.Delete(context.Background(), 2); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	got := store.Tasks()
	if len(got) != 1 || got[0].ID != 1 || got[0].Title != "keep" {
		t.Errorf("sibling entry disturbed: %+v", got)
	}
}

func TestStore_Delete_ServerErrorKeepsEntry(t *testing.T) {
	store, _ := newTestStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeAPIError(w, http.StatusConflict, "Task has dependents")
	}))
	store.tasks = []Task{{ID: 1, Title: "blocked"}}

	if err := store.Delete(context.Background(), 1); err == nil {
		t.Fatal("expected delete error")
	}
	if store.Err() != "Task has dependents" {
		t.Errorf("Err() = %q", store.Err())
	}
	if got := store.Tasks(); len(got) != 1 {
		t.Errorf("entry dropped on failed delete: %+v", got)
	}
}

func TestStore_List(t *testing.T) {
	projectID := int64(3)
	store := &Store{tasks: []Task{
		{ID: 1, Title: "Write report", Priority: PriorityHigh, ProjectID: &projectID},
		{ID: 2, Title: "Buy milk", Priority: PriorityMedium},
		{ID: 3, Title: "Report bug", Priority: PriorityHigh, Completed: true},
	}}

	for _, tt := range []struct {
		name   string
		filter ListFilter
		want   []int64
	}{
		{name: "all", filter: ListFilter{}, want: []int64{1, 2, 3}},
		{name: "open only", filter: ListFilter{Completed: boolPtr(false)}, want: []int64{1, 2}},
		{name: "priority", filter: ListFilter{Priority: PriorityPtr(PriorityHigh)}, want: []int64{1, 3}},
		{name: "project", filter: ListFilter{ProjectID: &projectID}, want: []int64{1}},
		{name: "quick only", filter: ListFilter{QuickOnly: true}, want: []int64{2, 3}},
		{name: "title substring", filter: ListFilter{TitleSubstring: "report"}, want: []int64{1, 3}},
	} {
		t.Run(tt.name, func(t *testing.T) {
			tasks, err := store.List(tt.filter)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			var got []int64
			for _, task := range tasks {
				got = append(got, task.ID)
			}
			if fmt.Sprint(got) != fmt.Sprint(tt.want) {
				t.Errorf("List = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStore_List_InvalidPriority(t *testing.T) {
	store := &Store{tasks: []Task{{ID: 1, Title: "Buy milk"}}}

	tasks, err := store.List(ListFilter{Priority: PriorityPtr(9)})
	if !errors.Is(err, ErrInvalidPriority) {
		t.Fatalf("List error = %v, want ErrInvalidPriority", err)
	}
	if tasks != nil {
		t.Errorf("List returned %v, want nil", tasks)
	}
}

func boolPtr(b bool) *bool { return &b }

func TestPatch_MarshalJSON(t *testing.T) {
	title := "new title"

	for _, tt := range []struct {
		name  string
		patch Patch
		want  map[string]string
		omit  []string
	}{
		{
			name:  "plain fields",
			patch: Patch{Title: &title},
			want:  map[string]string{"title": `"new title"`},
			omit:  []string{"project_id", "blocking", "completed"},
		},
		{
			name:  "clear project sends null",
			patch: Patch{ClearProject: true},
			want:  map[string]string{"project_id": "null"},
		},
		{
			name:  "empty relation list survives",
			patch: Patch{Blocking: []int64{}},
			want:  map[string]string{"blocking": "[]"},
			omit:  []string{"linked_tasks", "subtasks"},
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.patch)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			var fields map[string]json.RawMessage
			if err := json.Unmarshal(data, &fields); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			for key, want := range tt.want {
				if got, ok := fields[key]; !ok || string(got) != want {
					t.Errorf("field %q = %s, want %s", key, got, want)
				}
			}
			for _, key := range tt.omit {
				if _, ok := fields[key]; ok {
					t.Errorf("field %q unexpectedly present", key)
				}
			}
		})
	}
}
