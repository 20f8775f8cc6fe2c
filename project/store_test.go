package project

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ahenry/taskdeck/client"
)

func newTestStore(t *testing.T, handler http.HandlerFunc) *Store {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == client.TokenPath {
			json.NewEncoder(w).Encode(map[string]string{"csrf_token": "test-token"})
			return
		}
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	logger := log.New(&testLogWriter{t: t}, "", 0)
	c, err := client.New(srv.URL, client.Options{Logger: logger})
	if err != nil {
		t.Fatalf("client.New: %v", err)
	}
	return NewStore(c, logger)
}

type testLogWriter struct{ t *testing.T }

func (w *testLogWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

func TestStore_FetchAll(t *testing.T) {
	projects := []Project{
		{ID: 1, Name: "Home"},
		{ID: 2, Name: "Work", Description: "office tasks"},
	}

	for _, tt := range []struct {
		name    string
		payload any
	}{
		{name: "bare array", payload: projects},
		{name: "envelope", payload: map[string]any{"projects": projects}},
	} {
		t.Run(tt.name, func(t *testing.T) {
			store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(tt.payload)
			})

			got, err := store.FetchAll(context.Background())
			if err != nil {
				t.Fatalf("FetchAll: %v", err)
			}
			if len(got) != 2 || got[1].Description != "office tasks" {
				t.Errorf("FetchAll = %+v", got)
			}
		})
	}
}

func TestStore_Create_EmptyNameSkipsNetwork(t *testing.T) {
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("unexpected request for invalid draft")
	})

	if _, err := store.Create(context.Background(), New("   ")); !errors.Is(err, ErrEmptyName) {
		t.Fatalf("err = %v, want ErrEmptyName", err)
	}
}

func TestStore_Create(t *testing.T) {
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		var draft Project
		json.NewDecoder(r.Body).Decode(&draft)
		draft.ID = 5
		json.NewEncoder(w).Encode(draft)
	})

	created, err := store.Create(context.Background(), New("Garden"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID != 5 || created.Name != "Garden" {
		t.Errorf("created = %+v", created)
	}
	if got := store.Projects(); len(got) != 1 || got[0].ID != 5 {
		t.Errorf("store list = %+v", got)
	}
}

func TestStore_Update_ServerErrorKeepsEntry(t *testing.T) {
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "Name already taken"})
	})
	store.projects = []Project{{ID: 1, Name: "Home"}}

	name := "Work"
	if err := store.Update(context.Background(), 1, Patch{Name: &name}); err == nil {
		t.Fatal("expected update error")
	}
	if store.Err() != "Name already taken" {
		t.Errorf("Err() = %q", store.Err())
	}
	if got, _ := store.Find(1); got.Name != "Home" {
		t.Errorf("entry mutated on failed update: %+v", got)
	}
}

func TestStore_Delete(t *testing.T) {
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/api/projects/1" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]bool{"ok": true})
	})
	store.projects = []Project{{ID: 1, Name: "Home"}, {ID: 2, Name: "Work"}}

	if err := store.Delete(context.Background(), 1); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if got := store.Projects(); len(got) != 1 || got[0].ID != 2 {
		t.Errorf("store list = %+v", got)
	}
}

func TestStore_Name(t *testing.T) {
	store := &Store{projects: []Project{{ID: 3, Name: "Home"}}}

	if got := store.Name(nil); got != "Quick task" {
		t.Errorf("Name(nil) = %q", got)
	}
	id := int64(3)
	if got := store.Name(&id); got != "Home" {
		t.Errorf("Name(3) = %q", got)
	}
	unknown := int64(9)
	if got := store.Name(&unknown); got != "Project #9" {
		t.Errorf("Name(9) = %q", got)
	}
}
