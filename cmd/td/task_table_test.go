package main

import (
	"strings"
	"testing"
	"time"

	"github.com/ahenry/taskdeck/task"
)

func quickName(id *int64) string {
	if id == nil {
		return "Quick task"
	}
	return "Some project"
}

func TestFormatTaskTable(t *testing.T) {
	projectID := int64(3)
	tasks := []task.Task{
		{ID: 1, Title: "Buy milk", Priority: task.PriorityMedium, DueDate: "2026-09-01"},
		{ID: 2, Title: "Write report", Priority: task.PriorityHigh, Completed: true, ProjectID: &projectID},
	}

	out := formatTaskTable(tasks, quickName)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d lines:\n%s", len(lines), out)
	}
	if !strings.HasPrefix(lines[0], "ID") {
		t.Errorf("header = %q", lines[0])
	}
	for _, want := range []string{"P1", "open", "2026-09-01", "Quick task", "Buy milk"} {
		if !strings.Contains(lines[1], want) {
			t.Errorf("row 1 missing %q: %q", want, lines[1])
		}
	}
	for _, want := range []string{"P2", "done", "-", "Some project", "Write report"} {
		if !strings.Contains(lines[2], want) {
			t.Errorf("row 2 missing %q: %q", want, lines[2])
		}
	}
}

func TestFormatTaskTable_Empty(t *testing.T) {
	if got := formatTaskTable(nil, quickName); got != "No tasks found.\n" {
		t.Errorf("empty table = %q", got)
	}
}

func TestPriorityShort(t *testing.T) {
	for _, tt := range []struct {
		priority int
		want     string
	}{
		{task.PriorityLow, "P0"},
		{task.PriorityCritical, "P3"},
		{9, "?"},
	} {
		if got := priorityShort(tt.priority); got != tt.want {
			t.Errorf("priorityShort(%d) = %q, want %q", tt.priority, got, tt.want)
		}
	}
}

func TestDueAnnotation(t *testing.T) {
	now := time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC)

	for _, tt := range []struct {
		due  string
		want string
	}{
		{due: "2026-08-29", want: " (in 3d)"},
		{due: "2026-08-24", want: " (2d ago)"},
		{due: "not-a-date", want: ""},
	} {
		if got := dueAnnotation(tt.due, now); got != tt.want {
			t.Errorf("dueAnnotation(%q) = %q, want %q", tt.due, got, tt.want)
		}
	}
}

func TestFormatTaskDetail(t *testing.T) {
	all := []task.Task{
		{ID: 1, Title: "Design schema", Blocking: []int64{2}},
		{ID: 2, Title: "Write migrations", Subtasks: []task.Subtask{
			{ID: 10, Title: "users table", Completed: true},
			{ID: 11, Title: "tasks table"},
		}},
	}

	out := formatTaskDetail(all[1], all, quickName, time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC))
	for _, want := range []string{
		"#2 Write migrations",
		"Priority: P0 (low)",
		"[x] users table",
		"[ ] tasks table",
		"Blocked by:",
		"#1 Design schema",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("detail missing %q:\n%s", want, out)
		}
	}
}
