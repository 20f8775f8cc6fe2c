package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/ahenry/taskdeck/internal/markdown"
	internalstrings "github.com/ahenry/taskdeck/internal/strings"
	"github.com/ahenry/taskdeck/internal/ui"
	"github.com/ahenry/taskdeck/task"
)

const detailWidth = 78

// formatTaskDetail renders one task in full, with the markdown description
// and the names of related tasks.
func formatTaskDetail(t task.Task, all []task.Task, projectName func(*int64) string, now time.Time) string {
	var b strings.Builder

	fmt.Fprintf(&b, "#%d %s\n", t.ID, t.Title)
	fmt.Fprintf(&b, "Status:   %s\n", statusWord(t))
	fmt.Fprintf(&b, "Priority: %s (%s)\n", priorityShort(t.Priority), task.PriorityName(t.Priority))
	fmt.Fprintf(&b, "Project:  %s\n", projectName(t.ProjectID))
	if t.StartDate != "" {
		fmt.Fprintf(&b, "Start:    %s\n", ui.FormatDate(t.StartDate))
	}
	if t.DueDate != "" {
		fmt.Fprintf(&b, "Due:      %s%s\n", ui.FormatDate(t.DueDate), dueAnnotation(t.DueDate, now))
	}
	if t.Recurrence != "" {
		fmt.Fprintf(&b, "Repeats:  %s\n", t.Recurrence)
	}
	if t.NextOccurrence != "" {
		fmt.Fprintf(&b, "Next:     %s\n", ui.FormatDate(t.NextOccurrence))
	}
	if t.ReminderEnabled {
		fmt.Fprintf(&b, "Reminder: %s\n", t.ReminderTime)
	}

	if !internalstrings.IsBlank(t.Description) {
		b.WriteString("\n")
		b.WriteString(markdown.Render(detailWidth, t.Description))
		b.WriteString("\n")
	}

	if len(t.Subtasks) > 0 {
		b.WriteString("\nSubtasks:\n")
		for _, sub := range t.Subtasks {
			box := "[ ]"
			if sub.Completed {
				box = "[x]"
			}
			fmt.Fprintf(&b, "  %s %s\n", box, sub.Title)
		}
	}

	graph := task.BuildGraph(all)
	writeRefSection(&b, "\nBlocked by", task.DisplayNames(graph.BlockedBy(t.ID), all))
	writeRefSection(&b, "Blocking", task.DisplayNames(graph.Blocking(t.ID), all))
	writeRefSection(&b, "Linked", task.DisplayNames(graph.Linked(t.ID), all))

	return b.String()
}

// dueAnnotation renders the distance to a due date, like " (in 3d)" or
// " (2d ago)". Unparseable dates get no annotation.
func dueAnnotation(due string, now time.Time) string {
	parsed, err := task.ParseDate(due)
	if err != nil {
		return ""
	}
	if parsed.Before(now) {
		return " (" + ui.FormatTimeAgo(parsed, now) + ")"
	}
	return " (in " + ui.FormatDurationShort(parsed.Sub(now)) + ")"
}
