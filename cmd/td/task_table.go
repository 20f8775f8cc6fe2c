package main

import (
	"fmt"
	"strconv"

	"github.com/ahenry/taskdeck/internal/ui"
	"github.com/ahenry/taskdeck/task"
)

// formatTaskTable renders tasks as an aligned table. projectName resolves a
// project reference to its display name.
func formatTaskTable(tasks []task.Task, projectName func(*int64) string) string {
	if len(tasks) == 0 {
		return "No tasks found.\n"
	}

	builder := ui.NewTableBuilder([]string{"ID", "PRI", "STATUS", "DUE", "PROJECT", "TITLE"}, len(tasks))
	for _, t := range tasks {
		builder.AddRow([]string{
			strconv.FormatInt(t.ID, 10),
			priorityShort(t.Priority),
			statusWord(t),
			dueCell(t),
			ui.TruncateTableCell(projectName(t.ProjectID)),
			ui.TruncateTableCell(t.Title),
		})
	}
	return builder.String()
}

func priorityShort(p int) string {
	if p < task.PriorityMin || p > task.PriorityMax {
		return "?"
	}
	return fmt.Sprintf("P%d", p)
}

func statusWord(t task.Task) string {
	if t.Completed {
		return "done"
	}
	return "open"
}

func dueCell(t task.Task) string {
	if t.DueDate == "" {
		return "-"
	}
	return ui.FormatDate(t.DueDate)
}
