// Package output provides formatters for CLI output.
package output

import (
	"fmt"
	"io"
	"strings"

	"taskdeck/internal/api"
)

// FormatTask formats one task line.
// Format: "{N:>4}  [{x| }] {TITLE}{annotations}\n". Annotations collect
// priority, category, due date and tags when present.
func FormatTask(w io.Writer, num int, task api.Task) {
	box := " "
	if task.Status == api.StatusDone {
		box = "x"
	}
	fmt.Fprintf(w, "%4d  [%s] %s%s\n", num, box, normalizeTitle(task.Title), annotations(task))
}

// FormatTaskDetail prints the full record of a single task.
func FormatTaskDetail(w io.Writer, task api.Task) {
	fmt.Fprintf(w, "id:        %s\n", task.ID)
	fmt.Fprintf(w, "title:     %s\n", normalizeTitle(task.Title))
	fmt.Fprintf(w, "status:    %s\n", task.Status)
	if task.Priority != "" {
		fmt.Fprintf(w, "priority:  %s\n", task.Priority)
	}
	if task.Category != "" {
		fmt.Fprintf(w, "category:  %s\n", task.Category)
	}
	if len(task.Tags) > 0 {
		fmt.Fprintf(w, "tags:      %s\n", strings.Join(task.Tags, ", "))
	}
	if task.DueDate != "" {
		fmt.Fprintf(w, "due:       %s\n", task.DueDate)
	}
	if task.Description != "" {
		fmt.Fprintf(w, "desc:      %s\n", task.Description)
	}
	fmt.Fprintf(w, "created:   %s\n", task.CreatedAt)
	if task.CompletedAt != "" {
		fmt.Fprintf(w, "completed: %s\n", task.CompletedAt)
	}
}

// FormatPage prints one page of tasks with a pagination footer.
func FormatPage(w io.Writer, page *api.TaskPage) {
	start := (page.Pagination.CurrentPage-1)*page.Pagination.Limit + 1
	if page.Pagination.CurrentPage < 1 || page.Pagination.Limit < 1 {
		start = 1
	}
	for i, task := range page.Tasks {
		FormatTask(w, start+i, task)
	}
	if page.Pagination.TotalPages > 1 {
		fmt.Fprintf(w, "page %d/%d (%d tasks)\n",
			page.Pagination.CurrentPage, page.Pagination.TotalPages, page.Pagination.TotalTasks)
	}
}

// FormatStats prints the task aggregate.
func FormatStats(w io.Writer, stats *api.TaskStats) {
	fmt.Fprintf(w, "total:      %d\n", stats.TotalTasks)
	fmt.Fprintf(w, "done:       %d\n", stats.CompletedTasks)
	fmt.Fprintf(w, "pending:    %d\n", stats.PendingTasks)
	fmt.Fprintf(w, "completion: %s%%\n", stats.CompletionRate)
}

// FormatUser prints the signed-in account.
func FormatUser(w io.Writer, user *api.User) {
	fmt.Fprintf(w, "%s <%s>\n", user.Name, user.Email)
}

func annotations(task api.Task) string {
	var parts []string
	if task.Priority != "" {
		parts = append(parts, task.Priority)
	}
	if task.Category != "" {
		parts = append(parts, task.Category)
	}
	if task.DueDate != "" {
		parts = append(parts, "due "+shortDate(task.DueDate))
	}
	if len(task.Tags) > 0 {
		parts = append(parts, "#"+strings.Join(task.Tags, " #"))
	}
	if len(parts) == 0 {
		return ""
	}
	return "  (" + strings.Join(parts, ", ") + ")"
}

// shortDate trims RFC3339 timestamps down to the date.
func shortDate(s string) string {
	if len(s) > 10 && s[10] == 'T' {
		return s[:10]
	}
	return s
}

// normalizeTitle normalizes a task title for display.
// - Empty or whitespace-only titles become "(untitled)"
// - Newlines are replaced with spaces
func normalizeTitle(title string) string {
	title = strings.ReplaceAll(title, "\r", " ")
	title = strings.ReplaceAll(title, "\n", " ")
	if strings.TrimSpace(title) == "" {
		return "(untitled)"
	}
	return title
}
