// Package audit turns task mutations into the comment trail the board shows.
// Each rule is independent; several may fire for one mutation and comments
// are only ever appended.
package audit

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"deskboard/internal/models"
)

// Patch is a partial task mutation. Nil fields are untouched. DueDate uses a
// double pointer so "clear the due date" (inner nil) is distinct from "leave
// it alone" (outer nil).
type Patch struct {
	Title       *string
	Status      *string
	Priority    *models.Priority
	DueDate     **time.Time
	Assignees   *[]models.Employee
	Description *[]models.DescriptionBlock
	Comments    []models.Comment // carried verbatim, e.g. when seeding a copy
}

// Apply computes the task state after patch and the audit comments the
// mutation generates. prev is nil when creating a task; actor is the display
// name recorded on generated comments.
func Apply(prev *models.Task, patch Patch, actor string, now time.Time) (models.Task, []models.Comment) {
	var task models.Task
	creating := prev == nil
	if !creating {
		task = *prev
	}

	var generated []models.Comment
	emit := func(text string) {
		generated = append(generated, models.Comment{Text: text, CreatedBy: actor, CreatedAt: now})
	}

	if creating {
		emit(fmt.Sprintf("%s created this task", actor))
	}

	if patch.Title != nil && (creating || *patch.Title != task.Title) {
		if !creating {
			emit(fmt.Sprintf("%s updated the title to %q", actor, *patch.Title))
		}
		task.Title = *patch.Title
	}

	if patch.Status != nil && (creating || *patch.Status != task.Status) {
		if creating {
			emit(fmt.Sprintf("%s set status to %s", actor, *patch.Status))
		} else {
			text := fmt.Sprintf("%s changed status from %s to %s", actor, task.Status, *patch.Status)
			if !hasComment(task.Comments, text) {
				emit(text)
			}
		}
		task.Status = *patch.Status
	}

	if patch.Assignees != nil && !sameAssignees(task.Assignees, *patch.Assignees) {
		if !creating && len(*patch.Assignees) > 0 {
			emit(fmt.Sprintf("%s assigned to: %s", actor, joinNames(*patch.Assignees)))
		}
		task.Assignees = *patch.Assignees
	}

	if patch.DueDate != nil && !sameDay(task.DueDate, *patch.DueDate) {
		if !creating {
			emit(fmt.Sprintf("%s set the due date to %s", actor, formatDue(*patch.DueDate)))
		}
		task.DueDate = *patch.DueDate
	}

	if patch.Priority != nil && (creating || *patch.Priority != task.Priority) {
		if !creating {
			emit(fmt.Sprintf("%s set priority to %s", actor, *patch.Priority))
		}
		task.Priority = *patch.Priority
	}

	if patch.Description != nil && !reflect.DeepEqual(task.Description, *patch.Description) {
		if !creating {
			emit(fmt.Sprintf("%s updated the description", actor))
		}
		task.Description = *patch.Description
	}

	if patch.Comments != nil {
		task.Comments = append(task.Comments, patch.Comments...)
	}
	task.Comments = append(task.Comments, generated...)
	task.UpdatedAt = now
	if creating {
		task.CreatedAt = now
	}
	return task, generated
}

// Copy seeds a duplicate of src in the same lane: title suffixed, content
// carried over and the existing comment trail kept as-is. Audit rules are
// not re-run against the copy; it starts life already owning that history.
func Copy(src models.Task, now time.Time) models.Task {
	dup := src
	dup.ID = ""
	dup.Title = src.Title + " (Copy)"
	dup.Comments = append([]models.Comment(nil), src.Comments...)
	dup.Description = append([]models.DescriptionBlock(nil), src.Description...)
	dup.Assignees = append([]models.Employee(nil), src.Assignees...)
	dup.Timeline = nil
	dup.CreatedAt = now
	dup.UpdatedAt = now
	return dup
}

func hasComment(comments []models.Comment, text string) bool {
	for _, c := range comments {
		if c.Text == text {
			return true
		}
	}
	return false
}

// sameAssignees compares assignee sets by employee ID, ignoring order.
func sameAssignees(a, b []models.Employee) bool {
	if len(a) != len(b) {
		return false
	}
	ids := make(map[string]int, len(a))
	for _, e := range a {
		ids[e.ID]++
	}
	for _, e := range b {
		ids[e.ID]--
		if ids[e.ID] < 0 {
			return false
		}
	}
	return true
}

func joinNames(assignees []models.Employee) string {
	names := make([]string, 0, len(assignees))
	for _, e := range assignees {
		name := e.FullName
		if name == "" {
			name = e.Username
		}
		names = append(names, name)
	}
	return strings.Join(names, ", ")
}

// sameDay compares two nullable dates at day precision.
func sameDay(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// formatDue renders a due date as M/D/YYYY, or "none" when cleared.
func formatDue(t *time.Time) string {
	if t == nil {
		return "none"
	}
	return fmt.Sprintf("%d/%d/%d", int(t.Month()), t.Day(), t.Year())
}
