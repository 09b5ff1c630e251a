package board

import (
	"context"
	"time"

	"deskboard/internal/audit"
	"deskboard/internal/models"
)

// Selection is the operator's checked task set, keyed by lane. The same
// task can be toggled from only one lane at a time (its current status),
// but a selection may span lanes and projects.
type Selection map[string][]string

// Toggle flips a task in or out of the selection under the given lane.
func (s Selection) Toggle(lane, taskID string) {
	for i, id := range s[lane] {
		if id == taskID {
			s[lane] = append(s[lane][:i], s[lane][i+1:]...)
			return
		}
	}
	s[lane] = append(s[lane], taskID)
}

// Remove drops a task from every lane of the selection.
func (s Selection) Remove(taskID string) {
	for lane, ids := range s {
		for i, id := range ids {
			if id == taskID {
				s[lane] = append(ids[:i], ids[i+1:]...)
				break
			}
		}
		if len(s[lane]) == 0 {
			delete(s, lane)
		}
	}
}

// IDs flattens the selection, de-duplicated by task ID.
func (s Selection) IDs() []string {
	var out []string
	seen := make(map[string]struct{})
	for _, ids := range s {
		for _, id := range ids {
			if _, ok := seen[id]; ok {
				continue
			}
			out = append(out, id)
			seen[id] = struct{}{}
		}
	}
	return out
}

// ToggleSelect flips a task's membership in the current selection.
func (c *Controller) ToggleSelect(lane, taskID string) {
	c.selection.Toggle(NormalizeLane(lane), taskID)
}

// ClearSelection empties the selection set.
func (c *Controller) ClearSelection() {
	c.selection = Selection{}
}

// Selected resolves the selection to full tasks with their owning projects.
// IDs that no longer resolve (deleted server-side) are skipped.
func (c *Controller) Selected() []selectedTask {
	var out []selectedTask
	for _, id := range c.selection.IDs() {
		if t, p, ok := c.findTask(id); ok {
			out = append(out, selectedTask{task: t, project: p})
		}
	}
	return out
}

type selectedTask struct {
	task    models.Task
	project models.Project
}

// OpResult reports the outcome of one task's share of a bulk operation.
type OpResult struct {
	TaskID    string `json:"task_id"`
	ProjectID string `json:"project_id"`
	Error     string `json:"error,omitempty"`
}

// Failed reports whether this task's mutation was rejected.
func (r OpResult) Failed() bool { return r.Error != "" }

// bulkApply runs one mutation per selected task, fire-and-report: a
// rejection never stops the remaining tasks. When clearOnSuccess is set,
// each confirmed task is removed from the selection; failed tasks always
// stay selected.
func (c *Controller) bulkApply(ctx context.Context, clearOnSuccess bool, mutate func(sel selectedTask) error) []OpResult {
	selected := c.Selected()
	results := make([]OpResult, 0, len(selected))
	for _, sel := range selected {
		res := OpResult{TaskID: sel.task.ID, ProjectID: sel.project.ID}
		if err := mutate(sel); err != nil {
			res.Error = err.Error()
		} else if clearOnSuccess {
			c.selection.Remove(sel.task.ID)
		}
		results = append(results, res)
	}
	if err := c.Refresh(ctx); err != nil {
		c.logger.Warn("refresh after bulk operation failed", "error", err.Error())
	}
	return results
}

// BulkStatus moves every selected task to the given lane, appending the
// status-change comment per task. Confirmed tasks leave the selection.
func (c *Controller) BulkStatus(ctx context.Context, status, actor string) []OpResult {
	lane := NormalizeLane(status)
	now := c.now()
	return c.bulkApply(ctx, true, func(sel selectedTask) error {
		if !hasLane(sel.project, lane) {
			return &ValidationError{Reason: "lane not defined on project"}
		}
		next, _ := audit.Apply(&sel.task, audit.Patch{Status: &lane}, actor, now)
		return c.store.UpdateTask(ctx, sel.project.ID, next)
	})
}

// BulkAssign replaces the assignee set of every selected task. The
// selection is kept.
func (c *Controller) BulkAssign(ctx context.Context, assignees []models.Employee, actor string) []OpResult {
	now := c.now()
	return c.bulkApply(ctx, false, func(sel selectedTask) error {
		next, _ := audit.Apply(&sel.task, audit.Patch{Assignees: &assignees}, actor, now)
		return c.store.UpdateTask(ctx, sel.project.ID, next)
	})
}

// BulkDueDate sets (or clears, with nil) the due date of every selected
// task. The selection is kept.
func (c *Controller) BulkDueDate(ctx context.Context, due *time.Time, actor string) []OpResult {
	now := c.now()
	return c.bulkApply(ctx, false, func(sel selectedTask) error {
		next, _ := audit.Apply(&sel.task, audit.Patch{DueDate: &due}, actor, now)
		return c.store.UpdateTask(ctx, sel.project.ID, next)
	})
}

// BulkCopy duplicates every selected task into its own lane, comment trail
// included. The selection is kept on the originals.
func (c *Controller) BulkCopy(ctx context.Context) []OpResult {
	now := c.now()
	return c.bulkApply(ctx, false, func(sel selectedTask) error {
		_, err := c.store.CreateTask(ctx, sel.project.ID, audit.Copy(sel.task, now))
		return err
	})
}

// BulkDelete removes every selected task from its owning project. Only
// confirmed deletions leave the selection, so the selection is empty exactly
// when the whole batch succeeded.
func (c *Controller) BulkDelete(ctx context.Context) []OpResult {
	return c.bulkApply(ctx, true, func(sel selectedTask) error {
		return c.store.DeleteTask(ctx, sel.project.ID, sel.task.ID)
	})
}
