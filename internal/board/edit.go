package board

import (
	"context"
	"reflect"
	"time"

	"deskboard/internal/audit"
	"deskboard/internal/models"
)

// EditSession is a task-detail working copy decoupled from the
// authoritative task. The operator edits Draft freely; closing the session
// diffs Draft against the snapshot taken at open time and submits one
// atomic patch, with audit comments derived from the diff.
type EditSession struct {
	snapshot models.Task
	Draft    models.Task
}

// OpenEdit starts an edit session for the given task.
func (c *Controller) OpenEdit(taskID string) (*EditSession, error) {
	t, _, ok := c.findTask(taskID)
	if !ok {
		return nil, &ValidationError{Reason: "task not found"}
	}
	return &EditSession{snapshot: t, Draft: t}, nil
}

// CloseEdit diffs the draft against the open-time snapshot and submits the
// changed fields as a single patch. A draft with no changes submits
// nothing. Discarding a session is simply not calling CloseEdit.
func (c *Controller) CloseEdit(ctx context.Context, s *EditSession, actor string) (models.Task, error) {
	patch := diffEdit(s.snapshot, s.Draft)
	if isEmptyPatch(patch) {
		return s.snapshot, nil
	}
	return c.UpdateTask(ctx, s.snapshot.ID, patch, actor)
}

func isEmptyPatch(p audit.Patch) bool {
	return p.Title == nil && p.Status == nil && p.Priority == nil &&
		p.DueDate == nil && p.Assignees == nil && p.Description == nil &&
		p.Comments == nil
}

// diffEdit builds the minimal patch between snapshot and draft.
func diffEdit(snapshot, draft models.Task) audit.Patch {
	var patch audit.Patch
	if draft.Title != snapshot.Title {
		title := draft.Title
		patch.Title = &title
	}
	if draft.Status != snapshot.Status {
		status := draft.Status
		patch.Status = &status
	}
	if draft.Priority != snapshot.Priority {
		priority := draft.Priority
		patch.Priority = &priority
	}
	if !samePointerTime(draft.DueDate, snapshot.DueDate) {
		due := draft.DueDate
		patch.DueDate = &due
	}
	if !reflect.DeepEqual(draft.Assignees, snapshot.Assignees) {
		assignees := draft.Assignees
		patch.Assignees = &assignees
	}
	if !reflect.DeepEqual(draft.Description, snapshot.Description) {
		description := draft.Description
		patch.Description = &description
	}
	return patch
}

func samePointerTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
