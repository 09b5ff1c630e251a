package board

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"deskboard/internal/audit"
	"deskboard/internal/models"
	"deskboard/internal/order"
)

// CreateTask creates a task in the given project and lane, running the
// creation audit rules.
func (c *Controller) CreateTask(ctx context.Context, projectID, lane string, patch audit.Patch, actor string) (models.Task, error) {
	p, ok := c.projectByID(projectID)
	if !ok {
		return models.Task{}, &ValidationError{Reason: "project not found"}
	}
	lane = NormalizeLane(lane)
	if !hasLane(p, lane) {
		return models.Task{}, &ValidationError{Reason: fmt.Sprintf("lane %q not found", lane)}
	}
	if patch.Title == nil || strings.TrimSpace(*patch.Title) == "" {
		return models.Task{}, &ValidationError{Reason: "task title must not be empty"}
	}
	patch.Status = &lane
	task, _ := audit.Apply(nil, patch, actor, c.now())
	task.ProjectID = p.ID
	created, err := c.store.CreateTask(ctx, p.ID, task)
	if err != nil {
		return models.Task{}, err
	}
	return created, c.Refresh(ctx)
}

// UpdateTask applies a partial mutation to a task, generating the audit
// comments the diff warrants and submitting the full patched task.
func (c *Controller) UpdateTask(ctx context.Context, taskID string, patch audit.Patch, actor string) (models.Task, error) {
	prev, owner, ok := c.findTask(taskID)
	if !ok {
		return models.Task{}, &ValidationError{Reason: "task not found"}
	}
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return models.Task{}, &ValidationError{Reason: "task title must not be empty"}
	}
	if patch.Status != nil {
		lane := NormalizeLane(*patch.Status)
		if !hasLane(owner, lane) {
			return models.Task{}, &ValidationError{Reason: fmt.Sprintf("lane %q not found", lane)}
		}
		patch.Status = &lane
	}
	next, _ := audit.Apply(&prev, patch, actor, c.now())
	if err := c.store.UpdateTask(ctx, owner.ID, next); err != nil {
		return models.Task{}, err
	}
	return next, c.Refresh(ctx)
}

// DeleteTask removes a single task from its owning project.
func (c *Controller) DeleteTask(ctx context.Context, taskID string) error {
	_, owner, ok := c.findTask(taskID)
	if !ok {
		return &ValidationError{Reason: "task not found"}
	}
	if err := c.store.DeleteTask(ctx, owner.ID, taskID); err != nil {
		return err
	}
	c.selection.Remove(taskID)
	return c.Refresh(ctx)
}

// MoveTask applies a drag: the task takes the slot currently held by the
// target within the lane's arranged order. The new order is persisted
// locally right away (optimistic), then translated into one reorder
// instruction per owning project, each restricted to the task IDs that
// project owns within the lane.
func (c *Controller) MoveTask(ctx context.Context, lane, taskID, targetID string) error {
	lane = NormalizeLane(lane)
	next, moved := order.Move(c.state.TaskOrder, lane, taskID, targetID)
	if !moved {
		return nil
	}
	c.state.TaskOrder = next
	if err := c.orders.Save(c.state); err != nil {
		c.logger.Warn("arrangement save failed", slog.String("error", err.Error()))
	}

	ownerOf := make(map[string]string)
	var authoritative []string
	for _, p := range c.scopedProjects() {
		for _, t := range p.StatusTask[lane] {
			ownerOf[t.ID] = p.ID
			authoritative = append(authoritative, t.ID)
		}
	}
	rendered := order.Render(next[lane], authoritative)
	for projectID, ids := range order.SplitByOwner(rendered, ownerOf) {
		if err := c.store.ReorderLane(ctx, projectID, lane, ids); err != nil {
			return fmt.Errorf("reorder lane %q in project %s: %w", lane, projectID, err)
		}
	}
	return c.Refresh(ctx)
}
