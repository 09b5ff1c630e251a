package board

import (
	"context"
	"time"

	"deskboard/internal/interval"
	"deskboard/internal/models"
)

// StartTimer opens a new timeline segment on a task. A task with a running
// segment refuses a second start.
func (c *Controller) StartTimer(ctx context.Context, taskID string) (models.Task, error) {
	t, owner, ok := c.findTask(taskID)
	if !ok {
		return models.Task{}, &ValidationError{Reason: "task not found"}
	}
	for _, seg := range t.Timeline {
		if seg.EndTime == nil {
			return models.Task{}, &ValidationError{Reason: "timer already running"}
		}
	}
	t.Timeline = append(t.Timeline, models.TimelineEntry{StartTime: c.now()})
	if err := c.store.UpdateTask(ctx, owner.ID, t); err != nil {
		return models.Task{}, err
	}
	return t, c.Refresh(ctx)
}

// StopTimer closes the running timeline segment on a task.
func (c *Controller) StopTimer(ctx context.Context, taskID string) (models.Task, error) {
	t, owner, ok := c.findTask(taskID)
	if !ok {
		return models.Task{}, &ValidationError{Reason: "task not found"}
	}
	for i := range t.Timeline {
		if t.Timeline[i].EndTime == nil {
			end := c.now()
			t.Timeline[i].EndTime = &end
			if err := c.store.UpdateTask(ctx, owner.ID, t); err != nil {
				return models.Task{}, err
			}
			return t, c.Refresh(ctx)
		}
	}
	return models.Task{}, &ValidationError{Reason: "no running timer"}
}

// TaskElapsed totals a task's timeline through the merge engine. A running
// segment counts only while its day is still the current day; a stale open
// segment from a previous day contributes nothing.
func (c *Controller) TaskElapsed(taskID string) (time.Duration, error) {
	t, _, ok := c.findTask(taskID)
	if !ok {
		return 0, &ValidationError{Reason: "task not found"}
	}
	return TimelineElapsed(t.Timeline, c.now()), nil
}

// TimelineElapsed is the shared elapsed computation for task timelines.
func TimelineElapsed(timeline []models.TimelineEntry, now time.Time) time.Duration {
	intervals := make([]interval.Interval, 0, len(timeline))
	eligible := false
	for _, seg := range timeline {
		intervals = append(intervals, interval.Interval{Start: seg.StartTime, End: seg.EndTime})
		if seg.EndTime == nil && interval.SameDay(seg.StartTime, now) {
			eligible = true
		}
	}
	return interval.Elapsed(intervals, now, eligible)
}
