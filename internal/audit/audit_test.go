package audit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deskboard/internal/models"
)

var now = time.Date(2024, 5, 20, 12, 0, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }

func texts(comments []models.Comment) []string {
	out := make([]string, 0, len(comments))
	for _, c := range comments {
		out = append(out, c.Text)
	}
	return out
}

func TestApply_Creation(t *testing.T) {
	task, generated := Apply(nil, Patch{
		Title:  strPtr("Write spec"),
		Status: strPtr("todo"),
	}, "alice", now)

	require.Equal(t, []string{
		"alice created this task",
		"alice set status to todo",
	}, texts(generated))
	assert.Equal(t, "Write spec", task.Title)
	assert.Equal(t, "todo", task.Status)
	assert.Equal(t, texts(generated), texts(task.Comments))
	assert.Equal(t, now, task.CreatedAt)
}

func TestApply_CreationWithFullPatchEmitsOnlyCreationComments(t *testing.T) {
	due := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	duePtr := &due
	priority := models.PriorityHigh
	assignees := []models.Employee{{ID: "e1", FullName: "Bob Ross"}}

	task, generated := Apply(nil, Patch{
		Title:     strPtr("Write spec"),
		Status:    strPtr("todo"),
		Priority:  &priority,
		DueDate:   &duePtr,
		Assignees: &assignees,
	}, "alice", now)

	// The fields land, but only the two creation comments are written.
	require.Equal(t, []string{
		"alice created this task",
		"alice set status to todo",
	}, texts(generated))
	assert.Equal(t, models.PriorityHigh, task.Priority)
	assert.Equal(t, assignees, task.Assignees)
	require.NotNil(t, task.DueDate)
	assert.True(t, task.DueDate.Equal(due))
}

func TestApply_StatusChange(t *testing.T) {
	prev := models.Task{ID: "t1", Title: "Write spec", Status: "todo"}

	task, generated := Apply(&prev, Patch{Status: strPtr("doing")}, "alice", now)

	require.Equal(t, []string{"alice changed status from todo to doing"}, texts(generated))
	assert.Equal(t, "doing", task.Status)
}

func TestApply_StatusChangeDeduplicated(t *testing.T) {
	prev := models.Task{ID: "t1", Status: "todo"}

	first, _ := Apply(&prev, Patch{Status: strPtr("doing")}, "alice", now)
	back, _ := Apply(&first, Patch{Status: strPtr("todo")}, "alice", now)

	// The same transition again: the identical comment already exists, so
	// nothing new is appended.
	again, generated := Apply(&back, Patch{Status: strPtr("doing")}, "alice", now)
	assert.Empty(t, generated)
	assert.Equal(t, "doing", again.Status)
	assert.Len(t, again.Comments, 2)
}

func TestApply_SameStatusIsSilent(t *testing.T) {
	prev := models.Task{ID: "t1", Status: "todo"}
	_, generated := Apply(&prev, Patch{Status: strPtr("todo")}, "alice", now)
	assert.Empty(t, generated)
}

func TestApply_AssigneesOrderIndependent(t *testing.T) {
	bob := models.Employee{ID: "e1", FullName: "Bob Ross"}
	eve := models.Employee{ID: "e2", FullName: "Eve Adams"}
	prev := models.Task{ID: "t1", Status: "todo", Assignees: []models.Employee{bob, eve}}

	// Same set in a different order: no comment.
	_, generated := Apply(&prev, Patch{Assignees: &[]models.Employee{eve, bob}}, "alice", now)
	assert.Empty(t, generated)

	// A real change lists the display names.
	_, generated = Apply(&prev, Patch{Assignees: &[]models.Employee{bob}}, "alice", now)
	require.Equal(t, []string{"alice assigned to: Bob Ross"}, texts(generated))

	// Clearing the set is silent.
	_, generated = Apply(&prev, Patch{Assignees: &[]models.Employee{}}, "alice", now)
	assert.Empty(t, generated)
}

func TestApply_DueDate(t *testing.T) {
	prev := models.Task{ID: "t1", Status: "todo"}
	due := time.Date(2024, 6, 1, 10, 30, 0, 0, time.UTC)

	duePtr := &due
	task, generated := Apply(&prev, Patch{DueDate: &duePtr}, "alice", now)
	require.Equal(t, []string{"alice set the due date to 6/1/2024"}, texts(generated))
	require.NotNil(t, task.DueDate)

	// Same day, different time of day: silent.
	later := time.Date(2024, 6, 1, 23, 0, 0, 0, time.UTC)
	laterPtr := &later
	_, generated = Apply(&task, Patch{DueDate: &laterPtr}, "alice", now)
	assert.Empty(t, generated)

	// Clearing reads as "none".
	var cleared *time.Time
	task, generated = Apply(&task, Patch{DueDate: &cleared}, "alice", now)
	require.Equal(t, []string{"alice set the due date to none"}, texts(generated))
	assert.Nil(t, task.DueDate)
}

func TestApply_TitlePriorityDescription(t *testing.T) {
	prev := models.Task{ID: "t1", Title: "Old", Status: "todo", Priority: models.PriorityLow}

	priority := models.PriorityHigh
	blocks := []models.DescriptionBlock{{StoreLink: "https://example.com", Notes: []string{"check stock"}}}
	task, generated := Apply(&prev, Patch{
		Title:       strPtr("New"),
		Priority:    &priority,
		Description: &blocks,
	}, "alice", now)

	require.Equal(t, []string{
		`alice updated the title to "New"`,
		"alice set priority to high",
		"alice updated the description",
	}, texts(generated))

	// An identical description again is silent.
	_, generated = Apply(&task, Patch{Description: &blocks}, "alice", now)
	assert.Empty(t, generated)
}

func TestApply_MultipleRulesAppend(t *testing.T) {
	prev := models.Task{
		ID:       "t1",
		Title:    "Write spec",
		Status:   "todo",
		Comments: []models.Comment{{Text: "alice created this task", CreatedBy: "alice", CreatedAt: now}},
	}

	task, generated := Apply(&prev, Patch{Status: strPtr("doing"), Title: strPtr("Write the spec")}, "alice", now)
	assert.Len(t, generated, 2)
	// Prior comments are never replaced.
	assert.Equal(t, "alice created this task", task.Comments[0].Text)
	assert.Len(t, task.Comments, 3)
}

func TestCopy_SeedsHistoryWithoutAudit(t *testing.T) {
	due := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	src := models.Task{
		ID:       "t1",
		Title:    "Write spec",
		Status:   "todo",
		Priority: models.PriorityHigh,
		DueDate:  &due,
		Comments: []models.Comment{{Text: "alice created this task"}},
		Timeline: []models.TimelineEntry{{StartTime: now}},
	}

	dup := Copy(src, now)
	assert.Empty(t, dup.ID)
	assert.Equal(t, "Write spec (Copy)", dup.Title)
	assert.Equal(t, "todo", dup.Status)
	assert.Equal(t, models.PriorityHigh, dup.Priority)
	require.Len(t, dup.Comments, 1)
	assert.Equal(t, "alice created this task", dup.Comments[0].Text)
	assert.Empty(t, dup.Timeline, "timer history stays with the original")
}
