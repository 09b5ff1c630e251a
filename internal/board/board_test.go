package board

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deskboard/internal/audit"
	"deskboard/internal/models"
	"deskboard/internal/order"
)

var testNow = time.Date(2024, 5, 20, 12, 0, 0, 0, time.UTC)

// fakeStore is an in-memory authoritative store. Individual task updates
// and deletes can be rigged to fail so partial-batch behavior is testable.
type fakeStore struct {
	order      []string
	projects   map[string]*models.Project
	nextID     int
	failUpdate map[string]error
	failDelete map[string]error
	reorders   []reorderCall
}

type reorderCall struct {
	projectID string
	lane      string
	ids       []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		projects:   map[string]*models.Project{},
		failUpdate: map[string]error{},
		failDelete: map[string]error{},
	}
}

func (f *fakeStore) id(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s%d", prefix, f.nextID)
}

func (f *fakeStore) ListProjects(ctx context.Context) ([]models.Project, error) {
	out := make([]models.Project, 0, len(f.order))
	for _, id := range f.order {
		p := *f.projects[id]
		st := make(map[string][]models.Task, len(p.StatusTask))
		for lane, tasks := range p.StatusTask {
			st[lane] = append([]models.Task(nil), tasks...)
		}
		p.StatusTask = st
		p.Lanes = append([]string(nil), f.projects[id].Lanes...)
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeStore) CreateProject(ctx context.Context, name, createdBy string) (models.Project, error) {
	p := &models.Project{
		ID:         f.id("p"),
		Name:       name,
		CreatedBy:  createdBy,
		CreatedAt:  testNow,
		StatusTask: map[string][]models.Task{},
	}
	f.projects[p.ID] = p
	f.order = append(f.order, p.ID)
	return *p, nil
}

func (f *fakeStore) DeleteProject(ctx context.Context, id string) error {
	if _, ok := f.projects[id]; !ok {
		return fmt.Errorf("project not found")
	}
	delete(f.projects, id)
	for i, pid := range f.order {
		if pid == id {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeStore) CreateTask(ctx context.Context, projectID string, t models.Task) (models.Task, error) {
	p, ok := f.projects[projectID]
	if !ok {
		return models.Task{}, fmt.Errorf("project not found")
	}
	if t.ID == "" {
		t.ID = f.id("t")
	}
	t.ProjectID = projectID
	p.StatusTask[t.Status] = append(p.StatusTask[t.Status], t)
	return t, nil
}

func (f *fakeStore) UpdateTask(ctx context.Context, projectID string, t models.Task) error {
	if err := f.failUpdate[t.ID]; err != nil {
		return err
	}
	p, ok := f.projects[projectID]
	if !ok {
		return fmt.Errorf("project not found")
	}
	for lane, tasks := range p.StatusTask {
		for i, existing := range tasks {
			if existing.ID == t.ID {
				p.StatusTask[lane] = append(tasks[:i], tasks[i+1:]...)
				p.StatusTask[t.Status] = append(p.StatusTask[t.Status], t)
				return nil
			}
		}
	}
	return fmt.Errorf("task not found")
}

func (f *fakeStore) DeleteTask(ctx context.Context, projectID, taskID string) error {
	if err := f.failDelete[taskID]; err != nil {
		return err
	}
	p, ok := f.projects[projectID]
	if !ok {
		return fmt.Errorf("project not found")
	}
	for lane, tasks := range p.StatusTask {
		for i, existing := range tasks {
			if existing.ID == taskID {
				p.StatusTask[lane] = append(tasks[:i], tasks[i+1:]...)
				return nil
			}
		}
	}
	return fmt.Errorf("task not found")
}

func (f *fakeStore) ReorderLane(ctx context.Context, projectID, lane string, ids []string) error {
	f.reorders = append(f.reorders, reorderCall{projectID: projectID, lane: lane, ids: append([]string(nil), ids...)})
	p, ok := f.projects[projectID]
	if !ok {
		return fmt.Errorf("project not found")
	}
	byID := map[string]models.Task{}
	for _, t := range p.StatusTask[lane] {
		byID[t.ID] = t
	}
	reordered := make([]models.Task, 0, len(byID))
	for _, id := range ids {
		if t, ok := byID[id]; ok {
			reordered = append(reordered, t)
			delete(byID, id)
		}
	}
	for _, t := range p.StatusTask[lane] {
		if _, left := byID[t.ID]; left {
			reordered = append(reordered, t)
		}
	}
	p.StatusTask[lane] = reordered
	return nil
}

func (f *fakeStore) AddLane(ctx context.Context, projectID, lane string) error {
	p, ok := f.projects[projectID]
	if !ok {
		return fmt.Errorf("project not found")
	}
	p.Lanes = append(p.Lanes, lane)
	p.StatusTask[lane] = []models.Task{}
	return nil
}

func (f *fakeStore) RenameLane(ctx context.Context, projectID, oldName, newName string) error {
	p, ok := f.projects[projectID]
	if !ok {
		return fmt.Errorf("project not found")
	}
	for i, lane := range p.Lanes {
		if lane == oldName {
			p.Lanes[i] = newName
		}
	}
	tasks := p.StatusTask[oldName]
	delete(p.StatusTask, oldName)
	for i := range tasks {
		tasks[i].Status = newName
	}
	p.StatusTask[newName] = append(p.StatusTask[newName], tasks...)
	return nil
}

func (f *fakeStore) DeleteLane(ctx context.Context, projectID, lane string) error {
	p, ok := f.projects[projectID]
	if !ok {
		return fmt.Errorf("project not found")
	}
	for i, l := range p.Lanes {
		if l == lane {
			p.Lanes = append(p.Lanes[:i], p.Lanes[i+1:]...)
			delete(p.StatusTask, lane)
			return nil
		}
	}
	return fmt.Errorf("lane not found")
}

func testController(t *testing.T) (*Controller, *fakeStore) {
	t.Helper()
	store := newFakeStore()
	ctrl, err := New(store, order.NewMemoryStore(), nil, WithClock(func() time.Time { return testNow }))
	require.NoError(t, err)
	require.NoError(t, ctrl.Refresh(context.Background()))
	return ctrl, store
}

func seedProject(t *testing.T, ctrl *Controller, name string, lanes ...string) models.Project {
	t.Helper()
	ctx := context.Background()
	p, err := ctrl.CreateProject(ctx, name, "alice")
	require.NoError(t, err)
	require.NoError(t, ctrl.SelectProject(p.ID))
	for _, lane := range lanes {
		require.NoError(t, ctrl.AddLane(ctx, lane))
	}
	p, ok := ctrl.ActiveProject()
	require.True(t, ok)
	return p
}

func seedTask(t *testing.T, ctrl *Controller, projectID, lane, title string) models.Task {
	t.Helper()
	task, err := ctrl.CreateTask(context.Background(), projectID, lane, audit.Patch{Title: &title}, "alice")
	require.NoError(t, err)
	return task
}

func commentTexts(task models.Task) []string {
	out := make([]string, 0, len(task.Comments))
	for _, c := range task.Comments {
		out = append(out, c.Text)
	}
	return out
}

func TestBoardScenario(t *testing.T) {
	ctrl, _ := testController(t)
	ctx := context.Background()

	p := seedProject(t, ctrl, "Launch", "todo", "doing", "done")
	assert.Equal(t, []string{"todo", "doing", "done"}, ctrl.Lanes())

	task := seedTask(t, ctrl, p.ID, "todo", "Write spec")
	require.Equal(t, []string{
		"alice created this task",
		"alice set status to todo",
	}, commentTexts(task))

	status := "doing"
	task, err := ctrl.UpdateTask(ctx, task.ID, audit.Patch{Status: &status}, "alice")
	require.NoError(t, err)
	assert.Contains(t, commentTexts(task), "alice changed status from todo to doing")

	doing := ctrl.LaneTasks("doing")
	require.Len(t, doing, 1)
	assert.Equal(t, task.ID, doing[0].ID)
	assert.Empty(t, ctrl.LaneTasks("todo"))

	due := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	duePtr := &due
	task, err = ctrl.UpdateTask(ctx, task.ID, audit.Patch{DueDate: &duePtr}, "alice")
	require.NoError(t, err)
	assert.Contains(t, commentTexts(task), "alice set the due date to 6/1/2024")
}

func TestMoveTask_ReordersAndPersists(t *testing.T) {
	ctrl, store := testController(t)

	p := seedProject(t, ctrl, "Launch", "todo")
	a := seedTask(t, ctrl, p.ID, "todo", "A")
	b := seedTask(t, ctrl, p.ID, "todo", "B")
	c := seedTask(t, ctrl, p.ID, "todo", "C")

	require.NoError(t, ctrl.MoveTask(context.Background(), "todo", c.ID, a.ID))

	tasks := ctrl.LaneTasks("todo")
	require.Len(t, tasks, 3)
	assert.Equal(t, []string{c.ID, a.ID, b.ID}, []string{tasks[0].ID, tasks[1].ID, tasks[2].ID})

	require.Len(t, store.reorders, 1)
	assert.Equal(t, p.ID, store.reorders[0].projectID)
	assert.Equal(t, "todo", store.reorders[0].lane)
	assert.Equal(t, []string{c.ID, a.ID, b.ID}, store.reorders[0].ids)
}

func TestMoveTask_UnknownIDIsNoOp(t *testing.T) {
	ctrl, store := testController(t)

	p := seedProject(t, ctrl, "Launch", "todo")
	a := seedTask(t, ctrl, p.ID, "todo", "A")

	require.NoError(t, ctrl.MoveTask(context.Background(), "todo", "missing", a.ID))
	assert.Empty(t, store.reorders)
}

func TestMoveTask_SpansProjectsWithoutFilter(t *testing.T) {
	ctrl, store := testController(t)
	ctx := context.Background()

	p1 := seedProject(t, ctrl, "One", "todo")
	a := seedTask(t, ctrl, p1.ID, "todo", "A")
	b := seedTask(t, ctrl, p1.ID, "todo", "B")

	p2 := seedProject(t, ctrl, "Two", "todo")
	x := seedTask(t, ctrl, p2.ID, "todo", "X")

	// No project filter: the lane shows tasks of both projects.
	ctrl.ClearProject()
	require.NoError(t, ctrl.Refresh(ctx))

	require.NoError(t, ctrl.MoveTask(ctx, "todo", x.ID, a.ID))

	// Each owning project gets its own instruction restricted to its tasks.
	byProject := map[string][]string{}
	for _, call := range store.reorders {
		byProject[call.projectID] = call.ids
	}
	assert.Equal(t, []string{a.ID, b.ID}, byProject[p1.ID])
	assert.Equal(t, []string{x.ID}, byProject[p2.ID])
}

func TestBulkStatus_PartialFailureKeepsFailedSelected(t *testing.T) {
	ctrl, store := testController(t)

	p := seedProject(t, ctrl, "Launch", "todo", "doing")
	t1 := seedTask(t, ctrl, p.ID, "todo", "one")
	t2 := seedTask(t, ctrl, p.ID, "todo", "two")
	t3 := seedTask(t, ctrl, p.ID, "todo", "three")

	store.failUpdate[t2.ID] = fmt.Errorf("stale reference")

	ctrl.ToggleSelect("todo", t1.ID)
	ctrl.ToggleSelect("todo", t2.ID)
	ctrl.ToggleSelect("todo", t3.ID)

	results := ctrl.BulkStatus(context.Background(), "doing", "alice")
	require.Len(t, results, 3)

	failed := 0
	for _, res := range results {
		if res.Failed() {
			failed++
			assert.Equal(t, t2.ID, res.TaskID)
			assert.Contains(t, res.Error, "stale reference")
		}
	}
	assert.Equal(t, 1, failed)

	// Confirmed tasks left the selection; the rejected one stays.
	assert.Equal(t, []string{t2.ID}, ctrl.selection.IDs())
	assert.Len(t, ctrl.LaneTasks("doing"), 2)
	assert.Len(t, ctrl.LaneTasks("todo"), 1)
}

func TestBulkAssign_KeepsSelection(t *testing.T) {
	ctrl, _ := testController(t)

	p := seedProject(t, ctrl, "Launch", "todo")
	t1 := seedTask(t, ctrl, p.ID, "todo", "one")
	ctrl.ToggleSelect("todo", t1.ID)

	bob := models.Employee{ID: "e1", FullName: "Bob Ross"}
	results := ctrl.BulkAssign(context.Background(), []models.Employee{bob}, "alice")
	require.Len(t, results, 1)
	assert.False(t, results[0].Failed())

	assert.Equal(t, []string{t1.ID}, ctrl.selection.IDs())
	updated := ctrl.LaneTasks("todo")[0]
	assert.Contains(t, commentTexts(updated), "alice assigned to: Bob Ross")
}

func TestBulkCopy_SuffixesTitleAndKeepsComments(t *testing.T) {
	ctrl, _ := testController(t)

	p := seedProject(t, ctrl, "Launch", "todo")
	t1 := seedTask(t, ctrl, p.ID, "todo", "one")
	ctrl.ToggleSelect("todo", t1.ID)

	results := ctrl.BulkCopy(context.Background())
	require.Len(t, results, 1)
	require.False(t, results[0].Failed())

	tasks := ctrl.LaneTasks("todo")
	require.Len(t, tasks, 2)
	var dup models.Task
	for _, task := range tasks {
		if task.ID != t1.ID {
			dup = task
		}
	}
	assert.Equal(t, "one (Copy)", dup.Title)
	// The copy is seeded with the original's history, not fresh audit output.
	assert.Equal(t, commentTexts(tasks[0]), commentTexts(dup))
}

func TestBulkDelete_ClearsSelectionOnlyOnSuccess(t *testing.T) {
	ctrl, store := testController(t)

	p := seedProject(t, ctrl, "Launch", "todo")
	t1 := seedTask(t, ctrl, p.ID, "todo", "one")
	t2 := seedTask(t, ctrl, p.ID, "todo", "two")
	store.failDelete[t2.ID] = fmt.Errorf("rejected")

	ctrl.ToggleSelect("todo", t1.ID)
	ctrl.ToggleSelect("todo", t2.ID)

	results := ctrl.BulkDelete(context.Background())
	require.Len(t, results, 2)
	assert.Equal(t, []string{t2.ID}, ctrl.selection.IDs())
	require.Len(t, ctrl.LaneTasks("todo"), 1)
}

func TestRenameLane_CascadesAcrossProjects(t *testing.T) {
	ctrl, _ := testController(t)
	ctx := context.Background()

	p1 := seedProject(t, ctrl, "One", "review")
	seedTask(t, ctrl, p1.ID, "review", "A")
	p2 := seedProject(t, ctrl, "Two", "review")
	seedTask(t, ctrl, p2.ID, "review", "B")

	ctrl.ClearProject()
	require.NoError(t, ctrl.Refresh(ctx))
	require.NoError(t, ctrl.RenameLane(ctx, "review", "QA"))

	assert.Contains(t, ctrl.Lanes(), "qa")
	assert.NotContains(t, ctrl.Lanes(), "review")
	assert.Len(t, ctrl.LaneTasks("qa"), 2)
}

func TestDeleteLane_BlockedWhileTasksRemain(t *testing.T) {
	ctrl, _ := testController(t)
	ctx := context.Background()

	p := seedProject(t, ctrl, "Launch", "extra")
	task := seedTask(t, ctrl, p.ID, "extra", "A")

	err := ctrl.DeleteLane(ctx, "extra")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	require.NoError(t, ctrl.DeleteTask(ctx, task.ID))
	require.NoError(t, ctrl.DeleteLane(ctx, "extra"))
	assert.NotContains(t, ctrl.Lanes(), "extra")
}

func TestAddLane_RejectsDuplicateAfterNormalization(t *testing.T) {
	ctrl, _ := testController(t)
	seedProject(t, ctrl, "Launch", "review")

	err := ctrl.AddLane(context.Background(), "  Review ")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestClearProject_DropsDerivedState(t *testing.T) {
	ctrl, _ := testController(t)

	p := seedProject(t, ctrl, "Launch", "todo")
	t1 := seedTask(t, ctrl, p.ID, "todo", "one")
	ctrl.ToggleSelect("todo", t1.ID)

	ctrl.ClearProject()
	_, active := ctrl.ActiveProject()
	assert.False(t, active)
	assert.Empty(t, ctrl.selection.IDs())
}

func TestEditSession_DiffsOnClose(t *testing.T) {
	ctrl, _ := testController(t)
	ctx := context.Background()

	p := seedProject(t, ctrl, "Launch", "todo")
	task := seedTask(t, ctrl, p.ID, "todo", "Draft me")

	session, err := ctrl.OpenEdit(task.ID)
	require.NoError(t, err)
	session.Draft.Title = "Drafted"
	session.Draft.Priority = models.PriorityHigh

	updated, err := ctrl.CloseEdit(ctx, session, "alice")
	require.NoError(t, err)
	assert.Contains(t, commentTexts(updated), `alice updated the title to "Drafted"`)
	assert.Contains(t, commentTexts(updated), "alice set priority to high")
}

func TestEditSession_NoChangesSubmitsNothing(t *testing.T) {
	ctrl, _ := testController(t)

	p := seedProject(t, ctrl, "Launch", "todo")
	task := seedTask(t, ctrl, p.ID, "todo", "Stable")

	session, err := ctrl.OpenEdit(task.ID)
	require.NoError(t, err)

	closed, err := ctrl.CloseEdit(context.Background(), session, "alice")
	require.NoError(t, err)
	assert.Equal(t, commentTexts(task), commentTexts(closed))
}

func TestTimer_OneRunningSegment(t *testing.T) {
	ctrl, _ := testController(t)
	ctx := context.Background()

	p := seedProject(t, ctrl, "Launch", "todo")
	task := seedTask(t, ctrl, p.ID, "todo", "Timed")

	started, err := ctrl.StartTimer(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, started.Timeline, 1)

	_, err = ctrl.StartTimer(ctx, task.ID)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	stopped, err := ctrl.StopTimer(ctx, task.ID)
	require.NoError(t, err)
	require.NotNil(t, stopped.Timeline[0].EndTime)
}
