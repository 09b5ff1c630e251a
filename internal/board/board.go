// Package board orchestrates the project/task view: it owns the in-memory
// mirror of the authoritative store, the operator's arrangement cache, the
// selection set and the lane lifecycle, and dispatches every task mutation
// through the audit engine.
package board

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"deskboard/internal/models"
	"deskboard/internal/order"
)

// Store is the authoritative backend the controller mutates. Writes are
// serialized server-side; the controller holds no concurrency tokens and
// relies on refresh to converge after a rejected write.
type Store interface {
	ListProjects(ctx context.Context) ([]models.Project, error)
	CreateProject(ctx context.Context, name, createdBy string) (models.Project, error)
	DeleteProject(ctx context.Context, id string) error

	CreateTask(ctx context.Context, projectID string, t models.Task) (models.Task, error)
	UpdateTask(ctx context.Context, projectID string, t models.Task) error
	DeleteTask(ctx context.Context, projectID, taskID string) error
	ReorderLane(ctx context.Context, projectID, lane string, ids []string) error

	AddLane(ctx context.Context, projectID, lane string) error
	RenameLane(ctx context.Context, projectID, oldName, newName string) error
	DeleteLane(ctx context.Context, projectID, lane string) error
}

// ValidationError rejects an operation before any mutation is attempted.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// Controller coordinates the board state for one operator session.
type Controller struct {
	store  Store
	orders order.Store
	logger *slog.Logger
	now    func() time.Time

	projects  []models.Project
	active    string // active project ID, empty when none selected
	selection Selection
	state     order.State
}

// Option tweaks controller construction.
type Option func(*Controller)

// WithClock overrides the controller's clock.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// New builds a controller and loads the persisted arrangement state.
func New(store Store, orders order.Store, logger *slog.Logger, opts ...Option) (*Controller, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Controller{
		store:     store,
		orders:    orders,
		logger:    logger,
		now:       time.Now,
		selection: Selection{},
	}
	for _, opt := range opts {
		opt(c)
	}
	st, err := orders.Load()
	if err != nil {
		return nil, fmt.Errorf("load arrangement: %w", err)
	}
	c.state = st
	return c, nil
}

// Refresh pulls the authoritative project set and folds its membership into
// the cached arrangement. Call after startup and after any mutation batch.
func (c *Controller) Refresh(ctx context.Context) error {
	projects, err := c.store.ListProjects(ctx)
	if err != nil {
		return fmt.Errorf("refresh projects: %w", err)
	}
	c.projects = projects
	if c.active != "" {
		if _, ok := c.projectByID(c.active); !ok {
			c.ClearProject()
		}
	}
	c.state.TaskOrder = order.Reconcile(c.state.TaskOrder, c.membershipByLane())
	c.state.ProjectOrder = reconcileProjects(c.state.ProjectOrder, projects)
	if err := c.orders.Save(c.state); err != nil {
		// Arrangement is advisory; a failed save must not take the board down.
		c.logger.Warn("arrangement save failed", slog.String("error", err.Error()))
	}
	return nil
}

// Projects returns the authoritative projects in the operator's arranged
// order, unknown IDs appended last.
func (c *Controller) Projects() []models.Project {
	byID := make(map[string]models.Project, len(c.projects))
	authoritative := make([]string, 0, len(c.projects))
	for _, p := range c.projects {
		byID[p.ID] = p
		authoritative = append(authoritative, p.ID)
	}
	out := make([]models.Project, 0, len(c.projects))
	for _, id := range order.Render(c.state.ProjectOrder, authoritative) {
		out = append(out, byID[id])
	}
	return out
}

// SelectProject makes the given project the active one. Selection and lane
// state derived from a previously active project are dropped.
func (c *Controller) SelectProject(projectID string) error {
	if _, ok := c.projectByID(projectID); !ok {
		return &ValidationError{Reason: "project not found"}
	}
	c.active = projectID
	c.selection = Selection{}
	return nil
}

// ClearProject deselects the active project and resets all derived state so
// no stale lane names survive the switch.
func (c *Controller) ClearProject() {
	c.active = ""
	c.selection = Selection{}
}

// ActiveProject returns the selected project, if any.
func (c *Controller) ActiveProject() (models.Project, bool) {
	if c.active == "" {
		return models.Project{}, false
	}
	return c.projectByID(c.active)
}

// Lanes returns the lane names in scope: the active project's lanes, or the
// union across all projects (first-seen order) when no project is active.
func (c *Controller) Lanes() []string {
	if p, ok := c.ActiveProject(); ok {
		return append([]string(nil), p.Lanes...)
	}
	var out []string
	seen := make(map[string]struct{})
	for _, p := range c.projects {
		for _, lane := range p.Lanes {
			if _, ok := seen[lane]; ok {
				continue
			}
			out = append(out, lane)
			seen[lane] = struct{}{}
		}
	}
	return out
}

// LaneTasks returns the lane's tasks in the operator's arranged order,
// restricted to the active project when one is selected. Stale cached IDs
// render nothing and fall away on the next reconcile.
func (c *Controller) LaneTasks(lane string) []models.Task {
	byID := make(map[string]models.Task)
	var authoritative []string
	for _, p := range c.scopedProjects() {
		for _, t := range p.StatusTask[lane] {
			byID[t.ID] = t
			authoritative = append(authoritative, t.ID)
		}
	}
	ids := order.Render(c.state.TaskOrder[lane], authoritative)
	out := make([]models.Task, 0, len(ids))
	for _, id := range ids {
		out = append(out, byID[id])
	}
	return out
}

// CreateProject creates a project and records the actor as its creator.
func (c *Controller) CreateProject(ctx context.Context, name, actor string) (models.Project, error) {
	if strings.TrimSpace(name) == "" {
		return models.Project{}, &ValidationError{Reason: "project name must not be empty"}
	}
	p, err := c.store.CreateProject(ctx, strings.TrimSpace(name), actor)
	if err != nil {
		return models.Project{}, err
	}
	return p, c.Refresh(ctx)
}

// DeleteProject removes a project outright.
func (c *Controller) DeleteProject(ctx context.Context, projectID string) error {
	if err := c.store.DeleteProject(ctx, projectID); err != nil {
		return err
	}
	if c.active == projectID {
		c.ClearProject()
	}
	return c.Refresh(ctx)
}

// NormalizeLane is the canonical lane-name form: trimmed and lowercased.
func NormalizeLane(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// AddLane appends a new empty lane to the active project. Duplicate or
// empty names are rejected before the store is touched.
func (c *Controller) AddLane(ctx context.Context, name string) error {
	p, ok := c.ActiveProject()
	if !ok {
		return &ValidationError{Reason: "no active project"}
	}
	lane := NormalizeLane(name)
	if lane == "" {
		return &ValidationError{Reason: "lane name must not be empty"}
	}
	for _, existing := range p.Lanes {
		if existing == lane {
			return &ValidationError{Reason: fmt.Sprintf("lane %q already exists", lane)}
		}
	}
	if err := c.store.AddLane(ctx, p.ID, lane); err != nil {
		return err
	}
	return c.Refresh(ctx)
}

// RenameLane renames a lane everywhere: every project currently holding the
// old name migrates its tasks, and the arrangement cache key follows. This
// is a cross-project batch, not scoped to the active project.
func (c *Controller) RenameLane(ctx context.Context, oldName, newName string) error {
	from := NormalizeLane(oldName)
	to := NormalizeLane(newName)
	if to == "" {
		return &ValidationError{Reason: "lane name must not be empty"}
	}
	if from == to {
		return nil
	}
	renamed := false
	for _, p := range c.projects {
		if !hasLane(p, from) {
			continue
		}
		if err := c.store.RenameLane(ctx, p.ID, from, to); err != nil {
			return fmt.Errorf("rename lane in project %s: %w", p.ID, err)
		}
		renamed = true
	}
	if !renamed {
		return &ValidationError{Reason: fmt.Sprintf("lane %q not found", from)}
	}
	if ids, ok := c.state.TaskOrder[from]; ok {
		c.state.TaskOrder[to] = append(c.state.TaskOrder[to], ids...)
		delete(c.state.TaskOrder, from)
	}
	return c.Refresh(ctx)
}

// DeleteLane removes a lane from the active project. A lane still holding
// tasks blocks deletion; the operator has to move or delete them first.
func (c *Controller) DeleteLane(ctx context.Context, name string) error {
	p, ok := c.ActiveProject()
	if !ok {
		return &ValidationError{Reason: "no active project"}
	}
	lane := NormalizeLane(name)
	if !hasLane(p, lane) {
		return &ValidationError{Reason: fmt.Sprintf("lane %q not found", lane)}
	}
	if len(p.StatusTask[lane]) > 0 {
		return &ValidationError{Reason: fmt.Sprintf("lane %q still has tasks", lane)}
	}
	if err := c.store.DeleteLane(ctx, p.ID, lane); err != nil {
		return err
	}
	return c.Refresh(ctx)
}

// membershipByLane flattens authoritative lane membership across the whole
// project set, in discovery order.
func (c *Controller) membershipByLane() map[string][]string {
	out := make(map[string][]string)
	for _, p := range c.projects {
		for lane, tasks := range p.StatusTask {
			for _, t := range tasks {
				out[lane] = append(out[lane], t.ID)
			}
		}
	}
	return out
}

// scopedProjects narrows to the active project when one is selected.
func (c *Controller) scopedProjects() []models.Project {
	if p, ok := c.ActiveProject(); ok {
		return []models.Project{p}
	}
	return c.projects
}

func (c *Controller) projectByID(id string) (models.Project, bool) {
	for _, p := range c.projects {
		if p.ID == id {
			return p, true
		}
	}
	return models.Project{}, false
}

// findTask resolves a task ID to the task and its owning project.
func (c *Controller) findTask(taskID string) (models.Task, models.Project, bool) {
	for _, p := range c.projects {
		for _, tasks := range p.StatusTask {
			for _, t := range tasks {
				if t.ID == taskID {
					return t, p, true
				}
			}
		}
	}
	return models.Task{}, models.Project{}, false
}

func hasLane(p models.Project, lane string) bool {
	for _, l := range p.Lanes {
		if l == lane {
			return true
		}
	}
	return false
}

func reconcileProjects(cached []string, projects []models.Project) []string {
	authoritative := make([]string, 0, len(projects))
	for _, p := range projects {
		authoritative = append(authoritative, p.ID)
	}
	merged := order.Reconcile(order.Order{"projects": cached}, map[string][]string{"projects": authoritative})
	return merged["projects"]
}
