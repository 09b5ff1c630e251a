// Package sqlite is the authoritative store behind the board: projects,
// lanes, tasks, permission records, timesheets and the ledger surfaces all
// live in one SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"deskboard/internal/models"
)

// ErrNotFound reports a lookup against a missing record.
var ErrNotFound = errors.New("not found")

// Store wraps access to the SQLite database and exposes high level helpers.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open initializes the store and runs the required migrations.
func Open(dbPath string, logger *slog.Logger) (*Store, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("empty database path")
	}
	if logger == nil {
		logger = slog.Default()
	}

	if err := ensureDir(dbPath); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=ON", dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetConnMaxLifetime(0)

	s := &Store{db: conn, logger: logger}
	if err := s.migrate(); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the database resources.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func ensureDir(dbPath string) error {
	dir := filepath.Dir(dbPath)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS projects (
            id TEXT PRIMARY KEY,
            name TEXT NOT NULL UNIQUE,
            created_by TEXT NOT NULL DEFAULT '',
            created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
        );`,
		`CREATE TABLE IF NOT EXISTS lanes (
            project_id TEXT NOT NULL,
            name TEXT NOT NULL,
            position INTEGER NOT NULL DEFAULT 0,
            PRIMARY KEY(project_id, name),
            FOREIGN KEY(project_id) REFERENCES projects(id) ON DELETE CASCADE
        );`,
		`CREATE TABLE IF NOT EXISTS tasks (
            id TEXT PRIMARY KEY,
            project_id TEXT NOT NULL,
            title TEXT NOT NULL,
            status TEXT NOT NULL,
            priority TEXT NOT NULL DEFAULT 'medium',
            due_date DATETIME,
            position INTEGER NOT NULL DEFAULT 0,
            description TEXT NOT NULL DEFAULT '[]',
            assignees TEXT NOT NULL DEFAULT '[]',
            comments TEXT NOT NULL DEFAULT '[]',
            timeline TEXT NOT NULL DEFAULT '[]',
            created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
            FOREIGN KEY(project_id) REFERENCES projects(id) ON DELETE CASCADE
        );`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_project ON tasks(project_id);`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_project_status ON tasks(project_id, status);`,
		`CREATE TABLE IF NOT EXISTS permission_records (
            id TEXT PRIMARY KEY,
            admin_by TEXT NOT NULL,
            user_id TEXT NOT NULL,
            role TEXT NOT NULL,
            management TEXT NOT NULL DEFAULT '{}',
            employees TEXT NOT NULL DEFAULT '{}',
            updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
            UNIQUE(admin_by, user_id, role)
        );`,
		`CREATE TABLE IF NOT EXISTS work_days (
            id TEXT PRIMARY KEY,
            user_id TEXT NOT NULL,
            work_date TEXT NOT NULL,
            sessions TEXT NOT NULL DEFAULT '[]',
            UNIQUE(user_id, work_date)
        );`,
		`CREATE TABLE IF NOT EXISTS holidays (
            id TEXT PRIMARY KEY,
            name TEXT NOT NULL,
            date DATETIME NOT NULL,
            paid INTEGER NOT NULL DEFAULT 1
        );`,
		`CREATE TABLE IF NOT EXISTS transactions (
            id TEXT PRIMARY KEY,
            party TEXT NOT NULL,
            amount REAL NOT NULL,
            currency TEXT NOT NULL DEFAULT 'USD',
            kind TEXT NOT NULL DEFAULT 'expense',
            date DATETIME NOT NULL,
            note TEXT NOT NULL DEFAULT ''
        );`,
		`CREATE TABLE IF NOT EXISTS categories (
            id TEXT PRIMARY KEY,
            name TEXT NOT NULL,
            ord INTEGER NOT NULL DEFAULT 0,
            items TEXT NOT NULL DEFAULT '[]'
        );`,
		`CREATE TABLE IF NOT EXISTS employees (
            id TEXT PRIMARY KEY,
            username TEXT NOT NULL UNIQUE,
            full_name TEXT NOT NULL DEFAULT '',
            role TEXT NOT NULL DEFAULT 'employee',
            email TEXT NOT NULL DEFAULT '',
            image TEXT NOT NULL DEFAULT ''
        );`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// ListProjects retrieves all projects with their nested lane→task structure.
func (s *Store) ListProjects(ctx context.Context) ([]models.Project, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, created_by, created_at FROM projects ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var projects []models.Project
	for rows.Next() {
		var p models.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.CreatedBy, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range projects {
		if err := s.loadBoard(ctx, &projects[i]); err != nil {
			return nil, err
		}
	}
	return projects, nil
}

// GetProject fetches one project with its board.
func (s *Store) GetProject(ctx context.Context, id string) (models.Project, error) {
	var p models.Project
	err := s.db.QueryRowContext(ctx, `SELECT id, name, created_by, created_at FROM projects WHERE id = ?`, id).
		Scan(&p.ID, &p.Name, &p.CreatedBy, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Project{}, fmt.Errorf("project: %w", ErrNotFound)
	}
	if err != nil {
		return models.Project{}, fmt.Errorf("get project: %w", err)
	}
	if err := s.loadBoard(ctx, &p); err != nil {
		return models.Project{}, err
	}
	return p, nil
}

func (s *Store) loadBoard(ctx context.Context, p *models.Project) error {
	laneRows, err := s.db.QueryContext(ctx, `SELECT name FROM lanes WHERE project_id = ? ORDER BY position, name`, p.ID)
	if err != nil {
		return fmt.Errorf("list lanes: %w", err)
	}
	defer laneRows.Close()

	p.Lanes = nil
	p.StatusTask = map[string][]models.Task{}
	for laneRows.Next() {
		var lane string
		if err := laneRows.Scan(&lane); err != nil {
			return fmt.Errorf("scan lane: %w", err)
		}
		p.Lanes = append(p.Lanes, lane)
		p.StatusTask[lane] = []models.Task{}
	}
	if err := laneRows.Err(); err != nil {
		return err
	}

	tasks, err := s.listTasks(ctx, p.ID)
	if err != nil {
		return err
	}
	for _, t := range tasks {
		p.StatusTask[t.Status] = append(p.StatusTask[t.Status], t)
	}
	return nil
}

// CreateProject persists a new project with the default lane set.
func (s *Store) CreateProject(ctx context.Context, name, createdBy string) (models.Project, error) {
	if strings.TrimSpace(name) == "" {
		return models.Project{}, fmt.Errorf("project name must not be empty")
	}
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `INSERT INTO projects(id, name, created_by) VALUES(?, ?, ?)`, id, strings.TrimSpace(name), createdBy)
	if err != nil {
		return models.Project{}, fmt.Errorf("insert project: %w", err)
	}
	for i, lane := range []string{"todo", "doing", "done"} {
		if _, err := s.db.ExecContext(ctx, `INSERT INTO lanes(project_id, name, position) VALUES(?, ?, ?)`, id, lane, i); err != nil {
			return models.Project{}, fmt.Errorf("insert lane: %w", err)
		}
	}
	return s.GetProject(ctx, id)
}

// DeleteProject removes a project along with its lanes and tasks.
func (s *Store) DeleteProject(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	return requireAffected(res, "project")
}

// AddLane appends a lane to a project.
func (s *Store) AddLane(ctx context.Context, projectID, lane string) error {
	var next sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT MAX(position) FROM lanes WHERE project_id = ?`, projectID).Scan(&next)
	if err != nil {
		return fmt.Errorf("lane position: %w", err)
	}
	pos := int64(0)
	if next.Valid {
		pos = next.Int64 + 1
	}
	if _, err := s.db.ExecContext(ctx, `INSERT INTO lanes(project_id, name, position) VALUES(?, ?, ?)`, projectID, lane, pos); err != nil {
		return fmt.Errorf("insert lane: %w", err)
	}
	return nil
}

// RenameLane renames a lane within one project and migrates its tasks.
func (s *Store) RenameLane(ctx context.Context, projectID, oldName, newName string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin rename: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE lanes SET name = ? WHERE project_id = ? AND name = ?`, newName, projectID, oldName)
	if err != nil {
		return fmt.Errorf("rename lane: %w", err)
	}
	if err := requireAffected(res, "lane"); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE tasks SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE project_id = ? AND status = ?`, newName, projectID, oldName); err != nil {
		return fmt.Errorf("migrate tasks: %w", err)
	}
	return tx.Commit()
}

// DeleteLane removes an empty lane. A lane still referenced by tasks is
// refused so the status invariant cannot break at the storage layer either.
func (s *Store) DeleteLane(ctx context.Context, projectID, lane string) error {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks WHERE project_id = ? AND status = ?`, projectID, lane).Scan(&count); err != nil {
		return fmt.Errorf("count lane tasks: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("lane %q still has %d tasks", lane, count)
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM lanes WHERE project_id = ? AND name = ?`, projectID, lane)
	if err != nil {
		return fmt.Errorf("delete lane: %w", err)
	}
	return requireAffected(res, "lane")
}

func requireAffected(res sql.Result, entity string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%s: %w", entity, ErrNotFound)
	}
	return nil
}

func marshalJSON(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode json column: %w", err)
	}
	return string(data), nil
}

func unmarshalJSON(data string, v any) error {
	if data == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(data), v); err != nil {
		return fmt.Errorf("decode json column: %w", err)
	}
	return nil
}

func newID() string { return uuid.NewString() }

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
