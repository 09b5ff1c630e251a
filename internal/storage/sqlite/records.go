package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"deskboard/internal/models"
)

// UpsertPermissionRecord creates the record on first grant and replaces the
// grant maps thereafter. Records are never deleted.
func (s *Store) UpsertPermissionRecord(ctx context.Context, rec models.PermissionRecord) (models.PermissionRecord, error) {
	if rec.UserID == "" {
		return models.PermissionRecord{}, fmt.Errorf("permission record needs a subject")
	}
	if rec.ID == "" {
		rec.ID = newID()
	}
	management, err := marshalJSON(orEmptyMap(rec.Management))
	if err != nil {
		return models.PermissionRecord{}, err
	}
	employees, err := marshalJSON(orEmptyMap(rec.Employees))
	if err != nil {
		return models.PermissionRecord{}, err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO permission_records(id, admin_by, user_id, role, management, employees)
         VALUES(?, ?, ?, ?, ?, ?)
         ON CONFLICT(admin_by, user_id, role) DO UPDATE SET
            management = excluded.management,
            employees = excluded.employees,
            updated_at = CURRENT_TIMESTAMP`,
		rec.ID, rec.AdminBy, rec.UserID, rec.Role, management, employees)
	if err != nil {
		return models.PermissionRecord{}, fmt.Errorf("upsert permission record: %w", err)
	}
	return s.GetPermissionRecord(ctx, rec.AdminBy, rec.UserID, rec.Role)
}

// GetPermissionRecord fetches the record for one (adminBy, user, role) key.
func (s *Store) GetPermissionRecord(ctx context.Context, adminBy, userID, role string) (models.PermissionRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, admin_by, user_id, role, management, employees, updated_at
         FROM permission_records WHERE admin_by = ? AND user_id = ? AND role = ?`,
		adminBy, userID, role)
	rec, err := scanPermissionRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.PermissionRecord{}, fmt.Errorf("permission record: %w", ErrNotFound)
	}
	return rec, err
}

// ListPermissionRecords returns every stored record, optionally filtered by
// subject.
func (s *Store) ListPermissionRecords(ctx context.Context, userID string) ([]models.PermissionRecord, error) {
	query := `SELECT id, admin_by, user_id, role, management, employees, updated_at FROM permission_records`
	args := []any{}
	if userID != "" {
		query += ` WHERE user_id = ?`
		args = append(args, userID)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list permission records: %w", err)
	}
	defer rows.Close()

	var records []models.PermissionRecord
	for rows.Next() {
		rec, err := scanPermissionRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func scanPermissionRecord(row rowScanner) (models.PermissionRecord, error) {
	var (
		rec        models.PermissionRecord
		management string
		employees  string
	)
	err := row.Scan(&rec.ID, &rec.AdminBy, &rec.UserID, &rec.Role, &management, &employees, &rec.UpdatedAt)
	if err != nil {
		return models.PermissionRecord{}, err
	}
	if err := unmarshalJSON(management, &rec.Management); err != nil {
		return models.PermissionRecord{}, err
	}
	if err := unmarshalJSON(employees, &rec.Employees); err != nil {
		return models.PermissionRecord{}, err
	}
	return rec, nil
}

// ListEmployees returns the employee directory ordered by username.
func (s *Store) ListEmployees(ctx context.Context) ([]models.Employee, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, username, full_name, role, email, image FROM employees ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}
	defer rows.Close()

	var employees []models.Employee
	for rows.Next() {
		var e models.Employee
		if err := rows.Scan(&e.ID, &e.Username, &e.FullName, &e.Role, &e.Email, &e.Image); err != nil {
			return nil, fmt.Errorf("scan employee: %w", err)
		}
		employees = append(employees, e)
	}
	return employees, rows.Err()
}

// UpsertEmployee mirrors a directory entry from the identity provider.
// Entries are keyed by username; the stored row keeps its original ID.
func (s *Store) UpsertEmployee(ctx context.Context, e models.Employee) (models.Employee, error) {
	if e.Username == "" {
		return models.Employee{}, fmt.Errorf("employee username must not be empty")
	}

	var existingID string
	err := s.db.QueryRowContext(ctx, `SELECT id FROM employees WHERE username = ?`, e.Username).Scan(&existingID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if e.ID == "" {
			e.ID = newID()
		}
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO employees(id, username, full_name, role, email, image) VALUES(?, ?, ?, ?, ?, ?)`,
			e.ID, e.Username, e.FullName, e.Role, e.Email, e.Image)
		if err != nil {
			return models.Employee{}, fmt.Errorf("insert employee: %w", err)
		}
		return e, nil
	case err != nil:
		return models.Employee{}, fmt.Errorf("lookup employee: %w", err)
	}

	e.ID = existingID
	_, err = s.db.ExecContext(ctx,
		`UPDATE employees SET full_name = ?, role = ?, email = ?, image = ? WHERE username = ?`,
		e.FullName, e.Role, e.Email, e.Image, e.Username)
	if err != nil {
		return models.Employee{}, fmt.Errorf("update employee: %w", err)
	}
	return e, nil
}

func orEmptyMap(m map[string]bool) map[string]bool {
	if m == nil {
		return map[string]bool{}
	}
	return m
}
