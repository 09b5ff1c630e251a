package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"deskboard/internal/models"
)

// WorkDate is the canonical format for work day keys.
const WorkDate = "2006-01-02"

// GetWorkDay fetches one user's sessions for a calendar date.
func (s *Store) GetWorkDay(ctx context.Context, userID, workDate string) (models.WorkDay, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, user_id, work_date, sessions FROM work_days WHERE user_id = ? AND work_date = ?`, userID, workDate)
	day, err := scanWorkDay(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.WorkDay{}, fmt.Errorf("work day: %w", ErrNotFound)
	}
	return day, err
}

// ListWorkDays returns a user's tracked days, most recent first.
func (s *Store) ListWorkDays(ctx context.Context, userID string) ([]models.WorkDay, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, user_id, work_date, sessions FROM work_days WHERE user_id = ? ORDER BY work_date DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list work days: %w", err)
	}
	defer rows.Close()

	var days []models.WorkDay
	for rows.Next() {
		day, err := scanWorkDay(rows)
		if err != nil {
			return nil, err
		}
		days = append(days, day)
	}
	return days, rows.Err()
}

// StartSession opens a session for the user on the given date, creating the
// day on first use. A day with an open session refuses a second start.
func (s *Store) StartSession(ctx context.Context, userID string, startAt time.Time) (models.WorkDay, error) {
	workDate := startAt.Format(WorkDate)
	day, err := s.GetWorkDay(ctx, userID, workDate)
	if errors.Is(err, ErrNotFound) {
		day = models.WorkDay{ID: newID(), UserID: userID, WorkDate: workDate}
	} else if err != nil {
		return models.WorkDay{}, err
	}

	for _, sess := range day.Sessions {
		if sess.EndTime == nil {
			return models.WorkDay{}, fmt.Errorf("a session is already running for %s", workDate)
		}
	}
	day.Sessions = append(day.Sessions, models.WorkSession{StartTime: startAt})
	return s.saveWorkDay(ctx, day)
}

// StopSession closes the open session on the given date.
func (s *Store) StopSession(ctx context.Context, userID string, stopAt time.Time) (models.WorkDay, error) {
	workDate := stopAt.Format(WorkDate)
	day, err := s.GetWorkDay(ctx, userID, workDate)
	if err != nil {
		return models.WorkDay{}, err
	}
	for i := range day.Sessions {
		if day.Sessions[i].EndTime == nil {
			end := stopAt
			day.Sessions[i].EndTime = &end
			return s.saveWorkDay(ctx, day)
		}
	}
	return models.WorkDay{}, fmt.Errorf("no running session for %s", workDate)
}

func (s *Store) saveWorkDay(ctx context.Context, day models.WorkDay) (models.WorkDay, error) {
	sessions, err := marshalJSON(orEmpty(day.Sessions))
	if err != nil {
		return models.WorkDay{}, err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO work_days(id, user_id, work_date, sessions) VALUES(?, ?, ?, ?)
         ON CONFLICT(user_id, work_date) DO UPDATE SET sessions = excluded.sessions`,
		day.ID, day.UserID, day.WorkDate, sessions)
	if err != nil {
		return models.WorkDay{}, fmt.Errorf("save work day: %w", err)
	}
	return day, nil
}

func scanWorkDay(row rowScanner) (models.WorkDay, error) {
	var (
		day      models.WorkDay
		sessions string
	)
	if err := row.Scan(&day.ID, &day.UserID, &day.WorkDate, &sessions); err != nil {
		return models.WorkDay{}, err
	}
	if err := unmarshalJSON(sessions, &day.Sessions); err != nil {
		return models.WorkDay{}, err
	}
	return day, nil
}
