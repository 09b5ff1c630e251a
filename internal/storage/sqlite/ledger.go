package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"deskboard/internal/models"
)

// ListHolidays returns all holiday records ordered by date.
func (s *Store) ListHolidays(ctx context.Context) ([]models.Holiday, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, date, paid FROM holidays ORDER BY date`)
	if err != nil {
		return nil, fmt.Errorf("list holidays: %w", err)
	}
	defer rows.Close()

	var holidays []models.Holiday
	for rows.Next() {
		var h models.Holiday
		if err := rows.Scan(&h.ID, &h.Name, &h.Date, &h.Paid); err != nil {
			return nil, fmt.Errorf("scan holiday: %w", err)
		}
		holidays = append(holidays, h)
	}
	return holidays, rows.Err()
}

// CreateHoliday inserts a holiday record.
func (s *Store) CreateHoliday(ctx context.Context, h models.Holiday) (models.Holiday, error) {
	if strings.TrimSpace(h.Name) == "" {
		return models.Holiday{}, fmt.Errorf("holiday name must not be empty")
	}
	if h.ID == "" {
		h.ID = newID()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO holidays(id, name, date, paid) VALUES(?, ?, ?, ?)`, h.ID, strings.TrimSpace(h.Name), h.Date, h.Paid)
	if err != nil {
		return models.Holiday{}, fmt.Errorf("insert holiday: %w", err)
	}
	return h, nil
}

// UpdateHoliday replaces a holiday record.
func (s *Store) UpdateHoliday(ctx context.Context, h models.Holiday) (models.Holiday, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE holidays SET name = ?, date = ?, paid = ? WHERE id = ?`, h.Name, h.Date, h.Paid, h.ID)
	if err != nil {
		return models.Holiday{}, fmt.Errorf("update holiday: %w", err)
	}
	if err := requireAffected(res, "holiday"); err != nil {
		return models.Holiday{}, err
	}
	return h, nil
}

// DeleteHoliday removes a holiday record.
func (s *Store) DeleteHoliday(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM holidays WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete holiday: %w", err)
	}
	return requireAffected(res, "holiday")
}

// ListTransactions returns the ledger ordered by date descending.
func (s *Store) ListTransactions(ctx context.Context) ([]models.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, party, amount, currency, kind, date, note FROM transactions ORDER BY date DESC`)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txs []models.Transaction
	for rows.Next() {
		var t models.Transaction
		if err := rows.Scan(&t.ID, &t.Party, &t.Amount, &t.Currency, &t.Kind, &t.Date, &t.Note); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

// CreateTransaction inserts one ledger row.
func (s *Store) CreateTransaction(ctx context.Context, t models.Transaction) (models.Transaction, error) {
	if strings.TrimSpace(t.Party) == "" {
		return models.Transaction{}, fmt.Errorf("transaction party must not be empty")
	}
	if t.ID == "" {
		t.ID = newID()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO transactions(id, party, amount, currency, kind, date, note) VALUES(?, ?, ?, ?, ?, ?, ?)`,
		t.ID, strings.TrimSpace(t.Party), t.Amount, t.Currency, t.Kind, t.Date, t.Note)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	return t, nil
}

// UpdateTransaction replaces one ledger row.
func (s *Store) UpdateTransaction(ctx context.Context, t models.Transaction) (models.Transaction, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE transactions SET party = ?, amount = ?, currency = ?, kind = ?, date = ?, note = ? WHERE id = ?`,
		t.Party, t.Amount, t.Currency, t.Kind, t.Date, t.Note, t.ID)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	if err := requireAffected(res, "transaction"); err != nil {
		return models.Transaction{}, err
	}
	return t, nil
}

// DeleteTransaction removes one ledger row.
func (s *Store) DeleteTransaction(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return requireAffected(res, "transaction")
}

// ListCategories returns the catalog ordered by the operator-defined order.
func (s *Store) ListCategories(ctx context.Context) ([]models.Category, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, ord, items FROM categories ORDER BY ord, name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []models.Category
	for rows.Next() {
		var (
			c     models.Category
			items string
		)
		if err := rows.Scan(&c.ID, &c.Name, &c.Order, &items); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		if err := unmarshalJSON(items, &c.Items); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// CreateCategory appends a category at the end of the order.
func (s *Store) CreateCategory(ctx context.Context, c models.Category) (models.Category, error) {
	if strings.TrimSpace(c.Name) == "" {
		return models.Category{}, fmt.Errorf("category name must not be empty")
	}
	if c.ID == "" {
		c.ID = newID()
	}
	if c.Order == 0 {
		var max sql.NullInt64
		if err := s.db.QueryRowContext(ctx, `SELECT MAX(ord) FROM categories`).Scan(&max); err != nil {
			return models.Category{}, fmt.Errorf("category order: %w", err)
		}
		if max.Valid {
			c.Order = max.Int64 + 1
		}
	}
	items, err := marshalJSON(orEmpty(c.Items))
	if err != nil {
		return models.Category{}, err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO categories(id, name, ord, items) VALUES(?, ?, ?, ?)`, c.ID, strings.TrimSpace(c.Name), c.Order, items)
	if err != nil {
		return models.Category{}, fmt.Errorf("insert category: %w", err)
	}
	return c, nil
}

// UpdateCategory replaces a category and its items.
func (s *Store) UpdateCategory(ctx context.Context, c models.Category) (models.Category, error) {
	items, err := marshalJSON(orEmpty(c.Items))
	if err != nil {
		return models.Category{}, err
	}
	res, err := s.db.ExecContext(ctx, `UPDATE categories SET name = ?, ord = ?, items = ? WHERE id = ?`, c.Name, c.Order, items, c.ID)
	if err != nil {
		return models.Category{}, fmt.Errorf("update category: %w", err)
	}
	if err := requireAffected(res, "category"); err != nil {
		return models.Category{}, err
	}
	return c, nil
}

// DeleteCategory removes a category.
func (s *Store) DeleteCategory(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return requireAffected(res, "category")
}

// ReorderCategories rewrites the full order array: position i in ids gets
// order i. IDs not listed keep their old order values.
func (s *Store) ReorderCategories(ctx context.Context, ids []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin category reorder: %w", err)
	}
	defer tx.Rollback()

	for i, id := range ids {
		if _, err := tx.ExecContext(ctx, `UPDATE categories SET ord = ? WHERE id = ?`, i, id); err != nil {
			return fmt.Errorf("reorder category %s: %w", id, err)
		}
	}
	return tx.Commit()
}
