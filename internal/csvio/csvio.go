// Package csvio converts ledger and catalog records to and from plain CSV
// rows. It is pure format conversion; validation of the resulting records
// stays with the store.
package csvio

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"deskboard/internal/models"
)

const dateLayout = "2006-01-02"

var transactionHeader = []string{"party", "amount", "currency", "kind", "date", "note"}

// WriteTransactions streams the ledger as CSV with a header row.
func WriteTransactions(w io.Writer, txs []models.Transaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(transactionHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, t := range txs {
		row := []string{
			t.Party,
			strconv.FormatFloat(t.Amount, 'f', 2, 64),
			t.Currency,
			t.Kind,
			t.Date.Format(dateLayout),
			t.Note,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadTransactions parses CSV rows into ledger records. The header row is
// recognized and skipped when present.
func ReadTransactions(r io.Reader) ([]models.Transaction, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(transactionHeader)
	cr.TrimLeadingSpace = true

	var txs []models.Transaction
	for line := 1; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		if line == 1 && strings.EqualFold(row[0], transactionHeader[0]) {
			continue
		}
		amount, err := strconv.ParseFloat(row[1], 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: amount: %w", line, err)
		}
		date, err := time.Parse(dateLayout, row[4])
		if err != nil {
			return nil, fmt.Errorf("row %d: date: %w", line, err)
		}
		txs = append(txs, models.Transaction{
			Party:    row[0],
			Amount:   amount,
			Currency: row[2],
			Kind:     row[3],
			Date:     date,
			Note:     row[5],
		})
	}
	return txs, nil
}

var categoryHeader = []string{"category", "store_name", "store_link", "figma_link", "status", "assign_project"}

// ReadCategories parses CSV rows into categories, grouping items under the
// category named in the first column. Category order follows first
// appearance in the file.
func ReadCategories(r io.Reader) ([]models.Category, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(categoryHeader)
	cr.TrimLeadingSpace = true

	var (
		ordered []models.Category
		index   = map[string]int{}
	)
	for line := 1; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		if line == 1 && strings.EqualFold(row[0], categoryHeader[0]) {
			continue
		}
		name := strings.TrimSpace(row[0])
		if name == "" {
			return nil, fmt.Errorf("row %d: empty category name", line)
		}
		i, ok := index[name]
		if !ok {
			i = len(ordered)
			index[name] = i
			ordered = append(ordered, models.Category{Name: name, Order: int64(i)})
		}
		ordered[i].Items = append(ordered[i].Items, models.CategoryItem{
			StoreName:     row[1],
			StoreLink:     row[2],
			FigmaLink:     row[3],
			Status:        row[4],
			AssignProject: row[5],
		})
	}
	return ordered, nil
}
