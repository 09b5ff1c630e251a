package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"deskboard/internal/models"
)

const dateOnly = "2006-01-02"

// handleListHolidays returns all holiday records.
func (s *Server) handleListHolidays(c *gin.Context) {
	holidays, err := s.store.ListHolidays(c.Request.Context())
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"holidays": holidays})
}

type holidayRequest struct {
	Name string `json:"name"`
	Date string `json:"date"` // YYYY-MM-DD
	Paid bool   `json:"paid"`
}

func (r holidayRequest) model(id string) (models.Holiday, error) {
	date, err := time.Parse(dateOnly, r.Date)
	if err != nil {
		return models.Holiday{}, err
	}
	return models.Holiday{ID: id, Name: r.Name, Date: date, Paid: r.Paid}, nil
}

// handleCreateHoliday records a new holiday.
func (s *Server) handleCreateHoliday(c *gin.Context) {
	var req holidayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	holiday, err := req.model("")
	if err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	created, err := s.store.CreateHoliday(c.Request.Context(), holiday)
	if err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"holiday": created})
}

// handleUpdateHoliday replaces a holiday record.
func (s *Server) handleUpdateHoliday(c *gin.Context) {
	var req holidayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	holiday, err := req.model(c.Param("id"))
	if err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	updated, err := s.store.UpdateHoliday(c.Request.Context(), holiday)
	if err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"holiday": updated})
}

// handleDeleteHoliday removes a holiday record.
func (s *Server) handleDeleteHoliday(c *gin.Context) {
	if err := s.store.DeleteHoliday(c.Request.Context(), c.Param("id")); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
}

// handleListTransactions returns the ledger.
func (s *Server) handleListTransactions(c *gin.Context) {
	txs, err := s.store.ListTransactions(c.Request.Context())
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"transactions": txs})
}

type transactionRequest struct {
	Party    string  `json:"party"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
	Kind     string  `json:"kind"`
	Date     string  `json:"date"` // YYYY-MM-DD
	Note     string  `json:"note"`
}

func (r transactionRequest) model(id string) (models.Transaction, error) {
	date, err := time.Parse(dateOnly, r.Date)
	if err != nil {
		return models.Transaction{}, err
	}
	return models.Transaction{
		ID:       id,
		Party:    r.Party,
		Amount:   r.Amount,
		Currency: r.Currency,
		Kind:     r.Kind,
		Date:     date,
		Note:     r.Note,
	}, nil
}

// handleCreateTransaction inserts a ledger row.
func (s *Server) handleCreateTransaction(c *gin.Context) {
	var req transactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	tx, err := req.model("")
	if err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	created, err := s.store.CreateTransaction(c.Request.Context(), tx)
	if err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"transaction": created})
}

// handleUpdateTransaction replaces a ledger row.
func (s *Server) handleUpdateTransaction(c *gin.Context) {
	var req transactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	tx, err := req.model(c.Param("id"))
	if err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	updated, err := s.store.UpdateTransaction(c.Request.Context(), tx)
	if err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"transaction": updated})
}

// handleDeleteTransaction removes a ledger row.
func (s *Server) handleDeleteTransaction(c *gin.Context) {
	if err := s.store.DeleteTransaction(c.Request.Context(), c.Param("id")); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
}
