package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"deskboard/internal/csvio"
	"deskboard/internal/models"
)

// handleListCategories returns the catalog in operator order.
func (s *Server) handleListCategories(c *gin.Context) {
	categories, err := s.store.ListCategories(c.Request.Context())
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"categories": categories})
}

type categoryRequest struct {
	Name  string                `json:"name"`
	Order int64                 `json:"order"`
	Items []models.CategoryItem `json:"items"`
}

// handleCreateCategory appends a catalog entry.
func (s *Server) handleCreateCategory(c *gin.Context) {
	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	created, err := s.store.CreateCategory(c.Request.Context(), models.Category{Name: req.Name, Order: req.Order, Items: req.Items})
	if err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"category": created})
}

// handleUpdateCategory replaces a catalog entry and its items.
func (s *Server) handleUpdateCategory(c *gin.Context) {
	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	updated, err := s.store.UpdateCategory(c.Request.Context(), models.Category{ID: c.Param("id"), Name: req.Name, Order: req.Order, Items: req.Items})
	if err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"category": updated})
}

// handleDeleteCategory removes a catalog entry.
func (s *Server) handleDeleteCategory(c *gin.Context) {
	if err := s.store.DeleteCategory(c.Request.Context(), c.Param("id")); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
}

type reorderCategoriesRequest struct {
	IDs []string `json:"ids"`
}

// handleReorderCategories rewrites the full category order array.
func (s *Server) handleReorderCategories(c *gin.Context) {
	var req reorderCategoriesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	if err := s.store.ReorderCategories(c.Request.Context(), req.IDs); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "reordered"})
}

// handleImportCategories ingests a CSV body, one category per distinct name.
func (s *Server) handleImportCategories(c *gin.Context) {
	categories, err := csvio.ReadCategories(c.Request.Body)
	if err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	created := make([]models.Category, 0, len(categories))
	for _, cat := range categories {
		saved, err := s.store.CreateCategory(c.Request.Context(), cat)
		if err != nil {
			s.respondError(c, http.StatusBadRequest, err)
			return
		}
		created = append(created, saved)
	}
	respondSuccess(c, http.StatusCreated, gin.H{"categories": created})
}

// handleExportTransactions streams the ledger as CSV.
func (s *Server) handleExportTransactions(c *gin.Context) {
	txs, err := s.store.ListTransactions(c.Request.Context())
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", `attachment; filename="transactions.csv"`)
	c.Status(http.StatusOK)
	if err := csvio.WriteTransactions(c.Writer, txs); err != nil {
		s.logger.Error("csv export failed", "error", err.Error())
	}
}

// handleImportTransactions ingests a CSV body into the ledger. Rows are
// inserted independently; the first bad row aborts before any insert.
func (s *Server) handleImportTransactions(c *gin.Context) {
	txs, err := csvio.ReadTransactions(c.Request.Body)
	if err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	created := make([]models.Transaction, 0, len(txs))
	for _, tx := range txs {
		saved, err := s.store.CreateTransaction(c.Request.Context(), tx)
		if err != nil {
			s.respondError(c, http.StatusBadRequest, err)
			return
		}
		created = append(created, saved)
	}
	respondSuccess(c, http.StatusCreated, gin.H{"transactions": created})
}
