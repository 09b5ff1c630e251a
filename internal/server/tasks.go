package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"deskboard/internal/audit"
	"deskboard/internal/board"
	"deskboard/internal/models"
)

type taskRequest struct {
	Title       *string                    `json:"title"`
	Status      *string                    `json:"status"`
	Priority    *models.Priority           `json:"priority"`
	DueDate     *string                    `json:"due_date"` // RFC 3339, "" clears
	Assignees   *[]models.Employee         `json:"assigned_employees"`
	Description *[]models.DescriptionBlock `json:"description"`
}

// patch converts the request body into an audit patch. A present-but-empty
// due date clears the field.
func (r taskRequest) patch() (audit.Patch, error) {
	p := audit.Patch{
		Title:       r.Title,
		Status:      r.Status,
		Priority:    r.Priority,
		Assignees:   r.Assignees,
		Description: r.Description,
	}
	if r.DueDate != nil {
		if *r.DueDate == "" {
			var cleared *time.Time
			p.DueDate = &cleared
		} else {
			due, err := time.Parse(time.RFC3339, *r.DueDate)
			if err != nil {
				return audit.Patch{}, err
			}
			p.DueDate = ptr(&due)
		}
	}
	return p, nil
}

func ptr[T any](v T) *T { return &v }

// handleCreateTask inserts a new task into a project lane.
func (s *Server) handleCreateTask(c *gin.Context) {
	projectID := c.Param("id")
	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	patch, err := req.patch()
	if err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	lane := ""
	if req.Status != nil {
		lane = *req.Status
	}
	s.withBoard(c, func(ctrl *board.Controller) {
		task, err := ctrl.CreateTask(c.Request.Context(), projectID, lane, patch, actor(c).Username)
		if err != nil {
			s.respondError(c, http.StatusBadRequest, err)
			return
		}
		respondSuccess(c, http.StatusCreated, gin.H{"task": task})
	})
}

// handleUpdateTask applies a partial task mutation, audit comments included.
func (s *Server) handleUpdateTask(c *gin.Context) {
	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	patch, err := req.patch()
	if err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	s.withBoard(c, func(ctrl *board.Controller) {
		task, err := ctrl.UpdateTask(c.Request.Context(), c.Param("id"), patch, actor(c).Username)
		if err != nil {
			s.respondError(c, http.StatusBadRequest, err)
			return
		}
		respondSuccess(c, http.StatusOK, gin.H{"task": task})
	})
}

// handleDeleteTask removes a task completely.
func (s *Server) handleDeleteTask(c *gin.Context) {
	s.withBoard(c, func(ctrl *board.Controller) {
		if err := ctrl.DeleteTask(c.Request.Context(), c.Param("id")); err != nil {
			s.respondError(c, http.StatusBadRequest, err)
			return
		}
		respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
	})
}

// handleStartTaskTimer opens a timeline segment on a task.
func (s *Server) handleStartTaskTimer(c *gin.Context) {
	s.withBoard(c, func(ctrl *board.Controller) {
		task, err := ctrl.StartTimer(c.Request.Context(), c.Param("id"))
		if err != nil {
			s.respondError(c, http.StatusBadRequest, err)
			return
		}
		respondSuccess(c, http.StatusOK, gin.H{"task": task})
	})
}

// handleStopTaskTimer closes the running timeline segment.
func (s *Server) handleStopTaskTimer(c *gin.Context) {
	s.withBoard(c, func(ctrl *board.Controller) {
		task, err := ctrl.StopTimer(c.Request.Context(), c.Param("id"))
		if err != nil {
			s.respondError(c, http.StatusBadRequest, err)
			return
		}
		respondSuccess(c, http.StatusOK, gin.H{"task": task})
	})
}

// handleTaskElapsed reports the merged elapsed time of a task's timeline.
func (s *Server) handleTaskElapsed(c *gin.Context) {
	s.withBoard(c, func(ctrl *board.Controller) {
		elapsed, err := ctrl.TaskElapsed(c.Param("id"))
		if err != nil {
			s.respondError(c, http.StatusBadRequest, err)
			return
		}
		respondSuccess(c, http.StatusOK, gin.H{"elapsed_seconds": int64(elapsed.Seconds())})
	})
}

type selectionRequest struct {
	Lane   string `json:"lane"`
	TaskID string `json:"task_id"`
}

// handleToggleSelect flips one task in the operator's selection set.
func (s *Server) handleToggleSelect(c *gin.Context) {
	var req selectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	s.withBoard(c, func(ctrl *board.Controller) {
		ctrl.ToggleSelect(req.Lane, req.TaskID)
		respondSuccess(c, http.StatusOK, gin.H{"status": "toggled"})
	})
}

// handleClearSelection empties the selection set.
func (s *Server) handleClearSelection(c *gin.Context) {
	s.withBoard(c, func(ctrl *board.Controller) {
		ctrl.ClearSelection()
		respondSuccess(c, http.StatusOK, gin.H{"status": "cleared"})
	})
}

type bulkStatusRequest struct {
	Status string `json:"status"`
}

// handleBulkStatus moves every selected task to a lane, reporting each
// task's outcome independently.
func (s *Server) handleBulkStatus(c *gin.Context) {
	var req bulkStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	s.withBoard(c, func(ctrl *board.Controller) {
		results := ctrl.BulkStatus(c.Request.Context(), req.Status, actor(c).Username)
		respondSuccess(c, http.StatusOK, gin.H{"results": results})
	})
}

type bulkAssignRequest struct {
	Assignees []models.Employee `json:"assigned_employees"`
}

// handleBulkAssign replaces the assignee set of every selected task.
func (s *Server) handleBulkAssign(c *gin.Context) {
	var req bulkAssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	s.withBoard(c, func(ctrl *board.Controller) {
		results := ctrl.BulkAssign(c.Request.Context(), req.Assignees, actor(c).Username)
		respondSuccess(c, http.StatusOK, gin.H{"results": results})
	})
}

type bulkDueRequest struct {
	DueDate string `json:"due_date"` // RFC 3339, "" clears
}

// handleBulkDueDate sets or clears the due date of every selected task.
func (s *Server) handleBulkDueDate(c *gin.Context) {
	var req bulkDueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	var due *time.Time
	if req.DueDate != "" {
		parsed, err := time.Parse(time.RFC3339, req.DueDate)
		if err != nil {
			s.respondError(c, http.StatusBadRequest, err)
			return
		}
		due = &parsed
	}
	s.withBoard(c, func(ctrl *board.Controller) {
		results := ctrl.BulkDueDate(c.Request.Context(), due, actor(c).Username)
		respondSuccess(c, http.StatusOK, gin.H{"results": results})
	})
}

// handleBulkCopy duplicates every selected task in place.
func (s *Server) handleBulkCopy(c *gin.Context) {
	s.withBoard(c, func(ctrl *board.Controller) {
		results := ctrl.BulkCopy(c.Request.Context())
		respondSuccess(c, http.StatusOK, gin.H{"results": results})
	})
}

// handleBulkDelete removes every selected task.
func (s *Server) handleBulkDelete(c *gin.Context) {
	s.withBoard(c, func(ctrl *board.Controller) {
		results := ctrl.BulkDelete(c.Request.Context())
		respondSuccess(c, http.StatusOK, gin.H{"results": results})
	})
}
