package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"deskboard/internal/board"
	"deskboard/internal/models"
)

type laneView struct {
	Name  string     `json:"name"`
	Tasks []taskView `json:"tasks"`
}

type taskView struct {
	models.Task
	ElapsedSeconds int64 `json:"elapsed_seconds"`
}

// handleBoard renders the operator's board: projects in arranged order and
// the in-scope lanes with their arranged tasks. Elapsed timer values are
// recomputed against the request clock; the timeline itself is never
// touched by display.
func (s *Server) handleBoard(c *gin.Context) {
	s.withBoard(c, func(ctrl *board.Controller) {
		now := time.Now()
		lanes := make([]laneView, 0)
		for _, lane := range ctrl.Lanes() {
			tasks := ctrl.LaneTasks(lane)
			views := make([]taskView, 0, len(tasks))
			for _, t := range tasks {
				views = append(views, taskView{
					Task:           t,
					ElapsedSeconds: int64(board.TimelineElapsed(t.Timeline, now).Seconds()),
				})
			}
			lanes = append(lanes, laneView{Name: lane, Tasks: views})
		}
		payload := gin.H{"projects": ctrl.Projects(), "lanes": lanes}
		if active, ok := ctrl.ActiveProject(); ok {
			payload["active_project"] = active.ID
		}
		respondSuccess(c, http.StatusOK, payload)
	})
}

type selectProjectRequest struct {
	ProjectID string `json:"project_id"` // empty clears the selection
}

// handleSelectProject switches (or clears) the operator's active project.
func (s *Server) handleSelectProject(c *gin.Context) {
	var req selectProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	s.withBoard(c, func(ctrl *board.Controller) {
		if req.ProjectID == "" {
			ctrl.ClearProject()
			respondSuccess(c, http.StatusOK, gin.H{"status": "cleared"})
			return
		}
		if err := ctrl.SelectProject(req.ProjectID); err != nil {
			s.respondError(c, http.StatusBadRequest, err)
			return
		}
		respondSuccess(c, http.StatusOK, gin.H{"status": "selected"})
	})
}

type projectRequest struct {
	Name string `json:"name"`
}

// handleCreateProject creates a new project owned by the acting user.
func (s *Server) handleCreateProject(c *gin.Context) {
	var req projectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	s.withBoard(c, func(ctrl *board.Controller) {
		project, err := ctrl.CreateProject(c.Request.Context(), req.Name, actor(c).Username)
		if err != nil {
			s.respondError(c, http.StatusBadRequest, err)
			return
		}
		respondSuccess(c, http.StatusCreated, gin.H{"project": project})
	})
}

// handleDeleteProject removes a project and everything under it.
func (s *Server) handleDeleteProject(c *gin.Context) {
	id := c.Param("id")
	s.withBoard(c, func(ctrl *board.Controller) {
		if err := ctrl.DeleteProject(c.Request.Context(), id); err != nil {
			s.respondError(c, http.StatusBadRequest, err)
			return
		}
		respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
	})
}

type laneRequest struct {
	Name string `json:"name"`
}

// handleAddLane appends a lane to the active project.
func (s *Server) handleAddLane(c *gin.Context) {
	var req laneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	s.withBoard(c, func(ctrl *board.Controller) {
		if err := ctrl.AddLane(c.Request.Context(), req.Name); err != nil {
			s.respondError(c, http.StatusBadRequest, err)
			return
		}
		respondSuccess(c, http.StatusCreated, gin.H{"status": "created"})
	})
}

// handleRenameLane renames a lane across every project holding it.
func (s *Server) handleRenameLane(c *gin.Context) {
	var req laneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	s.withBoard(c, func(ctrl *board.Controller) {
		if err := ctrl.RenameLane(c.Request.Context(), c.Param("name"), req.Name); err != nil {
			s.respondError(c, http.StatusBadRequest, err)
			return
		}
		respondSuccess(c, http.StatusOK, gin.H{"status": "renamed"})
	})
}

// handleDeleteLane removes an empty lane from the active project.
func (s *Server) handleDeleteLane(c *gin.Context) {
	s.withBoard(c, func(ctrl *board.Controller) {
		if err := ctrl.DeleteLane(c.Request.Context(), c.Param("name")); err != nil {
			s.respondError(c, http.StatusBadRequest, err)
			return
		}
		respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
	})
}

type moveRequest struct {
	Lane     string `json:"lane"`
	TaskID   string `json:"task_id"`
	TargetID string `json:"target_id"`
}

// handleMoveTask applies a drag within a lane.
func (s *Server) handleMoveTask(c *gin.Context) {
	var req moveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	s.withBoard(c, func(ctrl *board.Controller) {
		if err := ctrl.MoveTask(c.Request.Context(), req.Lane, req.TaskID, req.TargetID); err != nil {
			s.respondError(c, http.StatusBadRequest, err)
			return
		}
		respondSuccess(c, http.StatusOK, gin.H{"status": "moved"})
	})
}
