package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"deskboard/internal/models"
	"deskboard/internal/permission"
)

// handlePermissionTree exposes the static permission tree definition.
func (s *Server) handlePermissionTree(c *gin.Context) {
	respondSuccess(c, http.StatusOK, gin.H{"tree": s.tree})
}

// handleListPermissions lists stored permission records, optionally for one
// subject via ?user_id=.
func (s *Server) handleListPermissions(c *gin.Context) {
	records, err := s.store.ListPermissionRecords(c.Request.Context(), c.Query("user_id"))
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"records": records})
}

type permissionSaveRequest struct {
	UserID  string `json:"user_id"`
	Role    string `json:"role"`
	Toggles []struct {
		Key string `json:"key"`
		On  bool   `json:"on"`
	} `json:"toggles"`
}

// handleSavePermissions applies a batch of toggles to a subject's record,
// creating it on first grant. Parent-key toggles cascade to descendants.
func (s *Server) handleSavePermissions(c *gin.Context) {
	var req permissionSaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	if req.UserID == "" {
		s.respondError(c, http.StatusBadRequest, errNoSubject)
		return
	}

	rec, err := s.store.GetPermissionRecord(c.Request.Context(), actor(c).ID, req.UserID, req.Role)
	if err != nil {
		rec = models.PermissionRecord{AdminBy: actor(c).ID, UserID: req.UserID, Role: req.Role}
	}

	management := permission.Grants(rec.Management)
	employees := permission.Grants(rec.Employees)
	for _, t := range req.Toggles {
		if branchOf(s.tree, t.Key) == "employees" {
			employees = permission.Toggle(s.tree, employees, t.Key, t.On)
		} else {
			management = permission.Toggle(s.tree, management, t.Key, t.On)
		}
	}
	rec.Management = management
	rec.Employees = employees

	saved, err := s.store.UpsertPermissionRecord(c.Request.Context(), rec)
	if err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"record": saved})
}

type permissionMergeRequest struct {
	UserIDs []string `json:"user_ids"`
}

// handleMergePermissions computes the tri-state view for a multi-subject
// selection: effective only where all subjects agree, indeterminate where
// some but not all grant a key.
func (s *Server) handleMergePermissions(c *gin.Context) {
	var req permissionMergeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	if len(req.UserIDs) == 0 {
		s.respondError(c, http.StatusBadRequest, errNoSubject)
		return
	}

	subjects := make([]permission.Grants, 0, len(req.UserIDs))
	for _, userID := range req.UserIDs {
		grants, err := s.grantsFor(c, userID)
		if err != nil {
			s.respondError(c, http.StatusInternalServerError, err)
			return
		}
		subjects = append(subjects, grants)
	}
	effective, indeterminate := permission.MergeSubjects(s.tree, subjects)
	respondSuccess(c, http.StatusOK, gin.H{"effective": effective, "indeterminate": indeterminate})
}

// handleListEmployees returns the employee directory.
func (s *Server) handleListEmployees(c *gin.Context) {
	employees, err := s.store.ListEmployees(c.Request.Context())
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"employees": employees})
}

// branchOf finds which top-level branch a key belongs to.
func branchOf(tree []permission.Node, key string) string {
	for _, root := range tree {
		if containsKey(root, key) {
			return root.Key
		}
	}
	return ""
}

func containsKey(n permission.Node, key string) bool {
	if n.Key == key {
		return true
	}
	for _, child := range n.Children {
		if containsKey(child, key) {
			return true
		}
	}
	return false
}
