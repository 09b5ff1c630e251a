package server

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// handleUpload stores a multipart file and returns the public URL it is
// served under. File names are prefixed with a fresh ID so uploads never
// collide or overwrite each other.
func (s *Server) handleUpload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	if err := os.MkdirAll(s.cfg.UploadDir, 0o755); err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}

	name := fmt.Sprintf("%s-%s", uuid.NewString(), filepath.Base(file.Filename))
	if err := c.SaveUploadedFile(file, filepath.Join(s.cfg.UploadDir, name)); err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"url": "/uploads/" + name})
}

// mountUploads serves previously uploaded files.
func (s *Server) mountUploads() {
	if s.cfg.UploadDir == "" {
		return
	}
	s.engine.Static("/uploads", s.cfg.UploadDir)
}
