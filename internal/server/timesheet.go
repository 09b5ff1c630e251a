package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"deskboard/internal/interval"
	"deskboard/internal/models"
	"deskboard/internal/storage/sqlite"
)

// errNoSubject rejects permission writes without a selected subject.
var errNoSubject = errors.New("no subject selected")

type workDayView struct {
	models.WorkDay
	ElapsedSeconds int64 `json:"elapsed_seconds"`
	Running        bool  `json:"running"`
}

// handleListWorkDays lists the acting user's tracked days with merged
// elapsed totals. An open session counts only while its work date is still
// today; a never-closed session from a past day reads as zero.
func (s *Server) handleListWorkDays(c *gin.Context) {
	days, err := s.store.ListWorkDays(c.Request.Context(), actor(c).ID)
	if err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}

	now := time.Now()
	today := now.Format(sqlite.WorkDate)
	views := make([]workDayView, 0, len(days))
	for _, day := range days {
		intervals := make([]interval.Interval, 0, len(day.Sessions))
		running := false
		for _, sess := range day.Sessions {
			intervals = append(intervals, interval.Interval{Start: sess.StartTime, End: sess.EndTime})
			if sess.EndTime == nil {
				running = true
			}
		}
		views = append(views, workDayView{
			WorkDay:        day,
			ElapsedSeconds: int64(interval.Elapsed(intervals, now, day.WorkDate == today).Seconds()),
			Running:        running && day.WorkDate == today,
		})
	}
	respondSuccess(c, http.StatusOK, gin.H{"days": views})
}

// handleStartSession opens a work session for the acting user.
func (s *Server) handleStartSession(c *gin.Context) {
	day, err := s.store.StartSession(c.Request.Context(), actor(c).ID, time.Now())
	if err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"day": day})
}

// handleStopSession closes the acting user's running session.
func (s *Server) handleStopSession(c *gin.Context) {
	day, err := s.store.StopSession(c.Request.Context(), actor(c).ID, time.Now())
	if err != nil {
		s.respondError(c, http.StatusBadRequest, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"day": day})
}
