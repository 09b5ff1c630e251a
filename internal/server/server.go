package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"sync"

	"github.com/gin-gonic/gin"

	"deskboard/internal/board"
	"deskboard/internal/config"
	"deskboard/internal/models"
	"deskboard/internal/order"
	"deskboard/internal/permission"
	"deskboard/internal/storage/sqlite"
)

// Server provides the HTTP surface of the dashboard backend.
type Server struct {
	engine *gin.Engine
	store  *sqlite.Store
	logger *slog.Logger
	cfg    *config.Config
	tree   []permission.Node

	// One board controller per operator: the arrangement cache and the
	// selection set are operator-scoped state.
	mu     sync.Mutex
	boards map[string]*board.Controller
}

// New constructs the HTTP server with routes and middleware configured.
func New(store *sqlite.Store, logger *slog.Logger, cfg *config.Config) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	srv := &Server{
		engine: router,
		store:  store,
		logger: logger,
		cfg:    cfg,
		tree:   permission.DefaultTree(),
		boards: make(map[string]*board.Controller),
	}

	srv.registerRoutes()
	return srv
}

// Engine exposes the underlying Gin engine.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// registerRoutes wires all API and static handlers together.
func (s *Server) registerRoutes() {
	api := s.engine.Group("/api")
	{
		api.GET("/healthz", s.handleHealth)

		authed := api.Group("", s.withIdentity)
		{
			authed.GET("/board", s.handleBoard)
			authed.POST("/board/select-project", s.handleSelectProject)
			authed.POST("/board/move", s.handleMoveTask)
			authed.POST("/board/lanes", s.handleAddLane)
			authed.PUT("/board/lanes/:name", s.handleRenameLane)
			authed.DELETE("/board/lanes/:name", s.handleDeleteLane)

			authed.POST("/board/selection/toggle", s.handleToggleSelect)
			authed.DELETE("/board/selection", s.handleClearSelection)
			authed.POST("/board/bulk/status", s.handleBulkStatus)
			authed.POST("/board/bulk/assign", s.handleBulkAssign)
			authed.POST("/board/bulk/due", s.handleBulkDueDate)
			authed.POST("/board/bulk/copy", s.handleBulkCopy)
			authed.POST("/board/bulk/delete", s.handleBulkDelete)

			authed.POST("/projects", s.requirePermission("management.edit"), s.handleCreateProject)
			authed.DELETE("/projects/:id", s.requirePermission("management.edit"), s.handleDeleteProject)
			authed.POST("/projects/:id/tasks", s.handleCreateTask)
			authed.PUT("/tasks/:id", s.handleUpdateTask)
			authed.DELETE("/tasks/:id", s.handleDeleteTask)
			authed.POST("/tasks/:id/timer/start", s.handleStartTaskTimer)
			authed.POST("/tasks/:id/timer/stop", s.handleStopTaskTimer)
			authed.GET("/tasks/:id/elapsed", s.handleTaskElapsed)

			authed.GET("/timesheet", s.handleListWorkDays)
			authed.POST("/timesheet/start", s.handleStartSession)
			authed.POST("/timesheet/stop", s.handleStopSession)

			authed.GET("/employees", s.handleListEmployees)

			authed.POST("/uploads", s.handleUpload)

			authed.GET("/permissions/tree", s.handlePermissionTree)
			authed.GET("/permissions", s.requirePermission("permissions.manage"), s.handleListPermissions)
			authed.POST("/permissions", s.requirePermission("permissions.manage"), s.handleSavePermissions)
			authed.POST("/permissions/merge", s.requirePermission("permissions.manage"), s.handleMergePermissions)

			authed.GET("/holidays", s.handleListHolidays)
			authed.POST("/holidays", s.requirePermission("management.holidays"), s.handleCreateHoliday)
			authed.PUT("/holidays/:id", s.requirePermission("management.holidays"), s.handleUpdateHoliday)
			authed.DELETE("/holidays/:id", s.requirePermission("management.holidays"), s.handleDeleteHoliday)

			authed.GET("/transactions", s.requirePermission("management.transactions"), s.handleListTransactions)
			authed.POST("/transactions", s.requirePermission("management.transactions"), s.handleCreateTransaction)
			authed.PUT("/transactions/:id", s.requirePermission("management.transactions"), s.handleUpdateTransaction)
			authed.DELETE("/transactions/:id", s.requirePermission("management.transactions"), s.handleDeleteTransaction)
			authed.GET("/transactions/export", s.requirePermission("management.transactions"), s.handleExportTransactions)
			authed.POST("/transactions/import", s.requirePermission("management.transactions"), s.handleImportTransactions)

			authed.GET("/categories", s.handleListCategories)
			authed.POST("/categories", s.requirePermission("management.categories"), s.handleCreateCategory)
			authed.PUT("/categories/:id", s.requirePermission("management.categories"), s.handleUpdateCategory)
			authed.DELETE("/categories/:id", s.requirePermission("management.categories"), s.handleDeleteCategory)
			authed.POST("/categories/reorder", s.requirePermission("management.categories"), s.handleReorderCategories)
			authed.POST("/categories/import", s.requirePermission("management.categories"), s.handleImportCategories)
		}
	}

	s.mountUploads()
	s.mountStatic()
}

// handleHealth provides a basic readiness endpoint.
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

const actorKey = "deskboard.actor"

// withIdentity reads the user record the external session provider attaches
// to each request. The backend never issues sessions itself.
func (s *Server) withIdentity(c *gin.Context) {
	user := models.Employee{
		ID:       c.GetHeader("X-User-Id"),
		Username: c.GetHeader("X-User-Name"),
		FullName: c.GetHeader("X-User-Fullname"),
		Role:     c.GetHeader("X-User-Role"),
		Email:    c.GetHeader("X-User-Email"),
		Image:    c.GetHeader("X-User-Image"),
	}
	if user.ID == "" || user.Username == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing identity"})
		return
	}
	// Mirror the caller into the employee directory so the directory fills
	// itself from traffic. Best effort: a failed mirror must not block the
	// request.
	if _, err := s.store.UpsertEmployee(c.Request.Context(), user); err != nil {
		s.logger.Warn("employee mirror failed", slog.String("user", user.Username), slog.String("error", err.Error()))
	}
	c.Set(actorKey, user)
	c.Next()
}

func actor(c *gin.Context) models.Employee {
	user, _ := c.Get(actorKey)
	employee, _ := user.(models.Employee)
	return employee
}

// requirePermission gates a route behind one permission key. The privileged
// role bypasses stored grants for the built-in keys.
func (s *Server) requirePermission(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := actor(c)
		privileged := user.Role == s.cfg.PrivilegedRole
		grants, err := s.grantsFor(c, user.ID)
		if err != nil {
			s.respondError(c, http.StatusInternalServerError, err)
			c.Abort()
			return
		}
		if !permission.Resolve(user.Role, privileged, grants, key) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": fmt.Sprintf("missing permission %q", key)})
			return
		}
		c.Next()
	}
}

// grantsFor flattens a subject's stored records into one grant map.
func (s *Server) grantsFor(c *gin.Context, userID string) (permission.Grants, error) {
	records, err := s.store.ListPermissionRecords(c.Request.Context(), userID)
	if err != nil {
		return nil, err
	}
	grants := permission.Grants{}
	for _, rec := range records {
		for k, v := range rec.Management {
			grants[k] = v
		}
		for k, v := range rec.Employees {
			grants[k] = v
		}
	}
	return grants, nil
}

// withBoard runs fn against the operator's board controller, refreshed
// against the authoritative store. Controllers are created lazily, one per
// operator, each with an arrangement cache file of its own; the lock keeps
// a controller on a single request at a time.
func (s *Server) withBoard(c *gin.Context, fn func(*board.Controller)) {
	user := actor(c)
	s.mu.Lock()
	defer s.mu.Unlock()

	ctrl, ok := s.boards[user.ID]
	if !ok {
		statePath := filepath.Join(s.cfg.OrderStateDir, user.ID+".json")
		var err error
		ctrl, err = board.New(s.store, order.NewFileStore(statePath), s.logger)
		if err != nil {
			s.respondError(c, http.StatusInternalServerError, err)
			return
		}
		s.boards[user.ID] = ctrl
	}
	if err := ctrl.Refresh(c.Request.Context()); err != nil {
		s.respondError(c, http.StatusInternalServerError, err)
		return
	}
	fn(ctrl)
}

// respondError logs the error and returns a JSON payload. Validation errors
// map to 400 regardless of the suggested status.
func (s *Server) respondError(c *gin.Context, status int, err error) {
	var verr *board.ValidationError
	if errors.As(err, &verr) {
		status = http.StatusBadRequest
	}
	if errors.Is(err, sqlite.ErrNotFound) {
		status = http.StatusNotFound
	}
	if err != nil {
		s.logger.Error("request failed", slog.String("path", c.FullPath()), slog.String("error", err.Error()))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// respondSuccess wraps a payload in a JSON envelope for consistency.
func respondSuccess(c *gin.Context, status int, payload any) {
	if payload == nil {
		c.Status(status)
		return
	}
	c.JSON(status, payload)
}
