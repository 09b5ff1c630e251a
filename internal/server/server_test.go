package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deskboard/internal/config"
	"deskboard/internal/models"
	"deskboard/internal/storage/sqlite"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "board.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	cfg := config.Default()
	cfg.StaticDir = ""
	cfg.OrderStateDir = t.TempDir()
	cfg.UploadDir = t.TempDir()
	return New(store, nil, cfg)
}

func identified(req *http.Request) *http.Request {
	req.Header.Set("X-User-Id", "u1")
	req.Header.Set("X-User-Name", "alice")
	req.Header.Set("X-User-Fullname", "Alice A")
	req.Header.Set("X-User-Role", "employee")
	return req
}

func TestWithIdentity_MissingHeadersRejected(t *testing.T) {
	srv := newTestServer(t)

	w := httptest.NewRecorder()
	srv.Engine().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/employees", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestEmployeeDirectory_FilledFromTraffic(t *testing.T) {
	srv := newTestServer(t)

	// Any identified request mirrors the caller into the directory.
	w := httptest.NewRecorder()
	srv.Engine().ServeHTTP(w, identified(httptest.NewRequest(http.MethodGet, "/api/board", nil)))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	srv.Engine().ServeHTTP(w, identified(httptest.NewRequest(http.MethodGet, "/api/employees", nil)))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Employees []models.Employee `json:"employees"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Employees, 1)
	assert.Equal(t, "alice", resp.Employees[0].Username)
	assert.Equal(t, "Alice A", resp.Employees[0].FullName)
}

func TestEmployeeDirectory_RepeatCallerNotDuplicated(t *testing.T) {
	srv := newTestServer(t)

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		srv.Engine().ServeHTTP(w, identified(httptest.NewRequest(http.MethodGet, "/api/employees", nil)))
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := httptest.NewRecorder()
	srv.Engine().ServeHTTP(w, identified(httptest.NewRequest(http.MethodGet, "/api/employees", nil)))
	var resp struct {
		Employees []models.Employee `json:"employees"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Employees, 1)
}
