package web

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleHealth(t *testing.T) {
	s := NewServer("missing.md")

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestHandleCalendarServesDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weekly_calendar.md")
	require.NoError(t, os.WriteFile(path, []byte("# Calendar Events"), 0o644))

	s := NewServer(path)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/calendar.md", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "# Calendar Events", rec.Body.String())
}

func TestHandleCalendarMissingFile(t *testing.T) {
	s := NewServer(filepath.Join(t.TempDir(), "never-rendered.md"))

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/calendar.md", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
