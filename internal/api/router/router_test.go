package router

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meeraclinic/clinic-ai-platform/internal/clinic"
	"github.com/meeraclinic/clinic-ai-platform/internal/http/handlers"
	"github.com/meeraclinic/clinic-ai-platform/internal/scheduling"
	"github.com/meeraclinic/clinic-ai-platform/internal/tools"
	"github.com/meeraclinic/clinic-ai-platform/pkg/logging"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	logger := logging.Default()
	dir, err := clinic.LoadDirectory("")
	require.NoError(t, err)
	store := scheduling.NewFileStore(filepath.Join(t.TempDir(), "appointments.json"))
	now := func() time.Time { return time.Date(2025, 3, 3, 8, 0, 0, 0, time.UTC) }
	sched := scheduling.New(scheduling.Config{Directory: dir, Store: store, Now: now})
	dispatcher := tools.New(tools.Config{Scheduler: sched, Directory: dir, Now: now})

	return New(&Config{
		Logger:              logger,
		AppointmentsHandler: handlers.NewAppointmentsHandler(dispatcher, store, logger),
	})
}

func TestRouterHealthEndpoint(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestRouterAppointmentRoutes(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/appointments?action=getDoctors", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "doctors")

	req = httptest.NewRequest(http.MethodGet, "/api/appointments/storage", nil)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())
}

func TestRouterUnconfiguredChatRouteIs404(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/chat", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}
