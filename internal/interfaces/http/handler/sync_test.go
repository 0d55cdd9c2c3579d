package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopbridge/backend/internal/application/catalogsync"
	"github.com/shopbridge/backend/internal/application/migration"
	"github.com/shopbridge/backend/internal/domain/syncrun"
	"github.com/shopbridge/backend/internal/interfaces/http/dto"
	"github.com/shopbridge/backend/internal/interfaces/http/middleware"
)

// newTestEngine builds a gin engine with the sync and migration routes
// registered against services that hold no runs. Requests that reach the
// remote catalogs are not exercised here.
func newTestEngine(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()

	syncService := catalogsync.NewService(nil, nil, nil,
		catalogsync.OrchestratorConfig{Mode: syncrun.ModeFull, Workers: 1},
		catalogsync.ReconcilerConfig{}, 5, nil)
	migrationService := migration.NewService(nil, nil, nil, nil)

	engine := gin.New()
	api := engine.Group("/api/v1")
	NewSyncHandler(syncService, nil).RegisterRoutes(api)
	NewMigrationHandler(migrationService, nil).RegisterRoutes(api)
	NewSystemHandler("shopbridge-test").RegisterRoutes(api)
	return engine
}

func TestSyncHandler_StartRun_Validation(t *testing.T) {
	testCases := []struct {
		name string
		body string
	}{
		{name: "missing mode", body: `{}`},
		{name: "unknown mode", body: `{"mode":"PARTIAL"}`},
		{name: "workers above cap", body: `{"mode":"FULL","workers":500}`},
		{name: "malformed json", body: `{"mode":`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			engine := newTestEngine(t)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/runs", strings.NewReader(tc.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			resp := decodeResponse(t, w)
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
		})
	}
}

func TestSyncHandler_StartRun_ValidationDetailsUseJSONNames(t *testing.T) {
	engine := newTestEngine(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/runs", strings.NewReader(`{"mode":"PARTIAL"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
	require.Len(t, resp.Error.Details, 1)
	assert.Equal(t, "mode", resp.Error.Details[0].Field)
	assert.Contains(t, resp.Error.Details[0].Message, "Must be one of")
}

func TestSyncHandler_ListRuns_Empty(t *testing.T) {
	engine := newTestEngine(t)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/sync/runs", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	assert.True(t, resp.Success)
}

func TestSyncHandler_GetRun(t *testing.T) {
	t.Run("malformed id", func(t *testing.T) {
		engine := newTestEngine(t)

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/sync/runs/not-a-uuid", nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown id", func(t *testing.T) {
		engine := newTestEngine(t)

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/sync/runs/"+uuid.NewString(), nil))

		assert.Equal(t, http.StatusNotFound, w.Code)
		resp := decodeResponse(t, w)
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeNotFound, resp.Error.Code)
	})
}

func TestSyncHandler_CancelRun_Unknown(t *testing.T) {
	engine := newTestEngine(t)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/sync/runs/"+uuid.NewString()+"/cancel", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMigrationHandler_MigrateOrder_Validation(t *testing.T) {
	engine := newTestEngine(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/migrations/orders", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
	require.Len(t, resp.Error.Details, 1)
	assert.Equal(t, "order_id", resp.Error.Details[0].Field)
}

func TestSystemHandler_Health(t *testing.T) {
	engine := newTestEngine(t)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	assert.True(t, resp.Success)

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "shopbridge-test", data["app"])
	assert.Equal(t, "ok", data["status"])
}
