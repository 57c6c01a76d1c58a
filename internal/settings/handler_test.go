package settings

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mygarage/mygarage/internal/shared"
)

func newHandlerTest(t *testing.T, store *memStore) chi.Router {
	t.Helper()
	service := NewService(store)
	manager := NewManager(service, nil, WithQuietPeriod(time.Hour))
	t.Cleanup(manager.Shutdown)

	router := chi.NewRouter()
	NewHandler(nil, service, manager).MountRoutes(router)
	return router
}

func doSettingsRequest(router chi.Router, method, target, body, userID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if userID != "" {
		sess := &shared.Session{}
		sess.SetUser(userID)
		req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestAutoSaveRequiresSession(t *testing.T) {
	router := newHandlerTest(t, newMemStore())
	rr := doSettingsRequest(router, http.MethodPatch, "/settings/autosave", `{"currency":"EUR"}`, "")
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

// An accepted edit always schedules a save, so the endpoint must report
// pending even before the debounce loop has picked the edit up.
func TestAutoSaveReportsPending(t *testing.T) {
	store := newMemStore()
	router := newHandlerTest(t, store)

	rr := doSettingsRequest(router, http.MethodPatch, "/settings/autosave", `{"currency":"EUR"}`, "7")
	require.Equal(t, http.StatusAccepted, rr.Code)

	var resp autoSaveResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, StatePending.String(), resp.State)
	assert.Equal(t, 0, store.saveCount(), "save must wait for the quiet period")
}
