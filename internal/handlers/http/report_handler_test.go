package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"proctorhub/internal/core/domain"
	"proctorhub/internal/core/ports"
	"proctorhub/internal/core/services"
	"proctorhub/internal/infrastructure/middleware"
	"proctorhub/internal/infrastructure/repositories/memory"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

func newReportRouter(t *testing.T, svc ports.ReportService) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.ErrorHandlerMiddleware(zaptest.NewLogger(t).Sugar()))
	NewReportHandler(svc, time.Second).SetupRoutes(router)
	return router
}

func TestGetReport_SessionWithEvents(t *testing.T) {
	sessions := memory.NewMemorySessionRepository()
	events := memory.NewMemoryEventRepository()
	ctx := context.Background()

	name := "Alice"
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	assert.NoError(t, sessions.Upsert(ctx, "s1", domain.SessionPatch{
		CandidateName: &name,
		StartTime:     &start,
	}))
	_, err := events.Append(ctx, &domain.Event{SessionID: "s1", Type: "tab-switch", Ts: start.Add(time.Minute)})
	assert.NoError(t, err)
	_, err = events.Append(ctx, &domain.Event{SessionID: "s1", Type: "face-missing", Ts: start.Add(2 * time.Minute)})
	assert.NoError(t, err)

	router := newReportRouter(t, services.NewReportService(sessions, events))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/sessions/s1/report", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp ReportResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.OK)
	assert.NotNil(t, resp.Session)
	assert.Equal(t, "Alice", resp.Session.CandidateName)
	assert.Len(t, resp.Events, 2)
	assert.Equal(t, "tab-switch", resp.Events[0].Type)
}

func TestGetReport_UnknownSessionReturnsNullSession(t *testing.T) {
	router := newReportRouter(t, services.NewReportService(
		memory.NewMemorySessionRepository(),
		memory.NewMemoryEventRepository(),
	))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/sessions/ghost/report", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var raw map[string]json.RawMessage
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
	assert.JSONEq(t, `true`, string(raw["ok"]))
	assert.JSONEq(t, `null`, string(raw["session"]))
	assert.JSONEq(t, `[]`, string(raw["events"]))
}

// Events can be logged before any session record exists; the report must
// surface them under a null session.
func TestGetReport_EventsWithoutSessionRecord(t *testing.T) {
	events := memory.NewMemoryEventRepository()
	ctx := context.Background()
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		_, err := events.Append(ctx, &domain.Event{
			SessionID: "orphan",
			Type:      "tab-switch",
			Ts:        base.Add(time.Duration(i) * time.Second),
		})
		assert.NoError(t, err)
	}

	router := newReportRouter(t, services.NewReportService(
		memory.NewMemorySessionRepository(), events,
	))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/sessions/orphan/report", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp ReportResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.OK)
	assert.Nil(t, resp.Session)
	assert.Len(t, resp.Events, 3)
}

type failingReportService struct{}

func (failingReportService) GetReport(ctx context.Context, id domain.SessionID) (*ports.Report, error) {
	return nil, errors.New("store unavailable")
}

func TestGetReport_StoreFailure(t *testing.T) {
	router := newReportRouter(t, failingReportService{})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/sessions/s1/report", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
