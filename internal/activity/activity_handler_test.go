package activity_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go-presence/internal/activity"
	activityerrors "go-presence/internal/activity/errors"
	"go-presence/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type fakeService struct {
	getCurrentFn func(ctx context.Context, companyID, employeeID string) (activity.CurrentActivityResponse, error)
	startFn      func(ctx context.Context, companyID, employeeID string, req activity.StartActivityRequest) (activity.StartActivityResponse, error)
	goOnDeskFn   func(ctx context.Context, companyID, employeeID string) (activity.GoOnDeskResponse, error)
	getHistoryFn func(ctx context.Context, companyID, employeeID string, page, pageSize int) ([]activity.HistoryItem, int64, error)
}

func (f *fakeService) GetCurrent(ctx context.Context, companyID, employeeID string) (activity.CurrentActivityResponse, error) {
	return f.getCurrentFn(ctx, companyID, employeeID)
}
func (f *fakeService) Start(ctx context.Context, companyID, employeeID string, req activity.StartActivityRequest) (activity.StartActivityResponse, error) {
	return f.startFn(ctx, companyID, employeeID, req)
}
func (f *fakeService) GoOnDesk(ctx context.Context, companyID, employeeID string) (activity.GoOnDeskResponse, error) {
	return f.goOnDeskFn(ctx, companyID, employeeID)
}
func (f *fakeService) GetHistory(ctx context.Context, companyID, employeeID string, page, pageSize int) ([]activity.HistoryItem, int64, error) {
	return f.getHistoryFn(ctx, companyID, employeeID, page, pageSize)
}

func intPtr(v int) *int { return &v }

func TestHandler_GetCurrent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	companyID := uuid.New().String()
	employeeID := uuid.New().String()

	svc := &fakeService{
		getCurrentFn: func(ctx context.Context, cid, eid string) (activity.CurrentActivityResponse, error) {
			assert.Equal(t, companyID, cid)
			assert.Equal(t, employeeID, eid)
			return activity.CurrentActivityResponse{
				Success:     true,
				Activity:    &activity.ActivityPayload{Type: string(domain.ActivityLunchBreak), StartTime: "2026-03-02T12:00:00Z"},
				ShouldBlock: true,
				TimeLimit:   intPtr(30),
			}, nil
		},
	}

	h := activity.NewHandler(svc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set("company_id", companyID)
	c.Set("employee_id", employeeID)
	c.Request = httptest.NewRequest(http.MethodGet, "/activities/current", nil)
	h.GetCurrent(c)

	assert.Equal(t, http.StatusOK, w.Code)

	var body activity.CurrentActivityResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.True(t, body.ShouldBlock)
	assert.Equal(t, string(domain.ActivityLunchBreak), body.Activity.Type)
	assert.Equal(t, 30, *body.TimeLimit)
}

func TestHandler_StartAndGoOnDesk(t *testing.T) {
	gin.SetMode(gin.TestMode)
	companyID := uuid.New().String()
	employeeID := uuid.New().String()

	svc := &fakeService{
		startFn: func(ctx context.Context, cid, eid string, req activity.StartActivityRequest) (activity.StartActivityResponse, error) {
			assert.Equal(t, string(domain.ActivityTeamMeeting), req.Type)
			return activity.StartActivityResponse{
				Success:  true,
				Activity: &activity.ActivityPayload{Type: req.Type, StartTime: "2026-03-02T12:00:00Z"},
			}, nil
		},
		goOnDeskFn: func(ctx context.Context, cid, eid string) (activity.GoOnDeskResponse, error) {
			return activity.GoOnDeskResponse{
				Success:  true,
				Activity: &activity.ActivityPayload{Type: string(domain.ActivityOnDesk), StartTime: "2026-03-02T12:30:00Z"},
			}, nil
		},
	}

	h := activity.NewHandler(svc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set("company_id", companyID)
	c.Set("employee_id", employeeID)
	c.Request = httptest.NewRequest(http.MethodPost, "/activities/start",
		strings.NewReader(`{"type":"TEAM_MEETING"}`))
	c.Request.Header.Set("Content-Type", "application/json")
	h.Start(c)
	assert.Equal(t, http.StatusCreated, w.Code)

	w2 := httptest.NewRecorder()
	c2, _ := gin.CreateTestContext(w2)
	c2.Set("company_id", companyID)
	c2.Set("employee_id", employeeID)
	c2.Request = httptest.NewRequest(http.MethodPost, "/activities/on-desk", nil)
	h.GoOnDesk(c2)
	assert.Equal(t, http.StatusOK, w2.Code)
	assert.Contains(t, w2.Body.String(), "ON_DESK")
}

func TestHandler_Start_MissingTypeRejected(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := activity.NewHandler(&fakeService{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set("company_id", uuid.New().String())
	c.Set("employee_id", uuid.New().String())
	c.Request = httptest.NewRequest(http.MethodPost, "/activities/start", strings.NewReader(`{}`))
	c.Request.Header.Set("Content-Type", "application/json")
	h.Start(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_Start_ServiceErrorMapped(t *testing.T) {
	gin.SetMode(gin.TestMode)

	svc := &fakeService{
		startFn: func(ctx context.Context, cid, eid string, req activity.StartActivityRequest) (activity.StartActivityResponse, error) {
			return activity.StartActivityResponse{}, activityerrors.ErrUnknownActivityType
		},
	}
	h := activity.NewHandler(svc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set("company_id", uuid.New().String())
	c.Set("employee_id", uuid.New().String())
	c.Request = httptest.NewRequest(http.MethodPost, "/activities/start",
		strings.NewReader(`{"type":"NAP_TIME"}`))
	c.Request.Header.Set("Content-Type", "application/json")
	h.Start(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "unknown activity type")
}

func TestHandler_GetHistory(t *testing.T) {
	gin.SetMode(gin.TestMode)

	svc := &fakeService{
		getHistoryFn: func(ctx context.Context, cid, eid string, page, pageSize int) ([]activity.HistoryItem, int64, error) {
			assert.Equal(t, 2, page)
			assert.Equal(t, 5, pageSize)
			return []activity.HistoryItem{
				{ID: uuid.New().String(), Type: string(domain.ActivityLunchBreak), TypeLabel: "Lunch Break"},
			}, 11, nil
		},
	}
	h := activity.NewHandler(svc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set("company_id", uuid.New().String())
	c.Set("employee_id", uuid.New().String())
	c.Request = httptest.NewRequest(http.MethodGet, "/activities?page=2&page_size=5", nil)
	h.GetHistory(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "\"meta\"")
	assert.Contains(t, w.Body.String(), "Lunch Break")
}
