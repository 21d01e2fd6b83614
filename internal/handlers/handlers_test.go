package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ArowuTest/prizedraw-backend/api/routes"
	"github.com/ArowuTest/prizedraw-backend/internal/config"
	"github.com/ArowuTest/prizedraw-backend/internal/handlers"
	"github.com/ArowuTest/prizedraw-backend/internal/models"
	"github.com/ArowuTest/prizedraw-backend/internal/repositories/memory"
	"github.com/ArowuTest/prizedraw-backend/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "handler-secret"

type testServer struct {
	router     *gin.Engine
	activities *services.ActivityService
	records    *memory.DrawRecordRepository
	ledger     *memory.PointsLedger
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Server: config.ServerConfig{AllowedHosts: []string{"*"}},
		JWT:    config.JWTConfig{Secret: testSecret, AdminRole: "admin"},
	}

	activityRepo := memory.NewActivityRepository()
	records := memory.NewDrawRecordRepository()
	reconciliations := memory.NewReconciliationRepository()
	ledger := memory.NewPointsLedger()

	engine := services.NewDrawEngine(activityRepo, activityRepo, memory.NewDrawCounter(), records, reconciliations, ledger,
		services.NewSeededSelector(11), services.DrawEngineConfig{Location: time.UTC, MaxStockRetries: 3}, nil)
	activitySvc := services.NewActivityService(activityRepo, 16, 0, nil)
	recordSvc := services.NewRecordService(records, nil)

	router := routes.SetupRouter(cfg, routes.Handlers{
		Draw:       handlers.NewDrawHandler(engine, recordSvc),
		Activity:   handlers.NewActivityHandler(activitySvc),
		Statistics: handlers.NewStatisticsHandler(services.NewStatisticsService(records, nil), time.UTC),
		Admin:      handlers.NewAdminHandler(activitySvc, recordSvc, services.NewReconciliationService(reconciliations, records, ledger, nil, nil)),
	}, nil)

	return &testServer{router: router, activities: activitySvc, records: records, ledger: ledger}
}

func token(t *testing.T, sub, role string) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  sub,
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func (s *testServer) do(t *testing.T, method, path, bearer string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

func (s *testServer) seedActivity(t *testing.T, dailyLimit int) *models.Activity {
	t.Helper()
	a, err := s.activities.Create(context.Background(), &models.ActivityRequest{
		Name:       "Launch",
		CostPoints: 10,
		DailyLimit: dailyLimit,
		StartTime:  time.Now().Add(-time.Hour),
		IsActive:   true,
		Prizes: []models.PrizeRequest{
			{Name: "Thanks", Type: models.PrizeTypeThanks, Quantity: -1, Probability: 70},
			{Name: "100pts", Type: models.PrizeTypePoints, Value: 100, Quantity: 5, Probability: 30},
		},
	})
	require.NoError(t, err)
	return a
}

func TestDraw_FlowAndErrorMapping(t *testing.T) {
	s := newTestServer(t)
	activity := s.seedActivity(t, 1)
	user := token(t, "alice", "user")
	s.ledger.SetBalance("alice", 10)

	w := s.do(t, http.MethodPost, "/api/v1/draw", user, gin.H{"activityId": activity.ID.Hex()})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var record models.DrawRecord
	decode(t, w, &record)
	assert.Equal(t, "alice", record.UserID)
	assert.Equal(t, int64(10), record.PointsSpent)

	w = s.do(t, http.MethodPost, "/api/v1/draw", user, gin.H{"activityId": activity.ID.Hex()})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	var body map[string]string
	decode(t, w, &body)
	assert.Equal(t, "DAILY_LIMIT_EXCEEDED", body["code"])

	other := s.seedActivity(t, 0)
	w = s.do(t, http.MethodPost, "/api/v1/draw", user, gin.H{"activityId": other.ID.Hex()})
	assert.Equal(t, http.StatusPaymentRequired, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/draw", user, gin.H{"activityId": "000000000000000000000000"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/draw", user, gin.H{"activityId": "nope"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/draw", "", gin.H{"activityId": activity.ID.Hex()})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/draws/me", user, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page struct {
		Records []models.DrawRecord `json:"records"`
	}
	decode(t, w, &page)
	assert.Len(t, page.Records, 1)
}

func TestDraw_ReconciliationPending(t *testing.T) {
	s := newTestServer(t)
	activity := s.seedActivity(t, 0)
	s.ledger.SetBalance("bob", 100)
	s.records.SetCreateHook(func(*models.DrawRecord) error { return errors.New("disk full") })

	w := s.do(t, http.MethodPost, "/api/v1/draw", token(t, "bob", "user"), gin.H{"activityId": activity.ID.Hex()})
	assert.Equal(t, http.StatusAccepted, w.Code)
	var body map[string]string
	decode(t, w, &body)
	assert.Equal(t, "RECONCILIATION_PENDING", body["code"])
	assert.NotEmpty(t, body["recordId"])

	s.records.SetCreateHook(nil)
	admin := token(t, "root", "admin")
	w = s.do(t, http.MethodGet, "/api/v1/admin/reconciliations", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var entries []models.Reconciliation
	decode(t, w, &entries)
	require.Len(t, entries, 1)
	assert.Equal(t, body["recordId"], entries[0].RecordID.Hex())

	w = s.do(t, http.MethodPost, "/api/v1/admin/reconciliations/sweep", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var result services.SweepResult
	decode(t, w, &result)
	assert.Equal(t, 1, result.Resolved)
	assert.Equal(t, 1, s.records.Len())
}

func TestActivities_PublicViewHidesQuantity(t *testing.T) {
	s := newTestServer(t)
	activity := s.seedActivity(t, 3)

	w := s.do(t, http.MethodGet, "/api/v1/activities?active=true", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "quantity")
	assert.NotContains(t, w.Body.String(), "claimed")

	var views []models.ActivityView
	decode(t, w, &views)
	require.Len(t, views, 1)
	assert.True(t, views[0].Prizes[1].Available)

	w = s.do(t, http.MethodGet, "/api/v1/activities/"+activity.ID.Hex(), "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = s.do(t, http.MethodGet, "/api/v1/activities/000000000000000000000000", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdmin_ActivityWrites(t *testing.T) {
	s := newTestServer(t)
	admin := token(t, "root", "admin")

	req := gin.H{
		"name":      "Weekend",
		"startTime": time.Now().Format(time.RFC3339),
		"isActive":  true,
		"prizes": []gin.H{
			{"name": "A", "type": "coupon", "quantity": 3, "probability": 60},
			{"name": "B", "type": "physical", "quantity": 1, "probability": 50},
		},
	}
	w := s.do(t, http.MethodPost, "/api/v1/admin/activities", admin, req)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "PROBABILITY_OVERFLOW")

	w = s.do(t, http.MethodPost, "/api/v1/admin/activities", token(t, "alice", "user"), req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	req["prizes"] = []gin.H{{"name": "A", "type": "coupon", "quantity": 3, "probability": 60}}
	w = s.do(t, http.MethodPost, "/api/v1/admin/activities", admin, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created models.Activity
	decode(t, w, &created)

	csv := "name,type,value,quantity,probability\nMug,physical,0,10,15\nbad,row\n"
	w = s.do(t, http.MethodPost, "/api/v1/admin/activities/"+created.ID.Hex()+"/prizes/import", admin, csv)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var imported struct {
		Imported  int      `json:"imported"`
		RowErrors []string `json:"rowErrors"`
	}
	decode(t, w, &imported)
	assert.Equal(t, 1, imported.Imported)
	assert.Len(t, imported.RowErrors, 1)

	req["prizes"] = []gin.H{{"id": created.Prizes[0].ID.Hex(), "name": "A", "type": "coupon", "quantity": -1, "probability": 60}}
	w = s.do(t, http.MethodPut, "/api/v1/admin/activities/"+created.ID.Hex(), admin, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated models.Activity
	decode(t, w, &updated)
	require.Len(t, updated.Prizes, 1)
	assert.Equal(t, models.UnlimitedQuantity, updated.Prizes[0].Quantity)
}

func TestAdmin_RecordStatusAndStatistics(t *testing.T) {
	s := newTestServer(t)
	admin := token(t, "root", "admin")
	ctx := context.Background()

	a, err := s.activities.Create(ctx, &models.ActivityRequest{
		Name:      "Physical",
		StartTime: time.Now().Add(-time.Hour),
		IsActive:  true,
		Prizes:    []models.PrizeRequest{{Name: "Bike", Type: models.PrizeTypePhysical, Quantity: 1, Probability: 100}},
	})
	require.NoError(t, err)

	w := s.do(t, http.MethodPost, "/api/v1/draw", token(t, "carol", "user"), gin.H{"activityId": a.ID.Hex()})
	require.Equal(t, http.StatusOK, w.Code)
	var record models.DrawRecord
	decode(t, w, &record)
	require.Equal(t, "Bike", record.PrizeName)
	require.Equal(t, models.DrawStatusPending, record.Status)

	path := "/api/v1/admin/draw-records/" + record.ID.Hex() + "/status"
	w = s.do(t, http.MethodPatch, path, admin, gin.H{"status": "claimed"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = s.do(t, http.MethodPatch, path, admin, gin.H{"status": "cancelled"})
	assert.Equal(t, http.StatusConflict, w.Code)

	today := time.Now().UTC().Format("2006-01-02")
	w = s.do(t, http.MethodGet, "/api/v1/statistics?activityId="+a.ID.Hex()+"&dateRange="+today+","+today, "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var stats models.Statistics
	decode(t, w, &stats)
	assert.Equal(t, int64(1), stats.Totals.TotalDraws)
	assert.Equal(t, int64(1), stats.Totals.TotalWins)
	assert.Equal(t, 1.0, stats.Totals.WinRate)

	w = s.do(t, http.MethodGet, "/api/v1/statistics?from=2024-02-30", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
