package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/calories/models"
	"github.com/cppla/calories/services"
	"github.com/cppla/calories/store"
	"github.com/cppla/calories/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type downStore struct{}

func (downStore) Insert(context.Context, models.NewFoodEntry) (models.FoodEntry, error) {
	return models.FoodEntry{}, errors.New("dial tcp: connection refused")
}

func (downStore) ListAll(context.Context) ([]models.FoodEntry, error) {
	return nil, errors.New("dial tcp: connection refused")
}

func (downStore) SumCaloriesInRange(context.Context, time.Time, time.Time) (int64, error) {
	return 0, errors.New("dial tcp: connection refused")
}

func (downStore) Ping(context.Context) error { return errors.New("dial tcp: connection refused") }

func newTestRouter(st store.EntryStore, replay utils.ReplayStore) *gin.Engine {
	svc := services.NewFoodService(st, nil)
	food := NewFoodController(svc, replay, time.Hour, nil)
	health := NewHealthController(svc)

	r := gin.New()
	r.GET("/health", health.Health)
	api := r.Group("/api/v1")
	api.POST("/food-entries", food.CreateFoodEntry)
	api.GET("/food-entries", food.GetFoodEntries)
	api.GET("/daily-calories", food.GetDailyCalories)
	return r
}

func do(r http.Handler, method, path, body string, header map[string]string) (*httptest.ResponseRecorder, envelope) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

func TestCreateFoodEntryHandler(t *testing.T) {
	st := store.NewMemoryStore()
	r := newTestRouter(st, nil)

	w, env := do(r, http.MethodPost, "/api/v1/food-entries", `{"food_name":"Apple","calories":95}`, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 0, env.Code)

	var entry models.FoodEntry
	require.NoError(t, json.Unmarshal(env.Data, &entry))
	assert.Equal(t, uint(1), entry.ID)
	assert.Equal(t, "Apple", entry.FoodName)
	assert.Equal(t, 95, entry.Calories)
	assert.False(t, entry.LoggedAt.IsZero())
	assert.Equal(t, 1, st.Len())
}

func TestCreateFoodEntryHandlerRejectsBadInput(t *testing.T) {
	cases := []struct {
		name string
		body string
		code int
	}{
		{"blank name", `{"food_name":"  ","calories":95}`, 40011},
		{"zero calories", `{"food_name":"Apple","calories":0}`, 40011},
		{"negative calories", `{"food_name":"Apple","calories":-5}`, 40011},
		{"fractional calories", `{"food_name":"Apple","calories":80.5}`, 40011},
		{"string calories", `{"food_name":"Apple","calories":"80"}`, 40011},
		{"missing calories", `{"food_name":"Apple"}`, 40011},
		{"null calories", `{"food_name":"Apple","calories":null}`, 40011},
		{"malformed json", `{"food_name":`, 40010},
		{"wrong name type", `{"food_name":5,"calories":95}`, 40010},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st := store.NewMemoryStore()
			r := newTestRouter(st, nil)
			w, env := do(r, http.MethodPost, "/api/v1/food-entries", tc.body, nil)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tc.code, env.Code)
			assert.Equal(t, 0, st.Len())
		})
	}
}

func TestCreateFoodEntryHandlerStorageFailureIsOpaque(t *testing.T) {
	r := newTestRouter(downStore{}, nil)
	w, env := do(r, http.MethodPost, "/api/v1/food-entries", `{"food_name":"Apple","calories":95}`, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, 50010, env.Code)
	assert.NotContains(t, w.Body.String(), "connection refused")
}

func TestCreateFoodEntryHandlerIdempotencyReplay(t *testing.T) {
	st := store.NewMemoryStore()
	r := newTestRouter(st, utils.NewMemoryReplayStore())
	header := map[string]string{IdempotencyKeyHeader: "retry-1"}

	w1, env1 := do(r, http.MethodPost, "/api/v1/food-entries", `{"food_name":"Apple","calories":95}`, header)
	require.Equal(t, http.StatusCreated, w1.Code)
	assert.Empty(t, w1.Header().Get(ReplayedHeader))

	w2, env2 := do(r, http.MethodPost, "/api/v1/food-entries", `{"food_name":"Apple","calories":95}`, header)
	require.Equal(t, http.StatusCreated, w2.Code)
	assert.Equal(t, "true", w2.Header().Get(ReplayedHeader))

	var first, second models.FoodEntry
	require.NoError(t, json.Unmarshal(env1.Data, &first))
	require.NoError(t, json.Unmarshal(env2.Data, &second))
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, st.Len())

	w3, _ := do(r, http.MethodPost, "/api/v1/food-entries", `{"food_name":"Apple","calories":95}`,
		map[string]string{IdempotencyKeyHeader: "retry-2"})
	require.Equal(t, http.StatusCreated, w3.Code)
	assert.Equal(t, 2, st.Len())
}

func TestCreateFoodEntryHandlerKeyReusedWithDifferentBody(t *testing.T) {
	st := store.NewMemoryStore()
	r := newTestRouter(st, utils.NewMemoryReplayStore())
	header := map[string]string{IdempotencyKeyHeader: "k1"}

	w, _ := do(r, http.MethodPost, "/api/v1/food-entries", `{"food_name":"Apple","calories":95}`, header)
	require.Equal(t, http.StatusCreated, w.Code)

	w, env := do(r, http.MethodPost, "/api/v1/food-entries", `{"food_name":"Pizza","calories":800}`, header)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, 42210, env.Code)
	assert.Empty(t, w.Header().Get(ReplayedHeader))
	assert.NotContains(t, w.Body.String(), "Apple")
	assert.Equal(t, 1, st.Len())

	// surrounding whitespace does not change the request
	w, _ = do(r, http.MethodPost, "/api/v1/food-entries", `{"food_name":"  Apple ","calories":95.0}`, header)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "true", w.Header().Get(ReplayedHeader))
	assert.Equal(t, 1, st.Len())
}

func TestCreateFoodEntryHandlerDiscardsUnreadableReplay(t *testing.T) {
	replay := utils.NewMemoryReplayStore()
	replay.Set(context.Background(), "old", []byte(`{"id":3}`), time.Minute)
	st := store.NewMemoryStore()
	r := newTestRouter(st, replay)

	w, _ := do(r, http.MethodPost, "/api/v1/food-entries", `{"food_name":"Apple","calories":95}`,
		map[string]string{IdempotencyKeyHeader: "old"})
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Empty(t, w.Header().Get(ReplayedHeader))
	assert.Equal(t, 1, st.Len())
}

func TestCreateFoodEntryHandlerPendingKeyConflicts(t *testing.T) {
	replay := utils.NewMemoryReplayStore()
	require.True(t, replay.Reserve(context.Background(), "busy", time.Minute))
	st := store.NewMemoryStore()
	r := newTestRouter(st, replay)

	w, env := do(r, http.MethodPost, "/api/v1/food-entries", `{"food_name":"Apple","calories":95}`,
		map[string]string{IdempotencyKeyHeader: "busy"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, 40910, env.Code)
	assert.Equal(t, 0, st.Len())
}

func TestCreateFoodEntryHandlerFailedCreateReleasesKey(t *testing.T) {
	replay := utils.NewMemoryReplayStore()
	r := newTestRouter(downStore{}, replay)
	header := map[string]string{IdempotencyKeyHeader: "k"}

	w, _ := do(r, http.MethodPost, "/api/v1/food-entries", `{"food_name":"Apple","calories":95}`, header)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	_, ok := replay.Get(context.Background(), "k")
	assert.False(t, ok)
}

func TestCreateFoodEntryHandlerKeyTooLong(t *testing.T) {
	r := newTestRouter(store.NewMemoryStore(), utils.NewMemoryReplayStore())
	w, env := do(r, http.MethodPost, "/api/v1/food-entries", `{"food_name":"Apple","calories":95}`,
		map[string]string{IdempotencyKeyHeader: strings.Repeat("k", maxIdempotencyKeyLen+1)})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 40012, env.Code)
}

func TestGetFoodEntriesHandler(t *testing.T) {
	st := store.NewMemoryStore()
	r := newTestRouter(st, nil)

	w, env := do(r, http.MethodGet, "/api/v1/food-entries", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, string(env.Data))

	for _, body := range []string{`{"food_name":"Apple","calories":95}`, `{"food_name":"Banana","calories":105}`} {
		w, _ := do(r, http.MethodPost, "/api/v1/food-entries", body, nil)
		require.Equal(t, http.StatusCreated, w.Code)
	}

	_, env = do(r, http.MethodGet, "/api/v1/food-entries", "", nil)
	var entries []models.FoodEntry
	require.NoError(t, json.Unmarshal(env.Data, &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "Banana", entries[0].FoodName)
	assert.Equal(t, "Apple", entries[1].FoodName)
}

func TestGetFoodEntriesHandlerStorageFailure(t *testing.T) {
	w, env := do(newTestRouter(downStore{}, nil), http.MethodGet, "/api/v1/food-entries", "", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, 50011, env.Code)
}

func TestGetDailyCaloriesHandler(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	for _, e := range []models.NewFoodEntry{
		{FoodName: "Apple", Calories: 95, LoggedAt: time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)},
		{FoodName: "Pizza", Calories: 285, LoggedAt: time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)},
	} {
		_, err := st.Insert(ctx, e)
		require.NoError(t, err)
	}
	r := newTestRouter(st, nil)

	w, env := do(r, http.MethodGet, "/api/v1/daily-calories?date=2024-03-10", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"date":"2024-03-10","total_calories":95}`, string(env.Data))

	_, env = do(r, http.MethodGet, "/api/v1/daily-calories?date=2024-03-12", "", nil)
	assert.JSONEq(t, `{"date":"2024-03-12","total_calories":0}`, string(env.Data))
}

func TestGetDailyCaloriesHandlerBadDate(t *testing.T) {
	w, env := do(newTestRouter(store.NewMemoryStore(), nil), http.MethodGet, "/api/v1/daily-calories?date=10/03/2024", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 40011, env.Code)
}

func TestGetDailyCaloriesHandlerStorageFailure(t *testing.T) {
	w, env := do(newTestRouter(downStore{}, nil), http.MethodGet, "/api/v1/daily-calories?date=2024-03-10", "", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, 50012, env.Code)
}

func TestHealthHandler(t *testing.T) {
	w, env := do(newTestRouter(store.NewMemoryStore(), nil), http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"status":"ok"`)

	w, env = do(newTestRouter(downStore{}, nil), http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, 50300, env.Code)
	assert.Contains(t, string(env.Data), `"status":"unavailable"`)
}

func TestParseCalories(t *testing.T) {
	cases := []struct {
		raw  string
		want int
		ok   bool
	}{
		{"95", 95, true},
		{"80.0", 80, true},
		{"1e2", 100, true},
		{" 42 ", 42, true},
		{"0", 0, true},
		{"-5", -5, true},
		{"80.5", 0, false},
		{`"80"`, 0, false},
		{"null", 0, false},
		{"", 0, false},
		{"true", 0, false},
		{"1e400", 0, false},
	}
	for _, tc := range cases {
		got, err := parseCalories(json.RawMessage(tc.raw))
		if !tc.ok {
			var verr *services.ValidationError
			assert.True(t, errors.As(err, &verr), "raw %q", tc.raw)
			continue
		}
		require.NoError(t, err, "raw %q", tc.raw)
		assert.Equal(t, tc.want, got, "raw %q", tc.raw)
	}
}
