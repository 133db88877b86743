package controllers

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/calories/metrics"
	"github.com/cppla/calories/models"
	"github.com/cppla/calories/services"
	"github.com/cppla/calories/utils"
)

const (
	// IdempotencyKeyHeader lets a client retry a create without logging the food twice.
	IdempotencyKeyHeader = "Idempotency-Key"
	// ReplayedHeader is set on responses served from the replay store.
	ReplayedHeader = "Idempotent-Replayed"

	maxIdempotencyKeyLen = 128
	maxExactFloatInt     = 1 << 53
)

// FoodController exposes the food entry operations over HTTP.
type FoodController struct {
	svc       *services.FoodService
	replay    utils.ReplayStore
	replayTTL time.Duration
	log       *zap.Logger
}

// NewFoodController creates a FoodController. replay may be nil, which
// disables Idempotency-Key handling.
func NewFoodController(svc *services.FoodService, replay utils.ReplayStore, replayTTL time.Duration, log *zap.Logger) *FoodController {
	if log == nil {
		log = zap.NewNop()
	}
	return &FoodController{svc: svc, replay: replay, replayTTL: replayTTL, log: log}
}

// replayRecord is what the replay store holds for a completed create.
type replayRecord struct {
	Fingerprint string           `json:"fingerprint"`
	Entry       models.FoodEntry `json:"entry"`
}

// requestFingerprint identifies the normalised create payload, so a reused
// key with a different body is not answered with someone else's entry.
func requestFingerprint(foodName string, calories int) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(foodName) + "\x00" + strconv.Itoa(calories)))
	return hex.EncodeToString(sum[:])
}

// createFoodEntryRequest keeps calories raw so non-integers can be told
// apart from a malformed body.
type createFoodEntryRequest struct {
	FoodName string          `json:"food_name"`
	Calories json.RawMessage `json:"calories"`
}

// CreateFoodEntry handles POST /api/v1/food-entries.
func (f *FoodController) CreateFoodEntry(ctx *gin.Context) {
	var req createFoodEntryRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40010, "invalid request payload")
		return
	}
	calories, err := parseCalories(req.Calories)
	if err != nil {
		metrics.RecordValidationFailure("createFoodEntry")
		f.writeError(ctx, err, 0, "")
		return
	}

	key := ctx.GetHeader(IdempotencyKeyHeader)
	var fingerprint string
	if key != "" && f.replay != nil {
		if len(key) > maxIdempotencyKeyLen {
			utils.Error(ctx, http.StatusBadRequest, 40012, "idempotency key too long")
			return
		}
		fingerprint = requestFingerprint(req.FoodName, calories)
		if f.replayed(ctx, key, fingerprint) {
			return
		}
		if !f.replay.Reserve(ctx.Request.Context(), key, f.replayTTL) {
			// lost the race against a concurrent request with the same key
			if !f.replayed(ctx, key, fingerprint) {
				utils.Error(ctx, http.StatusConflict, 40910, "request with this idempotency key is in progress")
			}
			return
		}
	} else {
		key = ""
	}

	entry, err := f.svc.CreateFoodEntry(ctx.Request.Context(), services.CreateFoodEntryInput{
		FoodName: req.FoodName,
		Calories: calories,
	})
	if err != nil {
		if key != "" {
			f.replay.Release(context.WithoutCancel(ctx.Request.Context()), key)
		}
		f.writeError(ctx, err, 50010, "failed to create food entry")
		return
	}

	if key != "" {
		if b, err := json.Marshal(replayRecord{Fingerprint: fingerprint, Entry: entry}); err == nil {
			f.replay.Set(context.WithoutCancel(ctx.Request.Context()), key, b, f.replayTTL)
		}
	}
	utils.Created(ctx, entry)
}

// replayed answers from the replay store when key has a completed result.
// A result recorded for a different payload is refused with 422.
func (f *FoodController) replayed(ctx *gin.Context, key, fingerprint string) bool {
	b, ok := f.replay.Get(ctx.Request.Context(), key)
	if !ok {
		return false
	}
	if utils.IsPending(b) {
		utils.Error(ctx, http.StatusConflict, 40910, "request with this idempotency key is in progress")
		return true
	}
	var rec replayRecord
	if err := json.Unmarshal(b, &rec); err != nil || rec.Fingerprint == "" {
		f.log.Warn("discarding unreadable replay entry", zap.String("key", key), zap.Error(err))
		f.replay.Release(ctx.Request.Context(), key)
		return false
	}
	if rec.Fingerprint != fingerprint {
		utils.Error(ctx, http.StatusUnprocessableEntity, 42210, "idempotency key was used with a different request")
		return true
	}
	ctx.Header(ReplayedHeader, "true")
	utils.Created(ctx, rec.Entry)
	return true
}

// GetFoodEntries handles GET /api/v1/food-entries.
func (f *FoodController) GetFoodEntries(ctx *gin.Context) {
	entries, err := f.svc.GetFoodEntries(ctx.Request.Context())
	if err != nil {
		f.writeError(ctx, err, 50011, "failed to list food entries")
		return
	}
	utils.Success(ctx, entries)
}

// GetDailyCalories handles GET /api/v1/daily-calories?date=YYYY-MM-DD.
func (f *FoodController) GetDailyCalories(ctx *gin.Context) {
	summary, err := f.svc.GetDailyCalories(ctx.Request.Context(), ctx.Query("date"))
	if err != nil {
		f.writeError(ctx, err, 50012, "failed to compute daily calories")
		return
	}
	utils.Success(ctx, summary)
}

// writeError maps service errors onto the response envelope. Storage details
// never reach the client.
func (f *FoodController) writeError(ctx *gin.Context, err error, code int, message string) {
	var verr *services.ValidationError
	if errors.As(err, &verr) {
		utils.Error(ctx, http.StatusBadRequest, 40011, verr.Error())
		return
	}
	f.log.Error(message, zap.Error(err), zap.String(utils.RequestIDKey, ctx.GetString(utils.RequestIDKey)))
	utils.Error(ctx, http.StatusInternalServerError, code, message)
}

// parseCalories accepts any JSON number with an integral value. Strings,
// fractions and out-of-range values are validation errors; the sign is
// checked by the service.
func parseCalories(raw json.RawMessage) (int, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, services.NewValidationError("calories", "calories is required")
	}
	invalid := services.NewValidationError("calories", "calories must be a positive integer")
	if raw[0] == '"' {
		return 0, invalid
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, invalid
	}
	if i, err := n.Int64(); err == nil {
		return int(i), nil
	}
	// exponent or fraction forms such as 1e3 or 80.0
	v, err := n.Float64()
	if err != nil || v != math.Trunc(v) || math.Abs(v) > maxExactFloatInt {
		return 0, invalid
	}
	return int(v), nil
}
