package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/hartantodhi/loan-ledger/pkg/response"
)

const idempotencyHeader = "Idempotency-Key"

// idempotencyEntry is what we keep in redis per key: a provisional lock
// while the first request is in flight, then the recorded response.
type idempotencyEntry struct {
	InProgress bool   `json:"in_progress"`
	Code       int    `json:"code"`
	Body       []byte `json:"body"`
}

// Idempotency guards mutating routes behind an Idempotency-Key header.
// The first request with a key takes a provisional lock and records its
// response; duplicates replay that response verbatim. A duplicate arriving
// while the first is still in flight gets a 409. Repayment application is
// not safely retryable without this: replaying an already-applied payment
// would double-count it.
func Idempotency(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			key := r.Header.Get(idempotencyHeader)
			if key == "" {
				response.BadRequest(w, "missing Idempotency-Key header", nil)
				return
			}

			redisKey := fmt.Sprintf("idem:%s:%s:%s", r.Method, r.URL.Path, key)
			ctx := r.Context()

			provisional, _ := json.Marshal(idempotencyEntry{InProgress: true})
			acquired, err := rdb.SetNX(ctx, redisKey, provisional, ttl).Result()
			if err != nil {
				response.Error(w, http.StatusServiceUnavailable, "idempotency store unavailable", err)
				return
			}

			if !acquired {
				raw, err := rdb.Get(ctx, redisKey).Bytes()
				if err != nil {
					response.Error(w, http.StatusServiceUnavailable, "idempotency store unavailable", err)
					return
				}

				var entry idempotencyEntry
				if err := json.Unmarshal(raw, &entry); err != nil || entry.InProgress {
					response.Conflict(w, "a request with this Idempotency-Key is still in progress")
					return
				}

				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("X-Idempotent-Replay", "true")
				w.WriteHeader(entry.Code)
				_, _ = w.Write(entry.Body)
				return
			}

			recorder := &bufferingRecorder{ResponseWriter: w, code: http.StatusOK}
			next.ServeHTTP(recorder, r)

			stored, _ := json.Marshal(idempotencyEntry{
				Code: recorder.code,
				Body: recorder.buf.Bytes(),
			})
			if err := rdb.Set(ctx, redisKey, stored, ttl).Err(); err != nil {
				// The provisional lock will expire on its own; duplicates in
				// the window get a 409 instead of a replay.
				logger.Warn("failed to record idempotent response",
					zap.String("key", redisKey),
					zap.Error(err),
				)
			}
		})
	}
}

type bufferingRecorder struct {
	http.ResponseWriter
	buf  bytes.Buffer
	code int
}

func (rec *bufferingRecorder) Write(b []byte) (int, error) {
	rec.buf.Write(b)
	return rec.ResponseWriter.Write(b)
}

func (rec *bufferingRecorder) WriteHeader(code int) {
	rec.code = code
	rec.ResponseWriter.WriteHeader(code)
}
