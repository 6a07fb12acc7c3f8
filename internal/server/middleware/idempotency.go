package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	// IdempotencyHeader is the request header carrying the client's key.
	IdempotencyHeader = "Idempotency-Key"

	// ReplayHeader is set on responses served from the cache.
	ReplayHeader = "X-Idempotency-Hit"

	// IdempotencyCacheTTL is how long a successful response is replayed.
	IdempotencyCacheTTL = 24 * time.Hour

	// LockTimeout bounds a lock left behind by a crashed request.
	LockTimeout = 10 * time.Second

	// RedisKeyPrefix and LockKeyPrefix namespace the cached responses and
	// the in-flight locks.
	RedisKeyPrefix = "idempotency:"
	LockKeyPrefix  = "idempotency-lock:"
)

// cachedResponse is what gets stored in redis for a processed key.
type cachedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// responseRecorder captures the status and body on their way to the client.
type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	body       bytes.Buffer
}

func (rw *responseRecorder) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseRecorder) Write(b []byte) (int, error) {
	rw.body.Write(b)
	return rw.ResponseWriter.Write(b)
}

// Idempotency replays the stored response for a repeated Idempotency-Key
// instead of running the handler again. Keys are scoped to method and path.
// A duplicate arriving while the first request is still running gets 409.
// Only 2xx responses are cached, so a failed attempt may be retried with the
// same key. Requests without the header pass straight through.
func Idempotency(rdb *redis.Client, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(IdempotencyHeader)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()
			scoped := r.Method + " " + r.URL.Path + " " + key
			cacheKey := RedisKeyPrefix + scoped
			lockKey := LockKeyPrefix + scoped

			if served, err := replayCached(ctx, rdb, w, cacheKey); served || err != nil {
				if err != nil {
					logger.Error("idempotency: cache lookup failed", "key", key, "error", err)
					writeError(w, http.StatusServiceUnavailable, "idempotency store unavailable")
				}
				return
			}

			acquired, err := rdb.SetNX(ctx, lockKey, "processing", LockTimeout).Result()
			if err != nil {
				logger.Error("idempotency: lock acquisition failed", "key", key, "error", err)
				writeError(w, http.StatusServiceUnavailable, "idempotency store unavailable")
				return
			}
			if !acquired {
				logger.Info("idempotency: concurrent duplicate rejected", "key", key)
				writeError(w, http.StatusConflict, "a request with this idempotency key is currently being processed")
				return
			}
			// the handler's outcome is final even if the client went away
			bg := context.WithoutCancel(ctx)
			defer func() {
				if err := rdb.Del(bg, lockKey).Err(); err != nil {
					logger.Warn("idempotency: lock release failed", "key", key, "error", err)
				}
			}()

			// a request holding the lock may have finished between our cache
			// miss and SETNX; its response is cached before its lock is dropped
			if served, err := replayCached(ctx, rdb, w, cacheKey); served || err != nil {
				if err != nil {
					logger.Error("idempotency: cache lookup failed", "key", key, "error", err)
					writeError(w, http.StatusServiceUnavailable, "idempotency store unavailable")
				}
				return
			}

			rec := &responseRecorder{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(rec, r)

			if rec.statusCode < 200 || rec.statusCode >= 300 {
				return
			}
			data, err := json.Marshal(cachedResponse{
				Status:      rec.statusCode,
				ContentType: rec.Header().Get("Content-Type"),
				Body:        rec.body.Bytes(),
			})
			if err != nil {
				logger.Error("idempotency: encode response", "key", key, "error", err)
				return
			}
			if err := rdb.Set(bg, cacheKey, data, IdempotencyCacheTTL).Err(); err != nil {
				logger.Warn("idempotency: caching response failed", "key", key, "error", err)
			}
		})
	}
}

// replayCached writes the cached response for cacheKey if there is a
// readable one and reports whether it did.
func replayCached(ctx context.Context, rdb *redis.Client, w http.ResponseWriter, cacheKey string) (bool, error) {
	raw, err := rdb.Get(ctx, cacheKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	var cached cachedResponse
	if err := json.Unmarshal(raw, &cached); err != nil {
		return false, nil
	}
	replay(w, cached)
	return true, nil
}

func replay(w http.ResponseWriter, c cachedResponse) {
	if c.ContentType != "" {
		w.Header().Set("Content-Type", c.ContentType)
	}
	w.Header().Set(ReplayHeader, "true")
	w.WriteHeader(c.Status)
	w.Write(c.Body)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
