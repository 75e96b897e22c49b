package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/habit-coach/internal/config"
	"github.com/iliyamo/habit-coach/internal/logger"
)

// captureWriter forwards the response to the client while keeping a copy
// of the first limit bytes.  size counts every byte written so callers can
// tell whether the copy is complete.
type captureWriter struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
	size   int64
	limit  int64
}

func (cw *captureWriter) WriteHeader(code int) {
	cw.status = code
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
	if cw.limit <= 0 {
		cw.buf.Write(b)
	} else if remain := cw.limit - cw.size; remain > 0 {
		if int64(len(b)) <= remain {
			cw.buf.Write(b)
		} else {
			cw.buf.Write(b[:remain])
		}
	}
	cw.size += int64(len(b))
	return cw.ResponseWriter.Write(b)
}

// cacheKeyFrom hashes the parts named by cfg.KeyParts.  The concrete
// request path is used, not the route pattern, so /v1/habits/1 and
// /v1/habits/2 are cached separately.  Query parameters are sorted.
func cacheKeyFrom(cfg config.CacheConfig, c echo.Context) string {
	r := c.Request()
	parts := cfg.KeyParts
	if len(parts) == 0 {
		parts = []string{"path", "query"}
	}
	h := sha1.New()
	for _, p := range parts {
		switch p {
		case "method":
			fmt.Fprintf(h, "m=%s;", r.Method)
		case "path":
			fmt.Fprintf(h, "p=%s;", r.URL.Path)
		case "query":
			fmt.Fprintf(h, "q=%s;", r.URL.Query().Encode())
		}
	}
	return fmt.Sprintf("%s:%x", cfg.Prefix, h.Sum(nil))
}

// cachedResponse is what a cache entry holds.
type cachedResponse struct {
	Status int         `json:"s"`
	Header http.Header `json:"h"`
	Body   []byte      `json:"b"`
}

func (cr cachedResponse) writeTo(w *echo.Response) {
	for k, vals := range cr.Header {
		if strings.EqualFold(k, echo.HeaderContentLength) {
			continue
		}
		for _, v := range vals {
			w.Header().Add(k, v)
		}
	}
	w.Header().Set("X-Cache", "HIT")
	w.WriteHeader(cr.Status)
	if len(cr.Body) > 0 {
		_, _ = w.Write(cr.Body)
	}
}

type responseCache struct {
	cfg config.CacheConfig
	rdb *redis.Client
	ttl time.Duration
	log *logger.Logger
}

func (rc *responseCache) lookup(ctx context.Context, key string) (cachedResponse, bool) {
	bs, err := rc.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			rc.log.Warn("cache read failed", "key", key, "error", err)
		}
		return cachedResponse{}, false
	}
	var cr cachedResponse
	if err := json.Unmarshal(bs, &cr); err != nil || cr.Status == 0 {
		return cachedResponse{}, false
	}
	return cr, true
}

func (rc *responseCache) store(key string, cr cachedResponse) {
	bs, err := json.Marshal(cr)
	if err != nil {
		return
	}
	// the request context may already be cancelled by the time we get here
	if err := rc.rdb.Set(context.Background(), key, bs, rc.ttl).Err(); err != nil {
		rc.log.Warn("cache write failed", "key", key, "error", err)
	}
}

// NewRedisCache caches 200 responses of the catalog endpoints in Redis so
// repeated browsing does not hit MySQL.  Requests carrying an
// Authorization header are never cached and bodies over MaxBodyBytes are
// not stored.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client, log *logger.Logger) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return passthrough
	}
	if log == nil {
		log = logger.Nop()
	}
	rc := &responseCache{cfg: cfg, rdb: rdb, ttl: cfg.TTL, log: log.With("component", "cache")}
	if rc.ttl <= 0 {
		rc.ttl = 5 * time.Minute
	}
	maxBody := int64(cfg.MaxBodyBytes)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			r := c.Request()
			if !cfg.Methods[strings.ToUpper(r.Method)] || r.Header.Get(echo.HeaderAuthorization) != "" {
				return next(c)
			}
			key := cacheKeyFrom(cfg, c)
			if cr, ok := rc.lookup(r.Context(), key); ok {
				cr.writeTo(c.Response())
				return nil
			}

			cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: maxBody}
			c.Response().Writer = cw
			c.Response().Header().Set("X-Cache", "MISS")
			if err := next(c); err != nil {
				return err
			}
			if cw.status != http.StatusOK || (maxBody > 0 && cw.size > maxBody) {
				return nil
			}
			hdr := c.Response().Header().Clone()
			hdr.Del("X-Cache")
			rc.store(key, cachedResponse{Status: cw.status, Header: hdr, Body: cw.buf.Bytes()})
			return nil
		}
	}
}

// PurgeCache deletes every cached response under prefix and reports how
// many keys went.  habitctl calls it after reseeding the catalog.
func PurgeCache(ctx context.Context, rdb *redis.Client, prefix string) (int, error) {
	n := 0
	iter := rdb.Scan(ctx, 0, prefix+":*", 200).Iterator()
	for iter.Next(ctx) {
		if err := rdb.Del(ctx, iter.Val()).Err(); err != nil {
			return n, err
		}
		n++
	}
	return n, iter.Err()
}
