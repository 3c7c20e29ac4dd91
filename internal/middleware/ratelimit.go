package middleware

import (
	"net/http"
	"sync"
	"time"

	"geoloc/internal/logger"
)

// 文档注释：令牌桶限流（每秒）
// 背景：在流量峰值时对入口限速，避免定位提供者与数据库被过载。
// 约束：不排队，超出即返回 429；每个自然秒整体补满。
type TokenBucket struct {
	capacity int
	tokens   int
	lastSec  int64
	mu       sync.Mutex
	now      func() time.Time
}

func NewTokenBucket(perSecond int) *TokenBucket {
	return &TokenBucket{capacity: perSecond, tokens: perSecond, lastSec: time.Now().Unix(), now: time.Now}
}

func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	nowSec := tb.now().Unix()
	if tb.lastSec != nowSec {
		tb.lastSec = nowSec
		tb.tokens = tb.capacity
	}
	if tb.tokens > 0 {
		tb.tokens--
		return true
	}
	return false
}

// RateLimit：令牌耗尽时直接返回 429
func RateLimit(tb *TokenBucket) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !tb.Allow() {
				logger.L().Debug("rate_limited", "path", r.URL.Path)
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
