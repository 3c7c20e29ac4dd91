// 包 logger：http访问日志中间件，统一记录外部访问的关键维度（方法、路径、状态、耗时、字节数、远端地址、请求号）
package logger

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

type ctxKey string

// RequestIDKey：请求号在上下文中的键；下游日志通过 RequestID 读取
const RequestIDKey ctxKey = "req_id"

// statusWriter：包装 ResponseWriter 以捕获状态码与写出字节数
type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

// RequestID：读取上下文中的请求号，不存在时返回空串
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}

// AccessMiddleware：生成访问日志中间件
// 背景：统一记录外部访问，便于问题排查；不读取请求体
// 约束：上游已带 x-request-id 时沿用，否则生成 UUID 并回写响应头
func AccessMiddleware(l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get("x-request-id")
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set("x-request-id", id)
			sw := &statusWriter{ResponseWriter: w, status: 200}
			start := time.Now()
			next.ServeHTTP(sw, r.WithContext(context.WithValue(r.Context(), RequestIDKey, id)))
			l.Debug("http_access",
				"req_id", id,
				"method", r.Method,
				"path", r.URL.Path,
				"status", sw.status,
				"bytes", sw.bytes,
				"duration_ms", time.Since(start).Milliseconds(),
				"ip", r.RemoteAddr,
			)
		})
	}
}
