// 包 logger：统一初始化与获取日志器，避免各模块重复配置；通过环境变量控制日志级别与输出格式
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// 默认日志器：在进程级复用，避免多处初始化导致输出不一致
var (
	mu            sync.Mutex
	defaultLogger *slog.Logger
)

// Setup：按 LOG_LEVEL / LOG_FORMAT 初始化默认日志器
// 约束：输出目标固定为标准错误；LOG_SOURCE=true 时附带调用位置
func Setup() *slog.Logger {
	return SetupWriter(os.Stderr)
}

// SetupWriter：与 Setup 相同，但允许指定输出目标（CLI 静默模式与测试使用）
func SetupWriter(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     ParseLevel(os.Getenv("LOG_LEVEL")),
		AddSource: strings.EqualFold(os.Getenv("LOG_SOURCE"), "true"),
	}
	var h slog.Handler
	if strings.ToLower(os.Getenv("LOG_FORMAT")) == "json" {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	l := slog.New(h)
	mu.Lock()
	defaultLogger = l
	mu.Unlock()
	return l
}

// ParseLevel：未知取值回退到 info
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// L：获取默认日志器；若未初始化则回退到 Setup
func L() *slog.Logger {
	mu.Lock()
	l := defaultLogger
	mu.Unlock()
	if l == nil {
		return Setup()
	}
	return l
}
