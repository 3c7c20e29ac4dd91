// 包 location：当前位置获取与请求状态
// 背景：将宿主定位能力的回调式结果归一化为稳定的 Reading/Failure，并以状态容器形式暴露给展示层。
package location

import (
	"context"
	"sync"
	"time"

	"geoloc/internal/geolocation"
	"geoloc/internal/logger"
	"geoloc/internal/metrics"
)

// DefaultTimeout：未指定超时时的默认值
const DefaultTimeout = 10 * time.Second

// Acquirer：Tracker 依赖的最小能力，便于替换
type Acquirer interface {
	Acquire(ctx context.Context, timeout time.Duration) (Reading, error)
}

// Outcome：一次定位的单次结果；Err 非空时为 *Failure
type Outcome struct {
	Reading Reading
	Err     error
}

// Service：位置获取服务
type Service struct {
	platform       geolocation.Geolocation
	defaultTimeout time.Duration
}

type Option func(*Service)

// WithDefaultTimeout：调用方未给出超时时使用；<=0 忽略
func WithDefaultTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.defaultTimeout = d
		}
	}
}

// 文档注释：构造位置获取服务
// 约束：platform 为 nil 表示宿主不具备定位能力，此时每次获取都立即以 NOT_SUPPORTED 失败。
func NewService(platform geolocation.Geolocation, opts ...Option) *Service {
	s := &Service{platform: platform, defaultTimeout: DefaultTimeout}
	for _, o := range opts {
		o(s)
	}
	return s
}

// 文档注释：获取当前位置（阻塞直至宿主交付结果）
// 约束：请求高精度、不复用历史结果；超时完全交由宿主执行，本方法不另设计时器；
// 失败时 error 恒为 *Failure。
func (s *Service) Acquire(ctx context.Context, timeout time.Duration) (Reading, error) {
	o := <-s.AcquireAsync(ctx, timeout)
	return o.Reading, o.Err
}

// 文档注释：获取当前位置（异步）
// 返回：仅交付一次结果的只读通道；宿主重复回调时只取第一次。
func (s *Service) AcquireAsync(ctx context.Context, timeout time.Duration) <-chan Outcome {
	out := make(chan Outcome, 1)
	if s.platform == nil {
		f := &Failure{Code: NotSupported, Message: MsgNotSupported}
		observe(f, 0)
		out <- Outcome{Err: f}
		return out
	}
	if timeout <= 0 {
		timeout = s.defaultTimeout
	}
	t0 := time.Now()
	var once sync.Once
	resolve := func(o Outcome) {
		once.Do(func() {
			var f *Failure
			if o.Err != nil {
				f = o.Err.(*Failure)
			}
			observe(f, time.Since(t0))
			out <- o
		})
	}
	s.platform.GetCurrentPosition(ctx,
		func(p geolocation.Position) {
			resolve(Outcome{Reading: toReading(p)})
		},
		func(e *geolocation.PositionError) {
			resolve(Outcome{Err: MapError(e)})
		},
		geolocation.PositionOptions{
			EnableHighAccuracy: true,
			Timeout:            timeout,
			MaximumAge:         0,
		},
	)
	return out
}

func toReading(p geolocation.Position) Reading {
	r := Reading{Accuracy: p.Coords.Accuracy, Timestamp: p.Timestamp}
	r.Location.Lat = p.Coords.Latitude
	r.Location.Lng = p.Coords.Longitude
	return r
}

// 文档注释：宿主错误码 → 领域失败
// 约束：权限、不可用、超时三类使用固定文案；其它错误码归为 POSITION_UNAVAILABLE 并保留宿主原始文案。
func MapError(e *geolocation.PositionError) *Failure {
	switch e.Code {
	case geolocation.PermissionDenied:
		return &Failure{Code: PermissionDenied, Message: MsgPermissionDenied}
	case geolocation.PositionUnavailable:
		return &Failure{Code: PositionUnavailable, Message: MsgPositionUnavailable}
	case geolocation.Timeout:
		return &Failure{Code: Timeout, Message: MsgTimeout}
	default:
		return &Failure{Code: PositionUnavailable, Message: e.Message}
	}
}

func observe(f *Failure, d time.Duration) {
	metrics.AcquireDurationMs.Observe(float64(d.Milliseconds()))
	if f != nil {
		metrics.AcquireTotal.WithLabelValues(string(f.Code)).Inc()
		logger.L().Debug("acquire_fail", "code", f.Code, "message", f.Message, "duration_ms", d.Milliseconds())
		return
	}
	metrics.AcquireTotal.WithLabelValues("ok").Inc()
	logger.L().Debug("acquire_ok", "duration_ms", d.Milliseconds())
}
