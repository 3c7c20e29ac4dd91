package geolocation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"geoloc/internal/cache"
	"geoloc/internal/logger"
	"geoloc/internal/metrics"

	"golang.org/x/sync/errgroup"
)

// IPResolver：解析宿主自身的公网地址
type IPResolver interface {
	Resolve(ctx context.Context) (string, error)
}

// status：提供者健康状态与最近心跳时间
type status struct {
	healthy bool
	last    time.Time
}

// 文档注释：宿主定位实现
// 背景：负责提供者注册、心跳与健康筛选，并按 PositionOptions 调度一次定位。
// 约束：超时由宿主自身计时器保证，计时器先到则交付 Timeout 并丢弃迟到结果；
// 高精度模式并发查询全部健康提供者取精度半径最小者，否则按注册顺序取第一个成功结果。
type Host struct {
	mu         sync.RWMutex
	order      []string
	ps         map[string]Provider
	st         map[string]status
	hbInterval time.Duration
	resolver   IPResolver
	consent    atomic.Bool
	last       *cache.LRU[string, Position]
	now        func() time.Time
}

type HostOption func(*Host)

// WithResolver：未通过 WithClientIP 指定目标时用于获取宿主公网地址
func WithResolver(r IPResolver) HostOption { return func(h *Host) { h.resolver = r } }

// WithHeartbeatInterval：心跳周期，默认 10s
func WithHeartbeatInterval(d time.Duration) HostOption {
	return func(h *Host) {
		if d > 0 {
			h.hbInterval = d
		}
	}
}

func NewHost(opts ...HostOption) *Host {
	h := &Host{
		ps:         make(map[string]Provider),
		st:         make(map[string]status),
		hbInterval: 10 * time.Second,
		last:       cache.NewLRU[string, Position](1024, 0),
		now:        time.Now,
	}
	h.consent.Store(true)
	for _, o := range opts {
		o(h)
	}
	return h
}

// Register：注册提供者，默认健康；同名提供者覆盖但保留原顺序
func (h *Host) Register(p Provider) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.ps[p.Name()]; !ok {
		h.order = append(h.order, p.Name())
	}
	h.ps[p.Name()] = p
	h.st[p.Name()] = status{healthy: true, last: h.now()}
	logger.L().Info("provider_registered", "name", p.Name())
}

// Len：已注册提供者数量
func (h *Host) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.order)
}

// SetConsent：撤销授权后所有定位请求直接以 PermissionDenied 结束
func (h *Host) SetConsent(granted bool) { h.consent.Store(granted) }

// HealthyProviders：按注册顺序返回当前健康的提供者
func (h *Host) HealthyProviders() []Provider {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var out []Provider
	for _, name := range h.order {
		if h.st[name].healthy {
			out = append(out, h.ps[name])
		}
	}
	return out
}

// Start：启动心跳循环，ctx 取消时停止
func (h *Host) Start(ctx context.Context) {
	t := time.NewTicker(h.hbInterval)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				h.Heartbeat(ctx)
			}
		}
	}()
}

// Heartbeat：执行一轮心跳；心跳调用不持锁，避免慢提供者阻塞定位
func (h *Host) Heartbeat(ctx context.Context) {
	h.mu.RLock()
	ps := make([]Provider, 0, len(h.order))
	for _, name := range h.order {
		ps = append(ps, h.ps[name])
	}
	h.mu.RUnlock()
	for _, p := range ps {
		err := p.Heartbeat(ctx)
		h.mu.Lock()
		h.st[p.Name()] = status{healthy: err == nil, last: h.now()}
		h.mu.Unlock()
		if err != nil {
			logger.L().Debug("provider_heartbeat_fail", "name", p.Name(), "err", err)
			metrics.ProviderHeartbeatTotal.WithLabelValues(p.Name(), "fail").Inc()
		} else {
			logger.L().Debug("provider_heartbeat_ok", "name", p.Name())
			metrics.ProviderHeartbeatTotal.WithLabelValues(p.Name(), "ok").Inc()
		}
	}
}

type outcome struct {
	fix Fix
	err error
}

// GetCurrentPosition：异步定位，结果通过 success/failure 之一交付一次
func (h *Host) GetCurrentPosition(ctx context.Context, success PositionCallback, failure PositionErrorCallback, opts PositionOptions) {
	go h.run(ctx, success, failure, opts)
}

func (h *Host) run(ctx context.Context, success PositionCallback, failure PositionErrorCallback, opts PositionOptions) {
	if !h.consent.Load() {
		failure(&PositionError{Code: PermissionDenied, Message: "User denied Geolocation"})
		return
	}
	ip := ClientIP(ctx)
	if ip == "" && h.resolver != nil {
		if v, err := h.resolver.Resolve(ctx); err == nil {
			ip = v
		} else {
			logger.L().Debug("public_ip_resolve_error", "err", err)
		}
	}
	if opts.MaximumAge > 0 {
		if p, ok := h.last.Get(ip); ok && h.now().UnixMilli()-p.Timestamp <= opts.MaximumAge.Milliseconds() {
			logger.L().Debug("position_reused", "ip", ip, "timestamp", p.Timestamp)
			success(p)
			return
		}
	}
	lctx, cancel := context.WithCancel(ctx)
	defer cancel()
	var timer <-chan time.Time
	if opts.Timeout > 0 {
		t := time.NewTimer(opts.Timeout)
		defer t.Stop()
		timer = t.C
	}
	done := make(chan outcome, 1)
	go func() {
		fix, err := h.locate(lctx, ip, opts.EnableHighAccuracy)
		done <- outcome{fix: fix, err: err}
	}()
	select {
	case <-timer:
		failure(&PositionError{Code: Timeout, Message: "Timeout expired"})
	case <-ctx.Done():
		failure(&PositionError{Code: Unknown, Message: ctx.Err().Error()})
	case o := <-done:
		if o.err != nil {
			if ctx.Err() != nil {
				failure(&PositionError{Code: Unknown, Message: ctx.Err().Error()})
				return
			}
			failure(classify(o.err))
			return
		}
		at := o.fix.At
		if at.IsZero() {
			at = h.now()
		}
		p := Position{
			Coords: Coordinates{
				Latitude:  o.fix.Coordinate.Lat,
				Longitude: o.fix.Coordinate.Lng,
				Accuracy:  o.fix.AccuracyM,
			},
			Timestamp: at.UnixMilli(),
		}
		h.last.Set(ip, p)
		success(p)
	}
}

func classify(err error) *PositionError {
	switch {
	case errors.Is(err, ErrPermission):
		return &PositionError{Code: PermissionDenied, Message: err.Error()}
	case errors.Is(err, ErrNoFix):
		return &PositionError{Code: PositionUnavailable, Message: err.Error()}
	}
	return &PositionError{Code: Unknown, Message: err.Error()}
}

// locate：按精度模式调度健康提供者；全部失败时返回注册顺序中第一个错误
func (h *Host) locate(ctx context.Context, ip string, high bool) (Fix, error) {
	ps := h.HealthyProviders()
	if len(ps) == 0 {
		return Fix{}, fmt.Errorf("%w: no healthy provider", ErrNoFix)
	}
	logger.L().Debug("locate_begin", "ip", ip, "healthy", len(ps), "high_accuracy", high)
	if !high {
		var first error
		for _, p := range ps {
			fix, err := h.query(ctx, p, ip)
			if err == nil {
				return fix, nil
			}
			if first == nil {
				first = err
			}
			if ctx.Err() != nil {
				break
			}
		}
		return Fix{}, first
	}
	fixes := make([]Fix, len(ps))
	errs := make([]error, len(ps))
	var g errgroup.Group
	for i, p := range ps {
		g.Go(func() error {
			fixes[i], errs[i] = h.query(ctx, p, ip)
			return nil
		})
	}
	_ = g.Wait()
	best := -1
	for i := range ps {
		if errs[i] != nil {
			continue
		}
		if best == -1 || fixes[i].AccuracyM < fixes[best].AccuracyM {
			best = i
		}
	}
	if best >= 0 {
		logger.L().Debug("locate_best", "provider", ps[best].Name(), "accuracy_m", fixes[best].AccuracyM)
		return fixes[best], nil
	}
	return Fix{}, errs[0]
}

func (h *Host) query(ctx context.Context, p Provider, ip string) (Fix, error) {
	t0 := time.Now()
	metrics.ProviderRequestsTotal.WithLabelValues(p.Name()).Inc()
	fix, err := p.Locate(ctx, ip)
	metrics.ProviderDurationMs.WithLabelValues(p.Name()).Observe(float64(time.Since(t0).Milliseconds()))
	if err != nil {
		metrics.ProviderFailTotal.WithLabelValues(p.Name()).Inc()
		logger.L().Debug("provider_locate_fail", "name", p.Name(), "ip", ip, "err", err)
		return Fix{}, fmt.Errorf("%s: %w", p.Name(), err)
	}
	metrics.ProviderSuccessTotal.WithLabelValues(p.Name()).Inc()
	logger.L().Debug("provider_locate_ok", "name", p.Name(), "ip", ip, "lat", fix.Coordinate.Lat, "lng", fix.Coordinate.Lng, "accuracy_m", fix.AccuracyM)
	return fix, nil
}
