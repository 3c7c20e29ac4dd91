// 包 geolocation：宿主侧"获取当前位置"能力
// 背景：以回调形式异步交付一次定位结果（成功或失败），选项与错误码对齐常见宿主定位接口；
// 底层由若干定位提供者（静态配置、GeoIP 库、ip2region、HTTP 服务、CDN 地理头）组成。
package geolocation

import (
	"context"
	"errors"
	"time"
)

// 宿主错误码：与浏览器 GeolocationPositionError 数值一致；其它取值表示未分类错误
const (
	Unknown             = 0
	PermissionDenied    = 1
	PositionUnavailable = 2
	Timeout             = 3
)

// PositionOptions：单次定位请求选项
// 约束：Timeout<=0 表示不限时；MaximumAge==0 表示必须重新定位，不复用历史结果。
type PositionOptions struct {
	EnableHighAccuracy bool
	Timeout            time.Duration
	MaximumAge         time.Duration
}

// Coordinates：定位坐标与精度（米）
type Coordinates struct {
	Latitude  float64
	Longitude float64
	Accuracy  float64
}

// Position：一次成功定位；Timestamp 为毫秒时间戳
type Position struct {
	Coords    Coordinates
	Timestamp int64
}

// PositionError：一次失败定位
type PositionError struct {
	Code    int
	Message string
}

func (e *PositionError) Error() string { return e.Message }

type (
	PositionCallback      func(Position)
	PositionErrorCallback func(*PositionError)
)

// 文档注释：宿主定位能力
// 约束：调用立即返回；success 与 failure 二者之一且仅被调用一次，调用发生在其它协程。
type Geolocation interface {
	GetCurrentPosition(ctx context.Context, success PositionCallback, failure PositionErrorCallback, opts PositionOptions)
}

// 提供者错误分类：ErrPermission → PermissionDenied；ErrNoFix → PositionUnavailable；其余 → Unknown
var (
	ErrPermission = errors.New("geolocation: permission rejected by provider")
	ErrNoFix      = errors.New("geolocation: no position fix")
)
