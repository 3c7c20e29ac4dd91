package geolocation

import (
	"context"
	"time"

	"geoloc/internal/geo"
)

// 文档注释：定位提供者（统一契约）
// 背景：抽象各数据源为同构提供者，宿主按健康状态与精度统一调度。
// 约束：Locate 的 ip 为待定位的目标地址（可能为空，依赖 IP 的提供者此时返回 ErrNoFix）；
// Heartbeat 用于健康检测，失败的提供者在下次心跳恢复前不参与定位。
type Provider interface {
	Name() string
	Locate(ctx context.Context, ip string) (Fix, error)
	Heartbeat(ctx context.Context) error
}

// Fix：提供者给出的定位结果；At 为零值时由宿主补当前时间
type Fix struct {
	Coordinate geo.Coordinate
	AccuracyM  float64
	At         time.Time
}

type ctxKey string

const (
	clientIPKey ctxKey = "client_ip"
	edgeGeoKey  ctxKey = "edge_geo"
)

// WithClientIP：指定本次定位的目标地址（HTTP 请求方）；未指定时使用宿主公网地址
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey, ip)
}

func ClientIP(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey).(string)
	return ip
}

// EdgeGeo：CDN 边缘节点改写到请求头中的地理信息
type EdgeGeo struct {
	Source    string
	ClientIP  string
	Country   string
	Region    string
	City      string
	Latitude  float64
	Longitude float64
	HasCoords bool
}

func WithEdgeGeo(ctx context.Context, g EdgeGeo) context.Context {
	return context.WithValue(ctx, edgeGeoKey, g)
}

func EdgeGeoFrom(ctx context.Context) (EdgeGeo, bool) {
	g, ok := ctx.Value(edgeGeoKey).(EdgeGeo)
	return g, ok
}
