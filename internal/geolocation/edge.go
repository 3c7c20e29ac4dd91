package geolocation

import (
	"context"
	"fmt"
)

// 文档注释：CDN 边缘地理头提供者
// 背景：EdgeOne/Cloudflare 等边缘节点已按访问者地址解析出经纬度并改写到请求头，中间件将其注入上下文。
// 约束：仅在 HTTP 请求链路中有效；上下文无坐标时返回 ErrNoFix；精度按城市级处理。
type EdgeProvider struct{}

func NewEdgeProvider() *EdgeProvider { return &EdgeProvider{} }

func (p *EdgeProvider) Name() string                        { return "edge" }
func (p *EdgeProvider) Heartbeat(ctx context.Context) error { return nil }

func (p *EdgeProvider) Locate(ctx context.Context, ip string) (Fix, error) {
	g, ok := EdgeGeoFrom(ctx)
	if !ok || !g.HasCoords {
		return Fix{}, fmt.Errorf("%w: no edge geo headers", ErrNoFix)
	}
	return Fix{Coordinate: coord(g.Latitude, g.Longitude), AccuracyM: CityAccuracyM}, nil
}
