package geolocation

import (
	"context"
	"fmt"
	"net"

	"github.com/oschwald/geoip2-golang"
)

// 文档注释：GeoIP2/GeoLite2-City 本地库提供者
// 背景：离线查询目标地址的城市级坐标；库自带 accuracy_radius（千米），换算为米作为精度。
// 约束：坐标与精度半径皆为零视为未命中。
type GeoIP2Provider struct {
	r *geoip2.Reader
}

func NewGeoIP2Provider(path string) (*GeoIP2Provider, error) {
	r, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open geoip2 %q: %w", path, err)
	}
	return &GeoIP2Provider{r: r}, nil
}

func (p *GeoIP2Provider) Name() string                        { return "geoip2" }
func (p *GeoIP2Provider) Heartbeat(ctx context.Context) error { return nil }
func (p *GeoIP2Provider) Close() error                        { return p.r.Close() }

func (p *GeoIP2Provider) Locate(ctx context.Context, ip string) (Fix, error) {
	addr := net.ParseIP(ip)
	if addr == nil {
		return Fix{}, fmt.Errorf("%w: invalid ip %q", ErrNoFix, ip)
	}
	rec, err := p.r.City(addr)
	if err != nil {
		return Fix{}, err
	}
	loc := rec.Location
	if loc.Latitude == 0 && loc.Longitude == 0 && loc.AccuracyRadius == 0 {
		return Fix{}, fmt.Errorf("%w: %s not in geoip2 database", ErrNoFix, ip)
	}
	return Fix{
		Coordinate: coord(loc.Latitude, loc.Longitude),
		AccuracyM:  float64(loc.AccuracyRadius) * 1000,
	}, nil
}
