package geolocation

import (
	"context"
	"errors"
	"fmt"

	"geoloc/internal/amap"
	"geoloc/internal/geo"
)

// 文档注释：高德 IP 定位提供者
// 背景：国内地址的城市级在线定位；取城市矩形中心（转换为 WGS84）作为坐标，半对角线长度作为精度。
// 约束：密钥类错误映射为 ErrPermission；境外/无数据映射为 ErrNoFix。
type AMapProvider struct {
	c *amap.Client
}

func NewAMapProvider(c *amap.Client) *AMapProvider { return &AMapProvider{c: c} }

func (p *AMapProvider) Name() string                        { return "amap" }
func (p *AMapProvider) Heartbeat(ctx context.Context) error { return nil }

func (p *AMapProvider) Locate(ctx context.Context, ip string) (Fix, error) {
	r, err := p.c.QueryIP(ctx, ip)
	if err != nil {
		var ke *amap.KeyError
		switch {
		case errors.As(err, &ke):
			return Fix{}, fmt.Errorf("%w: %v", ErrPermission, err)
		case errors.Is(err, amap.ErrNotFound):
			return Fix{}, fmt.Errorf("%w: %v", ErrNoFix, err)
		}
		return Fix{}, err
	}
	swLat, swLng, neLat, neLng, err := amap.ParseRectangle(string(r.Rectangle))
	if err != nil {
		return Fix{}, err
	}
	swLat, swLng = amap.GCJ02ToWGS84(swLat, swLng)
	neLat, neLng = amap.GCJ02ToWGS84(neLat, neLng)
	sw := geo.Coordinate{Lat: swLat, Lng: swLng}
	ne := geo.Coordinate{Lat: neLat, Lng: neLng}
	center := geo.Coordinate{Lat: (swLat + neLat) / 2, Lng: (swLng + neLng) / 2}
	return Fix{Coordinate: center, AccuracyM: geo.DistanceKm(sw, ne) * 1000 / 2}, nil
}
