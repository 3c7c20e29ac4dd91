package geolocation

import (
	"context"

	"geoloc/internal/geo"
)

// StaticProvider：固定坐标（部署位置已知的设备或测试环境）
type StaticProvider struct {
	c         geo.Coordinate
	accuracyM float64
}

func NewStaticProvider(lat, lng, accuracyM float64) *StaticProvider {
	return &StaticProvider{c: geo.Coordinate{Lat: lat, Lng: lng}, accuracyM: accuracyM}
}

func (s *StaticProvider) Name() string                        { return "static" }
func (s *StaticProvider) Heartbeat(ctx context.Context) error { return nil }

func (s *StaticProvider) Locate(ctx context.Context, ip string) (Fix, error) {
	return Fix{Coordinate: s.c, AccuracyM: s.accuracyM}, nil
}
