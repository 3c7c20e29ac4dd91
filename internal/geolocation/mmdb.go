package geolocation

import (
	"context"
	"fmt"
	"net"

	"geoloc/internal/geo"

	"github.com/oschwald/maxminddb-golang"
)

// DefaultMMDBAccuracyM：库内无 accuracy_radius 字段时采用的精度（城市级）
const DefaultMMDBAccuracyM = 25000

// mmdbRecord：通用城市库（DB-IP Lite、IPinfo 等）常见的 location 结构
type mmdbRecord struct {
	Location struct {
		Latitude       float64 `maxminddb:"latitude"`
		Longitude      float64 `maxminddb:"longitude"`
		AccuracyRadius uint16  `maxminddb:"accuracy_radius"`
	} `maxminddb:"location"`
}

// 文档注释：通用 MMDB 提供者
// 背景：非 MaxMind 出品但遵循相同 location 结构的城市库通过该提供者接入。
// 约束：以网段命中判定是否存在记录；未命中返回 ErrNoFix。
type MMDBProvider struct {
	r *maxminddb.Reader
}

func NewMMDBProvider(path string) (*MMDBProvider, error) {
	r, err := maxminddb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open mmdb %q: %w", path, err)
	}
	return &MMDBProvider{r: r}, nil
}

func (p *MMDBProvider) Name() string                        { return "mmdb" }
func (p *MMDBProvider) Heartbeat(ctx context.Context) error { return nil }
func (p *MMDBProvider) Close() error                        { return p.r.Close() }

func (p *MMDBProvider) Locate(ctx context.Context, ip string) (Fix, error) {
	addr := net.ParseIP(ip)
	if addr == nil {
		return Fix{}, fmt.Errorf("%w: invalid ip %q", ErrNoFix, ip)
	}
	var rec mmdbRecord
	_, ok, err := p.r.LookupNetwork(addr, &rec)
	if err != nil {
		return Fix{}, err
	}
	if !ok {
		return Fix{}, fmt.Errorf("%w: %s not in mmdb", ErrNoFix, ip)
	}
	acc := float64(rec.Location.AccuracyRadius) * 1000
	if acc == 0 {
		acc = DefaultMMDBAccuracyM
	}
	return Fix{Coordinate: coord(rec.Location.Latitude, rec.Location.Longitude), AccuracyM: acc}, nil
}

func coord(lat, lng float64) geo.Coordinate { return geo.Coordinate{Lat: lat, Lng: lng} }
