package geolocation

import (
	"context"
	"fmt"
	"strings"

	"github.com/lionsoul2014/ip2region/binding/golang/xdb"
)

// Region：ip2region 文本结果拆分后的归属地
type Region struct {
	Country  string
	Region   string
	Province string
	City     string
	ISP      string
}

// 文档注释：ip2region 提供者
// 背景：基于 v4/v6 XDB 本地库得到归属地文本，再经质心表换算坐标；作为无 GeoIP 库时的离线兜底。
// 约束：质心表缺少对应名称时视为未命中。
type IP2RegionProvider struct {
	v4    *xdb.Searcher
	v6    *xdb.Searcher
	table *Centroids
}

func NewIP2RegionProvider(v4Path, v6Path string, table *Centroids) (*IP2RegionProvider, error) {
	p := &IP2RegionProvider{table: table}
	var err error
	if v4Path != "" {
		if p.v4, err = xdb.NewWithFileOnly(xdb.IPv4, v4Path); err != nil {
			return nil, fmt.Errorf("open ip2region v4 %q: %w", v4Path, err)
		}
	}
	if v6Path != "" {
		if p.v6, err = xdb.NewWithFileOnly(xdb.IPv6, v6Path); err != nil {
			return nil, fmt.Errorf("open ip2region v6 %q: %w", v6Path, err)
		}
	}
	return p, nil
}

func (p *IP2RegionProvider) Name() string                        { return "ip2region" }
func (p *IP2RegionProvider) Heartbeat(ctx context.Context) error { return nil }

func (p *IP2RegionProvider) Close() {
	if p.v4 != nil {
		p.v4.Close()
	}
	if p.v6 != nil {
		p.v6.Close()
	}
}

func (p *IP2RegionProvider) Locate(ctx context.Context, ip string) (Fix, error) {
	if ip == "" {
		return Fix{}, fmt.Errorf("%w: no target ip", ErrNoFix)
	}
	r, ok := p.search(ip)
	if !ok {
		return Fix{}, fmt.Errorf("%w: %s not in ip2region", ErrNoFix, ip)
	}
	if p.table == nil {
		return Fix{}, fmt.Errorf("%w: no centroid table", ErrNoFix)
	}
	pt, acc, ok := p.table.Resolve(r.Country, r.Province, r.City)
	if !ok {
		return Fix{}, fmt.Errorf("%w: no centroid for %s/%s/%s", ErrNoFix, r.Country, r.Province, r.City)
	}
	return Fix{Coordinate: pt, AccuracyM: acc}, nil
}

func (p *IP2RegionProvider) search(ip string) (Region, bool) {
	for _, s := range []*xdb.Searcher{p.v4, p.v6} {
		if s == nil {
			continue
		}
		if region, err := s.SearchByStr(ip); err == nil && region != "" {
			return ParseRegion(region), true
		}
	}
	return Region{}, false
}

// ParseRegion：拆分"国家|区域|省份|城市|ISP"，"0"/"unknown" 视为空
func ParseRegion(s string) Region {
	parts := strings.Split(s, "|")
	field := func(i int) string {
		if i >= len(parts) {
			return ""
		}
		v := strings.TrimSpace(parts[i])
		if v == "0" || strings.EqualFold(v, "unknown") {
			return ""
		}
		return v
	}
	return Region{Country: field(0), Region: field(1), Province: field(2), City: field(3), ISP: field(4)}
}
