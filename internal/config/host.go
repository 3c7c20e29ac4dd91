package config

import (
	"net/http"
	"time"

	"geoloc/internal/amap"
	"geoloc/internal/geolocation"
	"geoloc/internal/logger"
)

// 文档注释：按配置组装定位宿主
// 背景：提供者按精度从高到低注册（固定坐标、边缘头、GeoIP2、MMDB、ip2region、外部 HTTP、AMap），
// 非高精度模式下即按此顺序取第一个成功结果。
// 约束：单个数据源打开失败只记录错误并跳过；一个提供者都没有时返回 nil，表示宿主不具备定位能力。
// 返回：宿主与释放数据库文件句柄的关闭函数（总是非 nil）。
func BuildHost(c Config) (*geolocation.Host, func()) {
	l := logger.L()
	p := c.Providers
	var closers []func()
	closeAll := func() {
		for _, f := range closers {
			f()
		}
	}
	h := geolocation.NewHost(
		geolocation.WithHeartbeatInterval(c.HeartbeatInterval),
		geolocation.WithResolver(geolocation.NewPublicIP(p.PublicIP, p.PublicIPEndpoint, 10*time.Minute)),
	)
	h.SetConsent(c.LocationConsent)

	if p.Static {
		h.Register(geolocation.NewStaticProvider(p.StaticLat, p.StaticLng, p.StaticAccuracyM))
	}
	if p.EdgeGeo {
		h.Register(geolocation.NewEdgeProvider())
	}
	if p.GeoIP2CityPath != "" {
		if g, err := geolocation.NewGeoIP2Provider(p.GeoIP2CityPath); err == nil {
			h.Register(g)
			closers = append(closers, func() { _ = g.Close() })
		} else {
			l.Error("geoip2_open_error", "path", p.GeoIP2CityPath, "err", err)
		}
	}
	if p.MMDBPath != "" {
		if m, err := geolocation.NewMMDBProvider(p.MMDBPath); err == nil {
			h.Register(m)
			closers = append(closers, func() { _ = m.Close() })
		} else {
			l.Error("mmdb_open_error", "path", p.MMDBPath, "err", err)
		}
	}
	if p.IP2RegionV4Path != "" || p.IP2RegionV6Path != "" {
		table, err := geolocation.LoadCentroids(p.CentroidsPath)
		if err != nil {
			l.Error("centroids_load_error", "path", p.CentroidsPath, "err", err)
		} else if r, err := geolocation.NewIP2RegionProvider(p.IP2RegionV4Path, p.IP2RegionV6Path, table); err == nil {
			h.Register(r)
			closers = append(closers, r.Close)
		} else {
			l.Error("ip2region_open_error", "err", err)
		}
	}
	if p.IPGeoEndpoint != "" {
		h.Register(geolocation.NewHTTPProvider(p.IPGeoName, p.IPGeoEndpoint, &http.Client{Timeout: 4 * time.Second}))
	}
	if p.AMapKey != "" {
		h.Register(geolocation.NewAMapProvider(amap.NewClient(p.AMapKey, &http.Client{Timeout: 4 * time.Second})))
	}

	if h.Len() == 0 {
		l.Info("geolocation_unavailable", "reason", "no_providers")
		closeAll()
		return nil, func() {}
	}
	l.Info("geolocation_ready", "providers", h.Len(), "consent", c.LocationConsent)
	return h, closeAll
}
