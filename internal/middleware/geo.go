// 包 middleware：HTTP 入口中间件
package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"

	"geoloc/internal/config"
	"geoloc/internal/geolocation"
	"geoloc/internal/logger"
)

// 文档注释：访问者地址与边缘地理上下文注入
// 背景：定位以请求方为目标；代理链路下源地址取自常见转发头，CDN 改写的地理头转为 EdgeGeo 供边缘提供者读取。
// 约束：解析失败不阻断请求；经纬度两项齐全且在合法范围内才视为有坐标。
func GeoContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ip := ClientIP(r)
		if ip != "" {
			ctx = geolocation.WithClientIP(ctx, ip)
		}
		if g, ok := parseEdgeGeo(r); ok {
			if g.ClientIP == "" {
				g.ClientIP = ip
			}
			logger.L().Debug("edge_geo_inject", "source", g.Source, "ip", g.ClientIP, "country", g.Country, "city", g.City, "lat", g.Latitude, "lng", g.Longitude)
			ctx = geolocation.WithEdgeGeo(ctx, g)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClientIP：优先参数 ip，其次常见反向代理头，最后连接远端地址
func ClientIP(r *http.Request) string {
	if q := strings.TrimSpace(r.URL.Query().Get("ip")); q != "" {
		return q
	}
	h := r.Header
	if x := h.Get("x-forwarded-for"); x != "" {
		return strings.TrimSpace(strings.Split(x, ",")[0])
	}
	for _, k := range []string{"cf-connecting-ip", "x-real-ip", "x-client-ip", "x-edge-client-ip", "x-edgeone-ip", "X-EO-Client-IP"} {
		if x := strings.TrimSpace(h.Get(k)); x != "" {
			return x
		}
	}
	if x := h.Get("forwarded"); x != "" {
		if i := strings.Index(strings.ToLower(x), "for="); i >= 0 {
			y := x[i+4:]
			if p := strings.IndexAny(y, ";,"); p >= 0 {
				y = y[:p]
			}
			y = strings.Trim(y, "\" ")
			y = strings.TrimSuffix(strings.TrimPrefix(y, "["), "]")
			return y
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// parseEdgeGeo：EdgeOne（X-EO-Geo-*）优先，其次 Cloudflare（cf-ipcountry / cf-iplatitude）
func parseEdgeGeo(r *http.Request) (geolocation.EdgeGeo, bool) {
	h := r.Header
	var g geolocation.EdgeGeo
	switch {
	case h.Get("X-EO-Geo-Country") != "" || h.Get("X-EO-Geo-Latitude") != "":
		g.Source = "edgeone"
		g.ClientIP = h.Get("X-EO-Client-IP")
		g.Country = h.Get("X-EO-Geo-Country")
		g.Region = h.Get("X-EO-Geo-Region")
		g.City = h.Get("X-EO-Geo-City")
		g.Latitude, g.Longitude, g.HasCoords = parseLatLng(h.Get("X-EO-Geo-Latitude"), h.Get("X-EO-Geo-Longitude"))
	case h.Get("cf-ipcountry") != "" || h.Get("cf-iplatitude") != "":
		g.Source = "cloudflare"
		g.ClientIP = h.Get("cf-connecting-ip")
		g.Country = h.Get("cf-ipcountry")
		g.Region = h.Get("cf-region")
		g.City = h.Get("cf-ipcity")
		g.Latitude, g.Longitude, g.HasCoords = parseLatLng(h.Get("cf-iplatitude"), h.Get("cf-iplongitude"))
	default:
		return g, false
	}
	return g, true
}

func parseLatLng(latS, lngS string) (float64, float64, bool) {
	lat, err1 := strconv.ParseFloat(strings.TrimSpace(latS), 64)
	lng, err2 := strconv.ParseFloat(strings.TrimSpace(lngS), 64)
	if err1 != nil || err2 != nil || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return 0, 0, false
	}
	return lat, lng, true
}

// Wrap：按配置串联限流与地理上下文注入
func Wrap(c config.Config, next http.Handler) http.Handler {
	h := GeoContext(next)
	if c.RateLimitEnabled {
		h = RateLimit(NewTokenBucket(c.RateLimitQPS))(h)
	}
	return h
}
