package geo

import "math"

// 文档注释：geohash 编码（base32）
// 背景：用作附近门店缓存键；精度 6 约 1.2km × 0.6km。
var base32 = []byte("0123456789bcdefghjkmnpqrstuvwxyz")

// Geohash：precision<=0 时按 6 处理
func Geohash(c Coordinate, precision int) string {
	if precision <= 0 {
		precision = 6
	}
	latInt := [2]float64{-90, 90}
	lngInt := [2]float64{-180, 180}
	bits := [5]int{16, 8, 4, 2, 1}
	bit, ch := 0, 0
	even := true
	out := make([]byte, 0, precision)
	for len(out) < precision {
		if even {
			mid := (lngInt[0] + lngInt[1]) / 2
			if c.Lng >= mid {
				ch |= bits[bit]
				lngInt[0] = mid
			} else {
				lngInt[1] = mid
			}
		} else {
			mid := (latInt[0] + latInt[1]) / 2
			if c.Lat >= mid {
				ch |= bits[bit]
				latInt[0] = mid
			} else {
				latInt[1] = mid
			}
		}
		even = !even
		if bit < 4 {
			bit++
		} else {
			out = append(out, base32[ch])
			bit, ch = 0, 0
		}
	}
	return string(out)
}

// Box：经纬度包围盒
type Box struct {
	MinLat, MinLng, MaxLat, MaxLng float64
}

// Contains：包含边界
func (b Box) Contains(c Coordinate) bool {
	return c.Lat >= b.MinLat && c.Lat <= b.MaxLat && c.Lng >= b.MinLng && c.Lng <= b.MaxLng
}

// 文档注释：以 center 为中心、半径 miles 的包围盒
// 背景：作为数据库侧的粗筛条件，精确距离仍由 Distance 计算。
// 约束：经度半宽取球面圆的真实最大经差 asin(sin δ / cos φ)，高纬度下宽于 δ / cos φ；
// 圆覆盖极点或跨越 ±180° 经线时退化为全经度范围。
func BoundingBox(center Coordinate, miles float64) Box {
	delta := miles / EarthRadiusMiles
	dLat := delta * 180 / math.Pi
	b := Box{
		MinLat: math.Max(center.Lat-dLat, -90),
		MaxLat: math.Min(center.Lat+dLat, 90),
		MinLng: -180,
		MaxLng: 180,
	}
	if b.MinLat == -90 || b.MaxLat == 90 {
		return b
	}
	ratio := math.Sin(delta) / math.Cos(toRadians(center.Lat))
	if ratio >= 1 {
		return b
	}
	dLng := math.Asin(ratio) * 180 / math.Pi
	if center.Lng-dLng < -180 || center.Lng+dLng > 180 {
		return b
	}
	b.MinLng = center.Lng - dLng
	b.MaxLng = center.Lng + dLng
	return b
}
