// 包 geo：坐标值类型与球面距离计算（十进制度，WGS84）
package geo

import "math"

// EarthRadiusMiles：地球平均半径（英里）
const EarthRadiusMiles = 3958.8

// EarthRadiusKm：地球平均半径（千米）
const EarthRadiusKm = 6371.0

// Coordinate：经纬度坐标（十进制度），值类型，不可变
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid：纬度 [-90,90]、经度 [-180,180] 且非 NaN
func (c Coordinate) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

func toRadians(deg float64) float64 { return deg * math.Pi / 180 }

// 文档注释：两点间大圆距离（Haversine），返回英里
// 约束：同一点返回 0；参数交换结果完全相等；不做范围校验，越界输入可能返回 NaN 但不会 panic。
func Distance(from, to Coordinate) float64 {
	return EarthRadiusMiles * centralAngle(from, to)
}

// DistanceKm：同 Distance，返回千米；用于与定位精度（米）比较
func DistanceKm(from, to Coordinate) float64 {
	return EarthRadiusKm * centralAngle(from, to)
}

func centralAngle(from, to Coordinate) float64 {
	dLat := toRadians(to.Lat - from.Lat)
	dLng := toRadians(to.Lng - from.Lng)
	sLat := math.Sin(dLat / 2)
	sLng := math.Sin(dLng / 2)
	a := sLat*sLat + math.Cos(toRadians(from.Lat))*math.Cos(toRadians(to.Lat))*sLng*sLng
	return 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
