package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceSamePoint(t *testing.T) {
	p := Coordinate{Lat: 40.7128, Lng: -74.006}
	assert.Equal(t, 0.0, Distance(p, p))
}

func TestDistanceNewYorkLosAngeles(t *testing.T) {
	nyc := Coordinate{Lat: 40.7128, Lng: -74.006}
	la := Coordinate{Lat: 34.0522, Lng: -118.2437}
	d := Distance(nyc, la)
	assert.Greater(t, d, 2400.0)
	assert.Less(t, d, 2500.0)
}

func TestDistanceAntipodalOnEquator(t *testing.T) {
	d := Distance(Coordinate{Lat: 0, Lng: 0}, Coordinate{Lat: 0, Lng: 180})
	assert.Greater(t, d, 12400.0)
	assert.Less(t, d, 12500.0)
	assert.InDelta(t, math.Pi*EarthRadiusMiles, d, 1e-9)
}

func TestDistanceSmall(t *testing.T) {
	a := Coordinate{Lat: 51.5074, Lng: -0.1278}
	b := Coordinate{Lat: 51.5076, Lng: -0.128}
	d := Distance(a, b)
	assert.Greater(t, d, 0.0)
	assert.Less(t, d, 0.03)
}

func TestDistanceSymmetric(t *testing.T) {
	pairs := [][2]Coordinate{
		{{Lat: 35.6762, Lng: 139.6503}, {Lat: -33.8688, Lng: 151.2093}},
		{{Lat: 40.7128, Lng: -74.006}, {Lat: 34.0522, Lng: -118.2437}},
		{{Lat: -89.9, Lng: 179.9}, {Lat: 89.9, Lng: -179.9}},
	}
	for _, p := range pairs {
		assert.Equal(t, Distance(p[0], p[1]), Distance(p[1], p[0]))
	}
}

func TestDistanceMonotonic(t *testing.T) {
	origin := Coordinate{}
	prev := 0.0
	for lng := 10.0; lng <= 180; lng += 10 {
		d := Distance(origin, Coordinate{Lng: lng})
		assert.Greater(t, d, prev)
		prev = d
	}
}

func TestDistanceOutOfRangeDoesNotPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		_ = Distance(Coordinate{Lat: 1000, Lng: -5000}, Coordinate{Lat: math.NaN(), Lng: 0})
	})
}

func TestDistanceKm(t *testing.T) {
	d := DistanceKm(Coordinate{Lat: 0, Lng: 0}, Coordinate{Lat: 0, Lng: 1})
	assert.InDelta(t, 111.19, d, 0.01)
}

func TestValid(t *testing.T) {
	assert.True(t, Coordinate{Lat: 90, Lng: -180}.Valid())
	assert.False(t, Coordinate{Lat: 90.1, Lng: 0}.Valid())
	assert.False(t, Coordinate{Lat: 0, Lng: 181}.Valid())
	assert.False(t, Coordinate{Lat: math.NaN(), Lng: 0}.Valid())
}

func TestGeohash(t *testing.T) {
	// 参考值：wikipedia geohash 示例（57.64911, 10.40744）→ u4pruydqqvj
	assert.Equal(t, "u4pruy", Geohash(Coordinate{Lat: 57.64911, Lng: 10.40744}, 6))
	assert.Equal(t, "u4pruydqqvj", Geohash(Coordinate{Lat: 57.64911, Lng: 10.40744}, 11))
	assert.Len(t, Geohash(Coordinate{}, 0), 6)
}

func TestBoundingBox(t *testing.T) {
	c := Coordinate{Lat: 40.7128, Lng: -74.006}
	b := BoundingBox(c, 10)
	assert.True(t, b.Contains(c))
	north := Coordinate{Lat: b.MaxLat, Lng: c.Lng}
	assert.InDelta(t, 10, Distance(c, north), 1e-6)
	assert.False(t, b.Contains(Coordinate{Lat: 41.2, Lng: -74.006}))

	polar := BoundingBox(Coordinate{Lat: 90, Lng: 0}, 10)
	assert.Equal(t, -180.0, polar.MinLng)
	assert.Equal(t, 180.0, polar.MaxLng)
}

// destination：从 c 沿 bearing 方位行进 miles 后的点
func destination(c Coordinate, bearingDeg, miles float64) Coordinate {
	d := miles / EarthRadiusMiles
	lat1, lng1, br := toRadians(c.Lat), toRadians(c.Lng), toRadians(bearingDeg)
	lat2 := math.Asin(math.Sin(lat1)*math.Cos(d) + math.Cos(lat1)*math.Sin(d)*math.Cos(br))
	lng2 := lng1 + math.Atan2(math.Sin(br)*math.Sin(d)*math.Cos(lat1), math.Cos(d)-math.Sin(lat1)*math.Sin(lat2))
	return Coordinate{Lat: lat2 * 180 / math.Pi, Lng: lng2 * 180 / math.Pi}
}

func TestBoundingBoxCoversCircleAtHighLatitude(t *testing.T) {
	c := Coordinate{Lat: 70, Lng: 20}
	const r = 500.0
	b := BoundingBox(c, r)
	for bearing := 0.0; bearing < 360; bearing += 0.5 {
		p := destination(c, bearing, r*0.999)
		assert.True(t, b.Contains(p), "bearing=%v point=%+v box=%+v", bearing, p, b)
	}
	// 中心纬度余弦给出的半宽在此处偏窄
	centerCos := r / EarthRadiusMiles * 180 / math.Pi / math.Cos(toRadians(c.Lat))
	assert.Greater(t, b.MaxLng-c.Lng, centerCos)
}
