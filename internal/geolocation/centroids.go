package geolocation

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"geoloc/internal/geo"
)

// 行政区级别对应的精度（米）：质心到边界的典型距离
const (
	CityAccuracyM     = 25000
	ProvinceAccuracyM = 200000
	CountryAccuracyM  = 1000000
)

// Centroid：行政区质心表项
type Centroid struct {
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lon"`
	Country  string  `json:"country"`
	Province string  `json:"province"`
	City     string  `json:"city"`
}

// 文档注释：质心表（城市/省/国家 → 坐标）
// 背景：文本型归属地库（如 ip2region）不含坐标，借助质心表换算出近似位置与精度。
// 约束：仅按名称精确匹配，兼容去掉"省"/"市"后缀的写法；同名以先出现者为准。
type Centroids struct {
	city     map[string]geo.Coordinate
	province map[string]geo.Coordinate
	country  map[string]geo.Coordinate
}

// LoadCentroids：读取 JSON 数组文件（city_centroids.json）
func LoadCentroids(path string) (*Centroids, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read centroids %q: %w", path, err)
	}
	var cs []Centroid
	if err := json.Unmarshal(b, &cs); err != nil {
		return nil, fmt.Errorf("parse centroids %q: %w", path, err)
	}
	return NewCentroids(cs), nil
}

func NewCentroids(cs []Centroid) *Centroids {
	t := &Centroids{
		city:     make(map[string]geo.Coordinate),
		province: make(map[string]geo.Coordinate),
		country:  make(map[string]geo.Coordinate),
	}
	for _, c := range cs {
		pt := geo.Coordinate{Lat: c.Lat, Lng: c.Lng}
		switch {
		case c.City != "":
			putOnce(t.city, c.City, pt)
		case c.Province != "":
			putOnce(t.province, c.Province, pt)
		case c.Country != "":
			putOnce(t.country, c.Country, pt)
		}
	}
	return t
}

func putOnce(m map[string]geo.Coordinate, name string, pt geo.Coordinate) {
	k := normName(name)
	if _, ok := m[k]; !ok {
		m[k] = pt
	}
}

func normName(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "市")
	s = strings.TrimSuffix(s, "省")
	return strings.ToLower(s)
}

// Resolve：按城市 → 省 → 国家的顺序查找，返回坐标与对应精度
func (t *Centroids) Resolve(country, province, city string) (geo.Coordinate, float64, bool) {
	if city != "" {
		if pt, ok := t.city[normName(city)]; ok {
			return pt, CityAccuracyM, true
		}
	}
	if province != "" {
		if pt, ok := t.province[normName(province)]; ok {
			return pt, ProvinceAccuracyM, true
		}
	}
	if country != "" {
		if pt, ok := t.country[normName(country)]; ok {
			return pt, CountryAccuracyM, true
		}
	}
	return geo.Coordinate{}, 0, false
}
