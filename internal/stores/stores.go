// 包 stores：门店目录与附近门店排序
package stores

import (
	"errors"
	"sort"

	"geoloc/internal/geo"
)

// ErrNotFound：门店不存在
var ErrNotFound = errors.New("store not found")

// Store：门店
type Store struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Location geo.Coordinate `json:"location"`
	Address  string         `json:"address"`
}

// StoreDistance：门店及其与参考点的距离（英里）
type StoreDistance struct {
	Store         Store   `json:"store"`
	DistanceMiles float64 `json:"distanceMiles"`
}

// 文档注释：按与 from 的大圆距离升序排列门店
// 约束：距离相同按 ID 升序保证结果稳定；limit<=0 返回全部；不修改入参切片。
func Rank(from geo.Coordinate, stores []Store, limit int) []StoreDistance {
	out := make([]StoreDistance, 0, len(stores))
	for _, s := range stores {
		out = append(out, StoreDistance{Store: s, DistanceMiles: geo.Distance(from, s.Location)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DistanceMiles != out[j].DistanceMiles {
			return out[i].DistanceMiles < out[j].DistanceMiles
		}
		return out[i].Store.ID < out[j].Store.ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Within：仅保留距离不超过 miles 的结果（输入需已排序）
func Within(ranked []StoreDistance, miles float64) []StoreDistance {
	for i, sd := range ranked {
		if sd.DistanceMiles > miles {
			return ranked[:i]
		}
	}
	return ranked
}
