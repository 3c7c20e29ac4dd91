package stores

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"geoloc/internal/cache"
	"geoloc/internal/geo"
	"geoloc/internal/logger"
	"geoloc/internal/metrics"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// Finder：矩形候选来源（Repository 实现）
type Finder interface {
	WithinBox(ctx context.Context, b geo.Box) ([]Store, error)
}

const (
	// DefaultRadiusMiles：附近搜索半径
	DefaultRadiusMiles = 25.0
	// 六位 geohash 网格对角线不足 1 英里，候选集外扩此距离后网格内任一点的结果都完整
	cellMarginMiles = 1.0
	cellPrecision   = 6
	keyPrefix       = "nearby:"
)

// 文档注释：附近门店查询
// 背景：候选集按查询点所在 geohash 网格缓存（Redis 优先，未配置时回退进程内 LRU），精确距离始终按查询点现算。
// 约束：同一网格的并发未命中经 singleflight 合并为一次数据库查询；缓存读写失败只记日志不影响结果。
type Nearby struct {
	src    Finder
	rc     *redis.Client
	local  *cache.LRU[string, []Store]
	ttl    time.Duration
	radius float64
	sf     singleflight.Group
}

type NearbyOption func(*Nearby)

// WithRedis：rc 为 nil 时使用进程内缓存
func WithRedis(rc *redis.Client) NearbyOption { return func(n *Nearby) { n.rc = rc } }

// WithTTL：候选集缓存时长，默认 24h
func WithTTL(d time.Duration) NearbyOption {
	return func(n *Nearby) {
		if d > 0 {
			n.ttl = d
		}
	}
}

func WithRadius(miles float64) NearbyOption {
	return func(n *Nearby) {
		if miles > 0 {
			n.radius = miles
		}
	}
}

func NewNearby(src Finder, opts ...NearbyOption) *Nearby {
	n := &Nearby{src: src, ttl: 24 * time.Hour, radius: DefaultRadiusMiles}
	for _, o := range opts {
		o(n)
	}
	n.local = cache.NewLRU[string, []Store](4096, n.ttl)
	return n
}

// Radius：当前搜索半径（英里）
func (n *Nearby) Radius() float64 { return n.radius }

// Find：返回半径内按距离升序的门店，limit<=0 表示不限
func (n *Nearby) Find(ctx context.Context, from geo.Coordinate, limit int) ([]StoreDistance, error) {
	key := fmt.Sprintf("%s%s:%g", keyPrefix, geo.Geohash(from, cellPrecision), n.radius)
	cands, err := n.candidates(ctx, key, from)
	if err != nil {
		return nil, err
	}
	out := Within(Rank(from, cands, 0), n.radius)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (n *Nearby) candidates(ctx context.Context, key string, from geo.Coordinate) ([]Store, error) {
	if cs, ok := n.cached(ctx, key); ok {
		metrics.NearbyCacheHitsTotal.Inc()
		return cs, nil
	}
	metrics.NearbyCacheMissesTotal.Inc()
	v, err, shared := n.sf.Do(key, func() (any, error) {
		if cs, ok := n.cached(ctx, key); ok {
			return cs, nil
		}
		cs, err := n.src.WithinBox(ctx, geo.BoundingBox(from, n.radius+cellMarginMiles))
		if err != nil {
			return nil, err
		}
		n.store(ctx, key, cs)
		return cs, nil
	})
	if err != nil {
		return nil, err
	}
	logger.L().Debug("nearby_candidates", "key", key, "shared", shared)
	return v.([]Store), nil
}

func (n *Nearby) cached(ctx context.Context, key string) ([]Store, bool) {
	if n.rc == nil {
		return n.local.Get(key)
	}
	s, err := n.rc.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.L().Debug("nearby_cache_get_error", "key", key, "err", err)
		}
		return nil, false
	}
	var cs []Store
	if err := json.Unmarshal([]byte(s), &cs); err != nil {
		logger.L().Debug("nearby_cache_decode_error", "key", key, "err", err)
		return nil, false
	}
	return cs, true
}

func (n *Nearby) store(ctx context.Context, key string, cs []Store) {
	if cs == nil {
		cs = []Store{}
	}
	if n.rc == nil {
		n.local.Set(key, cs)
		return
	}
	b, _ := json.Marshal(cs)
	if err := n.rc.Set(ctx, key, string(b), n.ttl).Err(); err != nil {
		logger.L().Debug("nearby_cache_set_error", "key", key, "err", err)
	}
}

// 文档注释：清空候选集缓存
// 背景：门店增删改后调用；Redis 侧按前缀 SCAN 删除。
func (n *Nearby) Invalidate(ctx context.Context) error {
	n.local.Purge()
	if n.rc == nil {
		return nil
	}
	iter := n.rc.Scan(ctx, 0, keyPrefix+"*", 256).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan nearby keys: %w", err)
	}
	if len(keys) > 0 {
		if err := n.rc.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("delete nearby keys: %w", err)
		}
	}
	logger.L().Debug("nearby_cache_invalidated", "keys", len(keys))
	return nil
}
