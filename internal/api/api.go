// 包 api：集中注册 HTTP API 路由以解耦主入口
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"geoloc/internal/geo"
	"geoloc/internal/location"
	"geoloc/internal/logger"
	"geoloc/internal/metrics"
	"geoloc/internal/shopping"
	"geoloc/internal/stores"
)

// StoreRepo：门店读写
type StoreRepo interface {
	List(ctx context.Context) ([]stores.Store, error)
	Get(ctx context.Context, id string) (stores.Store, error)
	Upsert(ctx context.Context, s stores.Store) error
	Delete(ctx context.Context, id string) error
}

// NearbyFinder：附近门店查询与缓存失效
type NearbyFinder interface {
	Find(ctx context.Context, from geo.Coordinate, limit int) ([]stores.StoreDistance, error)
	Invalidate(ctx context.Context) error
}

// ListRepo：购物清单读写
type ListRepo interface {
	Create(ctx context.Context, name string, items []shopping.Item) (shopping.List, error)
	Get(ctx context.Context, id string) (shopping.List, error)
	Save(ctx context.Context, l *shopping.List) error
	Delete(ctx context.Context, id string) error
	All(ctx context.Context) ([]shopping.List, error)
}

// Deps：路由依赖；Stores/Nearby/Lists 为 nil 时对应路由返回 503
type Deps struct {
	Location location.Acquirer
	Tracker  *location.Tracker
	Stores   StoreRepo
	Nearby   NearbyFinder
	Lists    ListRepo
	// Ready：健康检查附加项（如数据库、Redis 连通性），返回 nil 视为正常
	Ready map[string]func(ctx context.Context) error
}

// 构建并返回 API 路由：独立 ServeMux 便于在主入口挂载到 API_BASE 前缀
func BuildRoutes(d Deps) *http.ServeMux {
	mux := http.NewServeMux()
	handle := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			metrics.RequestsTotal.WithLabelValues(pattern).Inc()
			fn(w, r)
		}))
	}

	handle("GET /location", d.getLocation)
	handle("GET /location/state", d.getState)
	handle("POST /location/refetch", d.refetch)
	handle("GET /distance", getDistance)

	handle("GET /stores/nearby", d.nearby)
	handle("GET /stores", d.listStores)
	handle("POST /stores", d.putStore)
	handle("GET /stores/{id}", d.getStore)
	handle("DELETE /stores/{id}", d.deleteStore)

	handle("GET /lists", d.allLists)
	handle("POST /lists", d.createList)
	handle("GET /lists/{id}", d.getList)
	handle("PUT /lists/{id}", d.saveList)
	handle("DELETE /lists/{id}", d.deleteList)
	handle("POST /lists/{id}/items/{productId}/toggle", d.toggleItem)

	handle("GET /health", d.health)
	return mux
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.Header().Set("cache-control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// internalError：记录原始错误，对外只返回通用文案
func internalError(w http.ResponseWriter, r *http.Request, err error) {
	logger.L().Error("api_error", "path", r.URL.Path, "request_id", logger.RequestID(r.Context()), "err", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func unavailable(w http.ResponseWriter, what string) {
	writeError(w, http.StatusServiceUnavailable, what+" not configured")
}

func (d Deps) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	checks := map[string]string{}
	status := http.StatusOK
	for name, f := range d.Ready {
		if err := f(ctx); err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}
	st := "ok"
	if status != http.StatusOK {
		st = "degraded"
	}
	writeJSON(w, status, map[string]any{"status": st, "checks": checks})
}
