package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"geoloc/internal/format"
	"geoloc/internal/geo"
	"geoloc/internal/logger"
	"geoloc/internal/stores"
)

// nearbyItem：附近门店条目，附带展示用距离文案
type nearbyItem struct {
	Store         stores.Store `json:"store"`
	DistanceMiles float64      `json:"distanceMiles"`
	Distance      string       `json:"distance"`
}

type nearbyBody struct {
	Origin      geo.Coordinate `json:"origin"`
	RadiusMiles float64        `json:"radiusMiles,omitempty"`
	Stores      []nearbyItem   `json:"stores"`
}

// 文档注释：附近门店
// 背景：lat/lng 缺省时使用服务自身的最近一次定位结果。
// 约束：两者都缺省且尚无定位时返回 503 并附带当前请求状态。
func (d Deps) nearby(w http.ResponseWriter, r *http.Request) {
	if d.Nearby == nil {
		unavailable(w, "store directory")
		return
	}
	q := r.URL.Query()
	var from geo.Coordinate
	switch {
	case q.Get("lat") != "" || q.Get("lng") != "":
		c, err := parseCoord(q.Get("lat"), q.Get("lng"))
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		from = c
	case d.Tracker != nil && d.Tracker.Snapshot().Location != nil:
		from = *d.Tracker.Snapshot().Location
	default:
		st := map[string]any{"error": "no location: pass lat and lng or refetch"}
		if d.Tracker != nil {
			st["state"] = d.Tracker.Snapshot()
		}
		writeJSON(w, http.StatusServiceUnavailable, st)
		return
	}
	limit := 10
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	ranked, err := d.Nearby.Find(r.Context(), from, limit)
	if err != nil {
		internalError(w, r, err)
		return
	}
	body := nearbyBody{Origin: from, Stores: make([]nearbyItem, 0, len(ranked))}
	if rf, ok := d.Nearby.(interface{ Radius() float64 }); ok {
		body.RadiusMiles = rf.Radius()
	}
	for _, sd := range ranked {
		body.Stores = append(body.Stores, nearbyItem{Store: sd.Store, DistanceMiles: sd.DistanceMiles, Distance: format.Distance(sd.DistanceMiles)})
	}
	writeJSON(w, http.StatusOK, body)
}

func (d Deps) listStores(w http.ResponseWriter, r *http.Request) {
	if d.Stores == nil {
		unavailable(w, "store directory")
		return
	}
	all, err := d.Stores.List(r.Context())
	if err != nil {
		internalError(w, r, err)
		return
	}
	if all == nil {
		all = []stores.Store{}
	}
	writeJSON(w, http.StatusOK, all)
}

func (d Deps) getStore(w http.ResponseWriter, r *http.Request) {
	if d.Stores == nil {
		unavailable(w, "store directory")
		return
	}
	s, err := d.Stores.Get(r.Context(), r.PathValue("id"))
	if errors.Is(err, stores.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// putStore：按 ID 新增或覆盖，并使附近缓存失效
func (d Deps) putStore(w http.ResponseWriter, r *http.Request) {
	if d.Stores == nil {
		unavailable(w, "store directory")
		return
	}
	var s stores.Store
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&s); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	s.ID = strings.TrimSpace(s.ID)
	s.Name = strings.TrimSpace(s.Name)
	if s.ID == "" || s.Name == "" {
		writeError(w, http.StatusBadRequest, "id and name required")
		return
	}
	if !s.Location.Valid() {
		writeError(w, http.StatusBadRequest, "coordinate out of range")
		return
	}
	if err := d.Stores.Upsert(r.Context(), s); err != nil {
		internalError(w, r, err)
		return
	}
	d.invalidate(r)
	writeJSON(w, http.StatusCreated, s)
}

func (d Deps) deleteStore(w http.ResponseWriter, r *http.Request) {
	if d.Stores == nil {
		unavailable(w, "store directory")
		return
	}
	err := d.Stores.Delete(r.Context(), r.PathValue("id"))
	if errors.Is(err, stores.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		internalError(w, r, err)
		return
	}
	d.invalidate(r)
	w.WriteHeader(http.StatusNoContent)
}

func (d Deps) invalidate(r *http.Request) {
	if d.Nearby == nil {
		return
	}
	if err := d.Nearby.Invalidate(r.Context()); err != nil {
		logger.L().Error("nearby_invalidate_error", "err", err)
	}
}
