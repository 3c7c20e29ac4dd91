package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"geoloc/internal/format"
	"geoloc/internal/geo"
	"geoloc/internal/location"
)

// 错误码 → HTTP 状态
func failureStatus(c location.ErrorCode) int {
	switch c {
	case location.PermissionDenied:
		return http.StatusForbidden
	case location.PositionUnavailable:
		return http.StatusNotFound
	case location.Timeout:
		return http.StatusGatewayTimeout
	case location.NotSupported:
		return http.StatusNotImplemented
	}
	return http.StatusInternalServerError
}

// maxTimeoutMs：单次定位允许的最长超时（10 分钟）
const maxTimeoutMs = int(10 * time.Minute / time.Millisecond)

// 文档注释：为请求方定位
// 背景：目标地址与 CDN 地理头已由中间件注入上下文；timeout_ms 可选，缺省使用服务默认超时。
// 约束：失败时以 {code,message} 返回并按错误码映射状态。
func (d Deps) getLocation(w http.ResponseWriter, r *http.Request) {
	var timeout time.Duration
	if s := r.URL.Query().Get("timeout_ms"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "timeout_ms must be a positive integer")
			return
		}
		if n > maxTimeoutMs {
			writeError(w, http.StatusBadRequest, "timeout_ms must not exceed "+strconv.Itoa(maxTimeoutMs))
			return
		}
		timeout = time.Duration(n) * time.Millisecond
	}
	if d.Location == nil {
		f := location.Failure{Code: location.NotSupported, Message: location.MsgNotSupported}
		writeJSON(w, failureStatus(f.Code), f)
		return
	}
	rd, err := d.Location.Acquire(r.Context(), timeout)
	if err != nil {
		var f *location.Failure
		if !errors.As(err, &f) {
			internalError(w, r, err)
			return
		}
		writeJSON(w, failureStatus(f.Code), f)
		return
	}
	writeJSON(w, http.StatusOK, rd)
}

func (d Deps) getState(w http.ResponseWriter, r *http.Request) {
	if d.Tracker == nil {
		unavailable(w, "tracker")
		return
	}
	writeJSON(w, http.StatusOK, d.Tracker.Snapshot())
}

// refetch：立即返回已置 loading 的快照
func (d Deps) refetch(w http.ResponseWriter, r *http.Request) {
	if d.Tracker == nil {
		unavailable(w, "tracker")
		return
	}
	d.Tracker.Refetch()
	writeJSON(w, http.StatusAccepted, d.Tracker.Snapshot())
}

type distanceBody struct {
	From      geo.Coordinate `json:"from"`
	To        geo.Coordinate `json:"to"`
	Miles     float64        `json:"miles"`
	Formatted string         `json:"formatted"`
}

func getDistance(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, err := parsePair(q.Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "from: "+err.Error())
		return
	}
	to, err := parsePair(q.Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "to: "+err.Error())
		return
	}
	mi := geo.Distance(from, to)
	writeJSON(w, http.StatusOK, distanceBody{From: from, To: to, Miles: mi, Formatted: format.Distance(mi)})
}

// parsePair：解析 "lat,lng"
func parsePair(s string) (geo.Coordinate, error) {
	a, b, ok := strings.Cut(s, ",")
	if !ok {
		return geo.Coordinate{}, errors.New("expected lat,lng")
	}
	return parseCoord(a, b)
}

func parseCoord(latS, lngS string) (geo.Coordinate, error) {
	lat, err := strconv.ParseFloat(strings.TrimSpace(latS), 64)
	if err != nil {
		return geo.Coordinate{}, errors.New("invalid latitude")
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(lngS), 64)
	if err != nil {
		return geo.Coordinate{}, errors.New("invalid longitude")
	}
	c := geo.Coordinate{Lat: lat, Lng: lng}
	if !c.Valid() {
		return geo.Coordinate{}, errors.New("coordinate out of range")
	}
	return c, nil
}
