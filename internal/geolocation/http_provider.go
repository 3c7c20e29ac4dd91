package geolocation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// 文档注释：外部 HTTP 定位服务提供者
// 背景：通过简单 HTTP 契约接入第三方或自建定位服务。
// 约束：约定 GET /health 与 GET /query?ip=；401/403 视为授权被拒，404 或 found=false 视为未命中，
// 响应需包含 lat/lng 与可选 accuracy（米），缺省精度按城市级处理。
type HTTPProvider struct {
	name     string
	endpoint string
	client   *http.Client
}

func NewHTTPProvider(name, endpoint string, client *http.Client) *HTTPProvider {
	if client == nil {
		client = &http.Client{Timeout: 3 * time.Second}
	}
	if name == "" {
		name = "http"
	}
	return &HTTPProvider{name: name, endpoint: endpoint, client: client}
}

func (h *HTTPProvider) Name() string { return h.name }

// Heartbeat：访问 /health，非 200 视为不可用
func (h *HTTPProvider) Heartbeat(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.endpoint+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health status %d", resp.StatusCode)
	}
	return nil
}

type httpFix struct {
	Found    *bool   `json:"found"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	Accuracy float64 `json:"accuracy"`
	Ts       int64   `json:"timestamp"`
}

func (h *HTTPProvider) Locate(ctx context.Context, ip string) (Fix, error) {
	u := h.endpoint + "/query?ip=" + url.QueryEscape(ip)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Fix{}, err
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return Fix{}, err
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return Fix{}, fmt.Errorf("%w: status %d", ErrPermission, resp.StatusCode)
	case http.StatusNotFound:
		return Fix{}, fmt.Errorf("%w: status %d", ErrNoFix, resp.StatusCode)
	default:
		return Fix{}, fmt.Errorf("unexpected status: %s", resp.Status)
	}
	var m httpFix
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		return Fix{}, fmt.Errorf("decode %s response: %w", h.name, err)
	}
	if m.Found != nil && !*m.Found {
		return Fix{}, fmt.Errorf("%w: %s reported not found", ErrNoFix, h.name)
	}
	acc := m.Accuracy
	if acc <= 0 {
		acc = CityAccuracyM
	}
	fix := Fix{Coordinate: coord(m.Lat, m.Lng), AccuracyM: acc}
	if m.Ts > 0 {
		fix.At = time.UnixMilli(m.Ts)
	}
	return fix, nil
}
