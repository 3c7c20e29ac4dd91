// 包 amap：高德 IP 定位 REST 客户端
package amap

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"geoloc/internal/logger"
)

// DefaultBaseURL：高德 Web 服务地址
const DefaultBaseURL = "https://restapi.amap.com"

// ErrNotFound：接口成功但无归属地数据（境外或保留地址）
var ErrNotFound = errors.New("amap: no location for ip")

// KeyError：密钥或权限类错误
type KeyError struct {
	Infocode string
	Info     string
}

func (e *KeyError) Error() string { return "amap: " + e.Info + " (" + e.Infocode + ")" }

// text：高德在无数据时以 [] 代替字符串，解码时统一为空串
type text string

func (t *text) UnmarshalJSON(b []byte) error {
	if bytes.HasPrefix(bytes.TrimSpace(b), []byte("[")) {
		*t = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*t = text(s)
	return nil
}

// 文档注释：高德 IP 定位响应结构
// 约束：status/infocode 用于错误判定；rectangle 为城市范围矩形"lng,lat;lng,lat"（GCJ-02）。
type IPResponse struct {
	Status    text `json:"status"`
	Info      text `json:"info"`
	Infocode  text `json:"infocode"`
	Province  text `json:"province"`
	City      text `json:"city"`
	Adcode    text `json:"adcode"`
	Rectangle text `json:"rectangle"`
}

// keyInfocodes：密钥无效、权限不足、平台不匹配等
var keyInfocodes = map[string]bool{
	"10001": true, "10002": true, "10005": true, "10006": true, "10007": true,
	"10008": true, "10009": true, "10010": true, "10012": true,
}

// Client：baseURL 可替换，便于测试
type Client struct {
	key     string
	baseURL string
	http    *http.Client
}

func NewClient(key string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 5 * time.Second}
	}
	return &Client{key: key, baseURL: DefaultBaseURL, http: hc}
}

// WithBaseURL：返回指向其它地址的副本
func (c *Client) WithBaseURL(u string) *Client {
	cp := *c
	cp.baseURL = strings.TrimRight(u, "/")
	return &cp
}

// 文档注释：查询单个 IP 的定位信息（REST）
// 返回：status!="1" 时密钥类 infocode 返回 *KeyError，其余返回带 info 的错误；无城市数据返回 ErrNotFound。
func (c *Client) QueryIP(ctx context.Context, ip string) (*IPResponse, error) {
	if c.key == "" {
		return nil, &KeyError{Infocode: "10001", Info: "missing key"}
	}
	q := url.Values{}
	q.Set("key", c.key)
	if ip != "" {
		q.Set("ip", ip)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v3/ip?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	t0 := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		logger.L().Error("amap_http_error", "err", err)
		return nil, err
	}
	defer resp.Body.Close()
	var r IPResponse
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		logger.L().Error("amap_decode_error", "err", err)
		return nil, fmt.Errorf("amap decode: %w", err)
	}
	logger.L().Debug("amap_resp", "ip", ip, "status", r.Status, "infocode", r.Infocode, "city", r.City, "duration_ms", time.Since(t0).Milliseconds())
	if r.Status != "1" {
		if keyInfocodes[string(r.Infocode)] {
			return &r, &KeyError{Infocode: string(r.Infocode), Info: string(r.Info)}
		}
		return &r, fmt.Errorf("amap error: %s (%s)", r.Info, r.Infocode)
	}
	if r.Rectangle == "" {
		return &r, ErrNotFound
	}
	return &r, nil
}

// 文档注释：解析 rectangle 为西南/东北两角（lat, lng），坐标系不变
func ParseRectangle(s string) (swLat, swLng, neLat, neLng float64, err error) {
	corners := strings.Split(s, ";")
	if len(corners) != 2 {
		return 0, 0, 0, 0, fmt.Errorf("amap: bad rectangle %q", s)
	}
	var v [4]float64
	for i, c := range corners {
		xy := strings.Split(c, ",")
		if len(xy) != 2 {
			return 0, 0, 0, 0, fmt.Errorf("amap: bad rectangle %q", s)
		}
		lng, e1 := strconv.ParseFloat(strings.TrimSpace(xy[0]), 64)
		lat, e2 := strconv.ParseFloat(strings.TrimSpace(xy[1]), 64)
		if e1 != nil || e2 != nil {
			return 0, 0, 0, 0, fmt.Errorf("amap: bad rectangle %q", s)
		}
		v[i*2], v[i*2+1] = lat, lng
	}
	return v[0], v[1], v[2], v[3], nil
}
