package geolocation

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// 文档注释：宿主公网地址解析
// 背景：IP 类提供者需要目标地址；服务自身定位时以公网出口地址作为目标。
// 约束：配置了固定地址时直接返回；否则访问纯文本回显服务（如 api.ipify.org），结果缓存 ttl。
type PublicIP struct {
	static   string
	endpoint string
	client   *http.Client
	ttl      time.Duration

	mu      sync.Mutex
	cached  string
	fetched time.Time
}

func NewPublicIP(static, endpoint string, ttl time.Duration) *PublicIP {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &PublicIP{static: static, endpoint: endpoint, ttl: ttl, client: &http.Client{Timeout: 3 * time.Second}}
}

func (p *PublicIP) Resolve(ctx context.Context) (string, error) {
	if p.static != "" {
		return p.static, nil
	}
	if p.endpoint == "" {
		return "", fmt.Errorf("public ip: no endpoint configured")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cached != "" && time.Since(p.fetched) < p.ttl {
		return p.cached, nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint, nil)
	if err != nil {
		return "", err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("public ip: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("public ip: unexpected status: %s", resp.Status)
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, 64))
	if err != nil {
		return "", fmt.Errorf("public ip: %w", err)
	}
	ip := strings.TrimSpace(string(b))
	if net.ParseIP(ip) == nil {
		return "", fmt.Errorf("public ip: bad response %q", ip)
	}
	p.cached = ip
	p.fetched = time.Now()
	return ip, nil
}
