// Package geo resolves IP addresses to coarse "city, region, country" labels
// for the session listing, with a process-wide TTL cache in front of the
// external lookup service.
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"
)

// LocalNetwork is the label used for private and loopback addresses, which
// never reach the lookup service.
const LocalNetwork = "Local Network"

type Resolver interface {
	Resolve(ctx context.Context, ip string) (string, error)
}

// HTTPResolver queries an ip-api.com compatible endpoint:
// GET {base}/{ip} returning {"status","city","regionName","country"}.
type HTTPResolver struct {
	baseURL    string
	httpClient *http.Client
}

func NewHTTPResolver(baseURL string, timeout time.Duration) *HTTPResolver {
	return &HTTPResolver{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (r *HTTPResolver) Resolve(ctx context.Context, ip string) (string, error) {
	url := strings.TrimRight(r.baseURL, "/") + "/" + ip
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("geo lookup status %d", resp.StatusCode)
	}

	var body struct {
		Status     string `json:"status"`
		City       string `json:"city"`
		RegionName string `json:"regionName"`
		Country    string `json:"country"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}
	if body.Status != "success" {
		return "", fmt.Errorf("geo lookup failed for %s", ip)
	}

	parts := make([]string, 0, 3)
	for _, p := range []string{body.City, body.RegionName, body.Country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", "), nil
}

// Locator combines the cache and resolver. Locate never returns an error:
// lookup failures degrade to an empty label so session listing stays up.
type Locator struct {
	cache    Cache
	resolver Resolver
	ttl      time.Duration
}

func NewLocator(cache Cache, resolver Resolver, ttl time.Duration) *Locator {
	return &Locator{cache: cache, resolver: resolver, ttl: ttl}
}

func (l *Locator) Locate(ctx context.Context, ip string) string {
	if ip == "" {
		return ""
	}
	if IsPrivate(ip) {
		return LocalNetwork
	}
	if loc, ok := l.cache.Get(ctx, ip); ok {
		return loc
	}
	loc, err := l.resolver.Resolve(ctx, ip)
	if err != nil {
		return ""
	}
	l.cache.Set(ctx, ip, loc, l.ttl)
	return loc
}

// IsPrivate reports whether ip is loopback, RFC1918, or link-local, covering
// 127.0.0.1, ::1, 192.168.*, 10.* and 172.16.0.0/12.
func IsPrivate(ip string) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	return parsed.IsLoopback() || parsed.IsPrivate() || parsed.IsLinkLocalUnicast()
}
