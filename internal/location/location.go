package location

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/LJTian/BharatPulse/internal/cache"
)

const DefaultURL = "http://ip-api.com/json/"

type Location struct {
	City    string `json:"city"`
	Region  string `json:"region"`
	Country string `json:"country"`
}

var Default = Location{City: "Hyderabad", Region: "Telangana", Country: "India"}

// Client 通过公网 IP 推断读者所在城市
type Client struct {
	url      string
	fallback Location
	http     *http.Client
	cache    *cache.TTL[Location]
}

// NewClient fallback 中的空字段用 Default 补齐
func NewClient(url string, fallback Location, timeout, ttl time.Duration, opts ...cache.Option) *Client {
	if url == "" {
		url = DefaultURL
	}
	return &Client{
		url:      url,
		fallback: fill(fallback, Default),
		http:     &http.Client{Timeout: timeout},
		cache:    cache.New[Location]("location", ttl, opts...),
	}
}

func (c *Client) Cache() *cache.TTL[Location] {
	return c.cache
}

// Detect 总是返回一个位置；查询失败时返回默认位置和错误
func (c *Client) Detect(ctx context.Context) (Location, error) {
	loc, err := c.cache.GetOrLoad(ctx, "self", c.lookup)
	if err != nil {
		return c.fallback, err
	}
	return loc, nil
}

func (c *Client) lookup(ctx context.Context) (Location, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return Location{}, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return Location{}, fmt.Errorf("location: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Location{}, fmt.Errorf("location: status %d", resp.StatusCode)
	}

	var raw struct {
		Status     string `json:"status"`
		Message    string `json:"message"`
		City       string `json:"city"`
		RegionName string `json:"regionName"`
		Country    string `json:"country"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64*1024)).Decode(&raw); err != nil {
		return Location{}, fmt.Errorf("location: decode: %w", err)
	}
	// ip-api 对内网或保留地址也返回 200，status 为 fail
	if raw.Status != "success" {
		return Location{}, fmt.Errorf("location: lookup %s: %s", raw.Status, raw.Message)
	}
	return fill(Location{City: raw.City, Region: raw.RegionName, Country: raw.Country}, c.fallback), nil
}

func fill(l, def Location) Location {
	if strings.TrimSpace(l.City) == "" {
		l.City = def.City
	}
	if strings.TrimSpace(l.Region) == "" {
		l.Region = def.Region
	}
	if strings.TrimSpace(l.Country) == "" {
		l.Country = def.Country
	}
	return l
}
