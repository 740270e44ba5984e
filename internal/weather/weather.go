package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/LJTian/BharatPulse/internal/cache"
)

const (
	DefaultBaseURL = "https://api.openweathermap.org/data/2.5/weather"
	// PlaceholderKey 示例配置里的占位 key，视同未配置
	PlaceholderKey = "YOUR_OPENWEATHERMAP_API_KEY_HERE"

	maxResponseBytes = 64 * 1024
)

var (
	ErrNotConfigured = errors.New("weather: api key not configured")
	errMalformed     = errors.New("weather: malformed response")
)

// Report 当前天气。温度单位摄氏度，风速 m/s
type Report struct {
	City        string  `json:"city"`
	Description string  `json:"description"`
	Temperature float64 `json:"temperature"`
	FeelsLike   float64 `json:"feels_like"`
	Humidity    int     `json:"humidity"`
	WindSpeed   float64 `json:"wind_speed"`
}

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	cache   *cache.TTL[Report]
}

func NewClient(baseURL, apiKey string, timeout, ttl time.Duration, opts ...cache.Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  strings.TrimSpace(apiKey),
		http:    &http.Client{Timeout: timeout},
		cache:   cache.New[Report]("weather", ttl, opts...),
	}
}

func (c *Client) Configured() bool {
	return c.apiKey != "" && c.apiKey != PlaceholderKey
}

// Cache 供刷新时统一清空
func (c *Client) Cache() *cache.TTL[Report] {
	return c.cache
}

// Current 返回城市当前天气；未配置 key 时不发请求，返回 ErrNotConfigured
func (c *Client) Current(ctx context.Context, city string) (*Report, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return nil, errors.New("weather: empty city")
	}
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	key := strings.ToLower(city) + "|" + c.apiKey
	r, err := c.cache.GetOrLoad(ctx, key, func(ctx context.Context) (Report, error) {
		return c.fetch(ctx, city)
	})
	if err != nil {
		return nil, err
	}
	return &r, nil
}

type owmResponse struct {
	Name    string `json:"name"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
	Main *struct {
		Temp      *float64 `json:"temp"`
		FeelsLike *float64 `json:"feels_like"`
		Humidity  *int     `json:"humidity"`
	} `json:"main"`
	Wind *struct {
		Speed *float64 `json:"speed"`
	} `json:"wind"`
}

func (c *Client) fetch(ctx context.Context, city string) (Report, error) {
	q := url.Values{}
	q.Set("q", city)
	q.Set("appid", c.apiKey)
	q.Set("units", "metric")
	q.Set("lang", "te")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return Report{}, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return Report{}, fmt.Errorf("weather: %s: %w", city, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Report{}, fmt.Errorf("weather: %s: status %d", city, resp.StatusCode)
	}

	var raw owmResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&raw); err != nil {
		return Report{}, fmt.Errorf("weather: %s: decode: %w", city, err)
	}
	// 任一必需字段缺失都视为无数据
	if len(raw.Weather) == 0 || raw.Main == nil || raw.Wind == nil ||
		raw.Main.Temp == nil || raw.Main.FeelsLike == nil || raw.Main.Humidity == nil || raw.Wind.Speed == nil {
		return Report{}, errMalformed
	}

	name := raw.Name
	if name == "" {
		name = city
	}
	return Report{
		City:        name,
		Description: capitalize(raw.Weather[0].Description),
		Temperature: *raw.Main.Temp,
		FeelsLike:   *raw.Main.FeelsLike,
		Humidity:    *raw.Main.Humidity,
		WindSpeed:   *raw.Wind.Speed,
	}, nil
}

func capitalize(s string) string {
	s = strings.TrimSpace(s)
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
