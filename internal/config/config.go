package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Source 一个 RSS/Atom 订阅源
type Source struct {
	Name     string `yaml:"name" json:"name"`
	URL      string `yaml:"url" json:"url"`
	Category string `yaml:"category" json:"category"`
}

type Config struct {
	AppPort string

	// 全局 Basic Auth，两者都非空时启用
	BasicAuthUser string
	BasicAuthPass string

	// 前端 SPA 构建产物目录，为空则不托管
	WebRoot string

	// 存储：DBDriver 为 postgres / sqlite，DBDSN 为空时不启用数据库
	DBDriver  string
	DBDSN     string
	RedisAddr string

	CronSpec        string
	WeatherCronSpec string

	HTTPTimeout time.Duration
	FeedTTL     time.Duration
	WeatherTTL  time.Duration
	LocationTTL time.Duration

	OpenWeatherAPIKey string
	OpenWeatherURL    string
	GeoIPURL          string

	DefaultCity    string
	DefaultState   string
	DefaultCountry string

	TranslateEngine string
	TranslatePolicy string
	ModelEndpoint   string
	ModelName       string
	ModelToken      string

	// 设置后使用 browser-scraper 服务抽取正文，否则使用 colly 本地抽取
	ScraperURL string

	Sources []Source
}

// DefaultSources 未配置订阅源时使用
var DefaultSources = []Source{
	{Name: "Sakshi", URL: "https://www.sakshi.com/tags/rss"},
	{Name: "Eenadu", URL: "https://www.eenadu.net/telugu-news/rss"},
}

// Load 读取 .env（可选）后从环境变量加载配置
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("config: no .env file loaded", "error", err)
	}

	cfg := &Config{
		AppPort:           getEnv("APP_PORT", "9000"),
		BasicAuthUser:     os.Getenv("APP_BASIC_USER"),
		BasicAuthPass:     os.Getenv("APP_BASIC_PASS"),
		WebRoot:           os.Getenv("WEB_ROOT"),
		DBDriver:          getEnv("DB_DRIVER", "postgres"),
		DBDSN:             os.Getenv("DB_DSN"),
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		CronSpec:          getEnv("CRON_SPEC", "*/30 * * * *"),
		WeatherCronSpec:   getEnv("WEATHER_CRON_SPEC", "0 * * * *"),
		HTTPTimeout:       getDuration("HTTP_TIMEOUT", 15*time.Second),
		FeedTTL:           getDuration("FEED_TTL", time.Hour),
		WeatherTTL:        getDuration("WEATHER_TTL", 10*time.Minute),
		LocationTTL:       getDuration("LOCATION_TTL", time.Hour),
		OpenWeatherAPIKey: os.Getenv("OPENWEATHERMAP_API_KEY"),
		OpenWeatherURL:    getEnv("OPENWEATHERMAP_API_URL", "http://api.openweathermap.org/data/2.5/weather"),
		GeoIPURL:          getEnv("GEOIP_URL", "http://ip-api.com/json/"),
		DefaultCity:       getEnv("DEFAULT_CITY", "Hyderabad"),
		DefaultState:      getEnv("DEFAULT_STATE", "Telangana"),
		DefaultCountry:    getEnv("DEFAULT_COUNTRY", "India"),
		TranslateEngine:   getEnv("TRANSLATE_ENGINE", "model"),
		TranslatePolicy:   getEnv("TRANSLATE_POLICY", "ascii"),
		ModelEndpoint:     getEnv("MODEL_ENDPOINT", "http://localhost:8081"),
		ModelName:         getEnv("MODEL_NAME", "ai4bharat/indictrans2-en-indic-dist-200M"),
		ModelToken:        os.Getenv("MODEL_TOKEN"),
		ScraperURL:        os.Getenv("SCRAPER_URL"),
	}

	sources, err := loadSources()
	if err != nil {
		return nil, err
	}
	cfg.Sources = sources

	slog.Info("config loaded",
		"port", cfg.AppPort,
		"cron", cfg.CronSpec,
		"sources", len(cfg.Sources),
		"engine", cfg.TranslateEngine,
		"db", cfg.DBDSN != "",
		"redis", cfg.RedisAddr != "",
	)
	return cfg, nil
}

// loadSources 优先 FEEDS_FILE（YAML），其次 FEEDS（Name=url,Name=url），都没有则用默认源
func loadSources() ([]Source, error) {
	if path := os.Getenv("FEEDS_FILE"); path != "" {
		return readSourcesFile(path)
	}
	if raw := os.Getenv("FEEDS"); raw != "" {
		sources, err := parseSourcesList(raw)
		if err != nil {
			return nil, err
		}
		return sources, validateSources(sources)
	}
	out := make([]Source, len(DefaultSources))
	copy(out, DefaultSources)
	return out, nil
}

func readSourcesFile(path string) ([]Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read feeds file: %w", err)
	}
	var file struct {
		Sources []Source `yaml:"sources"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("config: parse feeds file %s: %w", path, err)
	}
	if err := validateSources(file.Sources); err != nil {
		return nil, err
	}
	return file.Sources, nil
}

func parseSourcesList(raw string) ([]Source, error) {
	var out []Source
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, u, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("config: FEEDS entry %q: want Name=url", part)
		}
		out = append(out, Source{Name: strings.TrimSpace(name), URL: strings.TrimSpace(u)})
	}
	return out, nil
}

func validateSources(sources []Source) error {
	if len(sources) == 0 {
		return fmt.Errorf("config: no feed sources configured")
	}
	for i, s := range sources {
		if s.Name == "" {
			return fmt.Errorf("config: source %d: name is required", i)
		}
		u, err := url.Parse(s.URL)
		if err != nil {
			return fmt.Errorf("config: source %q: invalid url: %w", s.Name, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("config: source %q: url scheme must be http or https, got %q", s.Name, u.Scheme)
		}
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		slog.Warn("config: invalid duration, using default", "key", key, "value", v, "default", def)
		return def
	}
	return d
}
