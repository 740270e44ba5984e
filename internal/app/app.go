package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/redis/go-redis/v9"

	"github.com/LJTian/BharatPulse/internal/cache"
	"github.com/LJTian/BharatPulse/internal/collector"
	"github.com/LJTian/BharatPulse/internal/config"
	"github.com/LJTian/BharatPulse/internal/location"
	"github.com/LJTian/BharatPulse/internal/processor"
	"github.com/LJTian/BharatPulse/internal/storage"
	"github.com/LJTian/BharatPulse/internal/translate"
	"github.com/LJTian/BharatPulse/internal/weather"
)

const redisPrefix = "bharatpulse:"

type App struct {
	Config *config.Config

	// Store 和 Redis 未配置时为 nil
	Store *storage.Store
	Redis *redis.Client

	Pipeline   *processor.Pipeline
	Translator *translate.Translator
	Weather    *weather.Client
	Location   *location.Client
	Caches     *cache.Registry
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg, Caches: cache.NewRegistry()}

	var sources processor.SourceLister = toStatic(cfg.Sources)
	if cfg.DBDSN != "" {
		store, err := storage.Open(cfg.DBDriver, cfg.DBDSN)
		if err != nil {
			return nil, err
		}
		for _, src := range cfg.Sources {
			if _, err := store.EnsureSource(ctx, src.Name, src.URL, src.Category); err != nil {
				return nil, fmt.Errorf("ensure source %s: %w", src.Name, err)
			}
		}
		a.Store = store
		sources = store
	}

	var backing cache.Backing
	if cfg.RedisAddr != "" {
		a.Redis = cache.NewRedisClient(cfg.RedisAddr)
		backing = cache.NewRedisBacking(a.Redis, redisPrefix)
	}

	engine, err := translate.NewEngine(cfg.TranslateEngine, cfg.ModelEndpoint, cfg.ModelName, cfg.ModelToken, cfg.HTTPTimeout)
	if err != nil {
		return nil, err
	}
	policy, err := translate.PolicyByName(cfg.TranslatePolicy)
	if err != nil {
		return nil, err
	}
	a.Translator = translate.New(engine, cache.New[string]("translations", cfg.FeedTTL))

	var extractor collector.Extractor = collector.NewCollyExtractor(cfg.HTTPTimeout)
	if cfg.ScraperURL != "" {
		extractor = collector.NewRemoteExtractor(cfg.ScraperURL, cfg.HTTPTimeout)
	}
	fetcher := collector.NewRSSFetcher(&http.Client{Timeout: cfg.HTTPTimeout}, collector.NewEnricher(extractor))
	feeds := cache.New[[]collector.Article]("feeds", cfg.FeedTTL, cache.WithBacking(backing))
	a.Pipeline = processor.NewPipeline(fetcher, feeds, a.Translator, policy, sources)

	a.Weather = weather.NewClient(cfg.OpenWeatherURL, cfg.OpenWeatherAPIKey, cfg.HTTPTimeout, cfg.WeatherTTL)
	a.Location = location.NewClient(cfg.GeoIPURL, location.Location{
		City:    cfg.DefaultCity,
		Region:  cfg.DefaultState,
		Country: cfg.DefaultCountry,
	}, cfg.HTTPTimeout, cfg.LocationTTL)

	a.Caches.Register(feeds, a.Translator, a.Weather.Cache(), a.Location.Cache())

	slog.Info("app: components ready",
		"engine", a.Translator.EngineName(),
		"extractor", fmt.Sprintf("%T", extractor),
		"storage", a.Store != nil,
		"redis", a.Redis != nil,
		"weather_configured", a.Weather.Configured(),
	)
	return a, nil
}

func toStatic(in []config.Source) processor.StaticSources {
	out := make(processor.StaticSources, 0, len(in))
	for _, s := range in {
		out = append(out, processor.Source{Name: s.Name, URL: s.URL, Category: s.Category})
	}
	return out
}

func (a *App) Close() {
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.Store != nil {
		if db, err := a.Store.DB.DB(); err == nil {
			_ = db.Close()
		}
	}
}
