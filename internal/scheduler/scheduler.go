package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/LJTian/BharatPulse/internal/storage"
	"github.com/LJTian/BharatPulse/internal/weather"
)

// Warmer 预热订阅源缓存
type Warmer interface {
	Warm(ctx context.Context) (int, error)
}

type WeatherSource interface {
	Current(ctx context.Context, city string) (*weather.Report, error)
}

// CityStore 关注城市与快照的持久化
type CityStore interface {
	ListWeatherCities(ctx context.Context) ([]storage.WeatherCity, error)
	SaveWeatherSnapshot(ctx context.Context, city string, r weather.Report) error
}

const jobTimeout = 5 * time.Minute

type Scheduler struct {
	cron    *cron.Cron
	warmer  Warmer
	weather WeatherSource
	cities  CityStore

	StartupDelay time.Duration
}

// New weatherSpec 为空或 cities 为 nil 时不注册天气任务
func New(spec, weatherSpec string, warmer Warmer, ws WeatherSource, cities CityStore) (*Scheduler, error) {
	c := cron.New()

	s := &Scheduler{
		cron:    c,
		warmer:  warmer,
		weather: ws,
		cities:  cities,
		// 延迟执行首轮采集，避免与用户首次打开页面的请求争抢资源
		StartupDelay: 15 * time.Second,
	}

	if _, err := c.AddFunc(spec, s.runOnce); err != nil {
		return nil, err
	}
	if weatherSpec != "" && cities != nil && ws != nil {
		if _, err := c.AddFunc(weatherSpec, s.refreshWeather); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	time.AfterFunc(s.StartupDelay, func() {
		go s.runOnce()
	})
}

// Stop 等待正在执行的任务结束
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// RunOnce 对外暴露的单次执行入口，方便手动触发预热
func (s *Scheduler) RunOnce(ctx context.Context) (int, error) {
	return s.warmer.Warm(ctx)
}

func (s *Scheduler) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	slog.Info("scheduler: warm headlines start")
	n, err := s.RunOnce(ctx)
	if err != nil {
		slog.Error("scheduler: warm headlines", "error", err)
		return
	}
	slog.Info("scheduler: warm headlines done", "articles", n)
}

// RefreshWeather 拉取所有关注城市的天气并写入快照，返回成功的城市数
func (s *Scheduler) RefreshWeather(ctx context.Context) (int, error) {
	if s.cities == nil || s.weather == nil {
		return 0, nil
	}
	cities, err := s.cities.ListWeatherCities(ctx)
	if err != nil {
		return 0, err
	}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for _, c := range cities {
		city := c.City
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := s.weather.Current(ctx, city)
			if err != nil {
				if !errors.Is(err, weather.ErrNotConfigured) {
					slog.Warn("scheduler: weather fetch", "city", city, "error", err)
				}
				return
			}
			if err := s.cities.SaveWeatherSnapshot(ctx, city, *r); err != nil {
				slog.Warn("scheduler: weather save", "city", city, "error", err)
				return
			}
			mu.Lock()
			ok++
			mu.Unlock()
		}()
	}
	wg.Wait()
	return ok, nil
}

func (s *Scheduler) refreshWeather() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	n, err := s.RefreshWeather(ctx)
	if err != nil {
		slog.Error("scheduler: weather refresh", "error", err)
		return
	}
	slog.Info("scheduler: weather refresh done", "cities", n)
}
