package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/LJTian/BharatPulse/internal/api"
	"github.com/LJTian/BharatPulse/internal/app"
	"github.com/LJTian/BharatPulse/internal/config"
	"github.com/LJTian/BharatPulse/internal/scheduler"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config failed", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		slog.Error("init app failed", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	deps := api.Deps{
		Headlines: a.Pipeline,
		Weather:   a.Weather,
		Location:  a.Location,
		Refresher: a.Caches,
	}
	var cities scheduler.CityStore
	if a.Store != nil {
		deps.Store = a.Store
		cities = a.Store
		// 确保默认城市存在
		if err := a.Store.AddWeatherCity(ctx, cfg.DefaultCity); err != nil {
			slog.Warn("ensure default weather city", "city", cfg.DefaultCity, "error", err)
		}
	}

	s, err := scheduler.New(cfg.CronSpec, cfg.WeatherCronSpec, a.Pipeline, a.Weather, cities)
	if err != nil {
		slog.Error("init scheduler failed", "error", err)
		os.Exit(1)
	}
	s.Start()
	defer s.Stop()

	// 启动时在后台加载翻译模型，不阻塞主流程
	go a.Translator.Load(context.Background())

	r := gin.New()
	r.Use(gin.Recovery(), api.RequestLogger())
	// 若配置了全局访问密码，则启用 Basic Auth 保护（/health 仍然免认证）
	if cfg.BasicAuthUser != "" && cfg.BasicAuthPass != "" {
		r.Use(api.BasicAuth(cfg.BasicAuthUser, cfg.BasicAuthPass))
	}

	api.NewServer(deps).RegisterRoutes(r)

	// 若配置了前端目录，则托管 SPA 静态文件并做 fallback
	if cfg.WebRoot != "" {
		api.ServeSPA(r, cfg.WebRoot)
	}

	srv := &http.Server{Addr: ":" + cfg.AppPort, Handler: r}
	go func() {
		slog.Info("starting api server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server exit", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown", "error", err)
	}
	slog.Info("api server stopped")
}
