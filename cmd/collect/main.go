package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"

	"github.com/LJTian/BharatPulse/internal/app"
	"github.com/LJTian/BharatPulse/internal/config"
	"github.com/LJTian/BharatPulse/internal/presenter"
	"github.com/LJTian/BharatPulse/internal/processor"
)

// 一个仅执行一轮流水线的命令行入口：抓取、补全、翻译后以 JSON 输出到 stdout
func main() {
	source := flag.String("source", "", "only this source name")
	category := flag.String("category", "", "only this category (English name or Telugu label)")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, nil)))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config failed", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	a, err := app.New(ctx, cfg)
	if err != nil {
		slog.Error("init app failed", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	f := processor.Filter{Source: *source}
	if *category != "" {
		name, ok := presenter.LookupCategory(*category)
		if !ok {
			slog.Error("unknown category", "category", *category)
			os.Exit(2)
		}
		f.Category = name
	}

	headlines, err := a.Pipeline.Headlines(ctx, f)
	if err != nil {
		slog.Error("collect failed", "error", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(presenter.Cards(headlines)); err != nil {
		slog.Error("encode output", "error", err)
		os.Exit(1)
	}
	slog.Info("collect done", "headlines", len(headlines))
}
