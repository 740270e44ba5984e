package translate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/LJTian/BharatPulse/internal/cache"
)

const (
	Unavailable = "Translation service unavailable."
	Failed      = "Translation failed."
)

type Status string

const (
	StatusPending     Status = "pending"
	StatusTranslated  Status = "translated"
	StatusSkipped     Status = "skipped"
	StatusUnavailable Status = "unavailable"
	StatusFailed      Status = "failed"
)

// Result 翻译结果及其状态
type Result struct {
	Text   string
	Status Status
}

// Engine 具体的翻译后端
type Engine interface {
	Name() string
	// Load 准备模型；失败时 Translator 进入降级模式
	Load(ctx context.Context) error
	Translate(ctx context.Context, text string) (string, error)
}

type Translator struct {
	engine Engine
	memo   *cache.TTL[string]

	mu      sync.Mutex
	loaded  bool
	loadErr error
}

// New memo 可为 nil；非 nil 时缓存成功的译文
func New(engine Engine, memo *cache.TTL[string]) *Translator {
	return &Translator{engine: engine, memo: memo}
}

func (t *Translator) EngineName() string {
	return t.engine.Name()
}

// Load 只在第一次调用（或 Clear 之后）真正加载
func (t *Translator) Load(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.loaded {
		return t.loadErr
	}
	t.loadErr = t.engine.Load(ctx)
	t.loaded = true
	if t.loadErr != nil {
		slog.Error("translate: model load failed, translation disabled", "engine", t.engine.Name(), "error", t.loadErr)
	} else {
		slog.Info("translate: model loaded", "engine", t.engine.Name())
	}
	return t.loadErr
}

// Available 模型是否可用（会触发一次加载）
func (t *Translator) Available(ctx context.Context) bool {
	return t.Load(ctx) == nil
}

// Clear 丢弃已加载的模型与译文缓存，下次调用重新加载
func (t *Translator) Clear(ctx context.Context) {
	t.mu.Lock()
	t.loaded = false
	t.loadErr = nil
	t.mu.Unlock()
	if t.memo != nil {
		t.memo.Clear(ctx)
	}
}

func (t *Translator) Translate(ctx context.Context, text string) Result {
	if strings.TrimSpace(text) == "" {
		return Result{Text: "", Status: StatusSkipped}
	}
	if err := t.Load(ctx); err != nil {
		return Result{Text: Unavailable, Status: StatusUnavailable}
	}

	if t.memo != nil {
		if v, ok := t.memo.Get(ctx, text); ok {
			return Result{Text: v, Status: StatusTranslated}
		}
	}

	out, err := t.engine.Translate(ctx, text)
	if err != nil {
		slog.Warn("translate: failed", "engine", t.engine.Name(), "error", err)
		return Result{Text: Failed, Status: StatusFailed}
	}
	out = strings.TrimSpace(out)
	if t.memo != nil {
		t.memo.Set(ctx, text, out)
	}
	return Result{Text: out, Status: StatusTranslated}
}

// NewEngine 按名称构造引擎："model"（默认）、"web"、"google"、"mymemory"
func NewEngine(kind, endpoint, model, token string, timeout time.Duration) (Engine, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", "model":
		return NewModelEngine(endpoint, model, token, timeout), nil
	case "web":
		return NewWebEngine(timeout), nil
	case "google":
		return NewGoogleEngine(timeout), nil
	case "mymemory":
		return NewMyMemoryEngine(timeout), nil
	default:
		return nil, fmt.Errorf("unknown translate engine %q", kind)
	}
}
