package processor

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"log/slog"
	"strings"

	"github.com/LJTian/BharatPulse/internal/cache"
	"github.com/LJTian/BharatPulse/internal/collector"
	"github.com/LJTian/BharatPulse/internal/translate"
)

// Source 一个订阅源
type Source struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	Category string `json:"category,omitempty"`
}

type SourceLister interface {
	ListSources(ctx context.Context) ([]Source, error)
}

// StaticSources 来自配置的固定订阅源
type StaticSources []Source

func (s StaticSources) ListSources(context.Context) ([]Source, error) {
	out := make([]Source, len(s))
	copy(out, s)
	return out, nil
}

type Translator interface {
	Translate(ctx context.Context, text string) translate.Result
}

// Headline 返回给前端的一条新闻
type Headline struct {
	ID       string `json:"id"`
	Source   string `json:"source"`
	Category string `json:"category,omitempty"`
	collector.Article

	TranslatedTitle   *string          `json:"translated_title"`
	TranslationStatus translate.Status `json:"translation_status"`
}

// Filter 为空字段表示不过滤
type Filter struct {
	Source   string
	Category string
}

func (f Filter) match(s Source) bool {
	if f.Source != "" && !strings.EqualFold(f.Source, s.Name) {
		return false
	}
	if f.Category != "" && !strings.EqualFold(f.Category, s.Category) {
		return false
	}
	return true
}

// Pipeline 订阅源 → 缓存 → 翻译。每一轮按源、按条目顺序执行
type Pipeline struct {
	fetcher    collector.Fetcher
	feeds      *cache.TTL[[]collector.Article]
	translator Translator
	policy     translate.Policy
	sources    SourceLister
}

func NewPipeline(fetcher collector.Fetcher, feeds *cache.TTL[[]collector.Article], translator Translator, policy translate.Policy, sources SourceLister) *Pipeline {
	if policy == nil {
		policy = translate.ASCIILetterPolicy
	}
	return &Pipeline{
		fetcher:    fetcher,
		feeds:      feeds,
		translator: translator,
		policy:     policy,
		sources:    sources,
	}
}

func (p *Pipeline) Sources(ctx context.Context) ([]Source, error) {
	return p.sources.ListSources(ctx)
}

// FetchFeed 读取缓存，未命中则抓取。返回的切片是缓存的副本
func (p *Pipeline) FetchFeed(ctx context.Context, url string) ([]collector.Article, error) {
	articles, err := p.feeds.GetOrLoad(ctx, url, func(ctx context.Context) ([]collector.Article, error) {
		return p.fetcher.Fetch(ctx, url)
	})
	if err != nil {
		return []collector.Article{}, err
	}
	out := make([]collector.Article, len(articles))
	copy(out, articles)
	return out, nil
}

// Headlines 对匹配的订阅源执行一轮完整流程；单个源失败只记录日志
func (p *Pipeline) Headlines(ctx context.Context, f Filter) ([]Headline, error) {
	sources, err := p.sources.ListSources(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]Headline, 0)
	seen := make(map[string]struct{})
	for _, src := range sources {
		if !f.match(src) {
			continue
		}
		articles, err := p.FetchFeed(ctx, src.URL)
		if err != nil {
			slog.Warn("pipeline: feed failed", "source", src.Name, "url", src.URL, "error", err)
			continue
		}
		for _, h := range p.Process(ctx, src, articles) {
			if _, ok := seen[h.ID]; ok {
				continue
			}
			seen[h.ID] = struct{}{}
			out = append(out, h)
		}
	}
	return out, nil
}

// Warm 只预热订阅源缓存，不翻译
func (p *Pipeline) Warm(ctx context.Context) (int, error) {
	sources, err := p.sources.ListSources(ctx)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, src := range sources {
		if ctx.Err() != nil {
			return total, ctx.Err()
		}
		articles, err := p.FetchFeed(ctx, src.URL)
		if err != nil {
			slog.Warn("pipeline: warm feed failed", "source", src.Name, "error", err)
			continue
		}
		total += len(articles)
	}
	return total, nil
}

// Process 为一批文章生成 ID 并翻译标题，同一源内按链接去重
func (p *Pipeline) Process(ctx context.Context, src Source, articles []collector.Article) []Headline {
	out := make([]Headline, 0, len(articles))
	seen := make(map[string]struct{})

	for _, a := range articles {
		id := hashURL(a.Link)
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}

		h := Headline{
			ID:                id,
			Source:            src.Name,
			Category:          src.Category,
			Article:           a,
			TranslationStatus: translate.StatusPending,
		}
		p.translateTitle(ctx, &h)
		out = append(out, h)
	}
	return out
}

func (p *Pipeline) translateTitle(ctx context.Context, h *Headline) {
	title := h.Title
	if p.translator == nil || !p.policy.NeedsTranslation(title) {
		h.TranslatedTitle = &title
		h.TranslationStatus = translate.StatusSkipped
		return
	}
	res := p.translator.Translate(ctx, title)
	h.TranslatedTitle = &res.Text
	h.TranslationStatus = res.Status
}

func hashURL(url string) string {
	h := sha1.New()
	h.Write([]byte(url))
	return hex.EncodeToString(h.Sum(nil))
}
