package collector

import (
	"context"
	"log/slog"
	"strings"
)

// summaryMaxRunes 抓取正文作为摘要时的截断长度
const summaryMaxRunes = 200

// Page 整页抽取结果：首图与正文
type Page struct {
	TopImage string `json:"image"`
	Text     string `json:"text"`
}

// Extractor 下载并解析文章页面
type Extractor interface {
	Extract(ctx context.Context, link string) (Page, error)
}

// Enricher 为缺图/缺摘要的条目从原文页面补全，尽力而为
type Enricher struct {
	extractor Extractor
}

func NewEnricher(extractor Extractor) *Enricher {
	return &Enricher{extractor: extractor}
}

// Enrich 任何失败都被吞掉：已有字段保持不变，仅把仍缺失字段的状态标记为 failed
func (e *Enricher) Enrich(ctx context.Context, a *Article) {
	if !NeedsEnrichment(*a) {
		return
	}

	page, err := e.extractor.Extract(ctx, a.Link)
	if err != nil {
		slog.Debug("enrich: extract failed", "url", a.Link, "error", err)
		if a.ImageURL == "" {
			a.ImageStatus = FieldFailed
		}
		if a.Summary == "" {
			a.SummaryStatus = FieldFailed
		}
		return
	}

	if a.ImageURL == "" {
		if img := strings.TrimSpace(page.TopImage); img != "" {
			a.ImageURL = img
			a.ImageStatus = FieldScraped
		}
	}
	if a.Summary == "" {
		if text := strings.TrimSpace(page.Text); text != "" {
			a.Summary = truncateRunes(text, summaryMaxRunes)
			a.SummaryStatus = FieldScraped
		}
	}
}

// truncateRunes 按 rune 截断，超长时追加 "..."
func truncateRunes(s string, limit int) string {
	rs := []rune(s)
	if len(rs) <= limit {
		return s
	}
	return string(rs[:limit]) + "..."
}
