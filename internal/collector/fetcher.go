package collector

import (
	"context"
	"net/url"
)

// PublishedUnavailable 订阅源未提供发布时间时的占位值
const PublishedUnavailable = "N/A"

// FieldStatus 标记字段来源：来自订阅源、抓取补全、上游缺失、抓取失败
type FieldStatus string

const (
	FieldFromFeed FieldStatus = "feed"
	FieldScraped  FieldStatus = "scraped"
	FieldAbsent   FieldStatus = "absent"
	FieldFailed   FieldStatus = "failed"
)

// Article 订阅源条目解析、补全后的统一结构。只存在于内存缓存中，不落库
type Article struct {
	Title     string `json:"title"`
	Link      string `json:"link"`
	Summary   string `json:"summary"`
	Published string `json:"published"`
	ImageURL  string `json:"image_url,omitempty"`

	ImageStatus   FieldStatus `json:"image_status"`
	SummaryStatus FieldStatus `json:"summary_status"`
}

// Fetcher 抽象一个订阅源的抓取
type Fetcher interface {
	Fetch(ctx context.Context, feedURL string) ([]Article, error)
}

// NeedsEnrichment 缺图或缺摘要，且链接看起来是可访问的 http(s) 地址
func NeedsEnrichment(a Article) bool {
	if a.ImageURL != "" && a.Summary != "" {
		return false
	}
	return IsHTTPLink(a.Link)
}

func IsHTTPLink(link string) bool {
	u, err := url.Parse(link)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
