package collector

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"
)

// RSSFetcher 解析 RSS/Atom 订阅源，对缺图/缺摘要的条目逐条调用 Enricher
type RSSFetcher struct {
	parser   *gofeed.Parser
	enricher *Enricher
}

// NewRSSFetcher enricher 可为 nil，此时不做页面补全
func NewRSSFetcher(client *http.Client, enricher *Enricher) *RSSFetcher {
	p := gofeed.NewParser()
	p.UserAgent = userAgent
	if client != nil {
		p.Client = client
	}
	return &RSSFetcher{parser: p, enricher: enricher}
}

// Fetch 失败时返回空切片和错误，由调用方记录后继续处理其它源
func (f *RSSFetcher) Fetch(ctx context.Context, feedURL string) ([]Article, error) {
	feed, err := f.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return []Article{}, fmt.Errorf("rss: fetch %s: %w", feedURL, err)
	}

	articles := make([]Article, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		a := articleFromItem(item)
		// 标题或链接为空的条目直接丢弃
		if strings.TrimSpace(a.Title) == "" || strings.TrimSpace(a.Link) == "" {
			continue
		}
		if f.enricher != nil && NeedsEnrichment(a) {
			f.enricher.Enrich(ctx, &a)
		}
		articles = append(articles, a)
	}

	slog.Debug("rss: feed parsed", "url", feedURL, "items", len(feed.Items), "kept", len(articles))
	return articles, nil
}

func articleFromItem(item *gofeed.Item) Article {
	a := Article{
		Title:         item.Title,
		Link:          item.Link,
		Published:     item.Published,
		ImageStatus:   FieldAbsent,
		SummaryStatus: FieldAbsent,
	}
	if strings.TrimSpace(a.Published) == "" {
		a.Published = PublishedUnavailable
	}

	a.Summary = htmlToText(item.Description)
	if a.Summary == "" {
		a.Summary = htmlToText(item.Content)
	}
	if a.Summary != "" {
		a.SummaryStatus = FieldFromFeed
	}

	// 图片优先级：media:content（image 类型）> enclosure（image 类型）> 描述 HTML 中的第一个 <img>
	a.ImageURL = imageFromMedia(item.Extensions)
	if a.ImageURL == "" {
		a.ImageURL = imageFromEnclosures(item.Enclosures)
	}
	if a.ImageURL == "" {
		a.ImageURL = firstImgSrc(item.Description)
	}
	if a.ImageURL != "" {
		a.ImageStatus = FieldFromFeed
	}
	return a
}

func imageFromMedia(exts ext.Extensions) string {
	media, ok := exts["media"]
	if !ok {
		return ""
	}
	contents := append([]ext.Extension{}, media["content"]...)
	for _, g := range media["group"] {
		contents = append(contents, g.Children["content"]...)
	}
	for _, c := range contents {
		u := strings.TrimSpace(c.Attrs["url"])
		if u != "" && strings.HasPrefix(c.Attrs["type"], "image") {
			return u
		}
	}
	return ""
}

func imageFromEnclosures(encs []*gofeed.Enclosure) string {
	for _, e := range encs {
		if e == nil {
			continue
		}
		if e.URL != "" && strings.HasPrefix(e.Type, "image") {
			return e.URL
		}
	}
	return ""
}

// firstImgSrc 只看第一个 <img>，它没有 src 就视为无图
func firstImgSrc(fragment string) string {
	if !strings.Contains(fragment, "<") {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return ""
	}
	src, ok := doc.Find("img").First().Attr("src")
	if !ok {
		return ""
	}
	return strings.TrimSpace(src)
}

// htmlToText 去掉标签并折叠空白
func htmlToText(fragment string) string {
	fragment = strings.TrimSpace(fragment)
	if fragment == "" {
		return ""
	}
	if !strings.Contains(fragment, "<") {
		return collapseSpace(fragment)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return collapseSpace(fragment)
	}
	return collapseSpace(doc.Text())
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
