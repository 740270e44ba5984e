package collector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
)

const userAgent = "BharatPulseBot/1.0"

const (
	// 正文容器里的文本超过这个长度才认为找到了正文
	mainTextMinLen = 200
	// 兜底时只收集足够长的段落
	paragraphMinLen = 40
	fallbackMaxLen  = 4000
)

// 常见正文容器，按优先级排列
var contentSelectors = []string{
	"article",
	"div.article-content",
	"div#article-content",
	"div#content",
	"div.main-content",
	"div.content",
	"div.article",
	"main",
}

var leadImageSelectors = []struct {
	selector string
	attr     string
}{
	{`meta[property="og:image"]`, "content"},
	{`meta[name="og:image"]`, "content"},
	{`meta[name="twitter:image"]`, "content"},
	{`meta[property="twitter:image"]`, "content"},
	{`link[rel="image_src"]`, "href"},
}

// CollyExtractor 用 colly 下载页面，goquery 抽取首图与正文
type CollyExtractor struct {
	timeout time.Duration
}

func NewCollyExtractor(timeout time.Duration) *CollyExtractor {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &CollyExtractor{timeout: timeout}
}

var errNoHTML = errors.New("no html document")

func (x *CollyExtractor) Extract(ctx context.Context, link string) (Page, error) {
	if err := ctx.Err(); err != nil {
		return Page{}, err
	}

	c := colly.NewCollector(colly.UserAgent(userAgent))
	c.SetRequestTimeout(x.timeout)
	c.WithTransport(ctxTransport{ctx: ctx, base: http.DefaultTransport})
	c.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
		}
	})

	var (
		page Page
		seen bool
	)
	c.OnHTML("html", func(e *colly.HTMLElement) {
		seen = true
		page = extractPage(e.DOM, e.Request.AbsoluteURL)
	})

	err := c.Visit(link)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Page{}, fmt.Errorf("extract %s: %w", link, ctxErr)
	}
	if err != nil {
		return Page{}, fmt.Errorf("extract %s: %w", link, err)
	}
	if !seen {
		return Page{}, fmt.Errorf("extract %s: %w", link, errNoHTML)
	}
	return page, nil
}

// ctxTransport 让 colly 发出的请求（含重定向）随 ctx 取消
type ctxTransport struct {
	ctx  context.Context
	base http.RoundTripper
}

func (t ctxTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	return t.base.RoundTrip(r.WithContext(t.ctx))
}

// extractPage abs 用于把相对地址转成绝对地址，可为 nil
func extractPage(root *goquery.Selection, abs func(string) string) Page {
	resolve := func(u string) string {
		u = strings.TrimSpace(u)
		if u == "" || abs == nil {
			return u
		}
		if r := abs(u); r != "" {
			return r
		}
		return u
	}

	var page Page
	for _, li := range leadImageSelectors {
		if v, ok := root.Find(li.selector).First().Attr(li.attr); ok && strings.TrimSpace(v) != "" {
			page.TopImage = resolve(v)
			break
		}
	}

	var container *goquery.Selection
	for _, sel := range contentSelectors {
		c := root.Find(sel).First()
		if c.Length() == 0 {
			continue
		}
		text := containerText(c)
		if len(text) > mainTextMinLen {
			page.Text = text
			container = c
			break
		}
	}
	if page.Text == "" {
		page.Text = fallbackParagraphs(root)
	}

	if page.TopImage == "" && container != nil {
		if src, ok := container.Find("img").First().Attr("src"); ok {
			page.TopImage = resolve(src)
		}
	}
	return page
}

func containerText(c *goquery.Selection) string {
	var parts []string
	c.Find("p").Each(func(_ int, p *goquery.Selection) {
		if t := collapseSpace(p.Text()); t != "" {
			parts = append(parts, t)
		}
	})
	if len(parts) == 0 {
		return collapseSpace(c.Text())
	}
	return strings.Join(parts, "\n\n")
}

func fallbackParagraphs(root *goquery.Selection) string {
	var (
		b     strings.Builder
		total int
	)
	root.Find("p").EachWithBreak(func(_ int, p *goquery.Selection) bool {
		t := collapseSpace(p.Text())
		if len(t) < paragraphMinLen {
			return true
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(t)
		total += len(t)
		return total <= fallbackMaxLen
	})
	return b.String()
}
