package processor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LJTian/BharatPulse/internal/cache"
	"github.com/LJTian/BharatPulse/internal/collector"
	"github.com/LJTian/BharatPulse/internal/translate"
)

type fakeFetcher struct {
	feeds map[string][]collector.Article
	errs  map[string]error
	calls map[string]int
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) ([]collector.Article, error) {
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[url]++
	if err := f.errs[url]; err != nil {
		return []collector.Article{}, err
	}
	return f.feeds[url], nil
}

type fakeTranslator struct {
	result func(string) translate.Result
	seen   []string
}

func (f *fakeTranslator) Translate(_ context.Context, text string) translate.Result {
	f.seen = append(f.seen, text)
	if f.result != nil {
		return f.result(text)
	}
	return translate.Result{Text: "te:" + text, Status: translate.StatusTranslated}
}

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func article(title, link string) collector.Article {
	return collector.Article{Title: title, Link: link, Published: collector.PublishedUnavailable}
}

func newPipeline(f *fakeFetcher, tr Translator, c *clock, sources ...Source) *Pipeline {
	feeds := cache.New[[]collector.Article]("feeds", time.Hour, cache.WithClock(c.Now))
	return NewPipeline(f, feeds, tr, nil, StaticSources(sources))
}

func TestHashURLDeterministicAndDistinct(t *testing.T) {
	url1 := "https://example.com/a"
	url2 := "https://example.com/b"

	h1a := hashURL(url1)
	h1b := hashURL(url1)
	h2 := hashURL(url2)

	if h1a != h1b {
		t.Fatalf("hashURL not deterministic: %q vs %q", h1a, h1b)
	}
	if h1a == h2 {
		t.Fatalf("hashURL should differ for different URLs: %q", h1a)
	}
}

func TestProcessDeduplicatesAndTranslates(t *testing.T) {
	tr := &fakeTranslator{}
	p := newPipeline(&fakeFetcher{}, tr, &clock{now: time.Now()})

	src := Source{Name: "Sakshi", Category: "National"}
	out := p.Process(context.Background(), src, []collector.Article{
		article("Rain in Hyderabad", "https://example.com/1"),
		article("Rain in Hyderabad again", "https://example.com/1"),
		article("హైదరాబాద్ వార్తలు", "https://example.com/2"),
	})
	require.Len(t, out, 2)

	assert.Equal(t, hashURL("https://example.com/1"), out[0].ID)
	assert.Equal(t, "Sakshi", out[0].Source)
	assert.Equal(t, "National", out[0].Category)
	require.NotNil(t, out[0].TranslatedTitle)
	assert.Equal(t, "te:Rain in Hyderabad", *out[0].TranslatedTitle)
	assert.Equal(t, translate.StatusTranslated, out[0].TranslationStatus)

	// 没有 ASCII 字母的标题原样作为译文，不送翻译
	require.NotNil(t, out[1].TranslatedTitle)
	assert.Equal(t, "హైదరాబాద్ వార్తలు", *out[1].TranslatedTitle)
	assert.Equal(t, translate.StatusSkipped, out[1].TranslationStatus)
	assert.Equal(t, []string{"Rain in Hyderabad"}, tr.seen)
}

func TestProcessModelUnavailable(t *testing.T) {
	tr := &fakeTranslator{result: func(string) translate.Result {
		return translate.Result{Text: translate.Unavailable, Status: translate.StatusUnavailable}
	}}
	p := newPipeline(&fakeFetcher{}, tr, &clock{now: time.Now()})

	out := p.Process(context.Background(), Source{Name: "x"}, []collector.Article{article("Rain", "https://e.com/r")})
	require.Len(t, out, 1)
	assert.Equal(t, translate.Unavailable, *out[0].TranslatedTitle)
	assert.Equal(t, "Rain", out[0].Title)
}

func TestFetchFeedCachesWithinTTL(t *testing.T) {
	url := "https://feeds.example.com/rss"
	f := &fakeFetcher{feeds: map[string][]collector.Article{url: {article("A", "https://e.com/a")}}}
	c := &clock{now: time.Now()}
	p := newPipeline(f, nil, c)

	first, err := p.FetchFeed(context.Background(), url)
	require.NoError(t, err)
	second, err := p.FetchFeed(context.Background(), url)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, f.calls[url])

	c.now = c.now.Add(time.Hour + time.Second)
	third, err := p.FetchFeed(context.Background(), url)
	require.NoError(t, err)
	assert.Equal(t, first, third)
	assert.Equal(t, 2, f.calls[url])
}

func TestFetchFeedReturnsCopy(t *testing.T) {
	url := "https://feeds.example.com/rss"
	f := &fakeFetcher{feeds: map[string][]collector.Article{url: {article("A", "https://e.com/a")}}}
	p := newPipeline(f, nil, &clock{now: time.Now()})

	got, _ := p.FetchFeed(context.Background(), url)
	got[0].Title = "mutated"

	again, _ := p.FetchFeed(context.Background(), url)
	assert.Equal(t, "A", again[0].Title)
}

func TestFetchFeedFailureNotCached(t *testing.T) {
	url := "https://feeds.example.com/down"
	f := &fakeFetcher{errs: map[string]error{url: errors.New("dial tcp: refused")}}
	p := newPipeline(f, nil, &clock{now: time.Now()})

	out, err := p.FetchFeed(context.Background(), url)
	assert.Error(t, err)
	assert.Empty(t, out)
	_, _ = p.FetchFeed(context.Background(), url)
	assert.Equal(t, 2, f.calls[url])
}

func TestHeadlinesFiltersAndSkipsFailedSources(t *testing.T) {
	f := &fakeFetcher{
		feeds: map[string][]collector.Article{
			"u1": {article("One", "https://e.com/1"), article("Shared", "https://e.com/shared")},
			"u3": {article("Shared", "https://e.com/shared"), article("Three", "https://e.com/3")},
		},
		errs: map[string]error{"u2": errors.New("timeout")},
	}
	p := newPipeline(f, &fakeTranslator{}, &clock{now: time.Now()},
		Source{Name: "Sakshi", URL: "u1", Category: "National"},
		Source{Name: "Down", URL: "u2", Category: "National"},
		Source{Name: "Eenadu", URL: "u3", Category: "Sports"},
	)

	all, err := p.Headlines(context.Background(), Filter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Sakshi", all[1].Source)

	sports, err := p.Headlines(context.Background(), Filter{Category: "sports"})
	require.NoError(t, err)
	require.Len(t, sports, 2)
	assert.Equal(t, "Eenadu", sports[0].Source)

	one, err := p.Headlines(context.Background(), Filter{Source: "sakshi"})
	require.NoError(t, err)
	assert.Len(t, one, 2)
}

func TestWarmCountsArticles(t *testing.T) {
	f := &fakeFetcher{
		feeds: map[string][]collector.Article{"u1": {article("A", "https://e.com/a")}},
		errs:  map[string]error{"u2": errors.New("boom")},
	}
	p := newPipeline(f, nil, &clock{now: time.Now()}, Source{Name: "a", URL: "u1"}, Source{Name: "b", URL: "u2"})

	n, err := p.Warm(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, _ = p.Headlines(context.Background(), Filter{})
	assert.Equal(t, 1, f.calls["u1"])
}
