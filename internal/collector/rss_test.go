package collector

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:media="http://search.yahoo.com/mrss/">
<channel>
  <title>Sample</title>
  <link>https://news.example.com</link>
  <description>sample feed</description>
  <item>
    <title>New Bridge Opens</title>
    <link>https://news.example.com/bridge</link>
    <description><![CDATA[<p>The bridge <b>opened</b> today.</p>]]></description>
    <pubDate>Mon, 02 Jun 2025 10:00:00 +0530</pubDate>
    <media:content url="https://img.example.com/video.mp4" type="video/mp4"/>
    <media:content url="https://img.example.com/bridge.jpg" type="image/jpeg"/>
  </item>
  <item>
    <title>హైదరాబాద్ వార్తలు</title>
    <link>https://news.example.com/hyd</link>
    <description><![CDATA[<img src="https://img.example.com/hyd.png"/> నగరంలో వర్షం]]></description>
  </item>
  <item>
    <title>   </title>
    <link>https://news.example.com/blank-title</link>
    <description>dropped</description>
  </item>
  <item>
    <title>No link</title>
    <description>dropped too</description>
  </item>
  <item>
    <title>Enclosure only</title>
    <link>https://news.example.com/enc</link>
    <description>text</description>
    <enclosure url="https://img.example.com/enc.jpg" type="image/jpeg" length="10"/>
  </item>
</channel>
</rss>`

const emptyFeed = `<?xml version="1.0"?><rss version="2.0"><channel><title>Empty</title></channel></rss>`

func feedServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

type fakeExtractor struct {
	mu    sync.Mutex
	page  Page
	err   error
	calls []string
}

func (f *fakeExtractor) Extract(_ context.Context, link string) (Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, link)
	return f.page, f.err
}

func TestRSSFetcherParsesAndFilters(t *testing.T) {
	srv := feedServer(t, sampleFeed)
	f := NewRSSFetcher(srv.Client(), nil)

	articles, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Len(t, articles, 3)

	bridge := articles[0]
	assert.Equal(t, "New Bridge Opens", bridge.Title)
	assert.Equal(t, "https://news.example.com/bridge", bridge.Link)
	assert.Equal(t, "The bridge opened today.", bridge.Summary)
	assert.Equal(t, "Mon, 02 Jun 2025 10:00:00 +0530", bridge.Published)
	assert.Equal(t, "https://img.example.com/bridge.jpg", bridge.ImageURL)
	assert.Equal(t, FieldFromFeed, bridge.ImageStatus)
	assert.Equal(t, FieldFromFeed, bridge.SummaryStatus)

	hyd := articles[1]
	assert.Equal(t, "https://img.example.com/hyd.png", hyd.ImageURL)
	assert.Equal(t, "నగరంలో వర్షం", hyd.Summary)
	assert.Equal(t, PublishedUnavailable, hyd.Published)

	assert.Equal(t, "https://img.example.com/enc.jpg", articles[2].ImageURL)
}

func TestRSSFetcherEmptyFeed(t *testing.T) {
	srv := feedServer(t, emptyFeed)
	f := NewRSSFetcher(srv.Client(), nil)

	articles, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.NotNil(t, articles)
	assert.Empty(t, articles)
}

func TestRSSFetcherNetworkErrorReturnsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	f := NewRSSFetcher(nil, nil)
	articles, err := f.Fetch(context.Background(), url)
	assert.Error(t, err)
	assert.NotNil(t, articles)
	assert.Empty(t, articles)
}

func TestRSSFetcherHTTPErrorReturnsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	articles, err := NewRSSFetcher(srv.Client(), nil).Fetch(context.Background(), srv.URL)
	assert.Error(t, err)
	assert.Empty(t, articles)
}

func TestRSSFetcherEnrichesOnlyIncompleteEntries(t *testing.T) {
	srv := feedServer(t, sampleFeed)
	ex := &fakeExtractor{page: Page{TopImage: "https://img.example.com/scraped.jpg", Text: "scraped text"}}
	f := NewRSSFetcher(srv.Client(), NewEnricher(ex))

	articles, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)

	// 保留下来的三条都已有图和摘要，不触发抓取
	assert.Empty(t, ex.calls)
	assert.Len(t, articles, 3)
}

func TestRSSFetcherEnrichesMissingImage(t *testing.T) {
	feed := `<?xml version="1.0"?><rss version="2.0"><channel><title>x</title>
<item><title>Plain</title><link>https://news.example.com/plain</link><description>has text</description></item>
<item><title>Relative</title><link>/relative/path</link></item>
</channel></rss>`
	srv := feedServer(t, feed)
	ex := &fakeExtractor{page: Page{TopImage: "https://img.example.com/lead.jpg", Text: "ignored"}}
	f := NewRSSFetcher(srv.Client(), NewEnricher(ex))

	articles, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Len(t, articles, 2)

	assert.Equal(t, []string{"https://news.example.com/plain"}, ex.calls)
	assert.Equal(t, "https://img.example.com/lead.jpg", articles[0].ImageURL)
	assert.Equal(t, FieldScraped, articles[0].ImageStatus)
	assert.Equal(t, "has text", articles[0].Summary)
	assert.Equal(t, FieldFromFeed, articles[0].SummaryStatus)

	// 非 http(s) 链接不会触发抓取
	assert.Equal(t, FieldAbsent, articles[1].ImageStatus)
}

func TestEnricherFailureKeepsValues(t *testing.T) {
	in := Article{
		Title:         "Only title",
		Link:          "https://news.example.com/a",
		Published:     PublishedUnavailable,
		ImageStatus:   FieldAbsent,
		SummaryStatus: FieldAbsent,
	}
	out := in
	NewEnricher(&fakeExtractor{err: errors.New("timeout")}).Enrich(context.Background(), &out)

	assert.Equal(t, in.Title, out.Title)
	assert.Equal(t, in.Link, out.Link)
	assert.Equal(t, in.Summary, out.Summary)
	assert.Equal(t, in.Published, out.Published)
	assert.Equal(t, in.ImageURL, out.ImageURL)
	assert.Equal(t, FieldFailed, out.ImageStatus)
	assert.Equal(t, FieldFailed, out.SummaryStatus)
}

func TestEnricherTruncatesScrapedSummary(t *testing.T) {
	long := make([]rune, 250)
	for i := range long {
		long[i] = 'అ'
	}
	a := Article{Title: "t", Link: "https://news.example.com/a", ImageURL: "https://img/x.jpg"}
	NewEnricher(&fakeExtractor{page: Page{Text: string(long)}}).Enrich(context.Background(), &a)

	assert.Equal(t, string(long[:200])+"...", a.Summary)
	assert.Equal(t, FieldScraped, a.SummaryStatus)
	assert.Equal(t, "https://img/x.jpg", a.ImageURL)
}

func TestEnricherShortTextNotTruncated(t *testing.T) {
	a := Article{Title: "t", Link: "https://news.example.com/a"}
	NewEnricher(&fakeExtractor{page: Page{Text: "  short body  "}}).Enrich(context.Background(), &a)
	assert.Equal(t, "short body", a.Summary)
}

func TestNeedsEnrichment(t *testing.T) {
	cases := []struct {
		name string
		a    Article
		want bool
	}{
		{"complete", Article{Link: "https://x.com/a", ImageURL: "i", Summary: "s"}, false},
		{"missing image", Article{Link: "https://x.com/a", Summary: "s"}, true},
		{"missing summary", Article{Link: "http://x.com/a", ImageURL: "i"}, true},
		{"hash link", Article{Link: "#"}, false},
		{"no scheme", Article{Link: "x.com/a"}, false},
		{"ftp", Article{Link: "ftp://x.com/a"}, false},
	}
	for _, c := range cases {
		if got := NeedsEnrichment(c.a); got != c.want {
			t.Fatalf("%s: NeedsEnrichment = %v, want %v", c.name, got, c.want)
		}
	}
}
