package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/joho/godotenv"
)

type extractRequest struct {
	URL      string `json:"url"`
	MaxChars int    `json:"maxChars"`
}

type extractResponse struct {
	OK    bool   `json:"ok"`
	Text  string `json:"text,omitempty"`
	Image string `json:"image,omitempty"`
	Error string `json:"error,omitempty"`
}

// pageResult 页面内 JS 的返回值
type pageResult struct {
	Text  string `json:"text"`
	Image string `json:"image"`
}

const (
	defaultMaxChars = 2000
	maxMaxChars     = 8000
	navigateTimeout = 20 * time.Second
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
	_ = godotenv.Load()

	// 创建浏览器执行器与顶层上下文，整个进程复用一个 headless 实例
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), chromedp.DefaultExecAllocatorOptions[:]...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	// 预热浏览器，避免首个请求耗时过长
	if err := chromedp.Run(browserCtx); err != nil {
		slog.Warn("browser-scraper: warmup chromedp failed", "error", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/extract", extractHandler(func(reqCtx context.Context, url string) (pageResult, error) {
		// 每个请求用独立的超时上下文，复用同一个 browserCtx；请求断开时一并取消
		tabCtx, cancel := context.WithTimeout(browserCtx, navigateTimeout)
		defer cancel()
		stop := context.AfterFunc(reqCtx, cancel)
		defer stop()

		var res pageResult
		err := chromedp.Run(tabCtx,
			chromedp.Navigate(url),
			chromedp.WaitReady("body", chromedp.ByQuery),
			chromedp.Evaluate(extractJS(), &res),
		)
		return res, err
	}))

	addr := ":" + getEnv("PORT", "4000")
	slog.Info("browser-scraper listening", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("browser-scraper: http server error", "error", err)
		os.Exit(1)
	}
}

type renderFunc func(ctx context.Context, url string) (pageResult, error)

func extractHandler(render renderFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req extractRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, extractResponse{OK: false, Error: "invalid json"})
			return
		}
		if req.URL == "" {
			writeJSON(w, http.StatusBadRequest, extractResponse{OK: false, Error: "url is required"})
			return
		}
		if req.MaxChars <= 0 || req.MaxChars > maxMaxChars {
			req.MaxChars = defaultMaxChars
		}

		res, err := render(r.Context(), req.URL)
		if err != nil {
			slog.Warn("browser-scraper: extract failed", "url", req.URL, "error", err)
			writeJSON(w, http.StatusOK, extractResponse{OK: false, Error: err.Error()})
			return
		}

		text := trimWhitespace(res.Text)
		image := strings.TrimSpace(res.Image)
		if text == "" && image == "" {
			writeJSON(w, http.StatusOK, extractResponse{OK: false, Error: "empty content"})
			return
		}

		// rune 级截断，避免泰卢固文被截断成半个字符
		if rs := []rune(text); len(rs) > req.MaxChars {
			text = string(rs[:req.MaxChars]) + "..."
		}

		writeJSON(w, http.StatusOK, extractResponse{OK: true, Text: text, Image: image})
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// extractJS 返回一段 JS，在页面中提取正文文本与主图。
// 正文优先在常见容器中找，找不到时再全页兜底；主图优先 og:image。
func extractJS() string {
	return `(function () {
  function getTextFromSelector(selector) {
    var el = document.querySelector(selector);
    if (!el) return "";
    return el.innerText || "";
  }

  function metaContent(selector) {
    var el = document.querySelector(selector);
    return el ? (el.getAttribute("content") || el.getAttribute("href") || "") : "";
  }

  var selectors = [
    "article",
    "div.article-content",
    "div#article-content",
    "div#content",
    "div.main-content",
    "div.content",
    "div.article",
    "main"
  ];

  var text = "";
  var container = null;
  for (var i = 0; i < selectors.length; i++) {
    text = getTextFromSelector(selectors[i]).trim();
    if (text && text.length > 200) {
      container = document.querySelector(selectors[i]);
      break;
    }
  }

  if (!text || text.length < 200) {
    var nodes = Array.prototype.slice.call(document.querySelectorAll("p"));
    var pieces = [];
    for (var j = 0; j < nodes.length; j++) {
      var t = (nodes[j].innerText || "").trim();
      if (t.length >= 40) {
        pieces.push(t);
      }
      if (pieces.join("\\n\\n").length > 4000) break;
    }
    text = pieces.join("\\n\\n");
  }

  var image = metaContent('meta[property="og:image"]') ||
    metaContent('meta[name="og:image"]') ||
    metaContent('meta[name="twitter:image"]') ||
    metaContent('link[rel="image_src"]');
  if (!image && container) {
    var img = container.querySelector("img[src]");
    if (img) image = img.src;
  }
  if (image) {
    try { image = new URL(image, document.baseURI).href; } catch (e) {}
  }

  return { text: (text || "").replace(/\\s+\\n/g, "\\n").trim(), image: image || "" };
})();`
}

func trimWhitespace(s string) string {
	// 简单的空白清理，避免过多连续空行
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	for strings.Contains(s, "\n\n\n") {
		s = strings.ReplaceAll(s, "\n\n\n", "\n\n")
	}
	return strings.TrimSpace(s)
}
