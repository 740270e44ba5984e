package translate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const translateMaxResponseBytes = 256 * 1024

const (
	translateMaxLen = 500

	googleBaseURL   = "https://translate.googleapis.com/translate_a/single"
	myMemoryBaseURL = "https://api.mymemory.translated.net/get"
)

var errNoEngine = errors.New("no translation engine succeeded")

func clip(text string) string {
	text = strings.TrimSpace(text)
	if rs := []rune(text); len(rs) > translateMaxLen {
		text = string(rs[:translateMaxLen])
	}
	return text
}

// GoogleEngine 使用 Google Translate 公开 API（client=gtx，无需 TKK/密钥）
type GoogleEngine struct {
	baseURL string
	client  *http.Client
}

func NewGoogleEngine(timeout time.Duration) *GoogleEngine {
	return &GoogleEngine{baseURL: googleBaseURL, client: &http.Client{Timeout: timeout}}
}

func (g *GoogleEngine) Name() string { return "google-gtx" }

// Load 公开接口无需预加载
func (g *GoogleEngine) Load(context.Context) error { return nil }

func (g *GoogleEngine) Translate(ctx context.Context, text string) (string, error) {
	q := url.Values{}
	q.Set("client", "gtx")
	q.Set("sl", "en")
	q.Set("tl", "te")
	q.Set("dt", "t")
	q.Set("q", clip(text))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("google-gtx: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("google-gtx: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, translateMaxResponseBytes))
	if err != nil {
		return "", err
	}

	// 响应格式: [[["译文","原文",...],...],...]
	var raw []any
	if err := json.Unmarshal(body, &raw); err != nil {
		return "", fmt.Errorf("google-gtx: decode: %w", err)
	}
	if len(raw) == 0 {
		return "", errors.New("google-gtx: empty response")
	}
	outer, ok := raw[0].([]any)
	if !ok {
		return "", errors.New("google-gtx: unexpected response")
	}

	var result strings.Builder
	for _, seg := range outer {
		pair, ok := seg.([]any)
		if !ok || len(pair) < 1 {
			continue
		}
		if s, ok := pair[0].(string); ok {
			result.WriteString(s)
		}
	}
	out := strings.TrimSpace(result.String())
	if out == "" {
		return "", errors.New("google-gtx: empty translation")
	}
	return out, nil
}

type MyMemoryEngine struct {
	baseURL string
	client  *http.Client
}

func NewMyMemoryEngine(timeout time.Duration) *MyMemoryEngine {
	return &MyMemoryEngine{baseURL: myMemoryBaseURL, client: &http.Client{Timeout: timeout}}
}

func (m *MyMemoryEngine) Name() string { return "mymemory" }

func (m *MyMemoryEngine) Load(context.Context) error { return nil }

func (m *MyMemoryEngine) Translate(ctx context.Context, text string) (string, error) {
	q := url.Values{}
	q.Set("langpair", "en|te")
	q.Set("q", clip(text))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("mymemory: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("mymemory: status %d", resp.StatusCode)
	}
	var out struct {
		ResponseData struct {
			TranslatedText string `json:"translatedText"`
		} `json:"responseData"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, translateMaxResponseBytes)).Decode(&out); err != nil {
		return "", fmt.Errorf("mymemory: decode: %w", err)
	}
	s := strings.TrimSpace(out.ResponseData.TranslatedText)
	if s == "" {
		return "", errors.New("mymemory: empty translation")
	}
	return s, nil
}

// ChainEngine 依次尝试各引擎，返回第一个成功的译文
type ChainEngine struct {
	engines []Engine
}

func NewChainEngine(engines ...Engine) *ChainEngine {
	return &ChainEngine{engines: engines}
}

// NewWebEngine Google Translate 直接 API → MyMemory
func NewWebEngine(timeout time.Duration) *ChainEngine {
	return NewChainEngine(NewGoogleEngine(timeout), NewMyMemoryEngine(timeout))
}

func (c *ChainEngine) Name() string {
	names := make([]string, 0, len(c.engines))
	for _, e := range c.engines {
		names = append(names, e.Name())
	}
	return strings.Join(names, "+")
}

// Load 任一引擎可用即可
func (c *ChainEngine) Load(ctx context.Context) error {
	var errs []error
	for _, e := range c.engines {
		err := e.Load(ctx)
		if err == nil {
			return nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return errNoEngine
	}
	return errors.Join(errs...)
}

func (c *ChainEngine) Translate(ctx context.Context, text string) (string, error) {
	for _, e := range c.engines {
		out, err := e.Translate(ctx, text)
		if err == nil && out != "" {
			return out, nil
		}
		slog.Debug("translate: engine fell through", "engine", e.Name(), "error", err)
	}
	return "", errNoEngine
}
