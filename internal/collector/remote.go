package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	remoteMaxResponseBytes = 256 * 1024
	remoteMaxChars         = 2000
)

// RemoteExtractor 调用 cmd/browser-scraper 的 /extract 接口（headless 浏览器渲染后抽取）
type RemoteExtractor struct {
	baseURL string
	client  *http.Client
}

func NewRemoteExtractor(baseURL string, timeout time.Duration) *RemoteExtractor {
	return &RemoteExtractor{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

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

func (r *RemoteExtractor) Extract(ctx context.Context, link string) (Page, error) {
	body, err := json.Marshal(extractRequest{URL: link, MaxChars: remoteMaxChars})
	if err != nil {
		return Page{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/extract", bytes.NewReader(body))
	if err != nil {
		return Page{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return Page{}, fmt.Errorf("remote extract: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Page{}, fmt.Errorf("remote extract: status %d", resp.StatusCode)
	}

	var out extractResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, remoteMaxResponseBytes)).Decode(&out); err != nil {
		return Page{}, fmt.Errorf("remote extract: decode: %w", err)
	}
	if !out.OK {
		return Page{}, fmt.Errorf("remote extract: %w", errors.New(out.Error))
	}
	return Page{TopImage: out.Image, Text: out.Text}, nil
}
