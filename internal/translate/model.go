package translate

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
	// TargetTag IndicTrans2 dist 模型用语言标签指定目标语言
	TargetTag = "<2te>"

	DefaultModel = "ai4bharat/indictrans2-en-indic-dist-200M"

	modelMaxResponseBytes = 256 * 1024
)

// GenerateParams beam search 参数
type GenerateParams struct {
	NumBeams      int  `json:"num_beams"`
	EarlyStopping bool `json:"early_stopping"`
	MaxNewTokens  int  `json:"max_new_tokens"`
}

var DefaultGenerateParams = GenerateParams{NumBeams: 5, EarlyStopping: true, MaxNewTokens: 128}

var errEmptyOutput = errors.New("empty model output")

// ModelEngine 调用推理服务上的预训练 seq2seq 模型（Hugging Face Inference 风格接口）。
// 模型权重只在推理服务侧加载；Load 探测模型是否就绪。
type ModelEngine struct {
	endpoint string
	model    string
	token    string
	params   GenerateParams
	client   *http.Client
}

func NewModelEngine(endpoint, model, token string, timeout time.Duration) *ModelEngine {
	if model == "" {
		model = DefaultModel
	}
	return &ModelEngine{
		endpoint: strings.TrimRight(endpoint, "/"),
		model:    model,
		token:    token,
		params:   DefaultGenerateParams,
		client:   &http.Client{Timeout: timeout},
	}
}

func (m *ModelEngine) Name() string {
	return "model:" + m.model
}

func (m *ModelEngine) modelURL() string {
	return m.endpoint + "/models/" + m.model
}

func (m *ModelEngine) Load(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.modelURL(), nil)
	if err != nil {
		return err
	}
	m.authorize(req)

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("model: load %s: %w", m.model, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, modelMaxResponseBytes))

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("model: load %s: status %d", m.model, resp.StatusCode)
	}
	return nil
}

type generateRequest struct {
	Inputs     string         `json:"inputs"`
	Parameters GenerateParams `json:"parameters"`
}

type generateOutput struct {
	TranslationText string `json:"translation_text"`
	GeneratedText   string `json:"generated_text"`
}

func (m *ModelEngine) Translate(ctx context.Context, text string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Inputs:     TargetTag + " " + text,
		Parameters: m.params,
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.modelURL(), bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	m.authorize(req)

	resp, err := m.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("model: generate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("model: generate: status %d", resp.StatusCode)
	}

	var outs []generateOutput
	if err := json.NewDecoder(io.LimitReader(resp.Body, modelMaxResponseBytes)).Decode(&outs); err != nil {
		return "", fmt.Errorf("model: decode: %w", err)
	}
	for _, o := range outs {
		text := o.TranslationText
		if text == "" {
			text = o.GeneratedText
		}
		text = strings.TrimSpace(strings.ReplaceAll(text, TargetTag, ""))
		if text != "" {
			return text, nil
		}
	}
	return "", errEmptyOutput
}

func (m *ModelEngine) authorize(req *http.Request) {
	if m.token != "" {
		req.Header.Set("Authorization", "Bearer "+m.token)
	}
}
