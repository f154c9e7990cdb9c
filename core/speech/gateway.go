package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"homereader/logger"
)

const (
	batchAPIVersion     = "2024-04-01"
	defaultOutputFormat = "audio-48khz-192kbitrate-mono-mp3"
	defaultPollInterval = 5 * time.Second
)

// VendorStatus is the lifecycle status reported by the batch synthesis API.
type VendorStatus string

const (
	JobNotStarted VendorStatus = "NotStarted"
	JobRunning    VendorStatus = "Running"
	JobSucceeded  VendorStatus = "Succeeded"
	JobFailed     VendorStatus = "Failed"
)

// JobStatus 一次轮询的结果
type JobStatus struct {
	ID        string
	Status    VendorStatus
	ResultURL string
	Raw       []byte
}

// GatewayConfig 配置 Azure 批量合成客户端
type GatewayConfig struct {
	BaseURL      string // e.g. https://eastus.api.cognitive.microsoft.com
	Key          string
	OutputFormat string
	PollInterval time.Duration
	PollTimeout  time.Duration // 0 = no limit
	HTTPClient   *http.Client
}

// AzureGateway wraps the Azure batch text-to-speech REST API.
type AzureGateway struct {
	baseURL      string
	key          string
	outputFormat string
	pollInterval time.Duration
	pollTimeout  time.Duration
	httpClient   *http.Client
}

// NewAzureGateway 创建 Azure 批量合成客户端
func NewAzureGateway(cfg GatewayConfig) *AzureGateway {
	g := &AzureGateway{
		baseURL:      cfg.BaseURL,
		key:          cfg.Key,
		outputFormat: cfg.OutputFormat,
		pollInterval: cfg.PollInterval,
		pollTimeout:  cfg.PollTimeout,
		httpClient:   cfg.HTTPClient,
	}
	if g.outputFormat == "" {
		g.outputFormat = defaultOutputFormat
	}
	if g.pollInterval <= 0 {
		g.pollInterval = defaultPollInterval
	}
	if g.httpClient == nil {
		g.httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return g
}

type batchSynthesisRequest struct {
	Description     string            `json:"description,omitempty"`
	InputKind       string            `json:"inputKind"`
	Inputs          []batchInput      `json:"inputs"`
	SynthesisConfig batchSynthConfig  `json:"synthesisConfig"`
	Properties      batchSynthesisOps `json:"properties"`
}

type batchInput struct {
	Content string `json:"content"`
}

type batchSynthConfig struct {
	Voice string `json:"voice"`
}

type batchSynthesisOps struct {
	OutputFormat            string `json:"outputFormat"`
	WordBoundaryEnabled     bool   `json:"wordBoundaryEnabled"`
	SentenceBoundaryEnabled bool   `json:"sentenceBoundaryEnabled"`
	ConcatenateResult       bool   `json:"concatenateResult"`
	DecompressOutputFiles   bool   `json:"decompressOutputFiles"`
}

type batchSynthesisResponse struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Outputs struct {
		Result string `json:"result"`
	} `json:"outputs"`
}

func (g *AzureGateway) jobURL(jobID string) string {
	return fmt.Sprintf("%s/texttospeech/batchsyntheses/%s?api-version=%s",
		g.baseURL, url.PathEscape(jobID), batchAPIVersion)
}

// Submit creates a batch synthesis job whose id is the caller supplied key.
// A conflict means the job already exists and is treated as success.
func (g *AzureGateway) Submit(ctx context.Context, key, text, voice string) (string, error) {
	payload, err := json.Marshal(batchSynthesisRequest{
		Description:     "homereader " + key,
		InputKind:       "PlainText",
		Inputs:          []batchInput{{Content: text}},
		SynthesisConfig: batchSynthConfig{Voice: voice},
		Properties: batchSynthesisOps{
			OutputFormat:            g.outputFormat,
			SentenceBoundaryEnabled: true,
			ConcatenateResult:       true,
		},
	})
	if err != nil {
		return "", fmt.Errorf("speech: encode batch request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, g.jobURL(key), bytes.NewReader(payload))
	if err != nil {
		return "", transportErr("create submit request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Ocp-Apim-Subscription-Key", g.key)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", transportErr("submit batch synthesis", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusConflict:
		logger.Info("[speech/Submit] 合成任务已存在，沿用已有任务", logger.String("jobID", key))
		return key, nil
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", transportErr("submit batch synthesis",
			fmt.Errorf("unexpected status %d: %s", resp.StatusCode, bytes.TrimSpace(body)))
	}

	logger.Info("[speech/Submit] 合成任务已创建", logger.String("jobID", key), logger.String("voice", voice))
	return key, nil
}

// Poll fetches the current status of a job.
func (g *AzureGateway) Poll(ctx context.Context, jobID string) (*JobStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.jobURL(jobID), nil)
	if err != nil {
		return nil, transportErr("create poll request", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", g.key)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, transportErr("poll batch synthesis", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportErr("read poll response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, transportErr("poll batch synthesis",
			fmt.Errorf("unexpected status %d: %s", resp.StatusCode, bytes.TrimSpace(raw)))
	}

	var parsed batchSynthesisResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, transportErr("decode poll response", err)
	}

	return &JobStatus{
		ID:        jobID,
		Status:    VendorStatus(parsed.Status),
		ResultURL: parsed.Outputs.Result,
		Raw:       raw,
	}, nil
}

// Wait polls the job at a fixed interval until it succeeds or fails.
func (g *AzureGateway) Wait(ctx context.Context, jobID string) (*JobStatus, error) {
	var deadline time.Time
	if g.pollTimeout > 0 {
		deadline = time.Now().Add(g.pollTimeout)
	}

	for attempt := 1; ; attempt++ {
		status, err := g.Poll(ctx, jobID)
		if err != nil {
			return nil, err
		}

		switch status.Status {
		case JobSucceeded:
			logger.Info("[speech/Wait] 合成任务完成",
				logger.String("jobID", jobID), logger.Int("attempts", attempt))
			return status, nil
		case JobFailed:
			return nil, &SynthesisFailure{JobID: jobID, Raw: status.Raw}
		}

		logger.Debug("[speech/Wait] 合成任务进行中",
			logger.String("jobID", jobID),
			logger.String("status", string(status.Status)),
			logger.Int("attempt", attempt))

		if !deadline.IsZero() && time.Now().Add(g.pollInterval).After(deadline) {
			return nil, ErrPollTimeout
		}

		timer := time.NewTimer(g.pollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, transportErr("wait for batch synthesis", ctx.Err())
		case <-timer.C:
		}
	}
}

// FetchAndUnpack downloads the result archive and extracts audio and sentences.
func (g *AzureGateway) FetchAndUnpack(ctx context.Context, resultURL string) (*Output, error) {
	if resultURL == "" {
		return nil, &DecodeError{Member: "result url"}
	}

	// 结果地址自带签名，不需要订阅密钥
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, resultURL, nil)
	if err != nil {
		return nil, transportErr("create result request", err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, transportErr("download result archive", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, transportErr("download result archive", fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	archive, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportErr("read result archive", err)
	}

	return Unpack(archive)
}
