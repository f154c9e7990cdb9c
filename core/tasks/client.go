// Package tasks reads a Google Tasks list using a stored OAuth refresh token.
package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"homereader/logger"
	"homereader/model"
)

const (
	defaultTokenURL = "https://oauth2.googleapis.com/token"
	defaultAPIURL   = "https://tasks.googleapis.com/tasks/v1"
)

// Config holds the OAuth client credentials and the list to read.
type Config struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	List         string

	TokenURL string // defaults to Google's token endpoint
	APIURL   string // defaults to the Tasks v1 API
}

// Client Google Tasks 客户端，access token 过期前复用
type Client struct {
	cfg        Config
	httpClient *http.Client
	now        func() time.Time

	mu          sync.Mutex
	accessToken string
	expiresAt   time.Time
}

// NewClient creates a client. No request is made until List is called.
func NewClient(cfg Config) *Client {
	if cfg.TokenURL == "" {
		cfg.TokenURL = defaultTokenURL
	}
	if cfg.APIURL == "" {
		cfg.APIURL = defaultAPIURL
	}
	if cfg.List == "" {
		cfg.List = "@default"
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		now:        time.Now,
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	Error       string `json:"error"`
}

// token 返回有效的 access token，剩余有效期不足一分钟时刷新
func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && c.now().Add(time.Minute).Before(c.expiresAt) {
		return c.accessToken, nil
	}

	form := url.Values{
		"client_id":     {c.cfg.ClientID},
		"client_secret": {c.cfg.ClientSecret},
		"refresh_token": {c.cfg.RefreshToken},
		"grant_type":    {"refresh_token"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("刷新 access token 失败: %w", err)
	}
	defer resp.Body.Close()

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("解析 token 响应失败: %w", err)
	}
	if resp.StatusCode != http.StatusOK || tok.AccessToken == "" {
		return "", fmt.Errorf("刷新 access token 失败: status %d: %s", resp.StatusCode, tok.Error)
	}

	c.accessToken = tok.AccessToken
	c.expiresAt = c.now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	logger.Debug("[tasks] access token 已刷新", logger.Int("expiresIn", tok.ExpiresIn))
	return c.accessToken, nil
}

type taskList struct {
	Items []struct {
		ID     string `json:"id"`
		Title  string `json:"title"`
		Status string `json:"status"`
	} `json:"items"`
}

// List returns the tasks of the configured list, completed ones included.
func (c *Client) List(ctx context.Context) ([]model.Task, error) {
	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	q := url.Values{
		"showCompleted": {"true"},
		"showHidden":    {"true"},
		"maxResults":    {"100"},
	}
	endpoint := fmt.Sprintf("%s/lists/%s/tasks?%s", strings.TrimRight(c.cfg.APIURL, "/"), url.PathEscape(c.cfg.List), q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("获取任务列表失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		if resp.StatusCode == http.StatusUnauthorized {
			c.invalidate()
		}
		return nil, fmt.Errorf("获取任务列表失败: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var list taskList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("解析任务列表失败: %w", err)
	}

	tasks := make([]model.Task, 0, len(list.Items))
	for _, item := range list.Items {
		if item.Title == "" {
			continue
		}
		tasks = append(tasks, model.Task{
			ID:        item.ID,
			Title:     item.Title,
			Completed: item.Status == "completed",
		})
	}
	return tasks, nil
}

func (c *Client) invalidate() {
	c.mu.Lock()
	c.accessToken = ""
	c.mu.Unlock()
}
