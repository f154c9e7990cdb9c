// Package hoarder is a small client for the Hoarder bookmarking REST API.
package hoarder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"homereader/logger"
	"homereader/model"
)

// ErrNotFound is returned when the bookmark does not exist.
var ErrNotFound = errors.New("hoarder: bookmark not found")

// Client Hoarder API客户端
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a client for the server at baseURL (without the /api/v1 suffix).
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/") + "/api/v1",
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// ListBookmarks returns the first page of bookmarks, newest first.
func (c *Client) ListBookmarks(ctx context.Context) ([]model.Bookmark, error) {
	var page model.BookmarkPage
	if err := c.get(ctx, "/bookmarks", &page); err != nil {
		return nil, err
	}
	if page.Bookmarks == nil {
		page.Bookmarks = []model.Bookmark{}
	}
	return page.Bookmarks, nil
}

// GetBookmark fetches a single bookmark including its HTML content.
func (c *Client) GetBookmark(ctx context.Context, id string) (*model.Bookmark, error) {
	var bookmark model.Bookmark
	if err := c.get(ctx, "/bookmarks/"+url.PathEscape(id), &bookmark); err != nil {
		return nil, err
	}
	return &bookmark, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Error("[hoarder] 请求失败", logger.String("path", path), logger.ErrorField(err))
		return fmt.Errorf("请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		logger.Warn("[hoarder] 服务器返回错误状态码",
			logger.String("path", path),
			logger.Int("status", resp.StatusCode))
		return fmt.Errorf("hoarder API返回错误状态码: %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("解析响应失败: %w", err)
	}
	return nil
}
