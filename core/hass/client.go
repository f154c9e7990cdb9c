// Package hass talks to the Home Assistant REST API.
package hass

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"homereader/logger"
	"homereader/model"
)

// DefaultLightScenes maps the scene entities shown on the dashboard to their labels.
var DefaultLightScenes = []Scene{
	{EntityID: "scene.lights_off", Name: "Off"},
	{EntityID: "scene.lights_dimmed", Name: "Dimmed"},
	{EntityID: "scene.lights_normal", Name: "Normal"},
	{EntityID: "scene.lights_white", Name: "White"},
}

// Scene 灯光场景
type Scene struct {
	EntityID string
	Name     string
}

// Client Home Assistant 客户端
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a client authenticated with a long-lived access token.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// ActivateScene 激活场景
func (c *Client) ActivateScene(ctx context.Context, entityID string) error {
	return c.callService(ctx, "scene", "turn_on", entityID)
}

// TurnOnSwitch 打开开关
func (c *Client) TurnOnSwitch(ctx context.Context, entityID string) error {
	return c.callService(ctx, "switch", "turn_on", entityID)
}

// TurnOffSwitch 关闭开关
func (c *Client) TurnOffSwitch(ctx context.Context, entityID string) error {
	return c.callService(ctx, "switch", "turn_off", entityID)
}

// States returns every entity state known to Home Assistant.
func (c *Client) States(ctx context.Context) ([]model.EntityState, error) {
	var states []model.EntityState
	if err := c.do(ctx, http.MethodGet, "/api/states", nil, &states); err != nil {
		return nil, err
	}
	return states, nil
}

func (c *Client) callService(ctx context.Context, domain, service, entityID string) error {
	body := map[string]string{"entity_id": entityID}
	path := fmt.Sprintf("/api/services/%s/%s", domain, service)
	if err := c.do(ctx, http.MethodPost, path, body, nil); err != nil {
		return err
	}
	logger.Info("[hass] 服务调用成功", logger.String("service", domain+"."+service), logger.String("entityId", entityID))
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Error("[hass] 请求失败", logger.String("path", path), logger.ErrorField(err))
		return fmt.Errorf("请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("home assistant %s %s: %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("解析响应失败: %w", err)
	}
	return nil
}

// Status reduces the entity list to the dashboard panel state. A scene's state
// is the timestamp of its last activation, so the active scene is the
// configured one with the latest timestamp.
func Status(states []model.EntityState, acEntity string, scenes []string) model.HassStatus {
	var status model.HassStatus
	var latest time.Time

	wanted := make(map[string]bool, len(scenes))
	for _, s := range scenes {
		wanted[s] = true
	}

	for _, st := range states {
		if st.EntityID == acEntity {
			status.AC = st.State
			continue
		}
		if !wanted[st.EntityID] {
			continue
		}
		activated, err := time.Parse(time.RFC3339Nano, st.State)
		if err != nil {
			continue
		}
		if status.Lights == "" || activated.After(latest) {
			status.Lights = st.EntityID
			latest = activated
		}
	}
	return status
}

// IsScene reports whether entityID is one of scenes.
func IsScene(entityID string, scenes []string) bool {
	for _, s := range scenes {
		if s == entityID {
			return true
		}
	}
	return false
}

// SceneName returns the label for a scene entity, deriving one from the id
// when it is not among DefaultLightScenes.
func SceneName(entityID string) string {
	for _, s := range DefaultLightScenes {
		if s.EntityID == entityID {
			return s.Name
		}
	}
	name := strings.TrimPrefix(entityID, "scene.")
	name = strings.TrimPrefix(name, "lights_")
	name = strings.ReplaceAll(name, "_", " ")
	if name == "" {
		return entityID
	}
	return strings.ToUpper(name[:1]) + name[1:]
}
