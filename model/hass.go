package model

import "time"

// EntityState Home Assistant 实体状态
type EntityState struct {
	EntityID    string         `json:"entity_id"`
	State       string         `json:"state"`
	Attributes  map[string]any `json:"attributes"`
	LastChanged time.Time      `json:"last_changed"`
}

// HassStatus is the dashboard panel state.
type HassStatus struct {
	AC     string `json:"ac"`
	Lights string `json:"lights"`
}

// LightsRequest 切换灯光场景
type LightsRequest struct {
	EntityID string `json:"entityId"`
}

// ACRequest 开关空调
type ACRequest struct {
	State string `json:"state"`
}
