package server

import (
	"encoding/json"
	"net/http"

	"homereader/core/hass"
	"homereader/logger"
	"homereader/model"
)

type homeView struct {
	HassEnabled bool
	Scenes      []hass.Scene
}

// HomeHandler renders the dashboard.
func (h *Handler) HomeHandler(w http.ResponseWriter, r *http.Request) {
	scenes := make([]hass.Scene, 0, len(h.opts.LightScenes))
	for _, id := range h.opts.LightScenes {
		scenes = append(scenes, hass.Scene{EntityID: id, Name: hass.SceneName(id)})
	}
	h.views.page(w, http.StatusOK, "home", "Dashboard", homeView{
		HassEnabled: h.hass != nil,
		Scenes:      scenes,
	})
}

// HassStatusHandler returns the AC state and the active light scene.
func (h *Handler) HassStatusHandler(w http.ResponseWriter, r *http.Request) {
	if h.hass == nil {
		http.Error(w, "Home Assistant is not configured", http.StatusServiceUnavailable)
		return
	}
	states, err := h.hass.States(r.Context())
	if err != nil {
		logger.Error("[Hass] 获取实体状态失败", logger.ErrorField(err))
		http.Error(w, "Failed to load states", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, hass.Status(states, h.opts.ACEntity, h.opts.LightScenes))
}

// HassLightsHandler activates one of the configured light scenes.
func (h *Handler) HassLightsHandler(w http.ResponseWriter, r *http.Request) {
	if h.hass == nil {
		http.Error(w, "Home Assistant is not configured", http.StatusServiceUnavailable)
		return
	}
	var req model.LightsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if !hass.IsScene(req.EntityID, h.opts.LightScenes) {
		http.Error(w, "Unknown scene", http.StatusBadRequest)
		return
	}
	if err := h.hass.ActivateScene(r.Context(), req.EntityID); err != nil {
		logger.Error("[Hass] 激活场景失败", logger.String("entityId", req.EntityID), logger.ErrorField(err))
		http.Error(w, "Failed to activate scene", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// HassACHandler switches the AC on or off.
func (h *Handler) HassACHandler(w http.ResponseWriter, r *http.Request) {
	if h.hass == nil {
		http.Error(w, "Home Assistant is not configured", http.StatusServiceUnavailable)
		return
	}
	var req model.ACRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var err error
	switch req.State {
	case "on":
		err = h.hass.TurnOnSwitch(r.Context(), h.opts.ACEntity)
	case "off":
		err = h.hass.TurnOffSwitch(r.Context(), h.opts.ACEntity)
	default:
		http.Error(w, "State must be on or off", http.StatusBadRequest)
		return
	}
	if err != nil {
		logger.Error("[Hass] 切换空调失败", logger.String("state", req.State), logger.ErrorField(err))
		http.Error(w, "Failed to switch AC", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// ProductivityHandler returns the task list, or an empty list when Google
// Tasks is not configured.
func (h *Handler) ProductivityHandler(w http.ResponseWriter, r *http.Request) {
	if h.tasks == nil {
		writeJSON(w, http.StatusOK, []model.Task{})
		return
	}
	tasks, err := h.tasks.List(r.Context())
	if err != nil {
		logger.Error("[Productivity] 获取任务失败", logger.ErrorField(err))
		http.Error(w, "Failed to load tasks", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}
