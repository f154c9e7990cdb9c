package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"homereader/core/auth"
	"homereader/core/htmltext"
	"homereader/core/speech"
	"homereader/logger"
	"homereader/model"

	"golang.org/x/time/rate"
)

// BookmarkSource lists and fetches saved articles.
type BookmarkSource interface {
	ListBookmarks(ctx context.Context) ([]model.Bookmark, error)
	GetBookmark(ctx context.Context, id string) (*model.Bookmark, error)
}

// HomeAutomation controls the lights and AC shown on the dashboard.
type HomeAutomation interface {
	ActivateScene(ctx context.Context, entityID string) error
	TurnOnSwitch(ctx context.Context, entityID string) error
	TurnOffSwitch(ctx context.Context, entityID string) error
	States(ctx context.Context) ([]model.EntityState, error)
}

// TaskSource returns the to-do list shown on the dashboard.
type TaskSource interface {
	List(ctx context.Context) ([]model.Task, error)
}

// SpeechTracker starts and looks up synthesis jobs.
type SpeechTracker interface {
	GetOrStart(text, voice string) *speech.State
	Lookup(hash string) (*speech.State, bool)
}

// Options are the page and integration settings taken from config.
type Options struct {
	Voice        string
	AudioURLTTL  time.Duration
	ACEntity     string
	LightScenes  []string
	SecureCookie bool
}

// Deps 构造 Handler 所需的依赖，Hass 和 Tasks 可以为空
type Deps struct {
	Bookmarks BookmarkSource
	Hass      HomeAutomation
	Tasks     TaskSource
	Tracker   SpeechTracker
	Store     speech.ObjectStore
	Converter *htmltext.Converter
	Verifier  *auth.Verifier
	Sessions  *auth.Sessions
	Options   Options
}

// Handler serves every page, fragment and JSON endpoint.
type Handler struct {
	bookmarks BookmarkSource
	hass      HomeAutomation
	tasks     TaskSource
	tracker   SpeechTracker
	store     speech.ObjectStore
	converter *htmltext.Converter
	verifier  *auth.Verifier
	sessions  *auth.Sessions
	opts      Options

	loginLimiter *rate.Limiter
	views        *renderer
	now          func() time.Time
}

// NewHandler 创建处理器并解析模板
func NewHandler(deps Deps) (*Handler, error) {
	if deps.Bookmarks == nil || deps.Tracker == nil || deps.Store == nil {
		return nil, errors.New("server: bookmarks, tracker and store are required")
	}
	if deps.Verifier == nil || deps.Sessions == nil {
		return nil, errors.New("server: verifier and sessions are required")
	}
	views, err := newRenderer()
	if err != nil {
		return nil, err
	}
	converter := deps.Converter
	if converter == nil {
		converter = htmltext.NewConverter(nil)
	}
	if deps.Options.AudioURLTTL <= 0 {
		deps.Options.AudioURLTTL = 72 * time.Hour
	}

	return &Handler{
		bookmarks:    deps.Bookmarks,
		hass:         deps.Hass,
		tasks:        deps.Tasks,
		tracker:      deps.Tracker,
		store:        deps.Store,
		converter:    converter,
		verifier:     deps.Verifier,
		sessions:     deps.Sessions,
		opts:         deps.Options,
		loginLimiter: rate.NewLimiter(rate.Every(10*time.Second), 5),
		views:        views,
		now:          time.Now,
	}, nil
}

// HealthHandler reports liveness.
func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("[server] 写入JSON响应失败", logger.ErrorField(err))
	}
}
