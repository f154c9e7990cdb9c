package server

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"time"

	"homereader/logger"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// NewRouter wires every route. metricsHandler may be nil.
func NewRouter(h *Handler, metricsHandler http.Handler) *mux.Router {
	router := mux.NewRouter()
	router.Use(requestIDMiddleware, accessLogMiddleware)

	// 无需登录
	router.HandleFunc("/auth/login", h.LoginPageHandler).Methods(http.MethodGet)
	router.HandleFunc("/auth/login", h.LoginHandler).Methods(http.MethodPost)
	router.HandleFunc("/healthz", h.HealthHandler).Methods(http.MethodGet)
	router.HandleFunc("/css", h.StylesheetHandler).Methods(http.MethodGet)
	if metricsHandler != nil {
		router.Handle("/metrics", metricsHandler).Methods(http.MethodGet)
	}

	protected := router.NewRoute().Subrouter()
	protected.Use(h.AuthMiddleware)

	protected.HandleFunc("/", h.HomeHandler).Methods(http.MethodGet)
	protected.HandleFunc("/auth/logout", h.LogoutHandler).Methods(http.MethodPost)

	protected.HandleFunc("/hass/status", h.HassStatusHandler).Methods(http.MethodGet)
	protected.HandleFunc("/hass/lights", h.HassLightsHandler).Methods(http.MethodPost)
	protected.HandleFunc("/hass/ac", h.HassACHandler).Methods(http.MethodPost)
	protected.HandleFunc("/productivity", h.ProductivityHandler).Methods(http.MethodGet)

	protected.HandleFunc("/bookmarks", h.ListBookmarksHandler).Methods(http.MethodGet)
	protected.HandleFunc("/bookmarks/{id}", h.BookmarkHandler).Methods(http.MethodGet)
	protected.HandleFunc("/tts/{hash:[0-9a-f]{64}}/events", h.SynthesisEventsHandler).Methods(http.MethodGet)

	return router
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
			r.Header.Set("X-Request-ID", id)
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

// Hijack is needed by the websocket upgrader.
func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := s.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	s.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

func accessLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		logger.Info("[http] 请求完成",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Int("status", rec.status),
			logger.Duration("duration", time.Since(start)),
			logger.String("requestId", r.Header.Get("X-Request-ID")))
	})
}
