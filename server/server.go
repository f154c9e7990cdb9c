package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"homereader/cache"
	"homereader/config"
	"homereader/core/auth"
	"homereader/core/hass"
	"homereader/core/hoarder"
	"homereader/core/htmltext"
	"homereader/core/metrics"
	"homereader/core/speech"
	"homereader/core/tasks"
	"homereader/logger"
	"homereader/storage"
)

// sessionTTL 登录 cookie 有效期一年
const sessionTTL = 365 * 24 * time.Hour

// Start initializes every dependency and serves HTTP until SIGINT/SIGTERM.
func Start(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	ctx := context.Background()

	shutdownMetrics, metricsHandler, err := metrics.Setup(ctx, "homereader")
	if err != nil {
		return fmt.Errorf("初始化指标失败: %w", err)
	}
	defer func() { _ = shutdownMetrics(context.Background()) }()

	store, err := storage.NewStore(ctx, cfg)
	if err != nil {
		return err
	}

	textCache, closeCache, err := cache.NewTextCache(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = closeCache() }()

	gateway := speech.NewAzureGateway(speech.GatewayConfig{
		BaseURL:      cfg.SpeechBaseURL(),
		Key:          cfg.SpeechKey,
		PollInterval: cfg.SpeechPollInterval,
		PollTimeout:  cfg.SpeechPollTimeout,
	})

	deps := Deps{
		Bookmarks: hoarder.NewClient(cfg.HoarderURL, cfg.HoarderAPIKey),
		Tracker:   speech.NewTracker(gateway, store),
		Store:     store,
		Converter: htmltext.NewConverter(textCache),
		Verifier:  auth.NewVerifier(cfg.WebPassword, cfg.WebPasswordHash),
		Sessions:  auth.NewSessions(sessionSecret(cfg), sessionTTL),
		Options: Options{
			Voice:        cfg.SpeechVoice,
			AudioURLTTL:  cfg.SpeechURLTTL,
			ACEntity:     cfg.HassACEntity,
			LightScenes:  cfg.HassLightScenes,
			SecureCookie: cfg.CookieSecure,
		},
	}
	if cfg.HassURL != "" {
		deps.Hass = hass.NewClient(cfg.HassURL, cfg.HassAccessToken)
	}
	if cfg.TasksEnabled() {
		deps.Tasks = tasks.NewClient(tasks.Config{
			ClientID:     cfg.TasksClientID,
			ClientSecret: cfg.TasksClientSecret,
			RefreshToken: cfg.TasksRefreshToken,
			List:         cfg.TasksList,
		})
	}

	handler, err := NewHandler(deps)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      NewRouter(handler, metricsHandler),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 创建一个通道来接收操作系统信号
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("[server] 服务启动", logger.String("addr", cfg.HTTPAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("failed to start server: %w", err)
	case <-stop:
	}
	logger.Info("[server] 正在关闭服务...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("[server] 服务已停止")
	return nil
}

// sessionSecret 未配置时用密码派生，重启后旧 cookie 仍然有效
func sessionSecret(cfg *config.Config) string {
	if cfg.SessionSecret != "" {
		return cfg.SessionSecret
	}
	return "homereader:" + cfg.WebPassword + cfg.WebPasswordHash
}
