package server

import (
	"net/http"
	"strings"

	"homereader/logger"
)

// SessionCookie is the cookie carrying the session token.
const SessionCookie = "readerAccessToken"

type loginView struct {
	Error string
}

// LoginPageHandler renders the password form.
func (h *Handler) LoginPageHandler(w http.ResponseWriter, r *http.Request) {
	h.views.page(w, http.StatusOK, "login", "Login", loginView{})
}

// LoginHandler exchanges the shared password for a session cookie.
func (h *Handler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	if !h.loginLimiter.Allow() {
		logger.Warn("[Login] 登录尝试过于频繁", logger.String("remote", r.RemoteAddr))
		http.Error(w, "Too many login attempts", http.StatusTooManyRequests)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	password := r.PostForm.Get(SessionCookie)
	if !h.verifier.Verify(password) {
		logger.Warn("[Login] 密码错误", logger.String("remote", r.RemoteAddr))
		h.views.page(w, http.StatusUnauthorized, "login", "Login", loginView{Error: "Wrong password"})
		return
	}

	token, err := h.sessions.Issue()
	if err != nil {
		logger.Error("[Login] 生成会话失败", logger.ErrorField(err))
		http.Error(w, "Failed to create session", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.sessions.TTL().Seconds()),
		HttpOnly: true,
		Secure:   h.opts.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	logger.Info("[Login] 登录成功", logger.String("remote", r.RemoteAddr))
	http.Redirect(w, r, "/", http.StatusFound)
}

// LogoutHandler clears the session cookie.
func (h *Handler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.opts.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/auth/login", http.StatusFound)
}

// AuthMiddleware 未登录时跳转到登录页
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(SessionCookie)
		if err == nil {
			if _, err = h.sessions.Parse(cookie.Value); err == nil {
				next.ServeHTTP(w, r)
				return
			}
		}

		// htmx 请求不会跟随 302 整页跳转
		if r.Header.Get("HX-Request") == "true" {
			w.Header().Set("HX-Redirect", "/auth/login")
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if strings.HasPrefix(r.Header.Get("Accept"), "application/json") || r.Header.Get("Upgrade") != "" {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		http.Redirect(w, r, "/auth/login", http.StatusFound)
	})
}
