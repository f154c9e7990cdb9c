package server

import (
	"net/http"

	"homereader/logger"
	"homereader/storage"
)

// StylesheetHandler 从对象存储提供 custom.css
func (h *Handler) StylesheetHandler(w http.ResponseWriter, r *http.Request) {
	css, err := h.store.Get(r.Context(), storage.StylesheetKey)
	if err != nil {
		logger.Warn("[Static] 读取样式表失败", logger.ErrorField(err))
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=300")
	if _, err := w.Write(css); err != nil {
		logger.Error("[Static] 写入样式表失败", logger.ErrorField(err))
	}
}
