package server

import (
	"encoding/json"
	"errors"
	"html/template"
	"math"
	"net/http"
	"time"

	"homereader/core/hoarder"
	"homereader/core/speech"
	"homereader/core/transcript"
	"homereader/logger"
	"homereader/model"

	"github.com/gorilla/mux"
)

const (
	// 刚开始合成时更频繁地刷新
	fastPollWindow = 5 * time.Second
	fastPollDelay  = 1
	slowPollDelay  = 5
)

type bookmarkListView struct {
	Bookmarks []model.Bookmark
}

type bookmarkView struct {
	ID      string
	Title   string
	Content template.HTML
}

type pendingView struct {
	BookmarkID     string
	Hash           string
	DelaySeconds   int
	ElapsedSeconds int64
	Now            int64
}

type errorView struct {
	Error string
}

type playerView struct {
	AudioURL      string
	SentencesJSON string
	Sentences     []sentenceView
}

type sentenceView struct {
	speech.Sentence
	Active bool
}

// ListBookmarksHandler renders the bookmark list.
func (h *Handler) ListBookmarksHandler(w http.ResponseWriter, r *http.Request) {
	bookmarks, err := h.bookmarks.ListBookmarks(r.Context())
	if err != nil {
		logger.Error("[Bookmarks] 获取书签列表失败", logger.ErrorField(err))
		http.Error(w, "Failed to load bookmarks", http.StatusBadGateway)
		return
	}
	h.views.page(w, http.StatusOK, "bookmarks", "Bookmarks", bookmarkListView{Bookmarks: bookmarks})
}

// BookmarkHandler renders the reader view, or the listen fragment when
// mode=listen.
func (h *Handler) BookmarkHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	mode := r.URL.Query().Get("mode")
	if mode == "" {
		mode = "view"
	}
	if mode != "view" && mode != "listen" {
		http.Error(w, "Invalid mode", http.StatusBadRequest)
		return
	}

	bookmark, err := h.bookmarks.GetBookmark(r.Context(), id)
	if errors.Is(err, hoarder.ErrNotFound) {
		http.Error(w, "Bookmark not found", http.StatusNotFound)
		return
	}
	if err != nil {
		logger.Error("[Bookmark] 获取书签失败", logger.String("id", id), logger.ErrorField(err))
		http.Error(w, "Failed to load bookmark", http.StatusBadGateway)
		return
	}

	if mode == "listen" {
		h.listen(w, r, bookmark)
		return
	}

	h.views.page(w, http.StatusOK, "bookmark", "Bookmark", bookmarkView{
		ID:      bookmark.ID,
		Title:   bookmark.DisplayTitle(),
		Content: template.HTML(h.converter.Sanitize(bookmark.ReadableHTML())),
	})
}

func (h *Handler) listen(w http.ResponseWriter, r *http.Request, bookmark *model.Bookmark) {
	ctx := r.Context()

	text, err := h.converter.Text(ctx, bookmark.ReadableHTML())
	if err != nil {
		logger.Error("[Listen] HTML转文本失败", logger.String("id", bookmark.ID), logger.ErrorField(err))
		h.views.fragment(w, "listen_error", errorView{Error: err.Error()})
		return
	}

	snap := h.tracker.GetOrStart(text, h.opts.Voice).Snapshot()
	switch snap.Status {
	case speech.StatusDone:
		h.renderPlayer(w, r, snap)
	case speech.StatusError:
		h.views.fragment(w, "listen_error", errorView{Error: snap.Error})
	default:
		now := h.now()
		elapsed := snap.Elapsed(now)
		h.views.fragment(w, "listen_pending", pendingView{
			BookmarkID:     bookmark.ID,
			Hash:           snap.Hash,
			DelaySeconds:   pendingDelay(elapsed),
			ElapsedSeconds: int64(math.Round(elapsed.Seconds())),
			Now:            now.UnixMilli(),
		})
	}
}

// pendingDelay returns the refresh delay in seconds for a job running for elapsed.
func pendingDelay(elapsed time.Duration) int {
	if elapsed < fastPollWindow {
		return fastPollDelay
	}
	return slowPollDelay
}

func (h *Handler) renderPlayer(w http.ResponseWriter, r *http.Request, snap speech.Snapshot) {
	ctx := r.Context()

	manifest, err := h.store.Get(ctx, snap.Result.SentencesKey)
	if err != nil {
		logger.Error("[Listen] 读取句子文件失败", logger.String("hash", snap.Hash), logger.ErrorField(err))
		h.views.fragment(w, "listen_error", errorView{Error: "Failed to load transcript"})
		return
	}
	var sentences []speech.Sentence
	if err := json.Unmarshal(manifest, &sentences); err != nil {
		logger.Error("[Listen] 解析句子文件失败", logger.String("hash", snap.Hash), logger.ErrorField(err))
		h.views.fragment(w, "listen_error", errorView{Error: "Failed to load transcript"})
		return
	}

	audioURL, err := h.store.PresignedURL(ctx, snap.Result.AudioKey, h.opts.AudioURLTTL)
	if err != nil {
		logger.Error("[Listen] 生成音频链接失败", logger.String("hash", snap.Hash), logger.ErrorField(err))
		h.views.fragment(w, "listen_error", errorView{Error: "Failed to load audio"})
		return
	}

	h.views.fragment(w, "listen_player", playerView{
		AudioURL:      audioURL,
		SentencesJSON: string(manifest),
		Sentences:     sentenceViews(sentences, 0),
	})
}

// sentenceViews marks the sentence playing at timeMs so the first paint
// already matches what the player will highlight.
func sentenceViews(sentences []speech.Sentence, timeMs int64) []sentenceView {
	spans := make([]transcript.Span, len(sentences))
	for i, s := range sentences {
		spans[i] = transcript.Span{AudioOffset: s.AudioOffset, Duration: s.Duration}
	}
	active := transcript.Active(spans, timeMs)

	views := make([]sentenceView, len(sentences))
	for i, s := range sentences {
		views[i] = sentenceView{Sentence: s, Active: i == active}
	}
	return views
}
