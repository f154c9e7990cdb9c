package server

import (
	"net/http"
	"time"

	"homereader/core/speech"
	"homereader/logger"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

const (
	statusHeartbeat = 5 * time.Second
	writeWait       = 10 * time.Second
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// statusEvent is one message on the synthesis status stream.
type statusEvent struct {
	speech.Snapshot
	ElapsedSeconds int64 `json:"elapsedSeconds"`
}

// SynthesisEventsHandler streams state snapshots for a known hash until the
// state becomes terminal, then closes the connection. Unknown hashes get 404
// without an upgrade; the stream never starts a job.
func (h *Handler) SynthesisEventsHandler(w http.ResponseWriter, r *http.Request) {
	hash := mux.Vars(r)["hash"]
	state, ok := h.tracker.Lookup(hash)
	if !ok {
		http.Error(w, "Unknown synthesis", http.StatusNotFound)
		return
	}

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("[ws/status] websocket upgrade failed", logger.ErrorField(err))
		return
	}
	defer conn.Close()

	// 读取循环只用于感知客户端断开
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	send := func() (bool, error) {
		snap := state.Snapshot()
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		err := conn.WriteJSON(statusEvent{
			Snapshot:       snap,
			ElapsedSeconds: int64(snap.Elapsed(h.now()).Seconds()),
		})
		return snap.Status.Terminal(), err
	}

	terminal, err := send()
	if err != nil {
		return
	}

	ticker := time.NewTicker(statusHeartbeat)
	defer ticker.Stop()

	for !terminal {
		select {
		case <-state.Done():
			terminal, err = send()
		case <-ticker.C:
			terminal, err = send()
		case <-closed:
			return
		}
		if err != nil {
			logger.Debug("[ws/status] 写入失败", logger.String("hash", hash), logger.ErrorField(err))
			return
		}
	}

	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"),
		time.Now().Add(writeWait))
}
