package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/ehrlich-b/noetic/internal/logger"
)

// streamInterval is how often the live-feed pushes a fresh snapshot of
// recent thoughts to a connected dashboard.
const streamInterval = 2 * time.Second

// handleThoughtStream upgrades to a WebSocket and pushes a snapshot of
// the most recent thoughts on an interval, for a dashboard live feed.
// It never mutates substrate state; a slow or disconnected client just
// stops receiving snapshots once the connection errors out.
func (s *Server) handleThoughtStream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		logger.Component("httpapi").Warn("websocket accept failed", "error", err)
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()
	ticker := time.NewTicker(streamInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "")
			return
		case <-ticker.C:
			recent := s.sub.Memory.Recent(20, "")
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := wsjson.Write(writeCtx, conn, recent)
			cancel()
			if err != nil {
				logger.Component("httpapi").Debug("stream write failed, closing", "error", err)
				return
			}
		}
	}
}
