package http

import (
	"net/http"
	"time"

	"cashbook/internal/aggregate"
	"cashbook/internal/core"
	"cashbook/internal/log"

	"github.com/gorilla/websocket"
)

const (
	writeTimeout = 10 * time.Second
	pingInterval = 60 * time.Second
	pongWait     = pingInterval + 10*time.Second
)

type activityResponse struct {
	Filter  aggregate.Filter `json:"filter"`
	Items   []core.Activity  `json:"items"`
	Loading bool             `json:"loading"`
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	filter, err := aggregate.ParseFilter(r.URL.Query().Get("filter"))
	if err != nil {
		BadRequestError(err.Error()).Write(w, r)
		return
	}
	items, ok := s.deps.Activity.Latest()
	NewJSONResponse().Body(activityResponse{
		Filter:  filter,
		Items:   nonNil(aggregate.FilterActivity(items, filter)),
		Loading: !ok,
	}).Write(w, r)
}

// handleActivityWS streams every recomputed feed to the client until either
// side closes. Client messages are read only to notice the close.
func (s *Server) handleActivityWS(w http.ResponseWriter, r *http.Request) {
	filter, err := aggregate.ParseFilter(r.URL.Query().Get("filter"))
	if err != nil {
		BadRequestError(err.Error()).Write(w, r)
		return
	}
	wc, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WarnContext(r.Context(), "Websocket upgrade failed", log.FieldError, err)
		return
	}
	defer wc.Close()

	updates, cancel := s.deps.Broadcaster.Listen()
	defer cancel()

	gone := make(chan struct{})
	go func() {
		defer close(gone)
		discardReads(wc)
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case items, ok := <-updates:
			if !ok {
				return
			}
			msg := activityResponse{Filter: filter, Items: nonNil(aggregate.FilterActivity(items, filter))}
			wc.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := wc.WriteJSON(msg); err != nil {
				s.logger.DebugContext(r.Context(), "Websocket write failed", log.FieldError, err)
				return
			}
		case <-ticker.C:
			wc.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := wc.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-gone:
			return
		case <-s.closing:
			wc.SetWriteDeadline(time.Now().Add(writeTimeout))
			_ = wc.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
			return
		}
	}
}

func discardReads(wc *websocket.Conn) {
	wc.SetReadLimit(512)
	wc.SetReadDeadline(time.Now().Add(pongWait))
	wc.SetPongHandler(func(string) error {
		return wc.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := wc.NextReader(); err != nil {
			return
		}
	}
}

func nonNil(items []core.Activity) []core.Activity {
	if items == nil {
		return []core.Activity{}
	}
	return items
}
