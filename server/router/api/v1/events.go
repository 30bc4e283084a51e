package v1

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/cartsync/server/internal/observability"
	"github.com/hrygo/cartsync/store/cache"
)

const (
	eventBuffer       = 64
	heartbeatInterval = 15 * time.Second
)

// CacheEvent is one server-sent cache transition.
type CacheEvent struct {
	Key        string `json:"key"`
	From       string `json:"from,omitempty"`
	To         string `json:"to,omitempty"`
	Generation uint64 `json:"generation"`
	Error      string `json:"error,omitempty"`
	At         int64  `json:"at"`
}

func newCacheEvent(ev cache.Event) CacheEvent {
	out := CacheEvent{
		Key:        ev.Key,
		From:       string(ev.From),
		To:         string(ev.To),
		Generation: ev.Generation,
		At:         ev.At.UnixMilli(),
	}
	if ev.Err != nil {
		out.Error = ev.Err.Error()
	}
	return out
}

// StreamCartEvents streams the cache transitions of the caller's carts as
// server-sent events, so clients know when to re-render.
// GET /api/v1/carts/events
func (s *APIV1Service) StreamCartEvents(c echo.Context) error {
	ctx := c.Request().Context()
	logger := observability.LoggerFromContext(ctx)

	events := make(chan cache.Event, eventBuffer)
	stop := s.CartService.Watch(userID(c), func(ev cache.Event) {
		select {
		case events <- ev:
		default:
			// Listeners must not block; a slow client loses events.
			logger.Warn("dropping cart event for slow client", slog.String("key", ev.Key))
		}
	})
	defer stop()

	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set(echo.HeaderCacheControl, "no-cache")
	w.Header().Set(echo.HeaderConnection, "keep-alive")
	w.WriteHeader(http.StatusOK)
	w.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return nil
			}
			w.Flush()
		case ev := <-events:
			data, err := json.Marshal(newCacheEvent(ev))
			if err != nil {
				return err
			}
			name := "transition"
			if ev.Evicted() {
				name = "evicted"
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data); err != nil {
				return nil
			}
			w.Flush()
		}
	}
}
