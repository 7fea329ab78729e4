package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/animaisueg/pledge-service/internal/domain"
	"github.com/animaisueg/pledge-service/internal/pledge"
)

const eventWriteWait = 10 * time.Second

// PledgesEvents upgrades to a websocket and streams status changes until the
// pledge settles, the watch times out, or the client goes away.
func (a *App) PledgesEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := a.Pledges.Lookup(r.Context(), id); err != nil {
		a.writeError(w, r, err)
		return
	}

	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.Logger.Debug().Err(err).Str("payment_id", id).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Reader: the client only ever closes; any read error ends the watch.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	_, err = a.Pledges.Watch(ctx, id, func(report pledge.StatusReport) {
		_ = conn.SetWriteDeadline(time.Now().Add(eventWriteWait))
		if err := conn.WriteJSON(newStatusResponse(report)); err != nil {
			cancel()
		}
	})

	code, reason := websocket.CloseNormalClosure, "settled"
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrWatchTimeout):
		reason = "watch timeout"
	case errors.Is(err, context.Canceled):
		return
	default:
		code, reason = websocket.CloseInternalServerErr, "status check failed"
		a.Logger.Error().Err(err).Str("payment_id", id).Msg("pledge watch failed")
	}
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(eventWriteWait))
}
