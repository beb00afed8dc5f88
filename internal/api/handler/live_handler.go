package handler

import (
	"context"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/insights/issue-tracker/internal/core/ports"
)

const liveWriteTimeout = 5 * time.Second

type readyFrame struct {
	Type string `json:"type"`
}

// LiveHandler upgrades authenticated requests to a WebSocket and streams
// issue events until either side goes away.
type LiveHandler struct {
	feed           ports.LiveFeed
	originPatterns []string
	log            zerolog.Logger
}

func NewLiveHandler(feed ports.LiveFeed, originPatterns []string, log zerolog.Logger) *LiveHandler {
	return &LiveHandler{feed: feed, originPatterns: originPatterns, log: log}
}

// Stream serves the live-update channel.
//
// @Summary      Live issue events
// @Description  WebSocket. The first frame is {"type":"ready"}; every following frame is an issue event envelope.
// @Tags         live
// @Security     BearerAuth
// @Param        access_token  query  string  false  "Token, when the Authorization header cannot be set"
// @Success      101
// @Failure      401  {object}  errorResponse
// @Router       /ws/issues [get]
func (h *LiveHandler) Stream(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}

	conn, err := websocket.Accept(c.Response(), c.Request(), &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		// Accept has already written the HTTP error response.
		h.log.Debug().Err(err).Msg("websocket upgrade failed")
		return nil
	}

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	obs := h.feed.Subscribe()
	defer h.feed.Unsubscribe(obs)

	log := h.log.With().Str("observer_id", obs.ID()).Str("user_id", actor.ID).Logger()
	log.Debug().Msg("live connection opened")

	if err := h.write(ctx, conn, func(ctx context.Context) error {
		return wsjson.Write(ctx, conn, readyFrame{Type: "ready"})
	}); err != nil {
		return nil
	}

	// CloseRead discards client frames and cancels readCtx once the peer
	// closes or the connection breaks.
	readCtx := conn.CloseRead(ctx)

	for {
		select {
		case <-readCtx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "closed")
			log.Debug().Msg("live connection closed by peer")
			return nil
		case payload, ok := <-obs.Messages():
			if !ok {
				_ = conn.Close(websocket.StatusTryAgainLater, "dropped")
				log.Debug().Msg("live observer dropped")
				return nil
			}
			err := h.write(ctx, conn, func(ctx context.Context) error {
				return conn.Write(ctx, websocket.MessageText, payload)
			})
			if err != nil {
				log.Debug().Err(err).Msg("live write failed")
				return nil
			}
		}
	}
}

func (h *LiveHandler) write(ctx context.Context, conn *websocket.Conn, fn func(context.Context) error) error {
	writeCtx, cancel := context.WithTimeout(ctx, liveWriteTimeout)
	defer cancel()
	if err := fn(writeCtx); err != nil {
		_ = conn.Close(websocket.StatusNormalClosure, "write_failed")
		return err
	}
	return nil
}
