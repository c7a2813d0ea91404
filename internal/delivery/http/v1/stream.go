package v1

import (
	"io"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// HandleEventStream subscribes the session to the broadcaster and
// relays change records over server-sent events until the client goes
// away. Every connected session receives every record; filtering is
// the client-side reconciler's job.
func (h *handlerImpl) HandleEventStream(c *gin.Context) {
	actor, ok := principal(c)
	if !ok {
		return
	}

	sessionID := uuid.NewString()
	changes := h.broadcaster.Subscribe(sessionID)
	defer h.broadcaster.Unsubscribe(sessionID)

	h.logger.Info().
		Str("session_id", sessionID).
		Str("user_id", actor.ID).
		Msg("event stream opened")

	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	clientGone := c.Request.Context().Done()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-clientGone:
			return false
		case change, open := <-changes:
			if !open {
				return false
			}
			c.SSEvent("change", change)
			return true
		}
	})

	h.logger.Info().
		Str("session_id", sessionID).
		Msg("event stream closed")
}
