package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/taskshare/taskshare/internal/services"
)

type updateProfileRequest struct {
	Name      *string `json:"name,omitempty"`
	AvatarURL *string `json:"avatar_url,omitempty"`
}

type profileResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
}

func (h *handlerImpl) HandleSearchUsers(c *gin.Context) {
	actor, ok := principal(c)
	if !ok {
		return
	}

	summaries, err := h.principals.Search(c, actor.ID, c.Query("q"))
	if err != nil {
		abortServiceError(c, err)
		return
	}

	h.logger.Debug().
		Int("count", len(summaries)).
		Msg("searched users")
	c.JSON(http.StatusOK, summaries)
}

func (h *handlerImpl) HandleUpdateProfile(c *gin.Context) {
	actor, ok := principal(c)
	if !ok {
		return
	}

	var req updateProfileRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to bind json")
		abort(c, newBadRequestError("invalid request body"))
		return
	}

	updated, err := h.principals.UpdateProfile(c, services.UpdateProfileParams{
		ActorID:   actor.ID,
		Name:      req.Name,
		AvatarURL: req.AvatarURL,
	})
	if err != nil {
		abortServiceError(c, err)
		return
	}

	h.logger.Info().Msg("updated profile")
	c.JSON(http.StatusOK, profileResponse{
		ID:        updated.ID,
		Email:     updated.Email,
		Name:      updated.Name,
		AvatarURL: updated.AvatarURL,
	})
}
