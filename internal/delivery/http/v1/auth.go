package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/taskshare/taskshare/internal/services"
)

type registerRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Name     string `json:"name" binding:"required,max=255"`
	Password string `json:"password" binding:"required,min=8"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type authResponse struct {
	UserID               string    `json:"user_id"`
	Email                string    `json:"email"`
	Name                 string    `json:"name"`
	AccessToken          string    `json:"access_token"`
	AccessTokenExpiresAt time.Time `json:"access_token_expires_at"`
}

func newAuthResponse(result *services.AuthResult) authResponse {
	return authResponse{
		UserID:               result.Principal.ID,
		Email:                result.Principal.Email,
		Name:                 result.Principal.Name,
		AccessToken:          result.AccessToken,
		AccessTokenExpiresAt: result.AccessTokenExpiresAt,
	}
}

func (h *handlerImpl) HandleRegister(c *gin.Context) {
	var req registerRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to bind json")
		abort(c, newBadRequestError("invalid request body"))
		return
	}

	result, err := h.auth.Register(c, services.RegisterParams{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
	})
	if err != nil {
		abortServiceError(c, err)
		return
	}

	h.logger.Info().Msg("registered user")
	c.JSON(http.StatusCreated, newAuthResponse(result))
}

func (h *handlerImpl) HandleLogin(c *gin.Context) {
	var req loginRequest
	err := c.ShouldBindJSON(&req)
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to bind json")
		abort(c, newBadRequestError("invalid request body"))
		return
	}

	result, err := h.auth.Login(c, services.LoginParams{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		abortServiceError(c, err)
		return
	}

	h.logger.Info().Msg("logged in user")
	c.JSON(http.StatusOK, newAuthResponse(result))
}
