package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rainbow59216/snatcher/internal/service"
	appErrors "github.com/rainbow59216/snatcher/pkg/errors"
	"github.com/rainbow59216/snatcher/pkg/response"
)

// TokenHandler exposes admission-token endpoints.
type TokenHandler struct {
	tokens *service.TokenService
}

// NewTokenHandler constructs TokenHandler.
func NewTokenHandler(tokens *service.TokenService) *TokenHandler {
	return &TokenHandler{tokens: tokens}
}

type issueTokenRequest struct {
	Username string `json:"username" binding:"required"`
}

// Issue mints one admission token for a user.
func (h *TokenHandler) Issue(c *gin.Context) {
	var req issueTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	token, err := h.tokens.Issue(c.Request.Context(), req.Username)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, token)
}

// List returns a user's tokens, newest first.
func (h *TokenHandler) List(c *gin.Context) {
	tokens, err := h.tokens.List(c.Request.Context(), c.Query("username"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tokens, nil)
}
