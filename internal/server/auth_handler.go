package server

import (
	"net/http"

	"github.com/Libertai/libertai-inference/internal/auth"
	"github.com/gin-gonic/gin"
)

type authHandler struct {
	auth *auth.Service
}

func newAuthHandler(a *auth.Service) *authHandler {
	return &authHandler{auth: a}
}

func (h *authHandler) Nonce(c *gin.Context) {
	nonce, err := h.auth.IssueNonce()
	if err != nil {
		writeError(c, http.StatusInternalServerError, "failed to issue nonce")
		return
	}
	c.JSON(http.StatusOK, NonceResponse{Nonce: nonce})
}

func (h *authHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	token, err := h.auth.LoginWithSIWE(req.Message, req.Signature)
	if err != nil {
		writeError(c, http.StatusUnauthorized, "invalid credentials")
		return
	}
	c.JSON(http.StatusOK, LoginResponse{AccessToken: token, TokenType: "Bearer"})
}
