package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/fvu-intake/internal/models"
	"github.com/noah-isme/fvu-intake/pkg/response"
)

type identityReader interface {
	Get(ctx context.Context, scope string) (*models.Identity, error)
}

// IdentityHandler exposes the remembered investigator block.
type IdentityHandler struct {
	identity identityReader
}

// NewIdentityHandler constructs the handler.
func NewIdentityHandler(identity identityReader) *IdentityHandler {
	return &IdentityHandler{identity: identity}
}

// Get godoc
// @Summary Remembered investigator details
// @Tags Identity
// @Produce json
// @Param X-Session-ID header string false "Session key"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /identity [get]
func (h *IdentityHandler) Get(c *gin.Context) {
	identity, err := h.identity.Get(c.Request.Context(), sessionScope(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, identity)
}
