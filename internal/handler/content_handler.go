package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/pe-portal-api/internal/models"
	"github.com/noah-isme/pe-portal-api/pkg/response"
)

type contentService interface {
	GenerateContent(ctx context.Context, req models.GenerateContentRequest) (*models.GeneratedContent, error)
}

// ContentHandler exposes AI text generation.
type ContentHandler struct {
	content contentService
}

// NewContentHandler constructs handler.
func NewContentHandler(content contentService) *ContentHandler {
	return &ContentHandler{content: content}
}

// Generate godoc
// @Summary Generate a session description or quiz
// @Tags AI
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.GenerateContentRequest true "Topic and kind"
// @Success 200 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /ai/content [post]
func (h *ContentHandler) Generate(c *gin.Context) {
	var req models.GenerateContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid content payload"))
		return
	}
	out, err := h.content.GenerateContent(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, out)
}
