package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/pe-portal-api/internal/models"
	"github.com/noah-isme/pe-portal-api/pkg/response"
)

// maxAttachmentUpload bounds raw activity uploads before compression.
const maxAttachmentUpload = 10 << 20

type activityService interface {
	List(ctx context.Context) ([]models.Activity, error)
	Get(ctx context.Context, id string) (*models.Activity, error)
	Save(ctx context.Context, req models.SaveActivityRequest) (*models.Activity, error)
	Delete(ctx context.Context, id string) error
}

// ActivityHandler exposes announcement endpoints.
type ActivityHandler struct {
	activities activityService
}

// NewActivityHandler constructs handler.
func NewActivityHandler(activities activityService) *ActivityHandler {
	return &ActivityHandler{activities: activities}
}

// List godoc
// @Summary List activities
// @Tags Activities
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /activities [get]
func (h *ActivityHandler) List(c *gin.Context) {
	items, err := h.activities.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, map[string]interface{}{"total": len(items)})
}

// Get godoc
// @Summary Get activity
// @Tags Activities
// @Produce json
// @Param id path string true "Activity ID"
// @Success 200 {object} response.Envelope
// @Router /activities/{id} [get]
func (h *ActivityHandler) Get(c *gin.Context) {
	item, err := h.activities.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item)
}

// Create godoc
// @Summary Create activity
// @Tags Activities
// @Accept multipart/form-data
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload formData string true "Activity JSON"
// @Param image formData file false "Picture, compressed to JPEG"
// @Param pdf formData file false "PDF attachment"
// @Success 201 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Router /activities [post]
func (h *ActivityHandler) Create(c *gin.Context) {
	h.save(c, "")
}

// Update godoc
// @Summary Update activity
// @Tags Activities
// @Accept multipart/form-data
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Activity ID"
// @Param payload formData string true "Activity JSON"
// @Param image formData file false "Picture, compressed to JPEG"
// @Param pdf formData file false "PDF attachment"
// @Success 200 {object} response.Envelope
// @Router /activities/{id} [put]
func (h *ActivityHandler) Update(c *gin.Context) {
	h.save(c, c.Param("id"))
}

// Delete godoc
// @Summary Delete activity
// @Tags Activities
// @Security BearerAuth
// @Param id path string true "Activity ID"
// @Success 204 {string} string "No Content"
// @Router /activities/{id} [delete]
func (h *ActivityHandler) Delete(c *gin.Context) {
	if err := h.activities.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func (h *ActivityHandler) save(c *gin.Context, id string) {
	var req models.SaveActivityRequest
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		if err := json.Unmarshal([]byte(c.PostForm("payload")), &req); err != nil {
			response.Error(c, invalidPayload(err, "payload must be a JSON object"))
			return
		}
		image, err := readFormFile(c, "image", maxAttachmentUpload)
		if err != nil {
			response.Error(c, err)
			return
		}
		pdf, err := readFormFile(c, "pdf", maxAttachmentUpload)
		if err != nil {
			response.Error(c, err)
			return
		}
		req.Image, req.PDF = image, pdf
	} else if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid activity payload"))
		return
	}
	req.ID = id

	item, err := h.activities.Save(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if id == "" {
		response.Created(c, item)
		return
	}
	response.JSON(c, http.StatusOK, item)
}
