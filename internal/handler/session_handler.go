package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/pe-portal-api/internal/models"
	appErrors "github.com/noah-isme/pe-portal-api/pkg/errors"
	"github.com/noah-isme/pe-portal-api/pkg/response"
)

// multipartMemory is how much of a session form is kept in memory before
// gin spills file parts to disk.
const multipartMemory = 32 << 20

type sessionService interface {
	Save(ctx context.Context, req models.SaveSessionRequest) (*models.Session, models.SaveOutcome, error)
	List(ctx context.Context) ([]models.Session, error)
	Get(ctx context.Context, id string) (*models.Session, error)
	ListByClass(ctx context.Context, classID string, months []string) ([]models.Session, error)
	Months(ctx context.Context, classID string) ([]string, error)
	Highlights(ctx context.Context, limit int) ([]models.Session, error)
	Delete(ctx context.Context, id string) error
}

// sessionPayload is the JSON part of a session save.
type sessionPayload struct {
	ClassID     string       `json:"class_id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Date        string       `json:"date"`
	IsHighlight bool         `json:"is_highlight"`
	PDFURL      string       `json:"pdf_url"`
	AINotes     string       `json:"ai_notes"`
	Videos      []videoEntry `json:"videos"`
}

// videoEntry is one item of the ordered video manifest. Link entries carry a
// URL; file entries name the multipart field holding the upload.
type videoEntry struct {
	Type  string `json:"type"`
	URL   string `json:"url,omitempty"`
	Field string `json:"field,omitempty"`
}

// SessionHandler exposes session endpoints.
type SessionHandler struct {
	sessions sessionService
}

// NewSessionHandler constructs handler.
func NewSessionHandler(sessions sessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// List godoc
// @Summary List sessions
// @Tags Sessions
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /sessions [get]
func (h *SessionHandler) List(c *gin.Context) {
	sessions, err := h.sessions.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sessions, map[string]interface{}{"total": len(sessions)})
}

// Highlights godoc
// @Summary Highlighted sessions
// @Description Sessions flagged as highlights, or the latest sessions with a video when none are flagged
// @Tags Sessions
// @Produce json
// @Param limit query int false "Fallback size, at most 50" default(5)
// @Success 200 {object} response.Envelope
// @Router /sessions/highlights [get]
func (h *SessionHandler) Highlights(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	sessions, err := h.sessions.Highlights(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sessions)
}

// Get godoc
// @Summary Get session
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /sessions/{id} [get]
func (h *SessionHandler) Get(c *gin.Context) {
	session, err := h.sessions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session)
}

// ListByClass godoc
// @Summary List sessions of a class
// @Tags Sessions
// @Produce json
// @Param id path string true "Class ID"
// @Param month query []string false "Months to keep (YYYY-MM)" collectionFormat(multi)
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/sessions [get]
func (h *SessionHandler) ListByClass(c *gin.Context) {
	var months []string
	for _, raw := range c.QueryArray("month") {
		for _, m := range strings.Split(raw, ",") {
			if m = strings.TrimSpace(m); m != "" {
				months = append(months, m)
			}
		}
	}
	sessions, err := h.sessions.ListByClass(c.Request.Context(), c.Param("id"), months)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sessions, map[string]interface{}{"total": len(sessions)})
}

// Months godoc
// @Summary Months with sessions in a class
// @Tags Sessions
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/months [get]
func (h *SessionHandler) Months(c *gin.Context) {
	months, err := h.sessions.Months(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, months)
}

// Create godoc
// @Summary Create session
// @Description Multipart form with a "payload" JSON part, an ordered "videos" manifest and one file part per uploaded video. A plain JSON body with link videos is accepted too.
// @Tags Sessions
// @Accept multipart/form-data
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload formData string true "Session JSON"
// @Param videos formData string true "Video manifest JSON"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /sessions [post]
func (h *SessionHandler) Create(c *gin.Context) {
	h.save(c, "")
}

// Update godoc
// @Summary Replace session
// @Tags Sessions
// @Accept multipart/form-data
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Param payload formData string true "Session JSON"
// @Param videos formData string true "Video manifest JSON"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /sessions/{id} [put]
func (h *SessionHandler) Update(c *gin.Context) {
	h.save(c, c.Param("id"))
}

// Delete godoc
// @Summary Delete session
// @Tags Sessions
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Success 204 {string} string "No Content"
// @Router /sessions/{id} [delete]
func (h *SessionHandler) Delete(c *gin.Context) {
	if err := h.sessions.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func (h *SessionHandler) save(c *gin.Context, id string) {
	req, err := bindSessionRequest(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	req.ID = id

	session, outcome, err := h.sessions.Save(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	status := http.StatusOK
	if outcome.Created {
		status = http.StatusCreated
	}
	response.JSON(c, status, session, map[string]interface{}{"stage": outcome.Stage, "uploaded": outcome.Uploaded})
}

func bindSessionRequest(c *gin.Context) (models.SaveSessionRequest, error) {
	var payload sessionPayload
	var files map[string][]*multipart.FileHeader

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		if err := c.Request.ParseMultipartForm(multipartMemory); err != nil {
			return models.SaveSessionRequest{}, invalidPayload(err, "invalid multipart form")
		}
		if err := json.Unmarshal([]byte(c.PostForm("payload")), &payload); err != nil {
			return models.SaveSessionRequest{}, invalidPayload(err, "payload must be a JSON object")
		}
		if raw := c.PostForm("videos"); raw != "" {
			payload.Videos = nil
			if err := json.Unmarshal([]byte(raw), &payload.Videos); err != nil {
				return models.SaveSessionRequest{}, invalidPayload(err, "videos must be a JSON array")
			}
		}
		files = c.Request.MultipartForm.File
	} else if err := c.ShouldBindJSON(&payload); err != nil {
		return models.SaveSessionRequest{}, invalidPayload(err, "invalid session payload")
	}

	videos, err := pendingVideos(payload.Videos, files)
	if err != nil {
		return models.SaveSessionRequest{}, err
	}
	return models.SaveSessionRequest{
		ClassID:     payload.ClassID,
		Title:       payload.Title,
		Description: payload.Description,
		Date:        payload.Date,
		IsHighlight: payload.IsHighlight,
		PDFURL:      payload.PDFURL,
		AINotes:     payload.AINotes,
		Videos:      videos,
	}, nil
}

func pendingVideos(entries []videoEntry, files map[string][]*multipart.FileHeader) ([]models.PendingVideo, error) {
	videos := make([]models.PendingVideo, 0, len(entries))
	for i, entry := range entries {
		switch models.PendingVideoKind(strings.ToLower(entry.Type)) {
		case models.PendingVideoLink:
			videos = append(videos, models.LinkVideo(entry.URL))
		case models.PendingVideoFile:
			headers := files[entry.Field]
			if entry.Field == "" || len(headers) == 0 {
				return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("video #%d references missing file part %q", i+1, entry.Field))
			}
			videos = append(videos, fileVideo(headers[0]))
		default:
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("video #%d has unknown type %q", i+1, entry.Type))
		}
	}
	return videos, nil
}

func fileVideo(header *multipart.FileHeader) models.PendingVideo {
	return models.PendingVideo{
		Kind:        models.PendingVideoFile,
		DisplayName: header.Filename,
		Size:        header.Size,
		Open: func() (io.ReadCloser, error) {
			f, err := header.Open()
			if err != nil {
				return nil, err
			}
			return f, nil
		},
	}
}
