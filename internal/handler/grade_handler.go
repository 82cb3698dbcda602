package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/pe-portal-api/internal/ai"
	"github.com/noah-isme/pe-portal-api/internal/models"
	"github.com/noah-isme/pe-portal-api/internal/service"
	"github.com/noah-isme/pe-portal-api/pkg/response"
)

type gradeMerger interface {
	Scan(ctx context.Context, img ai.Image) ([]models.ScannedGradeRow, error)
	Merge(ctx context.Context, classID string, rows []models.ScannedGradeRow) (*models.MergeReport, error)
}

type rosterService interface {
	ImportNames(ctx context.Context, classID string, img ai.Image) (*models.ImportReport, error)
	ExportRoster(ctx context.Context, classID string, format service.ExportFormat) (*service.RosterExport, error)
}

// GradeHandler exposes grade sheet scanning, merging and roster import/export.
type GradeHandler struct {
	grades gradeMerger
	roster rosterService
}

// NewGradeHandler constructs handler.
func NewGradeHandler(grades gradeMerger, roster rosterService) *GradeHandler {
	return &GradeHandler{grades: grades, roster: roster}
}

// Scan godoc
// @Summary Scan a grade sheet
// @Description Extracts rows from a picture for review. Nothing is saved.
// @Tags Grades
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path string true "Class ID"
// @Param image formData file true "Grade sheet picture"
// @Success 200 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /classes/{id}/grades/scan [post]
func (h *GradeHandler) Scan(c *gin.Context) {
	img, err := readScanImage(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	rows, err := h.grades.Scan(c.Request.Context(), img)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, map[string]interface{}{"total": len(rows)})
}

// Merge godoc
// @Summary Merge reviewed grade rows into the roster
// @Tags Grades
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Class ID"
// @Param payload body models.MergeGradesRequest true "Rows"
// @Success 200 {object} response.Envelope
// @Success 207 {object} response.Envelope
// @Router /classes/{id}/grades/merge [post]
func (h *GradeHandler) Merge(c *gin.Context) {
	var req models.MergeGradesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid merge payload"))
		return
	}
	report, err := h.grades.Merge(c.Request.Context(), c.Param("id"), req.Rows)
	if err != nil {
		if report != nil {
			response.Partial(c, report, err)
			return
		}
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report)
}

// Import godoc
// @Summary Import student names from a picture
// @Tags Grades
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path string true "Class ID"
// @Param image formData file true "Name list picture"
// @Success 200 {object} response.Envelope
// @Router /classes/{id}/students/import [post]
func (h *GradeHandler) Import(c *gin.Context) {
	img, err := readScanImage(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	report, err := h.roster.ImportNames(c.Request.Context(), c.Param("id"), img)
	if err != nil {
		if report != nil {
			response.Partial(c, report, err)
			return
		}
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report)
}

// Export godoc
// @Summary Export roster with averages
// @Tags Grades
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param id path string true "Class ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Router /classes/{id}/grades/export [get]
func (h *GradeHandler) Export(c *gin.Context) {
	out, err := h.roster.ExportRoster(c.Request.Context(), c.Param("id"), service.ExportFormat(c.DefaultQuery("format", "csv")))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+out.FileName+`"`)
	c.Data(http.StatusOK, out.ContentType, out.Data)
}
