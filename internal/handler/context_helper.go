package handler

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/pe-portal-api/internal/ai"
	"github.com/noah-isme/pe-portal-api/internal/middleware"
	"github.com/noah-isme/pe-portal-api/internal/models"
	appErrors "github.com/noah-isme/pe-portal-api/pkg/errors"
)

// maxScanImageBytes bounds pictures sent to the AI.
const maxScanImageBytes = 10 << 20

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

func invalidPayload(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, message)
}

// readFormFile loads a multipart file into memory, refusing files above limit.
// A missing field yields (nil, nil).
func readFormFile(c *gin.Context, field string, limit int64) (*models.Attachment, error) {
	header, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, invalidPayload(err, fmt.Sprintf("could not read %s upload", field))
	}
	return readFileHeader(header, limit)
}

func readFileHeader(header *multipart.FileHeader, limit int64) (*models.Attachment, error) {
	if header.Size > limit {
		return nil, appErrors.Clone(appErrors.ErrPayloadTooLarge, fmt.Sprintf("%s exceeds %d KiB", header.Filename, limit/1024))
	}
	f, err := header.Open()
	if err != nil {
		return nil, invalidPayload(err, fmt.Sprintf("could not open %s", header.Filename))
	}
	defer f.Close() //nolint:errcheck

	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, invalidPayload(err, fmt.Sprintf("could not read %s", header.Filename))
	}
	if int64(len(data)) > limit {
		return nil, appErrors.Clone(appErrors.ErrPayloadTooLarge, fmt.Sprintf("%s exceeds %d KiB", header.Filename, limit/1024))
	}
	return &models.Attachment{Name: header.Filename, ContentType: header.Header.Get("Content-Type"), Data: data}, nil
}

// readScanImage reads the "image" upload used by the AI endpoints.
func readScanImage(c *gin.Context) (ai.Image, error) {
	att, err := readFormFile(c, "image", maxScanImageBytes)
	if err != nil {
		return ai.Image{}, err
	}
	if att == nil || len(att.Data) == 0 {
		return ai.Image{}, appErrors.Clone(appErrors.ErrValidation, "image is required")
	}
	mime := att.ContentType
	if mime == "" || !strings.HasPrefix(mime, "image/") {
		mime = http.DetectContentType(att.Data)
	}
	return ai.Image{MIMEType: mime, Data: att.Data}, nil
}
