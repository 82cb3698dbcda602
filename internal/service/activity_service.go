package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/pe-portal-api/internal/models"
	"github.com/noah-isme/pe-portal-api/pkg/config"
	appErrors "github.com/noah-isme/pe-portal-api/pkg/errors"
	"github.com/noah-isme/pe-portal-api/pkg/sanitize"
)

const (
	jpegDataURLPrefix = "data:image/jpeg;base64,"
	pdfDataURLPrefix  = "data:application/pdf;base64,"
)

type activityRepository interface {
	List(ctx context.Context) ([]models.Activity, error)
	FindByID(ctx context.Context, id string) (*models.Activity, error)
	Insert(ctx context.Context, activity *models.Activity) error
	Update(ctx context.Context, activity *models.Activity) error
	Delete(ctx context.Context, id string) error
}

// ActivityService manages announcements with inline image and PDF attachments.
type ActivityService struct {
	repo      activityRepository
	limits    config.ActivitiesConfig
	validator *validator.Validate
	logger    *zap.Logger
}

// NewActivityService constructs the activity service. Zero limits fall back
// to 300 KiB attachments and 800px JPEGs at quality 60.
func NewActivityService(repo activityRepository, limits config.ActivitiesConfig, validate *validator.Validate, logger *zap.Logger) *ActivityService {
	if limits.MaxImageBytes <= 0 {
		limits.MaxImageBytes = 300 * 1024
	}
	if limits.MaxPDFBytes <= 0 {
		limits.MaxPDFBytes = 300 * 1024
	}
	if limits.ImageMaxWidth <= 0 {
		limits.ImageMaxWidth = 800
	}
	if limits.ImageQuality <= 0 || limits.ImageQuality > 100 {
		limits.ImageQuality = 60
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivityService{repo: repo, limits: limits, validator: validate, logger: logger}
}

// List returns activities in date order.
func (s *ActivityService) List(ctx context.Context) ([]models.Activity, error) {
	activities, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list activities")
	}
	if activities == nil {
		activities = []models.Activity{}
	}
	return activities, nil
}

// Get returns one activity.
func (s *ActivityService) Get(ctx context.Context, id string) (*models.Activity, error) {
	activity, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "activity not found", "failed to load activity")
	}
	return activity, nil
}

// Save creates or updates an activity. New attachments replace the stored
// ones; without a new attachment the stored URL is kept unless removal was
// requested.
func (s *ActivityService) Save(ctx context.Context, req models.SaveActivityRequest) (*models.Activity, error) {
	req.ID = strings.TrimSpace(req.ID)
	req.Title = sanitize.PlainText(req.Title)
	req.Description = sanitize.PlainText(req.Description)
	req.Date = strings.TrimSpace(req.Date)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "title and date (YYYY-MM-DD) are required")
	}

	activity := &models.Activity{}
	if req.ID != "" {
		existing, err := s.repo.FindByID(ctx, req.ID)
		if err != nil {
			return nil, storeError(err, "activity not found", "failed to load activity")
		}
		activity = existing
	}
	activity.Title = req.Title
	activity.Date = req.Date
	activity.Description = req.Description

	switch {
	case req.Image != nil:
		url, err := s.compressImage(req.Image)
		if err != nil {
			return nil, err
		}
		activity.ImageURL = url
	case req.RemoveImage:
		activity.ImageURL = ""
	}

	switch {
	case req.PDF != nil:
		url, err := s.encodePDF(req.PDF)
		if err != nil {
			return nil, err
		}
		activity.PDFURL = url
	case req.RemovePDF:
		activity.PDFURL = ""
	}

	if req.ID == "" {
		if err := s.repo.Insert(ctx, activity); err != nil {
			return nil, appErrors.Extend(appErrors.ErrPersistFailed, err, "failed to create activity")
		}
	} else if err := s.repo.Update(ctx, activity); err != nil {
		return nil, storeError(err, "activity not found", "failed to update activity")
	}
	s.logger.Info("activity saved", zap.String("activity_id", activity.ID),
		zap.Bool("image", activity.ImageURL != ""), zap.Bool("pdf", activity.PDFURL != ""))
	return activity, nil
}

// Delete removes an activity.
func (s *ActivityService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return storeError(err, "activity not found", "failed to delete activity")
	}
	return nil
}

// compressImage downsizes the picture to the configured width, re-encodes it
// as JPEG and returns it as a data URL.
func (s *ActivityService) compressImage(att *models.Attachment) (string, error) {
	if len(att.Data) == 0 {
		return "", appErrors.Clone(appErrors.ErrValidation, "image is empty")
	}
	img, err := imaging.Decode(bytes.NewReader(att.Data), imaging.AutoOrientation(true))
	if err != nil {
		return "", validationError(err, fmt.Sprintf("%s is not a supported image", att.Name))
	}
	if img.Bounds().Dx() > s.limits.ImageMaxWidth {
		img = imaging.Resize(img, s.limits.ImageMaxWidth, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(s.limits.ImageQuality)); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode image")
	}
	if buf.Len() > s.limits.MaxImageBytes {
		return "", appErrors.Clone(appErrors.ErrPayloadTooLarge,
			fmt.Sprintf("image is %d KiB after compression, the limit is %d KiB", buf.Len()/1024, s.limits.MaxImageBytes/1024))
	}
	return jpegDataURLPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func (s *ActivityService) encodePDF(att *models.Attachment) (string, error) {
	if !bytes.HasPrefix(att.Data, []byte("%PDF-")) {
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s is not a PDF", att.Name))
	}
	if len(att.Data) > s.limits.MaxPDFBytes {
		return "", appErrors.Clone(appErrors.ErrPayloadTooLarge,
			fmt.Sprintf("pdf is %d KiB, the limit is %d KiB", len(att.Data)/1024, s.limits.MaxPDFBytes/1024))
	}
	return pdfDataURLPrefix + base64.StdEncoding.EncodeToString(att.Data), nil
}
