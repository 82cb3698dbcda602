package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/pe-portal-api/internal/ai"
	"github.com/noah-isme/pe-portal-api/internal/models"
	appErrors "github.com/noah-isme/pe-portal-api/pkg/errors"
	"github.com/noah-isme/pe-portal-api/pkg/sanitize"
)

type contentGenerator interface {
	Generate(ctx context.Context, topic string, kind models.ContentKind) (string, error)
}

// ContentService writes session descriptions and quizzes with the AI.
type ContentService struct {
	generator contentGenerator
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewContentService constructs the content service.
func NewContentService(generator contentGenerator, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *ContentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContentService{generator: generator, metrics: metrics, validator: validate, logger: logger}
}

// GenerateContent returns generated text for a topic. Failures come back as
// GENERATION_FAILED errors, never as text.
func (s *ContentService) GenerateContent(ctx context.Context, req models.GenerateContentRequest) (*models.GeneratedContent, error) {
	req.Topic = sanitize.PlainText(req.Topic)
	if req.Kind == "" {
		req.Kind = models.ContentDescription
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "topic is required and kind must be description or quiz")
	}

	start := time.Now()
	text, err := s.generator.Generate(ctx, req.Topic, req.Kind)
	s.metrics.ObserveAIRequest("generate_"+string(req.Kind), err, time.Since(start))
	if err != nil {
		var genErr *ai.GenerationError
		if errors.As(err, &genErr) {
			s.logger.Warn("content generation failed", zap.String("kind", string(req.Kind)), zap.Error(err))
			return nil, appErrors.Extend(appErrors.ErrGenerationFailed, err, "failed to generate "+string(req.Kind))
		}
		if appErr := appErrors.FromError(err); appErr.Code != appErrors.ErrInternal.Code {
			return nil, err
		}
		return nil, appErrors.Extend(appErrors.ErrGenerationFailed, err, "failed to generate "+string(req.Kind))
	}
	return &models.GeneratedContent{Topic: req.Topic, Kind: req.Kind, Text: text}, nil
}
