// Package ai wraps the Gemini API for grade sheet extraction, roster name
// extraction and session text generation.
package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/noah-isme/pe-portal-api/internal/models"
	"github.com/noah-isme/pe-portal-api/pkg/config"
	appErrors "github.com/noah-isme/pe-portal-api/pkg/errors"
)

// Image is an uploaded picture handed to the vision model.
type Image struct {
	MIMEType string
	Data     []byte
}

type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GenerationError reports a failed text generation. It is never returned as
// generated text.
type GenerationError struct {
	Topic string
	Kind  models.ContentKind
	Err   error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generate %s for %q: %v", e.Kind, e.Topic, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Client calls Gemini. A Client built without an API key fails every call with
// AI_UNAVAILABLE.
type Client struct {
	models  contentGenerator
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

// New constructs a Client from configuration.
func New(ctx context.Context, cfg config.AIConfig, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{model: cfg.Model, timeout: cfg.Timeout, logger: logger}
	if c.model == "" {
		c.model = "gemini-2.5-flash"
	}
	if cfg.APIKey == "" {
		logger.Warn("GEMINI_API_KEY not set, AI features disabled")
		return c, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	c.models = client.Models
	return c, nil
}

// Available reports whether the client has credentials.
func (c *Client) Available() bool {
	return c != nil && c.models != nil
}

// ExtractGrades reads a grade sheet image into scanned rows.
func (c *Client) ExtractGrades(ctx context.Context, img Image) ([]models.ScannedGradeRow, error) {
	if !c.Available() {
		return nil, appErrors.ErrAIUnavailable
	}
	text, err := c.generate(ctx, imageContents(img, gradesPrompt), &genai.GenerateContentConfig{ResponseMIMEType: "application/json"})
	if err != nil {
		c.logger.Warn("grade extraction failed", zap.Error(err))
		return nil, appErrors.Extend(appErrors.ErrExtractionFailed, err, "failed to extract grades")
	}
	rows, err := parseGradeRows(text)
	if err != nil {
		c.logger.Warn("grade extraction returned unusable output", zap.Error(err), zap.Int("length", len(text)))
		return nil, appErrors.Extend(appErrors.ErrExtractionFailed, err, "failed to extract grades")
	}
	return rows, nil
}

// ExtractNames reads a list of student names from an image, one per line.
func (c *Client) ExtractNames(ctx context.Context, img Image) ([]string, error) {
	if !c.Available() {
		return nil, appErrors.ErrAIUnavailable
	}
	text, err := c.generate(ctx, imageContents(img, namesPrompt), nil)
	if err != nil {
		c.logger.Warn("name extraction failed", zap.Error(err))
		return nil, appErrors.Extend(appErrors.ErrExtractionFailed, err, "failed to extract names")
	}
	return parseNames(text), nil
}

// Generate writes a description or quiz for a session topic.
func (c *Client) Generate(ctx context.Context, topic string, kind models.ContentKind) (string, error) {
	if !c.Available() {
		return "", appErrors.ErrAIUnavailable
	}
	prompt, err := contentPrompt(topic, kind)
	if err != nil {
		return "", &GenerationError{Topic: topic, Kind: kind, Err: err}
	}
	text, err := c.generate(ctx, genai.Text(prompt), nil)
	if err != nil {
		c.logger.Warn("content generation failed", zap.String("kind", string(kind)), zap.Error(err))
		return "", &GenerationError{Topic: topic, Kind: kind, Err: err}
	}
	return text, nil
}

func (c *Client) generate(ctx context.Context, contents []*genai.Content, cfg *genai.GenerateContentConfig) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	resp, err := c.models.GenerateContent(ctx, c.model, contents, cfg)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", errEmptyResponse
	}
	return text, nil
}

func imageContents(img Image, prompt string) []*genai.Content {
	mime := img.MIMEType
	if mime == "" {
		mime = "image/jpeg"
	}
	parts := []*genai.Part{
		genai.NewPartFromBytes(img.Data, mime),
		genai.NewPartFromText(prompt),
	}
	return []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
}
