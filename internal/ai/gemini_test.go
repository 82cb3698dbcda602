package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/noah-isme/pe-portal-api/internal/models"
	"github.com/noah-isme/pe-portal-api/pkg/config"
	appErrors "github.com/noah-isme/pe-portal-api/pkg/errors"
)

type fakeModels struct {
	text     string
	err      error
	model    string
	contents []*genai.Content
	cfg      *genai.GenerateContentConfig
}

func (f *fakeModels) GenerateContent(_ context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model = model
	f.contents = contents
	f.cfg = cfg
	if f.err != nil {
		return nil, f.err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: []*genai.Part{{Text: f.text}}}}},
	}, nil
}

func newTestClient(f *fakeModels) *Client {
	return &Client{models: f, model: "gemini-test", logger: zap.NewNop()}
}

func TestNewWithoutKeyIsUnavailable(t *testing.T) {
	c, err := New(context.Background(), config.AIConfig{}, nil)
	require.NoError(t, err)
	assert.False(t, c.Available())

	_, err = c.ExtractGrades(context.Background(), Image{Data: []byte{1}})
	assert.ErrorIs(t, err, appErrors.ErrAIUnavailable)
	_, err = c.Generate(context.Background(), "sprint", models.ContentQuiz)
	assert.ErrorIs(t, err, appErrors.ErrAIUnavailable)
}

func TestExtractGradesStripsFences(t *testing.T) {
	f := &fakeModels{text: "```json\n[{\"name\":\"Jane Doe\",\"note1\":15,\"note2\":0,\"note3\":12.5}]\n```"}
	rows, err := newTestClient(f).ExtractGrades(context.Background(), Image{MIMEType: "image/png", Data: []byte("png")})
	require.NoError(t, err)

	require.Len(t, rows, 1)
	assert.Equal(t, models.ScannedGradeRow{Name: "Jane Doe", Note1: 15, Note2: 0, Note3: 12.5}, rows[0])
	assert.Equal(t, "gemini-test", f.model)
	assert.Equal(t, "application/json", f.cfg.ResponseMIMEType)
	require.Len(t, f.contents, 1)
	require.Len(t, f.contents[0].Parts, 2)
	assert.Equal(t, "image/png", f.contents[0].Parts[0].InlineData.MIMEType)
}

func TestExtractGradesMalformedJSON(t *testing.T) {
	_, err := newTestClient(&fakeModels{text: "Sorry, I cannot read this."}).ExtractGrades(context.Background(), Image{Data: []byte("x")})
	assert.ErrorIs(t, err, appErrors.ErrExtractionFailed)
}

func TestExtractGradesServiceError(t *testing.T) {
	_, err := newTestClient(&fakeModels{err: errors.New("quota exceeded")}).ExtractGrades(context.Background(), Image{Data: []byte("x")})
	assert.ErrorIs(t, err, appErrors.ErrExtractionFailed)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestExtractNames(t *testing.T) {
	names, err := newTestClient(&fakeModels{text: "Jane Doe\n\n  John Smith  \n"}).ExtractNames(context.Background(), Image{Data: []byte("x")})
	require.NoError(t, err)
	assert.Equal(t, []string{"Jane Doe", "John Smith"}, names)
}

func TestGenerateReturnsTypedError(t *testing.T) {
	_, err := newTestClient(&fakeModels{err: errors.New("model not found")}).Generate(context.Background(), "relay", models.ContentDescription)

	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, "relay", genErr.Topic)
	assert.Equal(t, models.ContentDescription, genErr.Kind)
}

func TestGenerateEmptyResponseIsError(t *testing.T) {
	_, err := newTestClient(&fakeModels{text: "   "}).Generate(context.Background(), "relay", models.ContentQuiz)
	var genErr *GenerationError
	assert.ErrorAs(t, err, &genErr)
}

func TestGenerateUsesTopicInPrompt(t *testing.T) {
	f := &fakeModels{text: "1. Question"}
	text, err := newTestClient(f).Generate(context.Background(), "high jump", models.ContentQuiz)
	require.NoError(t, err)
	assert.Equal(t, "1. Question", text)
	assert.Contains(t, f.contents[0].Parts[0].Text, `"high jump"`)
}
