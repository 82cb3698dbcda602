package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pe-portal-api/internal/ai"
	"github.com/noah-isme/pe-portal-api/internal/models"
	appErrors "github.com/noah-isme/pe-portal-api/pkg/errors"
)

func TestGenerateContent(t *testing.T) {
	gen := &fakeExtractor{text: "1. What muscle does a squat train?"}
	svc := NewContentService(gen, nil, nil, nil)

	out, err := svc.GenerateContent(context.Background(), models.GenerateContentRequest{Topic: " Squats ", Kind: models.ContentQuiz})
	require.NoError(t, err)
	assert.Equal(t, "Squats", out.Topic)
	assert.Equal(t, models.ContentQuiz, out.Kind)
	assert.Equal(t, gen.text, out.Text)
}

func TestGenerateContentDefaultsToDescription(t *testing.T) {
	gen := &fakeExtractor{text: "A session on balance."}
	svc := NewContentService(gen, nil, nil, nil)

	out, err := svc.GenerateContent(context.Background(), models.GenerateContentRequest{Topic: "Balance"})
	require.NoError(t, err)
	assert.Equal(t, models.ContentDescription, gen.lastKind)
	assert.Equal(t, models.ContentDescription, out.Kind)
}

func TestGenerateContentFailures(t *testing.T) {
	ctx := context.Background()

	gen := &fakeExtractor{err: &ai.GenerationError{Topic: "Balance", Kind: models.ContentQuiz, Err: errors.New("quota")}}
	svc := NewContentService(gen, nil, nil, nil)
	out, err := svc.GenerateContent(ctx, models.GenerateContentRequest{Topic: "Balance", Kind: models.ContentQuiz})
	assert.Nil(t, out)
	assert.ErrorIs(t, err, appErrors.ErrGenerationFailed)

	svc = NewContentService(&fakeExtractor{err: appErrors.ErrAIUnavailable}, nil, nil, nil)
	_, err = svc.GenerateContent(ctx, models.GenerateContentRequest{Topic: "Balance"})
	assert.ErrorIs(t, err, appErrors.ErrAIUnavailable)

	blank := &fakeExtractor{}
	svc = NewContentService(blank, nil, nil, nil)
	_, err = svc.GenerateContent(ctx, models.GenerateContentRequest{Topic: "  "})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	assert.Zero(t, blank.calls)

	_, err = svc.GenerateContent(ctx, models.GenerateContentRequest{Topic: "Balance", Kind: "poem"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}
