package models

// ContentKind selects what the AI writes for a session topic.
type ContentKind string

const (
	ContentDescription ContentKind = "description"
	ContentQuiz        ContentKind = "quiz"
)

// GenerateContentRequest asks for generated session text.
type GenerateContentRequest struct {
	Topic string      `json:"topic" validate:"required,max=300"`
	Kind  ContentKind `json:"kind" validate:"required,oneof=description quiz"`
}

// GeneratedContent is text written by the AI for a topic.
type GeneratedContent struct {
	Topic string      `json:"topic"`
	Kind  ContentKind `json:"kind"`
	Text  string      `json:"text"`
}
