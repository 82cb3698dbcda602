package ai

import (
	"fmt"

	"github.com/noah-isme/pe-portal-api/internal/models"
)

const gradesPrompt = `Analyze this image of a grade sheet (handwritten or printed).
Extract the student names and their scores for Term 1, Term 2, and Term 3 (if available).

Return a STRICT JSON array of objects. Do not wrap in markdown code blocks.
Structure:
[
  { "name": "Student Name", "note1": 15, "note2": 14, "note3": 0 }
]

Rules:
- If a note is missing, use 0.
- Extract as accurately as possible.
- Return ONLY the JSON.`

const namesPrompt = "Extract the list of student names from this image. Return ONLY the names, one per line. " +
	"Do not include numbers, grades, dates, or headers. Just the First and Last names."

func contentPrompt(topic string, kind models.ContentKind) (string, error) {
	switch kind {
	case models.ContentDescription:
		return fmt.Sprintf("Create a short, engaging description for a physical education session about %q. "+
			"Include 3 key learning objectives. Keep it under 150 words.", topic), nil
	case models.ContentQuiz:
		return fmt.Sprintf("Create 3 multiple choice exam questions for a PE class session about %q. "+
			"Include the correct answer. Format as simple text.", topic), nil
	default:
		return "", fmt.Errorf("unknown content kind %q", kind)
	}
}
