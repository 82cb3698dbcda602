package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/noah-isme/pe-portal-api/internal/models"
)

var errEmptyResponse = errors.New("empty response")

// stripFences removes markdown code fences the model sometimes adds despite
// being told not to.
func stripFences(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")
	return strings.TrimSpace(text)
}

func parseGradeRows(text string) ([]models.ScannedGradeRow, error) {
	text = stripFences(text)
	if text == "" {
		return nil, errEmptyResponse
	}
	var rows []models.ScannedGradeRow
	if err := json.Unmarshal([]byte(text), &rows); err != nil {
		return nil, fmt.Errorf("decode grade rows: %w", err)
	}
	if rows == nil {
		return nil, fmt.Errorf("decode grade rows: expected a JSON array")
	}
	return rows, nil
}

func parseNames(text string) []string {
	lines := strings.Split(text, "\n")
	names := make([]string, 0, len(lines))
	for _, line := range lines {
		if name := strings.TrimSpace(line); name != "" {
			names = append(names, name)
		}
	}
	return names
}
