package models

// ScannedGradeRow is one untrusted row extracted from a grade sheet image. A
// zero score means the value was not found.
type ScannedGradeRow struct {
	Name  string  `json:"name"`
	Note1 float64 `json:"note1"`
	Note2 float64 `json:"note2"`
	Note3 float64 `json:"note3"`
}

// MergeGradesRequest carries reviewed rows back for merging.
type MergeGradesRequest struct {
	Rows []ScannedGradeRow `json:"rows" validate:"required,min=1"`
}

// RowFailure describes a scanned row that could not be applied.
type RowFailure struct {
	Index  int    `json:"index"`
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// MergeReport summarises a grade merge and carries the roster as re-read after
// all rows were processed.
type MergeReport struct {
	Created int           `json:"created"`
	Updated int           `json:"updated"`
	Failed  []RowFailure  `json:"failed,omitempty"`
	Roster  []StudentView `json:"roster"`
}

// ImportReport summarises a roster import from a name list image.
type ImportReport struct {
	Created []Student     `json:"created"`
	Skipped []string      `json:"skipped,omitempty"`
	Failed  []RowFailure  `json:"failed,omitempty"`
	Roster  []StudentView `json:"roster"`
}
