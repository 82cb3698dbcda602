package models

import "time"

// TempIDPrefix marks client-side identifiers of students not yet stored.
const TempIDPrefix = "temp-"

// MaxStudentNameLength bounds student names in runes.
const MaxStudentNameLength = 160

// Student is a member of a class roster with three term scores.
type Student struct {
	ID        string    `db:"id" json:"id"`
	ClassID   string    `db:"class_id" json:"class_id"`
	Name      string    `db:"name" json:"name"`
	Note1     float64   `db:"note1" json:"note1"`
	Note2     float64   `db:"note2" json:"note2"`
	Note3     float64   `db:"note3" json:"note3"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// StudentView adds the derived average to a student.
type StudentView struct {
	Student
	Average string `json:"average"`
}

// SaveStudentRequest creates or updates a student.
type SaveStudentRequest struct {
	ID      string  `json:"id"`
	ClassID string  `json:"class_id" validate:"required"`
	Name    string  `json:"name" validate:"required,max=160"`
	Note1   float64 `json:"note1" validate:"gte=0"`
	Note2   float64 `json:"note2" validate:"gte=0"`
	Note3   float64 `json:"note3" validate:"gte=0"`
}
