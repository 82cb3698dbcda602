package models

import "time"

// Activity is a standalone announcement with optional inline attachments.
type Activity struct {
	ID          string    `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Date        string    `db:"date" json:"date"`
	Description string    `db:"description" json:"description"`
	ImageURL    string    `db:"image_url" json:"image_url,omitempty"`
	PDFURL      string    `db:"pdf_url" json:"pdf_url,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Attachment is an uploaded file held in memory.
type Attachment struct {
	Name        string
	ContentType string
	Data        []byte
}

// SaveActivityRequest creates or updates an activity. Nil attachments keep the
// stored URLs; RemoveImage and RemovePDF clear them.
type SaveActivityRequest struct {
	ID          string      `json:"id"`
	Title       string      `json:"title" validate:"required,max=200"`
	Date        string      `json:"date" validate:"required,datetime=2006-01-02"`
	Description string      `json:"description"`
	RemoveImage bool        `json:"remove_image"`
	RemovePDF   bool        `json:"remove_pdf"`
	Image       *Attachment `json:"-"`
	PDF         *Attachment `json:"-"`
}
