package models

import (
	"io"
	"time"
)

// Session is a training event of a class. VideoURL holds the primary video and
// always equals VideoURLs[0] when the list is non-empty; the remaining entries
// live in session_videos.
type Session struct {
	ID          string    `db:"id" json:"id"`
	ClassID     string    `db:"class_id" json:"class_id"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	VideoURL    string    `db:"video_url" json:"video_url"`
	VideoURLs   []string  `db:"-" json:"video_urls"`
	EmbedURLs   []string  `db:"-" json:"embed_urls,omitempty"`
	PDFURL      string    `db:"pdf_url" json:"pdf_url,omitempty"`
	Date        string    `db:"date" json:"date"`
	AINotes     string    `db:"ai_notes" json:"ai_notes,omitempty"`
	IsHighlight bool      `db:"is_highlight" json:"is_highlight"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Month returns the YYYY-MM prefix of the session date, or "" when the date is
// too short to carry one.
func (s Session) Month() string {
	if len(s.Date) < 7 {
		return ""
	}
	return s.Date[:7]
}

// SessionVideo is one non-primary video of a session.
type SessionVideo struct {
	ID        string    `db:"id" json:"id"`
	SessionID string    `db:"session_id" json:"session_id"`
	Position  int       `db:"position" json:"position"`
	URL       string    `db:"url" json:"url"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// PendingVideoKind tags a PendingVideo.
type PendingVideoKind string

const (
	PendingVideoLink PendingVideoKind = "link"
	PendingVideoFile PendingVideoKind = "file"
)

// PendingVideo is a video entry collected while authoring a session: either a
// link used verbatim or a file that still has to be uploaded.
type PendingVideo struct {
	Kind        PendingVideoKind
	URL         string
	DisplayName string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// LinkVideo builds a link entry.
func LinkVideo(url string) PendingVideo {
	return PendingVideo{Kind: PendingVideoLink, URL: url}
}

// Label names the entry in user-facing messages.
func (p PendingVideo) Label() string {
	if p.Kind == PendingVideoFile {
		return p.DisplayName
	}
	return p.URL
}

// SaveSessionRequest carries a full session edit. An empty ID creates a new
// session.
type SaveSessionRequest struct {
	ID          string         `json:"id"`
	ClassID     string         `json:"class_id" validate:"required"`
	Title       string         `json:"title" validate:"required,max=200"`
	Description string         `json:"description"`
	Date        string         `json:"date" validate:"required,datetime=2006-01-02"`
	IsHighlight bool           `json:"is_highlight"`
	PDFURL      string         `json:"pdf_url" validate:"omitempty,url"`
	AINotes     string         `json:"ai_notes"`
	Videos      []PendingVideo `json:"-"`
}

// SaveStage identifies how far a session save progressed.
type SaveStage string

const (
	StageValidating         SaveStage = "validating"
	StageResolvingVideos    SaveStage = "resolving_videos"
	StagePersistingParent   SaveStage = "persisting_parent"
	StagePersistingChildren SaveStage = "persisting_children"
	StageDone               SaveStage = "done"

	StageValidationFailed SaveStage = "validation_failed"
	StageUploadFailed     SaveStage = "upload_failed"
	StagePersistFailed    SaveStage = "persist_failed"
)

// SaveOutcome reports the terminal stage of a save together with the number
// of uploads performed before it ended.
type SaveOutcome struct {
	Stage    SaveStage
	Uploaded int
	Created  bool
}
