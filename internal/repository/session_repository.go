package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/pe-portal-api/internal/media"
	"github.com/noah-isme/pe-portal-api/internal/models"
)

const sessionColumns = `id, class_id, title, description, video_url, pdf_url, date, ai_notes, is_highlight, created_at, updated_at`

const pqUndefinedColumn = "42703"

// SessionRepository manages sessions and their ordered child videos.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository constructs a SessionRepository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// List returns every session, newest first, with VideoURLs composed.
func (r *SessionRepository) List(ctx context.Context) ([]models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions ORDER BY created_at DESC, id ASC`
	var sessions []models.Session
	if err := r.db.SelectContext(ctx, &sessions, query); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	if err := r.attachVideos(ctx, sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// ListByClass returns the sessions of a class ordered by date, newest first.
func (r *SessionRepository) ListByClass(ctx context.Context, classID string) ([]models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE class_id = $1 ORDER BY date DESC, created_at DESC, id ASC`
	var sessions []models.Session
	if err := r.db.SelectContext(ctx, &sessions, query, classID); err != nil {
		return nil, fmt.Errorf("list class sessions: %w", err)
	}
	if err := r.attachVideos(ctx, sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// FindByID fetches one session with VideoURLs composed.
func (r *SessionRepository) FindByID(ctx context.Context, id string) (*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`
	var session models.Session
	if err := r.db.GetContext(ctx, &session, query, id); err != nil {
		return nil, err
	}
	list := []models.Session{session}
	if err := r.attachVideos(ctx, list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

// Insert stores a new session row. Older schemas without is_highlight are
// written without it.
func (r *SessionRepository) Insert(ctx context.Context, session *models.Session) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	session.CreatedAt = now
	session.UpdatedAt = now

	const full = `INSERT INTO sessions (id, class_id, title, description, video_url, pdf_url, date, ai_notes, is_highlight, created_at, updated_at)
        VALUES (:id, :class_id, :title, :description, :video_url, :pdf_url, :date, :ai_notes, :is_highlight, :created_at, :updated_at)`
	const legacy = `INSERT INTO sessions (id, class_id, title, description, video_url, pdf_url, date, ai_notes, created_at, updated_at)
        VALUES (:id, :class_id, :title, :description, :video_url, :pdf_url, :date, :ai_notes, :created_at, :updated_at)`

	_, err := r.db.NamedExecContext(ctx, full, session)
	if isMissingHighlightColumn(err) {
		_, err = r.db.NamedExecContext(ctx, legacy, session)
	}
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// Update overwrites a session row. It returns sql.ErrNoRows when the session
// does not exist.
func (r *SessionRepository) Update(ctx context.Context, session *models.Session) error {
	session.UpdatedAt = time.Now().UTC()

	const full = `UPDATE sessions SET class_id = :class_id, title = :title, description = :description, video_url = :video_url,
        pdf_url = :pdf_url, date = :date, ai_notes = :ai_notes, is_highlight = :is_highlight, updated_at = :updated_at WHERE id = :id`
	const legacy = `UPDATE sessions SET class_id = :class_id, title = :title, description = :description, video_url = :video_url,
        pdf_url = :pdf_url, date = :date, ai_notes = :ai_notes, updated_at = :updated_at WHERE id = :id`

	res, err := r.db.NamedExecContext(ctx, full, session)
	if isMissingHighlightColumn(err) {
		res, err = r.db.NamedExecContext(ctx, legacy, session)
	}
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	return ensureAffected(res)
}

// ReplaceVideos deletes every child video of the session and inserts urls in
// order within one transaction.
func (r *SessionRepository) ReplaceVideos(ctx context.Context, sessionID string, urls []string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace session videos: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM session_videos WHERE session_id = $1`, sessionID); err != nil {
		return fmt.Errorf("clear session videos: %w", err)
	}

	now := time.Now().UTC()
	for i, url := range urls {
		video := models.SessionVideo{
			ID:        uuid.NewString(),
			SessionID: sessionID,
			Position:  i + 1,
			URL:       url,
			CreatedAt: now,
		}
		if _, err = tx.NamedExecContext(ctx, `INSERT INTO session_videos (id, session_id, position, url, created_at) VALUES (:id, :session_id, :position, :url, :created_at)`, &video); err != nil {
			return fmt.Errorf("insert session video %d: %w", i+1, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit replace session videos: %w", err)
	}
	return nil
}

// Delete removes a session and its child videos. It returns sql.ErrNoRows when
// the session does not exist.
func (r *SessionRepository) Delete(ctx context.Context, id string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete session: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM session_videos WHERE session_id = $1`, id); err != nil {
		return fmt.Errorf("delete session videos: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if err = ensureAffected(res); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit delete session: %w", err)
	}
	return nil
}

func (r *SessionRepository) attachVideos(ctx context.Context, sessions []models.Session) error {
	if len(sessions) == 0 {
		return nil
	}
	ids := make([]string, len(sessions))
	for i, s := range sessions {
		ids[i] = s.ID
	}

	const query = `SELECT id, session_id, position, url, created_at FROM session_videos
        WHERE session_id = ANY($1) ORDER BY session_id, position ASC, created_at ASC`
	var videos []models.SessionVideo
	if err := r.db.SelectContext(ctx, &videos, query, pq.Array(ids)); err != nil {
		return fmt.Errorf("list session videos: %w", err)
	}

	children := make(map[string][]string, len(sessions))
	for _, v := range videos {
		children[v.SessionID] = append(children[v.SessionID], v.URL)
	}
	for i := range sessions {
		sessions[i].VideoURLs = media.Compose(sessions[i].VideoURL, children[sessions[i].ID])
	}
	return nil
}

func isMissingHighlightColumn(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return string(pqErr.Code) == pqUndefinedColumn && strings.Contains(pqErr.Message, "is_highlight")
}
