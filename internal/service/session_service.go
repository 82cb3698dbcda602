package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/pe-portal-api/internal/media"
	"github.com/noah-isme/pe-portal-api/internal/models"
	"github.com/noah-isme/pe-portal-api/pkg/cache"
	appErrors "github.com/noah-isme/pe-portal-api/pkg/errors"
	"github.com/noah-isme/pe-portal-api/pkg/middleware/requestid"
	"github.com/noah-isme/pe-portal-api/pkg/sanitize"
)

// DefaultHighlightLimit is the number of recent sessions shown when no
// session is flagged as a highlight.
const DefaultHighlightLimit = 5

// MaxHighlightLimit caps the fallback highlight feed.
const MaxHighlightLimit = 50

type sessionRepository interface {
	List(ctx context.Context) ([]models.Session, error)
	ListByClass(ctx context.Context, classID string) ([]models.Session, error)
	FindByID(ctx context.Context, id string) (*models.Session, error)
	Insert(ctx context.Context, session *models.Session) error
	Update(ctx context.Context, session *models.Session) error
	ReplaceVideos(ctx context.Context, sessionID string, urls []string) error
	Delete(ctx context.Context, id string) error
}

type blobUploader interface {
	Upload(ctx context.Context, name string, r io.Reader) (string, error)
}

// SessionService saves sessions with their videos and serves session feeds.
type SessionService struct {
	sessions  sessionRepository
	classes   classLookup
	blobs     blobUploader
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSessionService constructs the session service.
func NewSessionService(sessions sessionRepository, classes classLookup, blobs blobUploader, cacheSvc *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *SessionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{
		sessions:  sessions,
		classes:   classes,
		blobs:     blobs,
		cache:     cacheSvc,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
	}
}

// Save validates req, uploads pending files in authoring order, writes the
// session row and then replaces its child videos. Upload failures abort before
// anything is written; uploads that already succeeded are kept. A failure
// while writing leaves whatever was written in place.
func (s *SessionService) Save(ctx context.Context, req models.SaveSessionRequest) (*models.Session, models.SaveOutcome, error) {
	outcome := models.SaveOutcome{Stage: models.StageValidating, Created: req.ID == ""}
	log := s.logger.With(zap.String("request_id", requestid.FromContext(ctx)), zap.String("session_id", req.ID), zap.String("class_id", req.ClassID))
	defer func() { s.metrics.RecordSessionSave(outcome) }()

	if err := s.validateSave(ctx, &req); err != nil {
		outcome.Stage = models.StageValidationFailed
		log.Info("session save rejected", zap.Error(err))
		return nil, outcome, err
	}

	outcome.Stage = models.StageResolvingVideos
	if err := ctx.Err(); err != nil {
		outcome.Stage = models.StageUploadFailed
		return nil, outcome, appErrors.Extend(appErrors.ErrUploadFailed, err, "save cancelled before videos were resolved")
	}
	urls := make([]string, 0, len(req.Videos))
	for i, video := range req.Videos {
		url, err := s.resolveVideo(ctx, video)
		if err != nil {
			outcome.Stage = models.StageUploadFailed
			log.Warn("video upload failed", zap.Int("index", i+1), zap.String("file", video.DisplayName), zap.Error(err))
			return nil, outcome, appErrors.Extend(appErrors.ErrUploadFailed, err,
				fmt.Sprintf("failed to upload video #%d (%s)", i+1, video.Label()))
		}
		if video.Kind == models.PendingVideoFile {
			outcome.Uploaded++
		}
		urls = append(urls, url)
	}

	urls = media.Normalize(urls)
	primary, children := media.Decompose(urls)

	outcome.Stage = models.StagePersistingParent
	if err := ctx.Err(); err != nil {
		outcome.Stage = models.StagePersistFailed
		return nil, outcome, appErrors.Extend(appErrors.ErrPersistFailed, err, "save cancelled before the session was written")
	}
	session := &models.Session{
		ID:          req.ID,
		ClassID:     req.ClassID,
		Title:       req.Title,
		Description: req.Description,
		VideoURL:    primary,
		PDFURL:      req.PDFURL,
		Date:        req.Date,
		AINotes:     req.AINotes,
		IsHighlight: req.IsHighlight,
	}
	if err := s.writeParent(ctx, session, outcome.Created); err != nil {
		outcome.Stage = models.StagePersistFailed
		log.Error("session write failed", zap.Error(err))
		return nil, outcome, err
	}

	outcome.Stage = models.StagePersistingChildren
	if !outcome.Created || len(children) > 0 {
		if err := s.sessions.ReplaceVideos(ctx, session.ID, children); err != nil {
			outcome.Stage = models.StagePersistFailed
			log.Error("session videos write failed", zap.String("session_id", session.ID), zap.Int("videos", len(children)), zap.Error(err))
			s.invalidate(ctx)
			return nil, outcome, appErrors.Extend(appErrors.ErrPersistFailed, err,
				fmt.Sprintf("session %q was saved but its %d additional video(s) could not be stored", session.Title, len(children)))
		}
	}

	outcome.Stage = models.StageDone
	s.invalidate(ctx)
	session.VideoURLs = urls
	session.EmbedURLs = media.EmbedURLs(urls)
	log.Info("session saved", zap.String("session_id", session.ID), zap.Int("videos", len(urls)), zap.Int("uploaded", outcome.Uploaded))
	return session, outcome, nil
}

func (s *SessionService) validateSave(ctx context.Context, req *models.SaveSessionRequest) error {
	req.ID = strings.TrimSpace(req.ID)
	req.ClassID = strings.TrimSpace(req.ClassID)
	req.Title = sanitize.PlainText(req.Title)
	req.Description = sanitize.PlainText(req.Description)
	req.AINotes = sanitize.PlainText(req.AINotes)
	req.Date = strings.TrimSpace(req.Date)
	req.PDFURL = strings.TrimSpace(req.PDFURL)

	if err := s.validator.Struct(req); err != nil {
		return validationError(err, describeSessionValidation(err))
	}
	if req.ID != "" {
		if err := checkRecordID(req.ID, "session not found"); err != nil {
			return err
		}
	}
	if len(req.Videos) == 0 {
		return appErrors.Clone(appErrors.ErrValidation, "at least one video is required")
	}
	for i := range req.Videos {
		v := &req.Videos[i]
		switch v.Kind {
		case models.PendingVideoLink:
			v.URL = strings.TrimSpace(v.URL)
			if v.URL == "" {
				return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("video #%d has an empty link", i+1))
			}
		case models.PendingVideoFile:
			if v.Open == nil || v.Size <= 0 {
				return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("video #%d (%s) is empty", i+1, v.DisplayName))
			}
		default:
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("video #%d has unknown kind %q", i+1, v.Kind))
		}
	}

	if _, err := s.classes.FindByID(ctx, req.ClassID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrValidation, "class does not exist")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	return nil
}

func describeSessionValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid session payload"
	}
	switch verrs[0].Field() {
	case "Title":
		return "title is required"
	case "ClassID":
		return "class is required"
	case "Date":
		return "date is required in YYYY-MM-DD format"
	case "PDFURL":
		return "pdf link must be a valid URL"
	default:
		return "invalid session payload"
	}
}

func (s *SessionService) resolveVideo(ctx context.Context, video models.PendingVideo) (string, error) {
	if video.Kind == models.PendingVideoLink {
		return video.URL, nil
	}
	rc, err := video.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer rc.Close() //nolint:errcheck

	url, err := s.blobs.Upload(ctx, video.DisplayName, rc)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(url) == "" {
		return "", errors.New("storage returned no URL")
	}
	return url, nil
}

func (s *SessionService) writeParent(ctx context.Context, session *models.Session, create bool) error {
	if create {
		if err := s.sessions.Insert(ctx, session); err != nil {
			return appErrors.Extend(appErrors.ErrPersistFailed, err, fmt.Sprintf("failed to create session %q", session.Title))
		}
		return nil
	}
	if err := s.sessions.Update(ctx, session); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return appErrors.Extend(appErrors.ErrPersistFailed, err, fmt.Sprintf("failed to update session %q", session.Title))
	}
	return nil
}

func (s *SessionService) invalidate(ctx context.Context) {
	s.cache.Invalidate(ctx, cache.Key("sessions", "*"))
}

// List returns all sessions, newest first.
func (s *SessionService) List(ctx context.Context) ([]models.Session, error) {
	key := cache.Key("sessions", "all")
	var sessions []models.Session
	if s.cache.Get(ctx, key, &sessions) {
		return sessions, nil
	}
	sessions, err := s.sessions.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sessions")
	}
	sessions = withEmbeds(sessions)
	s.cache.Set(ctx, key, sessions, 0)
	return sessions, nil
}

// Get returns one session.
func (s *SessionService) Get(ctx context.Context, id string) (*models.Session, error) {
	if err := checkRecordID(id, "session not found"); err != nil {
		return nil, err
	}
	session, err := s.sessions.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "session not found", "failed to load session")
	}
	session.EmbedURLs = media.EmbedURLs(session.VideoURLs)
	return session, nil
}

// ListByClass returns the sessions of a class whose month (YYYY-MM) is in
// months. An empty months list keeps every session.
func (s *SessionService) ListByClass(ctx context.Context, classID string, months []string) ([]models.Session, error) {
	sessions, err := s.classSessions(ctx, classID)
	if err != nil {
		return nil, err
	}
	if len(months) == 0 {
		return sessions, nil
	}
	keep := make(map[string]struct{}, len(months))
	for _, m := range months {
		keep[strings.TrimSpace(m)] = struct{}{}
	}
	filtered := make([]models.Session, 0, len(sessions))
	for _, session := range sessions {
		if _, ok := keep[session.Month()]; ok {
			filtered = append(filtered, session)
		}
	}
	return filtered, nil
}

// Months lists the distinct YYYY-MM months that have sessions in a class,
// most recent first.
func (s *SessionService) Months(ctx context.Context, classID string) ([]string, error) {
	sessions, err := s.classSessions(ctx, classID)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	months := make([]string, 0)
	for _, session := range sessions {
		m := session.Month()
		if m == "" {
			continue
		}
		if _, dup := seen[m]; dup {
			continue
		}
		seen[m] = struct{}{}
		months = append(months, m)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(months)))
	return months, nil
}

// Highlights returns the sessions flagged as highlights that have a video. If
// there are none it falls back to the latest limit sessions with a video,
// limit being at most MaxHighlightLimit.
func (s *SessionService) Highlights(ctx context.Context, limit int) ([]models.Session, error) {
	if limit <= 0 {
		limit = DefaultHighlightLimit
	}
	limit = min(limit, MaxHighlightLimit)
	sessions, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	highlights := make([]models.Session, 0)
	withVideo := make([]models.Session, 0, min(limit, len(sessions)))
	for _, session := range sessions {
		if len(session.VideoURLs) == 0 {
			continue
		}
		if session.IsHighlight {
			highlights = append(highlights, session)
		}
		if len(withVideo) < limit {
			withVideo = append(withVideo, session)
		}
	}
	if len(highlights) > 0 {
		return highlights, nil
	}
	return withVideo, nil
}

// Delete removes a session and its videos.
func (s *SessionService) Delete(ctx context.Context, id string) error {
	if err := checkRecordID(id, "session not found"); err != nil {
		return err
	}
	if err := s.sessions.Delete(ctx, id); err != nil {
		return storeError(err, "session not found", "failed to delete session")
	}
	s.invalidate(ctx)
	return nil
}

func (s *SessionService) classSessions(ctx context.Context, classID string) ([]models.Session, error) {
	if _, err := s.classes.FindByID(ctx, classID); err != nil {
		return nil, storeError(err, "class not found", "failed to load class")
	}
	sessions, err := s.sessions.ListByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list class sessions")
	}
	return withEmbeds(sessions), nil
}

func withEmbeds(sessions []models.Session) []models.Session {
	if sessions == nil {
		return []models.Session{}
	}
	for i := range sessions {
		sessions[i].EmbedURLs = media.EmbedURLs(sessions[i].VideoURLs)
	}
	return sessions
}
