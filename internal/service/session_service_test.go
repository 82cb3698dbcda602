package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pe-portal-api/internal/models"
	appErrors "github.com/noah-isme/pe-portal-api/pkg/errors"
)

type sessionFixture struct {
	svc      *SessionService
	sessions *fakeSessionRepo
	uploader *fakeUploader
	metrics  *MetricsService
	cache    *memoryCache
}

func newSessionFixture() *sessionFixture {
	f := &sessionFixture{
		sessions: newFakeSessionRepo(),
		uploader: &fakeUploader{},
		metrics:  NewMetricsService(),
		cache:    newMemoryCache(),
	}
	cacheSvc := NewCacheService(f.cache, f.metrics, 0, nil, true)
	f.svc = NewSessionService(f.sessions, newFakeClassRepo("c1"), f.uploader, cacheSvc, f.metrics, nil, nil)
	return f
}

func sessionRequest(videos ...models.PendingVideo) models.SaveSessionRequest {
	return models.SaveSessionRequest{
		ClassID: "c1",
		Title:   "Sprint drills",
		Date:    "2024-03-12",
		Videos:  videos,
	}
}

func TestSessionSaveCreatesWithOrderedVideos(t *testing.T) {
	f := newSessionFixture()

	req := sessionRequest(
		fileVideo("warmup.mp4", "aaa"),
		models.LinkVideo("  https://www.youtube.com/watch?v=abc  "),
		fileVideo("cooldown.mp4", "bbb"),
	)
	session, outcome, err := f.svc.Save(context.Background(), req)
	require.NoError(t, err)

	want := []string{
		"https://cdn.example/videos/warmup.mp4",
		"https://www.youtube.com/watch?v=abc",
		"https://cdn.example/videos/cooldown.mp4",
	}
	assert.Equal(t, want, session.VideoURLs)
	assert.Equal(t, want[0], session.VideoURL)
	assert.Len(t, session.EmbedURLs, 3)
	assert.Equal(t, models.StageDone, outcome.Stage)
	assert.Equal(t, 2, outcome.Uploaded)
	assert.True(t, outcome.Created)
	assert.Equal(t, []string{"warmup.mp4", "cooldown.mp4"}, f.uploader.calls)

	stored, err := f.sessions.FindByID(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, want, stored.VideoURLs)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.sessionSaves.WithLabelValues("done")))
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.videoUploads))
}

func TestSessionSaveSingleVideoSkipsChildren(t *testing.T) {
	f := newSessionFixture()

	session, _, err := f.svc.Save(context.Background(), sessionRequest(models.LinkVideo("https://a.example/v")))
	require.NoError(t, err)

	assert.Equal(t, []string{"https://a.example/v"}, session.VideoURLs)
	assert.Equal(t, 0, f.sessions.replaceCall)
}

func TestSessionSaveUploadFailureWritesNothing(t *testing.T) {
	f := newSessionFixture()
	f.uploader.failOn = map[string]error{"b.mp4": errors.New("quota exceeded")}

	req := sessionRequest(fileVideo("a.mp4", "1"), fileVideo("b.mp4", "2"), fileVideo("c.mp4", "3"))
	session, outcome, err := f.svc.Save(context.Background(), req)

	require.Error(t, err)
	assert.Nil(t, session)
	assert.ErrorIs(t, err, appErrors.ErrUploadFailed)
	assert.Contains(t, err.Error(), "video #2 (b.mp4)")
	assert.Equal(t, models.StageUploadFailed, outcome.Stage)
	assert.Equal(t, 1, outcome.Uploaded)
	assert.Equal(t, []string{"a.mp4", "b.mp4"}, f.uploader.calls)
	assert.Zero(t, f.sessions.parentWrites())
	assert.Zero(t, f.sessions.replaceCall)
}

func TestSessionSaveEmptyUploadURLFails(t *testing.T) {
	f := newSessionFixture()
	f.uploader.empty = map[string]bool{"a.mp4": true}

	_, outcome, err := f.svc.Save(context.Background(), sessionRequest(fileVideo("a.mp4", "1")))
	assert.ErrorIs(t, err, appErrors.ErrUploadFailed)
	assert.Equal(t, models.StageUploadFailed, outcome.Stage)
	assert.Zero(t, f.sessions.parentWrites())
}

func TestSessionSaveEditRemovesMiddleVideo(t *testing.T) {
	f := newSessionFixture()
	ctx := context.Background()

	created, _, err := f.svc.Save(ctx, sessionRequest(
		models.LinkVideo("https://v.example/A"),
		models.LinkVideo("https://v.example/B"),
		models.LinkVideo("https://v.example/C"),
	))
	require.NoError(t, err)

	edit := sessionRequest(models.LinkVideo("https://v.example/A"), models.LinkVideo("https://v.example/C"))
	edit.ID = created.ID
	updated, outcome, err := f.svc.Save(ctx, edit)
	require.NoError(t, err)
	assert.False(t, outcome.Created)
	assert.Equal(t, []string{"https://v.example/A", "https://v.example/C"}, updated.VideoURLs)

	stored, err := f.svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://v.example/A", "https://v.example/C"}, stored.VideoURLs)
}

func TestSessionSaveShrinkToOneClearsChildren(t *testing.T) {
	f := newSessionFixture()
	ctx := context.Background()

	created, _, err := f.svc.Save(ctx, sessionRequest(
		models.LinkVideo("https://v.example/A"),
		models.LinkVideo("https://v.example/B"),
	))
	require.NoError(t, err)

	edit := sessionRequest(models.LinkVideo("https://v.example/B"))
	edit.ID = created.ID
	_, _, err = f.svc.Save(ctx, edit)
	require.NoError(t, err)

	stored, err := f.svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://v.example/B"}, stored.VideoURLs)
}

func TestSessionSaveNormalizesDuplicates(t *testing.T) {
	f := newSessionFixture()

	session, _, err := f.svc.Save(context.Background(), sessionRequest(
		models.LinkVideo("https://v.example/A"),
		models.LinkVideo("https://v.example/A"),
		models.LinkVideo("https://v.example/B"),
	))
	require.NoError(t, err)
	assert.Equal(t, []string{"https://v.example/A", "https://v.example/B"}, session.VideoURLs)
	assert.Equal(t, []string{"https://v.example/B"}, f.sessions.children[session.ID])
}

func TestSessionSaveValidation(t *testing.T) {
	cases := map[string]func(*models.SaveSessionRequest){
		"no videos":      func(r *models.SaveSessionRequest) { r.Videos = nil },
		"blank title":    func(r *models.SaveSessionRequest) { r.Title = "   " },
		"bad date":       func(r *models.SaveSessionRequest) { r.Date = "12/03/2024" },
		"unknown class":  func(r *models.SaveSessionRequest) { r.ClassID = "missing" },
		"blank link":     func(r *models.SaveSessionRequest) { r.Videos = []models.PendingVideo{models.LinkVideo(" ")} },
		"empty file":     func(r *models.SaveSessionRequest) { r.Videos = []models.PendingVideo{fileVideo("x.mp4", "")} },
		"markup title":   func(r *models.SaveSessionRequest) { r.Title = "<b></b>" },
		"invalid pdfurl": func(r *models.SaveSessionRequest) { r.PDFURL = "not a url" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			f := newSessionFixture()
			req := sessionRequest(fileVideo("a.mp4", "1"))
			mutate(&req)

			_, outcome, err := f.svc.Save(context.Background(), req)
			assert.ErrorIs(t, err, appErrors.ErrValidation)
			assert.Equal(t, models.StageValidationFailed, outcome.Stage)
			assert.Empty(t, f.uploader.calls)
			assert.Zero(t, f.sessions.parentWrites())
		})
	}
}

func TestSessionSaveChildFailureKeepsParent(t *testing.T) {
	f := newSessionFixture()
	f.sessions.replaceErr = errors.New("connection reset")

	_, outcome, err := f.svc.Save(context.Background(), sessionRequest(
		models.LinkVideo("https://v.example/A"),
		models.LinkVideo("https://v.example/B"),
	))
	assert.ErrorIs(t, err, appErrors.ErrPersistFailed)
	assert.Equal(t, models.StagePersistFailed, outcome.Stage)
	assert.Equal(t, 1, f.sessions.inserts)
	assert.Len(t, f.sessions.parents, 1)
}

func TestSessionSaveParentFailure(t *testing.T) {
	f := newSessionFixture()
	f.sessions.insertErr = errors.New("disk full")

	_, outcome, err := f.svc.Save(context.Background(), sessionRequest(models.LinkVideo("https://v.example/A")))
	assert.ErrorIs(t, err, appErrors.ErrPersistFailed)
	assert.Equal(t, models.StagePersistFailed, outcome.Stage)
	assert.Zero(t, f.sessions.replaceCall)
}

func TestSessionSaveUpdateMissing(t *testing.T) {
	f := newSessionFixture()
	req := sessionRequest(models.LinkVideo("https://v.example/A"))
	req.ID = uuid.NewString()

	_, outcome, err := f.svc.Save(context.Background(), req)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	assert.Equal(t, models.StagePersistFailed, outcome.Stage)
}

func TestSessionMalformedIDIsNotFound(t *testing.T) {
	f := newSessionFixture()
	ctx := context.Background()

	req := sessionRequest(fileVideo("a.mp4", "1"))
	req.ID = "abc"
	_, outcome, err := f.svc.Save(ctx, req)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	assert.Equal(t, models.StageValidationFailed, outcome.Stage)
	assert.Empty(t, f.uploader.calls)
	assert.Zero(t, f.sessions.parentWrites())

	_, err = f.svc.Get(ctx, "abc")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	assert.ErrorIs(t, f.svc.Delete(ctx, "abc"), appErrors.ErrNotFound)
}

func TestSessionSaveCancelledBeforeUpload(t *testing.T) {
	f := newSessionFixture()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, outcome, err := f.svc.Save(ctx, sessionRequest(fileVideo("a.mp4", "1")))
	assert.Error(t, err)
	assert.Equal(t, models.StageUploadFailed, outcome.Stage)
	assert.Empty(t, f.uploader.calls)
	assert.Zero(t, f.sessions.parentWrites())
}

func TestSessionListIsCachedAndInvalidatedOnSave(t *testing.T) {
	f := newSessionFixture()
	ctx := context.Background()

	_, _, err := f.svc.Save(ctx, sessionRequest(models.LinkVideo("https://v.example/A")))
	require.NoError(t, err)

	first, err := f.svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Contains(t, f.cache.entries, "pe-portal:sessions:all")

	_, _, err = f.svc.Save(ctx, sessionRequest(models.LinkVideo("https://v.example/B")))
	require.NoError(t, err)
	assert.NotContains(t, f.cache.entries, "pe-portal:sessions:all")

	second, err := f.svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, second, 2)
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.cacheLookups.WithLabelValues("miss")))

	_, err = f.svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.cacheLookups.WithLabelValues("hit")))
}

func TestSessionHighlights(t *testing.T) {
	f := newSessionFixture()
	ctx := context.Background()

	for _, url := range []string{"https://v.example/1", "https://v.example/2", "https://v.example/3"} {
		_, _, err := f.svc.Save(ctx, sessionRequest(models.LinkVideo(url)))
		require.NoError(t, err)
	}

	fallback, err := f.svc.Highlights(ctx, 2)
	require.NoError(t, err)
	require.Len(t, fallback, 2)
	assert.Equal(t, "https://v.example/3", fallback[0].VideoURL)

	flagged := sessionRequest(models.LinkVideo("https://v.example/star"))
	flagged.IsHighlight = true
	_, _, err = f.svc.Save(ctx, flagged)
	require.NoError(t, err)

	highlights, err := f.svc.Highlights(ctx, 0)
	require.NoError(t, err)
	require.Len(t, highlights, 1)
	assert.True(t, highlights[0].IsHighlight)
}

func TestSessionHighlightsClampsLimit(t *testing.T) {
	f := newSessionFixture()
	ctx := context.Background()

	highlights, err := f.svc.Highlights(ctx, 1<<50)
	require.NoError(t, err)
	assert.Empty(t, highlights)

	for i := 0; i < MaxHighlightLimit+5; i++ {
		_, _, err := f.svc.Save(ctx, sessionRequest(models.LinkVideo(fmt.Sprintf("https://v.example/%d", i))))
		require.NoError(t, err)
	}

	require.NotPanics(t, func() { highlights, err = f.svc.Highlights(ctx, 1<<50) })
	require.NoError(t, err)
	assert.Len(t, highlights, MaxHighlightLimit)
}

func TestSessionMonthsAndFilter(t *testing.T) {
	f := newSessionFixture()
	ctx := context.Background()

	for _, date := range []string{"2024-01-10", "2024-03-02", "2024-01-25"} {
		req := sessionRequest(models.LinkVideo("https://v.example/" + date))
		req.Date = date
		_, _, err := f.svc.Save(ctx, req)
		require.NoError(t, err)
	}

	months, err := f.svc.Months(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-03", "2024-01"}, months)

	january, err := f.svc.ListByClass(ctx, "c1", []string{"2024-01"})
	require.NoError(t, err)
	assert.Len(t, january, 2)

	all, err := f.svc.ListByClass(ctx, "c1", nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	_, err = f.svc.Months(ctx, "missing")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestSessionDelete(t *testing.T) {
	f := newSessionFixture()
	ctx := context.Background()

	session, _, err := f.svc.Save(ctx, sessionRequest(models.LinkVideo("https://v.example/A")))
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, session.ID))
	assert.ErrorIs(t, f.svc.Delete(ctx, session.ID), appErrors.ErrNotFound)
}
