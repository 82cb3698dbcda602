package service

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pe-portal-api/internal/models"
)

func TestMetricsServiceRecordsDomainCounters(t *testing.T) {
	m := NewMetricsService()

	m.RecordSessionSave(models.SaveOutcome{Stage: models.StageUploadFailed, Uploaded: 1})
	m.RecordSessionSave(models.SaveOutcome{Stage: models.StageDone, Uploaded: 2})
	m.RecordMergeRows(2, 3, 1)
	m.ObserveAIRequest("extract_grades", errors.New("boom"), time.Second)
	m.ObserveHTTPRequest(http.MethodGet, "/api/v1/sessions", http.StatusOK, 10*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.sessionSaves.WithLabelValues("upload_failed")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.videoUploads))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.mergeRows.WithLabelValues("updated")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.aiRequests.WithLabelValues("extract_grades", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestTotal.WithLabelValues("GET", "/api/v1/sessions", "200")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "session_saves_total")
}

func TestMetricsServiceNilSafe(t *testing.T) {
	var m *MetricsService
	assert.NotPanics(t, func() {
		m.RecordSessionSave(models.SaveOutcome{Stage: models.StageDone})
		m.RecordMergeRows(1, 1, 1)
		m.ObserveAIRequest("x", nil, time.Second)
		m.ObserveHTTPRequest("GET", "/", 200, time.Second)
	})
	assert.Nil(t, m.Registry())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
