package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pe-portal-api/internal/models"
	"github.com/noah-isme/pe-portal-api/internal/service"
	appErrors "github.com/noah-isme/pe-portal-api/pkg/errors"
)

type stubValidator struct {
	claims *models.JWTClaims
	err    error
	token  string
}

func (s *stubValidator) ValidateToken(token string) (*models.JWTClaims, error) {
	s.token = token
	return s.claims, s.err
}

func newProtectedRouter(v TokenValidator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/private", JWT(v), RequireRoles(models.RoleTeacher), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func serve(r http.Handler, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAndRoles(t *testing.T) {
	teacher := &stubValidator{claims: &models.JWTClaims{Role: models.RoleTeacher}}
	r := newProtectedRouter(teacher)

	assert.Equal(t, http.StatusUnauthorized, serve(r, "/private", "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, "/private", "Token abc").Code)

	w := serve(r, "/private", "Bearer abc")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "abc", teacher.token)

	guest := newProtectedRouter(&stubValidator{claims: &models.JWTClaims{Role: models.RoleGuest}})
	assert.Equal(t, http.StatusForbidden, serve(guest, "/private", "Bearer abc").Code)

	invalid := newProtectedRouter(&stubValidator{err: appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")})
	assert.Equal(t, http.StatusUnauthorized, serve(invalid, "/private", "Bearer abc").Code)
}

func TestMetricsUsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()
	r := gin.New()
	r.Use(Metrics(metrics))
	r.GET("/sessions/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	serve(r, "/sessions/abc", "")
	serve(r, "/nowhere", "")
	serve(r, "/elsewhere", "")

	families, err := metrics.Registry().Gather()
	require.NoError(t, err)
	var found bool
	for _, f := range families {
		if f.GetName() == "http_requests_total" {
			found = true
			assert.Len(t, f.GetMetric(), 2)
		}
	}
	assert.True(t, found)

	count, err := testutil.GatherAndCount(metrics.Registry(), "http_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.RequestCounter().WithLabelValues(http.MethodGet, "unmatched", "404")))
}
