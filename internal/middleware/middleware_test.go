package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-system-api/internal/models"
	"github.com/noah-isme/course-system-api/internal/service"
)

func newAuthRouter(auth *service.AuthService, roles ...models.UserRole) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/secure", JWT(auth), RequireRoles(roles...), func(c *gin.Context) {
		claims := c.MustGet(ContextUserKey).(*models.JWTClaims)
		c.String(http.StatusOK, claims.UserID)
	})
	return router
}

func bearer(t *testing.T, auth *service.AuthService, role models.UserRole) string {
	t.Helper()
	token, _, err := auth.IssueToken(&models.User{ID: "u1", Role: role})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return "Bearer " + token
}

func TestJWTRejectsMissingAndMalformedHeaders(t *testing.T) {
	auth := service.NewAuthService(nil, service.AuthConfig{AccessTokenSecret: "secret"})
	router := newAuthRouter(auth, models.RoleTeacher)

	for _, header := range []string{"", "Token abc", "Bearer not-a-jwt"} {
		recorder := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/secure", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		router.ServeHTTP(recorder, req)
		assert.Equal(t, http.StatusUnauthorized, recorder.Code, "header %q", header)
	}
}

func TestRequireRolesAllowsListedRoles(t *testing.T) {
	auth := service.NewAuthService(nil, service.AuthConfig{AccessTokenSecret: "secret"})
	router := newAuthRouter(auth, models.RoleAdmin, models.RoleTeacher)

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.Header.Set("Authorization", bearer(t, auth, models.RoleTeacher))
	router.ServeHTTP(recorder, req)
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "u1", recorder.Body.String())

	recorder = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.Header.Set("Authorization", bearer(t, auth, models.RoleStudent))
	router.ServeHTTP(recorder, req)
	assert.Equal(t, http.StatusForbidden, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "FORBIDDEN")
}

func requestLabels(t *testing.T, metrics *service.MetricsService) []map[string]string {
	t.Helper()
	families, err := metrics.Registry().Gather()
	require.NoError(t, err)
	var series []map[string]string
	for _, family := range families {
		if family.GetName() != "http_requests_total" {
			continue
		}
		for _, metric := range family.GetMetric() {
			labels := map[string]string{}
			for _, pair := range metric.GetLabel() {
				labels[pair.GetName()] = pair.GetValue()
			}
			series = append(series, labels)
		}
	}
	return series
}

func TestMetricsLabelsRouteTemplateAndRole(t *testing.T) {
	gin.SetMode(gin.TestMode)
	auth := service.NewAuthService(nil, service.AuthConfig{AccessTokenSecret: "secret"})
	metrics := service.NewMetricsService()
	router := gin.New()
	router.Use(Metrics(metrics))
	router.GET("/courses/:id", JWT(auth), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodGet, "/courses/42", nil)
	req.Header.Set("Authorization", bearer(t, auth, models.RoleTeacher))
	router.ServeHTTP(httptest.NewRecorder(), req)

	series := requestLabels(t, metrics)
	require.Len(t, series, 1)
	assert.Equal(t, map[string]string{"method": "GET", "route": "/courses/:id", "role": "TEACHER", "status": "204"}, series[0])
}

func TestMetricsCollapsesUnmatchedPaths(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()
	router := gin.New()
	router.Use(Metrics(metrics))

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/wp-login.php", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/.env", nil))

	count, err := testutil.GatherAndCount(metrics.Registry(), "http_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	series := requestLabels(t, metrics)
	assert.Equal(t, "unmatched", series[0]["route"])
	assert.Equal(t, "anonymous", series[0]["role"])
}
