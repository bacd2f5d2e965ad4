package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/internal/service"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
	"github.com/noah-isme/timetable-api/pkg/logger"
)

type tokenValidatorStub struct {
	claims *models.JWTClaims
	err    error
}

func (s tokenValidatorStub) ValidateToken(string) (*models.JWTClaims, error) {
	return s.claims, s.err
}

func newProtectedRouter(validator TokenValidator, extra ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	handlers := append([]gin.HandlerFunc{JWT(validator)}, extra...)
	handlers = append(handlers, func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(logger.CollegeKey))
	})
	router.GET("/", handlers...)
	return router
}

func serve(router *gin.Engine, header string) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	router.ServeHTTP(recorder, req)
	return recorder
}

func TestJWTRequiresHeader(t *testing.T) {
	router := newProtectedRouter(tokenValidatorStub{})
	assert.Equal(t, http.StatusUnauthorized, serve(router, "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(router, "Token abc").Code)
}

func TestJWTRejectsInvalidToken(t *testing.T) {
	router := newProtectedRouter(tokenValidatorStub{err: appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")})
	assert.Equal(t, http.StatusUnauthorized, serve(router, "Bearer broken").Code)
}

func TestJWTStoresClaimsAndCollege(t *testing.T) {
	claims := &models.JWTClaims{UserID: "user-1", Role: models.RoleAdmin, CollegeID: "college-1"}
	router := newProtectedRouter(tokenValidatorStub{claims: claims})

	recorder := serve(router, "Bearer good")
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "college-1", recorder.Body.String())
}

func TestRBACAllowsListedRoles(t *testing.T) {
	admin := &models.JWTClaims{UserID: "user-1", Role: models.RoleAdmin, CollegeID: "college-1"}
	student := &models.JWTClaims{UserID: "user-2", Role: models.RoleStudent, CollegeID: "college-1"}

	allowed := newProtectedRouter(tokenValidatorStub{claims: admin}, RequireRoles(models.RoleAdmin, models.RoleSuperAdmin))
	assert.Equal(t, http.StatusOK, serve(allowed, "Bearer t").Code)

	denied := newProtectedRouter(tokenValidatorStub{claims: student}, RequireRoles(models.RoleAdmin, models.RoleSuperAdmin))
	assert.Equal(t, http.StatusForbidden, serve(denied, "Bearer t").Code)
}

func TestRBACWithoutClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/", RBAC(string(models.RoleAdmin)), func(c *gin.Context) { c.Status(http.StatusOK) })
	assert.Equal(t, http.StatusUnauthorized, serve(router, "").Code)
}

func TestRequireCollege(t *testing.T) {
	unscoped := &models.JWTClaims{UserID: "user-1", Role: models.RoleAdmin}
	router := newProtectedRouter(tokenValidatorStub{claims: unscoped}, RequireCollege())
	assert.Equal(t, http.StatusForbidden, serve(router, "Bearer t").Code)
}

func TestResponseMetaRecordsCacheHit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var meta map[string]interface{}
	router := gin.New()
	router.Use(WithResponseMeta())
	router.GET("/", func(c *gin.Context) {
		SetCacheHit(c, true)
		meta = ExtractMeta(c)
		c.Status(http.StatusOK)
	})

	serve(router, "")
	require.NotNil(t, meta)
	assert.Equal(t, true, meta["cache_hit"])
	assert.Contains(t, meta, "processing_time_ms")
}

func TestMetricsObservesRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()
	router := gin.New()
	router.Use(Metrics(metrics))
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	serve(router, "")
	serve(router, "")
	assert.EqualValues(t, 2, metrics.Snapshot().RequestsTotal)
}

func TestMetricsSkipsHealthPaths(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()
	router := gin.New()
	router.Use(Metrics(metrics, "/health", "/metrics"))
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/timetable", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, path := range []string{"/health", "/timetable", "/nowhere"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}
	assert.EqualValues(t, 2, metrics.Snapshot().RequestsTotal)
}
