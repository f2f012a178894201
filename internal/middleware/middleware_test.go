package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/javajoker/tink-backend/internal/utils"
)

func newEngine(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	chain := append([]gin.HandlerFunc{I18nMiddleware()}, handlers...)
	chain = append(chain, func(c *gin.Context) {
		id, _ := utils.GetUserIDFromContext(c)
		role, _ := utils.GetRoleFromContext(c)
		c.JSON(http.StatusOK, gin.H{"id": id, "role": role, "lang": utils.GetLangFromContext(c)})
	})
	r.GET("/x", chain...)
	return r
}

func TestAuthRequired(t *testing.T) {
	utils.SetJWTSecret("middleware-secret")
	r := newEngine(AuthRequired(), RoleRequired("manager", "admin"))

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"malformed", "Token abc", http.StatusUnauthorized},
		{"garbage", "Bearer abc", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/x", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.status, w.Code)
		})
	}

	landlord, err := utils.GenerateJWT(3, "L", "landlord", 1)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Bearer "+landlord)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	manager, err := utils.GenerateJWT(4, "M", "manager", 1)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Bearer "+manager)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":4,"role":"manager","lang":"en"}`, w.Body.String())
}

func TestPreferredLanguage(t *testing.T) {
	assert.Equal(t, "en", preferredLanguage(""))
	assert.Equal(t, "es", preferredLanguage("es-MX,es;q=0.9,en;q=0.8"))
	assert.Equal(t, "es", preferredLanguage("es_ES"))
	assert.Equal(t, "en", preferredLanguage("fr-FR"))
}

func TestRateLimiterBlocksAfterBurst(t *testing.T) {
	rl := NewRateLimiter(rate.Every(time.Minute), 2)
	r := newEngine(rl.Middleware())

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{200, 200, 429}, codes)
}

func TestExtractResource(t *testing.T) {
	assert.Equal(t, "applications", extractResourceType("/v1/applications/12/actions/shortlist"))
	assert.Equal(t, "payments", extractResourceType("/v1/tenant/payments"))
	id := extractResourceID("/v1/applications/12/actions/shortlist")
	require.NotNil(t, id)
	assert.Equal(t, int64(12), *id)
	assert.Nil(t, extractResourceID("/v1/board"))
}
