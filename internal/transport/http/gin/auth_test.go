package httpgin

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret, sub string, staff bool) string {
	t.Helper()

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   sub,
		"staff": staff,
	})
	s, err := tok.SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func authedEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/me", Authenticate(testSecret), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": userID(c)})
	})
	r.POST("/staff-only", Authenticate(testSecret), RequireStaff(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func TestAuthenticate_MissingToken(t *testing.T) {
	r := authedEngine()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthenticate_WrongSecret(t *testing.T) {
	r := authedEngine()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "other-secret", "7", false))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthenticate_NonNumericSubject(t *testing.T) {
	r := authedEngine()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, "alice", false))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthenticate_ValidToken(t *testing.T) {
	r := authedEngine()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, "42", false))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":42}`, w.Body.String())
}

func TestRequireStaff_Forbidden(t *testing.T) {
	r := authedEngine()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/staff-only", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, "42", false))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequireStaff_Allowed(t *testing.T) {
	r := authedEngine()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/staff-only", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, "42", true))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
}
