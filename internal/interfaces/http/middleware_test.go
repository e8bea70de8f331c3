package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plantops/workdesk/internal/application/port"
	"github.com/plantops/workdesk/internal/application/service"
	"github.com/plantops/workdesk/pkg/utils"
)

const testSecret = "test-secret"

func authedRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(authMiddleware(AuthConfig{Secret: testSecret, Issuer: "workdesk"}, utils.NewTestLogger()))
	router.GET("/whoami", func(c *gin.Context) {
		actor, ok := currentActor(c)
		require.True(t, ok)
		respondOK(c, gin.H{"id": actor.ID, "roles": actor.Roles})
	})
	return router
}

func signToken(t *testing.T, secret, issuer string) string {
	t.Helper()
	claims := ActorClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "emp-1",
			Issuer:    issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Email: "emp@plant.example",
		Name:  "Employee",
		Roles: []string{"employee"},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestAuthMiddleware_MissingTokenRejected(t *testing.T) {
	router := authedRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddleware_ValidTokenSetsActor(t *testing.T) {
	router := authedRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, "workdesk"))
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "emp-1", data["id"])
}

func TestAuthMiddleware_WrongSignatureRejected(t *testing.T) {
	router := authedRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "other-secret", "workdesk"))
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddleware_WrongIssuerRejected(t *testing.T) {
	router := authedRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, "someone-else"))
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRespondError_StatusMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{"not found", service.ErrNotFound, http.StatusNotFound, "not found"},
		{"unauthorized", service.ErrUnauthorized, http.StatusForbidden, "unauthorized"},
		{"cannot cancel", service.ErrCannotCancel, http.StatusConflict, "cannot cancel"},
		{"vacancy", service.ErrVacancyRequired, http.StatusConflict, "vacancy_required"},
		{"invalid status", service.ErrInvalidStatus, http.StatusConflict, "invalid status"},
		{"version conflict", port.ErrVersionConflict, http.StatusConflict, "version conflict"},
		{"unexpected", assert.AnError, http.StatusInternalServerError, "internal error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			respondError(c, tt.err)

			assert.Equal(t, tt.status, w.Code)

			var resp Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			assert.Equal(t, tt.body, resp.Error)
		})
	}
}

func TestListFilterFromQuery_DateRange(t *testing.T) {
	gin.SetMode(gin.TestMode)

	newCtx := func(rawQuery string) *gin.Context {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/?"+rawQuery, nil)
		return c
	}

	t.Run("binds from and to", func(t *testing.T) {
		filter := listFilterFromQuery(newCtx("from=2026-03-01&to=2026-03-14"))

		require.NotNil(t, filter.From)
		require.NotNil(t, filter.To)
		assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), *filter.From)
		// The to day itself stays inside the range
		assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), *filter.To)
	})

	t.Run("malformed dates are ignored", func(t *testing.T) {
		filter := listFilterFromQuery(newCtx("from=yesterday&to=14.03.2026"))

		assert.Nil(t, filter.From)
		assert.Nil(t, filter.To)
	})

	t.Run("combines with the other parameters", func(t *testing.T) {
		filter := listFilterFromQuery(newCtx("search=paint&status=draft&status=closed&limit=50&from=2026-03-01"))

		assert.Equal(t, "paint", filter.Search)
		assert.Equal(t, []string{"draft", "closed"}, filter.Statuses)
		assert.Equal(t, 50, filter.Limit)
		require.NotNil(t, filter.From)
		assert.Nil(t, filter.To)
	})
}
