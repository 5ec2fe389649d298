package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestUserAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)

	newRouter := func(captured *uuid.UUID) *gin.Engine {
		router := gin.New()
		router.Use(UserAuth())
		router.GET("/test", func(c *gin.Context) {
			id, ok := GetUserID(c)
			assert.True(t, ok)
			*captured = id
			c.Status(http.StatusOK)
		})
		return router
	}

	t.Run("ValidHeaderSetsContext", func(t *testing.T) {
		var captured uuid.UUID
		userID := uuid.New()

		req, _ := http.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(UserIDHeader, userID.String())
		rr := httptest.NewRecorder()
		newRouter(&captured).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, userID, captured)
	})

	t.Run("MissingHeaderRejected", func(t *testing.T) {
		var captured uuid.UUID
		req, _ := http.NewRequest(http.MethodGet, "/test", nil)
		rr := httptest.NewRecorder()
		newRouter(&captured).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Contains(t, rr.Body.String(), "UNAUTHORIZED")
		assert.Equal(t, uuid.Nil, captured)
	})

	t.Run("MalformedHeaderRejected", func(t *testing.T) {
		var captured uuid.UUID
		req, _ := http.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(UserIDHeader, "not-a-uuid")
		rr := httptest.NewRecorder()
		newRouter(&captured).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Equal(t, uuid.Nil, captured)
	})
}

func TestGetUserID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("ReturnsIDFromContext", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		expected := uuid.New()
		c.Set(UserIDKey, expected)

		id, ok := GetUserID(c)
		assert.True(t, ok)
		assert.Equal(t, expected, id)
	})

	t.Run("ReturnsFalseWhenUnset", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		_, ok := GetUserID(c)
		assert.False(t, ok)
	})

	t.Run("ReturnsFalseOnWrongType", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Set(UserIDKey, "9f3c")
		_, ok := GetUserID(c)
		assert.False(t, ok)
	})
}

func TestAdminAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)

	newRouter := func(captured *uuid.UUID) *gin.Engine {
		router := gin.New()
		router.Use(AdminAuth())
		router.POST("/admin_test", func(c *gin.Context) {
			id, ok := GetAdminID(c)
			assert.True(t, ok)
			*captured = id
			c.Status(http.StatusOK)
		})
		return router
	}

	t.Run("ValidHeaderSetsContext", func(t *testing.T) {
		var captured uuid.UUID
		adminID := uuid.New()

		req, _ := http.NewRequest(http.MethodPost, "/admin_test", nil)
		req.Header.Set(AdminIDHeader, adminID.String())
		rr := httptest.NewRecorder()
		newRouter(&captured).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, adminID, captured)
	})

	t.Run("MissingHeaderRejected", func(t *testing.T) {
		var captured uuid.UUID
		req, _ := http.NewRequest(http.MethodPost, "/admin_test", nil)
		rr := httptest.NewRecorder()
		newRouter(&captured).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Contains(t, rr.Body.String(), "admin identity")
	})

	t.Run("UserHeaderDoesNotSatisfyAdminAuth", func(t *testing.T) {
		var captured uuid.UUID
		req, _ := http.NewRequest(http.MethodPost, "/admin_test", nil)
		req.Header.Set(UserIDHeader, uuid.New().String())
		rr := httptest.NewRecorder()
		newRouter(&captured).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}
