package middlewares

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"bitbucket.org/paradixe/oit_backend/utils"
	"github.com/gin-gonic/gin"
)

func authTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(AuthMiddleware())
	router.GET("/claims", func(c *gin.Context) {
		claims := CtxValue(c.Request.Context())
		if claims == nil {
			c.JSON(http.StatusOK, gin.H{"id": 0})
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": claims.ID, "role": claims.Role})
	})
	return router
}

func performAuthRequest(t *testing.T, header string) *httptest.ResponseRecorder {
	t.Helper()
	request := httptest.NewRequest(http.MethodGet, "/claims", nil)
	if header != "" {
		request.Header.Set("Authorization", header)
	}
	recorder := httptest.NewRecorder()
	authTestRouter().ServeHTTP(recorder, request)
	return recorder
}

func TestAuthMiddlewareRejectsMalformedHeader(t *testing.T) {
	// headers shorter than the scheme prefix must 401, not panic
	for _, header := range []string{"x", "Bearer", "Basic abc", "bearer token"} {
		recorder := performAuthRequest(t, header)
		if recorder.Code != http.StatusUnauthorized {
			t.Errorf("header %q: status = %d, want %d", header, recorder.Code, http.StatusUnauthorized)
		}
	}
}

func TestAuthMiddlewareRejectsInvalidToken(t *testing.T) {
	recorder := performAuthRequest(t, "Bearer not-a-jwt")
	if recorder.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", recorder.Code, http.StatusUnauthorized)
	}
}

func TestAuthMiddlewarePassesWithoutHeader(t *testing.T) {
	recorder := performAuthRequest(t, "")
	if recorder.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", recorder.Code, http.StatusOK)
	}
}

func TestAuthMiddlewareAcceptsValidToken(t *testing.T) {
	token, err := utils.JwtGenerate(7, "admin")
	if err != nil {
		t.Fatal(err)
	}

	recorder := performAuthRequest(t, "Bearer "+token)
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", recorder.Code, http.StatusOK)
	}
	if body := recorder.Body.String(); !strings.Contains(body, `"id":7`) || !strings.Contains(body, `"role":"admin"`) {
		t.Errorf("claims not propagated: %s", body)
	}
}
