package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func setupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(ExtractToken())
	router.GET("/open", func(c *gin.Context) {
		token, _ := GetToken(c)
		c.String(http.StatusOK, token)
	})
	router.GET("/closed", RequireToken(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return router
}

func TestExtractToken(t *testing.T) {
	router := setupRouter()
	cases := map[string]string{
		"Bearer abc":     "abc",
		"bearer  xyz ":   "xyz",
		"Basic dXNlcjo=": "",
		"":               "",
	}
	for header, want := range cases {
		req := httptest.NewRequest(http.MethodGet, "/open", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Body.String() != want {
			t.Errorf("header %q: expected token %q, got %q", header, want, w.Body.String())
		}
	}
}

func TestRequireToken(t *testing.T) {
	router := setupRouter()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/closed", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/closed", nil)
	req.Header.Set("Authorization", "Bearer abc")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Errorf("expected status 204, got %d", w.Code)
	}
}
