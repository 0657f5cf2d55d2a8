package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/gargarushee/VisualMemorySearch/internal/service"
)

func searchRouter(h *SearchHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/api/screenshots/search", h.Search)
	return r
}

func TestSearchEndpointRejectsBadBody(t *testing.T) {
	h := NewSearchHandler(service.NewSearchService(nil, nil, nil, 0, 0, 0, nil))
	r := searchRouter(h)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/screenshots/search", strings.NewReader("not json"))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status code = %d, want 400", w.Code)
	}
}

func TestSearchEndpointRejectsEmptyQuery(t *testing.T) {
	h := NewSearchHandler(service.NewSearchService(nil, nil, nil, 0, 0, 0, nil))
	r := searchRouter(h)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/screenshots/search", strings.NewReader(`{"query": "  "}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status code = %d, want 400", w.Code)
	}
}
