package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocs(t *testing.T) {
	spec := []byte("openapi: 3.0.3\n")
	serve := ServeSpec(spec)

	rec := httptest.NewRecorder()
	serve(rec, httptest.NewRequest(http.MethodGet, "/docs/openapi.yaml", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/yaml", rec.Header().Get("Content-Type"))
	assert.Equal(t, string(spec), rec.Body.String())
	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)

	rec = httptest.NewRecorder()
	ServeDocs("/docs/openapi.yaml")(rec, httptest.NewRequest(http.MethodGet, "/docs", nil))
	assert.Contains(t, rec.Body.String(), `url: "/docs/openapi.yaml"`)
	assert.Contains(t, rec.Body.String(), "Toko API Documentation")
}

func TestServeSpec_Revalidation(t *testing.T) {
	spec := []byte("openapi: 3.0.3\n")
	serve := ServeSpec(spec)

	first := httptest.NewRecorder()
	serve(first, httptest.NewRequest(http.MethodGet, "/docs/openapi.yaml", nil))
	etag := first.Header().Get("ETag")

	tests := []struct {
		name        string
		ifNoneMatch string
		wantStatus  int
	}{
		{"matching etag", etag, http.StatusNotModified},
		{"weak matching etag in list", `"other", W/` + etag, http.StatusNotModified},
		{"stale etag", `"deadbeef"`, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/docs/openapi.yaml", nil)
			req.Header.Set("If-None-Match", tt.ifNoneMatch)
			rec := httptest.NewRecorder()
			serve(rec, req)
			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusNotModified {
				assert.Empty(t, rec.Body.String())
			}
		})
	}

	changed := httptest.NewRecorder()
	ServeSpec([]byte("openapi: 3.1.0\n"))(changed, httptest.NewRequest(http.MethodGet, "/docs/openapi.yaml", nil))
	assert.NotEqual(t, etag, changed.Header().Get("ETag"))
}
