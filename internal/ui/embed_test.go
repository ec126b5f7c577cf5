package ui

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", path, nil))
	return w
}

func TestHandler(t *testing.T) {
	h, err := Handler(Config{APIURL: "http://localhost:8000/api", Days: 14})
	require.NoError(t, err)

	w := serve(t, h, "/")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "AI Review Feedback")

	w = serve(t, h, "/app.js")
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(t, h, "/config.js")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"apiUrl":"http://localhost:8000/api"`)
	assert.Contains(t, w.Body.String(), `"days":14`)
}

func TestHandler_SPAFallback(t *testing.T) {
	h, err := Handler(Config{})
	require.NoError(t, err)

	w := serve(t, h, "/reviews/123")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "AI Review Feedback")

	w = serve(t, h, "/missing.js")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_DefaultAPIURL(t *testing.T) {
	h, err := Handler(Config{})
	require.NoError(t, err)
	w := serve(t, h, "/config.js")
	assert.Contains(t, w.Body.String(), `"apiUrl":"/api"`)
}
