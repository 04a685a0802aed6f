package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guideline-agent/backend/internal/guidelines"
)

func guidelineApp(t *testing.T, files ...string) *fiber.App {
	t.Helper()
	dir := t.TempDir()
	for _, name := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("%PDF-1.4 test"), 0644))
	}

	handler := NewGuidelineHandler(guidelines.NewStore(dir, "/guidelines"))
	app := fiber.New()
	app.Get("/api/v1/guidelines", handler.ListGuidelines)
	app.Get("/guidelines/:file", handler.ServeGuideline)
	return app
}

func TestListGuidelines(t *testing.T) {
	app := guidelineApp(t, "asthma_pathway_ocr.pdf")

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/guidelines", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Guidelines []guidelines.Document `json:"guidelines"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Guidelines, 1)
	assert.Equal(t, "Asthma Pathway", body.Guidelines[0].Title)
	assert.Equal(t, "/guidelines/asthma_pathway_ocr.pdf", body.Guidelines[0].Link)
}

func TestListGuidelinesEmptyDirectory(t *testing.T) {
	app := guidelineApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/guidelines", nil), -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"guidelines": []}`, string(raw))
}

func TestServeGuideline(t *testing.T) {
	app := guidelineApp(t, "sepsis_bundle_ocr.pdf")

	t.Run("existing file streams back", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/guidelines/sepsis_bundle_ocr.pdf", nil), -1)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		raw, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Contains(t, string(raw), "%PDF-1.4")
	})

	t.Run("missing file is 404", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/guidelines/unknown.pdf", nil), -1)
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("hidden files are rejected", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/guidelines/.env", nil), -1)
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}
