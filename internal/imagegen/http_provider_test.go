package imagegen

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nft-marketplace/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0, 0, 0, 0}

func TestHTTPProvider_Generate(t *testing.T) {
	var got inferenceRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/stabilityai/sdxl", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte("jpegbytes"))
	}))
	defer srv.Close()

	p := NewHTTPProvider(srv.URL+"/", "tok", srv.Client())
	blob, err := p.Generate(context.Background(), "stabilityai/sdxl", "a cosmic cat")
	require.NoError(t, err)

	assert.Equal(t, "a cosmic cat", got.Inputs)
	assert.Equal(t, 20, got.Parameters.NumInferenceSteps)
	assert.Equal(t, 7.5, got.Parameters.GuidanceScale)

	assert.Equal(t, "stabilityai/sdxl", blob.Provider)
	assert.Equal(t, "image/jpeg", blob.ContentType)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("jpegbytes")), blob.Base64)
	assert.Equal(t, "data:image/jpeg;base64,"+blob.Base64, blob.DataURI())
}

func TestHTTPProvider_SniffsContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write(pngHeader)
	}))
	defer srv.Close()

	blob, err := NewHTTPProvider(srv.URL, "tok", nil).Generate(context.Background(), "m", "prompt")
	require.NoError(t, err)
	assert.Equal(t, "image/png", blob.ContentType)
}

func TestHTTPProvider_CapturesErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":"Model is currently loading"}`))
	}))
	defer srv.Close()

	_, err := NewHTTPProvider(srv.URL, "tok", nil).Generate(context.Background(), "m", "prompt")
	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, http.StatusServiceUnavailable, perr.StatusCode)
	assert.Contains(t, perr.Body, "currently loading")
}

func TestHTTPProvider_RequiresToken(t *testing.T) {
	_, err := NewHTTPProvider("http://localhost", "", nil).Generate(context.Background(), "m", "prompt")
	assert.ErrorIs(t, err, models.ErrConfigurationMissing)
	assert.Contains(t, err.Error(), "IMAGE_API_TOKEN")
}
