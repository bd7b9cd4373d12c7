package common

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, k := range []string{
		"WATSONX_URL", "WATSONX_MODEL", "WATSONX_MAX_NEW_TOKENS",
		"WATSONX_TEMPERATURE", "WATSONX_TOP_P", "WATSONX_TOP_K",
		"WATSONX_TIMEOUT", "SCANNER_HTTP_ADDR",
	} {
		t.Setenv(k, "")
	}
	cfg := LoadConfig()

	assert.Equal(t, "https://us-south.ml.cloud.ibm.com", cfg.Watsonx.URL)
	assert.Equal(t, "meta-llama/llama-3-2-11b-vision-instruct", cfg.Watsonx.Model)
	assert.Equal(t, 500, cfg.Watsonx.MaxNewTokens)
	assert.Equal(t, float32(0.0), cfg.Watsonx.Temperature)
	assert.Equal(t, float32(1.0), cfg.Watsonx.TopP)
	assert.Equal(t, 50, cfg.Watsonx.TopK)
	assert.Equal(t, 60*time.Second, cfg.Watsonx.Timeout)
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("WATSONX_PROJECT_ID", "proj-123")
	t.Setenv("WATSONX_MAX_NEW_TOKENS", "800")
	t.Setenv("WATSONX_TIMEOUT", "90s")
	t.Setenv("SCANNER_HTTP_ADDR", ":9090")

	cfg := LoadConfig()
	assert.Equal(t, "proj-123", cfg.Watsonx.ProjectID)
	assert.Equal(t, 800, cfg.Watsonx.MaxNewTokens)
	assert.Equal(t, 90*time.Second, cfg.Watsonx.Timeout)
	assert.Equal(t, ":9090", cfg.Server.Addr)
}

func TestWatsonxConfigValidate(t *testing.T) {
	valid := WatsonxConfig{URL: "https://example.test", APIKey: "k", ProjectID: "p"}
	assert.NoError(t, valid.Validate())

	err := WatsonxConfig{URL: "https://example.test"}.Validate()
	require.Error(t, err)
	var appErr *AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "CONFIG_ERROR", appErr.Code)
	assert.Contains(t, appErr.Message, "WATSONX_APIKEY")
	assert.Contains(t, appErr.Message, "WATSONX_PROJECT_ID")
	assert.NotContains(t, appErr.Message, "WATSONX_URL")

	err = WatsonxConfig{APIKey: "  ", ProjectID: "p", URL: "u"}.Validate()
	require.Error(t, err)
}
