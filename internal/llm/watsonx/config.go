package watsonx

import (
	"log/slog"
	"net/http"
	"os"
	"time"
)

// SupportedModels enumerates the vision-capable model ids the service is
// known to host. Unknown ids are still sent through with a warning so newer
// models work without a code change.
var SupportedModels = []string{
	"meta-llama/llama-3-2-11b-vision-instruct",
	"meta-llama/llama-3-2-90b-vision-instruct",
}

// IsSupportedModel reports whether the model id is in the known catalog.
func IsSupportedModel(id string) bool {
	for _, m := range SupportedModels {
		if m == id {
			return true
		}
	}
	return false
}

// Config for the watsonx.ai chat client.
type Config struct {
	URL          string // service endpoint, e.g. https://us-south.ml.cloud.ibm.com
	APIKey       string // if empty, falls back to env WATSONX_APIKEY
	ProjectID    string
	Model        string
	MaxNewTokens int
	Temperature  float32 // forced low: the task is extractive, not creative
	TopP         float32
	TopK         int
	Timeout      time.Duration // http client timeout, the only blocking bound
}

type Client struct {
	cfg  Config
	http *http.Client
	log  *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("WATSONX_APIKEY")
	}
	if cfg.URL == "" {
		cfg.URL = "https://us-south.ml.cloud.ibm.com"
	}
	if cfg.Model == "" {
		cfg.Model = SupportedModels[0]
	}
	if cfg.MaxNewTokens <= 0 {
		cfg.MaxNewTokens = 500
	}
	if cfg.TopP <= 0 {
		cfg.TopP = 1.0
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 50
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	if !IsSupportedModel(cfg.Model) {
		logger.Warn("watsonx.model.unknown", "model", cfg.Model)
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  logger,
	}
}
