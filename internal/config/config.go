package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// DefaultClasses are the categories of the bundled 10-class 96x96 doodle model,
// in the order of the model's output vector.
var DefaultClasses = []string{
	"banana", "apple", "tree", "car", "smiley face",
	"snake", "ice cream", "eye", "star", "envelope",
}

// Config holds everything the server needs at startup.
type Config struct {
	Port           string   `json:"port"`
	LogLevel       string   `json:"logLevel"`
	AllowedOrigins []string `json:"allowedOrigins"`

	DatabaseURL string `json:"databaseUrl"`
	SecretKey   string `json:"secretKey"`

	Model Model `json:"model"`

	GeminiAPIKey    string `json:"geminiApiKey"`
	GeminiModel     string `json:"geminiModel"`
	StabilityAPIKey string `json:"stabilityApiKey"`
}

// Model configures the classifier and the preprocessing in front of it.
type Model struct {
	Path                 string   `json:"path"`
	MetadataPath         string   `json:"metadataPath"`
	ORTSharedLibraryPath string   `json:"ortSharedLibraryPath"`
	InputName            string   `json:"inputName"`
	OutputName           string   `json:"outputName"`
	Classes              []string `json:"classes"`
	ApplySoftmax         bool     `json:"applySoftmax"`

	// ImageSize is the canonical square resolution the classifier accepts.
	ImageSize int `json:"imageSize"`
	// IntensityMax is the largest intensity a caller can send (255 for 8-bit canvases).
	IntensityMax  float32 `json:"intensityMax"`
	Interpolation string  `json:"interpolation"`
	CropToContent bool    `json:"cropToContent"`
	CropMargin    int     `json:"cropMargin"`
	TopK          int     `json:"topK"`
}

// Default returns a Config populated with the values the service ships with.
func Default() Config {
	return Config{
		Port:     "5001",
		LogLevel: "info",
		AllowedOrigins: []string{
			"http://localhost:3000",
			"http://127.0.0.1:3000",
			"http://localhost:3001",
			"http://127.0.0.1:3001",
			"https://doodlerecogeniser-v1-9-frontend.vercel.app",
		},
		DatabaseURL: "file:users.db",
		SecretKey:   "fallback_secret",
		GeminiModel: "gemini-1.5-flash",
		Model: Model{
			Path:          "models/doodle_recognizer_10classes_96x96.onnx",
			MetadataPath:  "models/model_metadata.json",
			InputName:     "input",
			OutputName:    "output",
			Classes:       append([]string(nil), DefaultClasses...),
			ImageSize:     96,
			IntensityMax:  255,
			Interpolation: "lanczos3",
			CropMargin:    4,
			TopK:          3,
		},
	}
}

// Load builds the runtime config: defaults, then the optional JSON file at
// path, then a .env file if present, then environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	cfg.applyEnv(os.Getenv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	setString := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	setString(&c.Port, "PORT")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.DatabaseURL, "DATABASE_URL")
	setString(&c.SecretKey, "SECRET_KEY")
	setString(&c.GeminiAPIKey, "GEMINI_API_KEY")
	setString(&c.GeminiModel, "GEMINI_MODEL")
	setString(&c.StabilityAPIKey, "STABILITY_API_KEY")
	setString(&c.Model.Path, "MODEL_PATH")
	setString(&c.Model.MetadataPath, "METADATA_PATH")
	setString(&c.Model.ORTSharedLibraryPath, "ONNXRUNTIME_SHARED_LIBRARY_PATH")

	if v := getenv("ALLOWED_ORIGINS"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		c.AllowedOrigins = origins
	}
	if v := getenv("TOP_K"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Model.TopK = n
		}
	}
}

var interpolations = map[string]bool{
	"nearest":  true,
	"bilinear": true,
	"bicubic":  true,
	"mitchell": true,
	"lanczos2": true,
	"lanczos3": true,
}

// Validate verifies the config is runnable.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.Port == "" {
		return errors.New("port must be set")
	}
	m := c.Model
	if m.ImageSize <= 0 {
		return fmt.Errorf("model.imageSize must be > 0 (got %d)", m.ImageSize)
	}
	if m.IntensityMax <= 0 {
		return fmt.Errorf("model.intensityMax must be > 0 (got %g)", m.IntensityMax)
	}
	if len(m.Classes) == 0 {
		return errors.New("model.classes must not be empty")
	}
	seen := make(map[string]bool, len(m.Classes))
	for _, name := range m.Classes {
		if seen[name] {
			return fmt.Errorf("duplicate class %q", name)
		}
		seen[name] = true
	}
	if !interpolations[strings.ToLower(m.Interpolation)] {
		return fmt.Errorf("unknown interpolation %q", m.Interpolation)
	}
	if m.TopK < 0 {
		return fmt.Errorf("model.topK must be >= 0 (got %d)", m.TopK)
	}
	if m.CropMargin < 0 {
		c.Model.CropMargin = 0
	}
	return nil
}
