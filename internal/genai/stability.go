package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultStabilityURL = "https://api.stability.ai"
	DefaultStylePrompt  = "A clean, colourful illustration of this doodle"
	DefaultStrength     = 0.6
)

// Stability turns a doodle into a rendered image with Stability AI's
// image-to-image endpoint.
type Stability struct {
	url    *url.URL
	apiKey string
	client *http.Client
}

func NewStability(baseURL, apiKey string, client *http.Client) (*Stability, error) {
	if baseURL == "" {
		baseURL = DefaultStabilityURL
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Stability{url: u, apiKey: apiKey, client: client}, nil
}

// Status reports whether the service can be used, and why not.
func (s *Stability) Status() (bool, string) {
	if s.apiKey == "" {
		return false, "STABILITY_API_KEY is not set"
	}
	return true, ""
}

// GenerateRequest describes one image-to-image call.
type GenerateRequest struct {
	Image        []byte
	MimeType     string
	Prompt       string
	Strength     float64
	OutputFormat string
}

type stabilityResponse struct {
	Image        string `json:"image"`
	FinishReason string `json:"finish_reason"`
}

// NormalizeFormat maps a requested output format onto one the API accepts.
func NormalizeFormat(format string) string {
	switch f := strings.ToLower(strings.TrimSpace(format)); f {
	case "jpg", "jpeg":
		return "jpeg"
	case "webp":
		return "webp"
	default:
		return "png"
	}
}

// Generate returns the generated image as base64 and its format.
func (s *Stability) Generate(ctx context.Context, req GenerateRequest) (string, string, error) {
	if ok, reason := s.Status(); !ok {
		return "", "", fmt.Errorf("%w: %s", ErrUnavailable, reason)
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		prompt = DefaultStylePrompt
	}
	strength := req.Strength
	if strength <= 0 || strength > 1 {
		strength = DefaultStrength
	}
	format := NormalizeFormat(req.OutputFormat)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("image", "doodle."+extension(req.MimeType))
	if err != nil {
		return "", "", fmt.Errorf("create form: %w", err)
	}
	if _, err := part.Write(req.Image); err != nil {
		return "", "", fmt.Errorf("write image: %w", err)
	}
	fields := map[string]string{
		"prompt":        prompt,
		"mode":          "image-to-image",
		"strength":      strconv.FormatFloat(strength, 'f', -1, 64),
		"output_format": format,
	}
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			return "", "", fmt.Errorf("write field %s: %w", k, err)
		}
	}
	if err := writer.Close(); err != nil {
		return "", "", fmt.Errorf("close multipart writer: %w", err)
	}

	_url := s.url.JoinPath("/v2beta/stable-image/generate/sd3").String()
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, _url, body)
	if err != nil {
		return "", "", fmt.Errorf("create request: %w", err)
	}
	request.Header.Set("Content-Type", writer.FormDataContentType())
	request.Header.Set("Authorization", "Bearer "+s.apiKey)
	request.Header.Set("Accept", "application/json")

	response, err := s.client.Do(request)
	if err != nil {
		return "", "", fmt.Errorf("send request: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		resp, _ := io.ReadAll(io.LimitReader(response.Body, 4<<10))
		return "", "", fmt.Errorf("server response status code: %d, body: %s", response.StatusCode, resp)
	}

	var resp stabilityResponse
	if err := json.NewDecoder(response.Body).Decode(&resp); err != nil {
		return "", "", fmt.Errorf("decode response body: %w", err)
	}
	if resp.Image == "" {
		return "", "", fmt.Errorf("empty image in response (finish reason %q)", resp.FinishReason)
	}
	return resp.Image, format, nil
}

func extension(mimeType string) string {
	if _, sub, ok := strings.Cut(mimeType, "/"); ok && sub != "" {
		return sub
	}
	return "png"
}
