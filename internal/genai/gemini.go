package genai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const (
	DefaultGeminiURL = "https://generativelanguage.googleapis.com"
	DefaultPrompt    = "This is a quick hand-drawn doodle. In a few words, what does it show?"
	NoGuess          = "Unable to determine what this represents"
)

// Gemini asks a Gemini model to guess what a doodle shows.
type Gemini struct {
	url    *url.URL
	apiKey string
	model  string
	client *http.Client
}

func NewGemini(baseURL, apiKey, model string, client *http.Client) (*Gemini, error) {
	if baseURL == "" {
		baseURL = DefaultGeminiURL
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Gemini{url: u, apiKey: apiKey, model: model, client: client}, nil
}

// Status reports whether the service can be used, and why not.
func (g *Gemini) Status() (bool, string) {
	switch {
	case g.apiKey == "":
		return false, "GEMINI_API_KEY is not set"
	case g.model == "":
		return false, "no Gemini model configured"
	}
	return true, ""
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inline_data,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// Guess sends the image and prompt and returns the model's answer. An empty
// answer becomes NoGuess.
func (g *Gemini) Guess(ctx context.Context, image []byte, mimeType, prompt string) (string, error) {
	if ok, reason := g.Status(); !ok {
		return "", fmt.Errorf("%w: %s", ErrUnavailable, reason)
	}
	if strings.TrimSpace(prompt) == "" {
		prompt = DefaultPrompt
	}

	body, err := json.Marshal(geminiRequest{Contents: []geminiContent{{Parts: []geminiPart{
		{Text: prompt},
		{InlineData: &geminiInlineData{MimeType: mimeType, Data: base64.StdEncoding.EncodeToString(image)}},
	}}}})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	u := g.url.JoinPath("v1beta", "models", g.model+":generateContent")
	q := u.Query()
	q.Set("key", g.apiKey)
	u.RawQuery = q.Encode()

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := g.client.Do(request)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		resp, _ := io.ReadAll(io.LimitReader(response.Body, 4<<10))
		return "", fmt.Errorf("server response status code: %d, body: %s", response.StatusCode, resp)
	}

	var resp geminiResponse
	if err := json.NewDecoder(response.Body).Decode(&resp); err != nil {
		return "", fmt.Errorf("decode response body: %w", err)
	}

	var sb strings.Builder
	for _, c := range resp.Candidates {
		for _, p := range c.Content.Parts {
			sb.WriteString(p.Text)
		}
		if sb.Len() > 0 {
			break
		}
	}
	guess := strings.TrimSpace(sb.String())
	if guess == "" {
		guess = NoGuess
	}
	return guess, nil
}
