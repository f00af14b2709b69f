// Package genai talks to the hosted generative image services used for the
// "guess my doodle" and "stylize my doodle" features.
package genai

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidDataURL = errors.New("invalid data URL")
	// ErrUnavailable means the service is not configured.
	ErrUnavailable = errors.New("service unavailable")
)

// ParseDataURL splits "data:<mime>;base64,<payload>" into its mime type and
// decoded bytes. A bare base64 payload is accepted as image/png.
func ParseDataURL(s string) (string, []byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil, fmt.Errorf("%w: empty image", ErrInvalidDataURL)
	}

	mime, payload := "image/png", s
	if strings.HasPrefix(s, "data:") {
		header, rest, ok := strings.Cut(s[len("data:"):], ",")
		if !ok {
			return "", nil, fmt.Errorf("%w: missing ','", ErrInvalidDataURL)
		}
		params := strings.Split(header, ";")
		if params[len(params)-1] != "base64" {
			return "", nil, fmt.Errorf("%w: only base64 payloads are supported", ErrInvalidDataURL)
		}
		if params[0] != "" {
			mime = params[0]
		}
		payload = rest
	}
	if !strings.HasPrefix(mime, "image/") {
		return "", nil, fmt.Errorf("%w: unsupported mime type %q", ErrInvalidDataURL, mime)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrInvalidDataURL, err)
	}
	return mime, data, nil
}
