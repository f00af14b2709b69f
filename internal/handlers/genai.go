package handlers

import (
	"encoding/base64"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Brownie44l1/doodle-api/internal/genai"
)

type GenAIGuessRequest struct {
	Image  string `json:"image" binding:"required"`
	Prompt string `json:"prompt"`
}

func (h *Handler) GenAIGuess(c *gin.Context) {
	if ok, reason := h.guesser.Status(); !ok {
		detail(c, http.StatusServiceUnavailable, "GenAI service unavailable: "+reason)
		return
	}

	var req GenAIGuessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		detail(c, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return
	}
	mimeType, image, err := genai.ParseDataURL(req.Image)
	if err != nil {
		detail(c, http.StatusBadRequest, err.Error())
		return
	}

	guess, err := h.guesser.Guess(c.Request.Context(), image, mimeType, req.Prompt)
	if err != nil {
		log.Error().Err(err).Msg("genai guess")
		detail(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"guess": guess})
}

func (h *Handler) GenAIStatus(c *gin.Context) {
	ok, reason := h.guesser.Status()
	resp := gin.H{"available": ok, "reason": nil}
	if !ok {
		resp["reason"] = reason
	}
	c.JSON(http.StatusOK, resp)
}

type StabilityGenerateRequest struct {
	Image        string  `json:"image" binding:"required"`
	Prompt       string  `json:"prompt"`
	Strength     float64 `json:"strength"`
	OutputFormat string  `json:"output_format"`
}

// stylize runs the shared part of both Stability endpoints. It writes the
// error response itself and returns ok=false on failure.
func (h *Handler) stylize(c *gin.Context) (b64, format string, ok bool) {
	if ok, reason := h.generator.Status(); !ok {
		detail(c, http.StatusServiceUnavailable, "Stability AI unavailable: "+reason)
		return "", "", false
	}

	var req StabilityGenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		detail(c, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return "", "", false
	}
	mimeType, image, err := genai.ParseDataURL(req.Image)
	if err != nil {
		detail(c, http.StatusBadRequest, err.Error())
		return "", "", false
	}

	b64, format, err = h.generator.Generate(c.Request.Context(), genai.GenerateRequest{
		Image:        image,
		MimeType:     mimeType,
		Prompt:       req.Prompt,
		Strength:     req.Strength,
		OutputFormat: req.OutputFormat,
	})
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, genai.ErrUnavailable) {
			status = http.StatusServiceUnavailable
		}
		log.Error().Err(err).Msg("stability generate")
		detail(c, status, err.Error())
		return "", "", false
	}
	return genai.EnhanceBase64(b64, format), format, true
}

func (h *Handler) StabilityGenerate(c *gin.Context) {
	b64, format, ok := h.stylize(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"image_base64": b64, "format": format})
}

func (h *Handler) StabilityGenerateDownload(c *gin.Context) {
	b64, format, ok := h.stylize(c)
	if !ok {
		return
	}
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		detail(c, http.StatusBadGateway, "invalid image payload from Stability AI")
		return
	}
	c.Header("Content-Disposition", "attachment; filename=stability_output."+format)
	c.Data(http.StatusOK, "image/"+format, raw)
}
