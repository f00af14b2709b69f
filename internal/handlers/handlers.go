package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Brownie44l1/doodle-api/internal/auth"
	"github.com/Brownie44l1/doodle-api/internal/genai"
	"github.com/Brownie44l1/doodle-api/internal/interpret"
	"github.com/Brownie44l1/doodle-api/internal/model"
	"github.com/Brownie44l1/doodle-api/internal/pipeline"
	"github.com/Brownie44l1/doodle-api/internal/preprocess"
	"github.com/Brownie44l1/doodle-api/internal/store"
)

// Store is the persistence the handlers need.
type Store interface {
	CreateUser(ctx context.Context, username, passwordHash string) (int64, error)
	UserByName(ctx context.Context, username string) (*store.User, error)
	SavePrediction(ctx context.Context, userID int64, class string, at time.Time) (int64, error)
	History(ctx context.Context, userID int64) ([]store.HistoryEntry, error)
}

// Guesser asks a hosted model what a doodle shows.
type Guesser interface {
	Status() (bool, string)
	Guess(ctx context.Context, image []byte, mimeType, prompt string) (string, error)
}

// Generator renders a doodle into a styled image.
type Generator interface {
	Status() (bool, string)
	Generate(ctx context.Context, req genai.GenerateRequest) (string, string, error)
}

type Handler struct {
	engine    *pipeline.Engine
	store     Store
	issuer    *auth.Issuer
	guesser   Guesser
	generator Generator
	now       func() time.Time
}

func NewHandler(engine *pipeline.Engine, st Store, issuer *auth.Issuer, guesser Guesser, generator Generator) *Handler {
	return &Handler{
		engine:    engine,
		store:     st,
		issuer:    issuer,
		guesser:   guesser,
		generator: generator,
		now:       time.Now,
	}
}

// PredictionRequest is a flattened doodle. Width and height default to 28.
type PredictionRequest struct {
	Image  []float32 `json:"image" binding:"required"`
	Width  int       `json:"width"`
	Height int       `json:"height"`
	UserID *int64    `json:"user_id"`
}

func (r *PredictionRequest) stroke() preprocess.RawStroke {
	w, h := r.Width, r.Height
	if w == 0 && h == 0 {
		w, h = 28, 28
	}
	return preprocess.RawStroke{Pixels: r.Image, Width: w, Height: h}
}

func detail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"detail": msg})
}

func (h *Handler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "Backend is running!"})
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":       "ok",
		"model_loaded": h.engine.Loaded(),
		"num_classes":  len(h.engine.Classes()),
	})
}

func (h *Handler) Test(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message":      "Backend is working!",
		"model_loaded": h.engine.Loaded(),
		"classes":      h.engine.Classes(),
	})
}

// writeError maps pipeline errors onto status codes.
func writeError(c *gin.Context, err error) {
	var sm *preprocess.ShapeMismatchError
	switch {
	case errors.As(err, &sm):
		detail(c, http.StatusBadRequest, sm.Error())
	case errors.Is(err, model.ErrClassifierUnavailable):
		detail(c, http.StatusServiceUnavailable, "Model not available on server (model failed to load)")
	default:
		log.Error().Err(err).Str("path", c.FullPath()).Msg("prediction error")
		detail(c, http.StatusInternalServerError, err.Error())
	}
}

func (h *Handler) Predict(c *gin.Context) {
	if !h.engine.Loaded() {
		writeError(c, model.ErrClassifierUnavailable)
		return
	}

	var req PredictionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		detail(c, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return
	}

	result, err := h.engine.Predict(req.stroke())
	if err != nil {
		writeError(c, err)
		return
	}

	if req.UserID != nil {
		if _, err := h.store.SavePrediction(c.Request.Context(), *req.UserID, result.Label, h.now()); err != nil {
			log.Error().Err(err).Int64("user_id", *req.UserID).Msg("save prediction history")
		}
	}

	c.JSON(http.StatusOK, result)
}

// DownloadProcessed returns the canonical image the classifier sees.
func (h *Handler) DownloadProcessed(c *gin.Context) {
	var req PredictionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		detail(c, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return
	}

	data, err := h.engine.Preview(req.stroke())
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename=processed.png")
	c.Data(http.StatusOK, "image/png", data)
}

type InterpretRequest struct {
	Prediction string  `json:"prediction" binding:"required"`
	Confidence float32 `json:"confidence"`
}

func (h *Handler) Interpret(c *gin.Context) {
	var req InterpretRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		detail(c, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"interpretation": interpret.Prediction(req.Prediction, req.Confidence)})
}
