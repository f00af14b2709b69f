package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Brownie44l1/doodle-api/internal/auth"
	"github.com/Brownie44l1/doodle-api/internal/store"
)

type Credentials struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type SavePredictionRequest struct {
	UserID         int64  `json:"user_id" binding:"required"`
	PredictedClass string `json:"predicted_class" binding:"required"`
}

func (h *Handler) tokenResponse(c *gin.Context, userID int64, username string) {
	token, err := h.issuer.Issue(userID, username)
	if err != nil {
		log.Error().Err(err).Msg("issue token")
		detail(c, http.StatusInternalServerError, "failed to issue token")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token": token,
		"token_type":   "bearer",
		"user_id":      userID,
		"username":     username,
	})
}

func (h *Handler) Login(c *gin.Context) {
	var req Credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		detail(c, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return
	}

	user, err := h.store.UserByName(c.Request.Context(), req.Username)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		log.Error().Err(err).Msg("lookup user")
		detail(c, http.StatusInternalServerError, "failed to look up user")
		return
	}
	if user == nil || !auth.VerifyPassword(req.Password, user.PasswordHash) {
		detail(c, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	h.tokenResponse(c, user.ID, user.Username)
}

func (h *Handler) Signin(c *gin.Context) {
	var req Credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		detail(c, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		detail(c, http.StatusInternalServerError, err.Error())
		return
	}
	id, err := h.store.CreateUser(c.Request.Context(), req.Username, hash)
	if errors.Is(err, store.ErrUserExists) {
		detail(c, http.StatusConflict, "Username already exists")
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("create user")
		detail(c, http.StatusInternalServerError, "failed to create user")
		return
	}
	h.tokenResponse(c, id, req.Username)
}

func (h *Handler) SavePrediction(c *gin.Context) {
	var req SavePredictionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		detail(c, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return
	}
	id, err := h.store.SavePrediction(c.Request.Context(), req.UserID, req.PredictedClass, h.now())
	if err != nil {
		log.Error().Err(err).Msg("save prediction")
		detail(c, http.StatusInternalServerError, "failed to save prediction")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Prediction saved", "history_id": id})
}

func (h *Handler) History(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil {
		detail(c, http.StatusBadRequest, "user_id must be an integer")
		return
	}
	entries, err := h.store.History(c.Request.Context(), userID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", userID).Msg("load history")
		detail(c, http.StatusInternalServerError, "failed to load history")
		return
	}
	out := make([]gin.H, 0, len(entries))
	for _, e := range entries {
		out = append(out, gin.H{
			"predicted_class": e.PredictedClass,
			"created_at":      e.CreatedAt.Format("2006-01-02T15:04:05.999999"),
		})
	}
	c.JSON(http.StatusOK, out)
}
