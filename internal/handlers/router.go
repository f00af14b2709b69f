package handlers

import (
	"net/http"
	"slices"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// cors allows the configured browser origins. "*" allows any origin.
func cors(origins []string) gin.HandlerFunc {
	anyOrigin := slices.Contains(origins, "*")
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && (anyOrigin || slices.Contains(origins, origin)) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
			c.Header("Vary", "Origin")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	}
}

// requestLogger tags each request with an id and logs it once it completes.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Header("X-Request-ID", id)

		start := time.Now()
		c.Next()

		log.Info().
			Str("request_id", id).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}

// NewRouter wires every endpoint onto a gin engine.
func NewRouter(h *Handler, origins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(), cors(origins))

	r.GET("/", h.Root)
	r.GET("/health", h.Health)
	r.GET("/test", h.Test)

	r.POST("/predict", h.Predict)
	r.POST("/download_processed", h.DownloadProcessed)
	r.POST("/interpret", h.Interpret)

	r.POST("/genai_guess", h.GenAIGuess)
	r.GET("/genai_status", h.GenAIStatus)
	r.POST("/stability_generate", h.StabilityGenerate)
	r.POST("/stability_generate_download", h.StabilityGenerateDownload)

	r.POST("/save_prediction", h.SavePrediction)
	r.GET("/get_history/:user_id", h.History)
	r.POST("/login", h.Login)
	r.POST("/signin", h.Signin)

	return r
}
