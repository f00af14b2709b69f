package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Brownie44l1/doodle-api/internal/auth"
	"github.com/Brownie44l1/doodle-api/internal/config"
	"github.com/Brownie44l1/doodle-api/internal/genai"
	"github.com/Brownie44l1/doodle-api/internal/handlers"
	"github.com/Brownie44l1/doodle-api/internal/model"
	"github.com/Brownie44l1/doodle-api/internal/pipeline"
	"github.com/Brownie44l1/doodle-api/internal/store"
)

func setupLogging(level string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	if os.Getenv("LOG_FORMAT") != "json" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}

func main() {
	cfg, err := config.Load(os.Getenv("DOODLE_CONFIG"))
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	setupLogging(cfg.LogLevel)
	gin.SetMode(gin.ReleaseMode)

	// The model is loaded exactly once, before any request is served.
	classifier := model.Load(model.LoadOptions{
		ModelPath:         cfg.Model.Path,
		MetadataPath:      cfg.Model.MetadataPath,
		SharedLibraryPath: cfg.Model.ORTSharedLibraryPath,
		InputName:         cfg.Model.InputName,
		OutputName:        cfg.Model.OutputName,
		Classes:           cfg.Model.Classes,
		ImageSize:         cfg.Model.ImageSize,
		ApplySoftmax:      cfg.Model.ApplySoftmax,
	})
	if c, ok := classifier.(*model.ONNXClassifier); ok {
		defer c.Close()
		if size := c.Metadata.ImageSize; size > 0 && size != cfg.Model.ImageSize {
			log.Warn().Int("configured", cfg.Model.ImageSize).Int("model", size).Msg("using the model's input size")
			cfg.Model.ImageSize = size
		}
	}
	engine := pipeline.New(cfg.Model, classifier)

	ctx := context.Background()
	st, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Str("database", cfg.DatabaseURL).Msg("open database")
	}
	defer st.Close()

	client := &http.Client{Timeout: 120 * time.Second}
	gemini, err := genai.NewGemini("", cfg.GeminiAPIKey, cfg.GeminiModel, client)
	if err != nil {
		log.Fatal().Err(err).Msg("create Gemini client")
	}
	stability, err := genai.NewStability("", cfg.StabilityAPIKey, client)
	if err != nil {
		log.Fatal().Err(err).Msg("create Stability client")
	}

	handler := handlers.NewHandler(engine, st, auth.NewIssuer(cfg.SecretKey, 24*time.Hour), gemini, stability)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handlers.NewRouter(handler, cfg.AllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Info().
		Str("port", cfg.Port).
		Bool("model_loaded", engine.Loaded()).
		Strs("classes", engine.Classes()).
		Int("image_size", cfg.Model.ImageSize).
		Msg("server starting")

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("run server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
}
