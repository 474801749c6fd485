// Package httpapi exposes the on-demand audio fallback over HTTP.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"ArticleEnricher/internal/domain"
)

// AudioProvider returns the encoded audio of one paragraph.
type AudioProvider interface {
	ParagraphAudio(ctx context.Context, paragraphID int64) ([]byte, error)
}

type errorBody struct {
	Error string `json:"error"`
}

// NewRouter builds the gin engine serving paragraph audio and a health check.
func NewRouter(audio AudioProvider, logger *slog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))

	router.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	api := router.Group("/api")
	api.GET("/paragraphs/:id/audio", paragraphAudio(audio, logger))
	return router
}

func paragraphAudio(audio AudioProvider, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, errorBody{Error: "invalid paragraph id"})
			return
		}

		data, err := audio.ParagraphAudio(c.Request.Context(), id)
		switch {
		case err == nil:
			c.Header("Cache-Control", "public, max-age=86400")
			c.Data(http.StatusOK, "audio/mpeg", data)
		case errors.Is(err, domain.ErrNotFound):
			c.JSON(http.StatusNotFound, errorBody{Error: "paragraph audio not found"})
		case errors.Is(err, domain.ErrAudioUnavailable):
			c.Header("Retry-After", "30")
			c.JSON(http.StatusServiceUnavailable, errorBody{Error: "audio temporarily unavailable"})
		default:
			logger.Error("serve paragraph audio failed", "paragraph_id", id, "error", err)
			c.JSON(http.StatusInternalServerError, errorBody{Error: "internal error"})
		}
	}
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"elapsed", time.Since(start),
		)
	}
}
