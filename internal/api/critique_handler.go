package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"handrating-backend/internal/core"
	"handrating-backend/internal/critique"
	"handrating-backend/internal/imageproc"
	"handrating-backend/internal/middleware"
	"handrating-backend/internal/models"
)

// CritiqueHandler handles hand critique endpoints.
type CritiqueHandler struct {
	critiqueService core.CritiqueService
	log             *zap.Logger
}

// NewCritiqueHandler creates a new CritiqueHandler.
func NewCritiqueHandler(cs core.CritiqueService, log *zap.Logger) *CritiqueHandler {
	return &CritiqueHandler{critiqueService: cs, log: log}
}

func (h *CritiqueHandler) mapCritiqueErrorToStatus(c *gin.Context, err error) {
	var statusCode int
	var errResponse ErrorResponse
	var mbe *http.MaxBytesError

	switch {
	case errors.Is(err, core.ErrNoCredits):
		statusCode = http.StatusPaymentRequired
		errResponse = ErrorResponse{Error: "No uploads remaining", Details: "Purchase a credit pack to get another critique."}
	case errors.Is(err, core.ErrImageTooLarge), errors.As(err, &mbe):
		statusCode = http.StatusRequestEntityTooLarge
		errResponse = ErrorResponse{Error: "Image too large"}
	case errors.Is(err, core.ErrInvalidImage):
		statusCode = http.StatusBadRequest
		errResponse = ErrorResponse{Error: "Invalid image", Details: err.Error()}
	case errors.Is(err, core.ErrCritiqueInProgress):
		statusCode = http.StatusTooManyRequests
		errResponse = ErrorResponse{Error: "A critique is already in progress"}
	case errors.Is(err, core.ErrCritiqueProvider):
		statusCode = http.StatusBadGateway
		errResponse = ErrorResponse{Error: "Critique could not be generated", Details: "Your upload was not charged. Please try again."}
	case errors.Is(err, core.ErrUserNotFound):
		statusCode = http.StatusNotFound
		errResponse = ErrorResponse{Error: "User profile not found"}
	case errors.Is(err, core.ErrCritiqueNotFound):
		statusCode = http.StatusNotFound
		errResponse = ErrorResponse{Error: "Critique not found"}
	default:
		statusCode = http.StatusInternalServerError
		errResponse = ErrorResponse{Error: "An unexpected internal server error occurred."}
	}

	if statusCode >= http.StatusInternalServerError {
		h.log.Error("critique request failed",
			zap.String("path", c.FullPath()),
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.Error(err))
	}
	c.JSON(statusCode, errResponse)
}

// GenerateCritique handles POST /api/v1/critiques.
// Accepts multipart form data with an "image" file, or JSON with imageBase64.
func (h *CritiqueHandler) GenerateCritique(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		return
	}

	image, language, err := h.readUpload(c)
	if err != nil {
		h.mapCritiqueErrorToStatus(c, err)
		return
	}
	language = strings.ToLower(strings.TrimSpace(language))
	if language != "" && critique.NormalizeLanguage(language) != language {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Unsupported language", Details: language})
		return
	}

	result, err := h.critiqueService.Generate(c.Request.Context(), userID, image, language)
	if err != nil {
		h.mapCritiqueErrorToStatus(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h *CritiqueHandler) readUpload(c *gin.Context) ([]byte, string, error) {
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fh, err := c.FormFile("image")
		if err != nil {
			var mbe *http.MaxBytesError
			if errors.As(err, &mbe) {
				return nil, "", err
			}
			return nil, "", errors.Join(core.ErrInvalidImage, err)
		}
		f, err := fh.Open()
		if err != nil {
			return nil, "", errors.Join(core.ErrInvalidImage, err)
		}
		defer f.Close()
		data, err := io.ReadAll(f)
		if err != nil {
			return nil, "", errors.Join(core.ErrInvalidImage, err)
		}
		return data, c.PostForm("language"), nil
	}

	var req models.GenerateCritiqueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return nil, "", err
		}
		return nil, "", errors.Join(core.ErrInvalidImage, err)
	}
	data, err := imageproc.DecodeBase64(req.ImageBase64)
	if err != nil {
		return nil, "", errors.Join(core.ErrInvalidImage, err)
	}
	return data, req.Language, nil
}

// ListCritiques handles GET /api/v1/critiques?limit=N.
func (h *CritiqueHandler) ListCritiques(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit must be a non-negative integer"})
			return
		}
		limit = n
	}
	critiques, err := h.critiqueService.List(c.Request.Context(), userID, limit)
	if err != nil {
		h.mapCritiqueErrorToStatus(c, err)
		return
	}
	if critiques == nil {
		critiques = []*models.Critique{}
	}
	c.JSON(http.StatusOK, critiques)
}

// GetCritique handles GET /api/v1/critiques/:critiqueId.
func (h *CritiqueHandler) GetCritique(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		return
	}
	result, err := h.critiqueService.Get(c.Request.Context(), userID, c.Param("critiqueId"))
	if err != nil {
		h.mapCritiqueErrorToStatus(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
