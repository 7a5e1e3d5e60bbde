package http

import (
	"errors"
	"net/http"

	"facestream/internal/core/domain"
	"facestream/internal/core/ports"
	"facestream/internal/infrastructure/middleware"
	apperrors "facestream/pkg/errors"

	"github.com/gin-gonic/gin"
)

type StreamHandler struct {
	orchestrator ports.StreamOrchestrator
}

func NewStreamHandler(orchestrator ports.StreamOrchestrator) *StreamHandler {
	return &StreamHandler{
		orchestrator: orchestrator,
	}
}

// SetupRoutes registers the command surface. All routes operate on the
// authenticated user placed in the context by the auth middleware.
func (h *StreamHandler) SetupRoutes(api *gin.RouterGroup) {
	api.POST("/stream/start", h.StartStream)
	api.POST("/stream/stop", h.StopStream)
	api.PUT("/stream/url", h.UpdateStreamURL)
	api.GET("/stream/status", h.GetStreamStatus)
	api.GET("/settings", h.GetSettings)
	api.PATCH("/settings", h.UpdateSettings)
}

func (h *StreamHandler) StartStream(c *gin.Context) {
	userID, ok := authenticatedUser(c)
	if !ok {
		return
	}

	var req struct {
		URL          string `json:"url"`
		Mode         string `json:"mode"`
		Highlighting *bool  `json:"highlighting"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.orchestrator.StartStream(c.Request.Context(), userID, ports.StartStreamRequest{
		URL:          req.URL,
		Mode:         domain.StreamMode(req.Mode),
		Highlighting: req.Highlighting,
	})
	if err != nil {
		c.Error(mapDomainError(err))
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "starting"})
}

func (h *StreamHandler) StopStream(c *gin.Context) {
	userID, ok := authenticatedUser(c)
	if !ok {
		return
	}

	if err := h.orchestrator.StopStream(c.Request.Context(), userID); err != nil {
		c.Error(mapDomainError(err))
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "stopping"})
}

func (h *StreamHandler) UpdateStreamURL(c *gin.Context) {
	userID, ok := authenticatedUser(c)
	if !ok {
		return
	}

	var req struct {
		URL string `json:"url" binding:"required"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.orchestrator.UpdateRTMPURL(c.Request.Context(), userID, req.URL); err != nil {
		c.Error(mapDomainError(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": req.URL})
}

func (h *StreamHandler) GetStreamStatus(c *gin.Context) {
	userID, ok := authenticatedUser(c)
	if !ok {
		return
	}

	status, err := h.orchestrator.GetStatus(c.Request.Context(), userID)
	if err != nil {
		c.Error(mapDomainError(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": status})
}

func (h *StreamHandler) GetSettings(c *gin.Context) {
	userID, ok := authenticatedUser(c)
	if !ok {
		return
	}

	settings := h.orchestrator.GetSettings(c.Request.Context(), userID)
	c.JSON(http.StatusOK, gin.H{"settings": settings})
}

func (h *StreamHandler) UpdateSettings(c *gin.Context) {
	userID, ok := authenticatedUser(c)
	if !ok {
		return
	}

	var req struct {
		RTMPURL                 *string `json:"rtmp_url"`
		StreamMode              *string `json:"stream_mode"`
		FaceHighlightingEnabled *bool   `json:"face_highlighting_enabled"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	patch := domain.SettingsPatch{
		RTMPURL:                 req.RTMPURL,
		FaceHighlightingEnabled: req.FaceHighlightingEnabled,
	}
	if req.StreamMode != nil {
		mode := domain.StreamMode(*req.StreamMode)
		patch.StreamMode = &mode
	}

	settings, err := h.orchestrator.UpdateSettings(c.Request.Context(), userID, patch)
	if err != nil {
		c.Error(mapDomainError(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"settings": settings})
}

func authenticatedUser(c *gin.Context) (domain.UserID, bool) {
	userID, ok := middleware.UserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		c.Abort()
		return "", false
	}
	return userID, true
}

// mapDomainError translates domain errors into HTTP-facing application errors.
func mapDomainError(err error) error {
	var highlightErr *domain.HighlightConfigError
	var transportErr *domain.TransportError

	switch {
	case errors.Is(err, domain.ErrNoActiveSession):
		return apperrors.Wrap(err, apperrors.ErrCodeNotFound, "no active session for user", http.StatusNotFound)
	case errors.Is(err, domain.ErrInvalidURL):
		return apperrors.Wrap(err, apperrors.ErrCodeInvalidInput, "invalid stream URL", http.StatusBadRequest)
	case errors.Is(err, domain.ErrUnsupportedModeCombination):
		return apperrors.Wrap(err, apperrors.ErrCodeInvalidInput, "unsupported stream mode", http.StatusBadRequest)
	case errors.As(err, &highlightErr):
		return apperrors.Wrap(err, apperrors.ErrCodeBadGateway, highlightErr.Error(), http.StatusBadGateway)
	case errors.As(err, &transportErr):
		return apperrors.Wrap(err, apperrors.ErrCodeBadGateway, transportErr.Error(), http.StatusBadGateway)
	default:
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "internal error", http.StatusInternalServerError)
	}
}
