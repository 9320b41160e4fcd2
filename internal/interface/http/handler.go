package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/stylecast/internal/domain/session"
	apperrors "github.com/yanqian/stylecast/pkg/errors"
)

// Handler wires the HTTP transport to the session orchestrator.
type Handler struct {
	sessions session.Service
	logger   *slog.Logger
}

// NewHandler constructs the root HTTP handler.
func NewHandler(sessions session.Service, logger *slog.Logger) *Handler {
	return &Handler{
		sessions: sessions,
		logger:   logger.With("component", "http.handler"),
	}
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// CreateSession starts a session and returns its bearer token.
func (h *Handler) CreateSession(c *gin.Context) {
	created, err := h.sessions.Create(c.Request.Context())
	if err != nil {
		abortWithError(c, fromDomainError(err))
		return
	}
	c.JSON(http.StatusCreated, created)
}

// GetSession returns the current session view.
func (h *Handler) GetSession(c *gin.Context) {
	view, err := h.sessions.Get(c.Request.Context(), getSessionID(c))
	if err != nil {
		abortWithError(c, fromDomainError(err))
		return
	}
	c.JSON(http.StatusOK, view)
}

// Submit runs the recommendation pipeline for the posted profile.
func (h *Handler) Submit(c *gin.Context) {
	var req session.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			abortWithError(c, NewHTTPError(http.StatusRequestEntityTooLarge, apperrors.CodeInvalidInput, "request body too large", err))
			return
		}
		abortWithError(c, NewHTTPError(http.StatusBadRequest, apperrors.CodeInvalidInput, errMessage(err), err))
		return
	}
	h.respond(c, func() (session.View, error) {
		return h.sessions.Submit(c.Request.Context(), getSessionID(c), req)
	})
}

// Dismiss clears a displayed error so the form can be edited again.
func (h *Handler) Dismiss(c *gin.Context) {
	h.respond(c, func() (session.View, error) {
		return h.sessions.Dismiss(c.Request.Context(), getSessionID(c))
	})
}

// Reset discards every result of the session.
func (h *Handler) Reset(c *gin.Context) {
	h.respond(c, func() (session.View, error) {
		return h.sessions.Reset(c.Request.Context(), getSessionID(c))
	})
}

// Visualize generates a try-on image for the ready recommendation.
func (h *Handler) Visualize(c *gin.Context) {
	h.respond(c, func() (session.View, error) {
		return h.sessions.Visualize(c.Request.Context(), getSessionID(c))
	})
}

// Image streams the latest try-on image.
func (h *Handler) Image(c *gin.Context) {
	img, err := h.sessions.Image(c.Request.Context(), getSessionID(c))
	if err != nil {
		abortWithError(c, fromDomainError(err))
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, img.MimeType, img.Data)
}

func (h *Handler) respond(c *gin.Context, call func() (session.View, error)) {
	view, err := call()
	if err != nil {
		abortWithError(c, fromDomainError(err))
		return
	}
	c.JSON(http.StatusOK, view)
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
