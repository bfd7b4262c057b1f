package interviews

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-interview/backend/internal/logger"
	"github.com/aura-interview/backend/internal/models"
	"github.com/aura-interview/backend/internal/provider"
	"github.com/aura-interview/backend/pkg/response"
	"github.com/aura-interview/backend/pkg/storage"
)

// StartRequest is the body for POST /interviews.
type StartRequest struct {
	Name       string `json:"name" binding:"required"`
	Email      string `json:"email" binding:"required,email"`
	Phone      string `json:"phone"`
	Position   string `json:"position" binding:"required"`
	Experience string `json:"experience"`
	Persona    string `json:"persona"`
}

// TurnRequest is the body for POST /interviews/:id/turns.
type TurnRequest struct {
	Message   string `json:"message"`
	AudioURL  string `json:"audioUrl"`
	TurnToken string `json:"turnToken"`
}

// InterveneRequest is the body for POST /interviews/:id/intervene.
type InterveneRequest struct {
	Message string `json:"message"`
}

// Handler handles interview HTTP endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates an interview handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// Register mounts the interview routes on rg.
func (h *Handler) Register(rg gin.IRoutes) {
	rg.POST("/interviews", h.Start)
	rg.GET("/interviews", h.ListActive)
	rg.GET("/interviews/stats", h.Stats)
	rg.GET("/interviews/:id", h.Get)
	rg.POST("/interviews/:id/turns", h.SubmitTurn)
	rg.POST("/interviews/:id/audio", h.SubmitAudio)
	rg.POST("/interviews/:id/end", h.End)
	rg.POST("/interviews/:id/pause", h.Pause)
	rg.POST("/interviews/:id/resume", h.Resume)
	rg.POST("/interviews/:id/abandon", h.Abandon)
	rg.POST("/interviews/:id/intervene", h.Intervene)
	rg.GET("/interviews/:id/transcript", h.Transcript)
	rg.GET("/interviews/:id/analytics", h.Analytics)
	rg.GET("/interviews/:id/export", h.Export)
	rg.GET("/personas", h.Personas)
}

// Start handles POST /interviews.
func (h *Handler) Start(c *gin.Context) {
	var req StartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	res, err := h.svc.StartSession(c.Request.Context(), StartInput{
		Candidate: models.CandidateProfile{
			Name:       req.Name,
			Email:      req.Email,
			Phone:      req.Phone,
			Position:   req.Position,
			Experience: models.ExperienceLevel(req.Experience),
		},
		Persona: req.Persona,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Created(c, res)
}

// ListActive handles GET /interviews.
func (h *Handler) ListActive(c *gin.Context) {
	response.OK(c, h.svc.ListActive(c.Request.Context()))
}

// Stats handles GET /interviews/stats.
func (h *Handler) Stats(c *gin.Context) {
	st, err := h.svc.Stats(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, st)
}

// Get handles GET /interviews/:id.
func (h *Handler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	iv, err := h.svc.GetSession(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, iv)
}

// SubmitTurn handles POST /interviews/:id/turns.
func (h *Handler) SubmitTurn(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req TurnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	res, err := h.svc.SubmitTurn(c.Request.Context(), id, TurnInput{
		Message:   req.Message,
		AudioURL:  req.AudioURL,
		TurnToken: req.TurnToken,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, res)
}

// SubmitAudio handles POST /interviews/:id/audio (multipart field "audio").
func (h *Handler) SubmitAudio(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	fh, err := c.FormFile("audio")
	if err != nil {
		response.BadRequest(c, "audio file is required")
		return
	}
	if fh.Size > storage.MaxUploadSize {
		response.BadRequest(c, "audio file too large")
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.BadRequest(c, "unreadable audio file")
		return
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, storage.MaxUploadSize))
	if err != nil {
		response.BadRequest(c, "unreadable audio file")
		return
	}
	contentType := fh.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = storage.ContentTypeFor(fh.Filename)
	}
	res, err := h.svc.SubmitAudioTurn(c.Request.Context(), id, AudioInput{
		Data:        data,
		ContentType: contentType,
		TurnToken:   c.PostForm("turnToken"),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, res)
}

// End handles POST /interviews/:id/end.
func (h *Handler) End(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	res, err := h.svc.EndSession(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, res)
}

// Pause handles POST /interviews/:id/pause.
func (h *Handler) Pause(c *gin.Context) { h.status(c, h.svc.Pause) }

// Resume handles POST /interviews/:id/resume.
func (h *Handler) Resume(c *gin.Context) { h.status(c, h.svc.Resume) }

// Abandon handles POST /interviews/:id/abandon.
func (h *Handler) Abandon(c *gin.Context) { h.status(c, h.svc.Abandon) }

// Intervene handles POST /interviews/:id/intervene.
func (h *Handler) Intervene(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req InterveneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	turn, err := h.svc.Intervene(c.Request.Context(), id, req.Message)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, turn)
}

// Transcript handles GET /interviews/:id/transcript.
func (h *Handler) Transcript(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	t, err := h.svc.Transcript(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, t)
}

// Analytics handles GET /interviews/:id/analytics.
func (h *Handler) Analytics(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	a, err := h.svc.Analytics(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, a)
}

// Export handles GET /interviews/:id/export?format=json|csv.
func (h *Handler) Export(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	format := c.DefaultQuery("format", FormatJSON)
	body, contentType, err := h.svc.Export(c.Request.Context(), id, format)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Attachment(c, "interview-"+id.String()+"."+format, contentType, body)
}

// Personas handles GET /personas.
func (h *Handler) Personas(c *gin.Context) {
	response.OK(c, gin.H{
		"default":  h.svc.Personas().DefaultID(),
		"personas": h.svc.Personas().List(),
	})
}

func (h *Handler) status(c *gin.Context, fn func(context.Context, uuid.UUID) (*StatusResult, error)) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	res, err := fn(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, res)
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid interview id")
		return uuid.Nil, false
	}
	return id, true
}

// ErrorCode is the machine code reported for err over HTTP and WebSocket.
func ErrorCode(err error) (int, string) {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		return http.StatusNotFound, "session_not_found"
	case errors.Is(err, ErrSessionNotActive):
		return http.StatusConflict, "session_not_active"
	case errors.Is(err, ErrInvalidStateTransition):
		return http.StatusConflict, "invalid_state_transition"
	case errors.Is(err, ErrSessionBusy):
		return http.StatusTooManyRequests, "session_busy"
	case errors.Is(err, ErrEmptyResponse):
		return http.StatusBadRequest, "empty_response"
	case errors.Is(err, ErrResponseTooLong):
		return http.StatusBadRequest, "response_too_long"
	case errors.Is(err, ErrInvalidProfile):
		return http.StatusBadRequest, "invalid_profile"
	case errors.Is(err, ErrUnsupportedFormat):
		return http.StatusBadRequest, "unsupported_format"
	case errors.Is(err, ErrPersistence):
		return http.StatusServiceUnavailable, "persistence_error"
	case errors.Is(err, provider.ErrProviderExhausted):
		return http.StatusServiceUnavailable, "provider_exhausted"
	}
	return http.StatusInternalServerError, "internal"
}

func (h *Handler) fail(c *gin.Context, err error) {
	status, code := ErrorCode(err)
	switch status {
	case http.StatusTooManyRequests:
		response.TooManyRequests(c, code, err.Error(), time.Second)
	case http.StatusInternalServerError:
		h.logger.Error("interview request failed",
			zap.String(logger.FieldInterview, c.Param("id")),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		response.Internal(c, "internal error")
	default:
		if status == http.StatusServiceUnavailable {
			h.logger.Warn("interview request unavailable", zap.String(logger.FieldInterview, c.Param("id")), zap.Error(err))
		}
		response.Error(c, status, code, err.Error())
	}
}
