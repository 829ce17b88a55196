package presentations

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"slidebanai-backend/internal/deck"
	"slidebanai-backend/internal/outline"
	"slidebanai-backend/internal/pipeline"
	"slidebanai-backend/internal/shared/server/middleware"
	"slidebanai-backend/internal/shared/server/respond"
)

const defaultMaxUpload = 10 << 20

// Handler wires HTTP handlers to the presentations service.
type Handler struct {
	Svc            *Service
	MaxUploadBytes int64
	// BasePath prefixes preview URLs in responses, e.g. "/api/v1".
	BasePath string
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxUpload
	}
	return &Handler{Svc: svc, MaxUploadBytes: maxUploadBytes, BasePath: "/api/v1"}
}

// RegisterRoutes attaches read and edit routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/presentations", h.list)
	rg.GET("/presentations/:id", h.get)
	rg.PUT("/presentations/:id/outline", h.updateOutline)
	rg.GET("/presentations/:id/slides/:n/preview.svg", h.preview)
}

// RegisterGenerationRoutes attaches the routes that call the model or the slide service.
func (h *Handler) RegisterGenerationRoutes(rg *gin.RouterGroup) {
	rg.POST("/presentations/outline", h.outlineFromPrompt)
	rg.POST("/presentations/outline/from-document", h.outlineFromDocument)
	rg.POST("/presentations/:id/finalize", h.finalize)
}

func (h *Handler) outlineFromPrompt(c *gin.Context) {
	var req promptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "invalid request body", nil)
		return
	}
	created, err := h.Svc.CreateFromPrompt(c.Request.Context(), middleware.UserIDFromContext(c), pipeline.PromptInput{
		Topic:       req.Topic,
		Description: req.Description,
		Preferences: req.Preferences,
	})
	if err != nil {
		h.fail(c, err, "failed to generate outline")
		return
	}
	c.Set("presentationId", created.Presentation.ID)
	respond.Created(c, h.BasePath+"/presentations/"+created.Presentation.ID, toOutlineResponse(created))
}

func (h *Handler) outlineFromDocument(c *gin.Context) {
	if c.Request.ContentLength > h.MaxUploadBytes {
		respond.Error(c, http.StatusRequestEntityTooLarge, respond.CodePayloadTooLarge, "file exceeds upload limit", gin.H{"limitBytes": h.MaxUploadBytes})
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadBytes)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.Error(c, http.StatusRequestEntityTooLarge, respond.CodePayloadTooLarge, "file exceeds upload limit", gin.H{"limitBytes": h.MaxUploadBytes})
			return
		}
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "file is required", nil)
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "unable to read file", nil)
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "unable to read file", nil)
		return
	}

	prefs, err := formPreferences(c)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, err.Error(), nil)
		return
	}

	created, err := h.Svc.CreateFromDocument(c.Request.Context(), middleware.UserIDFromContext(c), pipeline.DocumentInput{
		Topic:       c.PostForm("topic"),
		Data:        data,
		MimeType:    fileHeader.Header.Get("Content-Type"),
		FileName:    fileHeader.Filename,
		Preferences: prefs,
	})
	if err != nil {
		h.fail(c, err, "failed to generate outline")
		return
	}
	c.Set("presentationId", created.Presentation.ID)
	respond.Created(c, h.BasePath+"/presentations/"+created.Presentation.ID, toOutlineResponse(created))
}

func formPreferences(c *gin.Context) (deck.StyleConfig, error) {
	prefs := deck.StyleConfig{
		Audience:         deck.Audience(strings.TrimSpace(c.PostForm("audience"))),
		Tone:             deck.Tone(strings.TrimSpace(c.PostForm("tone"))),
		PresentationType: strings.TrimSpace(c.PostForm("presentationType")),
	}
	if v := strings.TrimSpace(c.PostForm("slideCount")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return prefs, errors.New("slideCount must be an integer")
		}
		prefs.SlideCount = n
	}
	if v := strings.TrimSpace(c.PostForm("strict")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return prefs, errors.New("strict must be a boolean")
		}
		prefs.Strict = b
	}
	return prefs, nil
}

func (h *Handler) list(c *gin.Context) {
	limit, offset := 20, 0
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			offset = parsed
		}
	}

	items, err := h.Svc.List(c.Request.Context(), middleware.UserIDFromContext(c), limit, offset)
	if err != nil {
		h.fail(c, err, "failed to list presentations")
		return
	}
	resp := make([]summaryResponse, 0, len(items))
	for _, p := range items {
		resp = append(resp, summaryResponse{
			ID:        p.ID,
			Title:     p.Title,
			Source:    string(p.Source),
			Status:    string(p.Status),
			CreatedAt: p.CreatedAt,
		})
	}
	respond.OK(c, resp)
}

func (h *Handler) get(c *gin.Context) {
	p, err := h.Svc.Get(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"))
	if err != nil {
		h.fail(c, err, "failed to fetch presentation")
		return
	}
	resp := toResponse(p, h.BasePath)
	resp.RemainingCredits = h.remainingCredits(c)
	respond.OK(c, resp)
}

func (h *Handler) updateOutline(c *gin.Context) {
	var body deck.Outline
	if err := c.ShouldBindJSON(&body); err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "invalid request body", nil)
		return
	}
	p, err := h.Svc.UpdateOutline(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"), body)
	if err != nil {
		h.fail(c, err, "failed to update outline")
		return
	}
	respond.OK(c, toResponse(p, h.BasePath))
}

func (h *Handler) finalize(c *gin.Context) {
	var req finalizeRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "invalid request body", nil)
			return
		}
	}
	if req.SlideCountHint < 0 {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "slideCountHint must not be negative", nil)
		return
	}
	p, err := h.Svc.Finalize(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"), req.Title, req.SlideCountHint)
	if err != nil {
		h.fail(c, err, "failed to finalize presentation")
		return
	}
	c.Set("statusTransition", string(pipeline.StateAwaitingUserEdit)+"->"+string(p.Status))
	respond.Accepted(c, finalizeResponse{
		PresentationID:   p.ID,
		Status:           string(p.Status),
		RemainingCredits: h.remainingCredits(c),
	})
}

func (h *Handler) remainingCredits(c *gin.Context) *int {
	remaining, ok := h.Svc.RemainingCredits(c.Request.Context(), middleware.UserIDFromContext(c))
	if !ok {
		return nil
	}
	return &remaining
}

func (h *Handler) preview(c *gin.Context) {
	n, err := strconv.Atoi(c.Param("n"))
	if err != nil || n < 1 {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, "slide number must be a positive integer", nil)
		return
	}
	rc, err := h.Svc.OpenPreview(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"), n)
	if err != nil {
		h.fail(c, err, "failed to load preview")
		return
	}
	defer rc.Close()
	c.Header("Cache-Control", "private, max-age=300")
	c.DataFromReader(http.StatusOK, -1, "image/svg+xml", rc, nil)
}

func (h *Handler) fail(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, respond.CodeNotFound, "presentation not found", nil)
	case errors.Is(err, ErrConflict), errors.Is(err, pipeline.ErrInvalidTransition):
		respond.Error(c, http.StatusConflict, respond.CodeConflict, "presentation is not awaiting edits", nil)
	case errors.Is(err, outline.ErrEmptyInput):
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, err.Error(), nil)
	default:
		respond.Failure(c, err, fallback)
	}
}
