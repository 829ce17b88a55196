package credits

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"slidebanai-backend/internal/shared/server/middleware"
	"slidebanai-backend/internal/shared/server/respond"
)

// Handler exposes credit endpoints.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches credit routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/credits", h.getCredits)
}

// RegisterDevRoutes attaches dev-only credit routes.
func (h *Handler) RegisterDevRoutes(rg *gin.RouterGroup) {
	rg.POST("/credits/reset", h.resetCredits)
}

func (h *Handler) getCredits(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	l, err := h.Svc.Get(c.Request.Context(), userID)
	if err != nil {
		respond.Failure(c, err, "failed to fetch credits")
		return
	}
	respond.OK(c, toResponse(l))
}

func (h *Handler) resetCredits(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	l, err := h.Svc.Reset(c.Request.Context(), userID)
	if err != nil {
		respond.Failure(c, err, "failed to reset credits")
		return
	}
	respond.JSON(c, http.StatusOK, toResponse(l))
}

func toResponse(l Ledger) gin.H {
	return gin.H{
		"plan":      l.Plan,
		"limit":     l.Limit,
		"used":      l.Used,
		"remaining": l.Remaining(),
		"resetsAt":  l.ResetsAt,
	}
}
