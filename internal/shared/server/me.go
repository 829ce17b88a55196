package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"slidebanai-backend/internal/shared/server/middleware"
	"slidebanai-backend/internal/shared/server/respond"
)

// registerMeRoutes attaches the /me endpoint.
func registerMeRoutes(rg *gin.RouterGroup) {
	rg.GET("/me", meHandler)
}

func meHandler(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	if userID == "" {
		respond.Error(c, http.StatusUnauthorized, respond.CodeAuthentication, "missing or invalid token", nil)
		return
	}

	response := gin.H{
		"userId":  userID,
		"isGuest": middleware.IsGuest(c),
	}
	if email := middleware.UserEmailFromContext(c); email != "" {
		response["email"] = email
	}
	if name := middleware.UserNameFromContext(c); name != "" {
		response["name"] = name
	}
	if plan := middleware.UserPlanFromContext(c); plan != "" {
		response["plan"] = plan
	}

	respond.JSON(c, http.StatusOK, response)
}
