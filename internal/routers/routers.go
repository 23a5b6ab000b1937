package routers

import (
	"github.com/gin-gonic/gin"

	"github.com/keepsake-app/keepsake/internal/handler"
	"github.com/keepsake-app/keepsake/internal/middlewares"
	"github.com/keepsake-app/keepsake/middleware/jwt"
	logger "github.com/keepsake-app/keepsake/middleware/log"
)

// SetupRouter builds the gin engine and registers all routes.
func SetupRouter(
	log *logger.Logger,
	tm *jwt.TokenManager,
	authHandler *handler.AuthHandler,
	groupHandler *handler.GroupHandler,
	entryHandler *handler.EntryHandler,
) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.GinMiddleware(log))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := r.Group("/api")

	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
	}

	groups := api.Group("/groups")
	groups.Use(middlewares.AuthMiddleware(tm))
	{
		groups.POST("", groupHandler.CreateGroup)
		groups.GET("/mine", groupHandler.ListMyGroups)
		groups.GET("/:id", entryHandler.GetGroupView)
		groups.PATCH("/:id/settings", groupHandler.UpdateSettings)
		groups.POST("/:id/respond", groupHandler.RespondToInvitation)
		groups.POST("/:id/invitations", groupHandler.InviteCollaborator)
		groups.DELETE("/:id/collaborators/:userId", groupHandler.RemoveCollaborator)
		groups.POST("/:id/entries", entryHandler.AddEntry)
		groups.PATCH("/:id/entries/:entryId", entryHandler.UpdateEntry)
		groups.DELETE("/:id/entries/:entryId", entryHandler.DeleteEntry)
	}

	return r
}
