package approuters

import (
	"github.com/gin-gonic/gin"

	"github.com/VISHYOU-GIT/realestate-chat/internal/configuration"
	"github.com/VISHYOU-GIT/realestate-chat/internal/middleware"
)

func ChatRouters(router *gin.Engine, container *configuration.Container) {
	chatRoute := router.Group("/api/chat")
	chatRoute.Use(middleware.RequireAuth(container.Config.JWT.Secret))
	{
		chatRoute.POST("", container.ChatHandler.GetOrCreateConversation)
		chatRoute.GET("", container.ChatHandler.ListConversations)
		chatRoute.GET("/property/:propertyId", container.ChatHandler.GetConversationByProperty)
		chatRoute.GET("/:id", container.ChatHandler.GetConversation)
		chatRoute.POST("/:id/message", container.ChatHandler.SendMessage)
		chatRoute.DELETE("/:id", container.ChatHandler.DeleteConversation)
	}
}
