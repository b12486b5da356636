package main

import (
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"

	"github.com/thereayou/chatcore/internal/handlers"
	"github.com/thereayou/chatcore/internal/middleware"
	"github.com/thereayou/chatcore/pkg/auth"
)

func APIEndpoints(
	r *gin.Engine,
	jwtMgr *auth.JWTManager,
	rdb *redis.Client,
	authH *handlers.AuthHandler,
	userH *handlers.UserHandler,
	chatH *handlers.ChatHandler,
	messageH *handlers.MessageHandler,
	updatesH *handlers.UpdatesHandler,
	wsH *handlers.WebSocketHandler,
) {
	// Auth endpoints
	authGroup := r.Group("/auth")
	{
		authGroup.POST("/register", authH.Register)
		authGroup.POST("/login", authH.Login)
		authGroup.POST("/logout", middleware.AuthMiddleware(jwtMgr, rdb), authH.Logout)
	}

	// API endpoints
	api := r.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(jwtMgr, rdb))
	{
		api.GET("/me", userH.GetMe)
		api.GET("/users", userH.SearchUsers)

		chats := api.Group("/chats")
		{
			chats.GET("", chatH.ListChats)
			chats.POST("", chatH.CreateGroup)
			chats.POST("/direct", chatH.CreateDirect)
			chats.POST("/attached", chatH.CreateAttached)

			chats.GET("/:id", chatH.GetChat)
			chats.PATCH("/:id", chatH.Rename)
			chats.DELETE("/:id", chatH.Delete)

			chats.POST("/:id/join", chatH.Join)
			chats.POST("/:id/leave", chatH.Leave)
			chats.POST("/:id/members", chatH.AddMember)
			chats.DELETE("/:id/members/:userID", chatH.RemoveMember)
			chats.POST("/:id/read", chatH.MarkRead)

			chats.GET("/:id/messages", messageH.GetChatMessages)
			chats.POST("/:id/messages", messageH.SendMessage)
		}

		messages := api.Group("/messages")
		{
			messages.PATCH("/:id", messageH.EditMessage)
			messages.DELETE("/:id", messageH.DeleteMessage)
			messages.PUT("/:id/reactions", messageH.React)
			messages.DELETE("/:id/reactions", messageH.Unreact)
		}

		api.GET("/updates", updatesH.GetUpdates)
	}

	// Websocket поднимается только при push-транспорте; polling-клиенты
	// живут на /api/v1/updates
	if wsH != nil {
		r.GET("/ws", middleware.WSAuthMiddleware(jwtMgr, rdb), wsH.HandleWebSocket)
	}
}
