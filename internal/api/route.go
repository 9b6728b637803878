package api

import (
	"Ripple/internal/api/middleware"
	"Ripple/internal/pkg/logger"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func SetupRouter(group *HandlersGroup) *gin.Engine {
	r := gin.New()
	_ = r.SetTrustedProxies([]string{"localhost"})

	// TraceId & Logger & CORS
	r.Use(middleware.TraceMiddleware())
	r.Use(middleware.AuditMiddleware())
	r.Use(middleware.CORSMiddleware())
	logger.SetupGin(r)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"Code":    200,
				"Message": "pong",
				"Data":    nil,
			})
		})

		// 实时推送入口,鉴权在握手内完成
		apiGroup.GET("/ws", group.WsHandler.Connect)

		feedGroup := apiGroup.Group("/feed")
		{
			// 无需登录也能看的发现流
			discoverGroup := feedGroup.Group("")
			discoverGroup.Use(middleware.AuthOptionalMiddleware())
			{
				discoverGroup.GET("/trending", group.FeedHandler.GetTrendingFeed)
				discoverGroup.GET("/newest", group.FeedHandler.GetNewestFeed)
			}

			authGroup := feedGroup.Group("")
			authGroup.Use(middleware.AuthMiddleware())
			{
				authGroup.GET("/home", group.FeedHandler.GetUserFeed)
				authGroup.GET("/foryou", group.FeedHandler.GetForYouFeed)
			}
		}

		contentGroup := apiGroup.Group("/contents")
		{
			authOptGroup := contentGroup.Group("")
			authOptGroup.Use(middleware.AuthOptionalMiddleware())
			{
				authOptGroup.GET("/:content_id", group.ContentHandler.GetContent)
			}

			authGroup := contentGroup.Group("")
			authGroup.Use(middleware.AuthMiddleware())
			{
				authGroup.POST("", group.ContentHandler.CreateContent)
			}
		}

		followGroup := apiGroup.Group("/follows")
		followGroup.Use(middleware.AuthMiddleware())
		{
			followGroup.GET("/following", group.FollowHandler.GetFollowing)
			followGroup.POST("/:followee_id", group.FollowHandler.Follow)
			followGroup.DELETE("/:followee_id", group.FollowHandler.Unfollow)
		}

		notifyGroup := apiGroup.Group("/notifications")
		notifyGroup.Use(middleware.AuthMiddleware())
		{
			notifyGroup.GET("/list", group.NotifyHandler.GetNotifications)
			notifyGroup.GET("/unread", group.NotifyHandler.GetUnreadCount)
			notifyGroup.POST("/read", group.NotifyHandler.MarkRead)
			notifyGroup.POST("/read/all", group.NotifyHandler.MarkAllRead)
		}

		imGroup := apiGroup.Group("/im")
		imGroup.Use(middleware.AuthMiddleware())
		{
			imGroup.POST("/send", group.IMHandler.SendMessage)
			imGroup.GET("/history", group.IMHandler.GetChatHistory)
			imGroup.GET("/list", group.IMHandler.GetConversationList)
			imGroup.POST("/read", group.IMHandler.MarkConversationRead)
			imGroup.POST("/delivered", group.IMHandler.MarkDelivered)
		}

		profileGroup := apiGroup.Group("/profile")
		{
			profileGroup.GET("/:user_id", group.ProfileHandler.GetProfile)

			authGroup := profileGroup.Group("")
			authGroup.Use(middleware.AuthMiddleware())
			{
				authGroup.GET("/info", group.ProfileHandler.GetMyProfile)
				authGroup.PUT("/info", group.ProfileHandler.UpdateProfile)
			}
		}
	}

	return r
}
