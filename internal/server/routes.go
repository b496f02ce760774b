package server

import (
	"log/slog"
	"net/http"

	"github.com/USA-RedDragon/wander-server/internal/config"
	controllersV1 "github.com/USA-RedDragon/wander-server/internal/server/controllers/v1"
	websocketControllers "github.com/USA-RedDragon/wander-server/internal/server/websocket"
	"github.com/USA-RedDragon/wander-server/internal/websocket"
	"github.com/gin-gonic/gin"
)

func applyRoutes(r *gin.Engine, config *config.Config, noticesWebsocket *websocketControllers.NoticesWebsocket) {
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	apiV1 := r.Group("/v1")
	v1(apiV1, config)

	// Notice Websocket
	wsV1 := r.Group("/ws/v1")
	wsV1.GET("/sessions/:session_id", requireSessionAuth(config), requireLiveSession(), websocket.CreateHandler(noticesWebsocket, config))

	r.NoRoute(func(c *gin.Context) {
		slog.Warn("Not Found", "path", c.Request.URL.Path)
		c.JSON(http.StatusNotFound, gin.H{"error": "Not Found"})
	})
}

func v1(group *gin.RouterGroup, config *config.Config) {
	group.POST("/sessions", controllersV1.POSTSession)

	sessions := group.Group("/sessions/:session_id", requireSessionAuth(config))
	sessions.GET("", controllersV1.GETSession)
	sessions.DELETE("", controllersV1.DELETESession)
	sessions.PUT("/radius", controllersV1.PUTRadius)
	sessions.POST("/location", controllersV1.POSTLocation)
	sessions.POST("/location/denied", controllersV1.POSTLocationDenied)
	sessions.POST("/destination", controllersV1.POSTDestination)
	sessions.GET("/route", controllersV1.GETRoute)

	group.GET("/notes/:date", requireAuth(config), controllersV1.GETNote)
	group.PUT("/notes/:date", requireAuth(config), controllersV1.PUTNote)
	group.GET("/notes/:date/export", requireAuth(config), controllersV1.GETNoteExport)
	group.POST("/notes/:date/export", requireAuth(config), controllersV1.POSTNoteExport)
}
