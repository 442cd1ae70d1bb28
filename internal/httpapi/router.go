package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gopherchat/gopherchat/internal/common"
	"github.com/gopherchat/gopherchat/internal/httpapi/handlers"
	"github.com/gopherchat/gopherchat/internal/httpapi/middleware"
)

// NewRouter wires the HTTP channel. The websocket channel is mounted as an
// extra route so both transports share one server and one pipeline.
func NewRouter(h *handlers.Handler, wsHandler gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())

	r.NoRoute(func(c *gin.Context) {
		common.Fail(c, http.StatusNotFound, 40400, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		common.Fail(c, http.StatusMethodNotAllowed, 40500, "method not allowed")
	})

	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "Chatbot API is running")
	})

	r.POST("/api/auth/register", h.Register)
	r.POST("/api/auth/login", h.Login)

	authGroup := r.Group("/api")
	authGroup.Use(middleware.AuthRequired(h.Cfg.JWTSecret))
	authGroup.POST("/chat", h.SendChatMessage)
	authGroup.GET("/chat/history", h.ListChatHistory)
	authGroup.DELETE("/chat/history", h.DeleteChatHistory)
	authGroup.GET("/models", h.ListProviders)
	authGroup.POST("/admin/bot-icon", h.UpdateBotIcon)

	if wsHandler != nil {
		r.GET("/ws", wsHandler)
	}

	return r
}
