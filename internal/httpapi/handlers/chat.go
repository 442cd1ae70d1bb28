package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/gopherchat/gopherchat/internal/ai"
	"github.com/gopherchat/gopherchat/internal/common"
	"github.com/gopherchat/gopherchat/internal/httpapi/middleware"
	"github.com/gopherchat/gopherchat/internal/models"
)

func userIDFromContext(c *gin.Context) (uint64, bool) {
	v, ok := c.Get(middleware.UserIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint64)
	return id, ok
}

// currentUser loads the principal behind the token. A valid token whose
// user row is gone is a 404, matching the unknown-principal contract.
func (h *Handler) currentUser(c *gin.Context) (*models.User, bool) {
	uid, ok := userIDFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return nil, false
	}
	var user models.User
	if err := h.DB.WithContext(c.Request.Context()).First(&user, uid).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.Fail(c, http.StatusNotFound, 40401, "user not found")
			return nil, false
		}
		common.Fail(c, http.StatusInternalServerError, 20001, "db error")
		return nil, false
	}
	return &user, true
}

type sendMessageReq struct {
	Message  string `json:"message"`
	Provider string `json:"provider"`
}

func (h *Handler) SendChatMessage(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	var req sendMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}
	if req.Message == "" {
		common.Fail(c, http.StatusBadRequest, 10005, "message is required")
		return
	}
	provider, err := ai.ParseProviderName(req.Provider)
	if err != nil {
		common.Fail(c, http.StatusBadRequest, 10006, "unknown provider")
		return
	}

	exchange, err := h.ChatSvc.SendMessage(c.Request.Context(), user.ID, req.Message, provider)
	if err != nil {
		if errors.Is(err, ai.ErrNoProviderAvailable) {
			common.Fail(c, http.StatusInternalServerError, 50010, "no provider available")
			return
		}
		log.Printf("[SendChatMessage] failed user=%d err=%v", user.ID, err)
		common.Fail(c, http.StatusInternalServerError, 50011, "failed to process message")
		return
	}

	common.OK(c, gin.H{
		"response":  exchange.Response,
		"provider":  exchange.Provider,
		"timestamp": exchange.CreatedAt,
	})
}

func (h *Handler) ListChatHistory(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	exchanges, err := h.ChatSvc.History(c.Request.Context(), user.ID)
	if err != nil {
		log.Printf("[ListChatHistory] failed user=%d err=%v", user.ID, err)
		common.Fail(c, http.StatusInternalServerError, 50012, "failed to list history")
		return
	}

	common.OK(c, gin.H{"exchanges": exchanges})
}

func (h *Handler) DeleteChatHistory(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	if err := h.ChatSvc.DeleteHistory(c.Request.Context(), user.ID); err != nil {
		log.Printf("[DeleteChatHistory] failed user=%d err=%v", user.ID, err)
		common.Fail(c, http.StatusInternalServerError, 50013, "failed to delete history")
		return
	}

	common.OK(c, gin.H{"message": "chat history deleted"})
}

func (h *Handler) ListProviders(c *gin.Context) {
	if _, ok := h.currentUser(c); !ok {
		return
	}
	common.OK(c, gin.H{"providers": h.Gateway.Available()})
}

type botIconReq struct {
	IconURL string `json:"icon_url"`
}

func (h *Handler) UpdateBotIcon(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	if user.Role != models.RoleAdmin {
		common.Fail(c, http.StatusForbidden, 40301, "admin role required")
		return
	}

	var req botIconReq
	if err := c.ShouldBindJSON(&req); err != nil || req.IconURL == "" {
		common.Fail(c, http.StatusBadRequest, 10007, "icon_url is required")
		return
	}

	if err := h.Redis.SetBotIcon(c.Request.Context(), req.IconURL); err != nil {
		log.Printf("[UpdateBotIcon] redis set failed err=%v", err)
		common.Fail(c, http.StatusInternalServerError, 50014, "failed to store icon")
		return
	}

	common.OK(c, gin.H{"message": "bot icon updated"})
}
