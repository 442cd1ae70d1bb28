package handlers

import (
	"gorm.io/gorm"

	"github.com/gopherchat/gopherchat/internal/ai"
	"github.com/gopherchat/gopherchat/internal/chat"
	"github.com/gopherchat/gopherchat/internal/config"
	"github.com/gopherchat/gopherchat/internal/store/redisstore"
)

type Handler struct {
	DB      *gorm.DB
	Cfg     config.Config
	Redis   *redisstore.Store
	Gateway *ai.Gateway
	ChatSvc *chat.Service
}

func NewHandler(db *gorm.DB, cfg config.Config, rds *redisstore.Store, mirror chat.Mirror) *Handler {
	gateway := ai.NewGateway(cfg.ProviderCallTimeout,
		ai.NewGeminiProvider(cfg.GeminiBaseURL, cfg.GeminiAPIKey, cfg.GeminiModel),
		ai.NewLocalProvider(cfg.OllamaBaseURL, cfg.OllamaModel, cfg.LocalMaxTokens),
	)
	svc := chat.NewService(chat.NewRepo(db), gateway, mirror)
	return &Handler{
		DB:      db,
		Cfg:     cfg,
		Redis:   rds,
		Gateway: gateway,
		ChatSvc: svc,
	}
}
