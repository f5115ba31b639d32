package handler

import (
	"golang.org/x/time/rate"

	"github.com/ecolink-dev/ecolink/config"
	"github.com/ecolink-dev/ecolink/internal/repository"
	"github.com/ecolink-dev/ecolink/internal/service"
)

// Handler API 处理器集合
type Handler struct {
	actions service.ActionService
	admin   service.AdminService
	users   repository.UserRepository
	failed  repository.FailedRepository

	cloudinary config.CloudinaryConfig
	jwt        config.JWTConfig

	// signLimiter 上传签名接口限流
	signLimiter *rate.Limiter
}

func NewHandler(
	actions service.ActionService,
	admin service.AdminService,
	users repository.UserRepository,
	failed repository.FailedRepository,
	cfg *config.Config,
) *Handler {
	return &Handler{
		actions:     actions,
		admin:       admin,
		users:       users,
		failed:      failed,
		cloudinary:  cfg.Cloudinary,
		jwt:         cfg.JWT,
		signLimiter: rate.NewLimiter(rate.Limit(5), 10),
	}
}
