package api

import (
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/ecolink-dev/ecolink/internal/api/handler"
	"github.com/ecolink-dev/ecolink/internal/api/middleware"
	"github.com/ecolink-dev/ecolink/internal/model"
)

// NewRouter 组装路由与全局中间件
func NewRouter(h *handler.Handler, authMW gin.HandlerFunc, serviceName string) *gin.Engine {
	RegisterValidators()

	r := gin.New()
	r.Use(
		gin.Recovery(),
		gzip.Gzip(gzip.DefaultCompression),
		otelgin.Middleware(serviceName),
	)

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.Group("/api/v1")
	{
		api.POST("/auth/register", h.Register)
		api.POST("/auth/login", h.Login)
		api.GET("/me", authMW, h.Me)

		api.POST("/uploads/sign", authMW, h.SignUpload)

		actions := api.Group("/actions", authMW)
		{
			actions.POST("", h.CreateAction)
			actions.GET("", h.ListActions)
			actions.POST("/:id/approve",
				middleware.RequireRoles(model.RoleOrganization, model.RoleAdmin),
				h.ApproveAction)
		}

		ob := api.Group("/outbox", authMW)
		{
			ob.POST("/flush", h.FlushOutbox)
			ob.GET("/pending", h.PendingOutbox)
			ob.GET("/failed", middleware.RequireAdmin(), h.ListFailed)
			ob.POST("/failed/:id/requeue", middleware.RequireAdmin(), h.RequeueFailed)
			ob.DELETE("/failed/:id", middleware.RequireAdmin(), h.DeleteFailed)
		}

		admin := api.Group("/admin", authMW, middleware.RequireAdmin())
		{
			admin.POST("/set-role", h.SetRole)
			admin.POST("/update-user", h.UpdateUser)
			admin.POST("/account-state", h.SetAccountState)
			admin.GET("/users", h.ListUsers)
		}
	}
	return r
}
