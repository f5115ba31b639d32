package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ecolink-dev/ecolink/internal/auth"
	"github.com/ecolink-dev/ecolink/internal/api/middleware"
	"github.com/ecolink-dev/ecolink/internal/model"
	"github.com/ecolink-dev/ecolink/pkg/response"
)

type registerRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Name     string `json:"name" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Register 注册（默认 ciudadano 角色）
// @Summary 注册
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body registerRequest true "注册信息"
// @Success 200 {object} response.Response
// @Router /api/v1/auth/register [post]
func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	u, err := h.users.Create(c.Request.Context(), req.Email, req.Password, req.Name, model.RoleCitizen)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, gin.H{"uid": u.ID, "email": u.Email, "role": u.Role})
}

// Login 登录换取访问令牌
// @Summary 登录
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body loginRequest true "登录信息"
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /api/v1/auth/login [post]
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	u, err := h.users.GetByEmail(c.Request.Context(), req.Email)
	if err != nil || !h.users.VerifyPassword(u, req.Password) {
		response.Unauthorized(c, "invalid credentials")
		return
	}
	if u.AccountState != model.AccountActive {
		response.Forbidden(c, "account suspended")
		return
	}
	token, err := auth.IssueToken(h.jwt.Secret, h.jwt.TTL, u.ID, u.Email, u.Role)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, gin.H{"token": token, "uid": u.ID, "role": u.Role})
}

// Me 回显已验证身份（令牌连通性测试用）
// @Summary 当前用户
// @Tags 认证
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /api/v1/me [get]
func (h *Handler) Me(c *gin.Context) {
	response.Success(c, gin.H{
		"uid":   c.GetString(middleware.CtxUID),
		"email": c.GetString(middleware.CtxEmail),
		"role":  c.GetString(middleware.CtxRole),
	})
}
