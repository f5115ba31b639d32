package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ecolink-dev/ecolink/internal/api/middleware"
	"github.com/ecolink-dev/ecolink/internal/service"
	"github.com/ecolink-dev/ecolink/pkg/response"
)

type setRoleRequest struct {
	UID  string `json:"uid" binding:"required"`
	Role string `json:"role" binding:"required,ecorole"`
}

type updateUserRequest struct {
	UID   string `json:"uid" binding:"required"`
	Name  string `json:"name" binding:"required"`
	City  string `json:"city"`
	Phone string `json:"phone"`
}

type accountStateRequest struct {
	UID   string `json:"uid" binding:"required"`
	State string `json:"state" binding:"required"`
}

// SetRole 修改用户角色（吊销其旧令牌并落审计）
// @Summary 修改角色
// @Tags 管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body setRoleRequest true "目标与角色"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /api/v1/admin/set-role [post]
func (h *Handler) SetRole(c *gin.Context) {
	var req setRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	err := h.admin.SetRole(c.Request.Context(), c.GetString(middleware.CtxUID), req.UID, req.Role)
	if err != nil {
		if errors.Is(err, service.ErrSelfDemotion) || errors.Is(err, service.ErrRoleNotAllowed) {
			response.BadRequest(c, err.Error())
			return
		}
		response.InternalError(c, err)
		return
	}
	response.Success(c, nil)
}

// UpdateUser 管理面板修改用户档案
// @Summary 修改用户
// @Tags 管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body updateUserRequest true "档案字段"
// @Success 200 {object} response.Response
// @Router /api/v1/admin/update-user [post]
func (h *Handler) UpdateUser(c *gin.Context) {
	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	err := h.admin.UpdateUser(c.Request.Context(), c.GetString(middleware.CtxUID), req.UID, req.Name, req.City, req.Phone)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, nil)
}

// SetAccountState 启用/停用账号
// @Summary 修改账号状态
// @Tags 管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body accountStateRequest true "目标与状态"
// @Success 200 {object} response.Response
// @Router /api/v1/admin/account-state [post]
func (h *Handler) SetAccountState(c *gin.Context) {
	var req accountStateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	err := h.admin.SetAccountState(c.Request.Context(), c.GetString(middleware.CtxUID), req.UID, req.State)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	response.Success(c, nil)
}

// ListUsers 用户列表
// @Summary 用户列表
// @Tags 管理
// @Produce json
// @Security BearerAuth
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(20)
// @Success 200 {object} response.Response
// @Router /api/v1/admin/users [get]
func (h *Handler) ListUsers(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	users, err := h.admin.ListUsers(c.Request.Context(), page, pageSize)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	list := make([]gin.H, 0, len(users))
	for _, u := range users {
		list = append(list, gin.H{
			"uid":           u.ID,
			"email":         u.Email,
			"name":          u.Name,
			"city":          u.City,
			"phone":         u.Phone,
			"role":          u.Role,
			"account_state": u.AccountState,
			"created_at":    u.CreatedAt,
		})
	}
	response.Success(c, gin.H{"page": page, "page_size": pageSize, "list": list})
}
