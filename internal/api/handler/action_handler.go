package handler

import (
	"encoding/json"
	"io"

	"github.com/gin-gonic/gin"

	"github.com/ecolink-dev/ecolink/internal/api/middleware"
	"github.com/ecolink-dev/ecolink/internal/model"
	"github.com/ecolink-dev/ecolink/internal/outbox"
	"github.com/ecolink-dev/ecolink/pkg/response"
)

type createActionForm struct {
	Description string `form:"description" binding:"required"`
	Category    string `form:"category" binding:"required,category"`
	Zone        string `form:"zone"`
	AuthorName  string `form:"author_name"`
}

// CreateAction 提交行动（multipart，最多 4 张图；离线自动入队）
// @Summary 提交行动
// @Tags 行动
// @Accept mpfd
// @Produce json
// @Security BearerAuth
// @Param description formData string true "描述"
// @Param category formData string true "类别"
// @Param zone formData string false "区域"
// @Param photos formData file false "图片（≤4）"
// @Success 200 {object} response.Response{data=service.PublishResult}
// @Failure 400 {object} response.Response
// @Router /api/v1/actions [post]
func (h *Handler) CreateAction(c *gin.Context) {
	var req createActionForm
	if err := c.ShouldBind(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	authorName := req.AuthorName
	if authorName == "" {
		authorName = c.GetString(middleware.CtxEmail)
	}
	meta := map[string]any{
		"author_uid":  c.GetString(middleware.CtxUID),
		"author_name": authorName,
		"description": req.Description,
		"category":    req.Category,
	}
	if req.Zone != "" {
		meta["zone"] = req.Zone
	}

	files, err := collectFiles(c)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.actions.Publish(c.Request.Context(), meta, files)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	response.Success(c, result)
}

// collectFiles 读取 multipart 中的 photos 字段为内存附件
func collectFiles(c *gin.Context) ([]outbox.File, error) {
	form, err := c.MultipartForm()
	if err != nil {
		// 纯表单无文件
		return nil, nil
	}
	var files []outbox.File
	for _, fh := range form.File["photos"] {
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			return nil, err
		}
		files = append(files, outbox.File{
			Name:     fh.Filename,
			MimeType: fh.Header.Get("Content-Type"),
			Data:     data,
		})
	}
	return files, nil
}

// ListActions 行动 feed（创建时间倒序）
// @Summary 行动列表
// @Tags 行动
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /api/v1/actions [get]
func (h *Handler) ListActions(c *gin.Context) {
	list, err := h.actions.List(c.Request.Context())
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, gin.H{"list": list})
}

// ApproveAction 审核通过（组织/管理员）
// @Summary 审核行动
// @Tags 行动
// @Produce json
// @Security BearerAuth
// @Param id path string true "行动ID"
// @Success 200 {object} response.Response
// @Router /api/v1/actions/{id}/approve [post]
func (h *Handler) ApproveAction(c *gin.Context) {
	if err := h.actions.Approve(c.Request.Context(), c.Param("id")); err != nil {
		response.NotFound(c, err.Error())
		return
	}
	response.Success(c, nil)
}

// FlushOutbox 手动触发一次 drain
// @Summary 刷新外发队列
// @Tags 外发队列
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /api/v1/outbox/flush [post]
func (h *Handler) FlushOutbox(c *gin.Context) {
	n, err := h.actions.Flush(c.Request.Context())
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, gin.H{"committed": n})
}

// PendingOutbox 查看积压条数
// @Summary 外发队列积压
// @Tags 外发队列
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /api/v1/outbox/pending [get]
func (h *Handler) PendingOutbox(c *gin.Context) {
	n, err := h.actions.PendingCount(c.Request.Context())
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, gin.H{"pending": n})
}

type failedItemView struct {
	ID        string         `json:"id"`
	Meta      map[string]any `json:"meta"`
	CreatedAt int64          `json:"created_at"`
	FailedAt  int64          `json:"failed_at"`
	Reason    string         `json:"reason"`
	Files     int            `json:"files"`
}

// ListFailed 死信列表（仅 admin）
// @Summary 死信列表
// @Tags 外发队列
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /api/v1/outbox/failed [get]
func (h *Handler) ListFailed(c *gin.Context) {
	items, err := h.failed.List(c.Request.Context())
	if err != nil {
		response.InternalError(c, err)
		return
	}
	views := make([]failedItemView, 0, len(items))
	for _, it := range items {
		views = append(views, toFailedView(it))
	}
	response.Success(c, gin.H{"list": views})
}

func toFailedView(it *model.FailedItem) failedItemView {
	var meta map[string]any
	_ = json.Unmarshal(it.Meta, &meta)
	return failedItemView{
		ID:        it.ID,
		Meta:      meta,
		CreatedAt: it.CreatedAt,
		FailedAt:  it.FailedAt,
		Reason:    it.Reason,
		Files:     len(it.Files),
	}
}

// RequeueFailed 死信重新入队（保留原顺序位）
// @Summary 死信重投
// @Tags 外发队列
// @Produce json
// @Security BearerAuth
// @Param id path string true "死信ID"
// @Success 200 {object} response.Response
// @Router /api/v1/outbox/failed/{id}/requeue [post]
func (h *Handler) RequeueFailed(c *gin.Context) {
	if err := h.failed.Requeue(c.Request.Context(), c.Param("id")); err != nil {
		response.NotFound(c, err.Error())
		return
	}
	response.Success(c, nil)
}

// DeleteFailed 清除死信
// @Summary 删除死信
// @Tags 外发队列
// @Produce json
// @Security BearerAuth
// @Param id path string true "死信ID"
// @Success 200 {object} response.Response
// @Router /api/v1/outbox/failed/{id} [delete]
func (h *Handler) DeleteFailed(c *gin.Context) {
	if err := h.failed.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, nil)
}
