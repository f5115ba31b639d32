package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ecolink-dev/ecolink/internal/uploader"
	"github.com/ecolink-dev/ecolink/pkg/response"
)

type signRequest struct {
	Folder string `json:"folder"`
}

// SignUpload 下发签名供客户端直传图床（限流）
// @Summary 上传签名
// @Tags 上传
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body signRequest false "目标目录"
// @Success 200 {object} response.Response
// @Failure 429 {object} response.Response
// @Router /api/v1/uploads/sign [post]
func (h *Handler) SignUpload(c *gin.Context) {
	if !h.signLimiter.Allow() {
		response.TooManyRequests(c, "too many sign requests")
		return
	}

	var req signRequest
	_ = c.ShouldBindJSON(&req)
	folder := req.Folder
	if folder == "" {
		folder = h.cloudinary.Folder
	}

	timestamp := time.Now().Unix()
	signature := uploader.SignParams(map[string]string{
		"timestamp": strconv.FormatInt(timestamp, 10),
		"folder":    folder,
	}, h.cloudinary.APISecret)

	response.Success(c, gin.H{
		"timestamp":  timestamp,
		"signature":  signature,
		"api_key":    h.cloudinary.APIKey,
		"cloud_name": h.cloudinary.CloudName,
		"folder":     folder,
	})
}
