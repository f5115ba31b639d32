package uploader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/ecolink-dev/ecolink/config"
	"github.com/ecolink-dev/ecolink/internal/outbox"
	"github.com/ecolink-dev/ecolink/pkg/logger"
)

const (
	maxFileBytes = 3 << 20 // 单张 ≤ 3MiB
)

// 允许的图片类型（JPG/PNG/WEBP）
var allowedMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// Cloudinary 按序上传图片的协作方实现。
// 逐张签名上传，输出与输入一一对应；网络与 5xx/429 包装为瞬时错误。
type Cloudinary struct {
	cloudName string
	apiKey    string
	apiSecret string
	folder    string
	uploadURL string
	client    *http.Client
}

var _ outbox.Uploader = (*Cloudinary)(nil)

func NewCloudinary(cfg config.CloudinaryConfig) *Cloudinary {
	url := cfg.UploadURL
	if url == "" {
		url = fmt.Sprintf("https://api.cloudinary.com/v1_1/%s/auto/upload", cfg.CloudName)
	}
	return &Cloudinary{
		cloudName: cfg.CloudName,
		apiKey:    cfg.APIKey,
		apiSecret: cfg.APISecret,
		folder:    cfg.Folder,
		uploadURL: url,
		client:    &http.Client{Timeout: 60 * time.Second},
	}
}

type uploadResponse struct {
	SecureURL string `json:"secure_url"`
	PublicID  string `json:"public_id"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Bytes     int64  `json:"bytes"`
	Format    string `json:"format"`
}

// Upload 逐张上传并保持顺序；任一失败整体失败
func (c *Cloudinary) Upload(ctx context.Context, files []outbox.File) ([]outbox.Media, error) {
	if len(files) == 0 {
		return []outbox.Media{}, nil
	}
	if len(files) > outbox.MaxAttachments {
		return nil, outbox.ErrTooManyFiles
	}
	for _, f := range files {
		if !allowedMimeTypes[f.MimeType] {
			return nil, fmt.Errorf("unsupported image type %q", f.MimeType)
		}
		if len(f.Data) > maxFileBytes {
			return nil, fmt.Errorf("image %q exceeds %d bytes", f.Name, maxFileBytes)
		}
	}

	out := make([]outbox.Media, 0, len(files))
	for _, f := range files {
		media, err := c.uploadOne(ctx, f)
		if err != nil {
			return nil, err
		}
		out = append(out, media)
	}
	return out, nil
}

func (c *Cloudinary) uploadOne(ctx context.Context, f outbox.File) (outbox.Media, error) {
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	params := map[string]string{"timestamp": timestamp, "folder": c.folder}
	signature := SignParams(params, c.apiSecret)

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", f.Name)
	if err != nil {
		return outbox.Media{}, err
	}
	if _, err := part.Write(f.Data); err != nil {
		return outbox.Media{}, err
	}
	for k, v := range map[string]string{
		"api_key":   c.apiKey,
		"timestamp": timestamp,
		"folder":    c.folder,
		"signature": signature,
	} {
		if err := w.WriteField(k, v); err != nil {
			return outbox.Media{}, err
		}
	}
	if err := w.Close(); err != nil {
		return outbox.Media{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadURL, &body)
	if err != nil {
		return outbox.Media{}, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return outbox.Media{}, fmt.Errorf("%w: upload %q: %v", outbox.ErrTransient, f.Name, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return outbox.Media{}, fmt.Errorf("%w: read upload response: %v", outbox.ErrTransient, err)
	}
	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return outbox.Media{}, fmt.Errorf("%w: upload %q: status %d", outbox.ErrTransient, f.Name, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return outbox.Media{}, fmt.Errorf("upload %q rejected: status %d: %s", f.Name, resp.StatusCode, raw)
	}

	var ur uploadResponse
	if err := json.Unmarshal(raw, &ur); err != nil {
		return outbox.Media{}, fmt.Errorf("decode upload response: %w", err)
	}
	if ur.SecureURL == "" {
		logger.Warn("cloudinary response without secure_url", zap.String("file", f.Name))
		return outbox.Media{}, fmt.Errorf("upload %q: missing secure_url", f.Name)
	}
	return outbox.Media{
		URL:        ur.SecureURL,
		ProviderID: ur.PublicID,
		Width:      ur.Width,
		Height:     ur.Height,
		Bytes:      ur.Bytes,
		Format:     ur.Format,
	}, nil
}
