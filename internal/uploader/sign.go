package uploader

import (
	"crypto/sha1"
	"encoding/hex"
	"sort"
	"strings"
)

// SignParams 生成签名：参数按 key 排序拼成 k=v&k2=v2，追加 secret 后取 SHA-1 十六进制
// （与 Cloudinary api_sign_request 一致）
func SignParams(params map[string]string, secret string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}
	sum := sha1.Sum([]byte(strings.Join(pairs, "&") + secret))
	return hex.EncodeToString(sum[:])
}
