package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ecolink-dev/ecolink/internal/auth"
	"github.com/ecolink-dev/ecolink/internal/model"
	"github.com/ecolink-dev/ecolink/pkg/response"
)

// 上下文键
const (
	CtxUID   = "uid"
	CtxEmail = "email"
	CtxRole  = "role"
)

// Auth 校验 Bearer 令牌并检查吊销水位，通过后注入 uid/email/role
func Auth(secret string, revocations *auth.RevocationStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			response.Unauthorized(c, "missing or malformed bearer token")
			return
		}

		claims, err := auth.ParseToken(secret, token)
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			return
		}

		if revocations != nil && claims.IssuedAt != nil {
			revoked, err := revocations.IsRevoked(c.Request.Context(), claims.UID, claims.IssuedAt.Time)
			if err != nil {
				response.Unauthorized(c, "token verification failed")
				return
			}
			if revoked {
				response.Unauthorized(c, "token revoked, sign in again")
				return
			}
		}

		c.Set(CtxUID, claims.UID)
		c.Set(CtxEmail, claims.Email)
		c.Set(CtxRole, claims.Role)
		c.Next()
	}
}

// RequireAdmin 仅 admin 可过
func RequireAdmin() gin.HandlerFunc {
	return RequireRoles(model.RoleAdmin)
}

// RequireRoles 角色白名单
func RequireRoles(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *gin.Context) {
		if !allowed[c.GetString(CtxRole)] {
			response.Forbidden(c, "insufficient role")
			return
		}
		c.Next()
	}
}
