package auth

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevocationStore 按用户记录令牌吊销水位：
// 吊销即写入 uid -> 当前时刻，之后签发时间早于水位的令牌一律拒绝
// （对应改角色后强制重新登录的语义）。
type RevocationStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRevocationStore ttl 取令牌有效期即可，水位过期后旧令牌也已失效
func NewRevocationStore(rdb *redis.Client, ttl time.Duration) *RevocationStore {
	return &RevocationStore{rdb: rdb, ttl: ttl}
}

func (s *RevocationStore) key(uid string) string { return fmt.Sprintf("revoked:%s", uid) }

// Revoke 吊销该用户当前所有已签发令牌
func (s *RevocationStore) Revoke(ctx context.Context, uid string) error {
	return s.rdb.Set(ctx, s.key(uid), time.Now().Unix(), s.ttl).Err()
}

// IsRevoked 签发时间早于吊销水位则视为已吊销
func (s *RevocationStore) IsRevoked(ctx context.Context, uid string, issuedAt time.Time) (bool, error) {
	val, err := s.rdb.Get(ctx, s.key(uid)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	cutoff, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return false, err
	}
	return issuedAt.Unix() <= cutoff, nil
}
