package redis

import (
	"context"
	"time"

	rd "github.com/redis/go-redis/v9"
)

// MarkOnce 以 SETNX 语义标记一次性动作：
// - 首次标记返回 true
// - 重复标记返回 false
func MarkOnce(ctx context.Context, rdb *rd.Client, key string, ttl time.Duration) (bool, error) {
	return rdb.SetNX(ctx, key, "1", ttl).Result()
}
