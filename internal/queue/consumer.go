package queue

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"time"

	"errand_market/internal/model"
	rediskey "errand_market/pkg/redis"

	rd "github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"gorm.io/gorm"
)

// Consumer 消费生命周期事件并写入 request_events 审计表。
// 幂等性两层兜底：Redis SETNX 快速去重 + event_id UNIQUE 约束。
type Consumer struct {
	r   *kafka.Reader
	db  *gorm.DB
	rdb *rd.Client
}

func NewConsumer(brokers []string, topic, groupID string, db *gorm.DB, rdb *rd.Client) *Consumer {
	return &Consumer{
		r: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    topic,
			GroupID:  groupID,
			MinBytes: 1e3,
			MaxBytes: 1e6,
		}),
		db:  db,
		rdb: rdb,
	}
}

func (c *Consumer) Close() error { return c.r.Close() }

func (c *Consumer) Run(ctx context.Context) {
	for {
		m, err := c.r.ReadMessage(ctx)
		if err != nil {
			return // ctx cancel / 连接断开等
		}

		var ev LifecycleEvent
		if err := json.Unmarshal(m.Value, &ev); err != nil {
			log.Printf("consumer unmarshal: %v", err)
			continue
		}
		if err := ev.Validate(); err != nil {
			log.Printf("consumer invalid event: %v", err)
			continue
		}

		// 快速去重：重复投递的消息直接跳过。Redis 不可用时退回 DB 约束。
		if c.rdb != nil {
			fresh, err := rediskey.MarkOnce(ctx, c.rdb, rediskey.EventSeenKey(ev.EventID), 7*24*time.Hour)
			if err == nil && !fresh {
				continue
			}
		}

		row := &model.RequestEvent{
			EventID:    ev.EventID,
			RequestID:  ev.RequestID,
			EventType:  ev.Type,
			ActorID:    ev.ActorID,
			OccurredAt: time.Unix(ev.OccurredAt, 0).UTC(),
		}

		if err := c.db.Create(row).Error; err != nil {
			// 幂等：重复消息导致 UNIQUE 冲突，直接当作成功
			if errorsLikeUnique(err) {
				continue
			}
			log.Printf("consumer db create: %v", err)
			continue
		}
	}
}

func errorsLikeUnique(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	return strings.Contains(s, "UNIQUE") ||
		strings.Contains(s, "unique") ||
		strings.Contains(s, "duplicate key")
}
