package queue

import (
	"context"
	"strconv"

	rd "github.com/redis/go-redis/v9"
)

// StreamOutbox 把生命周期事件原子写入 Redis Stream，
// 由 Relay 异步转投 Kafka（API 路径上不直接依赖 Kafka 可用性）。
type StreamOutbox struct {
	rdb    *rd.Client
	stream string
}

func NewStreamOutbox(rdb *rd.Client, stream string) *StreamOutbox {
	return &StreamOutbox{rdb: rdb, stream: stream}
}

func (o *StreamOutbox) Emit(ctx context.Context, ev LifecycleEvent) error {
	if err := ev.Validate(); err != nil {
		return err
	}
	return o.rdb.XAdd(ctx, &rd.XAddArgs{
		Stream: o.stream,
		Values: map[string]interface{}{
			"event_id":    ev.EventID,
			"request_id":  strconv.FormatInt(ev.RequestID, 10),
			"type":        ev.Type,
			"actor_id":    strconv.FormatInt(ev.ActorID, 10),
			"occurred_at": strconv.FormatInt(ev.OccurredAt, 10),
		},
	}).Err()
}
