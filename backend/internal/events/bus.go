package events

import (
	"context"
	"encoding/json"
	"log"

	redis "github.com/redis/go-redis/v9"
)

// Channel 是所有后端进程共享的唯一广播频道。
// 用单一频道而不是按会话分频道：每个进程只持有一个订阅，
// 网关水平扩容时不需要随用户进出房间动态订阅/退订，
// 代价是小规模的全量广播扇出。
const Channel = "events:broadcast"

// Bus 把进程内事件桥接到多进程实时投递。
// 投递是尽力而为的：状态变更在 Publish 之前已经落库，
// 丢一次发布只是少推一次实时通知，数据不会丢。
type Bus struct {
	rdb *redis.Client
}

func NewBus(rdb *redis.Client) *Bus {
	return &Bus{rdb: rdb}
}

// Publish 每次触发写入只发布一次。失败由调用方记日志后吞掉。
func (b *Bus) Publish(ctx context.Context, env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, Channel, data).Err()
}

// Subscribe 进程启动时调用一次，对总线上每个信封调用 handler。
// handler 在单个 goroutine 里串行执行，同一会话的信封保持发布顺序。
// 解不开的载荷记日志后丢弃，不会打断订阅循环。
func (b *Bus) Subscribe(ctx context.Context, handler func(Envelope)) *redis.PubSub {
	pubsub := b.rdb.Subscribe(ctx, Channel)
	go func() {
		ch := pubsub.Channel()
		for msg := range ch {
			var env Envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				log.Printf("events: drop malformed envelope: %v", err)
				continue
			}
			handler(env)
		}
	}()
	return pubsub
}
