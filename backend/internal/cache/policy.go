package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultTTL = 48 * time.Hour   // 默认保留两天
	SearchTTL  = 5 * time.Minute  // 搜索结果易变，短过期
	Jitter     = 60 * time.Minute // 随机抖动范围，防止缓存雪崩
)

// Store 是共享 KV 存储的句柄，读穿透与失效都经过它。
// 缓存永远只是优化：Redis 不可用时所有读路径直接回源。
type Store struct {
	rdb *redis.Client
	sf  *singleflight.Group
}

func NewStore(rdb *redis.Client) *Store {
	return &Store{rdb: rdb, sf: &singleflight.Group{}}
}

// 获取随机TTL，防止同一批键同时过期
func withJitter(ttl time.Duration) time.Duration {
	return ttl + time.Duration(rand.Int63n(int64(Jitter)))
}

// FetchCached 读穿透：先查缓存，命中直接返回；
// 未命中则调用 computeFn 回源，结果非 nil 时写回缓存。
// - ttl <= 0 时使用 DefaultTTL（加抖动）
// - 缓存读写出错只记日志，降级为直接回源，不向上抛
// - computeFn 返回 nil 不缓存（下次继续回源）；空集合是合法结果，照常缓存
// - 写回失败时 computeFn 的结果原样返回
func FetchCached[T any](
	ctx context.Context,
	s *Store,
	key string,
	ttl time.Duration,
	computeFn func(context.Context) (*T, error),
) (*T, error) {
	data, err := s.rdb.Get(ctx, key).Bytes()
	if err == nil {
		var v T
		if err := json.Unmarshal(data, &v); err == nil {
			return &v, nil
		}
		// 反序列化失败当作未命中处理（坏条目会被下面的写回覆盖）
		log.Printf("cache: bad entry for key %s, recomputing", key)
	} else if !errors.Is(err, redis.Nil) {
		// Redis 故障：记日志并直接回源，正确性不依赖缓存可用性
		log.Printf("cache: get %s failed, falling back to source: %v", key, err)
		return computeFn(ctx)
	}

	// Singleflight 合并同键并发回源，防止缓存击穿
	val, err, _ := s.sf.Do(key, func() (interface{}, error) {
		// 拿到执行权后再查一次，别的请求可能已经填好了
		if data, err := s.rdb.Get(ctx, key).Bytes(); err == nil {
			var v T
			if err := json.Unmarshal(data, &v); err == nil {
				return &v, nil
			}
		}

		v, err := computeFn(ctx)
		if err != nil {
			return nil, err
		}
		if v == nil {
			// nil 不缓存：契约要求下一次读必须重新回源
			return (*T)(nil), nil
		}

		data, err := json.Marshal(v)
		if err != nil {
			log.Printf("cache: marshal for key %s failed: %v", key, err)
			return v, nil
		}
		if ttl <= 0 {
			ttl = withJitter(DefaultTTL)
		}
		if err := s.rdb.Set(ctx, key, data, ttl).Err(); err != nil {
			// 写回失败不影响本次结果
			log.Printf("cache: set %s failed: %v", key, err)
		}
		return v, nil
	})
	if err != nil {
		return nil, err
	}
	result, ok := val.(*T)
	if !ok {
		return nil, errors.New("cache: internal type error")
	}
	return result, nil
}
