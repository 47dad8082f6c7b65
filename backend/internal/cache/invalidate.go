package cache

import (
	"context"
	"log"
)

// 失效批量删除时每批 DEL 的键数量上限
const invalidateBatch = 100

// InvalidateKeys 删除若干精确键。
// 失效失败只记日志：后果是"脏到TTL为止"，不是请求失败。
func (s *Store) InvalidateKeys(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		log.Printf("cache: invalidate keys %v failed: %v", keys, err)
	}
}

// InvalidatePattern 删除所有匹配通配模式的键。
// 用 SCAN 增量迭代而不是一次性 KEYS：大键空间下不会阻塞并发流量。
// 写路径必须在持久化提交之后调用，否则并发读可能用旧数据重新填充缓存。
func (s *Store) InvalidatePattern(ctx context.Context, pattern string) {
	batch := make([]string, 0, invalidateBatch)
	iter := s.rdb.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) >= invalidateBatch {
			if err := s.rdb.Del(ctx, batch...).Err(); err != nil {
				log.Printf("cache: invalidate pattern %s failed: %v", pattern, err)
				return
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		log.Printf("cache: scan pattern %s failed: %v", pattern, err)
		return
	}
	if len(batch) > 0 {
		if err := s.rdb.Del(ctx, batch...).Err(); err != nil {
			log.Printf("cache: invalidate pattern %s failed: %v", pattern, err)
		}
	}
}
