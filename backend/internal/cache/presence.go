package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// 键语义：
// - presence:online             在线用户ID集合（Set<userId>）
// - presence:conn_count         userId -> 活跃连接数（Hash），同一用户多端/多标签页
// - presence:alive:{userId}     心跳键（String "1"，带 TTL），进程崩溃不发离线时靠它兜底
const (
	presenceSetKey   = "presence:online"
	presenceCountKey = "presence:conn_count"
	keyAliveFmt      = "presence:alive:%d"
)

func aliveKey(userID uint64) string { return fmt.Sprintf(keyAliveFmt, userID) }

// 默认心跳TTL；客户端心跳间隔应明显小于它
const AliveTTL = 90 * time.Second

type PresenceRegistry interface {
	// Connect 注册一条连接；0→1 时返回 true（该用户刚上线）
	Connect(ctx context.Context, userID uint64) (bool, error)
	// Disconnect 注销一条连接；1→0 时返回 true（该用户已离线）
	Disconnect(ctx context.Context, userID uint64) (bool, error)
	// Heartbeat 刷新心跳键的 TTL
	Heartbeat(ctx context.Context, userID uint64) error
	// OnlineUsers 返回心跳仍然存活的在线用户
	OnlineUsers(ctx context.Context) ([]uint64, error)
}

type redisPresence struct {
	rdb *redis.Client
}

func NewRedisPresence(rdb *redis.Client) PresenceRegistry {
	return &redisPresence{rdb: rdb}
}

func (p *redisPresence) Connect(ctx context.Context, userID uint64) (bool, error) {
	// became： 1：连接数 0→1（本次上线），0：已经在线（多开一条连接）
	// 计数与集合必须一起动，否则并发 connect/disconnect 会把集合弄脏
	const connectScript = `
	local n = redis.call("HINCRBY", KEYS[1], ARGV[1], 1)
	redis.call("SET", KEYS[3], "1", "EX", ARGV[2])
	if n == 1 then
		redis.call("SADD", KEYS[2], ARGV[1])
		return 1
	end
	return 0
	`
	res, err := p.rdb.Eval(ctx, connectScript,
		[]string{presenceCountKey, presenceSetKey, aliveKey(userID)},
		userID, int(AliveTTL.Seconds()),
	).Result()
	if err != nil {
		return false, err
	}
	n, ok := res.(int64)
	if !ok {
		return false, fmt.Errorf("unexpected eval result: %T", res)
	}
	return n == 1, nil
}

func (p *redisPresence) Disconnect(ctx context.Context, userID uint64) (bool, error) {
	// 兜底：计数不允许变负（即使外部出现异常调用也能兜住）
	const disconnectScript = `
	local n = redis.call("HINCRBY", KEYS[1], ARGV[1], -1)
	if n <= 0 then
		redis.call("HDEL", KEYS[1], ARGV[1])
		redis.call("SREM", KEYS[2], ARGV[1])
		redis.call("DEL", KEYS[3])
		return 1
	end
	return 0
	`
	res, err := p.rdb.Eval(ctx, disconnectScript,
		[]string{presenceCountKey, presenceSetKey, aliveKey(userID)},
		userID,
	).Result()
	if err != nil {
		return false, err
	}
	n, ok := res.(int64)
	if !ok {
		return false, fmt.Errorf("unexpected eval result: %T", res)
	}
	return n == 1, nil
}

func (p *redisPresence) Heartbeat(ctx context.Context, userID uint64) error {
	return p.rdb.Set(ctx, aliveKey(userID), "1", AliveTTL).Err()
}

func (p *redisPresence) OnlineUsers(ctx context.Context) ([]uint64, error) {
	// step1: 取集合成员
	ids, err := p.rdb.SMembers(ctx, presenceSetKey).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	// step2: 管道检查心跳键，过滤掉崩溃进程留下的孤儿条目
	existscmds := make([]*redis.IntCmd, 0, len(ids))
	pipe := p.rdb.Pipeline()
	userIDs := make([]uint64, 0, len(ids))
	for _, id := range ids {
		uid, err := strconv.ParseUint(id, 10, 64)
		if err != nil {
			return nil, err
		}
		userIDs = append(userIDs, uid)
		existscmds = append(existscmds, pipe.Exists(ctx, aliveKey(uid)))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}

	alive := make([]uint64, 0, len(userIDs))
	for i, cmd := range existscmds {
		if cmd.Val() == 1 {
			alive = append(alive, userIDs[i])
		}
	}
	return alive, nil
}
