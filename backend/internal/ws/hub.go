package ws

import "sync"

// Hub 维护房间到活跃连接的映射。
// 连接没有全局注册表，只有房间成员关系；每个连接至少在
// 自己的个人房间里，所以 BroadcastAll 用去重遍历实现。
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*Conn]struct{}
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[*Conn]struct{})}
}

func (h *Hub) Join(room string, c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Conn]struct{})
		h.rooms[room] = members
	}
	members[c] = struct{}{}
}

func (h *Hub) Leave(room string, c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.rooms[room]
	if !ok {
		return
	}
	delete(members, c)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
}

// LeaveAll 在连接关闭时把它从所有房间摘除
func (h *Hub) LeaveAll(c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for room, members := range h.rooms {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

// EmitToRoom 向房间内每个连接投递一次；房间不存在时静默返回
func (h *Hub) EmitToRoom(room string, msg OutboundMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[room] {
		c.SendMessage_Enqueue(msg)
	}
}

// BroadcastAll 向每个连接投递一次，跨房间去重
func (h *Hub) BroadcastAll(msg OutboundMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	seen := make(map[*Conn]struct{})
	for _, members := range h.rooms {
		for c := range members {
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			c.SendMessage_Enqueue(msg)
		}
	}
}

func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}
