package ws

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"marketplace-service/backend/internal/cache"
	"marketplace-service/backend/internal/entity"
	"marketplace-service/backend/internal/events"
	"marketplace-service/backend/internal/repo"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	redis "github.com/redis/go-redis/v9"
)

// 全局的WebSocket upgrader（允许本地开发环境的来源）
var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || origin == "null" { // 一些环境可能不发送 Origin，或为 "null"
		return true
	}
	allowedPrefixes := []string{
		"http://localhost",
		"http://127.0.0.1",
		"https://localhost",
		"https://127.0.0.1",
	}
	for _, p := range allowedPrefixes {
		if strings.HasPrefix(origin, p) {
			return true
		}
	}
	return false
}}

// Gateway 把总线事件分发到本进程持有的连接上。
// 本进程产生的写入也不直接发给本地 socket：统一先落库再走总线，
// 投递逻辑只存在一条代码路径，多实例行为一致。
type Gateway struct {
	hub      *Hub
	presence cache.PresenceRegistry
	bus      *events.Bus
	store    *cache.Store
	users    repo.UserRepo
	chats    repo.ChatRepo
	messages repo.MessageRepo
}

func NewGateway(hub *Hub, presence cache.PresenceRegistry, bus *events.Bus, store *cache.Store,
	users repo.UserRepo, chats repo.ChatRepo, messages repo.MessageRepo) *Gateway {
	return &Gateway{hub: hub, presence: presence, bus: bus, store: store,
		users: users, chats: chats, messages: messages}
}

// Run 订阅广播频道，进程启动时调用一次
func (g *Gateway) Run(ctx context.Context) *redis.PubSub {
	return g.bus.Subscribe(ctx, g.dispatch)
}

// dispatch 按信封类型扇出到房间；同一信封对同一连接最多投递一次
// （receive_message 与 message_notification 面向不同房间，属于不同消息）
func (g *Gateway) dispatch(env events.Envelope) {
	ctx := context.Background()
	switch env.Type {
	case events.EventStatus:
		p := env.Status
		g.hub.BroadcastAll(ServerMessage{Type: "user_status_change", UserID: p.UserID, Status: p.Status})
		// 状态变化后顺带广播一份最新在线列表，失败只影响这份快照
		users, err := g.presence.OnlineUsers(ctx)
		if err != nil {
			log.Printf("gateway: online users after status change: %v", err)
			return
		}
		g.hub.BroadcastAll(ServerMessage{Type: "online_users_list", Users: users})

	case events.EventMessage:
		p := env.Message
		msg := p.Message
		g.hub.EmitToRoom(chatRoom(p.ChatID), ServerMessage{Type: "receive_message", ChatID: p.ChatID, Message: &msg})
		// 接收方个人房间收到轻量提醒；发送者名字查不到时留空
		senderName := ""
		if sender, err := g.users.GetUser(ctx, msg.SenderID); err == nil {
			senderName = sender.DisplayName
		} else {
			log.Printf("gateway: resolve sender %d: %v", msg.SenderID, err)
		}
		g.hub.EmitToRoom(userRoom(p.ReceiverID), ServerMessage{
			Type:       "message_notification",
			ChatID:     p.ChatID,
			SenderName: senderName,
			Preview:    messagePreview(msg.Content),
		})

	case events.EventNotification:
		p := env.Notification
		g.hub.EmitToRoom(userRoom(p.UserID), ServerMessage{Type: "notification", Notification: p})

	default:
		// Subscribe 解码阶段已拒绝未知类型，这里兜底记一条
		log.Printf("gateway: drop envelope with unknown type %q", env.Type)
	}
}

// HandleConnect 升级 HTTP 连接为 WebSocket 并托管其生命周期。
// 身份缺失时在升级前拒绝，不产生半开的 socket。
func (g *Gateway) HandleConnect(c *gin.Context) {
	userID := c.GetUint64("userId")
	username := c.GetString("username")
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": gin.H{"code": "UNAUTHENTICATED", "message": "missing identity"}})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v (origin=%s)", err, c.Request.Header.Get("Origin"))
		return
	}
	// defer：用于延迟执行（延迟至return处）
	defer conn.Close()

	wsConn := NewConn(conn, g, userID, username)

	// 先启动写循环，确保后续写入 send 通道的消息可以被及时发送
	go wsConn.writeLoop()

	// 抢在读循环之前加入个人房间，保证定向通知不落空
	g.hub.Join(userRoom(userID), wsConn)

	ctx := c.Request.Context()
	becameOnline, err := g.presence.Connect(ctx, userID)
	if err != nil {
		log.Printf("presence connect error (user=%d): %v", userID, err)
	}
	if becameOnline {
		if err := g.bus.Publish(ctx, events.NewStatusEnvelope(userID, "online")); err != nil {
			log.Printf("publish online status error (user=%d): %v", userID, err)
		}
	}

	// 给新连接发一份当前在线列表
	if users, err := g.presence.OnlineUsers(ctx); err == nil {
		wsConn.send <- ServerMessage{Type: "online_users_list", Users: users}
	} else {
		log.Printf("online users on connect error (user=%d): %v", userID, err)
	}

	// 最后再进入读循环（阻塞至连接关闭）
	wsConn.readLoop(ctx)

	// 清理阶段请求上下文可能已取消，用独立的后台上下文
	cleanupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// 顺序不能换：先退出所有房间，确认总线分发再也看不到这条连接，
	// 然后才能关闭发送通道（LeaveAll 拿写锁，进行中的投递都已完成）
	g.hub.LeaveAll(wsConn)
	close(wsConn.send)

	becameOffline, err := g.presence.Disconnect(cleanupCtx, userID)
	if err != nil {
		log.Printf("presence disconnect error (user=%d): %v", userID, err)
	}
	if becameOffline {
		if err := g.bus.Publish(cleanupCtx, events.NewStatusEnvelope(userID, "offline")); err != nil {
			log.Printf("publish offline status error (user=%d): %v", userID, err)
		}
	}
}

// handleSendMessage 持久化消息，失效会话缓存，再发布到总线。
// 顺序不能换：发布必须发生在落库之后，失效必须发生在提交之后。
func (g *Gateway) handleSendMessage(ctx context.Context, c *Conn, cm ClientMessage) {
	if cm.ChatID == "" || cm.Content == "" {
		c.SendMessage_Enqueue(ServerMessage{Type: "error", Content: "MISSING_CHAT_OR_CONTENT"})
		return
	}

	chat, err := g.chats.GetChat(ctx, cm.ChatID)
	if err != nil {
		log.Printf("get chat error (user=%d, chat=%s): %v", c.userID, cm.ChatID, err)
		c.SendMessage_Enqueue(ServerMessage{Type: "error", ChatID: cm.ChatID, Content: "CHAT_NOT_FOUND"})
		return
	}

	receiverID := cm.ReceiverID
	if receiverID == 0 {
		// 未指定接收方时取会话里的对端
		if c.userID == chat.CustomerID {
			receiverID = chat.PerformerID
		} else {
			receiverID = chat.CustomerID
		}
	}

	msg := &entity.Message{
		ChatID:     cm.ChatID,
		SenderID:   c.userID,
		ReceiverID: receiverID,
		Content:    cm.Content,
	}
	if err := g.messages.CreateMessage(ctx, msg); err != nil {
		log.Printf("create message error (user=%d, chat=%s): %v", c.userID, cm.ChatID, err)
		c.SendMessage_Enqueue(ServerMessage{Type: "error", ChatID: cm.ChatID, Content: "SEND_FAILED"})
		return
	}
	if err := g.chats.TouchLastMessage(ctx, cm.ChatID, msg.CreatedAt); err != nil {
		log.Printf("touch last message error (chat=%s): %v", cm.ChatID, err)
	}

	// 写提交之后才失效，避免并发读者用旧数据重建缓存
	g.store.InvalidatePattern(ctx, cache.ListPattern("chat_messages", cm.ChatID))

	if err := g.bus.Publish(ctx, events.NewMessageEnvelope(*msg, cm.ChatID, receiverID)); err != nil {
		// 投递是尽力而为的，消息已经落库
		log.Printf("publish message error (chat=%s): %v", cm.ChatID, err)
	}
}

// messagePreview 截取通知里展示的消息开头
func messagePreview(content string) string {
	const maxRunes = 80
	runes := []rune(content)
	if len(runes) <= maxRunes {
		return content
	}
	return string(runes[:maxRunes]) + "..."
}
