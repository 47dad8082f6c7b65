package ws

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
)

// 单次写入的超时上限；写不动说明对端早已停止消费
const writeWait = 10 * time.Second

type Conn struct {
	ws       *websocket.Conn
	gw       *Gateway
	userID   uint64
	username string
	// chan是 Go 的“通道”（channel），是 goroutine 之间通信的队列。send chan OutboundMessage 表示一个只能存放 OutboundMessage 的队列。
	send chan OutboundMessage
}

func NewConn(ws *websocket.Conn, gw *Gateway, userID uint64, username string) *Conn {
	return &Conn{ws: ws, gw: gw, userID: userID, username: username, send: make(chan OutboundMessage, 32)}
}

func (c *Conn) SendMessage_Enqueue(msg OutboundMessage) {
	// select 语句是 Go 的“多路复用”机制，用于同时监听多个通道操作，并选择其中一个执行。
	// 同时评估所有 case 的通道操作
	// 如果多个 case 都就绪，随机选择一个执行
	select {
	case c.send <- msg:
	default:
		// 如果队列满了，则丢弃消息
	}
}

// readLoop 不负责关闭 send 通道：总线分发随时可能向它投递，
// 必须先把连接从所有房间摘掉才能关通道（见 HandleConnect 的清理顺序）
func (c *Conn) readLoop(ctx context.Context) {
	for {
		var clientMessage ClientMessage
		if err := c.ws.ReadJSON(&clientMessage); err != nil {
			log.Printf("read json error (user=%d): %v", c.userID, err)
			return
		}
		switch clientMessage.Type {
		case "heartbeat":
			// 心跳只刷新 presence 活性，不改变房间成员关系
			if err := c.gw.presence.Heartbeat(ctx, c.userID); err != nil {
				log.Printf("presence heartbeat error (user=%d): %v", c.userID, err)
			}
			c.send <- ServerMessage{Type: "feedback", Content: "Heartbeat received"}

		case "join_room":
			// 个人房间在建连时已经加入过了，这里是幂等的，
			// 作为回应把当前在线列表发回去
			c.gw.hub.Join(userRoom(c.userID), c)
			users, err := c.gw.presence.OnlineUsers(ctx)
			if err != nil {
				log.Printf("online users error (user=%d): %v", c.userID, err)
				c.send <- ServerMessage{Type: "error", Content: "ONLINE_USERS_FAILED"}
				continue
			}
			c.send <- ServerMessage{Type: "online_users_list", Users: users}

		case "join_chat":
			if clientMessage.ChatID == "" {
				c.send <- ServerMessage{Type: "error", Content: "MISSING_CHAT_ID"}
				continue
			}
			// 加入会话房间前先确认会话存在
			if _, err := c.gw.chats.GetChat(ctx, clientMessage.ChatID); err != nil {
				log.Printf("get chat error (user=%d, chat=%s): %v", c.userID, clientMessage.ChatID, err)
				c.send <- ServerMessage{Type: "error", ChatID: clientMessage.ChatID, Content: "CHAT_NOT_FOUND"}
				continue
			}
			c.gw.hub.Join(chatRoom(clientMessage.ChatID), c)
			c.send <- ServerMessage{Type: "feedback", ChatID: clientMessage.ChatID, Content: "Chat " + clientMessage.ChatID + " joined by user " + strconv.FormatUint(c.userID, 10)}

		case "send_message":
			c.gw.handleSendMessage(ctx, c, clientMessage)

		default:
			// 忽略未知类型，或回一条提示
			c.send <- ServerMessage{Type: "ignored", Content: "Unknown message type"}
		}
	}
}

func (c *Conn) writeLoop() {
	// 持续消费通道中的OutboundMessage
	for msg := range c.send {
		_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.ws.WriteJSON(msg); err != nil {
			// 写失败（含超时）说明连接已坏：关掉底层连接让读循环尽快退出，
			// 继续排空通道直到清理方把它关闭
			_ = c.ws.Close()
		}
	}
}
