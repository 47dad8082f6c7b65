package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// OnlineUsers 返回当前心跳存活的在线用户ID。
// 不走读穿透缓存：presence 本身就在 Redis 里，再包一层缓存只会放大延迟
func (h *Handlers) OnlineUsers(c *gin.Context) {
	users, err := h.Presence.OnlineUsers(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": "INTERNAL", "message": "online users failed"})
		return
	}
	if users == nil {
		users = []uint64{}
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}
