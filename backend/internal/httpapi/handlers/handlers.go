package handlers

import (
	"strconv"

	"marketplace-service/backend/internal/cache"
	"marketplace-service/backend/internal/events"
	"marketplace-service/backend/internal/notify"
	"marketplace-service/backend/internal/repo"

	"github.com/gin-gonic/gin"
)

// Handlers 持有 HTTP 层依赖；路由注册见 cmd 里的装配代码
type Handlers struct {
	Store         *cache.Store
	Bus           *events.Bus
	Presence      cache.PresenceRegistry
	Audit         *notify.Dispatcher
	Users         repo.UserRepo
	Chats         repo.ChatRepo
	Messages      repo.MessageRepo
	Notifications repo.NotificationRepo
	Bookings      repo.BookingRepo
}

// 从gin.Context获取用户信息；gin.Context对每个用户天然隔离
func currentUserID(c *gin.Context) (uint64, bool) {
	v, exists := c.Get("userId")
	if !exists {
		return 0, false
	}
	id, ok := v.(uint64)
	return id, ok
}

// 分页参数统一解析，非法值回落到默认并夹在上限以内
func pageParams(c *gin.Context) (page, limit int) {
	page, limit = 1, 10
	if v, err := strconv.Atoi(c.Query("page")); err == nil && v > 0 {
		page = v
	}
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 {
		limit = v
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}
