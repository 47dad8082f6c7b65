package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"marketplace-service/backend/internal/cache"
	"marketplace-service/backend/internal/entity"
	"marketplace-service/backend/internal/repo"

	"github.com/gin-gonic/gin"
)

func notificationsOwner(userID uint64) string {
	return strconv.FormatUint(userID, 10)
}

// ListNotifications 分页返回当前用户的通知
func (h *Handlers) ListNotifications(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"code": "UNAUTHENTICATED", "message": "missing identity"})
		return
	}
	page, limit := pageParams(c)

	key := cache.ListKey("notifications", notificationsOwner(userID), page, limit, "")
	notifications, err := cache.FetchCached(c.Request.Context(), h.Store, key, 0,
		func(ctx context.Context) (*[]entity.Notification, error) {
			ns, err := h.Notifications.ListByUser(ctx, userID, page, limit)
			if err != nil {
				return nil, err
			}
			return &ns, nil
		})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": "INTERNAL", "message": "list notifications failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": *notifications, "page": page, "limit": limit})
}

// MarkNotificationRead 把一条通知标记为已读。
// 只有通知归属者能标记；成功后失效该用户的通知列表缓存。
func (h *Handlers) MarkNotificationRead(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"code": "UNAUTHENTICATED", "message": "missing identity"})
		return
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "BAD_REQUEST", "message": "invalid notification id"})
		return
	}

	if err := h.Notifications.MarkRead(c.Request.Context(), id, userID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"code": "NOT_FOUND", "message": "notification not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"code": "INTERNAL", "message": "mark read failed"})
		return
	}

	// 写提交之后才失效
	h.Store.InvalidatePattern(c.Request.Context(), cache.ListPattern("notifications", notificationsOwner(userID)))
	c.JSON(http.StatusOK, gin.H{"id": id, "read": true})
}
