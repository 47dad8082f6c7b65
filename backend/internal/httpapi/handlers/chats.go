package handlers

import (
	"context"
	"errors"
	"net/http"

	"marketplace-service/backend/internal/cache"
	"marketplace-service/backend/internal/entity"
	"marketplace-service/backend/internal/repo"

	"github.com/gin-gonic/gin"
)

// ChatHistory 分页返回会话消息，只有会话双方可以读。
// 缓存键按会话+分页划分，新消息写入时按 "chat_messages:{chatId}_p*" 整体失效。
func (h *Handlers) ChatHistory(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"code": "UNAUTHENTICATED", "message": "missing identity"})
		return
	}
	chatID := c.Param("chatId")
	if chatID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"code": "BAD_REQUEST", "message": "missing chatId"})
		return
	}

	chat, err := h.Chats.GetChat(c.Request.Context(), chatID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"code": "NOT_FOUND", "message": "chat not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"code": "INTERNAL", "message": "get chat failed"})
		return
	}
	if userID != chat.CustomerID && userID != chat.PerformerID {
		c.JSON(http.StatusForbidden, gin.H{"code": "FORBIDDEN", "message": "not a chat participant"})
		return
	}

	page, limit := pageParams(c)
	key := cache.ListKey("chat_messages", chatID, page, limit, "")
	messages, err := cache.FetchCached(c.Request.Context(), h.Store, key, 0,
		func(ctx context.Context) (*[]entity.Message, error) {
			msgs, err := h.Messages.ListByChat(ctx, chatID, page, limit)
			if err != nil {
				return nil, err
			}
			return &msgs, nil
		})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": "INTERNAL", "message": "list messages failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"chatId": chatID, "messages": *messages, "page": page, "limit": limit})
}
