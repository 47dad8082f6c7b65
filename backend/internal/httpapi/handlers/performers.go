package handlers

import (
	"context"
	"net/http"

	"marketplace-service/backend/internal/cache"
	"marketplace-service/backend/internal/entity"

	"github.com/gin-gonic/gin"
)

// ListPerformers 分页列出表演者。
// 结果经过读穿透缓存，键里带上所有分页与搜索参数，
// 每个语义不同的查询各有一条缓存。
func (h *Handlers) ListPerformers(c *gin.Context) {
	page, limit := pageParams(c)
	search := c.Query("search")

	// ttl 传 0：用带抖动的默认TTL，避免同批列表页一起过期
	key := cache.ListKey("users", "performers", page, limit, search)
	performers, err := cache.FetchCached(c.Request.Context(), h.Store, key, 0,
		func(ctx context.Context) (*[]entity.User, error) {
			users, err := h.Users.ListPerformers(ctx, page, limit, search)
			if err != nil {
				return nil, err
			}
			// 空页也是合法结果，照常缓存
			return &users, nil
		})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": "INTERNAL", "message": "list performers failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"performers": *performers, "page": page, "limit": limit})
}

// SearchPerformers 按条件搜索表演者。
// 参数组合不定，缓存键用参数哈希；搜索结果易变，用短 TTL。
func (h *Handlers) SearchPerformers(c *gin.Context) {
	params := map[string]string{}
	for _, name := range []string{"city", "category", "q"} {
		if v := c.Query(name); v != "" {
			params[name] = v
		}
	}

	key := cache.QueryKey("search_performers", params)
	performers, err := cache.FetchCached(c.Request.Context(), h.Store, key, cache.SearchTTL,
		func(ctx context.Context) (*[]entity.User, error) {
			users, err := h.Users.SearchPerformers(ctx, params)
			if err != nil {
				return nil, err
			}
			return &users, nil
		})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": "INTERNAL", "message": "search performers failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"performers": *performers})
}
