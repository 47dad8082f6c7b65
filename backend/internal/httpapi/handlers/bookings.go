package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"marketplace-service/backend/internal/cache"
	"marketplace-service/backend/internal/entity"
	"marketplace-service/backend/internal/events"
	"marketplace-service/backend/internal/notify"
	"marketplace-service/backend/internal/repo"

	"github.com/gin-gonic/gin"
)

type updateBookingReq struct {
	Status string `json:"status"`
}

// 状态机：pending 可进入 confirmed/declined/cancelled，
// confirmed 可进入 completed/cancelled，其余状态为终态
var bookingTransitions = map[string][]string{
	"pending":   {"confirmed", "declined", "cancelled"},
	"confirmed": {"completed", "cancelled"},
}

func transitionAllowed(from, to string) bool {
	for _, s := range bookingTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func bookingsOwner(userID uint64) string {
	return strconv.FormatUint(userID, 10)
}

// ListBookings 分页返回当前用户参与的预约
func (h *Handlers) ListBookings(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"code": "UNAUTHENTICATED", "message": "missing identity"})
		return
	}
	page, limit := pageParams(c)

	key := cache.ListKey("bookings", bookingsOwner(userID), page, limit, "")
	bookings, err := cache.FetchCached(c.Request.Context(), h.Store, key, 0,
		func(ctx context.Context) (*[]entity.Booking, error) {
			bs, err := h.Bookings.ListByUser(ctx, userID, page, limit)
			if err != nil {
				return nil, err
			}
			return &bs, nil
		})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"code": "INTERNAL", "message": "list bookings failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": *bookings, "page": page, "limit": limit})
}

// UpdateBookingStatus 推进预约状态并通知对端。
// 顺序固定：先落库，再失效双方的列表缓存，最后发布实时通知；
// 发布失败不回滚，对端下一次拉取仍能看到新状态。
func (h *Handlers) UpdateBookingStatus(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"code": "UNAUTHENTICATED", "message": "missing identity"})
		return
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "BAD_REQUEST", "message": "invalid booking id"})
		return
	}
	var req updateBookingReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "BAD_REQUEST", "message": "invalid request body"})
		return
	}

	ctx := c.Request.Context()
	booking, err := h.Bookings.GetBooking(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"code": "NOT_FOUND", "message": "booking not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"code": "INTERNAL", "message": "get booking failed"})
		return
	}
	if userID != booking.CustomerID && userID != booking.PerformerID {
		c.JSON(http.StatusForbidden, gin.H{"code": "FORBIDDEN", "message": "not a booking party"})
		return
	}
	if !transitionAllowed(booking.Status, req.Status) {
		c.JSON(http.StatusConflict, gin.H{"code": "INVALID_TRANSITION",
			"message": fmt.Sprintf("cannot change status from %s to %s", booking.Status, req.Status)})
		return
	}

	// 条件更新：守卫检查用的是快照，写入时由存储层校验状态没被并发改掉
	updated, err := h.Bookings.UpdateStatus(ctx, id, booking.Status, req.Status)
	if err != nil {
		if errors.Is(err, repo.ErrConflict) {
			c.JSON(http.StatusConflict, gin.H{"code": "CONFLICT", "message": "booking was updated concurrently, fetch and retry"})
			return
		}
		if errors.Is(err, repo.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"code": "NOT_FOUND", "message": "booking not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"code": "INTERNAL", "message": "update booking failed"})
		return
	}

	// 通知发给对端，而不是发起操作的一方
	counterpart := updated.CustomerID
	if userID == updated.CustomerID {
		counterpart = updated.PerformerID
	}

	data, _ := json.Marshal(gin.H{"bookingId": updated.ID, "status": updated.Status})
	n := &entity.Notification{
		UserID:  counterpart,
		Type:    "booking_status",
		Message: fmt.Sprintf("Booking %d is now %s", updated.ID, updated.Status),
		Data:    data,
	}
	if err := h.Notifications.CreateNotification(ctx, n); err != nil {
		// 通知落库失败不影响已完成的状态变更
		log.Printf("bookings: create notification for booking %d: %v", updated.ID, err)
	} else {
		h.Store.InvalidatePattern(ctx, cache.ListPattern("notifications", notificationsOwner(counterpart)))
		if err := h.Bus.Publish(ctx, events.NewNotificationEnvelope(*n)); err != nil {
			log.Printf("bookings: publish notification for booking %d: %v", updated.ID, err)
		}
	}

	// 双方的预约列表都已过时；表演者列表页带预约统计，一并失效
	h.Store.InvalidatePattern(ctx, cache.ListPattern("bookings", bookingsOwner(updated.CustomerID)))
	h.Store.InvalidatePattern(ctx, cache.ListPattern("bookings", bookingsOwner(updated.PerformerID)))
	h.Store.InvalidatePattern(ctx, cache.ListPattern("users", "performers"))

	if h.Audit != nil {
		h.Audit.Enqueue(notify.AuditEvent{
			EventType:  "BOOKING_STATUS_CHANGED",
			UserID:     userID,
			EntityID:   strconv.FormatUint(updated.ID, 10),
			Detail:     map[string]string{"status": updated.Status},
			OccurredAt: time.Now(),
		})
	}

	c.JSON(http.StatusOK, gin.H{"booking": updated})
}
