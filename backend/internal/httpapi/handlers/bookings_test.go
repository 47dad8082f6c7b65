package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"marketplace-service/backend/internal/cache"
	"marketplace-service/backend/internal/entity"
	"marketplace-service/backend/internal/events"
	"marketplace-service/backend/internal/repo"

	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"
)

type fakeBookingRepo struct {
	booking *entity.Booking
	// 非空时 GetBooking 返回带这个状态的过期快照，模拟读到的数据被并发改掉
	staleReadStatus string
}

func (f *fakeBookingRepo) GetBooking(ctx context.Context, id uint64) (*entity.Booking, error) {
	if f.booking == nil || f.booking.ID != id {
		return nil, repo.ErrNotFound
	}
	snapshot := *f.booking
	if f.staleReadStatus != "" {
		snapshot.Status = f.staleReadStatus
	}
	return &snapshot, nil
}
func (f *fakeBookingRepo) UpdateStatus(ctx context.Context, id uint64, from, to string) (*entity.Booking, error) {
	if f.booking == nil || f.booking.ID != id {
		return nil, repo.ErrNotFound
	}
	if f.booking.Status != from {
		return nil, repo.ErrConflict
	}
	f.booking.Status = to
	snapshot := *f.booking
	return &snapshot, nil
}
func (f *fakeBookingRepo) ListByUser(ctx context.Context, userID uint64, page, limit int) ([]entity.Booking, error) {
	return nil, nil
}

type fakeNotificationRepo struct {
	created []*entity.Notification
}

func (f *fakeNotificationRepo) CreateNotification(ctx context.Context, n *entity.Notification) error {
	n.ID = uint64(len(f.created) + 1)
	n.CreatedAt = time.Now()
	f.created = append(f.created, n)
	return nil
}
func (f *fakeNotificationRepo) ListByUser(ctx context.Context, userID uint64, page, limit int) ([]entity.Notification, error) {
	return nil, nil
}
func (f *fakeNotificationRepo) MarkRead(ctx context.Context, id, userID uint64) error {
	return repo.ErrNotFound
}

// 缓存与总线都指向打不开的端口：二者失败都不能影响状态变更本身
func deadRedisHandlers(t *testing.T) (*cache.Store, *events.Bus) {
	t.Helper()
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond})
	t.Cleanup(func() { _ = rdb.Close() })
	return cache.NewStore(rdb), events.NewBus(rdb)
}

func bookingRouter(t *testing.T, asUser uint64, bookings repo.BookingRepo, notifications repo.NotificationRepo) *gin.Engine {
	t.Helper()
	store, bus := deadRedisHandlers(t)
	h := &Handlers{Store: store, Bus: bus, Bookings: bookings, Notifications: notifications}

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userId", asUser)
		c.Next()
	})
	r.PATCH("/v1/bookings/:id/status", h.UpdateBookingStatus)
	return r
}

func TestTransitionAllowed(t *testing.T) {
	cases := []struct {
		from, to string
		want     bool
	}{
		{"pending", "confirmed", true},
		{"pending", "declined", true},
		{"pending", "cancelled", true},
		{"pending", "completed", false},
		{"confirmed", "completed", true},
		{"confirmed", "cancelled", true},
		{"confirmed", "pending", false},
		{"declined", "confirmed", false},
		{"completed", "cancelled", false},
		{"cancelled", "confirmed", false},
	}
	for _, tc := range cases {
		if got := transitionAllowed(tc.from, tc.to); got != tc.want {
			t.Fatalf("transitionAllowed(%s, %s) = %t, want %t", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestUpdateBookingStatus_NotifiesCounterpart(t *testing.T) {
	bookings := &fakeBookingRepo{booking: &entity.Booking{ID: 5, CustomerID: 1, PerformerID: 2, Status: "pending"}}
	notifications := &fakeNotificationRepo{}
	r := bookingRouter(t, 2, bookings, notifications) // 表演者确认

	req := httptest.NewRequest(http.MethodPatch, "/v1/bookings/5/status", strings.NewReader(`{"status":"confirmed"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body=%s)", w.Code, w.Body.String())
	}
	if bookings.booking.Status != "confirmed" {
		t.Fatalf("booking status = %q, want confirmed", bookings.booking.Status)
	}
	if len(notifications.created) != 1 {
		t.Fatalf("created %d notifications, want 1", len(notifications.created))
	}
	// 通知发给对端（顾客），不是发起操作的表演者
	if got := notifications.created[0].UserID; got != 1 {
		t.Fatalf("notification UserID = %d, want 1", got)
	}
	if notifications.created[0].Type != "booking_status" {
		t.Fatalf("notification Type = %q", notifications.created[0].Type)
	}
}

func TestUpdateBookingStatus_InvalidTransition(t *testing.T) {
	bookings := &fakeBookingRepo{booking: &entity.Booking{ID: 5, CustomerID: 1, PerformerID: 2, Status: "completed"}}
	notifications := &fakeNotificationRepo{}
	r := bookingRouter(t, 1, bookings, notifications)

	req := httptest.NewRequest(http.MethodPatch, "/v1/bookings/5/status", strings.NewReader(`{"status":"cancelled"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409 (body=%s)", w.Code, w.Body.String())
	}
	if len(notifications.created) != 0 {
		t.Fatalf("notifications created on rejected transition: %+v", notifications.created)
	}
}

func TestUpdateBookingStatus_LostRace(t *testing.T) {
	// 请求读到的快照还是 pending，但另一个请求已经把状态改成了 declined；
	// 条件更新必须落空并报冲突，不能在 declined 之上再写 confirmed
	bookings := &fakeBookingRepo{
		booking:         &entity.Booking{ID: 5, CustomerID: 1, PerformerID: 2, Status: "declined"},
		staleReadStatus: "pending",
	}
	notifications := &fakeNotificationRepo{}
	r := bookingRouter(t, 2, bookings, notifications)

	req := httptest.NewRequest(http.MethodPatch, "/v1/bookings/5/status", strings.NewReader(`{"status":"confirmed"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409 (body=%s)", w.Code, w.Body.String())
	}
	if bookings.booking.Status != "declined" {
		t.Fatalf("booking status = %q, want declined untouched", bookings.booking.Status)
	}
	if len(notifications.created) != 0 {
		t.Fatalf("notifications created on lost race: %+v", notifications.created)
	}
}

func TestUpdateBookingStatus_Outsider(t *testing.T) {
	bookings := &fakeBookingRepo{booking: &entity.Booking{ID: 5, CustomerID: 1, PerformerID: 2, Status: "pending"}}
	r := bookingRouter(t, 99, bookings, &fakeNotificationRepo{})

	req := httptest.NewRequest(http.MethodPatch, "/v1/bookings/5/status", strings.NewReader(`{"status":"confirmed"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403 (body=%s)", w.Code, w.Body.String())
	}
}

func TestUpdateBookingStatus_NotFound(t *testing.T) {
	r := bookingRouter(t, 1, &fakeBookingRepo{}, &fakeNotificationRepo{})

	req := httptest.NewRequest(http.MethodPatch, "/v1/bookings/5/status", strings.NewReader(`{"status":"confirmed"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 (body=%s)", w.Code, w.Body.String())
	}
}
