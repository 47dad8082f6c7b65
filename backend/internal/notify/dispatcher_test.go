package notify

import (
	"testing"
	"time"
)

func TestEnqueue_DropsWhenFull(t *testing.T) {
	// Workers=0：没有消费者，队列只进不出
	d := NewDispatcher(nil, "", nil, DispatcherOptions{QueueSize: 2, Workers: 0})

	evt := AuditEvent{EventType: "BOOKING_STATUS_CHANGED", EntityID: "1", OccurredAt: time.Now()}

	done := make(chan struct{})
	go func() {
		defer close(done)
		// 超过队列容量的入队必须立刻返回而不是阻塞
		for i := 0; i < 10; i++ {
			d.Enqueue(evt)
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Enqueue blocked on a full queue")
	}
	if n := len(d.queue); n != 2 {
		t.Fatalf("queue holds %d events, want 2", n)
	}
}

func TestDispatcher_DrainsWithoutProducer(t *testing.T) {
	// producer 为空时 sendOnce 直接成功，用来验证 worker 消费路径
	d := NewDispatcher(nil, "", NewSemaphoreControl(), DispatcherOptions{
		QueueSize: 16, Workers: 2, MaxRetry: 1, BaseBackoff: time.Millisecond, MaxBackoff: time.Millisecond,
	})

	for i := 0; i < 16; i++ {
		d.Enqueue(AuditEvent{EventType: "BOOKING_STATUS_CHANGED", EntityID: "x", OccurredAt: time.Now()})
	}

	deadline := time.Now().Add(time.Second)
	for len(d.queue) > 0 {
		if time.Now().After(deadline) {
			t.Fatalf("queue not drained, %d events left", len(d.queue))
		}
		time.Sleep(5 * time.Millisecond)
	}
}
