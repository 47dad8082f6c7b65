package notify

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/IBM/sarama"
)

// AuditEvent 是写路径的旁路事件（审计/邮件等离线消费方使用）。
// 它不参与实时投递：实时走 Redis 总线，这里只是尽力而为的后台任务。
type AuditEvent struct {
	EventType  string            `json:"eventType"` // e.g. "BOOKING_STATUS_CHANGED"
	UserID     uint64            `json:"userId"`
	EntityID   string            `json:"entityId"`
	Detail     map[string]string `json:"detail,omitempty"`
	OccurredAt time.Time         `json:"occurredAt"`
}

// Dispatcher：本地有界队列 + worker 异步发送 + 有限重试。
// 目标：
// - 不阻塞主请求链路（调用方只负责入队）
// - Kafka 短暂阻塞时靠队列吸收，后台慢慢补发
// - 队列满时允许降级（丢弃），避免内存无限增长
// 失败只记日志，从不向调用方传播——这是显式建模的"尽力而为后台任务"。
type Dispatcher struct {
	producer sarama.SyncProducer
	topic    string

	queue chan AuditEvent

	// sem 限制并发的 SendMessage 数量。
	sem *SemaphoreControl

	workers     int
	maxRetry    int
	baseBackoff time.Duration
	maxBackoff  time.Duration
}

type DispatcherOptions struct {
	QueueSize   int
	Workers     int
	MaxRetry    int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

func NewDispatcher(producer sarama.SyncProducer, topic string, sem *SemaphoreControl, opt DispatcherOptions) *Dispatcher {
	d := &Dispatcher{
		producer:    producer,
		topic:       topic,
		queue:       make(chan AuditEvent, opt.QueueSize),
		sem:         sem,
		workers:     opt.Workers,
		maxRetry:    opt.MaxRetry,
		baseBackoff: opt.BaseBackoff,
		maxBackoff:  opt.MaxBackoff,
	}

	d.Start()
	return d
}

// Enqueue：把事件放入本地队列，队列满时直接丢弃。
// 旁路事件不要求送达，丢弃优于拖慢写路径。
func (d *Dispatcher) Enqueue(evt AuditEvent) {
	select {
	case d.queue <- evt:
	default:
		log.Printf("notify: queue full, drop event type=%s entity=%s", evt.EventType, evt.EntityID)
	}
}

func (d *Dispatcher) Start() {
	for i := 0; i < d.workers; i++ {
		go d.workerLoop(i)
	}
}

func (d *Dispatcher) workerLoop(workerID int) {
	for evt := range d.queue {
		d.sendWithRetry(workerID, evt)
	}
}

func (d *Dispatcher) sendWithRetry(workerID int, evt AuditEvent) {
	for attempt := 0; attempt <= d.maxRetry; attempt++ {
		if d.sem != nil {
			// worker 允许一直等待（不会影响主链路）
			_ = d.sem.Acquire(context.Background())
		}

		err := d.sendOnce(evt)

		if d.sem != nil {
			_ = d.sem.Release()
		}

		if err == nil {
			return
		}

		if attempt == d.maxRetry {
			log.Printf("notify: kafka send failed, drop event type=%s entity=%s worker=%d err=%v",
				evt.EventType, evt.EntityID, workerID, err)
			return
		}

		// 退避，每次退避时间X2
		backoff := d.baseBackoff * time.Duration(1<<attempt)
		if backoff > d.maxBackoff {
			backoff = d.maxBackoff
		}
		time.Sleep(backoff)
	}
}

func (d *Dispatcher) sendOnce(evt AuditEvent) error {
	if d.producer == nil || d.topic == "" {
		return nil
	}
	b, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	msg := &sarama.ProducerMessage{
		Topic: d.topic,
		Key:   sarama.StringEncoder(evt.EntityID),
		Value: sarama.ByteEncoder(b),
	}
	_, _, err = d.producer.SendMessage(msg)
	return err
}
