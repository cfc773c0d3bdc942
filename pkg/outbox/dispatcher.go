package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"taskmate/pkg/trace"
)

// Store Dispatcher 需要的 outbox 操作
type Store interface {
	Pending(ctx context.Context, limit int) ([]*Event, error)
	MarkSent(ctx context.Context, eventID int64) error
	MarkFailed(ctx context.Context, eventID int64, maxRetries int) error
}

// Sink 事件的最终去向，一般是 mq.Publisher
type Sink interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

// Dispatcher 负责从 outbox 中读取事件并发布到 MQ
type Dispatcher struct {
	store      Store
	sink       Sink
	logger     *zap.Logger
	maxRetries int
	interval   time.Duration
	batchSize  int
}

func NewDispatcher(store Store, sink Sink, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		store:      store,
		sink:       sink,
		logger:     logger,
		maxRetries: 5,
		interval:   1 * time.Second,
		batchSize:  100,
	}
}

// WithMaxRetries 设置最大重试次数
func (d *Dispatcher) WithMaxRetries(maxRetries int) *Dispatcher {
	d.maxRetries = maxRetries
	return d
}

// WithInterval 设置扫描间隔
func (d *Dispatcher) WithInterval(interval time.Duration) *Dispatcher {
	d.interval = interval
	return d
}

// Start 阻塞运行，直到 ctx 取消
func (d *Dispatcher) Start(ctx context.Context) {
	d.logger.Info("Starting outbox dispatcher",
		zap.Int("max_retries", d.maxRetries),
		zap.Duration("interval", d.interval),
		zap.Int("batch_size", d.batchSize),
	)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("Outbox dispatcher stopped")
			return
		case <-ticker.C:
			d.ProcessPending(ctx)
		}
	}
}

// ProcessPending 发布一批到期事件，返回成功发布的数量
func (d *Dispatcher) ProcessPending(ctx context.Context) int {
	events, err := d.store.Pending(ctx, d.batchSize)
	if err != nil {
		d.logger.Error("Failed to get pending events", zap.Error(err))
		return 0
	}

	sent := 0
	for _, event := range events {
		if err := d.publish(ctx, event); err != nil {
			d.logger.Warn("Failed to publish outbox event",
				zap.Int64("event_id", event.ID),
				zap.String("routing_key", event.RoutingKey),
				zap.Int("retry_count", event.RetryCount),
				zap.Error(err),
			)
			if err := d.store.MarkFailed(ctx, event.ID, d.maxRetries); err != nil {
				d.logger.Error("Failed to mark event as failed", zap.Int64("event_id", event.ID), zap.Error(err))
			}
			continue
		}

		if err := d.store.MarkSent(ctx, event.ID); err != nil {
			// 下一轮会重复发布，订阅方需要容忍重复
			d.logger.Error("Failed to mark event as sent", zap.Int64("event_id", event.ID), zap.Error(err))
			continue
		}
		sent++
	}
	return sent
}

func (d *Dispatcher) publish(ctx context.Context, event *Event) error {
	ctx = withPayloadTrace(ctx, event.Payload)
	if err := d.sink.Publish(ctx, event.RoutingKey, event.Payload); err != nil {
		return fmt.Errorf("failed to publish to MQ: %w", err)
	}
	return nil
}

// withPayloadTrace 从 payload 的 trace_id 字段恢复 trace
func withPayloadTrace(ctx context.Context, payload json.RawMessage) context.Context {
	var head struct {
		TraceID string `json:"trace_id"`
	}
	if err := json.Unmarshal(payload, &head); err == nil && head.TraceID != "" {
		return trace.WithContext(ctx, head.TraceID)
	}
	return ctx
}
