package outbox

import (
	"context"
	"encoding/json"
)

// Inserter 写入 outbox
type Inserter interface {
	Insert(ctx context.Context, routingKey string, payload json.RawMessage) (int64, error)
}

// Writer 把事件写入 outbox，由 Dispatcher 异步发布；MQ 不可用时事件不会丢失
type Writer struct {
	repo Inserter
}

func NewWriter(repo Inserter) *Writer {
	return &Writer{repo: repo}
}

// Publish 与 mq.Publisher 签名一致
func (w *Writer) Publish(ctx context.Context, routingKey string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = w.repo.Insert(ctx, routingKey, body)
	return err
}
