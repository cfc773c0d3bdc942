package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"taskmate/pkg/otel"
)

// 事件状态
const (
	StatusPending = "pending"
	StatusSent    = "sent"
	StatusFailed  = "failed"
)

// Event 表示一个待发布的事件
type Event struct {
	ID          int64
	RoutingKey  string
	Payload     json.RawMessage
	Status      string
	RetryCount  int
	NextRetryAt *time.Time
	CreatedAt   time.Time
}

// Repository outbox_events 表的读写
type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Insert 写入一条 pending 事件
func (r *Repository) Insert(ctx context.Context, routingKey string, payload json.RawMessage) (int64, error) {
	var id int64
	err := otel.DB(ctx, "insert", "outbox_events", func(ctx context.Context) error {
		return r.db.QueryRow(ctx, `
			INSERT INTO outbox_events (routing_key, payload, status)
			VALUES ($1, $2, 'pending')
			RETURNING id
		`, routingKey, payload).Scan(&id)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to insert outbox event: %w", err)
	}
	return id, nil
}

// Pending 获取到期的待发送事件，按创建时间排序
func (r *Repository) Pending(ctx context.Context, limit int) ([]*Event, error) {
	var events []*Event
	err := otel.DB(ctx, "select", "outbox_events", func(ctx context.Context) error {
		rows, err := r.db.Query(ctx, `
			SELECT id, routing_key, payload, status, retry_count, next_retry_at, created_at
			FROM outbox_events
			WHERE status = 'pending'
			AND (next_retry_at IS NULL OR next_retry_at <= NOW())
			ORDER BY created_at ASC, id ASC
			LIMIT $1
		`, limit)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var e Event
			if err := rows.Scan(&e.ID, &e.RoutingKey, &e.Payload, &e.Status, &e.RetryCount, &e.NextRetryAt, &e.CreatedAt); err != nil {
				return err
			}
			events = append(events, &e)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query pending events: %w", err)
	}
	return events, nil
}

// MarkSent 标记事件为已发送
func (r *Repository) MarkSent(ctx context.Context, eventID int64) error {
	return otel.DB(ctx, "update", "outbox_events", func(ctx context.Context) error {
		_, err := r.db.Exec(ctx, `
			UPDATE outbox_events SET status = 'sent', updated_at = NOW() WHERE id = $1
		`, eventID)
		return err
	})
}

// MarkFailed 记录一次失败；未达到 maxRetries 时按 retry_count*5s 推迟重试
func (r *Repository) MarkFailed(ctx context.Context, eventID int64, maxRetries int) error {
	return otel.DB(ctx, "update", "outbox_events", func(ctx context.Context) error {
		_, err := r.db.Exec(ctx, `
			UPDATE outbox_events
			SET retry_count   = retry_count + 1,
			    status        = CASE WHEN retry_count + 1 >= $2 THEN 'failed' ELSE 'pending' END,
			    next_retry_at = CASE WHEN retry_count + 1 >= $2 THEN NULL
			                         ELSE NOW() + (retry_count + 1) * INTERVAL '5 seconds' END,
			    updated_at    = NOW()
			WHERE id = $1
		`, eventID, maxRetries)
		return err
	})
}
