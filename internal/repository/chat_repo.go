package repository

import (
	"context"
	"taskmate/internal/model"
	"taskmate/pkg/otel"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type ChatRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewChatRepository(db *pgxpool.Pool, logger *zap.Logger) *ChatRepository {
	return &ChatRepository{db: db, logger: logger}
}

// Append 在一个事务里按顺序追加消息
func (r *ChatRepository) Append(ctx context.Context, msgs ...model.ChatMessage) error {
	if len(msgs) == 0 {
		return nil
	}
	err := otel.DB(ctx, "insert", "chat_history", func(ctx context.Context) error {
		return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
			for _, m := range msgs {
				if _, err := tx.Exec(ctx,
					`INSERT INTO chat_history (user_id, role, content) VALUES ($1, $2, $3)`,
					m.UserID, m.Role, m.Content,
				); err != nil {
					return err
				}
			}
			return nil
		})
	})
	if err != nil {
		r.logger.Error("Failed to append chat history", zap.Error(err), zap.Int("count", len(msgs)))
		return err
	}
	return nil
}

// Recent 取最近 limit 条消息，按时间正序返回
func (r *ChatRepository) Recent(ctx context.Context, userID, limit int) ([]model.ChatMessage, error) {
	query := `
        SELECT id, user_id, role, content, created_at
        FROM chat_history
        WHERE user_id = $1
        ORDER BY created_at DESC, id DESC
        LIMIT $2`

	msgs := []model.ChatMessage{}
	err := otel.DB(ctx, "select", "chat_history", func(ctx context.Context) error {
		rows, err := r.db.Query(ctx, query, userID, limit)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var m model.ChatMessage
			if err := rows.Scan(&m.ID, &m.UserID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
				return err
			}
			msgs = append(msgs, m)
		}
		return rows.Err()
	})
	if err != nil {
		r.logger.Error("Failed to read chat history", zap.Error(err), zap.Int("user_id", userID))
		return nil, err
	}

	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}
