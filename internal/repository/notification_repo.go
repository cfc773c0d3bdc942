package repository

import (
	"context"
	"taskmate/internal/model"
	"taskmate/pkg/otel"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type NotificationRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewNotificationRepository(db *pgxpool.Pool, logger *zap.Logger) *NotificationRepository {
	return &NotificationRepository{db: db, logger: logger}
}

func (r *NotificationRepository) Insert(ctx context.Context, n *model.Notification) error {
	query := `
        INSERT INTO notifications (user_id, title, description, type)
        VALUES ($1, $2, $3, $4)
        RETURNING id, is_read, created_at
    `
	err := otel.DB(ctx, "insert", "notifications", func(ctx context.Context) error {
		return r.db.QueryRow(ctx, query, n.UserID, n.Title, n.Description, n.Type).
			Scan(&n.ID, &n.IsRead, &n.CreatedAt)
	})
	if err != nil {
		r.logger.Error("Failed to insert notification",
			zap.Error(err),
			zap.Int("user_id", n.UserID),
			zap.String("type", n.Type),
		)
		return err
	}
	r.logger.Info("Notification inserted",
		zap.Int("notification_id", n.ID),
		zap.Int("user_id", n.UserID),
	)
	return nil
}

func (r *NotificationRepository) ListByUser(ctx context.Context, userID, limit int) ([]model.Notification, error) {
	query := `
        SELECT id, user_id, title, description, type, is_read, created_at
        FROM notifications
        WHERE user_id = $1
        ORDER BY created_at DESC, id DESC`
	args := []any{userID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	out := []model.Notification{}
	err := otel.DB(ctx, "select", "notifications", func(ctx context.Context) error {
		rows, err := r.db.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var n model.Notification
			if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Description, &n.Type, &n.IsRead, &n.CreatedAt); err != nil {
				return err
			}
			out = append(out, n)
		}
		return rows.Err()
	})
	if err != nil {
		r.logger.Error("Failed to list notifications", zap.Error(err), zap.Int("user_id", userID))
		return nil, err
	}
	return out, nil
}

// MarkRead 标记已读，只作用于当前用户的通知
func (r *NotificationRepository) MarkRead(ctx context.Context, userID, notificationID int) error {
	var rowsAffected int64
	err := otel.DB(ctx, "update", "notifications", func(ctx context.Context) error {
		tag, err := r.db.Exec(ctx,
			`UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2`,
			notificationID, userID,
		)
		rowsAffected = tag.RowsAffected()
		return err
	})
	if err != nil {
		r.logger.Error("Failed to mark notification read",
			zap.Error(err),
			zap.Int("notification_id", notificationID),
		)
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
