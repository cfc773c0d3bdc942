package repository

import (
	"context"
	"taskmate/internal/model"
	"taskmate/pkg/otel"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type NoteRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewNoteRepository(db *pgxpool.Pool, logger *zap.Logger) *NoteRepository {
	return &NoteRepository{db: db, logger: logger}
}

func (r *NoteRepository) Insert(ctx context.Context, n *model.Note) error {
	query := `
        INSERT INTO notes (user_id, title, content, is_important)
        VALUES ($1, NULLIF($2, ''), $3, $4)
        RETURNING id, created_at
    `
	err := otel.DB(ctx, "insert", "notes", func(ctx context.Context) error {
		return r.db.QueryRow(ctx, query, n.UserID, n.Title, n.Content, n.IsImportant).
			Scan(&n.ID, &n.CreatedAt)
	})
	if err != nil {
		r.logger.Error("Failed to insert note", zap.Error(err), zap.Int("user_id", n.UserID))
		return err
	}
	r.logger.Info("Note inserted", zap.Int("note_id", n.ID), zap.Int("user_id", n.UserID))
	return nil
}

// ListRecent 返回最近的笔记，limit <= 0 表示不限制
func (r *NoteRepository) ListRecent(ctx context.Context, userID, limit int) ([]model.Note, error) {
	query := `
        SELECT id, user_id, COALESCE(title, ''), content, is_important, created_at
        FROM notes
        WHERE user_id = $1
        ORDER BY created_at DESC, id DESC`
	args := []any{userID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	notes := []model.Note{}
	err := otel.DB(ctx, "select", "notes", func(ctx context.Context) error {
		rows, err := r.db.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var n model.Note
			if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Content, &n.IsImportant, &n.CreatedAt); err != nil {
				return err
			}
			notes = append(notes, n)
		}
		return rows.Err()
	})
	if err != nil {
		r.logger.Error("Failed to list notes", zap.Error(err), zap.Int("user_id", userID))
		return nil, err
	}
	return notes, nil
}
