package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"taskmate/internal/model"
	"taskmate/pkg/otel"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const taskColumns = `id, user_id, team_id, title, status, priority, due_date, created_at, updated_at`

type TaskRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewTaskRepository(db *pgxpool.Pool, logger *zap.Logger) *TaskRepository {
	return &TaskRepository{db: db, logger: logger}
}

func scanTask(row pgx.Row) (*model.Task, error) {
	var t model.Task
	err := row.Scan(
		&t.ID,
		&t.UserID,
		&t.TeamID,
		&t.Title,
		&t.Status,
		&t.Priority,
		&t.DueDate,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Insert 写入任务并回填 id / 时间戳
func (r *TaskRepository) Insert(ctx context.Context, t *model.Task) error {
	r.logger.Debug("Inserting task",
		zap.Int("user_id", t.UserID),
		zap.String("title", t.Title),
		zap.String("priority", t.Priority),
	)
	query := `
        INSERT INTO tasks (user_id, team_id, title, status, priority, due_date)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, created_at, updated_at
    `
	err := otel.DB(ctx, "insert", "tasks", func(ctx context.Context) error {
		return r.db.QueryRow(ctx, query,
			t.UserID,
			t.TeamID,
			t.Title,
			t.Status,
			t.Priority,
			t.DueDate,
		).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	})
	if err != nil {
		r.logger.Error("Failed to insert task",
			zap.Error(err),
			zap.Int("user_id", t.UserID),
		)
		return err
	}
	r.logger.Info("Task inserted successfully",
		zap.Int("task_id", t.ID),
		zap.Int("user_id", t.UserID),
	)
	return nil
}

// ListByUser 按创建时间倒序返回用户任务，limit <= 0 表示不限制
func (r *TaskRepository) ListByUser(ctx context.Context, userID, limit int) ([]model.Task, error) {
	r.logger.Debug("Listing tasks for user", zap.Int("user_id", userID), zap.Int("limit", limit))
	query := `SELECT ` + taskColumns + `
        FROM tasks
        WHERE user_id = $1
        ORDER BY created_at DESC, id DESC`
	args := []any{userID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	tasks := []model.Task{}
	err := otel.DB(ctx, "select", "tasks", func(ctx context.Context) error {
		rows, err := r.db.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			t, err := scanTask(rows)
			if err != nil {
				return err
			}
			tasks = append(tasks, *t)
		}
		return rows.Err()
	})
	if err != nil {
		r.logger.Error("Failed to list tasks",
			zap.Error(err),
			zap.Int("user_id", userID),
		)
		return nil, err
	}
	r.logger.Debug("Tasks listed successfully",
		zap.Int("user_id", userID),
		zap.Int("count", len(tasks)),
	)
	return tasks, nil
}

// Update 只修改属于 userID 的任务；没有匹配行时返回 ErrNotFound
func (r *TaskRepository) Update(ctx context.Context, userID, taskID int, u model.TaskUpdate) (*model.Task, error) {
	if u.Empty() {
		return nil, fmt.Errorf("empty task update")
	}

	sets := []string{}
	args := []any{taskID, userID}
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if u.Title != nil {
		add("title", *u.Title)
	}
	if u.Status != nil {
		add("status", *u.Status)
	}
	if u.Priority != nil {
		add("priority", *u.Priority)
	}
	if u.DueDate != nil {
		add("due_date", *u.DueDate)
	} else if u.ClearDueDate {
		sets = append(sets, "due_date = NULL")
	}
	sets = append(sets, "updated_at = NOW()")

	query := `UPDATE tasks SET ` + strings.Join(sets, ", ") + `
        WHERE id = $1 AND user_id = $2
        RETURNING ` + taskColumns

	var task *model.Task
	err := otel.DB(ctx, "update", "tasks", func(ctx context.Context) error {
		var err error
		task, err = scanTask(r.db.QueryRow(ctx, query, args...))
		return err
	})
	if errors.Is(err, pgx.ErrNoRows) {
		r.logger.Info("Task update matched no rows",
			zap.Int("task_id", taskID),
			zap.Int("user_id", userID),
		)
		return nil, ErrNotFound
	}
	if err != nil {
		r.logger.Error("Failed to update task",
			zap.Error(err),
			zap.Int("task_id", taskID),
		)
		return nil, err
	}
	r.logger.Info("Task updated", zap.Int("task_id", taskID), zap.Int("user_id", userID))
	return task, nil
}

// ToggleStatus todo <-> done
func (r *TaskRepository) ToggleStatus(ctx context.Context, userID, taskID int) (*model.Task, error) {
	query := `
        UPDATE tasks
        SET status = CASE WHEN status = 'done' THEN 'todo' ELSE 'done' END,
            updated_at = NOW()
        WHERE id = $1 AND user_id = $2
        RETURNING ` + taskColumns

	var task *model.Task
	err := otel.DB(ctx, "update", "tasks", func(ctx context.Context) error {
		var err error
		task, err = scanTask(r.db.QueryRow(ctx, query, taskID, userID))
		return err
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		r.logger.Error("Failed to toggle task status",
			zap.Error(err),
			zap.Int("task_id", taskID),
		)
		return nil, err
	}
	r.logger.Info("Task status toggled",
		zap.Int("task_id", taskID),
		zap.String("status", task.Status),
	)
	return task, nil
}

// Delete 删除属于 userID 的任务；没有匹配行时返回 ErrNotFound
func (r *TaskRepository) Delete(ctx context.Context, userID, taskID int) error {
	r.logger.Debug("Deleting task", zap.Int("task_id", taskID), zap.Int("user_id", userID))
	var rowsAffected int64
	err := otel.DB(ctx, "delete", "tasks", func(ctx context.Context) error {
		tag, err := r.db.Exec(ctx, `DELETE FROM tasks WHERE id = $1 AND user_id = $2`, taskID, userID)
		rowsAffected = tag.RowsAffected()
		return err
	})
	if err != nil {
		r.logger.Error("Failed to delete task",
			zap.Error(err),
			zap.Int("task_id", taskID),
		)
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	r.logger.Info("Task deleted", zap.Int("task_id", taskID), zap.Int("user_id", userID))
	return nil
}
