package chat

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"taskmate/internal/model"
	"taskmate/pkg/logger"
	"taskmate/pkg/metrics"
)

// Fragment 单个上下文片段的读取结果；Err 非空时 Items 为空
type Fragment[T any] struct {
	Items []T
	Err   error
}

// OK 片段是否读取成功
func (f Fragment[T]) OK() bool { return f.Err == nil }

// Bundle 一次对话使用的上下文
type Bundle struct {
	Tasks   Fragment[model.Task]
	Notes   Fragment[model.Note]
	Teams   Fragment[model.Membership]
	History Fragment[model.ChatMessage]
}

// Limits 各片段的最大条数
type Limits struct {
	Tasks   int
	Notes   int
	History int
}

// DefaultLimits 20 个任务、5 条笔记、6 条历史
var DefaultLimits = Limits{Tasks: 20, Notes: 5, History: 6}

type Assembler struct {
	store  Store
	limits Limits
	logger *zap.Logger
}

func NewAssembler(store Store, limits Limits, logger *zap.Logger) *Assembler {
	if limits.Tasks <= 0 {
		limits.Tasks = DefaultLimits.Tasks
	}
	if limits.Notes <= 0 {
		limits.Notes = DefaultLimits.Notes
	}
	if limits.History <= 0 {
		limits.History = DefaultLimits.History
	}
	return &Assembler{store: store, limits: limits, logger: logger}
}

// Assemble 并发读取四个片段；任何一个失败只会让该片段为空，不会中断请求
func (a *Assembler) Assemble(ctx context.Context, sess Session) Bundle {
	log := logger.WithTrace(ctx, a.logger)
	var b Bundle

	// 每个 goroutine 只写自己的字段，且从不返回错误，避免 errgroup 取消其他读取
	var g errgroup.Group
	g.Go(func() error {
		b.Tasks = fetch(ctx, log, "tasks", func(ctx context.Context) ([]model.Task, error) {
			return a.store.Tasks.ListByUser(ctx, sess.UserID, a.limits.Tasks)
		})
		return nil
	})
	g.Go(func() error {
		b.Notes = fetch(ctx, log, "notes", func(ctx context.Context) ([]model.Note, error) {
			return a.store.Notes.ListRecent(ctx, sess.UserID, a.limits.Notes)
		})
		return nil
	})
	g.Go(func() error {
		b.Teams = fetch(ctx, log, "teams", func(ctx context.Context) ([]model.Membership, error) {
			return a.store.Teams.ListMemberships(ctx, sess.UserID)
		})
		return nil
	})
	g.Go(func() error {
		b.History = fetch(ctx, log, "history", func(ctx context.Context) ([]model.ChatMessage, error) {
			return a.store.History.Recent(ctx, sess.UserID, a.limits.History)
		})
		return nil
	})
	_ = g.Wait()

	return b
}

func fetch[T any](ctx context.Context, log *zap.Logger, name string, read func(context.Context) ([]T, error)) Fragment[T] {
	items, err := read(ctx)
	if err != nil {
		log.Warn("Context fragment unavailable", zap.String("fragment", name), zap.Error(err))
		metrics.IncrementContextFragmentFailure(name)
		return Fragment[T]{Err: err}
	}
	return Fragment[T]{Items: items}
}
