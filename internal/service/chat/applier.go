package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	mqcontract "taskmate/contracts/mq"
	"taskmate/internal/model"
	"taskmate/internal/repository"
	"taskmate/pkg/logger"
	"taskmate/pkg/metrics"
	"taskmate/pkg/trace"
)

// 动作记录类型
const (
	RecordTaskCreated        = "task_created"
	RecordNoteCreated        = "note_created"
	RecordNotificationPushed = "notification_pushed"
	RecordTaskUpdated        = "task_updated"
	RecordTaskDeleted        = "task_deleted"
	RecordTeamCreated        = "team_created"
)

// ErrNotTeamMember create_task 指定了用户不属于的团队
var ErrNotTeamMember = errors.New("user is not a member of the team")

// Record 一条已生效的动作，按意图顺序返回给调用方
type Record struct {
	Type string      `json:"type"`
	ID   int         `json:"id,omitempty"`
	Task *model.Task `json:"task,omitempty"`
	Team *model.Team `json:"team,omitempty"`
}

type Applier struct {
	store     Store
	publisher EventPublisher
	logger    *zap.Logger
	now       func() time.Time
}

func NewApplier(store Store, publisher EventPublisher, logger *zap.Logger) *Applier {
	return &Applier{store: store, publisher: publisher, logger: logger, now: time.Now}
}

// Apply 按顺序执行意图；单个意图失败只记录日志，不影响其余意图
func (a *Applier) Apply(ctx context.Context, sess Session, intents []Intent) []Record {
	log := logger.WithTrace(ctx, a.logger).With(zap.Int("user_id", sess.UserID))
	records := make([]Record, 0, len(intents))

	for _, intent := range intents {
		rec, err := a.apply(ctx, sess, intent)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			// 任务不存在或属于其他用户：没有产生效果
			log.Info("Intent matched no rows", zap.String("kind", intent.Kind()))
			metrics.IncrementChatAction(intent.Kind(), "not_found")
			continue
		case errors.Is(err, ErrNotTeamMember):
			log.Info("Intent rejected", zap.String("kind", intent.Kind()), zap.Error(err))
			metrics.IncrementChatAction(intent.Kind(), "forbidden")
			continue
		case err != nil:
			log.Error("Failed to apply intent", zap.String("kind", intent.Kind()), zap.Error(err))
			metrics.IncrementChatAction(intent.Kind(), "error")
			continue
		}

		log.Info("Intent applied", zap.String("kind", intent.Kind()), zap.String("record", rec.Type))
		metrics.IncrementChatAction(intent.Kind(), "applied")
		records = append(records, rec)
		a.publish(ctx, log, sess, rec)
	}

	return records
}

func (a *Applier) apply(ctx context.Context, sess Session, intent Intent) (Record, error) {
	switch it := intent.(type) {
	case CreateTask:
		if it.TeamID != nil {
			if _, err := a.store.Teams.GetRole(ctx, *it.TeamID, sess.UserID); err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return Record{}, fmt.Errorf("%w: team %d", ErrNotTeamMember, *it.TeamID)
				}
				return Record{}, err
			}
		}
		task := &model.Task{
			UserID:   sess.UserID,
			TeamID:   it.TeamID,
			Title:    it.Title,
			Status:   model.TaskStatusTodo,
			Priority: it.Priority,
			DueDate:  it.DueDate,
		}
		if err := a.store.Tasks.Insert(ctx, task); err != nil {
			return Record{}, err
		}
		return Record{Type: RecordTaskCreated, ID: task.ID, Task: task}, nil

	case CreateNote:
		note := &model.Note{
			UserID:      sess.UserID,
			Title:       it.Title,
			Content:     it.Content,
			IsImportant: it.Important,
		}
		if err := a.store.Notes.Insert(ctx, note); err != nil {
			return Record{}, err
		}
		return Record{Type: RecordNoteCreated, ID: note.ID}, nil

	case PushNotification:
		n := &model.Notification{
			UserID:      sess.UserID,
			Title:       it.Title,
			Description: it.Description,
			Type:        it.Type,
		}
		if err := a.store.Notifications.Insert(ctx, n); err != nil {
			return Record{}, err
		}
		return Record{Type: RecordNotificationPushed, ID: n.ID}, nil

	case UpdateTask:
		if _, err := a.store.Tasks.Update(ctx, sess.UserID, it.ID, it.Updates); err != nil {
			return Record{}, err
		}
		return Record{Type: RecordTaskUpdated, ID: it.ID}, nil

	case DeleteTask:
		if err := a.store.Tasks.Delete(ctx, sess.UserID, it.ID); err != nil {
			return Record{}, err
		}
		return Record{Type: RecordTaskDeleted, ID: it.ID}, nil

	case CreateTeam:
		team, err := a.store.Teams.CreateWithOwner(ctx, sess.UserID, it.Name)
		if err != nil {
			return Record{}, err
		}
		return Record{Type: RecordTeamCreated, ID: team.ID, Team: team}, nil
	}

	return Record{}, fmt.Errorf("%w: %T", ErrUnknownIntent, intent)
}

func (a *Applier) publish(ctx context.Context, log *zap.Logger, sess Session, rec Record) {
	if a.publisher == nil {
		return
	}

	payload := mqcontract.ActionAppliedPayload{
		UserID:    sess.UserID,
		TraceID:   sess.TraceID,
		Type:      rec.Type,
		ID:        rec.ID,
		AppliedAt: a.now(),
	}
	if rec.Task != nil {
		payload.Task = rec.Task
	}
	if rec.Team != nil {
		payload.Team = rec.Team
	}

	if sess.TraceID != "" && trace.FromContext(ctx) == "" {
		ctx = trace.WithContext(ctx, sess.TraceID)
	}
	if err := a.publisher.Publish(ctx, mqcontract.RoutingKey(rec.Type), payload); err != nil {
		log.Warn("Failed to publish action event", zap.String("type", rec.Type), zap.Error(err))
	}
}
