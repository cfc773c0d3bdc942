package chat

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"taskmate/internal/model"
)

// 意图类型
const (
	KindCreateTask       = "create_task"
	KindCreateNote       = "create_note"
	KindPushNotification = "push_notification"
	KindUpdateTask       = "update_task"
	KindDeleteTask       = "delete_task"
	KindCreateTeam       = "create_team"
)

var (
	// ErrUnknownIntent action 不在白名单内
	ErrUnknownIntent = errors.New("unknown intent kind")
	// ErrInvalidIntent 缺少必填字段或字段值非法
	ErrInvalidIntent = errors.New("invalid intent")
)

// Intent 是封闭的意图集合，只能由本包内的类型实现
type Intent interface {
	Kind() string
	isIntent()
}

type CreateTask struct {
	Title    string
	Priority string
	DueDate  *time.Time
	TeamID   *int
}

type CreateNote struct {
	Title     string
	Content   string
	Important bool
}

type PushNotification struct {
	Title       string
	Description string
	Type        string
}

type UpdateTask struct {
	ID      int
	Updates model.TaskUpdate
}

type DeleteTask struct {
	ID int
}

type CreateTeam struct {
	Name string
}

func (CreateTask) Kind() string       { return KindCreateTask }
func (CreateNote) Kind() string       { return KindCreateNote }
func (PushNotification) Kind() string { return KindPushNotification }
func (UpdateTask) Kind() string       { return KindUpdateTask }
func (DeleteTask) Kind() string       { return KindDeleteTask }
func (CreateTeam) Kind() string       { return KindCreateTeam }

func (CreateTask) isIntent()       {}
func (CreateNote) isIntent()       {}
func (PushNotification) isIntent() {}
func (UpdateTask) isIntent()       {}
func (DeleteTask) isIntent()       {}
func (CreateTeam) isIntent()       {}

// flexID 接受数字或数字字符串
type flexID int

func (f *flexID) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(bytes.TrimSpace(b)), `"`)
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return fmt.Errorf("id must be a positive integer, got %s", string(b))
	}
	*f = flexID(n)
	return nil
}

type createTaskWire struct {
	Title    string  `json:"title"`
	Priority string  `json:"priority"`
	DueDate  string  `json:"due_date"`
	TeamID   *flexID `json:"team_id"`
}

type createNoteWire struct {
	Title       string `json:"title"`
	Content     string `json:"content"`
	IsImportant bool   `json:"is_important"`
}

type pushNotificationWire struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Type        string `json:"type"`
}

type taskUpdatesWire struct {
	Title    *string `json:"title"`
	Status   *string `json:"status"`
	Priority *string `json:"priority"`
	// 空字符串表示清除截止日期
	DueDate *string `json:"due_date"`
}

type updateTaskWire struct {
	ID      *flexID          `json:"id"`
	Updates *taskUpdatesWire `json:"updates"`
}

type deleteTaskWire struct {
	ID *flexID `json:"id"`
}

type createTeamWire struct {
	Name string `json:"name"`
}

// dateLayouts 模型常见的日期格式
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// parseDue 不带时区的日期按 loc 解释
func parseDue(s string, loc *time.Location) (*time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("unrecognised due_date %q", s)
}

func invalid(kind, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidIntent, kind, fmt.Sprintf(format, args...))
}

// decodeIntent 按 kind 把参数解码并校验为具体意图
func decodeIntent(kind string, args json.RawMessage, loc *time.Location) (Intent, error) {
	switch kind {
	case KindCreateTask:
		var w createTaskWire
		if err := json.Unmarshal(args, &w); err != nil {
			return nil, invalid(kind, "%v", err)
		}
		intent := CreateTask{Title: strings.TrimSpace(w.Title), Priority: model.PriorityMedium}
		if intent.Title == "" {
			return nil, invalid(kind, "title is required")
		}
		if w.Priority != "" {
			p := strings.ToLower(w.Priority)
			if !model.ValidPriority(p) {
				return nil, invalid(kind, "priority %q", w.Priority)
			}
			intent.Priority = p
		}
		if w.DueDate != "" {
			due, err := parseDue(w.DueDate, loc)
			if err != nil {
				return nil, invalid(kind, "%v", err)
			}
			intent.DueDate = due
		}
		if w.TeamID != nil {
			id := int(*w.TeamID)
			intent.TeamID = &id
		}
		return intent, nil

	case KindCreateNote:
		var w createNoteWire
		if err := json.Unmarshal(args, &w); err != nil {
			return nil, invalid(kind, "%v", err)
		}
		if strings.TrimSpace(w.Content) == "" {
			return nil, invalid(kind, "content is required")
		}
		return CreateNote{Title: strings.TrimSpace(w.Title), Content: w.Content, Important: w.IsImportant}, nil

	case KindPushNotification:
		var w pushNotificationWire
		if err := json.Unmarshal(args, &w); err != nil {
			return nil, invalid(kind, "%v", err)
		}
		if strings.TrimSpace(w.Title) == "" || strings.TrimSpace(w.Description) == "" {
			return nil, invalid(kind, "title and description are required")
		}
		typ := strings.TrimSpace(w.Type)
		if typ == "" {
			typ = model.NotificationTypeInfo
		}
		return PushNotification{Title: w.Title, Description: w.Description, Type: typ}, nil

	case KindUpdateTask:
		var w updateTaskWire
		if err := json.Unmarshal(args, &w); err != nil {
			return nil, invalid(kind, "%v", err)
		}
		if w.ID == nil || w.Updates == nil {
			return nil, invalid(kind, "id and updates are required")
		}
		u, err := toTaskUpdate(*w.Updates, loc)
		if err != nil {
			return nil, invalid(kind, "%v", err)
		}
		return UpdateTask{ID: int(*w.ID), Updates: u}, nil

	case KindDeleteTask:
		var w deleteTaskWire
		if err := json.Unmarshal(args, &w); err != nil {
			return nil, invalid(kind, "%v", err)
		}
		if w.ID == nil {
			return nil, invalid(kind, "id is required")
		}
		return DeleteTask{ID: int(*w.ID)}, nil

	case KindCreateTeam:
		var w createTeamWire
		if err := json.Unmarshal(args, &w); err != nil {
			return nil, invalid(kind, "%v", err)
		}
		name := strings.TrimSpace(w.Name)
		if name == "" {
			return nil, invalid(kind, "name is required")
		}
		return CreateTeam{Name: name}, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownIntent, kind)
}

func toTaskUpdate(w taskUpdatesWire, loc *time.Location) (model.TaskUpdate, error) {
	var u model.TaskUpdate
	if w.Title != nil {
		title := strings.TrimSpace(*w.Title)
		if title == "" {
			return u, errors.New("title cannot be empty")
		}
		u.Title = &title
	}
	if w.Status != nil {
		s := strings.ToLower(*w.Status)
		if !model.ValidStatus(s) {
			return u, fmt.Errorf("status %q", *w.Status)
		}
		u.Status = &s
	}
	if w.Priority != nil {
		p := strings.ToLower(*w.Priority)
		if !model.ValidPriority(p) {
			return u, fmt.Errorf("priority %q", *w.Priority)
		}
		u.Priority = &p
	}
	if w.DueDate != nil {
		if strings.TrimSpace(*w.DueDate) == "" {
			u.ClearDueDate = true
		} else {
			due, err := parseDue(*w.DueDate, loc)
			if err != nil {
				return u, err
			}
			u.DueDate = due
		}
	}
	if u.Empty() {
		return u, errors.New("updates has no recognised fields")
	}
	return u, nil
}

// ParseIntents 解析动作块：数组视为批量，对象视为单个意图
// JSON 本身不合法时返回错误（零个意图）；单个意图不合法时跳过并记录在 rejected 中
func ParseIntents(block []byte, loc *time.Location) (intents []Intent, rejected []error, err error) {
	block = bytes.TrimSpace(block)
	var items []json.RawMessage
	if len(block) > 0 && block[0] == '[' {
		if err := json.Unmarshal(block, &items); err != nil {
			return nil, nil, err
		}
	} else {
		var obj json.RawMessage
		if err := json.Unmarshal(block, &obj); err != nil {
			return nil, nil, err
		}
		items = []json.RawMessage{obj}
	}

	for _, item := range items {
		var head struct {
			Action string `json:"action"`
		}
		if err := json.Unmarshal(item, &head); err != nil {
			rejected = append(rejected, invalid("?", "%v", err))
			continue
		}
		intent, err := decodeIntent(head.Action, item, loc)
		if err != nil {
			rejected = append(rejected, err)
			continue
		}
		intents = append(intents, intent)
	}
	return intents, rejected, nil
}
