package chat

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"taskmate/internal/model"
	"taskmate/internal/repository"
	"taskmate/internal/service/llm"
	"taskmate/pkg/rbac"
)

// memDB 内存版数据存储，实现 chat 包需要的全部接口
type memDB struct {
	mu            sync.Mutex
	seq           int
	tasks         map[int]*model.Task
	notes         []model.Note
	notifications []model.Notification
	teams         map[int]*model.Team
	members       []model.Membership
	history       []model.ChatMessage

	// 非空时对应的读取/写入返回该错误
	failTasks, failNotes, failTeams, failHistory error
	failNoteInsert, failAppend                    error
}

func newMemDB() *memDB {
	return &memDB{tasks: map[int]*model.Task{}, teams: map[int]*model.Team{}}
}

func (m *memDB) store() Store {
	return Store{
		Tasks:         memTasks{m},
		Notes:         memNotes{m},
		Notifications: memNotifications{m},
		Teams:         memTeams{m},
		History:       memHistory{m},
	}
}

func (m *memDB) nextID() int {
	m.seq++
	return m.seq
}

func (m *memDB) tasksOf(userID int) []model.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Task
	for _, t := range m.tasks {
		if t.UserID == userID {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type memTasks struct{ m *memDB }

func (s memTasks) Insert(_ context.Context, t *model.Task) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	t.ID = s.m.nextID()
	t.CreatedAt = time.Now()
	t.UpdatedAt = t.CreatedAt
	cp := *t
	s.m.tasks[t.ID] = &cp
	return nil
}

func (s memTasks) ListByUser(_ context.Context, userID, limit int) ([]model.Task, error) {
	if s.m.failTasks != nil {
		return nil, s.m.failTasks
	}
	out := s.m.tasksOf(userID)
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s memTasks) Update(_ context.Context, userID, taskID int, u model.TaskUpdate) (*model.Task, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	t, ok := s.m.tasks[taskID]
	if !ok || t.UserID != userID {
		return nil, repository.ErrNotFound
	}
	if u.Title != nil {
		t.Title = *u.Title
	}
	if u.Status != nil {
		t.Status = *u.Status
	}
	if u.Priority != nil {
		t.Priority = *u.Priority
	}
	if u.DueDate != nil {
		t.DueDate = u.DueDate
	}
	if u.ClearDueDate {
		t.DueDate = nil
	}
	cp := *t
	return &cp, nil
}

func (s memTasks) Delete(_ context.Context, userID, taskID int) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	t, ok := s.m.tasks[taskID]
	if !ok || t.UserID != userID {
		return repository.ErrNotFound
	}
	delete(s.m.tasks, taskID)
	return nil
}

type memNotes struct{ m *memDB }

func (s memNotes) Insert(_ context.Context, n *model.Note) error {
	if s.m.failNoteInsert != nil {
		return s.m.failNoteInsert
	}
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	n.ID = s.m.nextID()
	s.m.notes = append(s.m.notes, *n)
	return nil
}

func (s memNotes) ListRecent(_ context.Context, userID, limit int) ([]model.Note, error) {
	if s.m.failNotes != nil {
		return nil, s.m.failNotes
	}
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var out []model.Note
	for i := len(s.m.notes) - 1; i >= 0 && len(out) < limit; i-- {
		if s.m.notes[i].UserID == userID {
			out = append(out, s.m.notes[i])
		}
	}
	return out, nil
}

type memNotifications struct{ m *memDB }

func (s memNotifications) Insert(_ context.Context, n *model.Notification) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	n.ID = s.m.nextID()
	s.m.notifications = append(s.m.notifications, *n)
	return nil
}

type memTeams struct{ m *memDB }

func (s memTeams) CreateWithOwner(_ context.Context, userID int, name string) (*model.Team, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	team := &model.Team{ID: s.m.nextID(), Name: name, CreatedBy: userID, CreatedAt: time.Now()}
	s.m.teams[team.ID] = team
	s.m.members = append(s.m.members, model.Membership{
		TeamID: team.ID, TeamName: name, UserID: userID, Role: rbac.RoleOwner, JoinedAt: team.CreatedAt,
	})
	cp := *team
	return &cp, nil
}

func (s memTeams) ListMemberships(_ context.Context, userID int) ([]model.Membership, error) {
	if s.m.failTeams != nil {
		return nil, s.m.failTeams
	}
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var out []model.Membership
	for _, mb := range s.m.members {
		if mb.UserID == userID {
			out = append(out, mb)
		}
	}
	return out, nil
}

func (s memTeams) GetRole(_ context.Context, teamID, userID int) (string, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, mb := range s.m.members {
		if mb.TeamID == teamID && mb.UserID == userID {
			return mb.Role, nil
		}
	}
	return "", repository.ErrNotFound
}

type memHistory struct{ m *memDB }

func (s memHistory) Append(_ context.Context, msgs ...model.ChatMessage) error {
	if s.m.failAppend != nil {
		return s.m.failAppend
	}
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	for _, msg := range msgs {
		msg.ID = int64(s.m.nextID())
		s.m.history = append(s.m.history, msg)
	}
	return nil
}

func (s memHistory) Recent(_ context.Context, userID, limit int) ([]model.ChatMessage, error) {
	if s.m.failHistory != nil {
		return nil, s.m.failHistory
	}
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	var mine []model.ChatMessage
	for _, msg := range s.m.history {
		if msg.UserID == userID {
			mine = append(mine, msg)
		}
	}
	if len(mine) > limit {
		mine = mine[len(mine)-limit:]
	}
	return mine, nil
}

// fakeModel 返回预设回复并记录收到的请求
type fakeModel struct {
	reply      *llm.Reply
	err        error
	configured bool
	requests   []llm.Request
}

func newFakeModel(text string) *fakeModel {
	return &fakeModel{reply: &llm.Reply{Text: text}, configured: true}
}

func (f *fakeModel) Name() string     { return "fake" }
func (f *fakeModel) Configured() bool { return f.configured }

func (f *fakeModel) Complete(_ context.Context, req llm.Request) (*llm.Reply, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	cp := *f.reply
	return &cp, nil
}

type published struct {
	key     string
	payload any
}

type fakePublisher struct {
	mu     sync.Mutex
	events []published
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, key string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, published{key: key, payload: payload})
	return nil
}

type denyLimiter struct{}

func (denyLimiter) Allow(context.Context, string, int) bool { return false }

var errBoom = errors.New("boom")
