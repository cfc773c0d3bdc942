package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"taskmate/pkg/trace"
)

type memStore struct {
	events []*Event
	sent   []int64
	failed map[int64]int
}

func newMemStore() *memStore { return &memStore{failed: map[int64]int{}} }

func (m *memStore) Insert(_ context.Context, key string, payload json.RawMessage) (int64, error) {
	e := &Event{ID: int64(len(m.events) + 1), RoutingKey: key, Payload: payload, Status: StatusPending}
	m.events = append(m.events, e)
	return e.ID, nil
}

func (m *memStore) Pending(_ context.Context, limit int) ([]*Event, error) {
	var out []*Event
	for _, e := range m.events {
		if e.Status == StatusPending && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memStore) MarkSent(_ context.Context, id int64) error {
	m.sent = append(m.sent, id)
	m.events[id-1].Status = StatusSent
	return nil
}

func (m *memStore) MarkFailed(_ context.Context, id int64, maxRetries int) error {
	m.failed[id]++
	e := m.events[id-1]
	e.RetryCount++
	if e.RetryCount >= maxRetries {
		e.Status = StatusFailed
	}
	return nil
}

type sink struct {
	err    error
	keys   []string
	traces []string
}

func (s *sink) Publish(ctx context.Context, key string, _ any) error {
	if s.err != nil {
		return s.err
	}
	s.keys = append(s.keys, key)
	s.traces = append(s.traces, trace.FromContext(ctx))
	return nil
}

func TestWriterAndDispatcher(t *testing.T) {
	store := newMemStore()
	w := NewWriter(store)
	require.NoError(t, w.Publish(context.Background(), "action.task_created", map[string]any{"trace_id": "t-1", "id": 3}))
	require.NoError(t, w.Publish(context.Background(), "action.team_created", map[string]any{"id": 4}))

	s := &sink{}
	d := NewDispatcher(store, s, zap.NewNop())
	assert.Equal(t, 2, d.ProcessPending(context.Background()))
	assert.Equal(t, []string{"action.task_created", "action.team_created"}, s.keys)
	assert.Equal(t, []string{"t-1", ""}, s.traces)
	assert.Equal(t, []int64{1, 2}, store.sent)

	// 已发送的事件不会重复发布
	assert.Equal(t, 0, d.ProcessPending(context.Background()))
}

func TestDispatcherGivesUpAfterMaxRetries(t *testing.T) {
	store := newMemStore()
	require.NoError(t, NewWriter(store).Publish(context.Background(), "action.note_created", map[string]any{}))

	d := NewDispatcher(store, &sink{err: errors.New("mq down")}, zap.NewNop()).WithMaxRetries(2)
	assert.Equal(t, 0, d.ProcessPending(context.Background()))
	assert.Equal(t, StatusPending, store.events[0].Status)
	assert.Equal(t, 0, d.ProcessPending(context.Background()))
	assert.Equal(t, StatusFailed, store.events[0].Status)
	assert.Equal(t, 2, store.failed[1])

	assert.Equal(t, 0, d.ProcessPending(context.Background()))
	assert.Equal(t, 2, store.failed[1])
}

func TestWriterRejectsUnencodablePayload(t *testing.T) {
	err := NewWriter(newMemStore()).Publish(context.Background(), "x", make(chan int))
	assert.Error(t, err)
}
