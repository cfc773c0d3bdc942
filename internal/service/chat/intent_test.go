package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskmate/internal/model"
)

func TestParseIntentsSingleAndBatch(t *testing.T) {
	intents, rejected, err := ParseIntents([]byte(`{"action":"create_task","title":" Buy milk ","priority":"HIGH","due_date":"2024-06-01","team_id":4}`), time.UTC)
	require.NoError(t, err)
	assert.Empty(t, rejected)
	require.Len(t, intents, 1)

	ct, ok := intents[0].(CreateTask)
	require.True(t, ok)
	assert.Equal(t, "Buy milk", ct.Title)
	assert.Equal(t, model.PriorityHigh, ct.Priority)
	require.NotNil(t, ct.DueDate)
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), *ct.DueDate)
	require.NotNil(t, ct.TeamID)
	assert.Equal(t, 4, *ct.TeamID)

	intents, rejected, err = ParseIntents([]byte(` [ {"action":"create_team","name":"A"}, {"action":"nope"} ] `), time.UTC)
	require.NoError(t, err)
	require.Len(t, intents, 1)
	require.Len(t, rejected, 1)
	assert.ErrorIs(t, rejected[0], ErrUnknownIntent)
}

func TestParseIntentsMalformed(t *testing.T) {
	for _, block := range []string{`{"action":"create_task",}`, `[1,2`, ``, `nope`} {
		intents, _, err := ParseIntents([]byte(block), time.UTC)
		assert.Error(t, err, block)
		assert.Empty(t, intents)
	}
}

func TestDecodeIntentValidation(t *testing.T) {
	cases := []struct {
		kind string
		args string
	}{
		{KindCreateTask, `{"title":"   "}`},
		{KindCreateTask, `{"title":"x","priority":"urgent"}`},
		{KindCreateTask, `{"title":"x","due_date":"next week"}`},
		{KindCreateTask, `{"title":"x","team_id":"abc"}`},
		{KindCreateNote, `{"title":"only title"}`},
		{KindPushNotification, `{"title":"t"}`},
		{KindUpdateTask, `{"id":1}`},
		{KindUpdateTask, `{"id":1,"updates":{}}`},
		{KindUpdateTask, `{"id":1,"updates":{"status":"archived"}}`},
		{KindUpdateTask, `{"id":-3,"updates":{"status":"done"}}`},
		{KindDeleteTask, `{}`},
		{KindCreateTeam, `{"name":""}`},
	}
	for _, c := range cases {
		_, err := decodeIntent(c.kind, []byte(c.args), time.UTC)
		assert.ErrorIs(t, err, ErrInvalidIntent, c.kind+" "+c.args)
	}
}

func TestDecodeUpdateTask(t *testing.T) {
	intent, err := decodeIntent(KindUpdateTask, []byte(`{"id":"9","updates":{"title":"New","due_date":""}}`), time.UTC)
	require.NoError(t, err)
	ut := intent.(UpdateTask)
	assert.Equal(t, 9, ut.ID)
	require.NotNil(t, ut.Updates.Title)
	assert.Equal(t, "New", *ut.Updates.Title)
	assert.True(t, ut.Updates.ClearDueDate)
	assert.Nil(t, ut.Updates.Status)
}

func TestDecodeDefaults(t *testing.T) {
	intent, err := decodeIntent(KindPushNotification, []byte(`{"title":"t","description":"d"}`), time.UTC)
	require.NoError(t, err)
	assert.Equal(t, PushNotification{Title: "t", Description: "d", Type: model.NotificationTypeInfo}, intent)

	intent, err = decodeIntent(KindCreateTask, []byte(`{"title":"x"}`), time.UTC)
	require.NoError(t, err)
	assert.Equal(t, CreateTask{Title: "x", Priority: model.PriorityMedium}, intent)
}

func TestParseDueUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+8", 8*3600)
	due, err := parseDue("2024-06-01 14:30", loc)
	require.NoError(t, err)
	assert.Equal(t, loc, due.Location())
	assert.Equal(t, 14, due.Hour())

	due, err = parseDue("2024-06-01T10:00:00Z", loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC).Unix(), due.Unix())
}
